package jobs

const TaskDoseReminder = "reminder:dose"

// QueueReminders is the asynq queue reminder tasks are placed on
const QueueReminders = "reminders"

type DoseReminderPayload struct {
	EntryID   string `json:"entry_id"`
	Name      string `json:"name"`
	Scheduled string `json:"scheduled"`
	Recipient string `json:"recipient"`
}
