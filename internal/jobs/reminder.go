// Package jobs defines the background tasks shared by the api and worker
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/coachbot/internal/adherence"
	"github.com/briangreenhill/coachbot/internal/email"
	"github.com/briangreenhill/coachbot/internal/metrics"
)

// Enqueuer is the part of *asynq.Client used to schedule tasks
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NextReminder returns when a reminder for e should fire. Dated entries fire
// once, lead before they are due, and report false once that has passed.
// Undated entries fire at the next occurrence of their time of day.
func NextReminder(e adherence.Entry, now time.Time, lead time.Duration) (time.Time, bool) {
	loc := now.Location()
	if e.Dated() {
		y, m, d := e.Date.Date()
		due := time.Date(y, m, d, e.Scheduled.Hour, e.Scheduled.Minute, 0, 0, loc)
		if !due.After(now) {
			return time.Time{}, false
		}
		return latest(due.Add(-lead), now), true
	}

	y, m, d := now.Date()
	due := time.Date(y, m, d, e.Scheduled.Hour, e.Scheduled.Minute, 0, 0, loc)
	if !due.After(now) {
		due = due.AddDate(0, 0, 1)
	}
	return latest(due.Add(-lead), now), true
}

func latest(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

// ScheduleDoseReminder enqueues a reminder for e addressed to recipient.
// It returns a nil TaskInfo when no reminder is due.
func ScheduleDoseReminder(q Enqueuer, e adherence.Entry, recipient string, now time.Time, lead time.Duration) (*asynq.TaskInfo, error) {
	at, ok := NextReminder(e, now, lead)
	if !ok {
		return nil, nil
	}
	payload, err := json.Marshal(DoseReminderPayload{
		EntryID:   e.ID.String(),
		Name:      e.Name,
		Scheduled: e.ScheduledLabel(),
		Recipient: recipient,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal reminder payload: %w", err)
	}
	info, err := q.Enqueue(asynq.NewTask(TaskDoseReminder, payload),
		asynq.Queue(QueueReminders),
		asynq.ProcessAt(at),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue reminder: %w", err)
	}
	metrics.RecordReminder("scheduled")
	return info, nil
}

// ReminderHandler delivers dose reminders
type ReminderHandler struct {
	Sender email.Sender
	Logger zerolog.Logger
}

// ProcessTask implements asynq.Handler
func (h *ReminderHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p DoseReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.Logger.Error().Err(err).Msg("bad reminder payload")
		return fmt.Errorf("decode reminder payload: %w", asynq.SkipRetry)
	}
	log := h.Logger.With().Str("entry_id", p.EntryID).Str("recipient", p.Recipient).Logger()

	subject, body := ReminderMessage(p)
	start := time.Now()
	err := h.Sender.Send(p.Recipient, subject, body)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordReminder("failed")
		if IsRetryableError(err) {
			log.Warn().Err(err).Dur("duration", duration).Msg("retryable reminder error")
			return err
		}
		log.Error().Err(err).Dur("duration", duration).Msg("permanent reminder error, dropping task")
		return nil
	}
	metrics.RecordReminder("sent")
	log.Info().Dur("duration", duration).Msg("reminder sent")
	return nil
}

// ReminderMessage builds the subject and html body for a reminder
func ReminderMessage(p DoseReminderPayload) (subject, body string) {
	name := html.EscapeString(p.Name)
	subject = fmt.Sprintf("Time to take %s", p.Name)
	body = fmt.Sprintf("<p>⏰ Reminder: take <strong>%s</strong> (scheduled %s).</p>"+
		"<p>Mark it as taken in MedTimer to keep your streak going.</p>",
		name, html.EscapeString(p.Scheduled))
	return subject, body
}

// IsRetryableError determines if an error should trigger a task retry
func IsRetryableError(err error) bool {
	errStr := strings.ToLower(err.Error())

	// network/connectivity
	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "dns") {
		return true
	}

	// SMTP transient replies (4xx)
	if strings.Contains(errStr, "421") ||
		strings.Contains(errStr, "450") ||
		strings.Contains(errStr, "451") ||
		strings.Contains(errStr, "452") {
		return true
	}

	return false
}
