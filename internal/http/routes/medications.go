package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/coachbot/internal/adherence"
	appmw "github.com/briangreenhill/coachbot/internal/http/middleware"
	"github.com/briangreenhill/coachbot/internal/jobs"
	"github.com/briangreenhill/coachbot/internal/metrics"
)

type dashboardData struct {
	Title     string
	Reset     bool
	NewBadges []adherence.BadgeInfo
	Snapshot  adherence.Snapshot
}

type medicationsResponse struct {
	adherence.Snapshot
	StreakReset bool                  `json:"streak_reset"`
	NewBadges   []adherence.BadgeInfo `json:"new_badges"`
}

type addResponse struct {
	ID                uuid.UUID `json:"id"`
	ReminderScheduled bool      `json:"reminder_scheduled"`
}

type statusResponse struct {
	ID     uuid.UUID        `json:"id"`
	Status adherence.Status `json:"status"`
}

// refresh runs one evaluation pass over the session tracker and records what
// changed
func (s *Server) refresh(r *http.Request, t *adherence.Tracker) (adherence.Evaluation, []adherence.BadgeInfo) {
	ev := t.Refresh(s.Now())
	log := hlog.FromRequest(r)

	if ev.ResetOccurred {
		metrics.StreakResets.Inc()
		log.Info().Msg("streak reset")
	}
	unlocked := make([]adherence.BadgeInfo, 0, len(ev.NewBadges))
	for _, b := range ev.NewBadges {
		metrics.BadgesUnlocked.WithLabelValues(string(b)).Inc()
		log.Info().Str("badge", string(b)).Int("streak", ev.Streak).Int("score", ev.Score).Msg("badge unlocked")
		if info, ok := b.Info(); ok {
			unlocked = append(unlocked, info)
		}
	}
	return ev, unlocked
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	t := appmw.Tracker(r.Context())
	ev, unlocked := s.refresh(r, t)
	s.render(w, r, "dashboard", dashboardData{
		Title:     "MedTimer",
		Reset:     ev.ResetOccurred,
		NewBadges: unlocked,
		Snapshot:  t.Snapshot(s.Now()),
	})
}

func (s *Server) handleListMedications(w http.ResponseWriter, r *http.Request) {
	t := appmw.Tracker(r.Context())
	ev, unlocked := s.refresh(r, t)
	writeJSON(w, r, http.StatusOK, medicationsResponse{
		Snapshot:    t.Snapshot(s.Now()),
		StreakReset: ev.ResetOccurred,
		NewBadges:   unlocked,
	})
}

func (s *Server) handleAddMedication(w http.ResponseWriter, r *http.Request) {
	var name, clock, date, recipient, redirect string
	if err := decodeInput(w, r, map[string]*string{
		"name":           &name,
		"time":           &clock,
		"date":           &date,
		"reminder_email": &recipient,
		"redirect":       &redirect,
	}); err != nil {
		writeError(w, r, err)
		return
	}

	at, err := adherence.ParseTimeOfDay(clock)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t := appmw.Tracker(r.Context())
	var id uuid.UUID
	if date = strings.TrimSpace(date); date != "" {
		day, perr := time.Parse("2006-01-02", date)
		if perr != nil {
			writeError(w, r, fmt.Errorf("%w: date must be YYYY-MM-DD: %q", adherence.ErrValidation, date))
			return
		}
		id, err = t.AddEntryOn(name, at, day)
	} else {
		id, err = t.AddEntry(name, at)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	metrics.RecordEntryAction("add")

	resp := addResponse{ID: id}
	if recipient = strings.TrimSpace(recipient); recipient != "" && s.Queue != nil {
		resp.ReminderScheduled = s.scheduleReminder(r, t, id, recipient)
	}

	if target := localRedirect(redirect); target != "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

// scheduleReminder enqueues a dose reminder. A queue failure is logged and
// does not undo the add.
func (s *Server) scheduleReminder(r *http.Request, t *adherence.Tracker, id uuid.UUID, recipient string) bool {
	log := hlog.FromRequest(r)
	e, err := t.Entry(id)
	if err != nil {
		log.Error().Err(err).Msg("load entry for reminder")
		return false
	}
	info, err := jobs.ScheduleDoseReminder(s.Queue, e, recipient, s.Now(), s.ReminderLead)
	if err != nil {
		metrics.RecordReminder("failed")
		log.Error().Err(err).Str("entry_id", id.String()).Msg("schedule dose reminder")
		return false
	}
	if info == nil {
		log.Debug().Str("entry_id", id.String()).Msg("no reminder due")
		return false
	}
	log.Info().Str("entry_id", id.String()).Str("task_id", info.ID).Time("process_at", info.NextProcessAt).Msg("dose reminder scheduled")
	return true
}

func (s *Server) handleMarkTaken(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var redirect string
	if err := decodeInput(w, r, map[string]*string{"redirect": &redirect}); err != nil {
		writeError(w, r, err)
		return
	}

	t := appmw.Tracker(r.Context())
	if err := t.MarkTaken(id); err != nil {
		writeError(w, r, err)
		return
	}
	metrics.RecordEntryAction("taken")

	if target := localRedirect(redirect); target != "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	status, _ := t.Classify(id, s.Now())
	writeJSON(w, r, http.StatusOK, statusResponse{ID: id, Status: status})
}

func (s *Server) handleDeleteMedication(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var redirect string
	if r.Method == http.MethodPost {
		if err := decodeInput(w, r, map[string]*string{"redirect": &redirect}); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := appmw.Tracker(r.Context()).DeleteEntry(id); err != nil {
		writeError(w, r, err)
		return
	}
	metrics.RecordEntryAction("delete")

	if target := localRedirect(redirect); target != "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := entryID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	now := s.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		now, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, r, errors.Join(errBadRequest, fmt.Errorf("at must be RFC3339: %q", raw)))
			return
		}
	}

	status, err := appmw.Tracker(r.Context()).Classify(id, now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, statusResponse{ID: id, Status: status})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rows := appmw.Tracker(r.Context()).ExportReport(s.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="medtimer_report.csv"`)
	if err := adherence.WriteCSV(w, rows); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write report")
	}
}
