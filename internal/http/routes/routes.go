package routes

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/coachbot/internal/adherence"
	"github.com/briangreenhill/coachbot/internal/coach"
	appmw "github.com/briangreenhill/coachbot/internal/http/middleware"
	"github.com/briangreenhill/coachbot/internal/jobs"
	"github.com/briangreenhill/coachbot/internal/metrics"
)

type Server struct {
	Router       *chi.Mux
	Sess         *scs.SessionManager
	Tmpl         *template.Template
	Queue        jobs.Enqueuer // nil disables dose reminders
	ReminderLead time.Duration
	Now          func() time.Time
	Ready        func(ctx context.Context) error
}

type ServerOptions struct {
	Sess         *scs.SessionManager
	Tmpl         *template.Template
	Logger       zerolog.Logger
	Queue        jobs.Enqueuer
	Policy       adherence.Policy
	ReminderLead time.Duration
	// Now defaults to time.Now
	Now func() time.Time
	// Ready reports whether backing services are reachable
	Ready func(ctx context.Context) error
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)

	s := &Server{
		Router:       r,
		Sess:         opts.Sess,
		Tmpl:         opts.Tmpl,
		Queue:        opts.Queue,
		ReminderLead: opts.ReminderLead,
		Now:          opts.Now,
		Ready:        opts.Ready,
	}
	if s.Now == nil {
		s.Now = time.Now
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(appmw.LoadTracker(s.Sess, opts.Policy))
		pr.Get("/", s.handleDashboard)
		pr.Get("/api/medications", s.handleListMedications)
		pr.Post("/api/medications", s.handleAddMedication)
		pr.Post("/api/medications/{id}/taken", s.handleMarkTaken)
		pr.Delete("/api/medications/{id}", s.handleDeleteMedication)
		pr.Post("/api/medications/{id}/delete", s.handleDeleteMedication)
		pr.Get("/api/medications/{id}/status", s.handleStatus)
		pr.Get("/api/report.csv", s.handleReport)
	})

	r.Route("/api/coach", func(cr chi.Router) {
		cr.Post("/plan", s.handleWeeklyPlan)
		cr.Post("/injury", s.handleInjury)
		cr.Post("/recovery", s.handleRecovery)
		cr.Post("/strategy", s.handleStrategy)
		cr.Post("/assistant", s.handleAssistant)
	})

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil {
		if err := s.Ready(r.Context()); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("health check failed")
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	if _, err := w.Write([]byte("ok")); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.Tmpl.ExecuteTemplate(w, name, data); err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("template", name).Msg("render template failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto status codes
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, adherence.ErrValidation),
		errors.Is(err, coach.ErrUnknownOption),
		errors.Is(err, coach.ErrEmptyInput),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, adherence.ErrNotFound),
		errors.Is(err, adherence.ErrIndexOutOfRange):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeJSON(w, r, status, errorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

// maxBodyBytes caps JSON and form request bodies
const maxBodyBytes = 64 << 10

// decodeInput fills the string fields in dst from a JSON object body or,
// for html forms, from the form values of the same name
func decodeInput(w http.ResponseWriter, r *http.Request, dst map[string]*string) error {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return errors.Join(errBadRequest, err)
		}
		for key, ptr := range dst {
			if v, ok := body[key].(string); ok {
				*ptr = v
			}
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return errors.Join(errBadRequest, err)
	}
	for key, ptr := range dst {
		*ptr = r.Form.Get(key)
	}
	return nil
}

// localRedirect returns target when it is a path on this site. Browsers read
// a backslash as a slash, so "/\host" is rejected like "//host".
func localRedirect(target string) string {
	normalized := strings.ReplaceAll(target, "\\", "/")
	if !strings.HasPrefix(normalized, "/") || strings.HasPrefix(normalized, "//") {
		return ""
	}
	u, err := url.Parse(normalized)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return target
}

func entryID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.Join(errBadRequest, errors.New("invalid medication id"))
	}
	return id, nil
}
