package routes

import (
	"net/http"

	"github.com/briangreenhill/coachbot/internal/coach"
)

type markdownResponse struct {
	Markdown string `json:"markdown"`
}

// coachHandler decodes the named fields and answers with the generated text
func coachHandler(fields []string, generate func(in map[string]string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		values := make([]string, len(fields))
		dst := make(map[string]*string, len(fields))
		for i, f := range fields {
			dst[f] = &values[i]
		}
		if err := decodeInput(w, r, dst); err != nil {
			writeError(w, r, err)
			return
		}
		in := make(map[string]string, len(fields))
		for i, f := range fields {
			in[f] = values[i]
		}

		md, err := generate(in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, markdownResponse{Markdown: md})
	}
}

func (s *Server) handleWeeklyPlan(w http.ResponseWriter, r *http.Request) {
	coachHandler([]string{"position", "level", "injury"}, func(in map[string]string) (string, error) {
		position, err := coach.ParsePosition(in["position"])
		if err != nil {
			return "", err
		}
		level, err := coach.ParseFitnessLevel(in["level"])
		if err != nil {
			return "", err
		}
		return coach.WeeklyPlan(position, level, in["injury"])
	})(w, r)
}

func (s *Server) handleInjury(w http.ResponseWriter, r *http.Request) {
	coachHandler([]string{"description"}, func(in map[string]string) (string, error) {
		return coach.InjuryAdvice(in["description"])
	})(w, r)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	coachHandler([]string{"focus"}, func(in map[string]string) (string, error) {
		focus, err := coach.ParseRecoveryFocus(in["focus"])
		if err != nil {
			return "", err
		}
		return coach.RecoveryPlan(focus)
	})(w, r)
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	coachHandler([]string{"style"}, func(in map[string]string) (string, error) {
		style, err := coach.ParseOpponentStyle(in["style"])
		if err != nil {
			return "", err
		}
		return coach.MatchStrategy(style)
	})(w, r)
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	coachHandler([]string{"question"}, func(in map[string]string) (string, error) {
		return coach.AssistantGuidance(in["question"])
	})(w, r)
}
