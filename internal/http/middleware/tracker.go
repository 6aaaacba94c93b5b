package middleware

import (
	"context"
	"encoding/gob"
	"net/http"

	scs "github.com/alexedwards/scs/v2"

	"github.com/briangreenhill/coachbot/internal/adherence"
)

type contextKey string

const TrackerKey contextKey = "tracker"

// sessionKey is where the tracker value lives inside the scs session
const sessionKey = "tracker"

func init() {
	gob.Register(adherence.Tracker{})
}

// Tracker returns the session tracker placed in ctx by LoadTracker
func Tracker(ctx context.Context) *adherence.Tracker {
	t, _ := ctx.Value(TrackerKey).(*adherence.Tracker)
	return t
}

// LoadTracker puts the session's tracker in the request context, creating an
// empty one for new sessions, and writes it back to the session before the
// response is sent. It must run inside sess.LoadAndSave.
func LoadTracker(sess *scs.SessionManager, policy adherence.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var t *adherence.Tracker
			if v, ok := sess.Get(r.Context(), sessionKey).(adherence.Tracker); ok {
				t = &v
			} else {
				t = adherence.NewTracker(policy)
			}

			tw := &trackerWriter{ResponseWriter: w, save: func() {
				sess.Put(r.Context(), sessionKey, *t)
			}}
			next.ServeHTTP(tw, r.WithContext(context.WithValue(r.Context(), TrackerKey, t)))
			tw.flush()
		})
	}
}

// trackerWriter saves the tracker on the first write, before scs commits the
// session and sets its cookie
type trackerWriter struct {
	http.ResponseWriter
	save  func()
	saved bool
}

func (tw *trackerWriter) flush() {
	if !tw.saved {
		tw.saved = true
		tw.save()
	}
}

func (tw *trackerWriter) WriteHeader(code int) {
	tw.flush()
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackerWriter) Write(b []byte) (int, error) {
	tw.flush()
	return tw.ResponseWriter.Write(b)
}

func (tw *trackerWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}
