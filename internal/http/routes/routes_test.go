package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/coachbot/internal/adherence"
	"github.com/briangreenhill/coachbot/internal/jobs"
	"github.com/briangreenhill/coachbot/web"
)

var noon = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: jobs.QueueReminders, Type: task.Type(), NextProcessAt: noon}, nil
}

type testApp struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T, opts ServerOptions) *testApp {
	t.Helper()
	tmpl, err := web.ParseTemplates()
	require.NoError(t, err)

	if opts.Sess == nil {
		opts.Sess = scs.New()
	}
	opts.Tmpl = tmpl
	opts.Logger = zerolog.Nop()
	if opts.Now == nil {
		opts.Now = func() time.Time { return noon }
	}

	s := New(opts)
	srv := httptest.NewServer(s.Sess.LoadAndSave(s.Router))
	t.Cleanup(srv.Close)

	return &testApp{t: t, srv: srv, client: newClient(t)}
}

func newClient(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (a *testApp) do(client *http.Client, method, path string, body io.Reader, contentType string) *http.Response {
	a.t.Helper()
	req, err := http.NewRequest(method, a.srv.URL+path, body)
	require.NoError(a.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	require.NoError(a.t, err)
	a.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (a *testApp) postJSON(path string, v any) *http.Response {
	a.t.Helper()
	b, err := json.Marshal(v)
	require.NoError(a.t, err)
	return a.do(a.client, http.MethodPost, path, bytes.NewReader(b), "application/json")
}

func (a *testApp) postForm(path string, form url.Values) *http.Response {
	a.t.Helper()
	return a.do(a.client, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (a *testApp) get(path string) *http.Response {
	a.t.Helper()
	return a.do(a.client, http.MethodGet, path, nil, "")
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testApp) addMedication(name, clock string) uuid.UUID {
	a.t.Helper()
	resp := a.postJSON("/api/medications", map[string]string{"name": name, "time": clock})
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	return decode[addResponse](a.t, resp).ID
}

func badgeIDs(infos []adherence.BadgeInfo) []adherence.Badge {
	ids := make([]adherence.Badge, 0, len(infos))
	for _, info := range infos {
		ids = append(ids, info.ID)
	}
	return ids
}

func TestMedicationLifecycle(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	resp := app.get("/api/medications")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	empty := decode[medicationsResponse](t, resp)
	assert.Equal(t, 0, empty.Score)
	assert.Equal(t, 0, empty.Streak)
	assert.Empty(t, empty.Entries)

	aspirin := app.addMedication("Aspirin", "09:00")

	resp = app.postJSON("/api/medications/"+aspirin.String()+"/taken", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Taken", decode[map[string]string](t, resp)["status"])

	resp = app.get("/api/medications")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[medicationsResponse](t, resp)
	assert.Equal(t, 100, got.Score)
	assert.Equal(t, 1, got.Streak)
	assert.False(t, got.StreakReset)
	assert.ElementsMatch(t, []adherence.Badge{
		adherence.BadgeFirstStep, adherence.BadgePerfectDay, adherence.BadgeConsistencyKing,
	}, badgeIDs(got.NewBadges))
	assert.ElementsMatch(t, badgeIDs(got.NewBadges), badgeIDs(got.Badges))

	vitamin := app.addMedication("Vitamin D", "18:00")

	resp = app.get("/api/medications")
	got = decode[medicationsResponse](t, resp)
	assert.Equal(t, 50, got.Score)
	assert.Equal(t, 0, got.Streak)
	assert.True(t, got.StreakReset)
	assert.Empty(t, got.NewBadges)
	assert.Len(t, got.Badges, 3, "badges are never revoked")
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "Aspirin", got.Entries[0].Name)
	assert.Equal(t, adherence.StatusTaken, got.Entries[0].Status)
	assert.Equal(t, adherence.StatusUpcoming, got.Entries[1].Status)

	resp = app.get("/api/medications")
	got = decode[medicationsResponse](t, resp)
	assert.False(t, got.StreakReset, "a reset is reported only when a positive streak drops")

	resp = app.do(app.client, http.MethodDelete, "/api/medications/"+vitamin.String(), nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = app.do(app.client, http.MethodDelete, "/api/medications/"+vitamin.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.get("/api/medications")
	got = decode[medicationsResponse](t, resp)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, aspirin, got.Entries[0].ID)
}

func TestAddMedicationValidation(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"blank name", map[string]string{"name": "   ", "time": "09:00"}},
		{"missing time", map[string]string{"name": "Aspirin"}},
		{"bad time", map[string]string{"name": "Aspirin", "time": "9am"}},
		{"bad date", map[string]string{"name": "Aspirin", "time": "09:00", "date": "19/10/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.postJSON("/api/medications", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, decode[errorResponse](t, resp).Error)
		})
	}

	resp := app.do(app.client, http.MethodPost, "/api/medications", strings.NewReader("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.get("/api/medications")
	assert.Empty(t, decode[medicationsResponse](t, resp).Entries, "failed adds leave the store unchanged")
}

func TestUnknownAndMalformedIDs(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	resp := app.postJSON("/api/medications/not-a-uuid/taken", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = app.postJSON("/api/medications/"+uuid.NewString()+"/taken", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.get("/api/medications/" + uuid.NewString() + "/status")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatusAt(t *testing.T) {
	app := newTestApp(t, ServerOptions{})
	id := app.addMedication("Vitamin D", "18:00")

	resp := app.get("/api/medications/" + id.String() + "/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Upcoming", decode[map[string]string](t, resp)["status"])

	resp = app.get("/api/medications/" + id.String() + "/status?at=2026-10-19T18:00:00Z")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Missed", decode[map[string]string](t, resp)["status"])

	resp = app.get("/api/medications/" + id.String() + "/status?at=yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDatedMedication(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	resp := app.postJSON("/api/medications", map[string]string{
		"name": "Antibiotic", "time": "08:00", "date": "2026-10-20",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	got := decode[medicationsResponse](t, app.get("/api/medications"))
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "2026-10-20", got.Entries[0].Date)
	assert.Equal(t, adherence.StatusUpcoming, got.Entries[0].Status, "tomorrow morning is still ahead")
}

func TestSessionsAreIsolated(t *testing.T) {
	app := newTestApp(t, ServerOptions{})
	app.addMedication("Aspirin", "09:00")

	other := newClient(t)
	resp := app.do(other, http.MethodGet, "/api/medications", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[medicationsResponse](t, resp).Entries)

	resp = app.get("/api/medications")
	assert.Len(t, decode[medicationsResponse](t, resp).Entries, 1)
}

func TestOncePerDayPolicy(t *testing.T) {
	app := newTestApp(t, ServerOptions{Policy: adherence.OncePerDay})
	id := app.addMedication("Aspirin", "09:00")
	require.Equal(t, http.StatusOK, app.postJSON("/api/medications/"+id.String()+"/taken", nil).StatusCode)

	for i := 0; i < 3; i++ {
		got := decode[medicationsResponse](t, app.get("/api/medications"))
		assert.Equal(t, 1, got.Streak)
	}
}

func TestEveryPassPolicy(t *testing.T) {
	app := newTestApp(t, ServerOptions{})
	id := app.addMedication("Aspirin", "09:00")
	require.Equal(t, http.StatusOK, app.postJSON("/api/medications/"+id.String()+"/taken", nil).StatusCode)

	var got medicationsResponse
	for i := 0; i < 3; i++ {
		got = decode[medicationsResponse](t, app.get("/api/medications"))
	}
	assert.Equal(t, 3, got.Streak)
	assert.Contains(t, badgeIDs(got.Badges), adherence.BadgeThreeDayStreak)
}

func TestDashboardFormFlow(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	resp := app.postForm("/api/medications", url.Values{
		"name": {"Aspirin"}, "time": {"09:00"}, "redirect": {"/"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = app.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	page, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Aspirin")
	assert.Contains(t, string(page), "Missed")

	got := decode[medicationsResponse](t, app.get("/api/medications"))
	require.Len(t, got.Entries, 1)
	id := got.Entries[0].ID.String()

	resp = app.postForm("/api/medications/"+id+"/taken", url.Values{"redirect": {"/"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp = app.get("/")
	page, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(page), "Badge unlocked: First Step")

	resp = app.postForm("/api/medications/"+id+"/delete", url.Values{"redirect": {"/"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Empty(t, decode[medicationsResponse](t, app.get("/api/medications")).Entries)
}

func TestRedirectMustBeLocal(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	for _, target := range []string{
		"//evil.example",
		`/\evil.example`,
		`\\evil.example`,
		`/\/evil.example`,
		"https://evil.example/",
		"/\t/evil.example",
	} {
		t.Run(target, func(t *testing.T) {
			resp := app.postForm("/api/medications", url.Values{
				"name": {"Aspirin"}, "time": {"09:00"}, "redirect": {target},
			})
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Empty(t, resp.Header.Get("Location"))
		})
	}

	resp := app.postForm("/api/medications", url.Values{
		"name": {"Aspirin"}, "time": {"09:00"}, "redirect": {"/?tab=meds"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/?tab=meds", resp.Header.Get("Location"))
}

func TestLocalRedirect(t *testing.T) {
	assert.Equal(t, "/", localRedirect("/"))
	assert.Equal(t, "/api/medications", localRedirect("/api/medications"))
	assert.Empty(t, localRedirect(""))
	assert.Empty(t, localRedirect("//evil.example"))
	assert.Empty(t, localRedirect(`/\evil.example`))
	assert.Empty(t, localRedirect(`/\\evil.example`))
	assert.Empty(t, localRedirect("evil.example"))
}

func TestOversizedBodyRejected(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	big := strings.Repeat("a", maxBodyBytes+1)
	resp := app.postJSON("/api/medications", map[string]string{"name": big, "time": "09:00"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = app.postForm("/api/coach/assistant", url.Values{"question": {big}})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	assert.Empty(t, decode[medicationsResponse](t, app.get("/api/medications")).Entries)
}

func TestReportCSV(t *testing.T) {
	app := newTestApp(t, ServerOptions{})
	id := app.addMedication("Aspirin", "09:00")
	app.addMedication("Vitamin D", "18:00")
	require.Equal(t, http.StatusOK, app.postJSON("/api/medications/"+id.String()+"/taken", nil).StatusCode)

	resp := app.get("/api/report.csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "medtimer_report.csv")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Medicine,Scheduled Time,Status,Taken\n"+
		"Aspirin,09:00,Taken,Yes\n"+
		"Vitamin D,18:00,Upcoming,No\n", string(body))
}

func TestReminderScheduling(t *testing.T) {
	q := &fakeQueue{}
	app := newTestApp(t, ServerOptions{Queue: q, ReminderLead: 15 * time.Minute})

	resp := app.postJSON("/api/medications", map[string]string{
		"name": "Vitamin D", "time": "18:00", "reminder_email": "pat@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, decode[addResponse](t, resp).ReminderScheduled)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, jobs.TaskDoseReminder, q.tasks[0].Type())
	var p jobs.DoseReminderPayload
	require.NoError(t, json.Unmarshal(q.tasks[0].Payload(), &p))
	assert.Equal(t, "pat@example.com", p.Recipient)
	assert.Equal(t, "Vitamin D", p.Name)
	assert.Equal(t, "18:00", p.Scheduled)

	resp = app.postJSON("/api/medications", map[string]string{"name": "Aspirin", "time": "09:00"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, decode[addResponse](t, resp).ReminderScheduled, "no email means no reminder")
	assert.Len(t, q.tasks, 1)
}

func TestReminderQueueFailureKeepsEntry(t *testing.T) {
	q := &fakeQueue{err: errors.New("redis: connection refused")}
	app := newTestApp(t, ServerOptions{Queue: q})

	resp := app.postJSON("/api/medications", map[string]string{
		"name": "Vitamin D", "time": "18:00", "reminder_email": "pat@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, decode[addResponse](t, resp).ReminderScheduled)
	assert.Len(t, decode[medicationsResponse](t, app.get("/api/medications")).Entries, 1)
}

func TestCoachEndpoints(t *testing.T) {
	app := newTestApp(t, ServerOptions{})

	tests := []struct {
		name     string
		path     string
		body     map[string]string
		status   int
		contains string
	}{
		{"plan", "/api/coach/plan", map[string]string{"position": "Forward", "level": "Beginner", "injury": "hamstring"}, http.StatusOK, "Avoid overload due to hamstring."},
		{"plan without injury", "/api/coach/plan", map[string]string{"position": "Goalkeeper", "level": "Advanced"}, http.StatusOK, "No injury restrictions."},
		{"plan unknown position", "/api/coach/plan", map[string]string{"position": "Striker", "level": "Beginner"}, http.StatusBadRequest, ""},
		{"injury", "/api/coach/injury", map[string]string{"description": "sore ankle"}, http.StatusOK, ""},
		{"injury empty", "/api/coach/injury", map[string]string{"description": " "}, http.StatusBadRequest, ""},
		{"recovery", "/api/coach/recovery", map[string]string{"focus": "Muscle Soreness"}, http.StatusOK, "Muscle Soreness"},
		{"strategy", "/api/coach/strategy", map[string]string{"style": "Low Block"}, http.StatusOK, "Low Block"},
		{"strategy unknown", "/api/coach/strategy", map[string]string{"style": "Park the bus"}, http.StatusBadRequest, ""},
		{"assistant", "/api/coach/assistant", map[string]string{"question": "How do I get faster?"}, http.StatusOK, "Focus on consistency"},
		{"assistant empty", "/api/coach/assistant", map[string]string{}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := app.postJSON(tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusOK {
				return
			}
			md := decode[markdownResponse](t, resp).Markdown
			assert.NotEmpty(t, md)
			assert.Contains(t, md, tt.contains)
		})
	}
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, ServerOptions{})
	resp := app.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	down := newTestApp(t, ServerOptions{Ready: func(context.Context) error {
		return errors.New("redis unreachable")
	}})
	assert.Equal(t, http.StatusServiceUnavailable, down.get("/healthz").StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, ServerOptions{})
	app.addMedication("Aspirin", "09:00")

	resp := app.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "coachbot_entry_actions_total")
	assert.Contains(t, string(body), "coachbot_http_request_duration_seconds")
}
