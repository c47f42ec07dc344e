// internal/webhook/server_test.go
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/lector/internal/audio"
	"github.com/user/lector/internal/clock"
	"github.com/user/lector/internal/runner"
	"github.com/user/lector/internal/scheduler"
	"github.com/user/lector/internal/state"
	"github.com/user/lector/internal/timer"
	"github.com/user/lector/internal/types"
)

type stubSpeaker struct{}

func (stubSpeaker) Ping() error                         { return nil }
func (stubSpeaker) Speak(context.Context, string) error { return nil }

type testEnv struct {
	repo *state.SessionStore
	run  *runner.Runner
	srv  *httptest.Server
	done chan runner.Status
}

func newTestEnv(t *testing.T) (*testEnv, *scheduler.Scheduler) {
	t.Helper()
	dir := t.TempDir()
	repo := state.NewSessionStore(dir)
	articles := state.NewArticleStore(dir)
	clk := clock.System()

	hub := runner.NewHub()
	done := make(chan runner.Status, 4)
	hub.OnDone(func(status runner.Status) { done <- status })

	run := runner.New(audio.New(), stubSpeaker{}, articles, nil, hub)
	sched := scheduler.New(repo, timer.New(clk, nil), state.NewAlarmLedger(dir, clk), clk,
		func(params types.StartParams) {
			_ = run.Start(context.Background(), params)
		})

	srv := httptest.NewServer(NewServer(repo, run, sched))
	t.Cleanup(srv.Close)
	return &testEnv{repo: repo, run: run, srv: srv, done: done}, sched
}

func get(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatal(err)
		}
	}
	return resp.StatusCode
}

func post(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestServer_Health(t *testing.T) {
	env, _ := newTestEnv(t)

	var body map[string]string
	if code := get(t, env.srv.URL+"/health", &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body)
	}
}

func TestServer_StatusIdle(t *testing.T) {
	env, _ := newTestEnv(t)

	var snap runner.Snapshot
	if code := get(t, env.srv.URL+"/api/status", &snap); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if snap.Phase != runner.PhaseIdle {
		t.Errorf("expected idle phase, got %s", snap.Phase)
	}
}

func TestServer_SessionsEmpty(t *testing.T) {
	env, _ := newTestEnv(t)

	var sessions []map[string]any
	if code := get(t, env.srv.URL+"/api/sessions", &sessions); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
}

func TestServer_SessionsWithArmedRule(t *testing.T) {
	env, sched := newTestEnv(t)
	ctx := context.Background()

	session := &types.ReadingSession{ID: types.NewSessionID(), Kind: types.KindRepeated, Name: "news"}
	if err := env.repo.Add(ctx, session); err != nil {
		t.Fatal(err)
	}
	rule := &types.SchedulingRule{
		ID:              types.NewRuleID(),
		SessionID:       session.ID,
		Kind:            types.RuleInterval,
		IntervalMinutes: 30,
		Active:          true,
	}
	if err := env.repo.AddRule(ctx, rule); err != nil {
		t.Fatal(err)
	}
	if err := sched.ScheduleRule(rule, session); err != nil {
		t.Fatal(err)
	}

	var sessions []struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		Rules    int      `json:"rules"`
		NextFire []string `json:"next_fire"`
	}
	if code := get(t, env.srv.URL+"/api/sessions", &sessions); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if sessions[0].Rules != 1 {
		t.Errorf("expected 1 rule, got %d", sessions[0].Rules)
	}
	if len(sessions[0].NextFire) != 1 {
		t.Errorf("expected 1 next fire time, got %v", sessions[0].NextFire)
	}
}

func TestServer_StartSession(t *testing.T) {
	env, _ := newTestEnv(t)

	session := &types.ReadingSession{ID: types.NewSessionID(), Kind: types.KindManual, Name: "news"}
	if err := env.repo.Add(context.Background(), session); err != nil {
		t.Fatal(err)
	}

	if code := post(t, env.srv.URL+"/api/sessions/"+string(session.ID)+"/start"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	select {
	case status := <-env.done:
		if status != runner.StatusCompleted {
			t.Errorf("expected completed, got %s", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the session to run")
	}
}

func TestServer_StartUnknownSession(t *testing.T) {
	env, _ := newTestEnv(t)

	if code := post(t, env.srv.URL+"/api/sessions/nope/start"); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestServer_UnknownAction(t *testing.T) {
	env, _ := newTestEnv(t)

	if code := post(t, env.srv.URL+"/api/sessions/abc/bogus"); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
	if code := post(t, env.srv.URL+"/api/sessions/abc"); code != http.StatusNotFound {
		t.Errorf("expected 404 for missing action, got %d", code)
	}
}

func TestServer_PauseResumeStop(t *testing.T) {
	env, _ := newTestEnv(t)

	// No active session; the controls are accepted and do nothing.
	if code := post(t, env.srv.URL+"/api/pause"); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
	if code := post(t, env.srv.URL+"/api/resume"); code != http.StatusOK {
		t.Errorf("expected 200, got %d", code)
	}
}
