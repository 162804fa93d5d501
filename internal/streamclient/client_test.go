package streamclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type recordingHandler struct {
	tasks    chan TaskEvent
	cards    chan CardEvent
	previews chan PreviewUpdateEvent
	plans    chan PlanUpdateEvent
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		tasks:    make(chan TaskEvent, 16),
		cards:    make(chan CardEvent, 16),
		previews: make(chan PreviewUpdateEvent, 16),
		plans:    make(chan PlanUpdateEvent, 16),
	}
}

func (h *recordingHandler) HandleTaskEvent(evt TaskEvent)            { h.tasks <- evt }
func (h *recordingHandler) HandleCardEvent(evt CardEvent)            { h.cards <- evt }
func (h *recordingHandler) HandlePreviewUpdate(evt PreviewUpdateEvent) { h.previews <- evt }
func (h *recordingHandler) HandlePlanUpdate(evt PlanUpdateEvent)     { h.plans <- evt }

// sseServer streams the given frames and then blocks until the request is
// cancelled, like a real push stream that stays open.
func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer does not support flushing")
			return
		}
		for _, f := range frames {
			if _, err := w.Write([]byte(f)); err != nil {
				return
			}
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
}

func waitTask(t *testing.T, ch chan TaskEvent) TaskEvent {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for task event")
		return TaskEvent{}
	}
}

func TestDispatchesNamedEvents(t *testing.T) {
	srv := sseServer(t, []string{
		"event: task\ndata: {\"id\":\"t1\",\"type\":\"task_started\",\"status\":\"running\",\"session_id\":\"b1\"}\n\n",
		": keep-alive\n\n",
		"event: card\ndata: {\"type\":\"page\",\"session_id\":\"b1\"}\n\n",
		"event: preview_update\ndata: {\"page_id\":\"p1\"}\n\n",
		"event: plan_update\ndata: {\"id\":\"pl1\",\"status\":\"running\"}\n\n",
		"event: shiny_new_thing\ndata: {}\n\n",
		"event: task\ndata: {\"id\":\"t2\",\"type\":\"task_started\",\"session_id\":\"b1\"}\n\n",
	})
	defer srv.Close()

	h := newRecordingHandler()
	c := New(h)
	defer c.Close()

	if err := c.Open(context.Background(), OpenRequest{BuildID: "b1", URL: srv.URL}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	evt := waitTask(t, h.tasks)
	if evt.ID != "t1" || evt.Status != "running" {
		t.Fatalf("unexpected task event: %+v", evt)
	}
	card := <-h.cards
	if card.Type != "page" {
		t.Fatalf("unexpected card event: %+v", card)
	}
	preview := <-h.previews
	if preview.PageID != "p1" {
		t.Fatalf("unexpected preview event: %+v", preview)
	}
	plan := <-h.plans
	if plan.ID != "pl1" {
		t.Fatalf("unexpected plan event: %+v", plan)
	}
	// the unknown event is skipped; the next task still arrives
	evt = waitTask(t, h.tasks)
	if evt.ID != "t2" {
		t.Fatalf("expected t2 after unknown event, got %+v", evt)
	}
}

func TestMultiLineDataFrames(t *testing.T) {
	srv := sseServer(t, []string{
		"event: task\ndata: {\"id\":\"t1\",\ndata: \"type\":\"task_started\",\"session_id\":\"b1\"}\n\n",
	})
	defer srv.Close()

	h := newRecordingHandler()
	c := New(h)
	defer c.Close()

	if err := c.Open(context.Background(), OpenRequest{BuildID: "b1", URL: srv.URL}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	evt := waitTask(t, h.tasks)
	if evt.ID != "t1" {
		t.Fatalf("multi-line data not joined: %+v", evt)
	}
}

func TestOpenSecondBuildRejected(t *testing.T) {
	srv := sseServer(t, nil)
	defer srv.Close()

	c := New(newRecordingHandler())
	defer c.Close()

	if err := c.Open(context.Background(), OpenRequest{BuildID: "b1", URL: srv.URL}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c.Open(context.Background(), OpenRequest{BuildID: "b1", URL: srv.URL}); err != nil {
		t.Fatalf("reopening the same build should be a no-op, got %v", err)
	}
	if err := c.Open(context.Background(), OpenRequest{BuildID: "b2", URL: srv.URL}); err != ErrStreamOpen {
		t.Fatalf("err = %v, want ErrStreamOpen", err)
	}

	c.Close()
	if err := c.Open(context.Background(), OpenRequest{BuildID: "b2", URL: srv.URL}); err != nil {
		t.Fatalf("open after close should succeed: %v", err)
	}
}

func TestResumeHealthTransition(t *testing.T) {
	srv := sseServer(t, []string{
		"event: task\ndata: {\"id\":\"t1\",\"type\":\"task_started\",\"session_id\":\"b1\"}\n\n",
	})
	defer srv.Close()

	h := newRecordingHandler()
	healthCh := make(chan Health, 8)
	c := New(h, WithHealthFunc(func(hs Health, _ string) { healthCh <- hs }))
	defer c.Close()

	if err := c.Open(context.Background(), OpenRequest{BuildID: "b1", URL: srv.URL, Resume: true}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if got := <-healthCh; got != HealthReconnecting {
		t.Fatalf("first health = %s, want reconnecting", got)
	}
	waitTask(t, h.tasks)
	if got := <-healthCh; got != HealthConnected {
		t.Fatalf("health after first event = %s, want connected", got)
	}
}

func TestServerErrorStatusSetsHealthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"not_found","message":"no such build"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(newRecordingHandler())
	if err := c.Open(context.Background(), OpenRequest{BuildID: "b1", URL: srv.URL}); err != nil {
		t.Fatalf("Open: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		health, msg := c.Health()
		if health == HealthError {
			if msg == "" {
				t.Fatal("expected a recorded error message")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("health never became error, last=%s", health)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestCloseIsIdempotentAndStopsDispatch(t *testing.T) {
	srv := sseServer(t, []string{
		"event: task\ndata: {\"id\":\"t1\",\"type\":\"task_started\",\"session_id\":\"b1\"}\n\n",
	})
	defer srv.Close()

	h := newRecordingHandler()
	c := New(h)
	if err := c.Open(context.Background(), OpenRequest{BuildID: "b1", URL: srv.URL}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitTask(t, h.tasks)

	c.Close()
	c.Close()

	health, _ := c.Health()
	if health != HealthIdle {
		t.Fatalf("health after close = %s, want idle", health)
	}
	if c.BuildID() != "" {
		t.Fatal("BuildID should be empty after close")
	}

	select {
	case evt := <-h.tasks:
		t.Fatalf("event dispatched after close: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}
}
