package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"examsight/internal/broadcast"
	"examsight/internal/daemon"
	"examsight/internal/statecache"
	"examsight/internal/supervisor"
)

type stubController struct {
	started  map[string]string
	startErr error
}

func newStubController() *stubController {
	return &stubController{started: make(map[string]string)}
}

func (c *stubController) Start(_ context.Context, name, url string) (bool, error) {
	if c.startErr != nil {
		return false, c.startErr
	}
	if existing, ok := c.started[name]; ok && existing == url {
		return false, nil
	}
	c.started[name] = url
	return true, nil
}

func (c *stubController) Stop(name string) bool {
	if _, ok := c.started[name]; !ok {
		return false
	}
	delete(c.started, name)
	return true
}

func (c *stubController) Statuses() map[string]supervisor.Status {
	out := make(map[string]supervisor.Status, len(c.started))
	for name, url := range c.started {
		out[name] = supervisor.Status{Name: name, URL: url, State: "connected", Connected: true}
	}
	return out
}

func newTestServer(t *testing.T) (*httptest.Server, *stubController, *statecache.Cache, *broadcast.Hub) {
	t.Helper()
	controller := newStubController()
	cache := statecache.New()
	hub := broadcast.NewHub(nil)
	server := daemon.NewServer(controller, cache, hub, nil, nil)
	ts := httptest.NewServer(server.Routes())
	t.Cleanup(ts.Close)
	return ts, controller, cache, hub
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStartStream(t *testing.T) {
	ts, controller, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/streams/exam1/start", `{"source_url":"rtmp://src/exam1"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Started bool `json:"started"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Started {
		t.Fatal("started = false for a new stream")
	}
	if controller.started["exam1"] != "rtmp://src/exam1" {
		t.Fatal("controller did not receive the start")
	}
}

func TestStartStreamWithoutURL(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/streams/exam1/start", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStartStreamBadBody(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/streams/exam1/start", `{not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStopUnknownStream(t *testing.T) {
	ts, _, _, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/streams/ghost/stop", ``)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStopRunningStream(t *testing.T) {
	ts, controller, _, _ := newTestServer(t)
	controller.started["exam1"] = "rtmp://src/exam1"

	resp := postJSON(t, ts.URL+"/api/streams/exam1/stop", ``)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if _, ok := controller.started["exam1"]; ok {
		t.Fatal("stream still registered after stop")
	}
}

func TestListStreams(t *testing.T) {
	ts, controller, _, _ := newTestServer(t)
	controller.started["exam1"] = "rtmp://src/exam1"

	resp, err := http.Get(ts.URL + "/api/streams")
	if err != nil {
		t.Fatalf("GET /api/streams: %v", err)
	}
	defer resp.Body.Close()

	var statuses map[string]supervisor.Status
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		t.Fatalf("decode statuses: %v", err)
	}
	status, ok := statuses["exam1"]
	if !ok {
		t.Fatal("exam1 missing from status map")
	}
	if !status.Connected || status.URL != "rtmp://src/exam1" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestStreamState(t *testing.T) {
	ts, _, cache, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/streams/exam1/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d for unknown stream, want 404", resp.StatusCode)
	}

	cache.Update("exam1", statecache.ModalityHeart, map[string]any{"heart_rate": 72})
	resp, err = http.Get(ts.URL + "/api/streams/exam1/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var entry statecache.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Stream != "exam1" || entry.Version == 0 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestWebSocketPush(t *testing.T) {
	ts, _, _, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?stream=exam1"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Give the server loop a moment to subscribe before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.Publish("exam1", "heart", map[string]any{"heart_rate": 71})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg broadcast.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	if msg.Stream != "exam1" || msg.Modality != "heart" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}
