package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tailortalk/tailortalk/internal/dialog"
	"github.com/tailortalk/tailortalk/internal/health"
)

// chatStub records Turn calls and returns canned replies.
type chatStub struct {
	mu        sync.Mutex
	TurnReply dialog.Reply
	TurnErr   error
	EndErr    error
	TurnCalls []turnCall
	EndCalls  []string
}

type turnCall struct {
	SessionID string
	Message   string
}

func (c *chatStub) Turn(_ context.Context, sessionID, message string) (dialog.Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TurnCalls = append(c.TurnCalls, turnCall{SessionID: sessionID, Message: message})
	return c.TurnReply, c.TurnErr
}

func (c *chatStub) EndSession(_ context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.EndCalls = append(c.EndCalls, sessionID)
	return c.EndErr
}

func (c *chatStub) calls() []turnCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]turnCall(nil), c.TurnCalls...)
}

func newTestServer(t *testing.T, chat Chat) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(chat).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, srv *httptest.Server, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST /api/chat: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestChatEndpoint(t *testing.T) {
	t.Parallel()
	chat := &chatStub{TurnReply: dialog.Reply{Text: "Done! Dentist is booked for Tuesday, March 3 at 2:00 PM."}}
	srv := newTestServer(t, chat)

	resp := postChat(t, srv, chatRequest{SessionID: "s1", Message: "book a dentist tomorrow at 2pm"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Reply != chat.TurnReply.Text {
		t.Errorf("reply = %q, want %q", out.Reply, chat.TurnReply.Text)
	}
	if out.Degraded {
		t.Error("degraded should be false")
	}

	calls := chat.calls()
	if len(calls) != 1 {
		t.Fatalf("Turn calls = %d, want 1", len(calls))
	}
	if calls[0].SessionID != "s1" || calls[0].Message != "book a dentist tomorrow at 2pm" {
		t.Errorf("unexpected call: %+v", calls[0])
	}
}

func TestChatEndpoint_DegradedFlag(t *testing.T) {
	t.Parallel()
	chat := &chatStub{TurnReply: dialog.Reply{Text: "ok", Degraded: true}}
	srv := newTestServer(t, chat)

	resp := postChat(t, srv, chatRequest{SessionID: "s1", Message: "cancel my appointment"})
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Degraded {
		t.Error("degraded flag should pass through")
	}
}

func TestChatEndpoint_MissingFields(t *testing.T) {
	t.Parallel()
	chat := &chatStub{}
	srv := newTestServer(t, chat)

	resp := postChat(t, srv, chatRequest{Message: "no session"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if len(chat.calls()) != 0 {
		t.Error("Turn should not be called for invalid requests")
	}
}

func TestChatEndpoint_InvalidJSON(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &chatStub{})

	resp, err := http.Post(srv.URL+"/api/chat", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChatEndpoint_TurnError(t *testing.T) {
	t.Parallel()
	chat := &chatStub{TurnErr: errors.New("store boom")}
	srv := newTestServer(t, chat)

	resp := postChat(t, srv, chatRequest{SessionID: "s1", Message: "hi"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestEndSessionEndpoint(t *testing.T) {
	t.Parallel()
	chat := &chatStub{}
	srv := newTestServer(t, chat)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/s42", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}

	chat.mu.Lock()
	defer chat.mu.Unlock()
	if len(chat.EndCalls) != 1 || chat.EndCalls[0] != "s42" {
		t.Errorf("EndSession calls = %v, want [s42]", chat.EndCalls)
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	failing := health.New(health.Checker{
		Name:  "database",
		Check: func(context.Context) error { return errors.New("down") },
	})
	srv := httptest.NewServer(New(&chatStub{}, WithHealth(failing)).Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("/readyz status = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &chatStub{})

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestWebsocketChat(t *testing.T) {
	t.Parallel()
	chat := &chatStub{TurnReply: dialog.Reply{Text: "What date and time would you like?"}}
	srv := newTestServer(t, chat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/api/chat/ws?session=ws-1", nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, chatRequest{Message: "book a meeting"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var out chatResponse
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Reply != chat.TurnReply.Text {
		t.Errorf("reply = %q, want %q", out.Reply, chat.TurnReply.Text)
	}

	calls := chat.calls()
	if len(calls) != 1 {
		t.Fatalf("Turn calls = %d, want 1", len(calls))
	}
	if calls[0].SessionID != "ws-1" {
		t.Errorf("session id = %q, want ws-1 (from query parameter)", calls[0].SessionID)
	}
}

func TestWebsocketChat_FrameSessionOverridesQuery(t *testing.T) {
	t.Parallel()
	chat := &chatStub{TurnReply: dialog.Reply{Text: "ok"}}
	srv := newTestServer(t, chat)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+srv.URL[len("http"):]+"/api/chat/ws?session=ws-1", nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, chatRequest{SessionID: "ws-override", Message: "hi"}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	var out chatResponse
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read frame: %v", err)
	}

	calls := chat.calls()
	if len(calls) != 1 || calls[0].SessionID != "ws-override" {
		t.Errorf("calls = %+v, want one call with session ws-override", calls)
	}
}
