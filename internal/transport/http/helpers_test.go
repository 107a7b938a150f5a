package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/driftchat/driftchat-server/internal/auth"
	"github.com/driftchat/driftchat-server/internal/config"
	"github.com/driftchat/driftchat-server/internal/core"
	"github.com/driftchat/driftchat-server/internal/proto"
	"github.com/driftchat/driftchat-server/internal/store"
	"github.com/driftchat/driftchat-server/internal/store/sqlite"
)

type testServer struct {
	ts   *httptest.Server
	st   *sqlite.SQLiteStore
	auth *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	return newTestServerCfg(t, cfg)
}

func newTestServerCfg(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	})

	hub := core.NewHub(st, &logger, cfg.HistoryLimit)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	srv := NewServer(hub, authService, st, cfg, &logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, st: st, auth: authService}
}

// doJSON performs a JSON request against the test server and decodes the
// response body into out (when out is non-nil). Returns the status code.
func (s *testServer) doJSON(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}

	req, err := http.NewRequest(method, s.ts.URL+path, &reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

// register creates a user through the API and returns its token.
func (s *testServer) register(t *testing.T, username, password string) string {
	t.Helper()

	var resp AuthResponse
	status := s.doJSON(t, http.MethodPost, "/api/register", "", RegisterRequest{Username: username, Password: password}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, status)
	}
	return resp.Token
}

// befriend wires an accepted friendship directly through the store.
func (s *testServer) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()

	userA, err := s.st.GetUserByUsername(ctx, a)
	if err != nil {
		t.Fatalf("lookup %s: %v", a, err)
	}
	userB, err := s.st.GetUserByUsername(ctx, b)
	if err != nil {
		t.Fatalf("lookup %s: %v", b, err)
	}
	if _, err := s.st.CreateFriendRequest(ctx, userA.ID, userB.ID); err != nil {
		t.Fatalf("create request: %v", err)
	}
	if err := s.st.UpdateFriendStatus(ctx, userA.ID, userB.ID, store.FriendStatusAccepted); err != nil {
		t.Fatalf("accept request: %v", err)
	}
}

func (s *testServer) dialWS(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, s.ts.URL+"/ws", nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func wsSend(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType, id string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		raw = encoded
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, ID: id, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// outboundFrame mirrors proto.Outbound with a raw payload so tests can
// decode data per event.
type outboundFrame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func wsRead(t *testing.T, ctx context.Context, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var frame outboundFrame
	if err := wsjson.Read(ctx, conn, &frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// awaitEvent reads frames until one with the given event name arrives,
// skipping unrelated events. An error frame fails the test.
func awaitEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) outboundFrame {
	t.Helper()

	for {
		frame := wsRead(t, ctx, conn)
		if frame.Type == proto.OutboundTypeError {
			t.Fatalf("unexpected error frame while waiting for %s: %+v", event, frame.Error)
		}
		if frame.Event == event {
			return frame
		}
	}
}

// awaitError reads frames until an error frame arrives.
func awaitError(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	for {
		frame := wsRead(t, ctx, conn)
		if frame.Type == proto.OutboundTypeError {
			return frame.Error
		}
	}
}

// hello announces the identity and waits for the hub to process it, using a
// history request as an ordering barrier.
func hello(t *testing.T, ctx context.Context, conn *websocket.Conn, user, token string) {
	t.Helper()

	wsSend(t, ctx, conn, proto.InboundTypeHello, "", proto.HelloData{User: user, Token: token, Protocol: proto.ProtocolVersion})
	wsSend(t, ctx, conn, proto.InboundTypeHistory, "hello-sync", nil)
	frame := awaitEvent(t, ctx, conn, proto.EventNameHistory)
	if frame.ID != "hello-sync" {
		t.Fatalf("barrier reply has id %q", frame.ID)
	}
}

func decodeData(t *testing.T, frame outboundFrame, out any) {
	t.Helper()

	if err := json.Unmarshal(frame.Data, out); err != nil {
		t.Fatalf("decode %s payload: %v", frame.Event, err)
	}
}

func testCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
