// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"openhush/internal/signaltest"
)

type frame struct {
	RMSDb float32 `json:"rms_db"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	a, b := dial(t, srv), dial(t, srv)
	waitFor(t, func() bool { return wst.Clients() == 2 })

	if err := wst.Send(frame{RMSDb: -18}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got frame
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if got.RMSDb != -18 {
			t.Errorf("RMSDb = %f, want -18", got.RMSDb)
		}
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return wst.Clients() == 1 })
	conn.Close()
	waitFor(t, func() bool { return wst.Clients() == 0 })
}

func TestWebSocketExtraRoute(t *testing.T) {
	wst := NewWebSocketTransport("", Route{
		Pattern: "/metrics",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
	}, Route{Pattern: "/nil"})
	defer wst.Close()

	rec := httptest.NewRecorder()
	wst.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Body.String() != "ok" {
		t.Errorf("/metrics body = %q, want ok", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	wst.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/nil", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/nil status = %d, want 404", rec.Code)
	}
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst := NewWebSocketTransport("")
	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := wst.Send(1); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Send() after Close error = %v, want net.ErrClosed", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWebSocketStartBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	wst := NewWebSocketTransport(ln.Addr().String())
	defer wst.Close()
	if err := wst.Start(); err == nil {
		t.Error("Start() on a bound port succeeded")
	}
}

func TestMulti(t *testing.T) {
	a, b := &signaltest.MockTransport{}, &signaltest.MockTransport{}
	m := Multi{a, b}
	if err := m.Send("hello"); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	for _, mt := range []*signaltest.MockTransport{a, b} {
		if msgs := mt.Messages(); len(msgs) != 1 || msgs[0] != "hello" {
			t.Errorf("messages = %v", msgs)
		}
		if !mt.Closed() {
			t.Error("not closed")
		}
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	if err := lt.Send(frame{RMSDb: -3}); err != nil {
		t.Errorf("Send() error = %v", err)
	}
	if err := lt.Send(func() {}); err != nil {
		t.Errorf("Send(func) error = %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
