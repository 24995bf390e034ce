package infra

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type countingHandler struct {
	url string
}

func (h *countingHandler) GetURL() string { return h.url }

func (h *countingHandler) OnConnect(ctx context.Context, c *websocket.Conn) error { return nil }

func (h *countingHandler) OnMessage(ctx context.Context, msg []byte) {}

func (h *countingHandler) OnPing(ctx context.Context, c *websocket.Conn) error { return nil }

func (h *countingHandler) ID() string { return "COUNTING" }

// A server that accepts the handshake and immediately hangs up must not be
// redialed in a tight loop: dropped sessions are paced like failed dials.
func TestWorkerBacksOffAfterDroppedSession(t *testing.T) {
	saved := wsReconnectBackoff
	wsReconnectBackoff = BackoffPolicy{Initial: time.Minute, Factor: 2, Cap: time.Minute}
	defer func() { wsReconnectBackoff = saved }()

	var dials int64
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt64(&dials, 1)
		conn.Close()
	}))
	defer srv.Close()

	worker := NewBaseWSWorker(&countingHandler{url: strings.Replace(srv.URL, "http://", "ws://", 1)})
	worker.PingInterval = 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)
	defer worker.Stop()

	time.Sleep(300 * time.Millisecond)
	if n := atomic.LoadInt64(&dials); n != 1 {
		t.Fatalf("expected a single dial before the backoff elapses, got %d", n)
	}
}
