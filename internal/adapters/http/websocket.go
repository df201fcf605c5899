package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/rihla/internal/core/domain"
	"github.com/samirrijal/rihla/internal/core/usecases"
	"github.com/samirrijal/rihla/internal/pkg/metrics"
)

const sessionLocal = "session"

// wsFrame is sent from server to client.
type wsFrame struct {
	Type string      `json:"type"` // "snapshot" | "event" | "notification" | "closed"
	Data interface{} `json:"data,omitempty"`
}

// SessionUpgradeHandler rejects non-WebSocket requests and unknown
// sessions before the upgrade so clients get a normal HTTP error.
func SessionUpgradeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		s, err := lookupSession(c, deps)
		if err != nil {
			return errFrom(c, err)
		}
		c.Locals(sessionLocal, s)
		return c.Next()
	}
}

// SessionStreamHandler pushes a session's booking events to the client,
// plus its notifications when a relay is configured. The first frame is
// the current snapshot. The stream ends when the session is disposed.
func SessionStreamHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		s, ok := c.Locals(sessionLocal).(*usecases.Session)
		if !ok {
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("session_id", s.ID(), "remote", c.RemoteAddr().String())
		log.Debug("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		events, stop := s.Subscribe()
		defer stop()

		if deps.Relay != nil {
			cancel, err := deps.Relay.SubscribeNotifications(s.ID(), func(n domain.Notification) {
				_ = writeJSON(wsFrame{Type: "notification", Data: n})
			})
			if err != nil {
				log.Warn("notification relay unavailable", "error", err)
			} else {
				defer cancel()
			}
		}

		if err := writeJSON(wsFrame{Type: "snapshot", Data: s.Snapshot()}); err != nil {
			return
		}

		// Client frames are ignored; reading detects the close.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					_ = writeJSON(wsFrame{Type: "closed"})
					log.Debug("session closed, ending stream")
					return
				}
				if err := writeJSON(wsFrame{Type: "event", Data: ev}); err != nil {
					return
				}
			case <-ticker.C:
				mu.Lock()
				err := c.WriteMessage(websocket.PingMessage, nil)
				mu.Unlock()
				if err != nil {
					return
				}
			case <-done:
				log.Debug("ws client disconnected")
				return
			}
		}
	}
}
