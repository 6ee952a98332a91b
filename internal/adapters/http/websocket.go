package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/geoanchor/internal/adapters/nats"
	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to session events.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Event  string `json:"event"`  // session event type, "" = all
}

var wsEventTypes = map[string]domain.SessionEventType{
	string(domain.EventEnabled):        domain.EventEnabled,
	string(domain.EventDisabled):       domain.EventDisabled,
	string(domain.EventClassification): domain.EventClassification,
	string(domain.EventAnchorPlaced):   domain.EventAnchorPlaced,
	string(domain.EventAnchorReplayed): domain.EventAnchorReplayed,
	string(domain.EventAnchorFailed):   domain.EventAnchorFailed,
	string(domain.EventAnchorsCleared): domain.EventAnchorsCleared,
	string(domain.EventTerminating):    domain.EventTerminating,
}

// wsSubject maps a requested event type to its NATS subject.
func wsSubject(event string) (string, bool) {
	if event == "" {
		return natsadapter.SubjectAll, true
	}
	t, ok := wsEventTypes[event]
	if !ok {
		return "", false
	}
	return natsadapter.Subject(t), true
}

// unsubscriber is satisfied by *nats.Subscription.
type unsubscriber interface {
	Unsubscribe() error
}

// subscriptionSet tracks one client's subjects. The all-events subject and
// per-event subjects are mutually exclusive so no event is delivered twice.
type subscriptionSet struct {
	subscribe func(subject string) (unsubscriber, error)
	subs      map[string]unsubscriber
}

func newSubscriptionSet(subscribe func(subject string) (unsubscriber, error)) *subscriptionSet {
	return &subscriptionSet{subscribe: subscribe, subs: make(map[string]unsubscriber)}
}

// add subscribes to subject, replacing whatever overlaps it: the all-events
// subscription when narrowing to one event, every per-event one when widening.
// It returns false when subject was already active.
func (s *subscriptionSet) add(subject string) (bool, error) {
	if _, ok := s.subs[subject]; ok {
		return false, nil
	}
	sub, err := s.subscribe(subject)
	if err != nil {
		return false, err
	}
	for existing, old := range s.subs {
		if subject == natsadapter.SubjectAll || existing == natsadapter.SubjectAll {
			_ = old.Unsubscribe()
			delete(s.subs, existing)
		}
	}
	s.subs[subject] = sub
	return true, nil
}

// remove drops subject, returning false when it was not active.
func (s *subscriptionSet) remove(subject string) bool {
	sub, ok := s.subs[subject]
	if !ok {
		return false
	}
	_ = sub.Unsubscribe()
	delete(s.subs, subject)
	return true
}

func (s *subscriptionSet) active() []string {
	out := make([]string, 0, len(s.subs))
	for subject := range s.subs {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

func (s *subscriptionSet) close() {
	for subject, sub := range s.subs {
		_ = sub.Unsubscribe()
		delete(s.subs, subject)
	}
}

// WebSocketHandler returns a handler that upgrades to WebSocket
// and relays session events from NATS to connected clients.
// Clients send JSON: {"action":"subscribe","event":"anchor_placed"}
// Every client starts on all events; subscribing to one event narrows the feed
// and subscribing to "" widens it back.
func WebSocketHandler(nc *nats.Conn, logger *slog.Logger) func(*websocket.Conn) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *websocket.Conn) {
		defer c.Close()

		log := logger.With("remote", c.RemoteAddr().String())
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

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
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := newSubscriptionSet(func(subject string) (unsubscriber, error) {
			return nc.Subscribe(subject, relay)
		})
		defer subs.close()

		if _, err := subs.add(natsadapter.SubjectAll); err != nil {
			log.Error("ws default subscribe", "error", err)
			return
		}

		// Keep-alive ping
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := wsSubject(m.Event)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown event: " + m.Event})
				continue
			}

			switch m.Action {
			case "subscribe":
				added, err := subs.add(subject)
				switch {
				case err != nil:
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
				case !added:
					_ = writeJSON(map[string]any{"status": "already subscribed", "subjects": subs.active()})
				default:
					_ = writeJSON(map[string]any{"status": "subscribed", "subjects": subs.active()})
				}

			case "unsubscribe":
				if subs.remove(subject) {
					_ = writeJSON(map[string]any{"status": "unsubscribed", "subjects": subs.active()})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		log.Info("ws client disconnected")
	}
}
