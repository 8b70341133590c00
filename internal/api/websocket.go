package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/tavernlight-core/internal/infrastructure/config"
	"github.com/nerrad567/tavernlight-core/internal/infrastructure/logging"
	"github.com/nerrad567/tavernlight-core/internal/orchestrator"
)

// Session feed message types.
const (
	FeedSubscribe    = "subscribe"   // panel → server: set the filter
	FeedUnsubscribe  = "unsubscribe" // panel → server: stop receiving events
	FeedPing         = "ping"
	FeedPong         = "pong"
	FeedSubscribed   = "subscribed" // server → panel: filter accepted, with a status snapshot
	FeedUnsubscribed = "unsubscribed"
	FeedEvent        = "event"
	FeedError        = "error"

	// FeedAllEvents matches every event type.
	FeedAllEvents = "*"

	feedSendBuffer = 256
)

// feedEventTypes are the event types a filter may name.
var feedEventTypes = []orchestrator.EventType{
	orchestrator.EventSceneStarted,
	orchestrator.EventSceneStopped,
	orchestrator.EventTriggerStarted,
	orchestrator.EventTriggerCompleted,
	orchestrator.EventVolumeChanged,
	orchestrator.EventSessionStopped,
}

// FeedRequest is a message from a panel.
type FeedRequest struct {
	Type   string      `json:"type"`
	ID     string      `json:"id,omitempty"`
	Filter *FeedFilter `json:"filter,omitempty"`
}

// FeedFilter selects the session events a panel receives. Empty fields
// match everything.
type FeedFilter struct {
	// Events lists event types. "scene.*" matches a family, "*" everything.
	Events []string `json:"events,omitempty"`

	// Scene drops events about other scenes. Events about no scene pass.
	Scene string `json:"scene,omitempty"`

	// Trigger drops events about other triggers. Events about no trigger pass.
	Trigger string `json:"trigger,omitempty"`
}

// validate rejects event patterns that can never match.
func (f *FeedFilter) validate() error {
	for _, pattern := range f.Events {
		if pattern == FeedAllEvents {
			continue
		}
		known := slices.ContainsFunc(feedEventTypes, func(t orchestrator.EventType) bool {
			return matchEventType(pattern, t)
		})
		if !known {
			return fmt.Errorf("unknown event type %q", pattern)
		}
	}
	return nil
}

func (f *FeedFilter) matches(ev *orchestrator.Event) bool {
	if f.Scene != "" && ev.SceneID != "" && ev.SceneID != f.Scene {
		return false
	}
	if f.Trigger != "" && ev.TriggerID != "" && ev.TriggerID != f.Trigger {
		return false
	}
	if len(f.Events) == 0 {
		return true
	}
	return slices.ContainsFunc(f.Events, func(p string) bool { return matchEventType(p, ev.Type) })
}

// matchEventType matches "*", an exact type, or a "family.*" prefix.
func matchEventType(pattern string, t orchestrator.EventType) bool {
	if pattern == FeedAllEvents || pattern == string(t) {
		return true
	}
	family, ok := strings.CutSuffix(pattern, ".*")
	return ok && strings.HasPrefix(string(t), family+".")
}

// FeedMessage is a message to a panel.
type FeedMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	// Seq numbers events across the hub. On FeedSubscribed it is the last
	// sequence already sent, so a panel can tell a gap from a fresh start.
	Seq uint64 `json:"seq"`

	Event  *orchestrator.Event  `json:"event,omitempty"`
	Status *orchestrator.Status `json:"status,omitempty"`
	Filter *FeedFilter          `json:"filter,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// Hub pushes session events to connected control panels.
//
// Each panel holds one filter; a panel without a filter receives nothing.
// Slow panels lose events rather than stall the event bus, and the
// sequence numbers show them what they missed.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	status atomic.Pointer[func() orchestrator.Status]
	seq    atomic.Uint64

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

// feedClient is one connected panel.
type feedClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	filter *FeedFilter
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a hub. Call Run to serve it.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*feedClient]struct{}),
	}
}

// SetStatusSource sets the snapshot sent to a panel when it subscribes.
func (h *Hub) SetStatusSource(fn func() orchestrator.Status) {
	h.status.Store(&fn)
}

// Run blocks until ctx is cancelled, then disconnects every panel.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// HandleEvent numbers ev and sends it to every panel whose filter matches.
// It lets the hub sit on the event bus next to the MQTT and telemetry sinks.
func (h *Hub) HandleEvent(ev orchestrator.Event) {
	data, err := json.Marshal(FeedMessage{Type: FeedEvent, Seq: h.seq.Add(1), Event: &ev})
	if err != nil {
		h.logger.Error("failed to marshal session event", "type", ev.Type, "error", err)
		return
	}

	sent := 0
	for _, c := range h.snapshot() {
		if c.wants(&ev) {
			c.trySend(data)
			sent++
		}
	}
	if sent > 0 {
		h.logger.Debug("session event pushed", "type", ev.Type, "panels", sent)
	}
}

// ClientCount returns the number of connected panels.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("panel connected", "panels", n)
}

// unregister removes c. Only the call that removes it closes its send
// channel, so a disconnect racing shutdown cannot close it twice.
func (h *Hub) unregister(c *feedClient) {
	h.mu.Lock()
	_, existed := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if existed {
		close(c.send)
		h.logger.Debug("panel disconnected", "panels", n)
	}
}

// snapshot copies the client set so sends happen without the hub lock.
func (h *Hub) snapshot() []*feedClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*feedClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
}

// handleWebSocket upgrades the request and attaches a panel to the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &feedClient{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
	}
	s.hub.register(c)

	go c.writePump(s.wsCfg)
	go c.readPump(s.wsCfg)
}

// ─── Panel Connection ──────────────────────────────────────────────

func (c *feedClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	idle := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(idle))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idle))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("panel read error", "error", err)
			}
			return
		}
		// Browsers may not answer protocol pings; any message counts.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(idle))
		c.handle(data)
	}
}

func (c *feedClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	writeWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case data, ok := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				//nolint:errcheck // Best-effort close frame
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *feedClient) handle(data []byte) {
	var req FeedRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.reply(FeedMessage{Type: FeedError, Error: "invalid JSON message"})
		return
	}

	switch req.Type {
	case FeedSubscribe:
		c.subscribe(req)
	case FeedUnsubscribe:
		c.setFilter(nil)
		c.reply(FeedMessage{Type: FeedUnsubscribed, ID: req.ID, Seq: c.hub.seq.Load()})
	case FeedPing:
		c.reply(FeedMessage{Type: FeedPong, ID: req.ID, Seq: c.hub.seq.Load()})
	default:
		c.reply(FeedMessage{Type: FeedError, ID: req.ID, Error: "unknown message type: " + req.Type})
	}
}

// subscribe replaces the panel's filter and answers with the session as it
// stands, so the panel can render before the next event arrives.
func (c *feedClient) subscribe(req FeedRequest) {
	filter := req.Filter
	if filter == nil {
		filter = &FeedFilter{}
	}
	if err := filter.validate(); err != nil {
		c.reply(FeedMessage{Type: FeedError, ID: req.ID, Error: err.Error()})
		return
	}
	c.setFilter(filter)

	msg := FeedMessage{Type: FeedSubscribed, ID: req.ID, Filter: filter, Seq: c.hub.seq.Load()}
	if fn := c.hub.status.Load(); fn != nil {
		st := (*fn)()
		msg.Status = &st
	}
	c.hub.logger.Debug("panel subscribed", "events", filter.Events, "scene", filter.Scene, "trigger", filter.Trigger)
	c.reply(msg)
}

func (c *feedClient) setFilter(f *FeedFilter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

func (c *feedClient) wants(ev *orchestrator.Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter != nil && c.filter.matches(ev)
}

func (c *feedClient) reply(msg FeedMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend drops data when the panel's buffer is full or it has already
// been unregistered.
func (c *feedClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
	}
}
