// Package gateway is the authenticated, server-push websocket channel that
// tells connected clients about file events.
//
// A client connects to /ws?token=<access token>. Connections without a
// valid access token are closed with code 4001. Anything the client sends
// is read and discarded. A heartbeat pings every connection on a fixed
// interval and terminates the ones that did not answer the previous ping.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/internal/logging"
	"github.com/gorilla/websocket"
)

// CloseUnauthenticated is the close code sent when admission fails.
const CloseUnauthenticated = 4001

const (
	defaultHeartbeat = 30 * time.Second
	writeWait        = 10 * time.Second
	maxInboundBytes  = 4096
)

var (
	// ErrClosed is returned by Broadcast after Close.
	ErrClosed = errors.New("gateway: closed")
)

// Verifier validates an access token without touching the datastore.
// *goShare.Engine satisfies it.
type Verifier interface {
	VerifyAccessToken(token string) (*goShare.Identity, error)
}

// Peer identifies the user behind a connection. Broadcast predicates
// select recipients by it.
type Peer struct {
	UserID string
	Role   goShare.Role
}

// IsAdmin reports whether the peer connected with an admin token.
func (p Peer) IsAdmin() bool { return p.Role == goShare.RoleAdmin }

// Options tunes a Gateway. Zero values select the defaults.
type Options struct {
	Heartbeat   time.Duration
	Logger      logging.Logger
	CheckOrigin func(r *http.Request) bool
}

// Stats is a point-in-time view of the gateway counters.
type Stats struct {
	Live       int
	Accepted   uint64
	Rejected   uint64
	Terminated uint64
	Delivered  uint64
	SendFailed uint64
}

// Gateway owns the registry of live connections.
type Gateway struct {
	verifier  Verifier
	upgrader  websocket.Upgrader
	logger    logging.Logger
	heartbeat time.Duration

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool

	accepted   atomic.Uint64
	rejected   atomic.Uint64
	terminated atomic.Uint64
	delivered  atomic.Uint64
	sendFailed atomic.Uint64
}

type conn struct {
	ws    *websocket.Conn
	peer  Peer
	alive atomic.Bool

	writeMu sync.Mutex
	once    sync.Once
}

// New returns a Gateway admitting connections whose token passes verifier.
func New(verifier Verifier, opts Options) *Gateway {
	g := &Gateway{
		verifier:  verifier,
		logger:    opts.Logger,
		heartbeat: opts.Heartbeat,
		conns:     make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     opts.CheckOrigin,
		},
	}
	if g.logger == nil {
		g.logger = logging.Nop{}
	}
	if g.heartbeat <= 0 {
		g.heartbeat = defaultHeartbeat
	}
	if g.upgrader.CheckOrigin == nil {
		g.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return g
}

// ServeHTTP upgrades the request and blocks until the connection ends.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.isClosed() {
		http.Error(w, "gateway closed", http.StatusServiceUnavailable)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		g.reject(r.Context(), ws, "Authentication required")
		return
	}
	identity, err := g.verifier.VerifyAccessToken(token)
	if err != nil || identity == nil {
		g.reject(r.Context(), ws, "Invalid or expired token")
		return
	}

	c := &conn{ws: ws, peer: Peer{UserID: identity.UserID, Role: identity.Role}}
	c.alive.Store(true)
	if !g.add(c) {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
		return
	}
	g.accepted.Add(1)
	g.logger.Info(r.Context(), "websocket connected", "user_id", c.peer.UserID)

	ws.SetReadLimit(maxInboundBytes)
	ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	hello, _ := json.Marshal(map[string]string{"type": "connected", "userId": c.peer.UserID})
	if err := c.write(hello); err != nil {
		g.drop(c)
		return
	}

	for {
		if _, _, err := ws.NextReader(); err != nil {
			break
		}
	}
	g.drop(c)
	g.logger.Info(r.Context(), "websocket disconnected", "user_id", c.peer.UserID)
}

func (g *Gateway) reject(ctx context.Context, ws *websocket.Conn, reason string) {
	g.rejected.Add(1)
	g.logger.Info(ctx, "websocket rejected", "reason", reason)
	msg := websocket.FormatCloseMessage(CloseUnauthenticated, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = ws.Close()
}

// Broadcast serializes payload once and sends it to every live connection
// whose peer satisfies match (all connections when match is nil). A failed
// send removes that connection only. It returns the number of deliveries.
func (g *Gateway) Broadcast(payload any, match func(Peer) bool) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	if g.isClosed() {
		return 0, ErrClosed
	}

	sent := 0
	for _, c := range g.snapshot() {
		if match != nil && !match(c.peer) {
			continue
		}
		if err := c.write(data); err != nil {
			g.sendFailed.Add(1)
			g.drop(c)
			continue
		}
		sent++
	}
	g.delivered.Add(uint64(sent))
	return sent, nil
}

// Run drives the heartbeat until ctx is cancelled.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

// sweep terminates connections that missed the last ping and pings the rest.
func (g *Gateway) sweep() {
	deadline := time.Now().Add(writeWait)
	for _, c := range g.snapshot() {
		if !c.alive.Swap(false) {
			g.terminated.Add(1)
			g.drop(c)
			continue
		}
		if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			g.drop(c)
		}
	}
}

// Close terminates every connection. Further calls are no-ops.
func (g *Gateway) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	conns := g.conns
	g.conns = make(map[*conn]struct{})
	g.mu.Unlock()

	for c := range conns {
		c.closeWith(websocket.CloseGoingAway, "server shutting down")
	}
}

// Len reports the number of live connections.
func (g *Gateway) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

func (g *Gateway) Stats() Stats {
	return Stats{
		Live:       g.Len(),
		Accepted:   g.accepted.Load(),
		Rejected:   g.rejected.Load(),
		Terminated: g.terminated.Load(),
		Delivered:  g.delivered.Load(),
		SendFailed: g.sendFailed.Load(),
	}
}

/*
====================================
REGISTRY
====================================
*/

func (g *Gateway) add(c *conn) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.conns[c] = struct{}{}
	return true
}

func (g *Gateway) drop(c *conn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
	c.terminate()
}

func (g *Gateway) snapshot() []*conn {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*conn, 0, len(g.conns))
	for c := range g.conns {
		out = append(out, c)
	}
	return out
}

func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

/*
====================================
CONNECTION
====================================
*/

func (c *conn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *conn) closeWith(code int, reason string) {
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	c.terminate()
}

func (c *conn) terminate() {
	c.once.Do(func() { _ = c.ws.Close() })
}
