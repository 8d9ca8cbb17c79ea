// Clash: real-time rock-paper-scissors between two invited players.
//
// The websocket gateway here owns connections and identities; all match
// and round logic lives in games/rps.
//
// Features:
// - One websocket per browser tab at $path/ws, identified by ?name= or the player cookie
// - A user stays online while any of their tabs is connected
// - Invitations, accept/reject, room join, moves and leave as JSON messages
// - Every engine error goes back to the originating tab only as an "error" message
// - Closing a tab closes the rooms it joined; closing the last tab also closes
//   every room the user is seated in and cancels their invitations
// - Expired invitations and idle rooms are reaped in the background
// - In-browser QR button to share the lobby, backed by go-qrcode

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/clash/games/rps"
)

const (
	maxMessageSize = 4096
	sendBuffer     = 32
)

var errMalformed = errors.New("malformed message")

// WelcomeMessage is sent immediately on connect so the client knows who it is.
type WelcomeMessage struct {
	Type string `json:"type"` // "welcome"
	User string `json:"user"`
}

// StatusMessage is served at $path/status.
type StatusMessage struct {
	Online  int `json:"online"`
	Rooms   int `json:"rooms"`
	Pending int `json:"pending"`
}

type Client struct {
	id   string
	conn *websocket.Conn
	send chan any
	user string

	// rooms joined through this connection; only touched by readPump
	rooms []*rps.Session
}

// Gateway tracks live connections per user. It is the engine's Notifier
// and Presence.
type Gateway struct {
	cfg *Config

	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func newGateway(cfg *Config) *Gateway {
	return &Gateway{
		cfg:     cfg,
		clients: make(map[string]map[*Client]bool),
	}
}

func (g *Gateway) Online(user string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.clients[user]) > 0
}

// Notify queues msg for every connection of user without blocking.
func (g *Gateway) Notify(user string, msg any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for c := range g.clients[user] {
		g.sendLocked(c, msg)
	}
}

// reply queues msg for a single connection.
func (g *Gateway) reply(c *Client, msg any) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.clients[c.user][c] {
		g.sendLocked(c, msg)
	}
}

// sendLocked drops a connection whose buffer is full rather than wait on it.
func (g *Gateway) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		g.dropLocked(c)
	}
}

func (g *Gateway) dropLocked(c *Client) {
	conns, ok := g.clients[c.user]
	if !ok || !conns[c] {
		return
	}

	delete(conns, c)
	close(c.send)

	if len(conns) == 0 {
		delete(g.clients, c.user)
	}
}

func (g *Gateway) register(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conns, ok := g.clients[c.user]
	if !ok {
		conns = make(map[*Client]bool)
		g.clients[c.user] = conns
	}
	conns[c] = true

	g.sendLocked(c, WelcomeMessage{
		Type: "welcome",
		User: c.user,
	})

	g.broadcastPresenceLocked()
}

// unregister reports whether c was the user's last connection.
func (g *Gateway) unregister(c *Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dropLocked(c)
	g.broadcastPresenceLocked()

	return len(g.clients[c.user]) == 0
}

func (g *Gateway) broadcastPresenceLocked() {
	users := make([]string, 0, len(g.clients))
	for u := range g.clients {
		users = append(users, u)
	}
	sort.Strings(users)

	msg := rps.OnlineUsersMessage{
		Type:  "online_users",
		Users: users,
	}

	for _, conns := range g.clients {
		for c := range conns {
			g.sendLocked(c, msg)
		}
	}
}

func (g *Gateway) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.clients)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, g *Gateway, engine *rps.Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		user, err := identify(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "ERROR: Upgrade for %q from %s: %v", user, realIP(r), err)
			return
		}

		client := &Client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan any, sendBuffer),
			user: user,
		}

		g.register(client)
		logf(cfg, "SERVE: %q connected from %s (%s)", user, realIP(r), client.id)

		go client.writePump()
		client.readPump(cfg, g, engine)
	}
}

func (c *Client) readPump(cfg *Config, g *Gateway, engine *rps.Engine) {
	defer func() {
		last := g.unregister(c)
		engine.Disconnect(c.user, c.rooms, last)
		_ = c.conn.Close()

		logf(cfg, "SERVE: %q disconnected (%s)", c.user, c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg rps.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			g.reply(c, rps.NewErrorMessage(errMalformed))
			continue
		}

		joined, err := engine.Dispatch(c.user, msg)
		if err != nil {
			logf(cfg, "GAMES: %q %s failed: %v", c.user, msg.Type, err)
			g.reply(c, rps.NewErrorMessage(err))
			continue
		}

		c.rooms = slices.DeleteFunc(c.rooms, func(s *rps.Session) bool {
			return s.State() == rps.Closed || (msg.Type == rps.MsgLeaveRoom && s.ID() == msg.Room)
		})
		if joined != nil && !slices.Contains(c.rooms, joined) {
			c.rooms = append(c.rooms, joined)
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// reaperLoop expires stale invitations and closes idle rooms until ctx ends.
func reaperLoop(ctx context.Context, cfg *Config, engine *rps.Engine) {
	interval := cfg.requestTimeout
	if interval == 0 || (cfg.sessionTimeout > 0 && cfg.sessionTimeout < interval) {
		interval = cfg.sessionTimeout
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var requests, rooms int
			if cfg.sessionTimeout > 0 {
				requests, rooms = engine.Reap(time.Now().Add(-cfg.sessionTimeout))
			} else {
				requests = engine.Requests.Expire()
			}

			if requests > 0 || rooms > 0 {
				logf(cfg, "GAMES: Reaped %d expired requests and %d idle rooms", requests, rooms)
			}
		}
	}
}

func serveStatus(g *Gateway, engine *rps.Engine, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		err := json.NewEncoder(w).Encode(StatusMessage{
			Online:  g.Len(),
			Rooms:   engine.Rooms.Len(),
			Pending: engine.Requests.Len(),
		})
		if err != nil {
			errs <- err
		}
	}
}

// qrHandler generates a PNG QR code pointing at the lobby.
func qrHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := cfg.scheme()
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func serveLobby(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile("assets/rps/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, err = w.Write(data)
		if err != nil {
			errs <- err
		}
	}
}

// registerRPSGame sets up routes so that:
//   - $path          → lobby and game client (HTML)
//   - $path/ws       → websocket for the signed-in user
//   - $path/status   → JSON counts of users, rooms and invitations
//   - $path/qr       → PNG QR code for the lobby URL
func registerRPSGame(ctx context.Context, cfg *Config, path string, mux *httprouter.Router, errs chan<- error) {
	g := newGateway(cfg)

	engine := rps.New(g, g, rps.Options{
		RequestTimeout: cfg.requestTimeout,
		Logf: func(format string, args ...any) {
			logf(cfg, format, args...)
		},
	})

	go reaperLoop(ctx, cfg, engine)

	mux.GET(cfg.prefix+path, serveLobby(cfg, errs))
	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, g, engine))
	mux.GET(cfg.prefix+path+"/status", serveStatus(g, engine, errs))
	mux.GET(cfg.prefix+path+"/qr", qrHandler(cfg))
}
