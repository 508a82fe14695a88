package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Gateway opcodes
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opResume         = 6
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatAck   = 11
)

// Gateway intents the engine subscribes to
const (
	intentGuildMessages         = 1 << 9
	intentGuildMessageReactions = 1 << 10
	intentDirectMessages        = 1 << 12
	intentMessageContent        = 1 << 15
)

const gatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// ReactionPayload is a MESSAGE_REACTION_ADD or _REMOVE event
type ReactionPayload struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Emoji     struct {
		Name string `json:"name"`
	} `json:"emoji"`
}

// gatewayPayload is the envelope of every gateway frame
type gatewayPayload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d"`
	Sequence *int64          `json:"s"`
	Type     string          `json:"t"`
}

// Gateway maintains the websocket connection to Discord and dispatches
// message and reaction events to registered handlers.
type Gateway struct {
	token string

	onMessage  func(Message)
	onReaction func(ReactionPayload)

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	resumeURL string
	sequence  int64
	botUserID string
	connected bool
	latency   time.Duration
	lastBeat  time.Time
}

// NewGateway creates a gateway client
func NewGateway(token string) *Gateway {
	return &Gateway{token: token}
}

// OnMessage sets the handler for MESSAGE_CREATE events
func (g *Gateway) OnMessage(fn func(Message)) {
	g.onMessage = fn
}

// OnReaction sets the handler for reaction add/remove events
func (g *Gateway) OnReaction(fn func(ReactionPayload)) {
	g.onReaction = fn
}

// Connected reports whether the gateway session is live
func (g *Gateway) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// Latency returns the last measured heartbeat round trip
func (g *Gateway) Latency() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.latency
}

// BotUserID returns the bot's own user ID once identified
func (g *Gateway) BotUserID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.botUserID
}

// Run connects and processes events until ctx is cancelled, reconnecting
// with a fixed backoff on any session loss.
func (g *Gateway) Run(ctx context.Context) error {
	for {
		if err := g.runSession(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Printf("[Gateway] Session ended: %v, reconnecting in 5s\n", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}

// runSession runs one websocket session to completion
func (g *Gateway) runSession(ctx context.Context) error {
	target := gatewayURL
	g.mu.Lock()
	canResume := g.sessionID != "" && g.resumeURL != ""
	if canResume {
		target = g.resumeURL + "/?v=10&encoding=json"
	}
	g.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to dial gateway: %w", err)
	}
	defer conn.Close()

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.connected = false
		g.conn = nil
		g.mu.Unlock()
	}()

	// First frame must be HELLO
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("failed to read hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.Data, &helloData); err != nil {
		return fmt.Errorf("failed to parse hello: %w", err)
	}

	if canResume {
		err = g.send(opResume, map[string]any{
			"token":      g.token,
			"session_id": g.sessionID,
			"seq":        g.sequence,
		})
	} else {
		err = g.send(opIdentify, map[string]any{
			"token":   g.token,
			"intents": intentGuildMessages | intentGuildMessageReactions | intentDirectMessages | intentMessageContent,
			"properties": map[string]string{
				"os":      "linux",
				"browser": "altiora",
				"device":  "altiora",
			},
		})
	}
	if err != nil {
		return err
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go g.heartbeatLoop(heartbeatCtx, time.Duration(helloData.HeartbeatInterval)*time.Millisecond)

	for {
		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return fmt.Errorf("gateway read failed: %w", err)
		}
		if payload.Sequence != nil {
			g.mu.Lock()
			g.sequence = *payload.Sequence
			g.mu.Unlock()
		}

		switch payload.Op {
		case opDispatch:
			g.handleDispatch(payload)
		case opHeartbeat:
			g.sendHeartbeat()
		case opHeartbeatAck:
			g.mu.Lock()
			g.latency = time.Since(g.lastBeat)
			g.mu.Unlock()
		case opReconnect:
			return fmt.Errorf("server requested reconnect")
		case opInvalidSession:
			g.mu.Lock()
			g.sessionID = ""
			g.resumeURL = ""
			g.mu.Unlock()
			return fmt.Errorf("session invalidated")
		}
	}
}

// handleDispatch routes a dispatch event to its handler
func (g *Gateway) handleDispatch(payload gatewayPayload) {
	switch payload.Type {
	case "READY":
		var ready struct {
			SessionID        string `json:"session_id"`
			ResumeGatewayURL string `json:"resume_gateway_url"`
			User             User   `json:"user"`
		}
		if err := json.Unmarshal(payload.Data, &ready); err != nil {
			fmt.Printf("[Gateway] Failed to parse ready: %v\n", err)
			return
		}
		g.mu.Lock()
		g.sessionID = ready.SessionID
		g.resumeURL = ready.ResumeGatewayURL
		g.botUserID = ready.User.ID
		g.connected = true
		g.mu.Unlock()
		fmt.Printf("[Gateway] Connected as %s\n", ready.User.Username)
	case "RESUMED":
		g.mu.Lock()
		g.connected = true
		g.mu.Unlock()
		fmt.Printf("[Gateway] Session resumed\n")
	case "MESSAGE_CREATE":
		if g.onMessage == nil {
			return
		}
		var msg Message
		if err := json.Unmarshal(payload.Data, &msg); err != nil {
			fmt.Printf("[Gateway] Failed to parse message: %v\n", err)
			return
		}
		g.onMessage(msg)
	case "MESSAGE_REACTION_ADD", "MESSAGE_REACTION_REMOVE":
		if g.onReaction == nil {
			return
		}
		var reaction ReactionPayload
		if err := json.Unmarshal(payload.Data, &reaction); err != nil {
			fmt.Printf("[Gateway] Failed to parse reaction: %v\n", err)
			return
		}
		g.onReaction(reaction)
	}
}

// heartbeatLoop sends heartbeats at the interval the server asked for
func (g *Gateway) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sendHeartbeat()
		}
	}
}

// sendHeartbeat sends one heartbeat frame carrying the last sequence
func (g *Gateway) sendHeartbeat() {
	g.mu.Lock()
	g.lastBeat = time.Now()
	seq := g.sequence
	g.mu.Unlock()
	if err := g.send(opHeartbeat, seq); err != nil {
		fmt.Printf("[Gateway] Heartbeat failed: %v\n", err)
	}
}

// send writes one frame, serialized under the connection lock
func (g *Gateway) send(op int, data any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		return fmt.Errorf("gateway not connected")
	}
	return g.conn.WriteJSON(map[string]any{"op": op, "d": data})
}
