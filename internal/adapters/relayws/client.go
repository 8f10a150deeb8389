// Package relayws implements core.RelayLink over a gorilla websocket.
package relayws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/signal"
)

var ErrNotConnected = errors.New("relay not connected")

type Client struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn

	onWelcome    func(domain.ParticipantID)
	onRoomState  func([]domain.ParticipantID)
	onUserJoined func(domain.ParticipantID)
	onUserLeft   func(domain.ParticipantID)
	onRelayed    func(string, domain.ParticipantID, json.RawMessage)
	onSpeech     func(signal.Speech)
}

func New(url string) *Client {
	return &Client{url: url}
}

// Run dials the relay and reads frames until ctx is cancelled. A dropped
// connection is redialed with exponential backoff; the relay assigns a fresh
// participant id on every connect, announced through OnWelcome.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
		err := backoff.Retry(func() error {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
			if err != nil {
				log.Warn().Err(err).Str("module", "relayws").Msg("dial failed, will retry")
				return err
			}
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			return nil
		}, bo)
		if err != nil {
			return err
		}

		log.Info().Str("module", "relayws").Str("url", c.url).Msg("connected to relay")
		c.readLoop(ctx)

		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	}
}

func (c *Client) readLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Str("module", "relayws").Msg("read loop closing")
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	kind, err := signal.SniffType(data)
	if err != nil {
		log.Error().Err(err).Str("module", "relayws").Msg("bad frame from relay")
		return
	}

	switch kind {
	case signal.TypeWelcome:
		var p signal.Welcome
		if json.Unmarshal(data, &p) == nil && c.onWelcome != nil {
			c.onWelcome(p.ID)
		}
	case signal.TypeRoomState:
		var p signal.RoomState
		if json.Unmarshal(data, &p) == nil && c.onRoomState != nil {
			c.onRoomState(p.Members)
		}
	case signal.TypeUserJoined:
		var p signal.UserJoined
		if json.Unmarshal(data, &p) == nil && c.onUserJoined != nil {
			c.onUserJoined(p.ID)
		}
	case signal.TypeUserLeft:
		var p signal.UserLeft
		if json.Unmarshal(data, &p) == nil && c.onUserLeft != nil {
			c.onUserLeft(p.ID)
		}
	case signal.TypeOffer, signal.TypeAnswer, signal.TypeCandidate:
		var p signal.Relayed
		if json.Unmarshal(data, &p) == nil && c.onRelayed != nil {
			c.onRelayed(kind, p.From, p.Payload)
		}
	case signal.TypeSpeech:
		var p signal.Speech
		if json.Unmarshal(data, &p) == nil && c.onSpeech != nil {
			c.onSpeech(p)
		}
	case signal.TypeError:
		var p signal.Error
		_ = json.Unmarshal(data, &p)
		log.Warn().Str("module", "relayws").Str("reason", p.Reason).Msg("relay error")
	default:
		log.Warn().Str("module", "relayws").Str("type", kind).Msg("unknown frame type")
	}
}

func (c *Client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, signal.Marshal(v))
}

func (c *Client) SendJoin(room domain.RoomID) error {
	return c.send(signal.Join{Type: signal.TypeJoin, Room: room})
}

func (c *Client) SendLeave() error {
	return c.send(signal.Leave{Type: signal.TypeLeave})
}

func (c *Client) SendRelayed(kind string, to domain.ParticipantID, payload json.RawMessage) error {
	return c.send(signal.Relayed{Type: kind, To: to, Payload: payload})
}

func (c *Client) SendSpeech(msg signal.Speech) error {
	msg.Type = signal.TypeSpeech
	return c.send(msg)
}

func (c *Client) OnWelcome(fn func(domain.ParticipantID))     { c.onWelcome = fn }
func (c *Client) OnRoomState(fn func([]domain.ParticipantID)) { c.onRoomState = fn }
func (c *Client) OnUserJoined(fn func(domain.ParticipantID))  { c.onUserJoined = fn }
func (c *Client) OnUserLeft(fn func(domain.ParticipantID))    { c.onUserLeft = fn }
func (c *Client) OnRelayed(fn func(string, domain.ParticipantID, json.RawMessage)) {
	c.onRelayed = fn
}
func (c *Client) OnSpeech(fn func(signal.Speech)) { c.onSpeech = fn }
