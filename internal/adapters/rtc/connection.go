// Package rtc implements core.MediaSession on pion/webrtc: one peer
// connection plus one reliable ordered data channel per remote participant.
package rtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
)

var ErrChannelNotOpen = errors.New("data channel not open")

func DefaultWebRTCConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

// Dialer builds pion-backed media sessions.
type Dialer struct {
	LocalID string
	Config  webrtc.Configuration
}

func NewDialer(localID string) *Dialer {
	return &Dialer{LocalID: localID, Config: DefaultWebRTCConfig()}
}

func (d *Dialer) Dial(remote string) (core.MediaSession, error) {
	pc, err := webrtc.NewPeerConnection(d.Config)
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}
	c := &Connection{pc: pc, remote: remote, localID: d.LocalID, trackEnabled: map[string]bool{
		"audio": true,
		"video": true,
	}}
	c.bind()
	return c, nil
}

// Connection is one negotiated pion session.
type Connection struct {
	pc      *webrtc.PeerConnection
	remote  string
	localID string

	mu           sync.Mutex
	channel      *webrtc.DataChannel
	channelOpen  bool
	closed       bool
	trackEnabled map[string]bool

	onCandidate      func(json.RawMessage)
	onChannelOpen    func()
	onChannelMessage func([]byte)
	onClosed         func()
}

func (c *Connection) bind() {
	c.pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil || c.onCandidate == nil {
			return
		}
		payload, err := json.Marshal(cand.ToJSON())
		if err != nil {
			return
		}
		c.onCandidate(payload)
	})

	c.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info().Str("module", "rtc").Str("remote", c.remote).Str("peer_connection_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed || s == webrtc.PeerConnectionStateClosed {
			c.fireClosed()
		}
	})

	// Responder side: the initiator's channel shows up here.
	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Info().Str("module", "rtc").Str("remote", c.remote).Str("label", dc.Label()).Msg("data channel received")
		c.adoptChannel(dc)
	})
}

func (c *Connection) adoptChannel(dc *webrtc.DataChannel) {
	c.mu.Lock()
	c.channel = dc
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.mu.Lock()
		c.channelOpen = true
		c.mu.Unlock()
		if c.onChannelOpen != nil {
			c.onChannelOpen()
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if c.onChannelMessage != nil {
			c.onChannelMessage(msg.Data)
		}
	})
	dc.OnClose(func() {
		log.Info().Str("module", "rtc").Str("remote", c.remote).Msg("data channel closed")
		c.fireClosed()
	})
}

// CreateOffer opens the reliable channel and produces the local offer.
func (c *Connection) CreateOffer() (json.RawMessage, error) {
	dc, err := c.pc.CreateDataChannel("captions-"+c.localID, nil)
	if err != nil {
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	c.adoptChannel(dc)

	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(offer)
}

func (c *Connection) HandleOffer(payload json.RawMessage) (json.RawMessage, error) {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := c.pc.SetRemoteDescription(offer); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return json.Marshal(answer)
}

func (c *Connection) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	return c.pc.SetRemoteDescription(answer)
}

func (c *Connection) AddCandidate(payload json.RawMessage) error {
	var cand webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &cand); err != nil {
		return fmt.Errorf("decode candidate: %w", err)
	}
	return c.pc.AddICECandidate(cand)
}

func (c *Connection) SendChannel(data []byte) error {
	c.mu.Lock()
	dc, open := c.channel, c.channelOpen
	c.mu.Unlock()
	if dc == nil || !open {
		return ErrChannelNotOpen
	}
	return dc.SendText(string(data))
}

// SetTrackEnabled flips the local track flag. The capture device consults
// these flags; the session itself stays up.
func (c *Connection) SetTrackEnabled(kind string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.trackEnabled[kind]; ok {
		c.trackEnabled[kind] = enabled
	}
}

func (c *Connection) TrackEnabled(kind string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trackEnabled[kind]
}

func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	dc := c.channel
	c.mu.Unlock()

	if dc != nil {
		_ = dc.Close()
	}
	if err := c.pc.Close(); err != nil {
		log.Error().Err(err).Str("module", "rtc").Str("remote", c.remote).Msg("close error")
	}
}

// fireClosed reports a terminal transport error exactly once.
func (c *Connection) fireClosed() {
	c.mu.Lock()
	already := c.closed
	c.closed = true
	c.mu.Unlock()
	if !already && c.onClosed != nil {
		c.onClosed()
	}
}

func (c *Connection) OnCandidate(fn func(json.RawMessage)) { c.onCandidate = fn }
func (c *Connection) OnChannelOpen(fn func())              { c.onChannelOpen = fn }
func (c *Connection) OnChannelMessage(fn func([]byte))     { c.onChannelMessage = fn }
func (c *Connection) OnClosed(fn func())                   { c.onClosed = fn }
