package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/domain"
	"github.com/linzo/meet/internal/signal"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound frame budget per participant; enough for a burst of trickle
// candidates plus speech traffic.
const (
	frameLimit  = 120
	frameWindow = 10 * time.Second

	defaultReadLimit  = 32 << 10
	defaultPingPeriod = 54 * time.Second
)

// Controller terminates participant websockets and dispatches their frames
// into the hub.
type Controller struct {
	Hub     *Hub
	limiter *RateLimiter

	readLimit  int64
	pingPeriod time.Duration
}

func NewController(hub *Hub) *Controller {
	return &Controller{
		Hub:        hub,
		limiter:    NewRateLimiter(frameLimit, frameWindow),
		readLimit:  defaultReadLimit,
		pingPeriod: defaultPingPeriod,
	}
}

// SetConnLimits overrides the per-connection read limit and ping period.
func (ctl *Controller) SetConnLimits(readLimit int64, pingPeriod time.Duration) {
	if readLimit > 0 {
		ctl.readLimit = readLimit
	}
	if pingPeriod > 0 {
		ctl.pingPeriod = pingPeriod
	}
}

// HandleWS upgrades the request, assigns the participant id and runs the
// read/write pumps until the connection dies.
func (ctl *Controller) HandleWS(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("ws upgrade")
		return
	}

	conn := newWSConn(ws, ctl.readLimit, ctl.pingPeriod)
	id := ctl.Hub.Connect(conn)

	_ = conn.TrySend(signal.Marshal(signal.Welcome{Type: signal.TypeWelcome, ID: id}))

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		conn.writePump(ctx)
		cancel()
	}()
	go ctl.readPump(ctx, cancel, id, conn)
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ParticipantID, c *wsConn) {
	defer func() {
		cancel()
		c.Close()
		ctl.dropParticipant(id)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "relay").Str("id", string(id)).Msg("readPump closing")
				return
			}
			ctl.handleFrame(id, c, data)
		}
	}
}

// dropParticipant tears down membership after a connection dies and tells the
// remaining room members.
func (ctl *Controller) dropParticipant(id domain.ParticipantID) {
	ctl.limiter.Forget(id)
	roomID, inRoom := ctl.Hub.Disconnect(id)
	if inRoom {
		ctl.Hub.BroadcastRoom(roomID, id, signal.Marshal(signal.UserLeft{Type: signal.TypeUserLeft, ID: id}))
	}
}

func (ctl *Controller) handleFrame(id domain.ParticipantID, c *wsConn, data []byte) {
	if !ctl.limiter.Allow(id) {
		log.Warn().Str("module", "relay").Str("id", string(id)).Msg("rate limit exceeded, frame dropped")
		return
	}

	kind, err := signal.SniffType(data)
	if err != nil {
		log.Error().Err(err).Str("module", "relay").Msg("bad frame")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch kind {
	case signal.TypeJoin:
		ctl.handleJoin(id, c, data)
	case signal.TypeLeave:
		ctl.handleLeave(id, c)
	case signal.TypeOffer, signal.TypeAnswer, signal.TypeCandidate:
		ctl.handleRelay(id, data)
	case signal.TypeSpeech:
		ctl.handleSpeech(id, data)
	default:
		log.Warn().Str("module", "relay").Str("type", kind).Msg("unknown frame type")
	}
}

func (ctl *Controller) handleJoin(id domain.ParticipantID, c *wsConn, data []byte) {
	var p signal.Join
	if err := json.Unmarshal(data, &p); err != nil || p.Room == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}

	existing, ok := ctl.Hub.Join(id, p.Room)
	if !ok {
		ctl.sendError(c, "not_connected")
		return
	}

	_ = c.TrySend(signal.Marshal(signal.RoomState{
		Type:    signal.TypeRoomState,
		Room:    p.Room,
		Members: existing,
	}))
	ctl.Hub.Broadcast(id, signal.Marshal(signal.UserJoined{Type: signal.TypeUserJoined, ID: id}))
}

func (ctl *Controller) handleLeave(id domain.ParticipantID, c *wsConn) {
	roomID, ok := ctl.Hub.Leave(id)
	if !ok {
		return
	}
	log.Info().Str("module", "relay").Str("id", string(id)).Str("room", string(roomID)).Msg("leave")
	ctl.Hub.BroadcastRoom(roomID, id, signal.Marshal(signal.UserLeft{Type: signal.TypeUserLeft, ID: id}))
}

// handleRelay forwards an addressed signaling payload to exactly one target.
// The relay stamps From; delivery failures are dropped, never reported back.
func (ctl *Controller) handleRelay(id domain.ParticipantID, data []byte) {
	var p signal.Relayed
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad relayed payload")
		return
	}
	p.From = id
	ctl.Hub.SendTo(id, p.To, signal.Marshal(p))
}

func (ctl *Controller) handleSpeech(id domain.ParticipantID, data []byte) {
	var p signal.Speech
	if err := json.Unmarshal(data, &p); err != nil || p.Text == "" {
		log.Error().Err(err).Str("module", "relay").Msg("bad speech payload")
		return
	}
	p.From = id
	sent := ctl.Hub.Broadcast(id, signal.Marshal(p))
	log.Debug().Str("module", "relay").Str("from", string(id)).Int("sent_to", sent).Msg("speech broadcast")
}

func (ctl *Controller) sendError(c *wsConn, reason string) {
	_ = c.TrySend(signal.Marshal(signal.Error{Type: signal.TypeError, Reason: reason}))
}
