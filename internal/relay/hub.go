// Package relay is the server side of signaling: room membership plus
// message forwarding between participants. It holds no session state beyond
// who is in which room and never inspects the payloads it forwards.
package relay

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/linzo/meet/internal/core"
	"github.com/linzo/meet/internal/domain"
)

// member binds a participant id to its transport for the connection lifetime.
type member struct {
	id   domain.ParticipantID
	conn core.SignalConnection
	room domain.RoomID
}

// room owns a membership set. Mutation is serialized by its own lock so
// different rooms proceed independently.
type room struct {
	id      domain.RoomID
	mu      sync.RWMutex
	members map[domain.ParticipantID]*member
}

func newRoom(id domain.RoomID) *room {
	return &room{id: id, members: make(map[domain.ParticipantID]*member)}
}

func (r *room) add(m *member) []domain.ParticipantID {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := make([]domain.ParticipantID, 0, len(r.members))
	for id := range r.members {
		existing = append(existing, id)
	}
	r.members[m.id] = m
	return existing
}

func (r *room) remove(id domain.ParticipantID) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, id)
	return len(r.members) == 0
}

func (r *room) get(id domain.ParticipantID) (*member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	return m, ok
}

// others snapshots every member except the given one.
func (r *room) others(except domain.ParticipantID) []*member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*member, 0, len(r.members))
	for id, m := range r.members {
		if id != except {
			out = append(out, m)
		}
	}
	return out
}

func (r *room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// Hub tracks connected participants and the rooms they joined. Rooms are
// created on first join and destroyed when the last member leaves.
type Hub struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*room
	byID  map[domain.ParticipantID]*member
	genID func() domain.ParticipantID
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[domain.RoomID]*room),
		byID:  make(map[domain.ParticipantID]*member),
		genID: func() domain.ParticipantID { return domain.ParticipantID(uuid.NewString()) },
	}
}

// Connect registers a transport and assigns it a participant id.
func (h *Hub) Connect(conn core.SignalConnection) domain.ParticipantID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.genID()
	h.byID[id] = &member{id: id, conn: conn}
	log.Info().Str("module", "relay.hub").Str("id", string(id)).Msg("participant connected")
	return id
}

// Join puts a participant into a room and returns the members that were
// already there. Joining while in another room leaves that room first.
func (h *Hub) Join(id domain.ParticipantID, roomID domain.RoomID) ([]domain.ParticipantID, bool) {
	h.mu.Lock()
	m, ok := h.byID[id]
	if !ok {
		h.mu.Unlock()
		return nil, false
	}
	if m.room != "" && m.room != roomID {
		h.leaveLocked(m)
	}
	r, ok := h.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		h.rooms[roomID] = r
		log.Info().Str("module", "relay.hub").Str("room", string(roomID)).Msg("room created")
	}
	m.room = roomID
	// Add under the hub lock so a concurrent Leave of the last member cannot
	// destroy the room between registration and membership.
	existing := r.add(m)
	h.mu.Unlock()
	log.Info().Str("module", "relay.hub").Str("id", string(id)).Str("room", string(roomID)).Int("existing", len(existing)).Msg("joined room")
	return existing, true
}

// Leave removes a participant from its room, destroying the room when empty.
func (h *Hub) Leave(id domain.ParticipantID) (domain.RoomID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.byID[id]
	if !ok || m.room == "" {
		return "", false
	}
	roomID := m.room
	h.leaveLocked(m)
	return roomID, true
}

func (h *Hub) leaveLocked(m *member) {
	r, ok := h.rooms[m.room]
	if !ok {
		m.room = ""
		return
	}
	if r.remove(m.id) {
		delete(h.rooms, m.room)
		log.Info().Str("module", "relay.hub").Str("room", string(m.room)).Msg("room destroyed")
	}
	m.room = ""
}

// Disconnect drops the participant entirely. Returns the room it was in, if any.
func (h *Hub) Disconnect(id domain.ParticipantID) (domain.RoomID, bool) {
	roomID, inRoom := h.Leave(id)
	h.mu.Lock()
	delete(h.byID, id)
	h.mu.Unlock()
	log.Info().Str("module", "relay.hub").Str("id", string(id)).Msg("participant disconnected")
	return roomID, inRoom
}

// RoomOf reports the room a participant currently occupies.
func (h *Hub) RoomOf(id domain.ParticipantID) (domain.RoomID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.byID[id]
	if !ok || m.room == "" {
		return "", false
	}
	return m.room, true
}

// SendTo forwards a frame to exactly one participant in the same room as the
// sender. Delivery is fire-and-forget: a gone target or a full queue drops
// the frame without reporting back.
func (h *Hub) SendTo(from, to domain.ParticipantID, frame core.Frame) {
	h.mu.RLock()
	m, ok := h.byID[from]
	var r *room
	if ok && m.room != "" {
		r = h.rooms[m.room]
	}
	h.mu.RUnlock()
	if r == nil {
		return
	}
	target, ok := r.get(to)
	if !ok {
		log.Debug().Str("module", "relay.hub").Str("to", string(to)).Msg("target gone, frame dropped")
		return
	}
	if err := target.conn.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("module", "relay.hub").Str("to", string(to)).Msg("send failed, frame dropped")
	}
}

// Broadcast fans a frame out to every other member of the sender's room.
func (h *Hub) Broadcast(from domain.ParticipantID, frame core.Frame) int {
	h.mu.RLock()
	m, ok := h.byID[from]
	var r *room
	if ok && m.room != "" {
		r = h.rooms[m.room]
	}
	h.mu.RUnlock()
	if r == nil {
		return 0
	}
	sent := 0
	for _, other := range r.others(from) {
		if err := other.conn.TrySend(frame); err != nil {
			log.Debug().Err(err).Str("module", "relay.hub").Str("to", string(other.id)).Msg("broadcast drop")
			continue
		}
		sent++
	}
	return sent
}

// BroadcastRoom fans a frame out to a room by id, skipping one participant.
// Used for user-left, where the sender is already out of the membership set.
func (h *Hub) BroadcastRoom(roomID domain.RoomID, except domain.ParticipantID, frame core.Frame) {
	h.mu.RLock()
	r := h.rooms[roomID]
	h.mu.RUnlock()
	if r == nil {
		return
	}
	for _, other := range r.others(except) {
		_ = other.conn.TrySend(frame)
	}
}

// RoomInfo is a read-only view for the listing API.
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

func (h *Hub) List() []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for id, r := range h.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: r.size()})
	}
	return out
}
