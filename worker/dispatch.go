// Package worker implements the worker pool: a fixed set of goroutines
// popping WorkItem values off a queue.Queue and dispatching them by
// message_type to a handler, which returns a response message the
// worker writes back through the item's Origin.
package worker

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mgreenly/space-captain/errs"
	"github.com/mgreenly/space-captain/state"
	"github.com/mgreenly/space-captain/wire"
)

// Handler processes one request message and returns the response to send
// back, or an error if it cannot produce one. originID identifies the
// peer for state lookups (the session's PeerAddr, stringified).
type Handler func(originID string, store *state.Store, req wire.Message) (wire.Message, error)

// Table maps a message_type to the Handler that serves it.
type Table map[wire.Type]Handler

// DefaultTable builds the production dispatch table: three legacy
// stream-mode demo handlers in the style of a simple echo server, plus
// the secure-transport game handlers modeled on a game server's message
// loop.
func DefaultTable() Table {
	return Table{
		wire.LegacyEcho:    handleEcho,
		wire.LegacyReverse: handleReverse,
		wire.LegacyTime:    handleTime,

		wire.DialUpdate:    handleDialUpdate,
		wire.MovementInput: handleMovementInput,
		wire.FireWeapon:    handleFireWeapon,
		wire.StateAck:      handleStateAck,
		wire.Heartbeat:     handleHeartbeat,
		wire.Ping:          handlePing,
	}
}

func handleEcho(_ string, _ *state.Store, req wire.Message) (wire.Message, error) {
	return wire.NewResponse(wire.LegacyEcho, req.Header, req.Payload), nil
}

// handleReverse reverses the NUL-terminated string content of the
// payload (everything before the first '\0', or the whole payload if
// it carries no terminator) and appends a fresh '\0', matching the C
// original's strlen(body)-bounded reverse plus its own NUL append.
func handleReverse(_ string, _ *state.Store, req wire.Message) (wire.Message, error) {
	content := req.Payload
	if i := bytes.IndexByte(content, 0); i >= 0 {
		content = content[:i]
	}
	rev := make([]byte, len(content)+1)
	for i, b := range content {
		rev[len(content)-1-i] = b
	}
	rev[len(content)] = 0
	return wire.NewResponse(wire.LegacyReverse, req.Header, rev), nil
}

// handleTime responds with the current UTC time as an ISO-8601 string
// plus a trailing NUL terminator, matching the C original's
// strftime("%Y-%m-%dT%H:%M:%SZ") followed by strlen+1.
func handleTime(_ string, _ *state.Store, req wire.Message) (wire.Message, error) {
	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	buf := append([]byte(now), 0)
	return wire.NewResponse(wire.LegacyTime, req.Header, buf), nil
}

func handlePing(_ string, _ *state.Store, req wire.Message) (wire.Message, error) {
	return wire.NewResponse(wire.Pong, req.Header, nil), nil
}

// handleHeartbeat produces no reply; last_activity is already refreshed
// by the session's Read call that delivered this message, matching
// original_source server.c's heartbeat handling (log only, no wire
// response).
func handleHeartbeat(_ string, _ *state.Store, _ wire.Message) (wire.Message, error) {
	return wire.Message{}, errs.New(errs.CodeWorkerNoResponse, "HEARTBEAT expects no response")
}

// handleDialUpdate joins the caller's entity at the origin and echoes the
// current tick so the client can align its clock, matching original_source
// game.c's dial-in handshake.
func handleDialUpdate(originID string, store *state.Store, req wire.Message) (wire.Message, error) {
	store.Join(originID)
	payload := encodeStateUpdate(store, originID)
	return wire.NewResponse(wire.StateUpdate, req.Header, payload), nil
}

// handleMovementInput expects a payload of two big-endian int32s (dx,
// dy); anything shorter is treated as (0, 0).
func handleMovementInput(originID string, store *state.Store, req wire.Message) (wire.Message, error) {
	var dx, dy int32
	if len(req.Payload) >= 8 {
		dx = beInt32(req.Payload[0:4])
		dy = beInt32(req.Payload[4:8])
	}
	store.Move(originID, dx, dy)
	return wire.NewResponse(wire.StateUpdate, req.Header, encodeStateUpdate(store, originID)), nil
}

// handleFireWeapon expects a payload of (target_id_len byte, target_id
// bytes, damage int32); it reports DAMAGE_RECEIVED to the shooter as an
// acknowledgement, and ENTITY_DESTROYED if the shot was lethal. Routing
// the corresponding message to the target peer is the job of the server
// front end, which knows how to look a peer up by id; the handler only
// reports what happened.
func handleFireWeapon(_ string, store *state.Store, req wire.Message) (wire.Message, error) {
	p := req.Payload
	if len(p) < 1 {
		return wire.Message{}, errs.New(errs.CodeCodecShortPayload, "FIRE_WEAPON requires a target id")
	}
	idLen := int(p[0])
	if len(p) < 1+idLen+4 {
		return wire.Message{}, errs.New(errs.CodeCodecShortPayload, "FIRE_WEAPON payload truncated")
	}
	targetID := string(p[1 : 1+idLen])
	damage := beInt32(p[1+idLen : 1+idLen+4])

	entity, destroyed := store.Damage(targetID, damage)
	if destroyed {
		return wire.NewResponse(wire.EntityDestroyed, req.Header, []byte(targetID)), nil
	}
	return wire.NewResponse(wire.DamageReceived, req.Header, encodeEntity(entity)), nil
}

func handleStateAck(_ string, _ *state.Store, _ wire.Message) (wire.Message, error) {
	return wire.Message{}, errs.New(errs.CodeWorkerNoResponse, "STATE_ACK expects no response")
}

// encodeStateUpdate renders id's entity (or the zero entity, if the peer
// hasn't joined yet) followed by the global tick, the minimum a client
// needs to reconcile its local view.
func encodeStateUpdate(store *state.Store, id string) []byte {
	e, _ := store.Get(id)
	buf := encodeEntity(e)
	return append(buf, beBytes32(uint32(store.CurrentTick()))...)
}

func encodeEntity(e state.Entity) []byte {
	buf := make([]byte, 0, 12)
	buf = append(buf, beBytes32(uint32(e.X))...)
	buf = append(buf, beBytes32(uint32(e.Y))...)
	buf = append(buf, beBytes32(uint32(e.Health))...)
	return buf
}

func beInt32(b []byte) int32 {
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func beBytes32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// unknownTypeErr formats a CodeWorkerDispatchUnknown error naming the
// unhandled type, used by Pool when Table has no entry for a message.
func unknownTypeErr(t wire.Type) error {
	return errs.New(errs.CodeWorkerDispatchUnknown, fmt.Sprintf("type 0x%04X (%s)", uint16(t), t))
}
