package signal

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/studyroom/internal/app"
	"github.com/dkeye/studyroom/internal/config"
	"github.com/dkeye/studyroom/internal/core"
	"github.com/dkeye/studyroom/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	dead   bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return errors.New("dead")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) decoded(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.frames))
	for _, f := range c.frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			t.Fatalf("bad frame %q: %v", f, err)
		}
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) last(t *testing.T) map[string]any {
	t.Helper()
	evs := c.decoded(t)
	if len(evs) == 0 {
		t.Fatal("no frames received")
	}
	return evs[len(evs)-1]
}

type fakeStore struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*domain.Room
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: make(map[domain.RoomID]*domain.Room)}
}

func (s *fakeStore) CreateRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room
	return nil
}

func (s *fakeStore) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		return r, nil
	}
	return nil, domain.ErrRoomNotFound
}

func (s *fakeStore) AddParticipant(_ context.Context, _ domain.RoomID, _ string) error {
	return nil
}

func (s *fakeStore) ListRooms(_ context.Context, _ int) ([]*domain.Room, error) {
	return nil, nil
}

type fixture struct {
	ctl   *SignalWSController
	store *fakeStore
}

func newFixture() *fixture {
	cfg := &config.Config{
		Mode:       "release",
		ReadLimit:  65536,
		PingPeriod: 54 * time.Second,
	}
	reg := app.NewRegistry()
	rooms := app.NewRoomManager()
	presence := app.NewPresence(reg, rooms)
	relay := app.NewRelay(reg)
	store := newFakeStore()
	return &fixture{
		ctl:   NewSignalWSController(cfg, presence, relay, rooms, store),
		store: store,
	}
}

func (f *fixture) addRoom(id domain.RoomID, password string) {
	room := &domain.Room{ID: id, Name: "study", CreatedAt: time.Now()}
	if password != "" {
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		room.PasswordHash = string(hash)
	}
	f.store.rooms[id] = room
}

func (f *fixture) connect() (core.ConnID, *fakeConn) {
	conn := &fakeConn{}
	sid := f.ctl.Presence.Registry.Bind(core.NewMemberSession("", conn), nil)
	return sid, conn
}

func (f *fixture) send(sid core.ConnID, conn *fakeConn, v any) {
	b, _ := json.Marshal(v)
	f.ctl.dispatch(context.Background(), sid, conn, b)
}

func (f *fixture) join(t *testing.T, sid core.ConnID, conn *fakeConn, roomID, password string) {
	t.Helper()
	f.send(sid, conn, map[string]any{
		"type":     "join-room",
		"roomId":   roomID,
		"password": password,
	})
	if got := conn.last(t)["type"]; got != "room-joined" {
		t.Fatalf("join response = %v, want room-joined", got)
	}
}

func TestDispatchUnknownType(t *testing.T) {
	f := newFixture()
	sid, conn := f.connect()
	f.send(sid, conn, map[string]any{"type": "no-such-kind"})
	if got := len(conn.decoded(t)); got != 0 {
		t.Fatalf("unknown type produced %d frames, want 0", got)
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	f := newFixture()
	sid, conn := f.connect()

	f.send(sid, conn, map[string]any{"type": "join-room", "roomId": "missing"})

	last := conn.last(t)
	if last["type"] != "error" || last["error"] != "room_not_found" {
		t.Fatalf("response = %v, want room_not_found error", last)
	}
	if _, ok := f.ctl.Rooms.Get("missing"); ok {
		t.Fatal("failed join still created a live room")
	}
}

func TestJoinRoomPassword(t *testing.T) {
	f := newFixture()
	f.addRoom("r2", "secret123")
	sid, conn := f.connect()

	f.send(sid, conn, map[string]any{"type": "join-room", "roomId": "r2", "password": "nope"})
	last := conn.last(t)
	if last["type"] != "error" || last["error"] != "invalid_password" {
		t.Fatalf("response = %v, want invalid_password error (not a generic failure)", last)
	}
	if room, ok := f.ctl.Rooms.Get("r2"); ok && room.MemberCount() != 0 {
		t.Fatal("wrong password still joined the room")
	}

	f.join(t, sid, conn, "r2", "secret123")
	room, _ := f.ctl.Rooms.Get("r2")
	if got := room.MemberCount(); got != 1 {
		t.Fatalf("MemberCount = %d, want 1", got)
	}
}

func TestJoinRoomSnapshotAndAnnouncement(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()

	f.join(t, c1, conn1, "r1", "")
	f.join(t, c2, conn2, "r1", "")

	// The earlier member hears about the join.
	var announced bool
	for _, ev := range conn1.decoded(t) {
		if ev["type"] == "user-connected" && ev["connectionId"] == string(c2) {
			announced = true
		}
	}
	if !announced {
		t.Fatal("existing member never received user-connected")
	}

	// The joiner's snapshot lists both members.
	last := conn2.last(t)
	members, ok := last["members"].([]any)
	if !ok || len(members) != 2 {
		t.Fatalf("room-joined members = %v, want 2 entries", last["members"])
	}
}

func TestChatBroadcastNoSenderEcho(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.join(t, c1, conn1, "r1", "")
	f.join(t, c2, conn2, "r1", "")
	sent1 := len(conn1.decoded(t))

	f.send(c1, conn1, map[string]any{
		"type": "send-message", "roomId": "r1", "message": "hi", "sender": "alice",
	})

	last := conn2.last(t)
	if last["type"] != "receive-message" || last["message"] != "hi" || last["sender"] != "alice" {
		t.Fatalf("recipient frame = %v", last)
	}
	if got := len(conn1.decoded(t)); got != sent1 {
		t.Fatal("sender received an echo of its own chat message")
	}
}

func TestChatFromNonMemberRejected(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.join(t, c1, conn1, "r1", "")

	f.send(c2, conn2, map[string]any{"type": "send-message", "roomId": "r1", "message": "hi"})

	if got := conn2.last(t)["error"]; got != "not_in_room" {
		t.Fatalf("error = %v, want not_in_room", got)
	}
	for _, ev := range conn1.decoded(t) {
		if ev["type"] == "receive-message" {
			t.Fatal("non-member message reached the room")
		}
	}
}

func TestCallUserRelayedWithServerStampedFrom(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.join(t, c1, conn1, "r1", "")
	f.join(t, c2, conn2, "r1", "")

	f.send(c1, conn1, map[string]any{
		"type":       "call-user",
		"userToCall": string(c2),
		"signalData": map[string]any{"sdp": "offer-blob"},
		"name":       "alice",
	})

	last := conn2.last(t)
	if last["type"] != "call-user" {
		t.Fatalf("target frame = %v, want call-user", last)
	}
	if last["from"] != string(c1) {
		t.Fatalf("from = %v, want %s", last["from"], c1)
	}
	signal, _ := last["signal"].(map[string]any)
	if signal["sdp"] != "offer-blob" {
		t.Fatalf("signal payload not forwarded verbatim: %v", last["signal"])
	}
}

func TestAnswerCallRelayedAsCallAccepted(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.join(t, c1, conn1, "r1", "")
	f.join(t, c2, conn2, "r1", "")

	f.send(c2, conn2, map[string]any{
		"type":   "answer-call",
		"to":     string(c1),
		"signal": map[string]any{"sdp": "answer-blob"},
		"name":   "bob",
	})

	last := conn1.last(t)
	if last["type"] != "call-accepted" || last["from"] != string(c2) || last["name"] != "bob" {
		t.Fatalf("caller frame = %v, want call-accepted from c2", last)
	}
}

func TestCallUserToGoneTargetIsSilent(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	f.join(t, c1, conn1, "r1", "")
	before := len(conn1.decoded(t))

	f.send(c1, conn1, map[string]any{
		"type":       "call-user",
		"userToCall": "gone",
		"signalData": map[string]any{},
	})

	// No error surfaced, nothing delivered anywhere.
	if got := len(conn1.decoded(t)); got != before {
		t.Fatalf("sender observed %d extra frames, want 0", got-before)
	}
}

func TestToggleMediaBroadcastAndClaimedState(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.join(t, c1, conn1, "r1", "")
	f.join(t, c2, conn2, "r1", "")

	f.send(c1, conn1, map[string]any{
		"type": "toggle-media", "roomId": "r1", "mediaType": "audio", "status": true,
	})

	last := conn2.last(t)
	if last["type"] != "media-toggled" || last["peerID"] != string(c1) || last["mediaType"] != "audio" || last["status"] != true {
		t.Fatalf("frame = %v", last)
	}

	sess, _ := f.ctl.Presence.Registry.Session(c1)
	if !sess.Media().Audio {
		t.Fatal("claimed media state not recorded on session")
	}
}

func TestToggleMediaUnknownKind(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	f.join(t, c1, conn1, "r1", "")

	f.send(c1, conn1, map[string]any{
		"type": "toggle-media", "roomId": "r1", "mediaType": "hologram", "status": true,
	})

	if got := conn1.last(t)["error"]; got != "bad_payload" {
		t.Fatalf("error = %v, want bad_payload", got)
	}
}

func TestWhiteboardEvents(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.join(t, c1, conn1, "r1", "")
	f.join(t, c2, conn2, "r1", "")
	sent1 := len(conn1.decoded(t))

	f.send(c1, conn1, map[string]any{
		"type": "whiteboard-draw", "roomId": "r1",
		"path": map[string]any{"x1": 1.0, "y1": 2.0},
	})
	last := conn2.last(t)
	if last["type"] != "whiteboard-draw" {
		t.Fatalf("frame = %v, want whiteboard-draw", last)
	}
	path, _ := last["path"].(map[string]any)
	if path["x1"] != 1.0 {
		t.Fatalf("path not forwarded verbatim: %v", last["path"])
	}

	f.send(c1, conn1, map[string]any{"type": "whiteboard-clear", "roomId": "r1"})
	if got := conn2.last(t)["type"]; got != "whiteboard-clear" {
		t.Fatalf("frame type = %v, want whiteboard-clear", got)
	}

	if got := len(conn1.decoded(t)); got != sent1 {
		t.Fatal("drawer received its own whiteboard events")
	}
}

func TestSendChangesRelay(t *testing.T) {
	f := newFixture()
	f.addRoom("r1", "")
	c1, conn1 := f.connect()
	c2, conn2 := f.connect()
	f.join(t, c1, conn1, "r1", "")
	f.join(t, c2, conn2, "r1", "")

	f.send(c1, conn1, map[string]any{
		"type": "send-changes", "roomId": "r1",
		"delta": map[string]any{"ops": []any{"insert"}},
	})

	last := conn2.last(t)
	if last["type"] != "receive-changes" {
		t.Fatalf("frame = %v, want receive-changes", last)
	}
}

func TestPingPong(t *testing.T) {
	f := newFixture()
	sid, conn := f.connect()
	f.send(sid, conn, map[string]any{"type": "ping"})
	if got := conn.last(t)["type"]; got != "pong" {
		t.Fatalf("response = %v, want pong", got)
	}
}

func TestJoinRateLimited(t *testing.T) {
	f := newFixture()
	f.addRoom("r2", "secret123")
	sid, conn := f.connect()

	for range 10 {
		f.send(sid, conn, map[string]any{"type": "join-room", "roomId": "r2", "password": "guess"})
	}
	f.send(sid, conn, map[string]any{"type": "join-room", "roomId": "r2", "password": "secret123"})

	if got := conn.last(t)["error"]; got != "too_many_attempts" {
		t.Fatalf("error = %v, want too_many_attempts", got)
	}
}
