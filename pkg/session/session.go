// Package session implements the session gateway: it binds one
// connected transport to a player entity, buffers inbound lines for the
// simulation tick, and queues outbound lines assembled from colored
// segments for the I/O side to flush. Sessions never touch the world
// directly — everything crosses the inbound/outbound queues, keeping the
// tick loop as the sole writer.
package session

import (
	"sync"
	"time"

	"github.com/duskward/lodestone/pkg/color"
	"github.com/duskward/lodestone/pkg/world"
)

// maxInboundQueue bounds how many unread lines a session may accumulate
// before the gateway starts dropping input.
const maxInboundQueue = 64

// OutputLine is one assembled outbound line: a sequence of colored
// segments plus the prompt/sensitivity flags the line protocol carries.
type OutputLine struct {
	Segments  []color.Segment
	IsPrompt  bool
	Sensitive bool
}

// Flusher renders and writes a session's queued outbound lines to its
// underlying connection. Implemented by TCPTransport and WebSocketTransport;
// kept as an interface so pkg/control can flush every session without
// knowing which transports are configured.
type Flusher interface {
	Flush(s *Session)
}

// Transport identifies which binding produced a Session.
type Transport int

const (
	TransportTCP Transport = iota
	TransportWebSocket
)

// State tracks where a session sits relative to authentication.
type State int

const (
	StateLogin State = iota
	StateConnected
	StateDisconnected // socket closed; player retained for the idle grace period
)

// Session is one connected client bound, after login, to a player entity.
type Session struct {
	ID        int
	Transport Transport
	Addr      string
	ConnTime  time.Time

	mu           sync.Mutex
	state        State
	player       world.EntityID
	inbound      []string
	outbound     []OutputLine
	sensitive    bool // next prompt should suppress echo client-side
	lastActivity time.Time
	disconnectAt time.Time // when the socket closed, for idle-eviction accounting
	closeAfter   bool      // transport should close the connection after its next flush
}

// New creates a session in the pre-login state.
func New(id int, transport Transport, addr string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Transport:    transport,
		Addr:         addr,
		ConnTime:     now,
		state:        StateLogin,
		player:       world.Nothing,
		lastActivity: now,
	}
}

// Login binds the session to player and marks it connected.
func (s *Session) Login(player world.EntityID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player = player
	s.state = StateConnected
}

// Player returns the bound player entity, or world.Nothing before login.
func (s *Session) Player() world.EntityID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enqueue appends one inbound line, called from the I/O task on each line
// read. Lines beyond the cap are dropped; the caller should log a warning
// using the reported ok=false.
func (s *Session) Enqueue(line string) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	if len(s.inbound) >= maxInboundQueue {
		return false
	}
	s.inbound = append(s.inbound, line)
	return true
}

// DrainInbound removes and returns every buffered inbound line, called once
// per tick by the simulation task before parsing.
func (s *Session) DrainInbound() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.inbound
	s.inbound = nil
	return lines
}

// MarkSensitive flags the next prompt as sensitive (password entry/change),
// so the client suppresses local echo.
func (s *Session) MarkSensitive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensitive = true
}

// Tell queues plain text for delivery, parsing any inline color markup.
// Implements the Tell half of action.Messenger via Gateway.
func (s *Session) Tell(text string) {
	s.queueLine(text, false)
}

// Prompt queues a prompt line, consuming any pending sensitive flag.
func (s *Session) Prompt(text string) {
	s.mu.Lock()
	sensitive := s.sensitive
	s.sensitive = false
	s.mu.Unlock()
	s.outboundLine(OutputLine{Segments: color.Parse(text), IsPrompt: true, Sensitive: sensitive})
}

func (s *Session) queueLine(text string, isPrompt bool) {
	s.outboundLine(OutputLine{Segments: color.Parse(text), IsPrompt: isPrompt})
}

func (s *Session) outboundLine(line OutputLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbound = append(s.outbound, line)
}

// DrainOutbound removes and returns every queued outbound line, called
// once per tick after post-scripts and the scheduler run.
func (s *Session) DrainOutbound() []OutputLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := s.outbound
	s.outbound = nil
	return lines
}

// RequestClose asks the owning transport to close the connection once its
// queued output (e.g. a "Goodbye!" line) has been flushed, used by the
// login layer's `quit` handling.
func (s *Session) RequestClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeAfter = true
}

// ShouldClose reports whether RequestClose has been called, for a
// transport's Flush to act on after writing any remaining output.
func (s *Session) ShouldClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeAfter
}

// MarkDisconnected records the socket closing without evicting the player
// entity; Gateway.EvictIdle later reaps it once the grace period elapses.
func (s *Session) MarkDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDisconnected
	s.disconnectAt = time.Now()
}

// IdleFor reports how long the session has sat disconnected.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateDisconnected {
		return 0
	}
	return now.Sub(s.disconnectAt)
}
