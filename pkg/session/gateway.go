package session

import (
	"log"
	"sync"
	"time"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/world"
)

// Gateway tracks every connected session and routes messages between the
// simulation and whichever transport owns each socket. It implements
// action.Messenger directly so pkg/action's system effects and
// pkg/script's SELF bindings can address players without knowing sessions
// exist.
type Gateway struct {
	mu       sync.RWMutex
	world    *world.World
	nextID   int
	sessions map[int]*Session
	byPlayer map[world.EntityID]*Session

	// idleGrace is how long a disconnected session's player entity is
	// retained before EvictIdle persists and drops it.
	idleGrace time.Duration
}

var _ action.Messenger = (*Gateway)(nil)

// NewGateway constructs a Gateway bound to w, evicting disconnected
// sessions after idleGrace.
func NewGateway(w *world.World, idleGrace time.Duration) *Gateway {
	return &Gateway{
		world:     w,
		sessions:  make(map[int]*Session),
		byPlayer:  make(map[world.EntityID]*Session),
		idleGrace: idleGrace,
	}
}

// NextID allocates a session id, sequentially, the way a descriptor
// number is handed out.
func (g *Gateway) NextID() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	return g.nextID
}

// Add registers a newly-connected session.
func (g *Gateway) Add(s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[s.ID] = s
}

// Login binds a session to a player entity once authentication succeeds.
func (g *Gateway) Login(s *Session, player world.EntityID) {
	s.Login(player)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byPlayer[player] = s
}

// Remove drops a session entirely, called once its idle grace period has
// elapsed and the world entity has been evicted.
func (g *Gateway) Remove(s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.sessions, s.ID)
	if p := s.Player(); p != world.Nothing {
		if cur, ok := g.byPlayer[p]; ok && cur == s {
			delete(g.byPlayer, p)
		}
	}
}

// BySession looks up a session by connection id.
func (g *Gateway) BySession(id int) (*Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sessions[id]
	return s, ok
}

// ByPlayer looks up the session currently bound to a player entity.
func (g *Gateway) ByPlayer(player world.EntityID) (*Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.byPlayer[player]
	return s, ok
}

// Sessions returns a snapshot of every tracked session, connected or
// pending eviction, for the tick loop to drain in order.
func (g *Gateway) Sessions() []*Session {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		out = append(out, s)
	}
	return out
}

// Tell implements action.Messenger: delivers text to a specific player, if
// connected. Silently drops the message if the player has no live session
// (e.g. an NPC or a disconnected-but-not-yet-evicted player).
func (g *Gateway) Tell(who world.EntityID, text string) {
	if s, ok := g.ByPlayer(who); ok {
		s.Tell(text)
	}
}

// Room implements action.Messenger: delivers text to every connected
// player physically in room, optionally skipping one actor.
func (g *Gateway) Room(room world.EntityID, text string, except world.EntityID) {
	players, _, err := g.world.RoomContents(room)
	if err != nil {
		return
	}
	for _, p := range players {
		if p == except {
			continue
		}
		g.Tell(p, text)
	}
}

// Online implements action.Messenger: lists every player entity with a
// live session, for the who-listing effect.
func (g *Gateway) Online() []world.EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]world.EntityID, 0, len(g.byPlayer))
	for p := range g.byPlayer {
		out = append(out, p)
	}
	return out
}

// Broadcast delivers text to every tracked session regardless of login
// state, used for engine-wide conditions (like a persistence outage) that
// every connected socket needs to see, not just logged-in players.
func (g *Gateway) Broadcast(text string) {
	for _, s := range g.Sessions() {
		s.Tell(text)
	}
}

// Disconnect marks a session's socket as closed, broadcasts a departure
// notice to its room (observable to bystanders without actually
// relocating the entity), and leaves the player entity in the world for
// EvictIdle to reap later.
func (g *Gateway) Disconnect(s *Session) {
	player := s.Player()
	s.MarkDisconnected()
	if player == world.Nothing {
		return
	}
	if p, ok := g.world.Player(player); ok {
		g.Room(p.CurrentRoom, p.Username+" has disconnected.", player)
	}
}

// EvictIdle removes every session that has been disconnected for at least
// the configured idle grace period, deleting its player entity from the
// world so a caller-supplied persist step can flush it first. Returns the
// evicted player entities for the caller to persist/checkpoint.
func (g *Gateway) EvictIdle(now time.Time) []world.EntityID {
	var evicted []world.EntityID
	for _, s := range g.Sessions() {
		if s.State() != StateDisconnected {
			continue
		}
		if s.IdleFor(now) < g.idleGrace {
			continue
		}
		player := s.Player()
		if err := g.world.RemovePlayer(player); err != nil {
			log.Printf("session: evicting player %d: %v", player, err)
		}
		g.Remove(s)
		evicted = append(evicted, player)
	}
	return evicted
}
