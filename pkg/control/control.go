// Package control implements the fixed-rate simulation tick loop: it drains
// sessions, runs the parser -> pipeline -> timer/FSM -> store sequence, then
// flushes queued output, plus the control-plane HTTP surface (JWT auth,
// script CRUD, metrics, admin stats) layered on top of it.
package control

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/parser"
	"github.com/duskward/lodestone/pkg/script"
	"github.com/duskward/lodestone/pkg/session"
	"github.com/duskward/lodestone/pkg/store"
	"github.com/duskward/lodestone/pkg/timer"
	"github.com/duskward/lodestone/pkg/world"
)

// Config configures loop timing and policy independent of the collaborators
// wired into it.
type Config struct {
	TickInterval    time.Duration
	StoreMaxRetries int
	IdleGrace       time.Duration
	AllowGuests     bool
	GuestBasename   string
}

// DefaultConfig returns sensible values a caller can override selectively.
func DefaultConfig() Config {
	return Config{
		TickInterval:    100 * time.Millisecond,
		StoreMaxRetries: 3,
		IdleGrace:       5 * time.Minute,
		AllowGuests:     true,
		GuestBasename:   "Guest",
	}
}

// Loop is the single-writer simulation task: everything it touches —
// World, the script Host, the timer Table — is owned exclusively by the
// goroutine running Run. Any other goroutine (an HTTP handler) that needs to
// change simulation state submits a job over scriptJobs instead of calling
// in directly.
type Loop struct {
	cfg Config

	world    *world.World
	parser   *parser.Parser
	pipeline *action.Pipeline
	host     *script.Host
	timers   *timer.Table
	gateway  *session.Gateway
	store    *store.Store

	flushers map[session.Transport]session.Flusher

	metrics *Metrics

	scriptJobs chan scriptJob
	shutdownCh chan struct{}

	guestSeq  int
	startedAt time.Time

	// storeHalted latches once SaveTick exhausts its retries; while set,
	// the tick loop stops draining session input so nothing further is
	// lost to a database that isn't accepting writes.
	storeHalted bool

	pendingLogins  map[int]*pendingLogin
	pendingChanges map[int]*pendingPasswordChange
}

// NewLoop wires a Loop over its collaborators and cascades world entity
// removal into the timer table and script host, alongside the store's own
// TrackRemovals registration: removing an entity cancels its timers and FSM
// stack and detaches its scripts.
func NewLoop(
	w *world.World,
	p *parser.Parser,
	pipeline *action.Pipeline,
	host *script.Host,
	timers *timer.Table,
	gateway *session.Gateway,
	st *store.Store,
	flushers map[session.Transport]session.Flusher,
	cfg Config,
) *Loop {
	st.TrackRemovals(w)
	w.OnEntityRemoved(timers.CancelEntity)
	w.OnEntityRemoved(host.DetachAll)

	return &Loop{
		cfg:            cfg,
		world:          w,
		parser:         p,
		pipeline:       pipeline,
		host:           host,
		timers:         timers,
		gateway:        gateway,
		store:          st,
		flushers:       flushers,
		metrics:        NewMetrics(),
		scriptJobs:     make(chan scriptJob, 32),
		shutdownCh:     make(chan struct{}),
		startedAt:      time.Now(),
		pendingLogins:  make(map[int]*pendingLogin),
		pendingChanges: make(map[int]*pendingPasswordChange),
	}
}

// Metrics exposes the loop's Prometheus registrations for wiring an HTTP
// handler in cmd/server.
func (l *Loop) Metrics() *Metrics { return l.metrics }

// RestoreInit runs every persisted entity's init-attached scripts once,
// rebuilding the script-data the store never persists. Called once at
// startup, after Store.Load and Store.LoadScripts.
func (l *Loop) RestoreInit() {
	for _, id := range l.world.AllIDs() {
		l.host.InitEntity(id)
	}
}

// Run drives the fixed-rate tick loop until ctx is canceled, then persists a
// final snapshot and checkpoints the database before returning.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.shutdown()
			return ctx.Err()
		case <-l.shutdownCh:
			l.shutdown()
			return nil
		case now := <-ticker.C:
			l.tick(ctx, now)
		}
	}
}

func (l *Loop) shutdown() {
	if err := l.store.SaveTick(context.Background(), l.world, l.host, l.cfg.StoreMaxRetries); err != nil {
		log.Printf("control: final save on shutdown: %v", err)
	}
	if err := l.store.Checkpoint(); err != nil {
		log.Printf("control: final checkpoint: %v", err)
	}
}

func (l *Loop) tick(ctx context.Context, now time.Time) {
	start := time.Now()

	l.drainScriptJobs()

	sessions := l.gateway.Sessions()
	if !l.storeHalted {
		for _, s := range sessions {
			switch s.State() {
			case session.StateLogin:
				l.handleLoginLines(s)
			case session.StateConnected:
				l.handleCommandLines(s)
			}
		}

		for _, fired := range l.timers.Tick() {
			l.pipeline.DispatchTimer(fired.Entity, fired.Name)
		}

		l.gateway.EvictIdle(now)
	}

	if err := l.store.SaveTick(ctx, l.world, l.host, l.cfg.StoreMaxRetries); err != nil {
		log.Printf("control: tick save failed, halting intake: %v", err)
		if !l.storeHalted {
			l.storeHalted = true
			l.gateway.Broadcast("The world has stopped responding to commands; a persistence failure needs attention. Your connection will remain open.")
		}
	}

	tcp, ws := 0, 0
	for _, s := range sessions {
		if flusher, ok := l.flushers[s.Transport]; ok {
			flusher.Flush(s)
		}
		switch s.Transport {
		case session.TransportTCP:
			tcp++
		case session.TransportWebSocket:
			ws++
		}
	}

	l.metrics.ObserveTick(time.Since(start))
	l.metrics.SetSessions(tcp, ws)
	l.metrics.AddScriptErrors(len(l.host.Errors))
	l.host.Errors = nil
}

func (l *Loop) handleCommandLines(s *session.Session) {
	for _, line := range s.DrainInbound() {
		actor := s.Player()
		if actor == world.Nothing {
			continue
		}
		if pending, ok := l.pendingChanges[s.ID]; ok {
			l.continuePasswordChange(s, actor, pending, line)
			continue
		}
		intent := l.parser.Parse(actor, line)
		switch intent.Kind {
		case action.IntentImmortal:
			l.handleImmortalCommand(s, intent)
		case action.IntentChangePassword:
			l.beginPasswordChange(s)
		default:
			l.pipeline.Dispatch(intent)
		}
	}
}

func splitVerb(line string) (verb, rest string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexAny(line, " \t")
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

func cutFirstWord(s string) (word, rest string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", false
	}
	idx := strings.IndexAny(s, " \t")
	if idx < 0 {
		return s, "", true
	}
	return s[:idx], strings.TrimSpace(s[idx+1:]), true
}
