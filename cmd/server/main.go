// Command server is the lodestone entrypoint: it loads configuration,
// opens the durable store, restores the world and script host, wires the
// control loop over the session gateway and its transports, and finally
// serves the control-plane HTTP surface alongside the tick loop.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/config"
	"github.com/duskward/lodestone/pkg/control"
	"github.com/duskward/lodestone/pkg/parser"
	"github.com/duskward/lodestone/pkg/script"
	"github.com/duskward/lodestone/pkg/session"
	"github.com/duskward/lodestone/pkg/store"
	"github.com/duskward/lodestone/pkg/timer"
	"github.com/duskward/lodestone/pkg/world"
)

// schedulerHolder forwards script.Scheduler calls to a *timer.Table set
// after construction, breaking the Host/Table constructor cycle.
type schedulerHolder struct {
	table *timer.Table
}

func (s *schedulerHolder) SetTimer(entity world.EntityID, name string, delayMs float64, repeat bool) {
	s.table.SetTimer(entity, name, delayMs, repeat)
}

func (s *schedulerHolder) After(delayMs float64, fn func()) {
	s.table.After(delayMs, fn)
}

func (s *schedulerHolder) PushFSM(entity world.EntityID, def script.FSMDef) {
	s.table.PushFSM(entity, def)
}

func (s *schedulerHolder) PopFSM(entity world.EntityID) {
	s.table.PopFSM(entity)
}

func (s *schedulerHolder) FlushFSM(entity world.EntityID) {
	s.table.FlushFSM(entity)
}

func (s *schedulerHolder) Clear(entity world.EntityID) {
	s.table.Clear(entity)
}

func main() {
	configPath := flag.String("config", "", "path to lodestone.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("server: loading config: %v", err)
	}
	cfgStore := config.NewStore(cfg)
	stopWatch, err := config.Watch(cfgStore, *configPath)
	if err != nil {
		log.Printf("server: config hot-reload disabled: %v", err)
	}
	defer stopWatch()

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Fatalf("server: opening store %s: %v", cfg.StorePath, err)
	}
	defer st.Close()

	w, err := st.Load()
	if err != nil {
		log.Fatalf("server: loading world: %v", err)
	}
	if w.SpawnRoom == world.Nothing {
		w.SpawnRoom = w.CreateRoom("The center of everything, and a fine place to start.")
		log.Printf("server: no spawn room in %s, created #%d", cfg.StorePath, w.SpawnRoom)
	}

	gateway := session.NewGateway(w, time.Duration(cfg.IdleGraceSecs)*time.Second)

	p := parser.New(w)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// script.Host needs a Scheduler at construction and timer.Table needs a
	// ScriptRunner at construction, each the other's finished product; a
	// forwarding holder breaks the cycle without changing either package's
	// constructor signature.
	sched := &schedulerHolder{}
	host := script.NewHost(w, gateway, sched, rng, cfg.ScriptOperationBudget)
	timers := timer.NewTable(host, time.Now)
	sched.table = timers

	pipeline := action.NewPipeline(w, host, gateway)
	action.RegisterDefaultEffects(pipeline)

	if err := st.LoadScripts(w, host); err != nil {
		log.Fatalf("server: loading scripts: %v", err)
	}

	tcp, err := session.ListenTCP(gateway, cfg.TCPAddr)
	if err != nil {
		log.Fatalf("server: binding TCP %s: %v", cfg.TCPAddr, err)
	}
	ws := session.NewWebSocketTransport(gateway)

	flushers := map[session.Transport]session.Flusher{
		session.TransportTCP:       tcp,
		session.TransportWebSocket: ws,
	}

	loopCfg := control.Config{
		TickInterval:    time.Duration(cfg.TickIntervalMs) * time.Millisecond,
		StoreMaxRetries: cfg.StoreMaxRetries,
		IdleGrace:       time.Duration(cfg.IdleGraceSecs) * time.Second,
		AllowGuests:     cfg.AllowGuests,
		GuestBasename:   cfg.GuestBasename,
	}
	loop := control.NewLoop(w, p, pipeline, host, timers, gateway, st, flushers, loopCfg)
	loop.RestoreInit()

	auth := control.NewAuthService(w, cfg.JWTSecret, cfg.JWTExpirySeconds)

	mux := http.NewServeMux()
	auth.RegisterAuthRoutes(mux)
	loop.RegisterScriptRoutes(mux, auth)
	loop.RegisterStatsRoute(mux, auth)
	mux.Handle("/metrics", loop.Metrics().Handler())
	mux.HandleFunc("/ws", ws.HandleUpgrade)

	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go tcp.Serve()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("server: control-plane HTTP server: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("server: %s listening — tcp %s, ws via http %s/ws, control-plane %s",
		cfg.MudName, cfg.TCPAddr, cfg.HTTPAddr, cfg.HTTPAddr)

	err = loop.Run(ctx)
	if err != nil && err != context.Canceled {
		log.Printf("server: tick loop exited: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	tcp.Close()
}
