package control

import (
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/duskward/lodestone/pkg/session"
	"github.com/duskward/lodestone/pkg/world"
)

// ConnectionStats breaks down live sessions by transport and state.
func (l *Loop) ConnectionStats() map[string]any {
	sessions := l.gateway.Sessions()
	tcp, ws, login, connected := 0, 0, 0, 0
	for _, s := range sessions {
		switch s.Transport {
		case session.TransportTCP:
			tcp++
		case session.TransportWebSocket:
			ws++
		}
		switch s.State() {
		case session.StateLogin:
			login++
		case session.StateConnected:
			connected++
		}
	}
	return map[string]any{
		"total": len(sessions),
		"tcp":   tcp,
		"ws":    ws,
		"login": login,
		"conn":  connected,
	}
}

// MemoryStats reports Go runtime memory usage in both raw and
// human-readable form.
func (l *Loop) MemoryStats() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"heap_alloc_bytes": m.HeapAlloc,
		"heap_alloc":       humanize.Bytes(m.HeapAlloc),
		"heap_inuse_bytes": m.HeapInuse,
		"goroutines":       runtime.NumGoroutine(),
		"gc_cycles":        m.NumGC,
	}
}

// WorldStats counts live entities by kind.
func (l *Loop) WorldStats() map[string]any {
	counts := map[string]int{"rooms": 0, "objects": 0, "players": 0, "prototypes": 0}
	for _, id := range l.world.AllIDs() {
		kind, ok := l.world.KindOf(id)
		if !ok {
			continue
		}
		switch kind {
		case world.KindRoom:
			counts["rooms"]++
		case world.KindObject:
			counts["objects"]++
		case world.KindPlayer:
			counts["players"]++
		case world.KindPrototype:
			counts["prototypes"]++
		}
	}
	return map[string]any{
		"counts":        counts,
		"scripts":       len(l.host.AllScripts()),
		"script_errors": len(l.host.Errors),
		"store_path":    l.store.Path(),
	}
}

// UptimeStats reports how long this process has been running.
func (l *Loop) UptimeStats() map[string]any {
	uptime := time.Since(l.startedAt)
	return map[string]any{
		"seconds": uptime.Seconds(),
		"human":   humanize.RelTime(l.startedAt, time.Now(), "", ""),
	}
}

// RegisterStatsRoute mounts the admin stats endpoint, gated on the
// "scripts" scope since only immortals reach the control plane at all in
// this deployment shape.
func (l *Loop) RegisterStatsRoute(mux *http.ServeMux, auth *AuthService) {
	mux.Handle("/admin/stats", auth.require("scripts", http.HandlerFunc(l.handleStats)))
}

func (l *Loop) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connections": l.ConnectionStats(),
		"memory":      l.MemoryStats(),
		"world":       l.WorldStats(),
		"uptime":      l.UptimeStats(),
	})
}
