package control

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/script"
)

// scriptOp names the mutation a scriptJob asks the tick loop to perform.
type scriptOp int

const (
	opCreate scriptOp = iota
	opRead
	opReadAll
	opUpdate
	opDelete
)

// scriptJob is a control-plane -> simulation request, correlated by a uuid
// so the submitting HTTP handler can match it against its scriptJobResult
// without a second lock: the handler blocks on a private reply channel it
// owns, the loop never touches goroutine-shared state to answer it.
type scriptJob struct {
	id      uuid.UUID
	op      scriptOp
	name    string
	trigger action.Trigger
	source  string
	reply   chan scriptJobResult
}

type scriptJobResult struct {
	script       *scriptView
	scripts      []*scriptView
	compileError string
	notFound     bool
	duplicate    bool
}

// scriptView is the JSON-facing projection of a script.Script: it never
// exposes the compiled program, only what a client submitted plus whatever
// compile diagnostics came back.
type scriptView struct {
	Name         string `json:"name"`
	Trigger      string `json:"trigger"`
	Code         string `json:"code"`
	CompileError string `json:"compile_error,omitempty"`
}

// submitScriptJob enqueues a job and blocks until the tick goroutine has
// applied it and sent back its result. Enqueueing itself blocks while the
// loop's job queue is full.
func (l *Loop) submitScriptJob(job scriptJob) scriptJobResult {
	job.id = uuid.New()
	job.reply = make(chan scriptJobResult, 1)
	l.scriptJobs <- job
	return <-job.reply
}

// drainScriptJobs applies every queued control-plane script mutation
// synchronously, inside the tick goroutine, preserving the single-writer
// invariant over the script host.
func (l *Loop) drainScriptJobs() {
	for {
		select {
		case job := <-l.scriptJobs:
			job.reply <- l.applyScriptJob(job)
		default:
			return
		}
	}
}

func (l *Loop) applyScriptJob(job scriptJob) scriptJobResult {
	switch job.op {
	case opCreate:
		if _, exists := l.host.AllScripts()[job.name]; exists {
			return scriptJobResult{duplicate: true}
		}
		sc := l.host.AddScript(job.name, job.trigger, job.source)
		return scriptJobResult{script: toScriptView(sc)}

	case opRead:
		sc, ok := l.host.AllScripts()[job.name]
		if !ok {
			return scriptJobResult{notFound: true}
		}
		return scriptJobResult{script: toScriptView(sc)}

	case opReadAll:
		all := l.host.AllScripts()
		views := make([]*scriptView, 0, len(all))
		for _, sc := range all {
			views = append(views, toScriptView(sc))
		}
		return scriptJobResult{scripts: views}

	case opUpdate:
		if _, exists := l.host.AllScripts()[job.name]; !exists {
			return scriptJobResult{notFound: true}
		}
		sc := l.host.AddScript(job.name, job.trigger, job.source)
		return scriptJobResult{script: toScriptView(sc)}

	case opDelete:
		if _, exists := l.host.AllScripts()[job.name]; !exists {
			return scriptJobResult{notFound: true}
		}
		l.host.RemoveScript(job.name)
		return scriptJobResult{}

	default:
		return scriptJobResult{notFound: true}
	}
}

func toScriptView(sc *script.Script) *scriptView {
	v := &scriptView{Name: sc.Name, Trigger: sc.Trigger.String(), Code: sc.Code}
	if sc.CompileError != nil {
		v.CompileError = sc.CompileError.Error()
	}
	return v
}

type scriptCreateRequest struct {
	Name    string `json:"name"`
	Trigger string `json:"trigger"`
	Code    string `json:"code"`
}

// RegisterScriptRoutes mounts the script CRUD endpoints under mux, gating
// every one on a bearer token carrying the "scripts" scope.
func (l *Loop) RegisterScriptRoutes(mux *http.ServeMux, auth *AuthService) {
	mux.Handle("/scripts/create", auth.require("scripts", http.HandlerFunc(l.handleScriptCreate)))
	mux.Handle("/scripts/read", auth.require("scripts", http.HandlerFunc(l.handleScriptRead)))
	mux.Handle("/scripts/read/all", auth.require("scripts", http.HandlerFunc(l.handleScriptReadAll)))
	mux.Handle("/scripts/update", auth.require("scripts", http.HandlerFunc(l.handleScriptUpdate)))
	mux.Handle("/scripts/delete", auth.require("scripts", http.HandlerFunc(l.handleScriptDelete)))
}

func (l *Loop) handleScriptCreate(w http.ResponseWriter, r *http.Request) {
	var req scriptCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "bad name")
		return
	}
	trig, ok := action.ParseTrigger(req.Trigger)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad trigger")
		return
	}
	res := l.submitScriptJob(scriptJob{op: opCreate, name: req.Name, trigger: trig, source: req.Code})
	if res.duplicate {
		writeJSONError(w, http.StatusConflict, "duplicate name")
		return
	}
	writeJSON(w, http.StatusOK, res.script)
}

func (l *Loop) handleScriptRead(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "bad name")
		return
	}
	res := l.submitScriptJob(scriptJob{op: opRead, name: name})
	if res.notFound {
		writeJSONError(w, http.StatusNotFound, "unknown script")
		return
	}
	writeJSON(w, http.StatusOK, res.script)
}

func (l *Loop) handleScriptReadAll(w http.ResponseWriter, r *http.Request) {
	res := l.submitScriptJob(scriptJob{op: opReadAll})
	writeJSON(w, http.StatusOK, res.scripts)
}

func (l *Loop) handleScriptUpdate(w http.ResponseWriter, r *http.Request) {
	var req scriptCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "bad name")
		return
	}
	trig, ok := action.ParseTrigger(req.Trigger)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "bad trigger")
		return
	}
	res := l.submitScriptJob(scriptJob{op: opUpdate, name: req.Name, trigger: trig, source: req.Code})
	if res.notFound {
		writeJSONError(w, http.StatusNotFound, "unknown script")
		return
	}
	writeJSON(w, http.StatusOK, res.script)
}

func (l *Loop) handleScriptDelete(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "bad name")
		return
	}
	res := l.submitScriptJob(scriptJob{op: opDelete, name: name})
	if res.notFound {
		writeJSONError(w, http.StatusNotFound, "unknown script")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
