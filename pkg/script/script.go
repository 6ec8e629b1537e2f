// Package script implements the script host: compilation and
// operation-budgeted execution of scripts attached to entities, exposing
// the SELF/EVENT/WORLD bindings the pipeline and timer scheduler drive
// through the action.ScriptDispatcher contract.
package script

import (
	"fmt"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/world"
)

// CompileError describes why a script failed to compile, persisted
// alongside the script.
type CompileError struct {
	Line     int
	Position int
	Message  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Position, e.Message)
}

// Script is one named, compiled unit of source.
type Script struct {
	Name         string
	Trigger      action.Trigger
	Code         string
	compiled     *program
	CompileError *CompileError
}

// AttachKind mirrors action.AttachKind but lives here too so callers of
// this package don't need to import pkg/action just to build an attachment.
type AttachKind = action.AttachKind

// Attachment records one (entity, kind, script, trigger) tuple. TimerName
// is only meaningful when Kind == action.AttachTimer.
type Attachment struct {
	Entity     world.EntityID
	Kind       AttachKind
	ScriptName string
	Trigger    action.Trigger
	TimerName  string
}

// RuntimeError is recorded per-entity per-script on execution failure or
// budget exhaustion; it never aborts the tick.
type RuntimeError struct {
	Entity     world.EntityID
	ScriptName string
	Message    string
}
