package action

import "github.com/duskward/lodestone/pkg/world"

// Event is the read-only snapshot scripts observe as EVENT during dispatch.
// It is built once per intent and shared, by value, across every script
// invocation in the tick — scripts never mutate it, so sharing is safe.
type Event struct {
	Kind   Trigger
	Actor  world.EntityID
	Target world.EntityID // Nothing if the intent had no resolvable target

	Direction world.Direction // valid when Kind == TriggerMove
	Text      string          // say/emote/send payload
	TimerName string          // valid when Kind == TriggerTimer

	// TargetResolved is false when parsing failed to find Target (a
	// ResolutionError intent still produces an Event so post-observing
	// scripts can branch on the miss.
	TargetResolved bool

	// OriginRoom/DestRoom are both set for movement events: OriginRoom is
	// the pre-dispatch locus, DestRoom the post-dispatch locus.
	OriginRoom world.EntityID
	DestRoom   world.EntityID
}

// IsMove, IsEmote, ... are the EVENT kind-predicates exposed to scripts.
func (e Event) IsMove() bool      { return e.Kind == TriggerMove }
func (e Event) IsEmote() bool     { return e.Kind == TriggerEmote }
func (e Event) IsSay() bool       { return e.Kind == TriggerSay }
func (e Event) IsGet() bool       { return e.Kind == TriggerGet }
func (e Event) IsDrop() bool      { return e.Kind == TriggerDrop }
func (e Event) IsLook() bool      { return e.Kind == TriggerLook }
func (e Event) IsLookAt() bool    { return e.Kind == TriggerLookAt }
func (e Event) IsSend() bool      { return e.Kind == TriggerSend }
func (e Event) IsUse() bool       { return e.Kind == TriggerUse }
func (e Event) IsTimer() bool     { return e.Kind == TriggerTimer }
func (e Event) IsInventory() bool { return e.Kind == TriggerInventory }
func (e Event) IsExits() bool     { return e.Kind == TriggerExits }
