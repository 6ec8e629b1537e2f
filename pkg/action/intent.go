package action

import "github.com/duskward/lodestone/pkg/world"

// IntentKind classifies what the parser understood a command line to mean.
type IntentKind int

const (
	IntentSay IntentKind = iota
	IntentEmote
	IntentSend
	IntentMe
	IntentGet
	IntentDrop
	IntentInventory
	IntentMove
	IntentTeleport
	IntentLook
	IntentLookAt
	IntentExits
	IntentWho
	IntentImmortal // immortal-only command; RawCommand carries the full line
	IntentChangePassword
	IntentUnknown
	IntentParseError
	IntentPermissionError
	IntentResolutionError
)

// ActionIntent is what the command parser produces from one input
// line: a classified, target-resolved instruction ready for the pipeline.
type ActionIntent struct {
	Kind           IntentKind
	Actor          world.EntityID
	Target         world.EntityID // Nothing if unresolved
	TargetResolved bool
	Direction      world.Direction
	Text           string // say/emote/send payload, or the error message for *Error kinds
	RawCommand     string // full input line, used by immortal-command dispatch

	// Trigger carries the command's intended trigger through a failed
	// target resolution, since Kind gets overwritten to
	// IntentResolutionError and can no longer say what was meant. Set by
	// parser.parseTargeted/parseSend; consulted by Dispatch when
	// intentTrigger can't classify Kind on its own.
	Trigger Trigger
}
