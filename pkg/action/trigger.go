// Package action implements the per-tick event/action pipeline: it builds an
// Event from a parsed intent, dispatches pre-scripts, runs the system
// effect, then dispatches post-scripts, honoring the allow_action veto and
// a deterministic ordering of attached scripts.
package action

// Trigger is the event family a script attachment listens to.
type Trigger int

const (
	TriggerDrop Trigger = iota
	TriggerEmote
	TriggerExits
	TriggerGet
	TriggerInit
	TriggerInventory
	TriggerLook
	TriggerLookAt
	TriggerMove
	TriggerSay
	TriggerSend
	TriggerTimer
	TriggerUse
	TriggerWho
)

var triggerNames = map[Trigger]string{
	TriggerDrop:      "Drop",
	TriggerEmote:     "Emote",
	TriggerExits:     "Exits",
	TriggerGet:       "Get",
	TriggerInit:      "Init",
	TriggerInventory: "Inventory",
	TriggerLook:      "Look",
	TriggerLookAt:    "LookAt",
	TriggerMove:      "Move",
	TriggerSay:       "Say",
	TriggerSend:      "Send",
	TriggerTimer:     "Timer",
	TriggerUse:       "Use",
	TriggerWho:       "Who",
}

func (t Trigger) String() string {
	if name, ok := triggerNames[t]; ok {
		return name
	}
	return "Unknown"
}

// ParseTrigger maps a trigger name (case-sensitive, as persisted) back to a Trigger.
func ParseTrigger(name string) (Trigger, bool) {
	for t, n := range triggerNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// AttachKind is the dispatch phase a ScriptAttachment participates in.
type AttachKind int

const (
	AttachPre AttachKind = iota
	AttachPost
	AttachInit
	AttachTimer // filtered further by TimerName
)

func (k AttachKind) String() string {
	switch k {
	case AttachPre:
		return "pre"
	case AttachPost:
		return "post"
	case AttachInit:
		return "init"
	case AttachTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// ParseAttachKind maps a persisted attach-kind string back to an
// AttachKind, for the store's load path.
func ParseAttachKind(name string) (AttachKind, bool) {
	switch name {
	case "pre":
		return AttachPre, true
	case "post":
		return AttachPost, true
	case "init":
		return AttachInit, true
	case "timer":
		return AttachTimer, true
	default:
		return 0, false
	}
}
