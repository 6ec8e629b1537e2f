// Package parser implements the command parser: it turns a trimmed
// input line and an actor entity into an action.ActionIntent, resolving
// targets and gating immortal-only commands along the way.
package parser

import (
	"strings"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/world"
)

// immortalVerbs is the immortal-only command surface: shutdown, the
// four entity-family editors, script attachment management, and teleport.
var immortalVerbs = map[string]struct{}{
	"shutdown":  {},
	"teleport":  {},
	"object":    {},
	"player":    {},
	"room":      {},
	"prototype": {},
	"script":    {},
}

// directionOf maps every recognized movement token, including
// single-letter shorthand (n, s, e, w, ...), to a Direction via
// world.ParseDirection.
func directionOf(token string) (world.Direction, bool) {
	return world.ParseDirection(token)
}

// Parser resolves targets against a World; it holds no state of its own.
type Parser struct {
	World *world.World
}

// New returns a Parser bound to w.
func New(w *world.World) *Parser {
	return &Parser{World: w}
}

// Parse classifies one input line typed by actor.
func (p *Parser) Parse(actor world.EntityID, line string) action.ActionIntent {
	line = strings.TrimSpace(line)
	if line == "" {
		return action.ActionIntent{Kind: action.IntentParseError, Actor: actor, Text: "Say what?"}
	}

	if strings.HasPrefix(line, "'") {
		return action.ActionIntent{Kind: action.IntentSay, Actor: actor, Text: strings.TrimSpace(line[1:])}
	}
	if strings.HasPrefix(line, ";") {
		return action.ActionIntent{Kind: action.IntentEmote, Actor: actor, Text: strings.TrimSpace(line[1:])}
	}

	verb, rest := splitVerb(line)
	lowerVerb := strings.ToLower(verb)

	if dir, ok := directionOf(lowerVerb); ok {
		return action.ActionIntent{Kind: action.IntentMove, Actor: actor, Direction: dir}
	}

	if _, ok := immortalVerbs[lowerVerb]; ok {
		if !p.isImmortal(actor) {
			return action.ActionIntent{Kind: action.IntentPermissionError, Actor: actor, Text: "not permitted"}
		}
		return action.ActionIntent{Kind: action.IntentImmortal, Actor: actor, RawCommand: line}
	}

	switch lowerVerb {
	case "say":
		return action.ActionIntent{Kind: action.IntentSay, Actor: actor, Text: rest}
	case "emote", "me":
		return action.ActionIntent{Kind: action.IntentEmote, Actor: actor, Text: rest}
	case "send":
		return p.parseSend(actor, rest)
	case "get", "take":
		return p.parseTargeted(actor, rest, action.IntentGet, action.TriggerGet)
	case "drop":
		return p.parseTargeted(actor, rest, action.IntentDrop, action.TriggerDrop)
	case "inventory", "inv", "i":
		return action.ActionIntent{Kind: action.IntentInventory, Actor: actor}
	case "look", "l":
		if rest == "" {
			return action.ActionIntent{Kind: action.IntentLook, Actor: actor}
		}
		keyword := rest
		if strings.HasPrefix(strings.ToLower(rest), "at ") {
			keyword = strings.TrimSpace(rest[3:])
		}
		return p.parseTargeted(actor, keyword, action.IntentLookAt, action.TriggerLookAt)
	case "password":
		return action.ActionIntent{Kind: action.IntentChangePassword, Actor: actor}
	case "exits":
		return action.ActionIntent{Kind: action.IntentExits, Actor: actor}
	case "who":
		return action.ActionIntent{Kind: action.IntentWho, Actor: actor}
	default:
		return action.ActionIntent{Kind: action.IntentUnknown, Actor: actor, Text: "Huh? I don't understand that.", RawCommand: line}
	}
}

// parseSend resolves the recipient by exact-case name match.
func (p *Parser) parseSend(actor world.EntityID, rest string) action.ActionIntent {
	name, text, found := cutFirstWord(rest)
	if !found {
		return action.ActionIntent{Kind: action.IntentParseError, Actor: actor, Text: "Send to whom?"}
	}
	id, ok := p.World.ResolveTarget(actor, name)
	if !ok {
		return action.ActionIntent{Kind: action.IntentResolutionError, Actor: actor, Text: "They aren't here.", TargetResolved: false, Trigger: action.TriggerSend}
	}
	return action.ActionIntent{Kind: action.IntentSend, Actor: actor, Target: id, TargetResolved: true, Text: text, Trigger: action.TriggerSend}
}

// parseTargeted resolves a single keyword argument against ResolveTarget,
// producing a ResolutionError intent (still dispatched) on miss. trig is
// the trigger this command would have carried had resolution succeeded;
// it rides along on the ResolutionError intent too, since Kind alone can't
// say what was meant once it's overwritten.
func (p *Parser) parseTargeted(actor world.EntityID, keyword string, kind action.IntentKind, trig action.Trigger) action.ActionIntent {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return action.ActionIntent{Kind: action.IntentParseError, Actor: actor, Text: "Do that to what?"}
	}
	id, ok := p.World.ResolveTarget(actor, keyword)
	if !ok {
		return action.ActionIntent{Kind: action.IntentResolutionError, Actor: actor, Text: "You don't see that here.", Trigger: trig}
	}
	return action.ActionIntent{Kind: kind, Actor: actor, Target: id, TargetResolved: true, Trigger: trig}
}

func (p *Parser) isImmortal(actor world.EntityID) bool {
	player, ok := p.World.Player(actor)
	if !ok {
		return false
	}
	return player.HasFlag(world.PlayerImmortal)
}

// splitVerb splits a line into its first token and the remainder.
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
