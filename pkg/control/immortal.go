package control

import (
	"strconv"
	"strings"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/script"
	"github.com/duskward/lodestone/pkg/session"
	"github.com/duskward/lodestone/pkg/world"
)

// handleImmortalCommand dispatches the immortal-only command surface:
// shutdown, teleport <room>, the four entity-family editors, and
// script attach/detach. The parser has already checked the actor carries
// the immortal flag before producing an IntentImmortal.
func (l *Loop) handleImmortalCommand(s *session.Session, intent action.ActionIntent) {
	verb, rest := splitVerb(intent.RawCommand)
	switch strings.ToLower(verb) {
	case "shutdown":
		l.handleShutdown(s)
	case "teleport":
		l.handleTeleport(s, intent.Actor, rest)
	case "room":
		l.handleRoomCommand(s, rest)
	case "prototype":
		l.handlePrototypeCommand(s, rest)
	case "object":
		l.handleObjectCommand(s, rest)
	case "player":
		l.handlePlayerCommand(s, rest)
	case "script":
		l.handleScriptCommand(s, rest)
	default:
		s.Tell("Huh?  (Type \"help\" for help.)")
	}
}

func (l *Loop) handleShutdown(s *session.Session) {
	s.Tell("Shutting down.")
	close(l.shutdownCh)
}

func (l *Loop) handleTeleport(s *session.Session, actor world.EntityID, rest string) {
	id, ok := parseEntityID(rest)
	if !ok {
		s.Tell("not found")
		return
	}
	if _, ok := l.world.Room(id); !ok {
		s.Tell("not found")
		return
	}
	if err := l.world.MovePlayer(actor, id); err != nil {
		s.Tell("not found")
		return
	}
	s.Tell("Teleported.")
}

func parseEntityID(s string) (world.EntityID, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return world.Nothing, false
	}
	return world.EntityID(n), true
}

// resolveEntity accepts either a bare/`#`-prefixed numeric id or, when kind
// is "player", a username.
func (l *Loop) resolveEntity(kind, token string) (world.EntityID, bool) {
	if id, ok := parseEntityID(token); ok {
		return id, true
	}
	if strings.EqualFold(kind, "player") {
		return l.world.LookupPlayer(token)
	}
	return world.Nothing, false
}

func splitEquals(s string) (left, right string) {
	idx := strings.IndexByte(s, '=')
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

// --- room ---

func (l *Loop) handleRoomCommand(s *session.Session, rest string) {
	verb, rest := splitVerb(rest)
	switch strings.ToLower(verb) {
	case "create":
		id := l.world.CreateRoom(rest)
		s.Tell("Created room " + id.String() + ".")
	case "describe":
		idTok, desc := splitEquals(rest)
		id, ok := parseEntityID(idTok)
		if !ok {
			s.Tell("not found")
			return
		}
		room, ok := l.world.Room(id)
		if !ok {
			s.Tell("not found")
			return
		}
		room.Description = desc
		l.world.MarkDirty(id)
		s.Tell("Described.")
	case "link":
		idTok, dirTok, ok := cutFirstWord(rest)
		destTok, _, ok2 := cutFirstWord(dirTok)
		_ = ok
		_ = ok2
		l.doRoomLink(s, idTok, dirTok, destTok)
	case "unlink":
		idTok, dirTok, ok := cutFirstWord(rest)
		if !ok {
			s.Tell("bad flag")
			return
		}
		id, ok := parseEntityID(idTok)
		dir, dok := world.ParseDirection(strings.ToLower(strings.TrimSpace(dirTok)))
		if !ok || !dok {
			s.Tell("bad flag")
			return
		}
		if err := l.world.Unlink(id, dir); err != nil {
			s.Tell("not found")
			return
		}
		s.Tell("Unlinked.")
	case "remove":
		id, ok := parseEntityID(rest)
		if !ok {
			s.Tell("not found")
			return
		}
		if err := l.world.RemoveRoom(id); err != nil {
			s.Tell("not found")
			return
		}
		s.Tell("Removed.")
	default:
		s.Tell("bad flag")
	}
}

// doRoomLink parses "room link <id> <direction> <destId>" — cutFirstWord
// peels off id, then direction, leaving destId.
func (l *Loop) doRoomLink(s *session.Session, idTok, remainder, _dirLeftover string) {
	dirTok, destTok, ok := cutFirstWord(remainder)
	if !ok {
		s.Tell("bad flag")
		return
	}
	id, ok := parseEntityID(idTok)
	dir, dok := world.ParseDirection(strings.ToLower(strings.TrimSpace(dirTok)))
	dest, dok2 := parseEntityID(destTok)
	if !ok || !dok || !dok2 {
		s.Tell("bad flag")
		return
	}
	if err := l.world.Link(id, dir, dest); err != nil {
		s.Tell("not found")
		return
	}
	s.Tell("Linked.")
}

// --- prototype ---

func (l *Loop) handlePrototypeCommand(s *session.Session, rest string) {
	verb, rest := splitVerb(rest)
	switch strings.ToLower(verb) {
	case "create":
		fields := strings.SplitN(rest, "=", 4)
		if len(fields) < 3 {
			s.Tell("bad flag")
			return
		}
		name := strings.TrimSpace(fields[0])
		desc := strings.TrimSpace(fields[1])
		var keywords []string
		for _, kw := range strings.Split(fields[2], ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		var flags world.PrototypeFlag
		if len(fields) == 4 {
			f, ok := parsePrototypeFlags(fields[3])
			if !ok {
				s.Tell("bad flag")
				return
			}
			flags = f
		}
		id := l.world.CreatePrototype(name, desc, keywords, flags)
		s.Tell("Created prototype " + id.String() + ".")
	case "remove":
		id, ok := parseEntityID(rest)
		if !ok {
			s.Tell("not found")
			return
		}
		if err := l.world.RemovePrototype(id); err != nil {
			s.Tell("not found")
			return
		}
		s.Tell("Removed.")
	default:
		s.Tell("bad flag")
	}
}

func parsePrototypeFlags(csv string) (world.PrototypeFlag, bool) {
	var flags world.PrototypeFlag
	for _, name := range strings.Split(csv, ",") {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "fixed":
			flags |= world.FlagFixed
		case "subtle":
			flags |= world.FlagSubtle
		case "":
		default:
			return 0, false
		}
	}
	return flags, true
}

// --- object ---

func (l *Loop) handleObjectCommand(s *session.Session, rest string) {
	first, rem, ok := cutFirstWord(rest)
	if !ok {
		s.Tell("bad flag")
		return
	}
	if strings.EqualFold(first, "create") {
		l.doObjectCreate(s, rem)
		return
	}

	// Every other form starts with an id: `object <id> init|override|remove ...`
	id, ok := parseEntityID(first)
	if !ok {
		s.Tell("not found")
		return
	}
	verb, rem2, _ := cutFirstWord(rem)
	switch strings.ToLower(verb) {
	case "init":
		l.host.InitEntity(id)
		s.Tell("Initialized.")
	case "remove":
		if err := l.world.RemoveObject(id); err != nil {
			s.Tell("not found")
			return
		}
		s.Tell("Removed.")
	case "override":
		l.doObjectOverride(s, id, rem2)
	case "inherit":
		l.doObjectInherit(s, id, rem2)
	default:
		s.Tell("bad flag")
	}
}

func (l *Loop) doObjectCreate(s *session.Session, rest string) {
	protoTok, rem, ok := cutFirstWord(rest)
	if !ok {
		s.Tell("bad flag")
		return
	}
	kindTok, rem2, ok := cutFirstWord(rem)
	if !ok {
		s.Tell("bad flag")
		return
	}
	containerTok, flagTok, _ := cutFirstWord(rem2)

	protoID, ok := parseEntityID(protoTok)
	if !ok {
		s.Tell("not found")
		return
	}

	var containerKind world.Kind
	switch strings.ToLower(kindTok) {
	case "room":
		containerKind = world.KindRoom
	case "player":
		containerKind = world.KindPlayer
	default:
		s.Tell("bad flag")
		return
	}
	containerID, ok := l.resolveEntity(kindTok, containerTok)
	if !ok {
		s.Tell("not found")
		return
	}
	inherit := strings.EqualFold(strings.TrimSpace(flagTok), "inherit")

	id, err := l.world.CreateObject(protoID, inherit, containerKind, containerID)
	if err != nil {
		s.Tell("not found")
		return
	}
	s.Tell("Created object " + id.String() + ".")
}

func (l *Loop) doObjectOverride(s *session.Session, id world.EntityID, rest string) {
	obj, ok := l.world.Object(id)
	if !ok {
		s.Tell("not found")
		return
	}
	field, value := splitEquals(rest)
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "name":
		obj.OverrideName = &value
	case "description":
		obj.OverrideDescription = &value
	case "keywords":
		var kws []string
		for _, kw := range strings.Split(value, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		obj.OverrideKeywords = kws
	default:
		s.Tell("bad flag")
		return
	}
	l.world.MarkDirty(id)
	s.Tell("Overridden.")
}

// doObjectInherit clears one field's override, restoring the prototype's
// fallback value. Keywords must be nilled rather than set to an empty
// slice — a non-nil empty slice still means "overridden to nothing".
func (l *Loop) doObjectInherit(s *session.Session, id world.EntityID, rest string) {
	obj, ok := l.world.Object(id)
	if !ok {
		s.Tell("not found")
		return
	}
	field := strings.ToLower(strings.TrimSpace(rest))
	switch field {
	case "name":
		obj.OverrideName = nil
	case "description":
		obj.OverrideDescription = nil
	case "keywords":
		obj.OverrideKeywords = nil
	case "flags":
		obj.OverrideFlags = nil
	default:
		s.Tell("bad flag")
		return
	}
	l.world.MarkDirty(id)
	s.Tell("Inherited.")
}

// --- player ---

func (l *Loop) handlePlayerCommand(s *session.Session, rest string) {
	verb, rest := splitVerb(rest)
	target, _, ok := cutFirstWord(rest)
	if !ok {
		s.Tell("bad flag")
		return
	}
	id, ok := l.resolveEntity("player", target)
	if !ok {
		s.Tell("not found")
		return
	}
	player, ok := l.world.Player(id)
	if !ok {
		s.Tell("not found")
		return
	}
	switch strings.ToLower(verb) {
	case "promote":
		player.Flags |= world.PlayerImmortal
		l.world.MarkDirty(id)
		s.Tell("Promoted.")
	case "demote":
		player.Flags &^= world.PlayerImmortal
		l.world.MarkDirty(id)
		s.Tell("Demoted.")
	case "remove":
		if err := l.world.RemovePlayer(id); err != nil {
			s.Tell("not found")
			return
		}
		s.Tell("Removed.")
	default:
		s.Tell("bad flag")
	}
}

// --- script (in-world attach/detach; control-plane CRUD lives in scripts.go) ---

func (l *Loop) handleScriptCommand(s *session.Session, rest string) {
	name, rest, ok := cutFirstWord(rest)
	if !ok {
		s.Tell("bad flag")
		return
	}
	sc, ok := l.host.AllScripts()[name]
	if !ok {
		s.Tell("unknown id")
		return
	}
	verb, rest, ok := cutFirstWord(rest)
	if !ok {
		s.Tell("bad flag")
		return
	}

	var kind action.AttachKind
	var timerName string
	switch strings.ToLower(verb) {
	case "attach-pre":
		kind = action.AttachPre
	case "attach-post":
		kind = action.AttachPost
	case "attach-init":
		kind = action.AttachInit
	case "attach-timer":
		kind = action.AttachTimer
		var ok bool
		timerName, rest, ok = cutFirstWord(rest)
		if !ok {
			s.Tell("bad flag")
			return
		}
	case "detach":
		l.doScriptDetach(s, name, rest)
		return
	default:
		s.Tell("bad flag")
		return
	}

	kindTok, idTok, ok := cutFirstWord(rest)
	if !ok {
		s.Tell("bad flag")
		return
	}
	entity, ok := l.resolveEntity(kindTok, idTok)
	if !ok {
		s.Tell("not found")
		return
	}
	l.host.Attach(script.Attachment{
		Entity:     entity,
		Kind:       kind,
		ScriptName: name,
		Trigger:    sc.Trigger,
		TimerName:  timerName,
	})
	s.Tell("Attached.")
}

func (l *Loop) doScriptDetach(s *session.Session, name, rest string) {
	kindTok, idTok, ok := cutFirstWord(rest)
	if !ok {
		s.Tell("bad flag")
		return
	}
	entity, ok := l.resolveEntity(kindTok, idTok)
	if !ok {
		s.Tell("not found")
		return
	}
	for _, a := range l.host.AllAttachments()[entity] {
		if a.ScriptName == name {
			l.host.Detach(a)
		}
	}
	s.Tell("Detached.")
}
