package control

import (
	"fmt"
	"strings"

	"github.com/duskward/lodestone/pkg/session"
	"github.com/duskward/lodestone/pkg/store"
	"github.com/duskward/lodestone/pkg/world"
)

// minPasswordLength is enforced when setting a password, at creation or
// through a later change, but never when merely verifying one.
const minPasswordLength = 5

// loginStep tracks where a not-yet-connected session sits in the masked
// connect/create prompt sequence. A session with no pendingLogin entry is
// at the bare command prompt (connect/create/guest/quit).
type loginStep int

const (
	stepConnectPassword loginStep = iota
	stepCreatePassword
	stepCreateVerify
)

type pendingLogin struct {
	step     loginStep
	username string
	password string // held between stepCreatePassword and stepCreateVerify
}

type passwordChangeStep int

const (
	stepChangeCurrent passwordChangeStep = iota
	stepChangeNew
	stepChangeVerify
)

type pendingPasswordChange struct {
	step        passwordChangeStep
	current     string
	newPassword string
}

func (l *Loop) handleLoginLines(s *session.Session) {
	for _, line := range s.DrainInbound() {
		if pending, ok := l.pendingLogins[s.ID]; ok {
			l.continueLogin(s, pending, line)
			continue
		}
		l.handleLoginLine(s, line)
	}
}

func (l *Loop) handleLoginLine(s *session.Session, line string) {
	verb, rest := splitVerb(line)
	switch strings.ToLower(verb) {
	case "connect":
		l.beginConnect(s, rest)
	case "create":
		l.beginCreate(s, rest)
	case "guest":
		l.handleGuest(s)
	case "quit":
		s.Tell("Goodbye.")
		s.RequestClose()
	default:
		s.Tell(`Type "connect <name>" or "create <name>" to log in.`)
	}
}

func (l *Loop) beginConnect(s *session.Session, rest string) {
	username := strings.TrimSpace(rest)
	if username == "" {
		s.Tell("Connect to whom?")
		return
	}
	l.pendingLogins[s.ID] = &pendingLogin{step: stepConnectPassword, username: username}
	s.MarkSensitive()
	s.Prompt("Password:")
}

func (l *Loop) beginCreate(s *session.Session, rest string) {
	username := strings.TrimSpace(rest)
	if username == "" {
		s.Tell("Create what name?")
		return
	}
	if _, exists := l.world.LookupPlayer(username); exists {
		s.Tell("That name is already taken.")
		return
	}
	l.pendingLogins[s.ID] = &pendingLogin{step: stepCreatePassword, username: username}
	s.MarkSensitive()
	s.Prompt("Password:")
}

func (l *Loop) continueLogin(s *session.Session, pending *pendingLogin, line string) {
	switch pending.step {
	case stepConnectPassword:
		delete(l.pendingLogins, s.ID)
		l.finishConnect(s, pending.username, line)
	case stepCreatePassword:
		if len(line) < minPasswordLength {
			s.Tell(fmt.Sprintf("Passwords must be at least %d characters.", minPasswordLength))
			s.MarkSensitive()
			s.Prompt("Password:")
			return
		}
		pending.password = line
		pending.step = stepCreateVerify
		s.Tell("Password accepted.")
		s.MarkSensitive()
		s.Prompt("Verify password:")
	case stepCreateVerify:
		delete(l.pendingLogins, s.ID)
		if line != pending.password {
			s.Tell(`Passwords did not match. Start over with "create <name>".`)
			return
		}
		l.finishCreate(s, pending.username, pending.password)
	}
}

func (l *Loop) finishConnect(s *session.Session, username, password string) {
	id, ok := l.world.LookupPlayer(username)
	if !ok {
		s.Tell("Either that player does not exist, or has a different password.")
		return
	}
	player, ok := l.world.Player(id)
	if !ok || !store.VerifyPassword(password, player.PasswordHash) {
		s.Tell("Either that player does not exist, or has a different password.")
		return
	}
	l.gateway.Login(s, id)
	s.Tell(fmt.Sprintf("Welcome back, %s.", player.Username))
	l.gateway.Room(player.CurrentRoom, player.Username+" has connected.", id)
}

func (l *Loop) finishCreate(s *session.Session, username, password string) {
	if _, exists := l.world.LookupPlayer(username); exists {
		s.Tell("That name is already taken.")
		return
	}
	hash, err := store.HashPassword(password)
	if err != nil {
		s.Tell("Something went wrong creating your character.")
		return
	}
	id := l.world.CreatePlayer(username, hash, l.world.SpawnRoom)
	// Init-attached scripts run once, here, at creation. A later "connect"
	// for this same player must never re-run them.
	l.host.InitEntity(id)
	l.gateway.Login(s, id)
	s.Tell(fmt.Sprintf("Welcome, %s!", username))
	l.gateway.Room(l.world.SpawnRoom, username+" has connected.", id)
}

// handleGuest logs in an unauthenticated, disposable player when the config
// allows it, generating a unique sequential name off the configured base.
func (l *Loop) handleGuest(s *session.Session) {
	if !l.cfg.AllowGuests {
		s.Tell("Guest access is not available.")
		return
	}
	l.guestSeq++
	username := fmt.Sprintf("%s%d", l.cfg.GuestBasename, l.guestSeq)
	for {
		if _, exists := l.world.LookupPlayer(username); !exists {
			break
		}
		l.guestSeq++
		username = fmt.Sprintf("%s%d", l.cfg.GuestBasename, l.guestSeq)
	}
	hash, err := store.HashPassword(fmt.Sprintf("guest-%d", l.guestSeq))
	if err != nil {
		s.Tell("Guest access is not available.")
		return
	}
	id := l.world.CreatePlayer(username, hash, l.world.SpawnRoom)
	l.host.InitEntity(id)
	l.gateway.Login(s, id)
	s.Tell(fmt.Sprintf("Welcome, %s.", username))
	l.gateway.Room(l.world.SpawnRoom, username+" has connected.", id)
}

// beginPasswordChange starts the masked current/new/verify prompt sequence
// for a connected player's "password" command.
func (l *Loop) beginPasswordChange(s *session.Session) {
	l.pendingChanges[s.ID] = &pendingPasswordChange{step: stepChangeCurrent}
	s.MarkSensitive()
	s.Prompt("Current password:")
}

func (l *Loop) continuePasswordChange(s *session.Session, actor world.EntityID, pending *pendingPasswordChange, line string) {
	switch pending.step {
	case stepChangeCurrent:
		pending.current = line
		pending.step = stepChangeNew
		s.MarkSensitive()
		s.Prompt("New password:")
	case stepChangeNew:
		if len(line) < minPasswordLength {
			s.Tell(fmt.Sprintf("Passwords must be at least %d characters.", minPasswordLength))
			s.MarkSensitive()
			s.Prompt("New password:")
			return
		}
		pending.newPassword = line
		pending.step = stepChangeVerify
		s.MarkSensitive()
		s.Prompt("Verify new password:")
	case stepChangeVerify:
		delete(l.pendingChanges, s.ID)
		if line != pending.newPassword {
			s.Tell("Passwords did not match; password unchanged.")
			return
		}
		player, ok := l.world.Player(actor)
		if !ok || !store.VerifyPassword(pending.current, player.PasswordHash) {
			s.Tell("Current password incorrect; password unchanged.")
			return
		}
		hash, err := store.HashPassword(pending.newPassword)
		if err != nil {
			s.Tell("Something went wrong changing your password.")
			return
		}
		player.PasswordHash = hash
		l.world.MarkDirty(actor)
		s.Tell("Password changed.")
	}
}
