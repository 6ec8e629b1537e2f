package world

// PrototypeFlag is a bit in a Prototype's flag set.
type PrototypeFlag uint32

const (
	FlagFixed  PrototypeFlag = 1 << iota // cannot be picked up
	FlagSubtle                           // excluded from room listings, still addressable by keyword
)

// PlayerFlag is a bit in a Player's flag set.
type PlayerFlag uint32

const (
	PlayerImmortal PlayerFlag = 1 << iota // grants access to world-editing commands
)

// Room is the component attached to a KindRoom entity.
type Room struct {
	Description string
	Exits       map[Direction]EntityID
	Regions     map[EntityID]struct{}
}

// NewRoom returns an empty Room with initialized maps.
func NewRoom(description string) *Room {
	return &Room{
		Description: description,
		Exits:       make(map[Direction]EntityID),
		Regions:     make(map[EntityID]struct{}),
	}
}

// Prototype is the component attached to a KindPrototype entity; it is the
// template concrete Objects inherit fields from.
type Prototype struct {
	Name        string
	Description string
	Keywords    []string
	Flags       PrototypeFlag
}

// Object is the component attached to a KindObject entity. Override* fields
// are nil/empty-tri-state: nil means "not overridden, fall back to the
// prototype".
type Object struct {
	PrototypeID    EntityID
	InheritScripts bool

	OverrideName        *string
	OverrideDescription *string
	OverrideKeywords    []string // nil = not overridden; non-nil (incl. empty) = overridden
	OverrideFlags       *PrototypeFlag

	// Container tracks the single place this object currently resides:
	// either a Room or a Player's inventory. Container holds that Room or
	// Player id, and ContainerKind says which of the two it is.
	ContainerKind Kind
	Container     EntityID
}

// Player is the component attached to a KindPlayer entity.
type Player struct {
	Username     string
	PasswordHash string
	Description  string
	Flags        PlayerFlag
	CurrentRoom  EntityID

	// ScriptData is the player's private script-data map. It is never
	// persisted; init scripts rebuild it on load.
	ScriptData map[string]string
}

// NewPlayer returns a Player with initialized maps.
func NewPlayer(username, passwordHash string, room EntityID) *Player {
	return &Player{
		Username:     username,
		PasswordHash: passwordHash,
		CurrentRoom:  room,
		ScriptData:   make(map[string]string),
	}
}

// HasFlag reports whether the immortal (or other) player flag bit is set.
func (p *Player) HasFlag(f PlayerFlag) bool {
	return p.Flags&f != 0
}
