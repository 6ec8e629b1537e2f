package store

// schema is the durable relational schema, split into individual
// statements so it can be applied with plain database/sql Exec calls (the
// modernc.org/sqlite driver, like most database/sql drivers, does not
// promise multi-statement Exec).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id          INTEGER PRIMARY KEY,
		name        TEXT,
		description TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS exits (
		"from"    INTEGER NOT NULL,
		"to"      INTEGER NOT NULL,
		direction INTEGER NOT NULL,
		PRIMARY KEY ("from", direction)
	)`,
	`CREATE TABLE IF NOT EXISTS regions (
		id   INTEGER PRIMARY KEY,
		name TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS room_regions (
		room   INTEGER NOT NULL,
		region INTEGER NOT NULL,
		PRIMARY KEY (room, region)
	)`,
	`CREATE TABLE IF NOT EXISTS prototypes (
		id          INTEGER PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL,
		keywords    TEXT NOT NULL,
		flags       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS objects (
		id              INTEGER PRIMARY KEY,
		prototype_id    INTEGER NOT NULL,
		inherit_scripts INTEGER NOT NULL,
		name            TEXT,
		description     TEXT,
		flags           INTEGER,
		keywords        TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS room_objects (
		room   INTEGER NOT NULL,
		object INTEGER NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS player_inventories (
		player INTEGER NOT NULL,
		object INTEGER NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id          INTEGER PRIMARY KEY,
		username    TEXT NOT NULL UNIQUE,
		password    TEXT NOT NULL,
		description TEXT NOT NULL,
		flags       INTEGER NOT NULL,
		room        INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scripts (
		name    TEXT PRIMARY KEY,
		trigger TEXT NOT NULL,
		code    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prototype_scripts (
		owner_id   INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		script     TEXT NOT NULL,
		trigger    TEXT NOT NULL,
		timer_name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS object_scripts (
		owner_id   INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		script     TEXT NOT NULL,
		trigger    TEXT NOT NULL,
		timer_name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS room_scripts (
		owner_id   INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		script     TEXT NOT NULL,
		trigger    TEXT NOT NULL,
		timer_name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS player_scripts (
		owner_id   INTEGER NOT NULL,
		kind       TEXT NOT NULL,
		script     TEXT NOT NULL,
		trigger    TEXT NOT NULL,
		timer_name TEXT NOT NULL DEFAULT ''
	)`,
}

// attachmentTable returns the owner-kind-specific attachment table name.
func attachmentTable(kindName string) string {
	switch kindName {
	case "room":
		return "room_scripts"
	case "prototype":
		return "prototype_scripts"
	case "player":
		return "player_scripts"
	default:
		return "object_scripts"
	}
}
