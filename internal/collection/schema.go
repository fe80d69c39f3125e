package collection

// schema creates the legacy Anki2 table layout this adapter speaks: a
// single-row `col` table carrying notetypes and decks as JSON blobs
// (exactly how Anki itself stores them — a deck tree is never stored,
// only a flat map of "::"-joined names, rebuilt into a tree on read),
// plus `notes` and `cards` tables with the columns spec.md §3 names.
//
// Mirrors the teacher's internal/core.Engine.initSchema: one big
// CREATE-TABLE-IF-NOT-EXISTS string executed once at Open.
const schema = `
CREATE TABLE IF NOT EXISTS col (
	id INTEGER PRIMARY KEY,
	crt INTEGER NOT NULL,
	mod INTEGER NOT NULL,
	scm INTEGER NOT NULL,
	ver INTEGER NOT NULL DEFAULT 18,
	usn INTEGER NOT NULL DEFAULT 0,
	conf TEXT NOT NULL DEFAULT '{}',
	models TEXT NOT NULL DEFAULT '{}',
	decks TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS notes (
	id INTEGER PRIMARY KEY,
	guid TEXT NOT NULL UNIQUE,
	mid INTEGER NOT NULL,
	mod INTEGER NOT NULL,
	usn INTEGER NOT NULL,
	tags TEXT NOT NULL DEFAULT '',
	flds TEXT NOT NULL DEFAULT '',
	sfld TEXT NOT NULL DEFAULT '',
	csum INTEGER NOT NULL DEFAULT 0,
	flags INTEGER NOT NULL DEFAULT 0,
	data TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_notes_mid ON notes(mid);

CREATE TABLE IF NOT EXISTS cards (
	id INTEGER PRIMARY KEY,
	nid INTEGER NOT NULL,
	did INTEGER NOT NULL,
	ord INTEGER NOT NULL DEFAULT 0,
	mod INTEGER NOT NULL,
	usn INTEGER NOT NULL DEFAULT 0,
	flags INTEGER NOT NULL DEFAULT 0,
	data TEXT NOT NULL DEFAULT '',

	FOREIGN KEY(nid) REFERENCES notes(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_cards_nid ON cards(nid);
CREATE INDEX IF NOT EXISTS idx_cards_did ON cards(did);

INSERT OR IGNORE INTO col (id, crt, mod, scm, decks)
VALUES (1, strftime('%s','now'), strftime('%s','now'), strftime('%s','now'),
	'{"1":{"id":1,"name":"Default"}}');
`
