package collection

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pwintz/ki/internal/kitypes"
)

const fieldSep = "\x1f"

// NoteByGUID loads a note by its guid, returning (nil, false, nil) if
// absent, mirroring the original's col.find_notes('guid:...').
func (c *Collection) NoteByGUID(guid string) (*kitypes.ColNote, bool, error) {
	row := c.QueryRow(`SELECT id, mid, tags, flds, sfld FROM notes WHERE guid = ?`, guid)
	return c.scanNote(row, guid)
}

// NoteByID loads a note by nid.
func (c *Collection) NoteByID(nid int64) (*kitypes.ColNote, bool, error) {
	row := c.QueryRow(`SELECT guid, mid, tags, flds, sfld FROM notes WHERE id = ?`, nid)
	var guid string
	var mid int64
	var tags, flds, sfld string
	if err := row.Scan(&guid, &mid, &tags, &flds, &sfld); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return c.assembleNote(nid, guid, mid, tags, flds, sfld)
}

func (c *Collection) scanNote(row *sql.Row, guid string) (*kitypes.ColNote, bool, error) {
	var nid, mid int64
	var tags, flds, sfld string
	if err := row.Scan(&nid, &mid, &tags, &flds, &sfld); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return c.assembleNote(nid, guid, mid, tags, flds, sfld)
}

func (c *Collection) assembleNote(nid int64, guid string, mid int64, tags, flds, sfld string) (*kitypes.ColNote, bool, error) {
	nt, ok, err := c.Models().Get(mid)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, &kitypes.MissingNotetypeError{Model: fmt.Sprintf("mid:%d", mid)}
	}

	values := strings.Split(flds, fieldSep)
	fields := kitypes.NewFields()
	for i, name := range nt.Fields {
		if i < len(values) {
			fields.Set(name, values[i])
		} else {
			fields.Set(name, "")
		}
	}

	return &kitypes.ColNote{
		NID:      nid,
		GUID:     guid,
		Notetype: nt,
		Tags:     splitTags(tags),
		Fields:   fields,
		SFLD:     sfld,
	}, true, nil
}

func splitTags(tags string) []string {
	tags = strings.TrimSpace(tags)
	if tags == "" {
		return nil
	}
	parts := strings.Fields(tags)
	return parts
}

func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func joinFields(nt kitypes.Notetype, fields kitypes.Fields) string {
	vals := make([]string, len(nt.Fields))
	for i, name := range nt.Fields {
		if v, ok := fields.Get(name); ok {
			vals[i] = v
		}
	}
	return strings.Join(vals, fieldSep)
}

// AddNote inserts a brand-new note directly via SQL (no scheduler, no
// cards), mirroring the original's add_db_note which bypasses Anki's
// NoteImporter card-generation entirely.
func (c *Collection) AddNote(guid string, nt kitypes.Notetype, tags []string, fields kitypes.Fields) (int64, error) {
	now := time.Now().Unix()
	sfldName := nt.SortFieldName()
	sfld, _ := fields.Get(sfldName)
	flds := joinFields(nt, fields)

	res, err := c.Exec(
		`INSERT INTO notes (guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
		 VALUES (?, ?, ?, -1, ?, ?, ?, 0, 0, '')`,
		guid, nt.ID, now, joinTags(tags), flds, sfld,
	)
	if err != nil {
		return 0, fmt.Errorf("insert note %s: %w", guid, err)
	}
	nid, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return nid, nil
}

// UpdateNote rewrites an existing note's fields/tags/notetype in place.
// newNT must match decknoteModel or NotetypeMismatchError is returned.
func (c *Collection) UpdateNote(nid int64, decknoteModel string, newNT kitypes.Notetype, tags []string, fields kitypes.Fields) error {
	if newNT.Name != decknoteModel {
		return &kitypes.NotetypeMismatchError{DeckNoteModel: decknoteModel, NotetypeName: newNT.Name}
	}
	sfldName := newNT.SortFieldName()
	sfld, _ := fields.Get(sfldName)
	flds := joinFields(newNT, fields)

	_, err := c.Exec(
		`UPDATE notes SET mid = ?, mod = ?, usn = -1, tags = ?, flds = ?, sfld = ? WHERE id = ?`,
		newNT.ID, time.Now().Unix(), joinTags(tags), flds, sfld, nid,
	)
	return err
}

// RemoveNotes deletes notes (and, via ON DELETE CASCADE, their cards).
func (c *Collection) RemoveNotes(nids []int64) error {
	for _, nid := range nids {
		if _, err := c.Exec(`DELETE FROM notes WHERE id = ?`, nid); err != nil {
			return fmt.Errorf("remove note %d: %w", nid, err)
		}
	}
	return nil
}

// SetDeck moves every card belonging to nid onto did, creating a card on
// did from the notetype's first template if none already exists there —
// the minimal analogue of Anki's change_notetype card regeneration.
func (c *Collection) SetDeck(nid int64, did int64) error {
	res, err := c.Exec(`UPDATE cards SET did = ? WHERE nid = ?`, did, nid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = c.Exec(
		`INSERT INTO cards (nid, did, ord, mod, usn, flags, data) VALUES (?, ?, 0, ?, -1, 0, '')`,
		nid, did, time.Now().Unix(),
	)
	return err
}

// AllNoteIDs returns every note id in the collection, for full scans
// (e.g. clone's note enumeration).
func (c *Collection) AllNoteIDs() ([]int64, error) {
	return c.List(`SELECT id FROM notes ORDER BY id`)
}

// CheckFieldsHealth inspects every field of note nid and reports the
// first problem found, mirroring the original's models.field_checksum /
// note health states: empty (all fields blank) or duplicate (sort field
// collides with another note of the same notetype). No other state is
// checked; a note that is neither gets a nil warning.
func (c *Collection) CheckFieldsHealth(nid int64) (kitypes.Warning, error) {
	var mid int64
	var flds, sfld string
	row := c.QueryRow(`SELECT mid, flds, sfld FROM notes WHERE id = ?`, nid)
	if err := row.Scan(&mid, &flds, &sfld); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	allEmpty := true
	for _, v := range strings.Split(flds, fieldSep) {
		if strings.TrimSpace(stripHTML(v)) != "" {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		return kitypes.EmptyNoteWarning{NID: nid}, nil
	}

	var dupCount int
	row = c.QueryRow(`SELECT COUNT(*) FROM notes WHERE mid = ? AND sfld = ? AND id != ?`, mid, sfld, nid)
	if err := row.Scan(&dupCount); err != nil {
		return nil, err
	}
	if dupCount > 0 {
		return kitypes.DuplicateNoteWarning{NID: nid, SFLD: sfld}, nil
	}

	return nil, nil
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// mustJSON is a small helper used by decks.go/models.go for the col
// table's JSON-blob columns.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
