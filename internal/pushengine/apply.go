package pushengine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/noteio"
	"github.com/pwintz/ki/internal/pathutil"
)

// DeckNoteFromDelta parses the note file named by the delta and resolves
// its deck from the file's path relative to root, minting a GUID from
// the field contents when the note file's guid header was left blank,
// mirroring the original's parse_note.
func DeckNoteFromDelta(root string, d kitypes.Delta) (kitypes.DeckNote, error) {
	fn, err := noteio.ParseFlatNote(d.AbsPath)
	if err != nil {
		return kitypes.DeckNote{}, fmt.Errorf("parse %s: %w", d.AbsPath, err)
	}

	guid := fn.GUID
	if guid == "" {
		var fields []string
		for pair := fn.Fields.Oldest(); pair != nil; pair = pair.Next() {
			fields = append(fields, pair.Value)
		}
		guid = pathutil.GUIDFromFields(fields)
	}

	rel, err := filepath.Rel(root, filepath.Dir(d.AbsPath))
	if err != nil {
		return kitypes.DeckNote{}, err
	}
	deck := strings.ReplaceAll(rel, string(filepath.Separator), "::")

	return kitypes.DeckNote{
		GUID:   guid,
		Deck:   deck,
		Model:  fn.Model,
		Tags:   fn.Tags,
		Fields: fn.Fields,
	}, nil
}

// ApplyDeletes maps the GUIDs of DELETED deltas to note ids via
// noteMeta and removes them from tempCol.
func ApplyDeletes(tempCol *collection.Collection, deletes []kitypes.DeckNote, noteMeta map[string]kitypes.NoteMetadata) error {
	var nids []int64
	for _, dn := range deletes {
		if meta, ok := noteMeta[dn.GUID]; ok {
			nids = append(nids, meta.NID)
		}
	}
	if len(nids) == 0 {
		return nil
	}
	return tempCol.RemoveNotes(nids)
}

// ApplyUpsert creates or updates the note named by dn in tempCol,
// validating field names against the target notetype, running the
// collection's fields-health check, and removing the note again if it
// fails. Returns any warnings raised along the way. New notes get their
// id minted by the collection itself (an autoincrementing rowid) rather
// than a caller-supplied monotonic counter.
func ApplyUpsert(tempCol *collection.Collection, dn kitypes.DeckNote, noteMeta map[string]kitypes.NoteMetadata) ([]kitypes.Warning, error) {
	var warnings []kitypes.Warning

	nt, ok, err := tempCol.Models().ByName(dn.Model)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &kitypes.MissingNotetypeError{Model: dn.Model}
	}

	warnings = append(warnings, validateFields(nt, dn)...)

	var nid int64
	meta, existing := noteMeta[dn.GUID]
	if existing {
		nid = meta.NID
		if meta.MID != nt.ID {
			fmap := map[string]string{}
			for _, name := range nt.Fields {
				fmap[name] = name
			}
			if err := tempCol.Models().Change(meta.MID, nt, []int64{nid}, fmap); err != nil {
				return nil, err
			}
		}
		if err := tempCol.UpdateNote(nid, dn.Model, nt, dn.Tags, htmlFields(dn.Fields)); err != nil {
			return nil, err
		}
	} else {
		newNID, err := tempCol.AddNote(dn.GUID, nt, dn.Tags, htmlFields(dn.Fields))
		if err != nil {
			return nil, err
		}
		nid = newNID
	}

	did, err := tempCol.Decks().ID(dn.Deck, true)
	if err != nil {
		return nil, err
	}
	if err := tempCol.SetDeck(nid, did); err != nil {
		return nil, err
	}

	warn, err := tempCol.CheckFieldsHealth(nid)
	if err != nil {
		return nil, err
	}
	if warn != nil {
		warnings = append(warnings, warn)
		if err := tempCol.RemoveNotes([]int64{nid}); err != nil {
			return nil, err
		}
	}

	return warnings, nil
}

func htmlFields(fields kitypes.Fields) kitypes.Fields {
	out := kitypes.NewFields()
	for pair := fields.Oldest(); pair != nil; pair = pair.Next() {
		out.Set(pair.Key, noteio.PlainToHTML(pair.Value))
	}
	return out
}

func validateFields(nt kitypes.Notetype, dn kitypes.DeckNote) []kitypes.Warning {
	var warnings []kitypes.Warning
	if dn.Fields.Len() != len(nt.Fields) {
		warnings = append(warnings, kitypes.WrongFieldCountWarning{GUID: dn.GUID, Have: dn.Fields.Len(), Want: len(nt.Fields), Model: nt.Name})
	}
	i := 0
	for pair := dn.Fields.Oldest(); pair != nil; pair = pair.Next() {
		if i < len(nt.Fields) && nt.Fields[i] != pair.Key {
			warnings = append(warnings, kitypes.InconsistentFieldNamesWarning{NotetypeField: nt.Fields[i], DeckNoteField: pair.Key, GUID: dn.GUID})
		}
		i++
	}
	return warnings
}

// NoteMetadataMap builds a guid -> NoteMetadata map from every note
// currently in the collection, adapted from get_note_metadata.
func NoteMetadataMap(col *collection.Collection) (map[string]kitypes.NoteMetadata, error) {
	rows, err := col.Query(`SELECT id, guid, mod, mid FROM notes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]kitypes.NoteMetadata{}
	for rows.Next() {
		var nid, mod, mid int64
		var guid string
		if err := rows.Scan(&nid, &guid, &mod, &mid); err != nil {
			return nil, err
		}
		out[guid] = kitypes.NoteMetadata{NID: nid, Mod: mod, MID: mid}
	}
	return out, rows.Err()
}
