package collection

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pwintz/ki/internal/kitypes"
)

// colModels is the on-disk shape of col.models: a map keyed by the
// notetype id as a string (Anki's own JSON encodes it that way).
type colModels map[string]storedNotetype

type storedNotetype struct {
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Fields    []string          `json:"flds"`
	Templates []storedTemplate  `json:"tmpls"`
	CSS       string            `json:"css"`
	SortField int               `json:"sortf"`
}

type storedTemplate struct {
	Name string `json:"name"`
	QFmt string `json:"qfmt"`
	AFmt string `json:"afmt"`
}

// ModelAccessor scopes notetype operations, mirroring the original's
// col.models namespace.
type ModelAccessor struct{ c *Collection }

// Models returns the notetype accessor for this collection.
func (c *Collection) Models() ModelAccessor { return ModelAccessor{c} }

func (m ModelAccessor) load() (colModels, error) {
	var raw string
	if err := m.c.QueryRow(`SELECT models FROM col WHERE id = 1`).Scan(&raw); err != nil {
		return nil, err
	}
	var out colModels
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse col.models: %w", err)
	}
	if out == nil {
		out = colModels{}
	}
	return out, nil
}

func (m ModelAccessor) save(models colModels) error {
	_, err := m.c.Exec(`UPDATE col SET models = ?, mod = ? WHERE id = 1`, mustJSON(models), time.Now().Unix())
	return err
}

func toNotetype(s storedNotetype) kitypes.Notetype {
	tmpls := make([]kitypes.Template, len(s.Templates))
	for i, t := range s.Templates {
		tmpls[i] = kitypes.Template{Name: t.Name, QFmt: t.QFmt, AFmt: t.AFmt}
	}
	return kitypes.Notetype{
		ID:        s.ID,
		Name:      s.Name,
		Fields:    append([]string(nil), s.Fields...),
		Templates: tmpls,
		CSS:       s.CSS,
		SortField: s.SortField,
	}
}

func fromNotetype(nt kitypes.Notetype) storedNotetype {
	tmpls := make([]storedTemplate, len(nt.Templates))
	for i, t := range nt.Templates {
		tmpls[i] = storedTemplate{Name: t.Name, QFmt: t.QFmt, AFmt: t.AFmt}
	}
	return storedNotetype{
		ID:        nt.ID,
		Name:      nt.Name,
		Fields:    append([]string(nil), nt.Fields...),
		Templates: tmpls,
		CSS:       nt.CSS,
		SortField: nt.SortField,
	}
}

// AllNamesAndIDs returns every notetype name mapped to its id, for
// get_models_recursively-style lookups.
func (m ModelAccessor) AllNamesAndIDs() (map[string]int64, error) {
	models, err := m.load()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(models))
	for _, nt := range models {
		out[nt.Name] = nt.ID
	}
	return out, nil
}

// Get returns the notetype with the given id.
func (m ModelAccessor) Get(mid int64) (kitypes.Notetype, bool, error) {
	models, err := m.load()
	if err != nil {
		return kitypes.Notetype{}, false, err
	}
	s, ok := models[fmt.Sprintf("%d", mid)]
	if !ok {
		return kitypes.Notetype{}, false, nil
	}
	return toNotetype(s), true, nil
}

// ByName returns the notetype with the given name.
func (m ModelAccessor) ByName(name string) (kitypes.Notetype, bool, error) {
	models, err := m.load()
	if err != nil {
		return kitypes.Notetype{}, false, err
	}
	for _, s := range models {
		if s.Name == name {
			return toNotetype(s), true, nil
		}
	}
	return kitypes.Notetype{}, false, nil
}

// Add inserts a new notetype, returning its minted id. If a notetype
// with the same name already exists, Add compares content: identical
// content is a silent no-op returning the existing id; differing
// content returns the existing id alongside a NotetypeCollisionWarning,
// matching the original's "add_model is unfinished" behavior of never
// overwriting an existing model.
func (m ModelAccessor) Add(nt kitypes.Notetype) (int64, kitypes.Warning, error) {
	models, err := m.load()
	if err != nil {
		return 0, nil, err
	}

	for _, existing := range models {
		if existing.Name != nt.Name {
			continue
		}
		if notetypeEqual(existing, fromNotetype(nt)) {
			return existing.ID, nil, nil
		}
		return existing.ID, kitypes.NotetypeCollisionWarning{Name: nt.Name}, nil
	}

	id := time.Now().UnixMilli()
	for {
		if _, exists := models[fmt.Sprintf("%d", id)]; !exists {
			break
		}
		id++
	}
	nt.ID = id
	models[fmt.Sprintf("%d", id)] = fromNotetype(nt)
	if err := m.save(models); err != nil {
		return 0, nil, err
	}
	return id, nil, nil
}

func notetypeEqual(a, b storedNotetype) bool {
	return mustJSON(a) == mustJSON(b)
}

// Change rewrites notetype mid in place with newNT's definition and
// moves the given note ids onto it via fmap (new field name -> old
// field name). Old fields that no entry maps from are dropped; new
// fields with no entry are set to "". Mirrors change_notetype.
func (m ModelAccessor) Change(mid int64, newNT kitypes.Notetype, nids []int64, fmap map[string]string) error {
	models, err := m.load()
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%d", mid)
	if _, ok := models[key]; !ok {
		return &kitypes.MissingNotetypeError{Model: newNT.Name}
	}
	newNT.ID = mid
	models[key] = fromNotetype(newNT)
	if err := m.save(models); err != nil {
		return err
	}

	for _, nid := range nids {
		note, ok, err := m.c.NoteByID(nid)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		remapped := kitypes.NewFields()
		for newName, oldName := range fmap {
			if v, ok := note.Fields.Get(oldName); ok {
				remapped.Set(newName, v)
			}
		}
		for _, name := range newNT.Fields {
			if _, ok := remapped.Get(name); !ok {
				remapped.Set(name, "")
			}
		}
		if err := m.c.UpdateNote(nid, newNT.Name, newNT, note.Tags, remapped); err != nil {
			return err
		}
	}
	return nil
}
