package cloneengine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/kitypes"
)

const modelsFileName = "models.json"

// notetypeJSON is the on-disk shape of a models.json entry, keyed by
// notetype id as a string, matching col.models' own encoding so a
// models.json file can be visually diffed against the collection.
type notetypeJSON struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Fields    []string           `json:"flds"`
	Templates []kitypes.Template `json:"tmpls"`
	CSS       string             `json:"css"`
	SortField int                `json:"sortf"`
}

func toNotetypeJSON(nt kitypes.Notetype) notetypeJSON {
	return notetypeJSON{ID: nt.ID, Name: nt.Name, Fields: nt.Fields, Templates: nt.Templates, CSS: nt.CSS, SortField: nt.SortField}
}

// WriteModelsFile writes a models.json mapping mid -> notetype for the
// given set of notetypes, sorted for stable diffs.
func WriteModelsFile(path string, notetypes []kitypes.Notetype) error {
	out := make(map[string]notetypeJSON, len(notetypes))
	for _, nt := range notetypes {
		out[fmt.Sprintf("%d", nt.ID)] = toNotetypeJSON(nt)
	}
	data, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WriteRootModels writes every notetype in the collection to
// <root>/models.json.
func WriteRootModels(c *collection.Collection, root string) error {
	names, err := c.Models().AllNamesAndIDs()
	if err != nil {
		return err
	}
	var notetypes []kitypes.Notetype
	for _, mid := range names {
		nt, ok, err := c.Models().Get(mid)
		if err != nil {
			return err
		}
		if ok {
			notetypes = append(notetypes, nt)
		}
	}
	return WriteModelsFile(filepath.Join(root, modelsFileName), notetypes)
}

// LoadModelsRecursively finds every models.json under root and merges
// them into a name -> Notetype map; later files (in filepath.Walk
// order) overwrite earlier entries of the same name, matching the
// original's get_models_recursively dict-comprehension semantics.
func LoadModelsRecursively(root string) (map[string]kitypes.Notetype, error) {
	out := map[string]kitypes.Notetype{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Base(path) != modelsFileName {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var stored map[string]notetypeJSON
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, s := range stored {
			out[s.Name] = kitypes.Notetype{
				ID:        s.ID,
				Name:      s.Name,
				Fields:    s.Fields,
				Templates: s.Templates,
				CSS:       s.CSS,
				SortField: s.SortField,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// WriteDeckModels writes the deck-scoped models.json for node, covering
// the notetypes of notes in node and its descendants.
func WriteDeckModels(c *collection.Collection, node *kitypes.DeckNode) error {
	mids, err := c.Decks().NotetypeIDs(node.DID, true)
	if err != nil {
		return err
	}
	var notetypes []kitypes.Notetype
	for _, mid := range mids {
		nt, ok, err := c.Models().Get(mid)
		if err != nil {
			return err
		}
		if ok {
			notetypes = append(notetypes, nt)
		}
	}
	return WriteModelsFile(filepath.Join(node.DirPath, modelsFileName), notetypes)
}
