package collection

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pwintz/ki/internal/kitypes"
)

// colDecks is the on-disk shape of col.decks: a flat map keyed by deck
// id (as a string), each entry carrying its full "::"-joined name. Anki
// never stores the tree itself — DeckTree rebuilds it on every read.
type colDecks map[string]storedDeck

type storedDeck struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeckAccessor scopes deck operations, mirroring col.decks.
type DeckAccessor struct{ c *Collection }

// Decks returns the deck accessor for this collection.
func (c *Collection) Decks() DeckAccessor { return DeckAccessor{c} }

func (d DeckAccessor) load() (colDecks, error) {
	var raw string
	if err := d.c.QueryRow(`SELECT decks FROM col WHERE id = 1`).Scan(&raw); err != nil {
		return nil, err
	}
	var out colDecks
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse col.decks: %w", err)
	}
	if out == nil {
		out = colDecks{}
	}
	return out, nil
}

func (d DeckAccessor) save(decks colDecks) error {
	_, err := d.c.Exec(`UPDATE col SET decks = ?, mod = ? WHERE id = 1`, mustJSON(decks), time.Now().Unix())
	return err
}

// ID returns the id of the deck named by the "::"-joined fullName,
// creating it (and any missing ancestors) when create is true, just as
// the original's col.decks.id(name, create=True) does.
func (d DeckAccessor) ID(fullName string, create bool) (int64, error) {
	decks, err := d.load()
	if err != nil {
		return 0, err
	}
	if id, ok := findDeckByName(decks, fullName); ok {
		return id, nil
	}
	if !create {
		return 0, nil
	}

	parts := strings.Split(fullName, "::")
	var built strings.Builder
	var lastID int64
	for i, part := range parts {
		if i > 0 {
			built.WriteString("::")
		}
		built.WriteString(part)
		name := built.String()
		if id, ok := findDeckByName(decks, name); ok {
			lastID = id
			continue
		}
		id := nextDeckID(decks)
		decks[fmt.Sprintf("%d", id)] = storedDeck{ID: id, Name: name}
		lastID = id
	}
	if err := d.save(decks); err != nil {
		return 0, err
	}
	return lastID, nil
}

func findDeckByName(decks colDecks, name string) (int64, bool) {
	for _, dk := range decks {
		if dk.Name == name {
			return dk.ID, true
		}
	}
	return 0, false
}

func nextDeckID(decks colDecks) int64 {
	var max int64 = 1
	for _, dk := range decks {
		if dk.ID > max {
			max = dk.ID
		}
	}
	return max + 1
}

// Cids returns the card ids belonging to did, and to its descendants
// when children is true.
func (d DeckAccessor) Cids(did int64, children bool) ([]int64, error) {
	if !children {
		return d.c.List(`SELECT id FROM cards WHERE did = ?`, did)
	}
	decks, err := d.load()
	if err != nil {
		return nil, err
	}
	target, ok := decks[fmt.Sprintf("%d", did)]
	if !ok {
		return nil, nil
	}
	var dids []int64
	for _, dk := range decks {
		if dk.ID == did || strings.HasPrefix(dk.Name, target.Name+"::") {
			dids = append(dids, dk.ID)
		}
	}
	var all []int64
	for _, id := range dids {
		cids, err := d.c.List(`SELECT id FROM cards WHERE did = ?`, id)
		if err != nil {
			return nil, err
		}
		all = append(all, cids...)
	}
	return all, nil
}

// NotetypeIDs returns the distinct notetype ids used by notes whose
// cards sit in did, including descendants when children is true. Used
// by clone's per-deck models.json write-out.
func (d DeckAccessor) NotetypeIDs(did int64, children bool) ([]int64, error) {
	cids, err := d.Cids(did, children)
	if err != nil {
		return nil, err
	}
	if len(cids) == 0 {
		return nil, nil
	}
	seen := map[int64]bool{}
	var out []int64
	for _, cid := range cids {
		var mid int64
		row := d.c.QueryRow(`SELECT notes.mid FROM cards JOIN notes ON notes.id = cards.nid WHERE cards.id = ?`, cid)
		if err := row.Scan(&mid); err != nil {
			return nil, err
		}
		if !seen[mid] {
			seen[mid] = true
			out = append(out, mid)
		}
	}
	return out, nil
}

// Tree assembles the flat deck map into a kitypes.DeckNode tree, rooted
// at a synthetic node ("" / DID 0) holding the top-level decks as
// children — the Go analogue of Anki's DeckManager.deck_tree(). An
// empty Default deck is left out of the tree (see below).
func (d DeckAccessor) Tree() (*kitypes.DeckNode, error) {
	decks, err := d.load()
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*kitypes.DeckNode, len(decks))
	for _, dk := range decks {
		byName[dk.Name] = &kitypes.DeckNode{DID: dk.ID, FullName: dk.Name}
	}

	names := make([]string, 0, len(decks))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	root := &kitypes.DeckNode{IsRoot: true, FullName: ""}
	for _, name := range names {
		node := byName[name]
		idx := strings.LastIndex(name, "::")
		if idx < 0 {
			root.Children = append(root.Children, node)
			continue
		}
		parentName := name[:idx]
		parent, ok := byName[parentName]
		if !ok {
			root.Children = append(root.Children, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	// Like Anki, hide the Default deck (id 1) when it has no cards, no
	// subdecks, and is not the only top-level deck.
	for i, child := range root.Children {
		if child.DID != 1 || len(child.Children) > 0 || len(root.Children) == 1 {
			continue
		}
		cids, err := d.Cids(child.DID, false)
		if err != nil {
			return nil, err
		}
		if len(cids) == 0 {
			root.Children = append(root.Children[:i], root.Children[i+1:]...)
		}
		break
	}
	return root, nil
}
