package search

import "github.com/danielstefank/goodwill-alert/pkg/marketplace"

// SeenLookup answers whether a marketplace id is already known
type SeenLookup interface {
	Seen(itemID string) bool
}

// SeenFunc adapts a function to SeenLookup
type SeenFunc func(itemID string) bool

// Seen calls f
func (f SeenFunc) Seen(itemID string) bool {
	return f(itemID)
}

// Diff returns the items that are not in seen, in upstream order. Items
// without an id are dropped and an id repeated in the same batch is only
// returned once.
func Diff(raw []marketplace.RawItem, seen SeenLookup) []marketplace.RawItem {
	fresh := make([]marketplace.RawItem, 0)
	batch := make(map[string]struct{}, len(raw))
	for _, item := range raw {
		if item.ID == "" {
			continue
		}
		if _, dup := batch[item.ID]; dup {
			continue
		}
		batch[item.ID] = struct{}{}
		if seen != nil && seen.Seen(item.ID) {
			continue
		}
		fresh = append(fresh, item)
	}
	return fresh
}

func itemIDs(raw []marketplace.RawItem) []string {
	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		if item.ID != "" {
			ids = append(ids, item.ID)
		}
	}
	return ids
}
