// Package catalog implements the region catalog controller: item selection,
// filtering and sorting, the add/edit form, deletion, cross-region copy and
// manual reordering.
package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vyrodovalexey/region-catalog/internal/model"
)

// sortPrefixLen is the number of leading name characters used as sort key.
const sortPrefixLen = 3

// NewCollator returns a collator for the given BCP 47 locale, falling back to
// German when the locale cannot be parsed.
func NewCollator(locale string) *collate.Collator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.German
	}
	return collate.New(tag)
}

// Visible returns the items of region whose name contains search
// (case-insensitive), sorted by the uppercase three-character name prefix.
// Items with equal prefixes keep their input order. The input is not modified.
func Visible(items []model.Item, region, search string, coll *collate.Collator) []model.Item {
	if region == "" {
		return []model.Item{}
	}

	needle := strings.ToLower(search)
	filtered := make([]model.Item, 0, len(items))
	for _, item := range items {
		if item.InRegion(region) && strings.Contains(strings.ToLower(item.Name), needle) {
			filtered = append(filtered, item.Clone())
		}
	}

	keys := make(map[string]string, len(filtered))
	for _, item := range filtered {
		keys[item.Name] = sortKey(item.Name)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return coll.CompareString(keys[filtered[i].Name], keys[filtered[j].Name]) < 0
	})

	return filtered
}

func sortKey(name string) string {
	runes := []rune(name)
	if len(runes) > sortPrefixLen {
		runes = runes[:sortPrefixLen]
	}
	return strings.ToUpper(string(runes))
}
