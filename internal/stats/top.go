package stats

import (
	"sort"
	"strings"

	"github.com/verte-zerg/hearme/internal/model"
)

// FlaggedWord groups the mismatches of one expected word.
type FlaggedWord struct {
	Expected string
	Count    int
	Observed []string
}

// TopFlagged returns the n expected words flagged most often. Words are
// grouped case-insensitively and keep their first spelling.
func TopFlagged(mismatches []model.MismatchRecord, n int) []FlaggedWord {
	if n <= 0 || len(mismatches) == 0 {
		return nil
	}
	byKey := map[string]*FlaggedWord{}
	order := make([]string, 0, len(mismatches))
	for _, m := range mismatches {
		key := strings.ToLower(m.Expected)
		item, ok := byKey[key]
		if !ok {
			item = &FlaggedWord{Expected: m.Expected}
			byKey[key] = item
			order = append(order, key)
		}
		item.Count++
		item.Observed = append(item.Observed, m.Observed)
	}
	items := make([]FlaggedWord, 0, len(order))
	for _, key := range order {
		items = append(items, *byKey[key])
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return strings.ToLower(items[i].Expected) < strings.ToLower(items[j].Expected)
		}
		return items[i].Count > items[j].Count
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
