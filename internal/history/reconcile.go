// Package history presents the user's stored diagnostic sessions: a filtered,
// paginated gallery and a detail view that renders stored explanations and
// generates the ones still missing.
package history

import (
	"slices"

	"github.com/JaimeStill/dermis/internal/methods"
	"github.com/JaimeStill/dermis/internal/remote"
)

// Reconciliation partitions the method catalog by whether a record already
// holds an explanation for each method. Both lists follow catalog order.
type Reconciliation struct {
	Present []methods.ID `json:"present"`
	Missing []methods.ID `json:"missing"`
}

// Reconcile compares the explanations stored on record with the catalog.
// Method identifiers are matched case-insensitively, aliases included.
func Reconcile(record *remote.HistoryRecord) Reconciliation {
	stored := make(map[methods.ID]bool, len(record.Explanations))
	for _, e := range record.Explanations {
		if id, err := methods.Parse(string(e.Method)); err == nil {
			stored[id] = true
		}
	}

	var r Reconciliation
	for _, m := range methods.Catalog() {
		if stored[m.ID] {
			r.Present = append(r.Present, m.ID)
		} else {
			r.Missing = append(r.Missing, m.ID)
		}
	}
	return r
}

// Has reports whether id is among the present methods.
func (r Reconciliation) Has(id methods.ID) bool {
	return slices.Contains(r.Present, id)
}
