package history

import (
	"fmt"
	"sync"

	"github.com/JaimeStill/dermis/internal/methods"
)

// generations tracks the one explanation being generated per record, shared
// by every detail view of that record.
type generations struct {
	mu      sync.Mutex
	records map[string]methods.ID
}

func newGenerations() *generations {
	return &generations{records: make(map[string]methods.ID)}
}

// begin claims recordID for id. Returns ErrGenerationInFlight if any view is
// already generating for the record.
func (g *generations) begin(recordID string, id methods.ID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if current, busy := g.records[recordID]; busy {
		return fmt.Errorf("%w: %s", ErrGenerationInFlight, current)
	}
	g.records[recordID] = id
	return nil
}

func (g *generations) end(recordID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.records, recordID)
}

// current returns the method being generated for recordID, or "".
func (g *generations) current(recordID string) methods.ID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.records[recordID]
}
