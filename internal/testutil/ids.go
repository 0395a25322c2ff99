package testutil

import (
	"sync"

	"github.com/GideonBear/falconf/internal/ledger"
)

// FixedIDs returns an id source that hands out ids in order and then
// wraps around. It makes generated piece ids predictable in golden output.
func FixedIDs(ids ...ledger.PieceID) ledger.IDSource {
	var mu sync.Mutex
	i := 0
	return func() ledger.PieceID {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i%len(ids)]
		i++
		return id
	}
}
