package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/GideonBear/falconf/internal/testutil"
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a store in a temp dir whose clock advances one
// second per call.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	clock := testutil.NewStepClock(testStart, time.Second)
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path, WithNow(clock.Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestExecution(runID, seq int64, pieceID, outcome string) Execution {
	return Execution{
		Seq:       seq,
		RunID:     runID,
		PieceID:   pieceID,
		Kind:      "command",
		Action:    "execute",
		PieceHash: "hash-" + pieceID,
		Outcome:   outcome,
	}
}
