package ledger

import (
	"fmt"
	"strings"
	"time"

	apperrors "backchain/internal/errors"
)

// Verify walks the chain from the block after genesis, recomputing each
// block's hash from its stored fields and checking previous-hash linkage.
// It returns nil for an intact chain and an IntegrityError describing the
// first mismatch otherwise. A broken chain is never repaired.
func (c *Chain) Verify() error {
	for i := 1; i < len(c.Blocks); i++ {
		cur := c.Blocks[i]
		prev := c.Blocks[i-1]

		if cur.Hash != cur.ComputeHash() {
			return apperrors.NewIntegrityError(c.Name, i, "stored hash does not match recomputed hash")
		}
		if cur.PreviousHash != prev.Hash {
			return apperrors.NewIntegrityError(c.Name, i, "previous-hash linkage broken")
		}
	}
	return nil
}

// String renders the chain block by block for inspection.
func (c *Chain) String() string {
	var sb strings.Builder
	rule := strings.Repeat("-", 80) + "\n"
	for i, b := range c.Blocks {
		sb.WriteString(rule)
		fmt.Fprintf(&sb, "Block %d\n", i)
		sb.WriteString(rule)
		fmt.Fprintf(&sb, "Backtest: %s\n", b.Name)
		fmt.Fprintf(&sb, "Timestamp: %s\n", time.Unix(0, b.Timestamp).UTC().Format(time.RFC3339Nano))
		fmt.Fprintf(&sb, "Hash: %s\n", b.Hash)
		fmt.Fprintf(&sb, "Previous Hash: %s\n", b.PreviousHash)
	}
	return sb.String()
}
