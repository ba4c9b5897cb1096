package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	apperrors "backchain/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestCreateInitializesGenesis(t *testing.T) {
	store := newTestStore(t)

	chain, err := store.Create("run1", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if chain.Len() != 1 {
		t.Fatalf("expected 1 block after create, got %d", chain.Len())
	}
	genesis := chain.Blocks[0]
	if genesis.PreviousHash != GenesisPreviousHash {
		t.Errorf("genesis previous hash = %q, want %q", genesis.PreviousHash, GenesisPreviousHash)
	}
	if genesis.Hash != genesis.ComputeHash() {
		t.Error("genesis hash does not recompute")
	}
}

func TestCreateDuplicateFailsWithoutLoadFlag(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Create("run1", false); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := store.Create("run1", false)
	if !apperrors.Is(err, apperrors.ErrDuplicateChain) {
		t.Fatalf("expected ErrDuplicateChain, got %v", err)
	}
}

func TestCreateWithLoadFlagReturnsExisting(t *testing.T) {
	store := newTestStore(t)

	chain, err := store.Create("run1", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Append(chain, "entry", "payload"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	loaded, err := store.Create("run1", true)
	if err != nil {
		t.Fatalf("Create with load flag: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected existing chain with 2 blocks, got %d", loaded.Len())
	}
	if loaded.Tip().Name != "entry" {
		t.Errorf("tip name = %q, want %q", loaded.Tip().Name, "entry")
	}
}

func TestVerifyAfterAppends(t *testing.T) {
	store := newTestStore(t)

	chain, err := store.Create("run1", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, payload := range []string{"first", "second", "third"} {
		if err := store.Append(chain, "run1", payload); err != nil {
			t.Fatalf("Append(%q): %v", payload, err)
		}
		if err := chain.Verify(); err != nil {
			t.Fatalf("Verify after appending %q: %v", payload, err)
		}
	}

	// Reload from disk and verify again.
	reloaded, err := store.Load("run1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := reloaded.Verify(); err != nil {
		t.Errorf("Verify after reload: %v", err)
	}
	if reloaded.Len() != 4 {
		t.Errorf("expected 4 blocks after reload, got %d", reloaded.Len())
	}
}

func TestVerifyDetectsTamperedPayload(t *testing.T) {
	store := newTestStore(t)

	chain, _ := store.Create("run1", false)
	if err := store.Append(chain, "run1", "honest payload"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	chain.Blocks[1].Data = "doctored payload"

	var integrity *apperrors.IntegrityError
	err := chain.Verify()
	if !apperrors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if integrity.Index != 1 {
		t.Errorf("integrity error index = %d, want 1", integrity.Index)
	}
}

func TestVerifyDetectsBrokenLinkage(t *testing.T) {
	store := newTestStore(t)

	chain, _ := store.Create("run1", false)
	store.Append(chain, "run1", "a")
	store.Append(chain, "run1", "b")

	// Rewrite block 2 so its own hash is consistent but its previous-hash
	// no longer points at block 1.
	chain.Blocks[2].PreviousHash = "0000"
	chain.Blocks[2].Hash = chain.Blocks[2].ComputeHash()

	var integrity *apperrors.IntegrityError
	if err := chain.Verify(); !apperrors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}

func TestVerifyDetectsOnDiskCorruption(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	chain, _ := store.Create("run1", false)
	if err := store.Append(chain, "run1", "payload"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	path := filepath.Join(dir, "run1.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	corrupted := strings.Replace(string(raw), "payload", "altered", 1)
	if corrupted == string(raw) {
		t.Fatal("corruption had no effect on stored file")
	}
	if err := os.WriteFile(path, []byte(corrupted), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reloaded, err := store.Load("run1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Verify() == nil {
		t.Error("expected verification failure on corrupted file")
	}
}

func TestRemoveMissingChainIsNoOp(t *testing.T) {
	store := newTestStore(t)
	if err := store.Remove("never-created"); err != nil {
		t.Fatalf("Remove of missing chain: %v", err)
	}
}

func TestListReturnsSortedChains(t *testing.T) {
	store := newTestStore(t)
	store.Create("zulu", false)
	store.Create("alpha", false)

	names, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zulu" {
		t.Errorf("List = %v, want [alpha zulu]", names)
	}
}

func TestLoadMissingChain(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Load("ghost")
	if !apperrors.Is(err, apperrors.ErrChainNotFound) {
		t.Fatalf("expected ErrChainNotFound, got %v", err)
	}
}

func TestLoadRejectsChainWithoutGenesis(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	// A hand-edited file can hold a block-less chain; loading it must fail
	// instead of handing out a chain whose Tip would panic.
	raw := `{"version": 1, "name": "empty", "blocks": []}`
	if err := os.WriteFile(filepath.Join(dir, "empty.json"), []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var integrity *apperrors.IntegrityError
	if _, err := store.Load("empty"); !apperrors.As(err, &integrity) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
}
