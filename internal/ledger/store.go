package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "backchain/internal/errors"
)

// formatVersion is bumped whenever the on-disk chain layout changes.
const formatVersion = 1

type chainFile struct {
	Version int     `json:"version"`
	Name    string  `json:"name"`
	Blocks  []Block `json:"blocks"`
}

// Store persists chains as one JSON file per chain name under a directory.
type Store struct {
	dir    string
	logger zerolog.Logger
}

// NewStore creates a Store rooted at dir, creating the directory if needed.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Create initializes a new chain with a genesis block and persists it. If a
// chain with that name already exists it fails with ErrDuplicateChain,
// unless loadExisting is set, in which case the persisted chain is loaded
// and returned instead.
func (s *Store) Create(name string, loadExisting bool) (*Chain, error) {
	if _, err := os.Stat(s.path(name)); err == nil {
		if !loadExisting {
			return nil, fmt.Errorf("chain %q: %w", name, apperrors.ErrDuplicateChain)
		}
		s.logger.Warn().Str("chain", name).Msg("Chain already exists, loading it from disk")
		return s.Load(name)
	}

	chain := &Chain{Name: name, Blocks: []Block{genesisBlock()}}
	if err := s.save(chain); err != nil {
		return nil, err
	}
	s.logger.Info().Str("chain", name).Msg("Chain initialized and stored")
	return chain, nil
}

// Load reads a persisted chain. Returns ErrChainNotFound if no file exists
// for the name.
func (s *Store) Load(name string) (*Chain, error) {
	raw, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("chain %q: %w", name, apperrors.ErrChainNotFound)
		}
		return nil, fmt.Errorf("reading chain %q: %w", name, err)
	}

	var cf chainFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("decoding chain %q: %w", name, err)
	}
	if cf.Version != formatVersion {
		return nil, fmt.Errorf("chain %q: unsupported format version %d", name, cf.Version)
	}
	if len(cf.Blocks) == 0 {
		return nil, apperrors.NewIntegrityError(name, 0, "missing genesis block")
	}
	return &Chain{Name: cf.Name, Blocks: cf.Blocks}, nil
}

// Append adds a block holding the payload to the chain and persists the full
// chain. Chains stay short (one block per run), so rewriting the whole file
// on every append is acceptable.
func (s *Store) Append(chain *Chain, entryName, payload string) error {
	block := newBlock(entryName, payload, chain.Tip().Hash, time.Now())
	chain.Blocks = append(chain.Blocks, block)
	if err := s.save(chain); err != nil {
		chain.Blocks = chain.Blocks[:len(chain.Blocks)-1]
		return err
	}
	s.logger.Debug().
		Str("chain", chain.Name).
		Str("entry", entryName).
		Str("hash", block.Hash).
		Msg("Block appended")
	return nil
}

// Remove deletes the persisted chain storage for name. Removing a chain that
// does not exist is a no-op.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing chain %q: %w", name, err)
	}
	return nil
}

// List returns the names of all persisted chains, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing ledger directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) save(chain *Chain) error {
	raw, err := json.MarshalIndent(chainFile{
		Version: formatVersion,
		Name:    chain.Name,
		Blocks:  chain.Blocks,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding chain %q: %w", chain.Name, err)
	}

	tmp := s.path(chain.Name) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("writing chain %q: %w", chain.Name, err)
	}
	if err := os.Rename(tmp, s.path(chain.Name)); err != nil {
		return fmt.Errorf("storing chain %q: %w", chain.Name, err)
	}
	return nil
}
