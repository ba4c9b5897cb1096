// Package ledger implements the append-only hash chain that audits backtest
// runs. Each run commits one block; a chain is persisted as one JSON file
// keyed by its name, and verification recomputes every hash from the stored
// fields.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// GenesisPreviousHash is the sentinel previous-hash of the first block.
const GenesisPreviousHash = "0"

// Block is one immutable entry in a chain. Hash covers the timestamp, the
// entry name, the payload and the previous block's hash, in that order.
type Block struct {
	Name         string `json:"name"`
	Data         string `json:"data"`
	PreviousHash string `json:"previous_hash"`
	Timestamp    int64  `json:"timestamp"` // unix nanoseconds
	Hash         string `json:"hash"`
}

// ComputeHash recomputes the block's hash from its stored fields.
func (b Block) ComputeHash() string {
	sum := sha256.Sum256([]byte(
		strconv.FormatInt(b.Timestamp, 10) + b.Name + b.Data + b.PreviousHash,
	))
	return hex.EncodeToString(sum[:])
}

func newBlock(name, data, previousHash string, ts time.Time) Block {
	b := Block{
		Name:         name,
		Data:         data,
		PreviousHash: previousHash,
		Timestamp:    ts.UnixNano(),
	}
	b.Hash = b.ComputeHash()
	return b
}

func genesisBlock() Block {
	return newBlock("Genesis Block", "", GenesisPreviousHash, time.Now())
}

// Chain is an ordered list of blocks starting at a genesis block.
type Chain struct {
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// Tip returns the most recent block.
func (c *Chain) Tip() Block {
	return c.Blocks[len(c.Blocks)-1]
}

// Len returns the number of blocks including genesis.
func (c *Chain) Len() int {
	return len(c.Blocks)
}
