package csn

import (
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/Davidson-Souza/floresta-go/accumulator"
)

// Checkpoint pins the chain to a trusted block so the node doesn't have
// to sync from genesis.  Everything below it is assumed valid.
type Checkpoint struct {
	// Height and Header of the trusted block.
	Height int32
	Header wire.BlockHeader

	// Acc is the accumulator state right after the trusted block
	// connected.
	Acc accumulator.Stump
}

// Config holds everything New needs to bring a node up.
type Config struct {
	// Params of the network to run on.
	Params *chaincfg.Params

	// Checkpoint to bootstrap from.  Nil means start at genesis.
	Checkpoint *Checkpoint

	// AssumeValidHashes is a flat table of the block hashes below the
	// checkpoint, 32 bytes per height with genesis first.  It backs
	// block hash lookups for heights the header index doesn't cover.
	AssumeValidHashes []byte

	// DataDir is where the chain store lives.
	DataDir string

	// MemStore keeps the chain store in memory instead of DataDir.
	// Nothing survives a restart.  Handy for tests.
	MemStore bool

	// WatchAddresses are loaded into the wallet on startup.
	WatchAddresses []string
}

// dbPath is where the leveldb files go under the data directory.
func (cfg *Config) dbPath() string {
	return filepath.Join(cfg.DataDir, "chaindata")
}

// NetParams maps a network name to its chain params.
func NetParams(name string) (*chaincfg.Params, error) {
	switch name {
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	}
	return nil, errInvalidNetwork(name)
}
