package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	flags "github.com/jessevdk/go-flags"

	"github.com/Davidson-Souza/floresta-go/accumulator"
	"github.com/Davidson-Souza/floresta-go/csn"
)

const defaultDebugLevel = "info"

var defaultDataDir = btcutil.AppDataDir("florestad", false)

type config struct {
	DataDir      string   `short:"b" long:"datadir" description:"Directory to store chain data and logs"`
	Net          string   `long:"net" default:"testnet" description:"Network to run on (mainnet, testnet, regtest)"`
	WatchAddrs   []string `long:"watchaddr" description:"Address to watch and report transactions for, may be given more than once"`
	Blocks       string   `long:"blocks" description:"File with one json block envelope per line, - for stdin"`
	Checkpoint   string   `long:"checkpoint" description:"Json file with a trusted starting header and the accumulator roots after it"`
	AssumeValid  string   `long:"assumevalid" description:"File with the raw block hashes below the checkpoint, 32 bytes each"`
	GenerateAddr bool     `long:"generateaddress" description:"Generate a fresh address, watch it and print it"`
	MemStore     bool     `long:"memstore" description:"Keep the chain store in memory, nothing survives shutdown"`
	DebugLevel   string   `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
}

// loadConfig parses the command line and turns it into the node
// configuration.  The datadir gets a per-network subdirectory so the
// same base dir can hold more than one chain.
func loadConfig() (*config, *csn.Config, error) {
	cfg := config{
		DataDir:    defaultDataDir,
		DebugLevel: defaultDebugLevel,
	}
	parser := flags.NewParser(&cfg, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, nil, err
	}

	params, err := csn.NetParams(cfg.Net)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.Net)

	nodeCfg := &csn.Config{
		Params:   params,
		DataDir:  cfg.DataDir,
		MemStore: cfg.MemStore,
	}

	if cfg.Checkpoint != "" {
		checkpoint, err := readCheckpoint(cfg.Checkpoint)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad checkpoint file %s: %s\n", cfg.Checkpoint, err)
			return nil, nil, err
		}
		nodeCfg.Checkpoint = checkpoint
	}
	if cfg.AssumeValid != "" {
		table, err := os.ReadFile(cfg.AssumeValid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "can't read assume valid table: %s\n", err)
			return nil, nil, err
		}
		nodeCfg.AssumeValidHashes = table
	}

	return &cfg, nodeCfg, nil
}

// checkpointFile is the json shape of the -checkpoint argument: a
// trusted header, its height, and the accumulator state after that
// block was connected.
type checkpointFile struct {
	Height    int32    `json:"height"`
	Header    string   `json:"header"`
	NumLeaves uint64   `json:"num_leaves"`
	Roots     []string `json:"roots"`
}

func readCheckpoint(path string) (*csn.Checkpoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cf checkpointFile
	err = json.Unmarshal(raw, &cf)
	if err != nil {
		return nil, err
	}
	headerBytes, err := hex.DecodeString(cf.Header)
	if err != nil {
		return nil, fmt.Errorf("bad header hex: %s", err)
	}
	var header wire.BlockHeader
	err = header.Deserialize(bytes.NewReader(headerBytes))
	if err != nil {
		return nil, err
	}
	roots := make([]accumulator.Hash, len(cf.Roots))
	for i, rootHex := range cf.Roots {
		rootBytes, err := hex.DecodeString(rootHex)
		if err != nil {
			return nil, fmt.Errorf("bad root hex: %s", err)
		}
		if len(rootBytes) != 32 {
			return nil, fmt.Errorf("root %d is %d bytes, want 32", i, len(rootBytes))
		}
		copy(roots[i][:], rootBytes)
	}
	return &csn.Checkpoint{
		Height: cf.Height,
		Header: header,
		Acc:    accumulator.Stump{NumLeaves: cf.NumLeaves, Roots: roots},
	}, nil
}
