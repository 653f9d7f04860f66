package csn

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"

	"github.com/Davidson-Souza/floresta-go/accumulator"
	"github.com/Davidson-Souza/floresta-go/util"
	uwire "github.com/Davidson-Souza/floresta-go/wire"
)

// FlorestaChain is a compact state node.  It follows the chain with
// nothing but headers and accumulator roots, checking the utxo
// inclusion proofs that ride along with each block instead of keeping
// the utxo set itself.
type FlorestaChain struct {
	params *chaincfg.Params
	store  ChainStore
	chain  *ChainState
	wallet *Wallet
}

// New opens the chain store under cfg.DataDir (or in memory), brings
// the chain state up and loads the watch addresses.
func New(cfg *Config) (*FlorestaChain, error) {
	if cfg.Params == nil {
		return nil, fmt.Errorf("no chain params given")
	}
	path := cfg.dbPath()
	if cfg.MemStore {
		path = ""
	}
	store, err := NewChainStore(path)
	if err != nil {
		return nil, err
	}
	chain, err := NewChainState(cfg, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	wallet := NewWallet(cfg.Params)
	for _, addr := range cfg.WatchAddresses {
		err = wallet.WatchAddress(addr)
		if err != nil {
			store.Close()
			return nil, err
		}
	}
	return &FlorestaChain{
		params: cfg.Params,
		store:  store,
		chain:  chain,
		wallet: wallet,
	}, nil
}

// Close closes the chain store.
func (fc *FlorestaChain) Close() error {
	return fc.store.Close()
}

// AcceptBlock runs one json block envelope through the whole pipeline:
// decode it, accept the header, rebuild the spent leaves from the
// compact data, then verify the deletion proof and connect.  The
// wallet only learns about the block after the connect sticks.
func (fc *FlorestaChain) AcceptBlock(jsonBlock []byte) error {
	var ub uwire.UBlock
	err := json.Unmarshal(jsonBlock, &ub)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedInput, err)
	}
	err = ub.ProofSanity()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedInput, err)
	}

	err = fc.chain.AcceptHeader(ub.Block.Header)
	if err != nil {
		return err
	}

	delHashes, spent, err := fc.chain.processProof(&ub)
	if err != nil {
		return err
	}

	matches := fc.wallet.ScanBlock(&ub.Block)

	_, outskip := util.DedupeBlock(&ub.Block)
	height := fc.chain.Height() + 1
	adds := uwire.BlockToAddLeaves(&ub.Block, outskip, height)

	err = fc.chain.ConnectBlock(&ub.Block, ub.Proof, delHashes, adds)
	if err != nil {
		return err
	}

	for _, leaf := range spent {
		log.Debugf("height %d spent %s", height, leaf.OPString())
	}
	fc.wallet.Commit(matches)
	log.Infof("connected block %s height %d, %d adds %d dels",
		ub.Block.BlockHash(), height, len(adds), len(delHashes))
	return nil
}

// Height returns the height of the best block.
func (fc *FlorestaChain) Height() int32 {
	return fc.chain.Height()
}

// Tip returns the best block hash.
func (fc *FlorestaChain) Tip() chainhash.Hash {
	return fc.chain.Tip()
}

// IsInIBD reports whether the node is still in its initial block
// download.
func (fc *FlorestaChain) IsInIBD() bool {
	return fc.chain.IsInIBD()
}

// ToggleIBD flips the initial block download flag.
func (fc *FlorestaChain) ToggleIBD(ibd bool) {
	fc.chain.ToggleIBD(ibd)
}

// Network returns the name of the network the node runs on.
func (fc *FlorestaChain) Network() string {
	return fc.params.Name
}

// Target returns the tip's proof of work target as 64 hex digits.
func (fc *FlorestaChain) Target() string {
	return fmt.Sprintf("%064x", fc.chain.Target())
}

// Difficulty returns the tip's difficulty relative to the easiest the
// network allows.
func (fc *FlorestaChain) Difficulty() uint64 {
	return fc.chain.Difficulty()
}

// GetBlockHash resolves a height to the best chain block hash at that
// height.
func (fc *FlorestaChain) GetBlockHash(height int32) (chainhash.Hash, bool, error) {
	return fc.chain.GetBlockHash(height)
}

// GetBlockHeader looks a header up by block hash.
func (fc *FlorestaChain) GetBlockHeader(hash chainhash.Hash) (DiskBlockHeader, bool, error) {
	return fc.chain.GetBlockHeader(hash)
}

// GetBestBlock returns the tip hash and height.
func (fc *FlorestaChain) GetBestBlock() (chainhash.Hash, int32) {
	return fc.chain.GetBestBlock()
}

// WatchAddress starts watching an address.
func (fc *FlorestaChain) WatchAddress(addr string) error {
	return fc.wallet.WatchAddress(addr)
}

// WatchScript starts watching a raw output script.
func (fc *FlorestaChain) WatchScript(pkScript []byte) {
	fc.wallet.WatchScript(pkScript)
}

// OurTxs returns the ids of the transactions that paid a watched
// script, one per line.
func (fc *FlorestaChain) OurTxs() string {
	txids := fc.wallet.OurTxs()
	ids := make([]string, len(txids))
	for i := range txids {
		ids[i] = txids[i].String()
	}
	return strings.Join(ids, "\n")
}

// GenerateRandomAddress makes a fresh p2wpkh address, starts watching
// it, and returns it encoded for the configured network.  The private
// key is thrown away; this exists for kicking the tires, not for
// receiving anything you want to keep.
func (fc *FlorestaChain) GenerateRandomAddress() (string, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return "", err
	}
	pkh := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkh, fc.params)
	if err != nil {
		return "", err
	}
	encoded := addr.EncodeAddress()
	err = fc.wallet.WatchAddress(encoded)
	if err != nil {
		return "", err
	}
	return encoded, nil
}

// AccumulatorRoots returns a copy of the current accumulator state.
func (fc *FlorestaChain) AccumulatorRoots() accumulator.Stump {
	return fc.chain.AccumulatorRoots()
}
