package csn

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

// Wallet watches output scripts and remembers the transactions that
// paid them.  Scanning looks at outputs only: a transaction that
// spends a watched utxo without paying a watched script won't show up.
//
// ScanBlock and Commit are split on purpose.  Scan a block while it's
// still a candidate, then commit the matches once it has actually
// connected.  That way a block that fails its proof can't leave
// phantom transactions behind.
type Wallet struct {
	mtx sync.RWMutex

	params *chaincfg.Params

	// watchedScripts holds the raw output scripts we're looking for.
	watchedScripts map[string]bool

	// txids that paid a watched script, in the order found.
	txids []chainhash.Hash
	seen  map[chainhash.Hash]bool
}

// NewWallet returns an empty wallet for the given network.
func NewWallet(params *chaincfg.Params) *Wallet {
	return &Wallet{
		params:         params,
		watchedScripts: make(map[string]bool),
		seen:           make(map[chainhash.Hash]bool),
	}
}

// WatchAddress starts watching an address.  Any address type btcutil
// can parse works.  Watching the same address twice is fine.
func (w *Wallet) WatchAddress(addr string) error {
	decoded, err := btcutil.DecodeAddress(addr, w.params)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidAddress, addr, err)
	}
	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidAddress, addr, err)
	}
	w.WatchScript(script)
	return nil
}

// WatchScript starts watching a raw output script.
func (w *Wallet) WatchScript(pkScript []byte) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	w.watchedScripts[string(pkScript)] = true
}

// NumWatched returns how many scripts the wallet is watching.
func (w *Wallet) NumWatched() int {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	return len(w.watchedScripts)
}

// ScanBlock returns the ids of the transactions in blk that pay a
// watched script.  Only outputs are checked.  Nothing is recorded;
// hand the result to Commit once the block has connected.
func (w *Wallet) ScanBlock(blk *wire.MsgBlock) []chainhash.Hash {
	w.mtx.RLock()
	defer w.mtx.RUnlock()

	if len(w.watchedScripts) == 0 {
		return nil
	}
	var matches []chainhash.Hash
	for _, tx := range blk.Transactions {
		for _, out := range tx.TxOut {
			if w.watchedScripts[string(out.PkScript)] {
				matches = append(matches, tx.TxHash())
				break
			}
		}
	}
	return matches
}

// Commit records scan matches from a block that made it into the
// chain.  Transactions already recorded are skipped.
func (w *Wallet) Commit(matches []chainhash.Hash) {
	w.mtx.Lock()
	defer w.mtx.Unlock()
	for _, txid := range matches {
		if w.seen[txid] {
			continue
		}
		w.seen[txid] = true
		w.txids = append(w.txids, txid)
	}
}

// OurTxs returns the id of every transaction that paid a watched
// script, in the order they were found.
func (w *Wallet) OurTxs() []chainhash.Hash {
	w.mtx.RLock()
	defer w.mtx.RUnlock()
	return append([]chainhash.Hash{}, w.txids...)
}
