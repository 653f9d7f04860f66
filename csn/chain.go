package csn

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"

	"github.com/Davidson-Souza/floresta-go/accumulator"
)

// ChainState follows the best header chain and keeps the accumulator
// that commits to its utxo set.  It holds no utxos itself; blocks prove
// what they spend and ConnectBlock checks the proof against the roots.
// All methods are safe for concurrent use.
type ChainState struct {
	mtx sync.RWMutex

	params *chaincfg.Params
	store  ChainStore

	// acc only moves in ConnectBlock, and only after the store write
	// lands.
	acc accumulator.Stump

	bestHash   chainhash.Hash
	bestHeader wire.BlockHeader
	bestHeight int32

	// ibd reports whether the node thinks it's still catching up.
	ibd bool

	// assumeValidHashes is a flat 32 byte per height block hash table
	// covering the blocks below the checkpoint the node bootstrapped
	// from, genesis first.  The header index always wins over it.
	assumeValidHashes []byte
}

// NewChainState brings the chain up from the store if there's a state
// saved, and otherwise starts it at the configured checkpoint or at
// genesis.
func NewChainState(cfg *Config, store ChainStore) (*ChainState, error) {
	if cfg.Params == nil {
		return nil, fmt.Errorf("no chain params given")
	}
	if len(cfg.AssumeValidHashes)%chainhash.HashSize != 0 {
		return nil, fmt.Errorf("assume valid table is %d bytes, not a multiple of %d",
			len(cfg.AssumeValidHashes), chainhash.HashSize)
	}

	s := &ChainState{
		params:            cfg.Params,
		store:             store,
		ibd:               true,
		assumeValidHashes: cfg.AssumeValidHashes,
	}

	tip, ok, err := store.GetBestChain()
	if err != nil {
		return nil, err
	}
	if ok {
		numLeaves, roots, ok, err := store.GetRoots()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errStore(fmt.Errorf("have a tip but no accumulator roots"))
		}
		header, ok, err := store.GetHeader(tip.Hash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errStore(fmt.Errorf("have a tip but no header for it"))
		}
		s.acc = accumulator.Stump{NumLeaves: numLeaves, Roots: roots}
		s.bestHash = tip.Hash
		s.bestHeader = header.Header
		s.bestHeight = tip.Height
		log.Infof("resuming chain at height %d tip %s", tip.Height, tip.Hash)
		return s, nil
	}

	// Fresh start.  Either the trusted checkpoint or plain genesis.
	start := DiskBlockHeader{Header: cfg.Params.GenesisBlock.Header, Height: 0}
	if cfg.Checkpoint != nil {
		start = DiskBlockHeader{
			Header: cfg.Checkpoint.Header,
			Height: cfg.Checkpoint.Height,
		}
		s.acc = accumulator.Stump{
			NumLeaves: cfg.Checkpoint.Acc.NumLeaves,
			Roots:     append([]accumulator.Hash{}, cfg.Checkpoint.Acc.Roots...),
		}
	}
	err = store.SaveChainState(start, s.acc.NumLeaves, s.acc.Roots)
	if err != nil {
		return nil, err
	}
	s.bestHash = start.Header.BlockHash()
	s.bestHeader = start.Header
	s.bestHeight = start.Height
	log.Infof("starting chain at height %d tip %s", start.Height, s.bestHash)
	return s, nil
}

// AcceptHeader checks that a header builds on one we already have and
// carries valid proof of work, then indexes it by hash.  It doesn't
// move the tip; ConnectBlock does that.  Accepting a header we already
// have is a no-op.
func (s *ChainState) AcceptHeader(header wire.BlockHeader) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	hash := header.BlockHash()
	_, have, err := s.store.GetHeader(hash)
	if err != nil {
		return err
	}
	if have {
		return nil
	}

	prev, ok, err := s.store.GetHeader(header.PrevBlock)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: header %s builds on unknown block %s",
			ErrHeaderRejected, hash, header.PrevBlock)
	}

	err = checkProofOfWork(&header, s.params.PowLimit)
	if err != nil {
		return fmt.Errorf("%w: header %s: %s", ErrHeaderRejected, hash, err)
	}

	return s.store.SaveHeader(DiskBlockHeader{Header: header, Height: prev.Height + 1})
}

// checkProofOfWork verifies that the header hash is under the target
// its Bits field claims, and that the claim itself is in range for the
// network.
func checkProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	target := blockchain.CompactToBig(header.Bits)
	if target.Sign() <= 0 {
		return fmt.Errorf("target %064x is zero or negative", target)
	}
	if target.Cmp(powLimit) > 0 {
		return fmt.Errorf("target %064x is above the pow limit %064x",
			target, powLimit)
	}
	hash := header.BlockHash()
	if blockchain.HashToBig(&hash).Cmp(target) > 0 {
		return fmt.Errorf("hash %s is above the target", hash)
	}
	return nil
}

// ConnectBlock advances the tip to blk.  delHashes are the leaves the
// block spends, in proof target order, and adds are the leaves its
// outputs create.  The proof is checked against the current roots and
// the new state hits the store before anything in memory moves, so a
// failed connect leaves the chain exactly where it was.
func (s *ChainState) ConnectBlock(blk *wire.MsgBlock, proof accumulator.BatchProof,
	delHashes []accumulator.Hash, adds []accumulator.Leaf) error {

	s.mtx.Lock()
	defer s.mtx.Unlock()

	hash := blk.BlockHash()
	if blk.Header.PrevBlock != s.bestHash {
		return fmt.Errorf("%w: block %s builds on %s but the tip is %s",
			ErrConnectRejected, hash, blk.Header.PrevBlock, s.bestHash)
	}
	if len(blk.Transactions) == 0 {
		return fmt.Errorf("%w: block %s has no transactions", ErrConnectRejected, hash)
	}
	merkles := blockchain.BuildMerkleTreeStore(btcutil.NewBlock(blk).Transactions(), false)
	merkleRoot := merkles[len(merkles)-1]
	if *merkleRoot != blk.Header.MerkleRoot {
		return fmt.Errorf("%w: block %s merkle root is %s, header claims %s",
			ErrConnectRejected, hash, merkleRoot, blk.Header.MerkleRoot)
	}
	height := s.bestHeight + 1

	// Work on a copy so a failed verify can't touch the live roots.
	work := accumulator.Stump{
		NumLeaves: s.acc.NumLeaves,
		Roots:     append([]accumulator.Hash{}, s.acc.Roots...),
	}
	err := work.Modify(adds, delHashes, proof)
	if err != nil {
		return fmt.Errorf("%w: block %s: %s", ErrInvalidProof, hash, err)
	}

	err = s.store.SaveChainState(
		DiskBlockHeader{Header: blk.Header, Height: height},
		work.NumLeaves, work.Roots)
	if err != nil {
		return err
	}

	s.acc = work
	s.bestHash = hash
	s.bestHeader = blk.Header
	s.bestHeight = height
	return nil
}

// GetBlockHash resolves a height to the best chain block hash at that
// height.  The header index is the authority; heights it doesn't cover
// fall through to the assumed valid table.
func (s *ChainState) GetBlockHash(height int32) (chainhash.Hash, bool, error) {
	var hash chainhash.Hash
	if height < 0 {
		return hash, false, nil
	}
	hash, ok, err := s.store.GetBlockHash(height)
	if err != nil || ok {
		return hash, ok, err
	}
	offset := int(height) * chainhash.HashSize
	if offset+chainhash.HashSize <= len(s.assumeValidHashes) {
		copy(hash[:], s.assumeValidHashes[offset:offset+chainhash.HashSize])
		return hash, true, nil
	}
	return chainhash.Hash{}, false, nil
}

// GetBlockHeader looks a header up by block hash.
func (s *ChainState) GetBlockHeader(hash chainhash.Hash) (DiskBlockHeader, bool, error) {
	return s.store.GetHeader(hash)
}

// GetBestBlock returns the tip hash and height.
func (s *ChainState) GetBestBlock() (chainhash.Hash, int32) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.bestHash, s.bestHeight
}

// Height returns the height of the best block.
func (s *ChainState) Height() int32 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.bestHeight
}

// Tip returns the best block hash.
func (s *ChainState) Tip() chainhash.Hash {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.bestHash
}

// IsInIBD reports whether the node is still in its initial block
// download.
func (s *ChainState) IsInIBD() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.ibd
}

// ToggleIBD flips the initial block download flag.
func (s *ChainState) ToggleIBD(ibd bool) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.ibd = ibd
}

// Target returns the proof of work target the tip's Bits commit to.
func (s *ChainState) Target() *big.Int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return blockchain.CompactToBig(s.bestHeader.Bits)
}

// Difficulty returns how many times harder the tip's target is than
// the easiest target the network allows.
func (s *ChainState) Difficulty() uint64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	target := blockchain.CompactToBig(s.bestHeader.Bits)
	if target.Sign() <= 0 {
		return 0
	}
	return new(big.Int).Div(s.params.PowLimit, target).Uint64()
}

// AccumulatorRoots returns a copy of the current accumulator state.
func (s *ChainState) AccumulatorRoots() accumulator.Stump {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return accumulator.Stump{
		NumLeaves: s.acc.NumLeaves,
		Roots:     append([]accumulator.Hash{}, s.acc.Roots...),
	}
}
