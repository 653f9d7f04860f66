package csn

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/Davidson-Souza/floresta-go/accumulator"
	"github.com/Davidson-Souza/floresta-go/btcacc"
	uwire "github.com/Davidson-Souza/floresta-go/wire"
)

// processProof turns the compact leaf data riding along with a block
// back into the full leaves its inputs spend, and returns their hashes
// in the order the proof targets them, along with the rebuilt leaves.
//
// Outputs created and spent inside the same block never made it into
// the accumulator, so their inputs consume no leaf data.  Each tx
// registers its outputs before its inputs are walked, which is how
// in-block parents are recognized.
func (s *ChainState) processProof(ub *uwire.UBlock) (
	[]accumulator.Hash, []btcacc.LeafData, error) {

	leaves := ub.LeafData
	delHashes := make([]accumulator.Hash, 0, len(leaves))
	spent := make([]btcacc.LeafData, 0, len(leaves))

	inBlock := make(map[wire.OutPoint]bool)
	for coinbaseif0, tx := range ub.Block.Transactions {
		txid := tx.TxHash()
		for i := range tx.TxOut {
			inBlock[wire.OutPoint{Hash: txid, Index: uint32(i)}] = true
		}
		if coinbaseif0 == 0 {
			// coinbase spends nothing
			continue
		}
		for _, in := range tx.TxIn {
			if inBlock[in.PreviousOutPoint] {
				continue
			}
			if len(leaves) == 0 {
				return nil, nil, fmt.Errorf("%w: nothing left for input %s",
					ErrProofExhausted, in.PreviousOutPoint.String())
			}
			compact := leaves[0]
			leaves = leaves[1:]

			createdAt, ok, err := s.GetBlockHash(compact.Height())
			if err != nil {
				return nil, nil, err
			}
			if !ok {
				return nil, nil, fmt.Errorf(
					"%w: no block hash for height %d, claimed by input %s",
					ErrInvalidProof, compact.Height(), in.PreviousOutPoint.String())
			}

			leaf, err := btcacc.ReconstructLeafData(compact, in, createdAt)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s", ErrMalformedInput, err)
			}
			delHashes = append(delHashes, leaf.LeafHash())
			spent = append(spent, leaf)
		}
	}
	if len(leaves) != 0 {
		return nil, nil, fmt.Errorf("%w: %d leaf datas left over after all inputs",
			ErrMalformedInput, len(leaves))
	}
	return delHashes, spent, nil
}
