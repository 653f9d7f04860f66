package wire

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/wire"

	"github.com/Davidson-Souza/floresta-go/accumulator"
	"github.com/Davidson-Souza/floresta-go/btcacc"
	"github.com/Davidson-Souza/floresta-go/util"
)

// UBlock is a block with everything needed to connect it against the
// accumulator: the batch proof for the utxos the block spends and one
// compact leaf per proven input to rebuild them.
type UBlock struct {
	Block    wire.MsgBlock
	Proof    accumulator.BatchProof
	LeafData []btcacc.CompactLeafData
}

// jsonUBlock is the wire form.  The block is consensus serialized and
// hex encoded, the proof hashes ride as hex strings, the leaves as
// compact json objects.
type jsonUBlock struct {
	Block    string                   `json:"block"`
	Proof    JSONProof                `json:"proof"`
	LeafData []btcacc.CompactLeafData `json:"leaf_data"`
}

// JSONProof carries a batch proof with the hashes hex encoded.
type JSONProof struct {
	Targets []uint64 `json:"targets"`
	Hashes  []string `json:"hashes"`
}

// ToBatchProof decodes the proof hashes out of their hex form.
func (jp *JSONProof) ToBatchProof() (accumulator.BatchProof, error) {
	bp := accumulator.BatchProof{
		Targets: jp.Targets,
		Proof:   make([]accumulator.Hash, len(jp.Hashes)),
	}
	for i, hexHash := range jp.Hashes {
		raw, err := hex.DecodeString(hexHash)
		if err != nil {
			return bp, fmt.Errorf("proof hash %d: %s", i, err.Error())
		}
		if len(raw) != 32 {
			return bp, fmt.Errorf("proof hash %d is %d bytes, want 32",
				i, len(raw))
		}
		copy(bp.Proof[i][:], raw)
	}
	return bp, nil
}

// ProofToJSON is the other direction, for building envelopes.
func ProofToJSON(bp accumulator.BatchProof) JSONProof {
	jp := JSONProof{
		Targets: bp.Targets,
		Hashes:  make([]string, len(bp.Proof)),
	}
	for i, h := range bp.Proof {
		jp.Hashes[i] = hex.EncodeToString(h[:])
	}
	return jp
}

func (ub *UBlock) UnmarshalJSON(text []byte) error {
	var ju jsonUBlock
	if err := json.Unmarshal(text, &ju); err != nil {
		return err
	}

	rawBlock, err := hex.DecodeString(ju.Block)
	if err != nil {
		return fmt.Errorf("block hex: %s", err.Error())
	}
	r := bytes.NewReader(rawBlock)
	if err := ub.Block.Deserialize(r); err != nil {
		return fmt.Errorf("block deserialize: %s", err.Error())
	}
	if r.Len() != 0 {
		return fmt.Errorf("%d trailing bytes after block", r.Len())
	}

	ub.Proof, err = ju.Proof.ToBatchProof()
	if err != nil {
		return err
	}
	ub.LeafData = ju.LeafData
	return nil
}

func (ub *UBlock) MarshalJSON() ([]byte, error) {
	var blockBuf bytes.Buffer
	if err := ub.Block.Serialize(&blockBuf); err != nil {
		return nil, err
	}

	return json.Marshal(jsonUBlock{
		Block:    hex.EncodeToString(blockBuf.Bytes()),
		Proof:    ProofToJSON(ub.Proof),
		LeafData: ub.LeafData,
	})
}

// ProofSanity checks that the utreexo data is consistent with itself:
// one compact leaf per proof target.
func (ub *UBlock) ProofSanity() error {
	if len(ub.Proof.Targets) != len(ub.LeafData) {
		return fmt.Errorf("%d proof targets but %d leaf datas",
			len(ub.Proof.Targets), len(ub.LeafData))
	}
	return nil
}

// BlockToAddLeaves turns all the new utxos in a msgblock into leaves to
// add to the accumulator.  Skips unspendable outputs and outputs on the
// skiplist, which is where same block spends land.  Doesn't check the
// skiplist length, similar to how the skiplist itself doesn't.
func BlockToAddLeaves(blk *wire.MsgBlock,
	outskip []uint32, height int32) (leaves []accumulator.Leaf) {

	bh := blk.BlockHash()

	var txonum uint32
	for coinbaseif0, tx := range blk.Transactions {
		// cache txid aka txhash
		txid := tx.TxHash()
		for i, out := range tx.TxOut {
			// Skip all the OP_RETURNs
			if util.IsUnspendable(out) {
				txonum++
				continue
			}
			// Skip txos on the skip list
			if len(outskip) > 0 && outskip[0] == txonum {
				outskip = outskip[1:]
				txonum++
				continue
			}

			var l btcacc.LeafData
			l.BlockHash = bh
			l.TxHash = txid
			l.Index = uint32(i)
			l.Height = height
			if coinbaseif0 == 0 {
				l.Coinbase = true
			}
			l.Amt = out.Value
			l.PkScript = out.PkScript

			leaves = append(leaves, accumulator.Leaf{Hash: l.LeafHash()})
			txonum++
		}
	}
	return
}
