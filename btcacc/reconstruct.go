package btcacc

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

// ReconstructLeafData rebuilds the full leaf for the output spent by
// the given input.  The outpoint comes from the input, the script comes
// from the input's unlocking data for standard templates, and the block
// hash has to be looked up by the caller since the leaf commits to the
// block that made the output, not the one spending it.
func ReconstructLeafData(c CompactLeafData, in *wire.TxIn,
	createdBlock chainhash.Hash) (LeafData, error) {

	l := LeafData{
		BlockHash: createdBlock,
		TxHash:    in.PreviousOutPoint.Hash,
		Index:     in.PreviousOutPoint.Index,
		Height:    c.Height(),
		Coinbase:  c.Coinbase(),
		Amt:       int64(c.Amt),
	}

	pkScript, err := reconstructScript(c.SpkType, in)
	if err != nil {
		return l, fmt.Errorf("input %s: %s", l.OPString(), err.Error())
	}
	l.PkScript = pkScript

	return l, nil
}

func reconstructScript(spk ScriptPubkeyType, in *wire.TxIn) ([]byte, error) {
	switch spk.Type {
	case SpkOther:
		script := make([]byte, len(spk.Script))
		copy(script, spk.Script)
		return script, nil

	case SpkPubKeyHash:
		// the pubkey is the last push of the unlocking script
		pubKey, err := lastPush(in.SignatureScript)
		if err != nil {
			return nil, err
		}
		return payToPubKeyHashScript(btcutil.Hash160(pubKey))

	case SpkWitnessV0PubKeyHash:
		// p2wpkh witnesses are exactly signature then pubkey
		if len(in.Witness) != 2 {
			return nil, fmt.Errorf(
				"p2wpkh witness has %d items, want 2", len(in.Witness))
		}
		return payToWitnessHashScript(btcutil.Hash160(in.Witness[1]))

	case SpkScriptHash:
		redeem, err := lastPush(in.SignatureScript)
		if err != nil {
			return nil, err
		}
		return payToScriptHashScript(btcutil.Hash160(redeem))

	case SpkWitnessV0ScriptHash:
		if len(in.Witness) == 0 {
			return nil, fmt.Errorf("p2wsh witness is empty")
		}
		witnessScript := sha256.Sum256(in.Witness[len(in.Witness)-1])
		return payToWitnessHashScript(witnessScript[:])

	default:
		return nil, fmt.Errorf("unknown script type %d", spk.Type)
	}
}

// lastPush gives the last data push of a script, which is where the
// pubkey or redeem script sits in standard unlocking scripts.
func lastPush(script []byte) ([]byte, error) {
	pushes, err := txscript.PushedData(script)
	if err != nil {
		return nil, err
	}
	if len(pushes) == 0 {
		return nil, fmt.Errorf("unlocking script carries no data pushes")
	}
	return pushes[len(pushes)-1], nil
}

func payToPubKeyHashScript(pkHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).
		AddData(pkHash).
		AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG).
		Script()
}

func payToScriptHashScript(scriptHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).AddData(scriptHash).AddOp(txscript.OP_EQUAL).
		Script()
}

// payToWitnessHashScript builds a v0 witness program around a 20 or 32
// byte hash.
func payToWitnessHashScript(hash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).AddData(hash).
		Script()
}
