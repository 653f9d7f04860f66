package btcacc

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
)

func testInput(sigScript []byte, witness wire.TxWitness) *wire.TxIn {
	return &wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: chainhash.Hash{7}, Index: 3},
		SignatureScript:  sigScript,
		Witness:          witness,
	}
}

func testPubKey() []byte {
	pubKey := make([]byte, 33)
	pubKey[0] = 0x02
	for i := 1; i < len(pubKey); i++ {
		pubKey[i] = byte(i)
	}
	return pubKey
}

func testSig() []byte {
	sig := make([]byte, 71)
	sig[0] = 0x30
	return sig
}

func TestReconstructPubKeyHash(t *testing.T) {
	pubKey := testPubKey()
	sigScript, err := txscript.NewScriptBuilder().
		AddData(testSig()).AddData(pubKey).Script()
	if err != nil {
		t.Fatal(err)
	}

	c := CompactLeafData{
		HeaderCode: NewHeaderCode(100, false),
		Amt:        50000,
		SpkType:    ScriptPubkeyType{Type: SpkPubKeyHash},
	}
	ld, err := ReconstructLeafData(c, testInput(sigScript, nil), chainhash.Hash{0xbb})
	if err != nil {
		t.Fatal(err)
	}

	want := append(append([]byte{0x76, 0xa9, 0x14},
		btcutil.Hash160(pubKey)...), 0x88, 0xac)
	if !bytes.Equal(ld.PkScript, want) {
		t.Fatalf("rebuilt script %x, want %x", ld.PkScript, want)
	}

	// everything else comes straight from the input and the compact leaf
	if ld.TxHash != (chainhash.Hash{7}) || ld.Index != 3 {
		t.Fatalf("outpoint came out as %s", ld.OPString())
	}
	if ld.BlockHash != (chainhash.Hash{0xbb}) {
		t.Fatal("block hash not carried over")
	}
	if ld.Height != 100 || ld.Coinbase || ld.Amt != 50000 {
		t.Fatalf("leaf fields wrong: %s", ld.ToString())
	}
}

func TestReconstructWitnessPubKeyHash(t *testing.T) {
	pubKey := testPubKey()

	c := CompactLeafData{SpkType: ScriptPubkeyType{Type: SpkWitnessV0PubKeyHash}}
	in := testInput(nil, wire.TxWitness{testSig(), pubKey})
	ld, err := ReconstructLeafData(c, in, chainhash.Hash{})
	if err != nil {
		t.Fatal(err)
	}

	want := append([]byte{0x00, 0x14}, btcutil.Hash160(pubKey)...)
	if !bytes.Equal(ld.PkScript, want) {
		t.Fatalf("rebuilt script %x, want %x", ld.PkScript, want)
	}

	// p2wpkh witnesses always hold exactly signature and pubkey
	oneItem := testInput(nil, wire.TxWitness{pubKey})
	if _, err := ReconstructLeafData(c, oneItem, chainhash.Hash{}); err == nil {
		t.Fatal("single item witness accepted for p2wpkh")
	}
	noWitness := testInput(nil, nil)
	if _, err := ReconstructLeafData(c, noWitness, chainhash.Hash{}); err == nil {
		t.Fatal("missing witness accepted for p2wpkh")
	}
}

func TestReconstructScriptHash(t *testing.T) {
	redeem := []byte{0x51} // OP_TRUE
	sigScript, err := txscript.NewScriptBuilder().
		AddData([]byte{0x01, 0x02}).AddData(redeem).Script()
	if err != nil {
		t.Fatal(err)
	}

	c := CompactLeafData{SpkType: ScriptPubkeyType{Type: SpkScriptHash}}
	ld, err := ReconstructLeafData(c, testInput(sigScript, nil), chainhash.Hash{})
	if err != nil {
		t.Fatal(err)
	}

	want := append(append([]byte{0xa9, 0x14}, btcutil.Hash160(redeem)...), 0x87)
	if !bytes.Equal(ld.PkScript, want) {
		t.Fatalf("rebuilt script %x, want %x", ld.PkScript, want)
	}
}

func TestReconstructWitnessScriptHash(t *testing.T) {
	witnessScript := []byte{0x51, 0x51, 0x93} // some junk script
	in := testInput(nil, wire.TxWitness{{0x01}, {0x02}, witnessScript})

	c := CompactLeafData{SpkType: ScriptPubkeyType{Type: SpkWitnessV0ScriptHash}}
	ld, err := ReconstructLeafData(c, in, chainhash.Hash{})
	if err != nil {
		t.Fatal(err)
	}

	scriptHash := sha256.Sum256(witnessScript)
	want := append([]byte{0x00, 0x20}, scriptHash[:]...)
	if !bytes.Equal(ld.PkScript, want) {
		t.Fatalf("rebuilt script %x, want %x", ld.PkScript, want)
	}

	empty := testInput(nil, nil)
	if _, err := ReconstructLeafData(c, empty, chainhash.Hash{}); err == nil {
		t.Fatal("empty witness accepted for p2wsh")
	}
}

func TestReconstructOther(t *testing.T) {
	script := []byte{0x6a, 0x01, 0x02}
	c := CompactLeafData{
		SpkType: ScriptPubkeyType{Type: SpkOther, Script: script},
	}
	ld, err := ReconstructLeafData(c, testInput(nil, nil), chainhash.Hash{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(ld.PkScript, script) {
		t.Fatalf("script %x not copied over", ld.PkScript)
	}
}

func TestReconstructErrors(t *testing.T) {
	c := CompactLeafData{SpkType: ScriptPubkeyType{Type: SpkPubKeyHash}}

	// no unlocking script at all
	if _, err := ReconstructLeafData(c, testInput(nil, nil), chainhash.Hash{}); err == nil {
		t.Fatal("empty sigScript accepted for p2pkh")
	}

	// opcodes but no data pushes
	opsOnly := testInput([]byte{0x76}, nil)
	if _, err := ReconstructLeafData(c, opsOnly, chainhash.Hash{}); err == nil {
		t.Fatal("pushless sigScript accepted for p2pkh")
	}

	// truncated push opcode
	truncated := testInput([]byte{0x4c}, nil)
	if _, err := ReconstructLeafData(c, truncated, chainhash.Hash{}); err == nil {
		t.Fatal("malformed sigScript accepted for p2pkh")
	}

	unknown := CompactLeafData{SpkType: ScriptPubkeyType{Type: SpkType(99)}}
	if _, err := ReconstructLeafData(unknown, testInput(nil, nil), chainhash.Hash{}); err == nil {
		t.Fatal("unknown script type accepted")
	}
}

// TestCompactReconstructRoundTrip squeezes a leaf down to the wire form
// and rebuilds it from the spending input, which has to give back the
// exact same leaf hash.
func TestCompactReconstructRoundTrip(t *testing.T) {
	pubKey := testPubKey()
	pkScript := append([]byte{0x00, 0x14}, btcutil.Hash160(pubKey)...)

	orig := LeafData{
		BlockHash: chainhash.Hash{0xaa},
		TxHash:    chainhash.Hash{0xcc},
		Index:     1,
		Height:    55,
		Coinbase:  false,
		Amt:       1234,
		PkScript:  pkScript,
	}

	c := orig.Compact()
	if c.SpkType.Type != SpkWitnessV0PubKeyHash {
		t.Fatalf("compacted to %s", c.SpkType.String())
	}

	in := &wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: orig.TxHash, Index: orig.Index},
		Witness:          wire.TxWitness{testSig(), pubKey},
	}
	back, err := ReconstructLeafData(c, in, orig.BlockHash)
	if err != nil {
		t.Fatal(err)
	}

	if back.LeafHash() != orig.LeafHash() {
		t.Fatalf("round trip changed the leaf:\nin  %s\nout %s",
			orig.ToString(), back.ToString())
	}
}
