package btcacc

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func TestLeafDataSerialize(t *testing.T) {
	ld := LeafData{
		BlockHash: chainhash.Hash{9, 8, 7},
		TxHash:    chainhash.Hash{1, 2, 3, 4},
		Index:     0,
		Height:    2,
		Coinbase:  false,
		Amt:       3000,
		PkScript:  []byte{1, 2, 3, 4, 5, 6},
	}

	// Before
	writer := &bytes.Buffer{}
	ld.Serialize(writer)
	beforeBytes := writer.Bytes()

	if len(beforeBytes) != ld.SerializeSize() {
		t.Fatalf("serialized to %d bytes but SerializeSize says %d",
			len(beforeBytes), ld.SerializeSize())
	}

	// After
	checkLeaf := LeafData{}
	checkLeaf.Deserialize(writer)

	afterWriter := &bytes.Buffer{}
	checkLeaf.Serialize(afterWriter)
	afterBytes := afterWriter.Bytes()

	if !bytes.Equal(beforeBytes, afterBytes) {
		err := fmt.Errorf("Serialize/Deserialize LeafData fail\n"+
			"beforeBytes len: %v\n, afterBytes len:%v\n",
			len(beforeBytes), len(afterBytes))
		t.Fatal(err)
	}
}

// TestLeafHashCommitsToBlockHash makes sure two leaves differing only
// in the block that made them hash differently.
func TestLeafHashCommitsToBlockHash(t *testing.T) {
	ld := LeafData{
		BlockHash: chainhash.Hash{1},
		TxHash:    chainhash.Hash{2},
		Index:     1,
		Height:    100,
		Coinbase:  true,
		Amt:       5000000000,
		PkScript:  []byte{0x51},
	}
	other := ld
	other.BlockHash = chainhash.Hash{3}

	if ld.LeafHash() == other.LeafHash() {
		t.Fatal("leaf hash ignores the block hash")
	}
}
