package btcacc

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// Compact leaf data is what actually goes over the wire.  The block
// hash is recoverable from the creation height, the outpoint is already
// in the spending block, and for standard outputs the pkScript itself
// is recomputable from the spending input, so a tag is enough.  Only
// nonstandard scripts get copied over whole.

// SpkType tags which script template a compact leaf claims its output
// pays to.
type SpkType uint8

const (
	SpkOther SpkType = iota
	SpkPubKeyHash
	SpkWitnessV0PubKeyHash
	SpkScriptHash
	SpkWitnessV0ScriptHash
)

var spkTypeNames = map[SpkType]string{
	SpkPubKeyHash:          "PubKeyHash",
	SpkWitnessV0PubKeyHash: "WitnessV0PubKeyHash",
	SpkScriptHash:          "ScriptHash",
	SpkWitnessV0ScriptHash: "WitnessV0ScriptHash",
}

var spkTypeByName = map[string]SpkType{
	"PubKeyHash":          SpkPubKeyHash,
	"WitnessV0PubKeyHash": SpkWitnessV0PubKeyHash,
	"ScriptHash":          SpkScriptHash,
	"WitnessV0ScriptHash": SpkWitnessV0ScriptHash,
}

// ScriptPubkeyType is a script template tag, carrying the raw script
// bytes only when the template is Other.
type ScriptPubkeyType struct {
	Type   SpkType
	Script []byte
}

func (s ScriptPubkeyType) String() string {
	if s.Type == SpkOther {
		return fmt.Sprintf("Other(%x)", s.Script)
	}
	return spkTypeNames[s.Type]
}

// MarshalJSON writes the template tag as a bare string, or an Other
// script as {"Other": [bytes]}.
func (s ScriptPubkeyType) MarshalJSON() ([]byte, error) {
	if s.Type == SpkOther {
		nums := make([]int, len(s.Script))
		for i, b := range s.Script {
			nums[i] = int(b)
		}
		return json.Marshal(struct {
			Other []int `json:"Other"`
		}{Other: nums})
	}

	name, ok := spkTypeNames[s.Type]
	if !ok {
		return nil, fmt.Errorf("unknown script type %d", s.Type)
	}
	return json.Marshal(name)
}

func (s *ScriptPubkeyType) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		ty, ok := spkTypeByName[name]
		if !ok {
			return fmt.Errorf("unknown script type %q", name)
		}
		s.Type, s.Script = ty, nil
		return nil
	}

	var tagged struct {
		Other []int `json:"Other"`
	}
	if err := json.Unmarshal(b, &tagged); err != nil {
		return fmt.Errorf("unparseable script type: %s", err.Error())
	}
	if tagged.Other == nil {
		return fmt.Errorf("script type object carries no Other script")
	}

	s.Type = SpkOther
	s.Script = make([]byte, len(tagged.Other))
	for i, v := range tagged.Other {
		if v < 0 || v > 0xff {
			return fmt.Errorf("script byte %d out of range", v)
		}
		s.Script[i] = byte(v)
	}
	return nil
}

// CompactLeafData is the compact form of a LeafData.  The header code
// packs the creation height with the coinbase flag in the low bit.
type CompactLeafData struct {
	HeaderCode uint32           `json:"header_code"`
	Amt        uint64           `json:"amount"`
	SpkType    ScriptPubkeyType `json:"spk_ty"`
}

// Height gives the height of the block that made this utxo.
func (c *CompactLeafData) Height() int32 {
	return int32(c.HeaderCode >> 1)
}

// Coinbase is true if the utxo is a coinbase output.
func (c *CompactLeafData) Coinbase() bool {
	return c.HeaderCode&1 == 1
}

// NewHeaderCode packs a creation height and coinbaseness into the wire
// encoding.
func NewHeaderCode(height int32, coinbase bool) uint32 {
	code := uint32(height) << 1
	if coinbase {
		code |= 1
	}
	return code
}

// CompactScriptType classifies a pkScript the way the proof generator
// does: standard templates become a bare tag and everything else gets
// carried verbatim.
func CompactScriptType(pkScript []byte) ScriptPubkeyType {
	switch txscript.GetScriptClass(pkScript) {
	case txscript.PubKeyHashTy:
		return ScriptPubkeyType{Type: SpkPubKeyHash}
	case txscript.WitnessV0PubKeyHashTy:
		return ScriptPubkeyType{Type: SpkWitnessV0PubKeyHash}
	case txscript.ScriptHashTy:
		return ScriptPubkeyType{Type: SpkScriptHash}
	case txscript.WitnessV0ScriptHashTy:
		return ScriptPubkeyType{Type: SpkWitnessV0ScriptHash}
	default:
		script := make([]byte, len(pkScript))
		copy(script, pkScript)
		return ScriptPubkeyType{Type: SpkOther, Script: script}
	}
}

// Compact squeezes a full leaf down to what the wire format carries.
func (l *LeafData) Compact() CompactLeafData {
	return CompactLeafData{
		HeaderCode: NewHeaderCode(l.Height, l.Coinbase),
		Amt:        uint64(l.Amt),
		SpkType:    CompactScriptType(l.PkScript),
	}
}
