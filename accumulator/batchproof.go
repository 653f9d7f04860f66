package accumulator

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BatchProof is the inclusion proof for a batch of leaves.  The Targets
// are the positions of the leaves being proven, the Proof hashes are the
// siblings needed to hash up to the roots.  The positions of the hashes
// are implied / computable from the leaf positions.
type BatchProof struct {
	Targets []uint64
	Proof   []Hash
}

/*
Batchproof serialization is:
4bytes numTargets
4bytes numHashes
[]Targets (8 bytes each)
[]Hashes (32 bytes each)
*/

// Serialize a batchproof to a writer.
func (bp *BatchProof) Serialize(w io.Writer) (err error) {
	// first write the number of targets (4 byte uint32)
	err = binary.Write(w, binary.BigEndian, uint32(len(bp.Targets)))
	if err != nil {
		return err
	}
	// write out number of hashes in the proof
	err = binary.Write(w, binary.BigEndian, uint32(len(bp.Proof)))
	if err != nil {
		return
	}

	// write out each target
	for _, t := range bp.Targets {
		// there's no need for these to be 64 bit for the next few decades...
		err = binary.Write(w, binary.BigEndian, t)
		if err != nil {
			return
		}
	}

	// then the rest is just hashes
	for _, h := range bp.Proof {
		_, err = w.Write(h[:])
		if err != nil {
			return
		}
	}
	return
}

// SerializeSize says how big a serialized batchproof is.
func (bp *BatchProof) SerializeSize() int {
	// 8B for numTargets and numHashes, 8B per target, 32B per hash
	return 8 + (8 * (len(bp.Targets))) + (32 * (len(bp.Proof)))
}

// Deserialize gives a batchproof back from the serialized bytes
func (bp *BatchProof) Deserialize(r io.Reader) (err error) {
	var numTargets, numHashes uint32
	err = binary.Read(r, binary.BigEndian, &numTargets)
	if err != nil {
		return
	}
	if numTargets > 1<<16 {
		err = fmt.Errorf("%d targets - too many", numTargets)
		return
	}

	// read number of hashes
	err = binary.Read(r, binary.BigEndian, &numHashes)
	if err != nil {
		return
	}
	if numHashes > 1<<16 {
		err = fmt.Errorf("%d hashes - too many", numHashes)
		return
	}

	bp.Targets = make([]uint64, numTargets)
	for i := range bp.Targets {
		err = binary.Read(r, binary.BigEndian, &bp.Targets[i])
		if err != nil {
			return
		}
	}

	bp.Proof = make([]Hash, numHashes)
	for i := range bp.Proof {
		_, err = io.ReadFull(r, bp.Proof[i][:])
		if err != nil {
			return
		}
	}
	return
}

// ToString for debugging, shows the batchproof
func (bp *BatchProof) ToString() string {
	s := fmt.Sprintf("%d targets: ", len(bp.Targets))
	for _, t := range bp.Targets {
		s += fmt.Sprintf("%d ", t)
	}
	s += fmt.Sprintf("\n%d proofs: ", len(bp.Proof))
	for _, p := range bp.Proof {
		s += fmt.Sprintf("%04x\t", p[:4])
	}
	s += "\n"
	return s
}
