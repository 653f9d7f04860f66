package accumulator

import (
	"fmt"
	"sort"
)

// Stump is the bare-bones accumulator: just the roots and the leaf
// count, nothing cached below a root.  It can verify batch proofs
// against its roots and roll them forward for a batch of additions and
// deletions, so a node carrying only a Stump still tracks the full
// UTXO commitment.
type Stump struct {
	NumLeaves uint64
	Roots     []Hash
}

// proveNode is a position being hashed toward its subtree root.  cur is
// the hash with the proven leaves still in place, after is the hash the
// node takes once those leaves are deleted.
type proveNode struct {
	pos        uint64
	cur, after Hash
}

func sortProves(s []proveNode) {
	sort.Slice(s, func(a, b int) bool { return s[a].pos < s[b].pos })
}

// String prints the leaf count and the first few bytes of every root.
func (s *Stump) String() string {
	str := fmt.Sprintf("%d leaves, %d roots: ", s.NumLeaves, len(s.Roots))
	for _, root := range s.Roots {
		str += fmt.Sprintf("%04x ", root[:4])
	}
	return str
}

// Verify checks a batch proof of the given leaf hashes against the
// current roots.  A nil error means every target hashed up to a root
// the Stump knows.
func (s *Stump) Verify(delHashes []Hash, proof BatchProof) error {
	if len(delHashes) != len(proof.Targets) {
		return fmt.Errorf("verify: %d del hashes but %d targets",
			len(delHashes), len(proof.Targets))
	}
	if len(delHashes) == 0 {
		return nil
	}

	curRoots, _, err := s.calculateRoots(delHashes, proof)
	if err != nil {
		return err
	}

	_, err = s.matchRoots(curRoots)
	return err
}

// Modify verifies the proof for the deleted hashes, removes them and
// then adds the new leaves, rolling the roots forward.  The Stump is
// left untouched on any error.
func (s *Stump) Modify(adds []Leaf, delHashes []Hash, proof BatchProof) error {
	if len(delHashes) != len(proof.Targets) {
		return fmt.Errorf("modify: %d del hashes but %d targets",
			len(delHashes), len(proof.Targets))
	}

	if len(delHashes) > 0 {
		curRoots, afterRoots, err := s.calculateRoots(delHashes, proof)
		if err != nil {
			return err
		}

		rootIdxs, err := s.matchRoots(curRoots)
		if err != nil {
			return err
		}

		for i, idx := range rootIdxs {
			s.Roots[idx] = afterRoots[i]
		}
	}

	s.add(adds)
	return nil
}

// calculateRoots hashes the targets up to the tops of their subtrees,
// pulling sibling hashes from the proof whenever a needed sibling isn't
// itself derivable from the targets.  It returns the subtree roots the
// fold produces twice over: as computed from the proof (for checking
// against the current roots) and as they stand once the targets are
// deleted.  Roots come out in the order the subtrees complete, which is
// smallest tree first.
func (s *Stump) calculateRoots(delHashes []Hash, proof BatchProof) (
	[]Hash, []Hash, error) {

	totalRows := treeRows(s.NumLeaves)
	maxPosition := uint64(2<<totalRows) - 1

	toProve := make([]proveNode, len(delHashes))
	for i := range toProve {
		if proof.Targets[i] > maxPosition {
			return nil, nil, fmt.Errorf("target %d out of range with %d leaves",
				proof.Targets[i], s.NumLeaves)
		}
		toProve[i] = proveNode{pos: proof.Targets[i], cur: delHashes[i]}
	}
	sortProves(toProve)
	for i := 1; i < len(toProve); i++ {
		if toProve[i].pos == toProve[i-1].pos {
			return nil, nil, fmt.Errorf("duplicate target %d", toProve[i].pos)
		}
	}

	proofHashes := proof.Proof

	curRoots := make([]Hash, 0, numRoots(s.NumLeaves))
	afterRoots := make([]Hash, 0, numRoots(s.NumLeaves))

	extractedCount := 0
	var nextProves []proveNode
	for row := 0; row <= int(totalRows); row++ {
		extracted := extractRowProves(toProve, totalRows, uint8(row))
		extractedCount += len(extracted)

		proves := mergeSortedProves(nextProves, extracted)
		nextProves = nil

		for i := 0; i < len(proves); i++ {
			prove := proves[i]

			// This means we hashed all the way to the top of this subtree.
			if isRootPosition(prove.pos, s.NumLeaves, totalRows) {
				curRoots = append(curRoots, prove.cur)
				afterRoots = append(afterRoots, prove.after)
				continue
			}

			// Check if the next prove is the sibling of this prove.
			if i+1 < len(proves) && rightSib(prove.pos) == proves[i+1].pos {
				nextProves = append(nextProves, proveNode{
					pos:   parent(prove.pos, totalRows),
					cur:   parentHash(prove.cur, proves[i+1].cur),
					after: deletedParentHash(prove.after, proves[i+1].after),
				})

				i++ // Increment one more since we procesed another prove.
			} else {
				// If the next prove isn't the sibling of this prove, the
				// sibling hash has to come from the proof.
				if len(proofHashes) == 0 {
					return nil, nil, fmt.Errorf(
						"ran out of proof hashes at position %d", prove.pos)
				}
				sib := proofHashes[0]
				proofHashes = proofHashes[1:]

				next := proveNode{pos: parent(prove.pos, totalRows)}
				if isLeftChild(prove.pos) {
					next.cur = parentHash(prove.cur, sib)
					next.after = deletedParentHash(prove.after, sib)
				} else {
					next.cur = parentHash(sib, prove.cur)
					next.after = deletedParentHash(sib, prove.after)
				}

				nextProves = append(nextProves, next)
			}
		}
	}

	// Every target has to get picked up by some row and every hash chain
	// has to end at a root, or the proof proves nothing.
	if extractedCount != len(toProve) {
		return nil, nil, fmt.Errorf("%d targets sit on no forest row",
			len(toProve)-extractedCount)
	}
	if len(nextProves) != 0 {
		return nil, nil, fmt.Errorf("%d positions never reached a root",
			len(nextProves))
	}
	if len(proofHashes) != 0 {
		return nil, nil, fmt.Errorf("%d unused proof hashes", len(proofHashes))
	}
	if len(curRoots) == 0 {
		return nil, nil, fmt.Errorf("no roots calculated but %d deletions",
			len(delHashes))
	}

	return curRoots, afterRoots, nil
}

// matchRoots checks that every calculated root shows up among the
// Stump's roots and returns the index each one matched.  The
// calculated roots arrive smallest tree first while s.Roots is ordered
// biggest first, so the scan runs back to front.
func (s *Stump) matchRoots(calculated []Hash) ([]int, error) {
	rootIdxs := make([]int, 0, len(calculated))

	matches := 0
	for i := range s.Roots {
		idx := len(s.Roots) - (i + 1)
		if matches < len(calculated) && s.Roots[idx] == calculated[matches] {
			rootIdxs = append(rootIdxs, idx)
			matches++
		}
	}
	if matches != len(calculated) {
		// the proof is invalid because some root candidates were not
		// included in the roots we have.
		return nil, fmt.Errorf("calculated %d roots but only matched %d",
			len(calculated), matches)
	}

	return rootIdxs, nil
}

// add appends the new leaves one at a time, merging equal sized
// subtrees as the leaf count bits carry.  An empty root left behind by
// a whole-tree deletion is consumed without hashing, which is how that
// slot gets reclaimed.
func (s *Stump) add(adds []Leaf) {
	for _, add := range adds {
		toAdd := add.Hash

		for h := uint8(0); (s.NumLeaves>>h)&1 == 1; h++ {
			root := s.Roots[len(s.Roots)-1]
			s.Roots = s.Roots[:len(s.Roots)-1]

			// If the root is empty, a whole tree was deleted here and
			// the new node just moves up.
			if root == empty {
				continue
			}

			toAdd = parentHash(root, toAdd)
		}

		s.Roots = append(s.Roots, toAdd)
		s.NumLeaves++
	}
}

// mergeSortedProves merges two slices sorted by position into one.
func mergeSortedProves(a, b []proveNode) (c []proveNode) {
	maxa := len(a)
	maxb := len(b)

	// shortcuts:
	if maxa == 0 {
		return b
	}
	if maxb == 0 {
		return a
	}

	// make it (potentially) too long and truncate later
	c = make([]proveNode, maxa+maxb)

	idxa, idxb := 0, 0
	for j := 0; j < len(c); j++ {
		// if we're out of a or b, just use the remainder of the other one
		if idxa >= maxa {
			// a is done, copy remainder of b
			j += copy(c[j:], b[idxb:])
			c = c[:j] // truncate empty section of c
			break
		}
		if idxb >= maxb {
			// b is done, copy remainder of a
			j += copy(c[j:], a[idxa:])
			c = c[:j] // truncate empty section of c
			break
		}

		if a[idxa].pos < b[idxb].pos {
			c[j] = a[idxa]
			idxa++
		} else {
			c[j] = b[idxb]
			idxb++
		}
	}
	return
}

// extractRowProves gives back the proves that sit on the requested row.
// The input must be sorted by position so the row forms one contiguous
// run.
func extractRowProves(proves []proveNode, forestRows, rowToExtract uint8) []proveNode {
	start := -1
	end := 0

	for i := 0; i < len(proves); i++ {
		if detectRow(proves[i].pos, forestRows) == rowToExtract {
			if start == -1 {
				start = i
			}

			end = i
		} else {
			// If we're not at the desired row and start has already been
			// set once, we've extracted everything we can.
			if start != -1 {
				break
			}
		}
	}

	if start == -1 {
		return nil
	}

	return proves[start : end+1]
}
