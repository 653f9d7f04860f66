package accumulator

import (
	"math/bits"
	"sort"
)

// ProofPositions returns the positions that are needed to prove that the
// targets exist.  Targets must be sorted.
func ProofPositions(
	targets []uint64, numLeaves uint64, forestRows uint8) ([]uint64, []uint64) {
	// the proofPositions needed without caching.
	proofPositions := make([]uint64, 0, len(targets)*int(forestRows))
	// the positions that are computed/not included in the proof.
	// (also includes the targets)
	computedPositions := make([]uint64, 0, len(targets)*int(forestRows))
	for row := uint8(0); row < forestRows; row++ {
		computedPositions = append(computedPositions, targets...)
		if numLeaves&(1<<row) > 0 && len(targets) > 0 &&
			targets[len(targets)-1] == rootPosition(numLeaves, row, forestRows) {
			// remove roots from targets
			targets = targets[:len(targets)-1]
		}

		var nextTargets []uint64
		for len(targets) > 0 {
			switch {
			// look at the first 4 targets
			case len(targets) > 3:
				if (targets[0]|1)^2 == targets[3]|1 {
					// the first and fourth target are cousins
					// => target 2 and 3 are also targets, both parents are
					// targets of next row
					nextTargets = append(nextTargets,
						parent(targets[0], forestRows), parent(targets[3], forestRows))
					targets = targets[4:]
					break
				}
				// handle first three targets
				fallthrough

			// look at the first 3 targets
			case len(targets) > 2:
				if (targets[0]|1)^2 == targets[2]|1 {
					// the first and third target are cousins
					// => the second target is either the sibling of the first
					// OR the sibiling of the third
					// => only the sibling that is not a target is appended
					// to the proof positions
					if targets[1]|1 == targets[0]|1 {
						proofPositions = append(proofPositions, targets[2]^1)
					} else {
						proofPositions = append(proofPositions, targets[0]^1)
					}
					// both parents are targets of next row
					nextTargets = append(nextTargets,
						parent(targets[0], forestRows), parent(targets[2], forestRows))
					targets = targets[3:]
					break
				}
				// handle first two targets
				fallthrough

			// look at the first 2 targets
			case len(targets) > 1:
				if targets[0]|1 == targets[1] {
					nextTargets = append(nextTargets, parent(targets[0], forestRows))
					targets = targets[2:]
					break
				}
				if (targets[0]|1)^2 == targets[1]|1 {
					proofPositions = append(proofPositions, targets[0]^1, targets[1]^1)
					nextTargets = append(nextTargets,
						parent(targets[0], forestRows), parent(targets[1], forestRows))
					targets = targets[2:]
					break
				}
				// not related, handle first target
				fallthrough

			// look at the first target
			default:
				proofPositions = append(proofPositions, targets[0]^1)
				nextTargets = append(nextTargets, parent(targets[0], forestRows))
				targets = targets[1:]
			}
		}
		targets = nextTargets
	}

	return proofPositions, computedPositions
}

// detectRow finds the current row of your node given the node
// position and the total forest rows.. counts preceding 1 bits.
func detectRow(position uint64, forestRows uint8) uint8 {
	marker := uint64(1 << forestRows)
	var h uint8
	for h = 0; position&marker != 0; h++ {
		marker >>= 1
	}

	return h
}

// Return the position of the parent of this position
func parent(position uint64, forestRows uint8) uint64 {
	return (position >> 1) | (1 << forestRows)
}

// go up rise times and return the position
func parentMany(position uint64, rise, forestRows uint8) uint64 {
	if rise == 0 {
		return position
	}
	if rise > forestRows {
		panic("parentMany rise > forestRows")
	}
	mask := uint64(2<<forestRows) - 1
	return (position>>rise | (mask << uint64(forestRows-(rise-1)))) & mask
}

// rightSib gives the position of the right sibling; for a right node
// that's the node itself.
func rightSib(position uint64) uint64 {
	return position | 1
}

// isLeftChild tells if this position is a left child of its parent.
// Left children always sit on even positions.
func isLeftChild(position uint64) bool {
	return position&1 == 0
}

// isRootPosition checks if the current position is a root of a tree in
// the forest, given the number of leaves.
func isRootPosition(position, numLeaves uint64, forestRows uint8) bool {
	row := detectRow(position, forestRows)

	rootPresent := numLeaves&(1<<row) != 0
	rootPos := rootPosition(numLeaves, row, forestRows)

	return rootPresent && rootPos == position
}

// treeRows returns the number of rows given n leaves.
func treeRows(n uint64) uint8 {
	// treeRows works by:
	// 1. Find the next power of 2 from the given n leaves.
	// 2. Calculate the log2 of the result from step 1.
	//
	// For example, if the given number is 9, the next power of 2 is
	// 16. This log2 of this number is how many rows there are in the
	// given tree.
	//
	// This works because while Utreexo is a collection of perfect
	// trees, the allocated number of leaves is always a power of 2.
	// For Utreexo trees that don't have leaves that are power of 2,
	// the extra space is just unallocated/filled with zeros.

	// Find the next power of 2
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++

	// log of 2 is the tree depth/height
	// if n == 0, there will be 64 traling zeros but actually no tree rows.
	// we clear the 6th bit to return 0 in that case.
	return uint8(bits.TrailingZeros64(n) & ^int(64))

}

// numRoots returns the number of 1 bits in n.
func numRoots(n uint64) uint8 {
	return uint8(bits.OnesCount64(n))
}

// rootPosition: given a number of leaves and a row, find the position of the
// root at that row.  Does not return an error if there's no root at that
// row so watch out and check first.  Checking is easy: leaves & (1<<h)
func rootPosition(leaves uint64, h, forestRows uint8) uint64 {
	mask := uint64(2<<forestRows) - 1
	before := leaves & (mask << (h + 1))
	shifted := (before >> h) | (mask << (forestRows + 1 - h))
	return shifted & mask
}

// getRootsForwards gives you the positions of the tree roots, given a number of leaves.
func getRootsForwards(leaves uint64, forestRows uint8) (roots []uint64, rows []uint8) {
	position := uint64(0)

	for row := forestRows; position < leaves; row-- {
		if (1<<row)&leaves != 0 {
			// build a tree here
			root := parentMany(position, row, forestRows)

			roots = append(roots, root)
			rows = append(rows, row)
			position += 1 << row
		}
	}

	return
}

// it'd be cool if you just had .sort() methods on slices of builtin types...
func sortUint64s(s []uint64) {
	sort.Slice(s, func(a, b int) bool { return s[a] < s[b] })
}
