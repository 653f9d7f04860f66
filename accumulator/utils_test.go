package accumulator

import (
	"fmt"
	"testing"
)

func TestDetectRow(t *testing.T) {
	// positions of a fully populated 3 row forest
	rowOf := map[uint64]uint8{
		0: 0, 1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 0,
		8: 1, 9: 1, 10: 1, 11: 1,
		12: 2, 13: 2,
		14: 3,
	}
	for pos, want := range rowOf {
		if got := detectRow(pos, 3); got != want {
			t.Fatalf("detectRow(%d, 3) = %d, want %d", pos, got, want)
		}
	}
}

func TestPositionHelpers(t *testing.T) {
	if parent(0, 3) != 8 || parent(5, 3) != 10 ||
		parent(9, 3) != 12 || parent(13, 3) != 14 {
		t.Fatal("parent positions came out wrong for 3 rows")
	}
	if parentMany(3, 0, 3) != 3 {
		t.Fatal("parentMany with rise 0 should stay put")
	}
	if parentMany(3, 3, 3) != 14 {
		t.Fatalf("parentMany(3, 3, 3) = %d, want 14", parentMany(3, 3, 3))
	}

	if rightSib(4) != 5 || rightSib(5) != 5 {
		t.Fatal("rightSib wrong")
	}
	if !isLeftChild(4) || isLeftChild(5) {
		t.Fatal("isLeftChild wrong")
	}
}

func TestIsRootPosition(t *testing.T) {
	tests := []struct {
		position  uint64
		numLeaves uint64
		rows      uint8
		want      bool
	}{
		{14, 8, 3, true},
		{0, 8, 3, false},
		{7, 8, 3, false},
		{8, 8, 3, false},
		{12, 8, 3, false},
		{13, 8, 3, false},
		{15, 8, 3, false},

		// 6 leaves makes a 4 leaf tree rooted at 12 and a 2 leaf
		// tree rooted at 10
		{12, 6, 3, true},
		{10, 6, 3, true},
		{14, 6, 3, false},
		{8, 6, 3, false},

		{0, 1, 0, true},
		{2, 2, 1, true},
		{0, 2, 1, false},
		{1, 2, 1, false},
	}
	for _, test := range tests {
		got := isRootPosition(test.position, test.numLeaves, test.rows)
		if got != test.want {
			t.Fatalf("isRootPosition(%d, %d, %d) = %v, want %v",
				test.position, test.numLeaves, test.rows, got, test.want)
		}
	}
}

func TestGetRootsForwards(t *testing.T) {
	tests := []struct {
		numLeaves uint64
		rows      uint8
		want      []uint64
	}{
		{8, 3, []uint64{14}},
		{7, 3, []uint64{12, 10, 6}},
		{6, 3, []uint64{12, 10}},
		{2, 1, []uint64{2}},
		{1, 0, []uint64{0}},
	}
	for _, test := range tests {
		got, _ := getRootsForwards(test.numLeaves, test.rows)
		if len(got) != len(test.want) {
			t.Fatalf("%d leaves: got %v, want %v", test.numLeaves, got, test.want)
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Fatalf("%d leaves: got %v, want %v",
					test.numLeaves, got, test.want)
			}
		}
	}
}

func TestProofPositions(t *testing.T) {
	tests := []struct {
		targets   []uint64
		numLeaves uint64
		want      []uint64
	}{
		// 8 leaf tree: 0 needs 1, 5 needs 4, then 8 and 10 are the
		// cousin case so both their siblings come from the proof.
		{[]uint64{0, 5}, 8, []uint64{1, 4, 9, 11}},

		// a whole subtree proves itself up to needing only the
		// other half of the forest
		{[]uint64{4, 5, 6, 7}, 8, []uint64{12}},

		{[]uint64{3}, 8, []uint64{2, 8, 13}},

		// targets spread over two trees
		{[]uint64{0, 5}, 6, []uint64{1, 4, 9}},

		// roots prove themselves
		{[]uint64{0}, 1, nil},
		{[]uint64{0, 1}, 2, nil},
	}

	for _, test := range tests {
		got, _ := ProofPositions(
			test.targets, test.numLeaves, treeRows(test.numLeaves))
		if len(got) != len(test.want) {
			t.Fatalf("targets %v, %d leaves: got %v, want %v",
				test.targets, test.numLeaves, got, test.want)
		}
		for i := range got {
			if got[i] != test.want[i] {
				t.Fatalf("targets %v, %d leaves: got %v, want %v",
					test.targets, test.numLeaves, got, test.want)
			}
		}
	}
}

func TestTreeRows(t *testing.T) {
	// Test all the powers of 2
	for i := uint8(1); i <= 63; i++ {
		nLeaves := uint64(1 << i)
		Orig := treeRowsOrig(nLeaves)
		New := treeRows(nLeaves)
		if Orig != New {
			fmt.Printf("for n: %d;orig is %d. new is %d\n", nLeaves, Orig, New)
			t.Fatal("treeRows and treeRowsOrig are not the same")
		}

	}
	// Test million leaves
	for n := uint64(0); n <= 1000000; n++ {
		Orig := treeRowsOrig(n)
		New := treeRows(n)
		if Orig != New {
			fmt.Printf("for n: %d;orig is %d. new is %d\n", n, Orig, New)
			t.Fatal("treeRows and treeRowsOrig are not the same")
		}
	}
}

// This is the orginal code for getting treeRows. The new function is tested
// against it.
func treeRowsOrig(n uint64) (e uint8) {
	// Works by iteratations of shifting left until greater than n
	for ; (1 << e) < n; e++ {
	}
	return
}

func BenchmarkTreeRows_HunThou(b *testing.B) { benchmarkTreeRows(100000, b) }
func BenchmarkTreeRows_Mil(b *testing.B)     { benchmarkTreeRows(1000000, b) }

func BenchmarkOrigTreeRows_HunThou(b *testing.B) { benchmarkTreeRowsOrig(100000, b) }
func BenchmarkOrigTreeRows_Mil(b *testing.B)     { benchmarkTreeRowsOrig(1000000, b) }

func benchmarkTreeRows(i uint64, b *testing.B) {
	for n := uint64(1000000); n < i+1000000; n++ {
		treeRows(n)
	}
}

func benchmarkTreeRowsOrig(i uint64, b *testing.B) {
	for n := uint64(1000000); n < i+1000000; n++ {
		treeRowsOrig(n)
	}
}
