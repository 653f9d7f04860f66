/*
Package accumulator implements the roots-only Utreexo accumulator.
It is meant to be coin agnostic. Bitcoin specific code lives elsewhere.

Jargon:

In parts of the code you'll see this terminology being used.

	Perfect tree - A tree with 2**x leaves.
	Forest - The collection of perfect trees the leaves form.
	Root - The top hash of one perfect tree.

The forest is ordered in a similar fashion to a 2x2 array in row-major
order.  A Utreexo tree with 8 leaves would look like:

	14
	|---------------\
	12              13
	|-------\       |-------\
	08      09      10      11
	|---\   |---\   |---\   |---\
	00  01  02  03  04  05  06  07

A number of leaves that isn't a power of 2 forms one perfect tree per
set bit of the leaf count, so 6 leaves makes a 4 leaf tree and a 2 leaf
tree with two roots.

Stump:

Stump keeps only the roots and the leaf count, nothing below them.
That's enough to verify a BatchProof, which carries the sibling hashes
from the proven leaves up to the roots, and enough to roll the roots
forward when a batch of leaves is deleted and new ones are added.  A
node carrying a Stump tracks the full commitment without holding any of
the set it commits to; whoever builds the proofs holds the full forest.
*/
package accumulator
