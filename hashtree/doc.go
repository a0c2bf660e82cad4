// Package hashtree maintains the authenticated hash tree of one encrypted
// file. Each block of the file is a leaf holding a version, the block's
// additional data and the digest of its content. Interior nodes hash their
// children and the root, stored first in the metadata object, is signed
// together with the file size and a version counter.
//
// Nodes are numbered so that the number of a node does not depend on the
// size of the tree. Sibling pairs on a level are interleaved with the pairs
// of the levels above:
//
//	level 3                                 14              15
//	level 2                 6       7                       22      23
//	level 1         2   3           10  11          18  19          26  27
//	level 0     0 1     4 5     8 9     12 13   16 17   20 21   24 25   28 29
//
// The root always takes the number after the last leaf. Where the leaf count
// is not a power of two the tail of the tree skips the levels whose nodes
// would have only one populated child. Nodes that do not exist hash as all
// zero, and so does any subtree that covers only unwritten blocks.
//
// A Tree loads only the nodes an operation needs, validates them against
// the signed root and writes back only what changed.
package hashtree
