package container

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrMerkleEmpty      = errors.New("container: merkle tree has no leaves")
	ErrMerkleProofFail  = errors.New("container: merkle proof verification failed")
	ErrMerkleIndexRange = errors.New("container: merkle leaf index out of range")
)

// MerkleTree commits to the ordered list of chunk ciphertext hashes.
type MerkleTree struct {
	leaves [][]byte
	nodes  [][]byte
	count  int
}

// BuildMerkleTree builds a tree over SHA-256 leaf hashes. The leaf count is
// padded to a power of two with the hash of the empty string.
func BuildMerkleTree(leafHashes [][]byte) (*MerkleTree, error) {
	if len(leafHashes) == 0 {
		return nil, ErrMerkleEmpty
	}

	n := 1
	for n < len(leafHashes) {
		n *= 2
	}
	empty := sha256.Sum256(nil)
	leaves := make([][]byte, n)
	for i := range leaves {
		if i < len(leafHashes) {
			leaves[i] = leafHashes[i]
		} else {
			leaves[i] = empty[:]
		}
	}

	// leaves live at [n-1, 2n-2]
	nodes := make([][]byte, 2*n-1)
	for i, leaf := range leaves {
		nodes[n-1+i] = leaf
	}
	for i := n - 2; i >= 0; i-- {
		nodes[i] = hashPair(nodes[2*i+1], nodes[2*i+2])
	}

	return &MerkleTree{leaves: leaves, nodes: nodes, count: len(leafHashes)}, nil
}

// Root returns the Merkle root hash.
func (m *MerkleTree) Root() []byte { return m.nodes[0] }

// RootHex returns the Merkle root as a hex string.
func (m *MerkleTree) RootHex() string { return hex.EncodeToString(m.Root()) }

// Proof holds the sibling path from one leaf to the root.
type Proof struct {
	Index    int
	Leaf     []byte
	Siblings [][]byte
	IsLeft   []bool
}

// GenerateProof returns the inclusion proof for leaf i.
func (m *MerkleTree) GenerateProof(i int) (Proof, error) {
	if i < 0 || i >= m.count {
		return Proof{}, ErrMerkleIndexRange
	}

	p := Proof{Index: i, Leaf: m.leaves[i]}
	idx := len(m.leaves) - 1 + i
	for idx > 0 {
		sibling := idx + 1
		if idx%2 == 0 {
			sibling = idx - 1
		}
		p.Siblings = append(p.Siblings, m.nodes[sibling])
		p.IsLeft = append(p.IsLeft, idx%2 == 0)
		idx = (idx - 1) / 2
	}
	return p, nil
}

// VerifyProof checks p against root.
func VerifyProof(p Proof, root []byte) error {
	if len(p.Siblings) != len(p.IsLeft) {
		return ErrMerkleProofFail
	}
	current := p.Leaf
	for i, sibling := range p.Siblings {
		if p.IsLeft[i] {
			current = hashPair(sibling, current)
		} else {
			current = hashPair(current, sibling)
		}
	}
	if !bytes.Equal(current, root) {
		return ErrMerkleProofFail
	}
	return nil
}

// HashChunk computes the SHA-256 leaf hash of a chunk ciphertext.
func HashChunk(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
