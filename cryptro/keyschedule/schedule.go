package keyschedule

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrEmptyPassword    = errors.New("keyschedule: password must not be empty")
	ErrInvalidDimension = errors.New("keyschedule: matrix dimension out of range")
	ErrInvalidRounds    = errors.New("keyschedule: round count out of range")
	errShortStream      = errors.New("keyschedule: expansion stream exhausted")
)

const (
	// MaxDimension keeps the dimension representable in the one-byte wire
	// header and the pad length representable in one byte.
	MaxDimension = 255
	// MaxRounds bounds the layer count.
	MaxRounds = 16
)

// Layer is the key material for one transformation layer.
type Layer struct {
	Matrix   Matrix
	Inverse  Matrix
	SBox     [256]byte
	InvSBox  [256]byte
	RoundKey []byte
}

// Schedule is the ordered list of layers derived from one password.
// It is immutable once returned by Derive and safe for concurrent use.
type Schedule struct {
	dim    int
	layers []Layer
}

// Dim returns the matrix dimension, which is also the block size in bytes.
func (s *Schedule) Dim() int { return s.dim }

// Rounds returns the number of layers.
func (s *Schedule) Rounds() int { return len(s.layers) }

// Layer returns layer i. The returned value shares memory with the schedule
// and must not be modified.
func (s *Schedule) Layer(i int) *Layer { return &s.layers[i] }

// Derive builds the schedule for (password, dim, rounds, kdf).
// It panics if a derived round matrix fails the inverse check, which would
// be a bug in the construction rather than bad input.
func Derive(password []byte, dim, rounds int, kdf KDF) (*Schedule, error) {
	if len(password) == 0 {
		return nil, ErrEmptyPassword
	}
	if dim < 1 || dim > MaxDimension {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDimension, dim)
	}
	if rounds < 1 || rounds > MaxRounds {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRounds, rounds)
	}

	root, err := rootKey(password, dim, rounds, kdf)
	if err != nil {
		return nil, err
	}
	chain := newLayerChain(root)
	defer chain.Wipe()
	clear(root)

	s := &Schedule{dim: dim, layers: make([]Layer, rounds)}
	for i := range s.layers {
		layerKey := chain.Next()
		if err := deriveLayer(&s.layers[i], layerKey[:], dim); err != nil {
			return nil, fmt.Errorf("keyschedule: layer %d: %w", i, err)
		}
		if err := CheckInverse(s.layers[i].Matrix, s.layers[i].Inverse); err != nil {
			panic(fmt.Sprintf("keyschedule: layer %d: %v", i, err))
		}
	}
	return s, nil
}

func deriveLayer(l *Layer, key []byte, dim int) error {
	perm, err := shuffled(expander(key, label("perm", 0)), dim)
	if err != nil {
		return err
	}
	box, err := shuffled(expander(key, label("sbox", 0)), 256)
	if err != nil {
		return err
	}
	for i, v := range box {
		l.SBox[i] = byte(v)
		l.InvSBox[v] = byte(i)
	}

	lower := Identity(dim)
	upper := Identity(dim)
	for i := 1; i < dim; i++ {
		row, err := DeriveKey(key, nil, label("lower", i), i)
		if err != nil {
			return err
		}
		copy(lower.Row(i)[:i], row)
	}
	for i := 0; i < dim-1; i++ {
		row, err := DeriveKey(key, nil, label("upper", i), dim-1-i)
		if err != nil {
			return err
		}
		copy(upper.Row(i)[i+1:], row)
	}

	// M = P·L·U and M⁻¹ = U⁻¹·L⁻¹·Pᵀ. Multiplying by P only moves rows
	// (or columns, for Pᵀ), so no dense product is needed for it.
	l.Matrix = lower.Mul(upper).permuteRows(perm)
	l.Inverse = invertUnitUpper(upper).Mul(invertUnitLower(lower)).permuteCols(perm)

	l.RoundKey, err = DeriveKey(key, nil, label("xor", 0), dim)
	return err
}

func expander(key, info []byte) io.Reader {
	return hkdf.Expand(sha256.New, key, info)
}

// shuffled returns a Fisher-Yates permutation of 0..n-1 drawn from r.
// Indices are drawn from 16-bit samples with rejection so every
// permutation is equally likely.
func shuffled(r io.Reader, n int) ([]int, error) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	var buf [2]byte
	for i := n - 1; i > 0; i-- {
		bound := uint32(i + 1)
		limit := 65536 - 65536%bound
		for {
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, errShortStream
			}
			v := uint32(binary.BigEndian.Uint16(buf[:]))
			if v < limit {
				j := int(v % bound)
				perm[i], perm[j] = perm[j], perm[i]
				break
			}
		}
	}
	return perm, nil
}
