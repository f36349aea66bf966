package cryptro

import (
	"fmt"
	"io"

	"github.com/TheusHen/cryptro/cryptro/keyschedule"
)

const (
	DefaultMatrix = 32
	DefaultRounds = 3
	// MaxMatrix is the largest dimension the one-byte header can carry.
	MaxMatrix = keyschedule.MaxDimension
	MaxRounds = keyschedule.MaxRounds
)

// Config holds the cipher parameters. A Cryptor never mutates a Config it
// has handed out; every call works on one snapshot.
type Config struct {
	Matrix  int             // matrix dimension, also the block size in bytes
	Rounds  int             // transformation layers per block
	KDF     keyschedule.KDF // password to root key derivation
	Workers int             // decrypt fan-out (0 = GOMAXPROCS)
	Rand    io.Reader       // IV source (nil = crypto/rand)
}

// DefaultConfig returns the defaults: 32-byte blocks, three layers, HKDF.
func DefaultConfig() Config {
	return Config{
		Matrix: DefaultMatrix,
		Rounds: DefaultRounds,
		KDF:    keyschedule.KDFHKDF,
	}
}

// Validate reports the first parameter outside its range.
func (c Config) Validate() error {
	if err := validateMatrix(c.Matrix); err != nil {
		return err
	}
	if c.Rounds < 1 || c.Rounds > MaxRounds {
		return fmt.Errorf("%w: %d", ErrInvalidRounds, c.Rounds)
	}
	switch c.KDF {
	case keyschedule.KDFHKDF, keyschedule.KDFArgon2id:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidKDF, c.KDF)
	}
	return nil
}

func validateMatrix(d int) error {
	if d < 1 || d > MaxMatrix {
		return fmt.Errorf("%w: %d", ErrInvalidMatrixSize, d)
	}
	return nil
}
