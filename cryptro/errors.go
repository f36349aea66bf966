package cryptro

import "errors"

var (
	ErrInvalidKey          = errors.New("cryptro: invalid key")
	ErrInvalidMatrixSize   = errors.New("cryptro: invalid matrix size")
	ErrInvalidRounds       = errors.New("cryptro: invalid round count")
	ErrInvalidKDF          = errors.New("cryptro: invalid key derivation function")
	ErrCorruptedCiphertext = errors.New("cryptro: corrupted ciphertext")
	ErrInvalidPadding      = errors.New("cryptro: invalid padding")
	ErrDecoding            = errors.New("cryptro: decoding error")
)
