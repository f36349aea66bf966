package cryptro

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/TheusHen/cryptro/cryptro/armor"
	"github.com/TheusHen/cryptro/cryptro/block"
	"github.com/TheusHen/cryptro/cryptro/chain"
	"github.com/TheusHen/cryptro/cryptro/keyschedule"
)

// Keyed is a configuration bound to one derived key schedule. It is
// immutable and safe for concurrent use.
type Keyed struct {
	cfg    Config
	engine *chain.Engine
}

func bind(cfg Config, key string) (*Keyed, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sched, err := keyschedule.Derive([]byte(key), cfg.Matrix, cfg.Rounds, cfg.KDF)
	if err != nil {
		switch {
		case errors.Is(err, keyschedule.ErrEmptyPassword):
			return nil, ErrInvalidKey
		case errors.Is(err, keyschedule.ErrInvalidDimension):
			return nil, fmt.Errorf("%w: %v", ErrInvalidMatrixSize, err)
		}
		return nil, err
	}
	engine := chain.NewEngine(block.New(sched),
		chain.WithRand(cfg.Rand),
		chain.WithWorkers(cfg.Workers),
	)
	return &Keyed{cfg: cfg, engine: engine}, nil
}

// Matrix returns the bound matrix dimension.
func (k *Keyed) Matrix() int { return k.cfg.Matrix }

// Overhead returns the ciphertext size minus the plaintext size for a
// plaintext of length n.
func (k *Keyed) Overhead(n int) int {
	d := k.cfg.Matrix
	return 1 + d + (d - n%d)
}

// Encrypt pads and encrypts plaintext.
func (k *Keyed) Encrypt(plaintext []byte) ([]byte, error) {
	d := k.cfg.Matrix
	body, err := k.engine.Encrypt(pad(plaintext, d))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(body))
	out[0] = byte(d)
	copy(out[1:], body)
	return out, nil
}

// Decrypt reverses Encrypt. The header dimension must equal the bound one.
func (k *Keyed) Decrypt(ciphertext []byte) ([]byte, error) {
	d, err := headerDim(ciphertext)
	if err != nil {
		return nil, err
	}
	if d != k.cfg.Matrix {
		return nil, fmt.Errorf("%w: dimension %d, key bound to %d", ErrCorruptedCiphertext, d, k.cfg.Matrix)
	}
	padded, err := k.engine.Decrypt(ciphertext[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedCiphertext, err)
	}
	return unpad(padded, d)
}

// EncryptText encrypts text and armors it as URL-safe base64.
func (k *Keyed) EncryptText(text string) (string, error) {
	ct, err := k.Encrypt([]byte(text))
	if err != nil {
		return "", err
	}
	return armor.Encode(ct), nil
}

// DecryptText reverses EncryptText.
func (k *Keyed) DecryptText(encoded string) (string, error) {
	ct, err := armor.Decode(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	pt, err := k.Decrypt(ct)
	if err != nil {
		return "", err
	}
	return toText(pt)
}

// headerDim validates the framing of a byte ciphertext and returns its
// dimension: header byte, one IV block, at least one body block.
func headerDim(ciphertext []byte) (int, error) {
	if len(ciphertext) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrCorruptedCiphertext)
	}
	d := int(ciphertext[0])
	if d == 0 {
		return 0, fmt.Errorf("%w: zero dimension", ErrCorruptedCiphertext)
	}
	rest := len(ciphertext) - 1
	if rest < 2*d || rest%d != 0 {
		return 0, fmt.Errorf("%w: length %d for dimension %d", ErrCorruptedCiphertext, len(ciphertext), d)
	}
	return d, nil
}

func toText(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: plaintext is not valid UTF-8", ErrDecoding)
	}
	return string(b), nil
}
