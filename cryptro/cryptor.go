package cryptro

import (
	"fmt"
	"sync/atomic"

	"github.com/TheusHen/cryptro/cryptro/armor"
)

// Cryptor encrypts and decrypts messages under a password.
//
// The configuration lives behind an atomic pointer: every call loads one
// snapshot at its start, so SetMatrix may run concurrently with in-flight
// calls without affecting them. Key material is derived per call and not
// retained; use Bind to reuse one derivation across many messages.
type Cryptor struct {
	cfg atomic.Pointer[Config]
}

// New creates a Cryptor with DefaultConfig.
func New() *Cryptor {
	c := &Cryptor{}
	cfg := DefaultConfig()
	c.cfg.Store(&cfg)
	return c
}

// NewWithConfig creates a Cryptor with cfg after validating it.
func NewWithConfig(cfg Config) (*Cryptor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Cryptor{}
	c.cfg.Store(&cfg)
	return c, nil
}

// Config returns a copy of the current configuration.
func (c *Cryptor) Config() Config {
	return *c.cfg.Load()
}

// SetMatrix changes the matrix dimension for subsequent calls.
// It fails with ErrInvalidMatrixSize if d is not in 1..MaxMatrix.
func (c *Cryptor) SetMatrix(d int) error {
	if err := validateMatrix(d); err != nil {
		return err
	}
	for {
		old := c.cfg.Load()
		next := *old
		next.Matrix = d
		if c.cfg.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// WithMatrix returns a new Cryptor that shares every setting with c except
// the matrix dimension. c is left unchanged.
func (c *Cryptor) WithMatrix(d int) (*Cryptor, error) {
	cfg := c.Config()
	cfg.Matrix = d
	return NewWithConfig(cfg)
}

// Bind derives the key schedule for key under the current configuration.
func (c *Cryptor) Bind(key string) (*Keyed, error) {
	return bind(c.Config(), key)
}

// Encrypt pads and encrypts plaintext under key.
func (c *Cryptor) Encrypt(plaintext []byte, key string) ([]byte, error) {
	k, err := c.Bind(key)
	if err != nil {
		return nil, err
	}
	return k.Encrypt(plaintext)
}

// Decrypt reverses Encrypt. The matrix dimension is taken from the
// ciphertext header, so a Cryptor configured with another dimension still
// decrypts it; the round count and KDF must match the encrypting side.
func (c *Cryptor) Decrypt(ciphertext []byte, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	d, err := headerDim(ciphertext)
	if err != nil {
		return nil, err
	}
	cfg := c.Config()
	cfg.Matrix = d
	k, err := bind(cfg, key)
	if err != nil {
		return nil, err
	}
	return k.Decrypt(ciphertext)
}

// EncryptText encrypts text and returns it as URL-safe base64 without
// padding.
func (c *Cryptor) EncryptText(text, key string) (string, error) {
	ct, err := c.Encrypt([]byte(text), key)
	if err != nil {
		return "", err
	}
	return armor.Encode(ct), nil
}

// DecryptText reverses EncryptText.
func (c *Cryptor) DecryptText(encoded, key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	ct, err := armor.Decode(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecoding, err)
	}
	pt, err := c.Decrypt(ct, key)
	if err != nil {
		return "", err
	}
	return toText(pt)
}
