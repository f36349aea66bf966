package chain

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidLength = errors.New("chain: ciphertext length is not a positive multiple of the block size")
	ErrNotAligned    = errors.New("chain: plaintext length is not a multiple of the block size")
)

// parallelMinBlocks is the body size, in blocks, below which decryption
// stays on the calling goroutine.
const parallelMinBlocks = 256

// Engine chains a block cipher over whole messages.
type Engine struct {
	block   cipher.Block
	rand    io.Reader
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the IV source. It must be safe for concurrent use if the
// Engine is shared.
func WithRand(r io.Reader) Option {
	return func(e *Engine) {
		if r != nil {
			e.rand = r
		}
	}
}

// WithWorkers bounds the goroutines used by Decrypt. n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// NewEngine creates an Engine over b.
func NewEngine(b cipher.Block, opts ...Option) *Engine {
	e := &Engine{block: b, rand: rand.Reader}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// BlockSize returns the block size of the underlying cipher.
func (e *Engine) BlockSize() int { return e.block.BlockSize() }

// NewIV draws a fresh IV of one block.
func (e *Engine) NewIV() ([]byte, error) {
	iv := make([]byte, e.block.BlockSize())
	if _, err := io.ReadFull(e.rand, iv); err != nil {
		return nil, fmt.Errorf("chain: generate IV: %w", err)
	}
	return iv, nil
}

// Encrypt chains padded under a fresh IV.
// Returns: iv (one block) || ciphertext blocks
func (e *Engine) Encrypt(padded []byte) ([]byte, error) {
	bs := e.block.BlockSize()
	if len(padded)%bs != 0 {
		return nil, ErrNotAligned
	}
	iv, err := e.NewIV()
	if err != nil {
		return nil, err
	}
	out := make([]byte, bs+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(out[bs:], padded)
	return out, nil
}

// Decrypt reverses Encrypt.
// Input format: iv (one block) || at least one ciphertext block
func (e *Engine) Decrypt(data []byte) ([]byte, error) {
	bs := e.block.BlockSize()
	if len(data) < 2*bs || len(data)%bs != 0 {
		return nil, ErrInvalidLength
	}
	iv, body := data[:bs], data[bs:]
	out := make([]byte, len(body))

	blocks := len(body) / bs
	if blocks < parallelMinBlocks || e.workers == 1 {
		cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(out, body)
		return out, nil
	}

	// Each segment only needs the ciphertext block preceding it as its IV,
	// so segments are independent.
	segments := e.workers
	per := (blocks + segments - 1) / segments

	var g errgroup.Group
	g.SetLimit(e.workers)
	for first := 0; first < blocks; first += per {
		last := min(first+per, blocks)
		lo, hi := first*bs, last*bs
		segIV := iv
		if first > 0 {
			segIV = body[lo-bs : lo]
		}
		g.Go(func() error {
			cipher.NewCBCDecrypter(e.block, segIV).CryptBlocks(out[lo:hi], body[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
