package chain

import (
	"bytes"
	"crypto/cipher"
	"errors"
	"testing"

	"github.com/TheusHen/cryptro/cryptro/block"
	"github.com/TheusHen/cryptro/cryptro/keyschedule"
)

func newBlock(t testing.TB, dim int) cipher.Block {
	t.Helper()
	s, err := keyschedule.Derive([]byte("chain test key"), dim, 2, keyschedule.KDFHKDF)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	return block.New(s)
}

func TestEngineRoundTrip(t *testing.T) {
	e := NewEngine(newBlock(t, 16))
	padded := bytes.Repeat([]byte("0123456789abcdef"), 10)

	ct, err := e.Encrypt(padded)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(ct) != len(padded)+16 {
		t.Fatalf("unexpected ciphertext length %d", len(ct))
	}
	pt, err := e.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, padded) {
		t.Fatalf("round trip mismatch")
	}
}

func TestEqualBlocksDiffer(t *testing.T) {
	e := NewEngine(newBlock(t, 16))
	padded := bytes.Repeat([]byte("AAAAAAAAAAAAAAAA"), 4)
	ct, _ := e.Encrypt(padded)
	body := ct[16:]
	for i := 16; i < len(body); i += 16 {
		if bytes.Equal(body[:16], body[i:i+16]) {
			t.Fatalf("identical plaintext blocks produced identical ciphertext")
		}
	}
}

func TestFreshIV(t *testing.T) {
	e := NewEngine(newBlock(t, 16))
	padded := make([]byte, 32)
	a, _ := e.Encrypt(padded)
	b, _ := e.Encrypt(padded)
	if bytes.Equal(a[:16], b[:16]) {
		t.Fatalf("IV reused across calls")
	}
	if bytes.Equal(a, b) {
		t.Fatalf("identical ciphertexts for identical input")
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	b := newBlock(t, 8)
	padded := make([]byte, 8*(parallelMinBlocks*3+5))
	for i := range padded {
		padded[i] = byte(i * 7)
	}
	ct, err := NewEngine(b).Encrypt(padded)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	seq, err := NewEngine(b, WithWorkers(1)).Decrypt(ct)
	if err != nil {
		t.Fatalf("sequential Decrypt: %v", err)
	}
	par, err := NewEngine(b, WithWorkers(4)).Decrypt(ct)
	if err != nil {
		t.Fatalf("parallel Decrypt: %v", err)
	}
	if !bytes.Equal(seq, padded) || !bytes.Equal(par, padded) {
		t.Fatalf("parallel and sequential decryption disagree")
	}
}

func TestChainsPreviousCiphertext(t *testing.T) {
	b := newBlock(t, 4)
	iv := []byte{1, 2, 3, 4}
	src := []byte("abcdefghijkl")

	e := NewEngine(b, WithRand(bytes.NewReader(iv)))
	out, err := e.Encrypt(src)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(out[:4], iv) {
		t.Fatalf("IV = %x, want %x", out[:4], iv)
	}

	// C_i = E(P_i xor C_{i-1}), C_{-1} = IV
	prev := iv
	want := make([]byte, 0, len(src))
	for i := 0; i < len(src); i += 4 {
		blk := make([]byte, 4)
		for j := range blk {
			blk[j] = src[i+j] ^ prev[j]
		}
		b.Encrypt(blk, blk)
		want = append(want, blk...)
		prev = blk
	}
	if !bytes.Equal(out[4:], want) {
		t.Fatalf("body = %x, want %x", out[4:], want)
	}

	pt, err := e.Decrypt(out)
	if err != nil || !bytes.Equal(pt, src) {
		t.Fatalf("Decrypt = %q, %v", pt, err)
	}
}

func TestDecryptRejectsBadLength(t *testing.T) {
	e := NewEngine(newBlock(t, 16))
	for _, n := range []int{0, 15, 16, 17, 40} {
		if _, err := e.Decrypt(make([]byte, n)); !errors.Is(err, ErrInvalidLength) {
			t.Fatalf("len=%d: expected ErrInvalidLength, got %v", n, err)
		}
	}
	if _, err := e.Encrypt(make([]byte, 17)); !errors.Is(err, ErrNotAligned) {
		t.Fatalf("expected ErrNotAligned, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy unavailable") }

func TestEncryptPropagatesRandError(t *testing.T) {
	e := NewEngine(newBlock(t, 16), WithRand(failingReader{}))
	if _, err := e.Encrypt(make([]byte, 16)); err == nil {
		t.Fatalf("expected error from failing IV source")
	}
}

func BenchmarkEngineDecrypt64K(b *testing.B) {
	e := NewEngine(newBlock(b, 32))
	padded := make([]byte, 64*1024)
	ct, _ := e.Encrypt(padded)
	b.SetBytes(int64(len(padded)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Decrypt(ct)
	}
}
