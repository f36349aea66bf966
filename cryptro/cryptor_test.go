package cryptro

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/TheusHen/cryptro/cryptro/armor"
	"github.com/TheusHen/cryptro/cryptro/keyschedule"
)

func TestEncryptTextScenario(t *testing.T) {
	c := New()
	msg := "My confidential message"
	key := "strong-password-123"

	enc, err := c.EncryptText(msg, key)
	if err != nil {
		t.Fatalf("EncryptText: %v", err)
	}
	if enc == msg {
		t.Fatalf("ciphertext equals plaintext")
	}
	if strings.ContainsAny(enc, "+/=") {
		t.Fatalf("ciphertext is not URL-safe: %q", enc)
	}
	dec, err := c.DecryptText(enc, key)
	if err != nil {
		t.Fatalf("DecryptText: %v", err)
	}
	if dec != msg {
		t.Fatalf("DecryptText = %q, want %q", dec, msg)
	}
}

func TestRoundTripAcrossGeometries(t *testing.T) {
	plaintexts := [][]byte{
		{},
		[]byte("a"),
		[]byte("The quick brown fox jumps over the lazy dog"),
		{0x01, 0x02, 0x03, 0xff, 0x00, 0x7f},
		bytes.Repeat([]byte("abc"), 1000),
	}
	for _, d := range []int{1, 2, 7, 16, 32, 64, 128} {
		for rounds := 1; rounds <= 3; rounds++ {
			cfg := DefaultConfig()
			cfg.Matrix = d
			cfg.Rounds = rounds
			c, err := NewWithConfig(cfg)
			if err != nil {
				t.Fatalf("NewWithConfig: %v", err)
			}
			k, err := c.Bind("matrix size test")
			if err != nil {
				t.Fatalf("Bind: %v", err)
			}
			for _, pt := range plaintexts {
				ct, err := k.Encrypt(pt)
				if err != nil {
					t.Fatalf("d=%d rounds=%d: Encrypt: %v", d, rounds, err)
				}
				got, err := k.Decrypt(ct)
				if err != nil {
					t.Fatalf("d=%d rounds=%d: Decrypt: %v", d, rounds, err)
				}
				if !bytes.Equal(got, pt) {
					t.Fatalf("d=%d rounds=%d: round trip mismatch for %d bytes", d, rounds, len(pt))
				}
			}
		}
	}
}

func TestMaxMatrixRoundTrip(t *testing.T) {
	c := New()
	if err := c.SetMatrix(MaxMatrix); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	pt := []byte("largest block size the header can describe")
	ct, err := c.Encrypt(pt, "k")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := c.Decrypt(ct, "k")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, pt) {
		t.Fatalf("round trip mismatch")
	}
}

func TestCiphertextLayout(t *testing.T) {
	c := New()
	if err := c.SetMatrix(64); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	ct, err := c.Encrypt(bytes.Repeat([]byte{'x'}, 63), "layout")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(ct) != 1+64+64 {
		t.Fatalf("63-byte plaintext: got %d bytes, want %d", len(ct), 1+64+64)
	}
	if ct[0] != 64 {
		t.Fatalf("header = %d, want 64", ct[0])
	}

	// An aligned plaintext gains one full padding block, since pad lengths
	// run 1..d and never 0. With the dimension byte that is 1+64+128, not
	// the 128 bytes of a headerless IV||block layout.
	ct, _ = c.Encrypt(bytes.Repeat([]byte{'x'}, 64), "layout")
	if len(ct) != 1+64+128 {
		t.Fatalf("64-byte plaintext: got %d bytes, want %d", len(ct), 1+64+128)
	}

	k, _ := c.Bind("layout")
	if k.Overhead(64) != len(ct)-64 {
		t.Fatalf("Overhead(64) = %d, want %d", k.Overhead(64), len(ct)-64)
	}
}

func TestIVNonDeterminism(t *testing.T) {
	c := New()
	a, _ := c.Encrypt([]byte("same message"), "same key")
	b, _ := c.Encrypt([]byte("same message"), "same key")
	if bytes.Equal(a, b) {
		t.Fatalf("two encryptions produced identical ciphertext")
	}
}

func TestWrongKey(t *testing.T) {
	c := New()
	pt := []byte("secret message")
	ct, _ := c.Encrypt(pt, "correct key")
	for _, key := range []string{"wrong key", "correct kez", "Correct key"} {
		got, err := c.Decrypt(ct, key)
		if err == nil && bytes.Equal(got, pt) {
			t.Fatalf("key %q recovered the plaintext", key)
		}
	}
}

func TestTamperedCiphertext(t *testing.T) {
	c := New()
	if err := c.SetMatrix(8); err != nil {
		t.Fatalf("SetMatrix: %v", err)
	}
	pt := []byte("tamper evident message")
	ct, _ := c.Encrypt(pt, "key")
	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x01
		got, err := c.Decrypt(tampered, "key")
		if err == nil && bytes.Equal(got, pt) {
			t.Fatalf("flipping byte %d went unnoticed", i)
		}
		if err != nil && !errors.Is(err, ErrInvalidPadding) && !errors.Is(err, ErrCorruptedCiphertext) {
			t.Fatalf("byte %d: unexpected error %v", i, err)
		}
	}
}

func TestSetMatrixBounds(t *testing.T) {
	c := New()
	for _, d := range []int{0, -1, MaxMatrix + 1} {
		if err := c.SetMatrix(d); !errors.Is(err, ErrInvalidMatrixSize) {
			t.Fatalf("SetMatrix(%d): expected ErrInvalidMatrixSize, got %v", d, err)
		}
	}
	if c.Config().Matrix != DefaultMatrix {
		t.Fatalf("failed SetMatrix changed the configuration")
	}
	if err := c.SetMatrix(16); err != nil {
		t.Fatalf("SetMatrix(16): %v", err)
	}
	enc, err := c.EncryptText("Short", "another_password")
	if err != nil {
		t.Fatalf("EncryptText: %v", err)
	}
	dec, err := c.DecryptText(enc, "another_password")
	if err != nil || dec != "Short" {
		t.Fatalf("DecryptText = %q, %v", dec, err)
	}
}

func TestWithMatrixLeavesOriginal(t *testing.T) {
	c := New()
	c64, err := c.WithMatrix(64)
	if err != nil {
		t.Fatalf("WithMatrix: %v", err)
	}
	if c.Config().Matrix != DefaultMatrix || c64.Config().Matrix != 64 {
		t.Fatalf("WithMatrix mutated the receiver")
	}
	if _, err := c.WithMatrix(0); !errors.Is(err, ErrInvalidMatrixSize) {
		t.Fatalf("WithMatrix(0): expected ErrInvalidMatrixSize, got %v", err)
	}
}

func TestDecryptUsesHeaderDimension(t *testing.T) {
	enc, _ := New().WithMatrix(16)
	ct, _ := enc.Encrypt([]byte("portable"), "k")

	dec := New()
	got, err := dec.Decrypt(ct, "k")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(got) != "portable" {
		t.Fatalf("Decrypt = %q", got)
	}

	k, _ := dec.Bind("k")
	if _, err := k.Decrypt(ct); !errors.Is(err, ErrCorruptedCiphertext) {
		t.Fatalf("Keyed with other dimension: expected ErrCorruptedCiphertext, got %v", err)
	}
}

func TestEmptyKey(t *testing.T) {
	c := New()
	if _, err := c.Encrypt([]byte("x"), ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Encrypt: expected ErrInvalidKey, got %v", err)
	}
	if _, err := c.Decrypt(make([]byte, 65), ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Decrypt: expected ErrInvalidKey, got %v", err)
	}
	if _, err := c.EncryptText("x", ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("EncryptText: expected ErrInvalidKey, got %v", err)
	}
	if _, err := c.DecryptText("AAAA", ""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("DecryptText: expected ErrInvalidKey, got %v", err)
	}
	if _, err := c.Bind(""); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("Bind: expected ErrInvalidKey, got %v", err)
	}
}

func TestDecryptInvalidInput(t *testing.T) {
	c := New()
	cases := [][]byte{
		nil,
		{0},
		bytes.Repeat([]byte{32}, 31),
		bytes.Repeat([]byte{32}, 1+32),
		bytes.Repeat([]byte{32}, 1+32+33),
	}
	for _, ct := range cases {
		if _, err := c.Decrypt(ct, "any key"); !errors.Is(err, ErrCorruptedCiphertext) {
			t.Fatalf("len=%d: expected ErrCorruptedCiphertext, got %v", len(ct), err)
		}
	}
}

func TestDecryptTextInvalid(t *testing.T) {
	c := New()
	if _, err := c.DecryptText("invalid_base64!", "key"); !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected ErrDecoding, got %v", err)
	}
	// "abc" decodes fine but is far too short.
	if _, err := c.DecryptText("YWJj", "key"); !errors.Is(err, ErrCorruptedCiphertext) {
		t.Fatalf("expected ErrCorruptedCiphertext, got %v", err)
	}
}

func TestDecryptTextRejectsBinary(t *testing.T) {
	c := New()
	ct, _ := c.Encrypt([]byte{0xff, 0xfe, 0xfd}, "key")
	k, _ := c.Bind("key")
	if _, err := k.DecryptText(armor.Encode(ct)); !errors.Is(err, ErrDecoding) {
		t.Fatalf("expected ErrDecoding for non-UTF-8 plaintext, got %v", err)
	}
}

func TestTextRoundTrips(t *testing.T) {
	c := New()
	texts := []string{
		"",
		"Hello, world! こんにちは! 😊",
		"Special chars: !@#$%^&*()_+{}|:\"<>?~`\n\t",
		strings.Repeat("Lorem ipsum dolor sit amet, consectetur adipiscing elit. ", 100),
	}
	for _, text := range texts {
		enc, err := c.EncryptText(text, "secure password 123")
		if err != nil {
			t.Fatalf("EncryptText: %v", err)
		}
		dec, err := c.DecryptText(enc, "secure password 123")
		if err != nil {
			t.Fatalf("DecryptText: %v", err)
		}
		if dec != text {
			t.Fatalf("text round trip mismatch")
		}
	}
}

func TestKeyedReuse(t *testing.T) {
	k, err := New().Bind("bulk key")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if k.Matrix() != DefaultMatrix {
		t.Fatalf("Matrix = %d", k.Matrix())
	}
	for i := 0; i < 10; i++ {
		msg := strings.Repeat("m", i*13)
		enc, err := k.EncryptText(msg)
		if err != nil {
			t.Fatalf("EncryptText: %v", err)
		}
		dec, err := k.DecryptText(enc)
		if err != nil || dec != msg {
			t.Fatalf("DecryptText = %q, %v", dec, err)
		}
	}
	// Bound and unbound paths interoperate.
	ct, _ := k.Encrypt([]byte("interop"))
	got, err := New().Decrypt(ct, "bulk key")
	if err != nil || string(got) != "interop" {
		t.Fatalf("Decrypt = %q, %v", got, err)
	}
}

func TestArgon2idConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Matrix = 16
	cfg.KDF = keyschedule.KDFArgon2id
	c, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	ct, err := c.Encrypt([]byte("stretched"), "pw")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := c.Decrypt(ct, "pw")
	if err != nil || string(got) != "stretched" {
		t.Fatalf("Decrypt = %q, %v", got, err)
	}
	// The HKDF schedule is unrelated.
	if got, err := New().Decrypt(ct, "pw"); err == nil && string(got) == "stretched" {
		t.Fatalf("hkdf schedule decrypted an argon2id ciphertext")
	}
}

func TestConfigValidate(t *testing.T) {
	bad := []struct {
		mutate func(*Config)
		want   error
	}{
		{func(c *Config) { c.Matrix = 0 }, ErrInvalidMatrixSize},
		{func(c *Config) { c.Matrix = 256 }, ErrInvalidMatrixSize},
		{func(c *Config) { c.Rounds = 0 }, ErrInvalidRounds},
		{func(c *Config) { c.Rounds = MaxRounds + 1 }, ErrInvalidRounds},
		{func(c *Config) { c.KDF = 7 }, ErrInvalidKDF},
	}
	for i, tc := range bad {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if _, err := NewWithConfig(cfg); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestConcurrentSetMatrix(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	errs := make(chan error, 16)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = c.SetMatrix(8 + i%3*8)
		}
	}()
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			msg := bytes.Repeat([]byte{byte(g)}, 100)
			for i := 0; i < 20; i++ {
				ct, err := c.Encrypt(msg, "shared")
				if err != nil {
					errs <- err
					return
				}
				got, err := c.Decrypt(ct, "shared")
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(got, msg) {
					errs <- errors.New("concurrent round trip mismatch")
					return
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		t.Fatal(err)
	}
}
