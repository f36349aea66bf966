package keyschedule

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

var ErrInvalidKDF = errors.New("keyschedule: unknown key derivation function")

// KDF selects how the password is turned into the root key.
type KDF uint8

const (
	KDFHKDF     KDF = iota // HKDF-SHA256, fast
	KDFArgon2id            // Argon2id, memory-hard
)

func (k KDF) String() string {
	switch k {
	case KDFHKDF:
		return "hkdf"
	case KDFArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// ParseKDF maps a name as printed by String back to a KDF.
func ParseKDF(s string) (KDF, error) {
	switch s {
	case "", "hkdf":
		return KDFHKDF, nil
	case "argon2id", "argon2":
		return KDFArgon2id, nil
	default:
		return 0, ErrInvalidKDF
	}
}

const (
	// RootKeySize is the size of the root and layer keys.
	RootKeySize = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 1
)

var salt = []byte("cryptro/v1")

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// rootKey binds the password to the geometry of the schedule so that the
// same password under another dimension or round count yields unrelated keys.
func rootKey(password []byte, dim, rounds int, kdf KDF) ([]byte, error) {
	params := []byte{byte(dim), byte(rounds)}
	switch kdf {
	case KDFHKDF:
		info := append([]byte("root"), params...)
		return DeriveKey(password, salt, info, RootKeySize)
	case KDFArgon2id:
		s := append(append([]byte(nil), salt...), params...)
		return argon2.IDKey(password, s, argonTime, argonMemory, argonThreads, RootKeySize), nil
	default:
		return nil, ErrInvalidKDF
	}
}

// label builds an HKDF info string: name || index (big endian).
func label(name string, index int) []byte {
	info := make([]byte, len(name)+4)
	copy(info, name)
	binary.BigEndian.PutUint32(info[len(name):], uint32(index))
	return info
}
