package erasure

import (
	"errors"

	"github.com/klauspost/reedsolomon"
	"github.com/zeebo/blake3"
)

var (
	ErrTooManyLost   = errors.New("erasure: too many shards damaged, cannot recover")
	ErrInvalidConfig = errors.New("erasure: invalid data/parity configuration")
	ErrShardCount    = errors.New("erasure: shard count does not match configuration")
)

// DigestSize is the size of a shard digest.
const DigestSize = 32

// MaxShards is the largest data+parity total a container header can carry.
const MaxShards = 255

// Codec provides Reed-Solomon encoding and digest-driven repair.
type Codec struct {
	enc          reedsolomon.Encoder
	dataShards   int
	parityShards int
}

// NewCodec creates a new erasure codec.
// dataShards: number of data shards
// parityShards: number of parity shards (can lose up to this many)
func NewCodec(dataShards, parityShards int) (*Codec, error) {
	if dataShards <= 0 || parityShards <= 0 || dataShards+parityShards > MaxShards {
		return nil, ErrInvalidConfig
	}
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Codec{
		enc:          enc,
		dataShards:   dataShards,
		parityShards: parityShards,
	}, nil
}

// DataShards returns the number of data shards.
func (c *Codec) DataShards() int { return c.dataShards }

// ParityShards returns the number of parity shards.
func (c *Codec) ParityShards() int { return c.parityShards }

// TotalShards returns the total number of shards (data + parity).
func (c *Codec) TotalShards() int { return c.dataShards + c.parityShards }

// EncodeData splits data into data shards and computes parity.
// Returns all shards (data + parity), each of the same length.
func (c *Codec) EncodeData(data []byte) ([][]byte, error) {
	shards, err := c.enc.Split(data)
	if err != nil {
		return nil, err
	}
	if err := c.enc.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// Digest returns the BLAKE3-256 digest of a shard.
func Digest(shard []byte) [DigestSize]byte {
	return blake3.Sum256(shard)
}

// Repair drops every shard whose digest does not match and rebuilds the
// data shards from the rest. It returns the number of shards rebuilt.
func (c *Codec) Repair(shards [][]byte, digests [][DigestSize]byte) (int, error) {
	if len(shards) != c.TotalShards() || len(digests) != len(shards) {
		return 0, ErrShardCount
	}
	damaged := 0
	for i, s := range shards {
		if s == nil || Digest(s) != digests[i] {
			shards[i] = nil
			damaged++
		}
	}
	if damaged == 0 {
		return 0, nil
	}
	if damaged > c.parityShards {
		return 0, ErrTooManyLost
	}
	if err := c.enc.ReconstructData(shards); err != nil {
		if errors.Is(err, reedsolomon.ErrTooFewShards) {
			return 0, ErrTooManyLost
		}
		return 0, err
	}
	return damaged, nil
}

// Join joins data shards back into the original data.
// outSize is the original data size (before padding).
func (c *Codec) Join(shards [][]byte, outSize int) []byte {
	data := make([]byte, 0, outSize)
	for i := 0; i < c.dataShards && len(data) < outSize; i++ {
		remaining := outSize - len(data)
		if remaining >= len(shards[i]) {
			data = append(data, shards[i]...)
		} else {
			data = append(data, shards[i][:remaining]...)
		}
	}
	return data
}

// ShardSize calculates the shard size for a given data size.
func (c *Codec) ShardSize(dataSize int) int {
	shardSize := dataSize / c.dataShards
	if dataSize%c.dataShards != 0 {
		shardSize++
	}
	return shardSize
}

// Overhead returns the storage overhead ratio (e.g., 1.4 for 10+4 config).
func (c *Codec) Overhead() float64 {
	return float64(c.TotalShards()) / float64(c.dataShards)
}
