package container

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/TheusHen/cryptro/cryptro/container/erasure"
)

// Option configures a Writer or Reader.
type Option func(*options) error

type options struct {
	chunkSize    int
	compression  CompressionLevel
	dataShards   int
	parityShards int
	logger       *slog.Logger
}

func defaultOptions() options {
	return options{
		chunkSize: DefaultChunkSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func applyOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return options{}, err
		}
	}
	return o, nil
}

// WithChunkSize sets the plaintext bytes per chunk. Only the Writer uses it;
// a Reader takes the size from the header.
func WithChunkSize(n int) Option {
	return func(o *options) error {
		if n <= 0 || n > MaxChunkSize {
			return fmt.Errorf("container: chunk size %d out of range (1..%d)", n, MaxChunkSize)
		}
		o.chunkSize = n
		return nil
	}
}

// WithCompression enables LZ4 compression of chunks that shrink.
func WithCompression(level CompressionLevel) Option {
	return func(o *options) error {
		if level < CompressionNone || level > CompressionBest {
			return fmt.Errorf("container: invalid compression level %d", level)
		}
		o.compression = level
		return nil
	}
}

// WithParity spreads each chunk ciphertext over data+parity Reed-Solomon
// shards. Zero parity disables erasure coding.
func WithParity(data, parity int) Option {
	return func(o *options) error {
		if parity == 0 {
			o.dataShards, o.parityShards = 0, 0
			return nil
		}
		if data <= 0 || parity < 0 || data+parity > erasure.MaxShards {
			return fmt.Errorf("%w: data=%d parity=%d", erasure.ErrInvalidConfig, data, parity)
		}
		o.dataShards, o.parityShards = data, parity
		return nil
	}
}

// WithLogger sets the logger for chunk-level diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) error {
		if l != nil {
			o.logger = l
		}
		return nil
	}
}
