package container

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("container: compression failed")
	ErrDecompressionFailed = errors.New("container: decompression failed")
)

// CompressionLevel controls the speed/ratio tradeoff of chunk compression.
type CompressionLevel int

const (
	CompressionNone CompressionLevel = iota
	CompressionFast
	CompressionDefault
	CompressionBest
)

// ParseCompression maps a configuration string to a level.
func ParseCompression(s string) (CompressionLevel, error) {
	switch s {
	case "", "none", "off":
		return CompressionNone, nil
	case "fast":
		return CompressionFast, nil
	case "default", "on":
		return CompressionDefault, nil
	case "best":
		return CompressionBest, nil
	}
	return CompressionNone, errors.New("container: unknown compression level " + s)
}

var compressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

var decompressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

// Compress compresses data as an LZ4 frame.
func Compress(data []byte, level CompressionLevel) ([]byte, error) {
	var buf bytes.Buffer
	w := compressorPool.Get().(*lz4.Writer)
	defer compressorPool.Put(w)

	w.Reset(&buf)

	var opt lz4.Option
	switch level {
	case CompressionFast:
		opt = lz4.CompressionLevelOption(lz4.Fast)
	case CompressionBest:
		opt = lz4.CompressionLevelOption(lz4.Level9)
	default:
		opt = lz4.CompressionLevelOption(lz4.Level4)
	}
	if err := w.Apply(opt); err != nil {
		return nil, ErrCompressionFailed
	}

	if _, err := w.Write(data); err != nil {
		return nil, ErrCompressionFailed
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompressionFailed
	}
	return buf.Bytes(), nil
}

// Decompress inflates an LZ4 frame. Output larger than limit is rejected so
// a hostile frame cannot balloon memory.
func Decompress(data []byte, limit int) ([]byte, error) {
	r := decompressorPool.Get().(*lz4.Reader)
	defer decompressorPool.Put(r)

	r.Reset(bytes.NewReader(data))

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, ErrDecompressionFailed
	}
	if n > int64(limit) {
		return nil, ErrDecompressionFailed
	}
	return buf.Bytes(), nil
}

// maybeCompress returns the compressed chunk only when it is smaller.
func maybeCompress(chunk []byte, level CompressionLevel) ([]byte, bool) {
	if level == CompressionNone || len(chunk) == 0 {
		return chunk, false
	}
	out, err := Compress(chunk, level)
	if err != nil || len(out) >= len(chunk) {
		return chunk, false
	}
	return out, true
}
