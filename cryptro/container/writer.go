package container

import (
	"bufio"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/TheusHen/cryptro/cryptro"
	"github.com/TheusHen/cryptro/cryptro/container/erasure"
)

// Writer encrypts a stream into the container format. It is not safe for
// concurrent use.
type Writer struct {
	w      *bufio.Writer
	keyed  *cryptro.Keyed
	opts   options
	codec  *erasure.Codec
	log    *slog.Logger
	buf    []byte
	index  uint32
	leaves [][]byte
	root   []byte
	closed bool
}

// NewWriter writes the container header to w and returns a Writer that
// encrypts with k. Close must be called to write the trailer.
func NewWriter(w io.Writer, k *cryptro.Keyed, opts ...Option) (*Writer, error) {
	if k == nil {
		return nil, cryptro.ErrInvalidKey
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	cw := &Writer{
		w:     bufio.NewWriter(w),
		keyed: k,
		opts:  o,
		log:   o.logger.With("component", "container.writer", "matrix", k.Matrix()),
		buf:   make([]byte, 0, o.chunkSize),
	}

	h := header{chunkSize: o.chunkSize}
	if o.parityShards > 0 {
		cw.codec, err = erasure.NewCodec(o.dataShards, o.parityShards)
		if err != nil {
			return nil, err
		}
		h.flags |= flagParity
		h.dataShards, h.parityShards = cw.codec.DataShards(), cw.codec.ParityShards()
		cw.log.Debug("parity enabled",
			"data", cw.codec.DataShards(),
			"parity", cw.codec.ParityShards(),
			"overhead", cw.codec.Overhead())
	}
	if _, err := cw.w.Write(h.encode()); err != nil {
		return nil, err
	}
	return cw, nil
}

// Write buffers p and emits a frame for every full chunk.
func (cw *Writer) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, ErrClosed
	}
	written := 0
	for len(p) > 0 {
		n := cw.opts.chunkSize - len(cw.buf)
		if n > len(p) {
			n = len(p)
		}
		cw.buf = append(cw.buf, p[:n]...)
		p = p[n:]
		written += n
		if len(cw.buf) == cw.opts.chunkSize {
			if err := cw.flushChunk(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

// Close flushes the final chunk and writes the trailer. It does not close
// the underlying writer.
func (cw *Writer) Close() error {
	if cw.closed {
		return nil
	}
	// An empty stream still carries one chunk so the trailer has a root.
	if len(cw.buf) > 0 || cw.index == 0 {
		if err := cw.flushChunk(); err != nil {
			return err
		}
	}
	cw.closed = true

	tree, err := BuildMerkleTree(cw.leaves)
	if err != nil {
		return err
	}
	cw.root = tree.Root()

	trailer := make([]byte, 8, 8+len(cw.root))
	binary.BigEndian.PutUint32(trailer[0:4], trailerMark)
	binary.BigEndian.PutUint32(trailer[4:8], cw.index)
	trailer = append(trailer, cw.root...)
	if _, err := cw.w.Write(trailer); err != nil {
		return err
	}
	cw.log.Debug("container sealed", "chunks", cw.index, "root", tree.RootHex())
	return cw.w.Flush()
}

// Root returns the Merkle root written in the trailer, or nil before Close.
func (cw *Writer) Root() []byte { return cw.root }

func (cw *Writer) flushChunk() error {
	if cw.index == trailerMark {
		return ErrTooManyChunks
	}
	body, compressed := maybeCompress(cw.buf, cw.opts.compression)
	ct, err := cw.keyed.Encrypt(body)
	if err != nil {
		return err
	}
	cw.buf = cw.buf[:0]

	var flag byte
	if compressed {
		flag = 1
	}
	hdr := make([]byte, 9)
	binary.BigEndian.PutUint32(hdr[0:4], cw.index)
	hdr[4] = flag
	binary.BigEndian.PutUint32(hdr[5:9], uint32(len(ct)))
	if _, err := cw.w.Write(hdr); err != nil {
		return err
	}

	// Hash before sharding: Split may reuse ct's backing array.
	cw.leaves = append(cw.leaves, HashChunk(ct))

	if cw.codec == nil {
		if _, err := cw.w.Write(ct); err != nil {
			return err
		}
	} else if err := cw.writeShards(ct); err != nil {
		return err
	}

	cw.log.Debug("chunk written", "index", cw.index, "ciphertext", len(ct), "compressed", compressed)
	cw.index++
	return nil
}

func (cw *Writer) writeShards(ct []byte) error {
	shards, err := cw.codec.EncodeData(ct)
	if err != nil {
		return err
	}
	if err := putUint32(cw.w, uint32(len(shards[0]))); err != nil {
		return err
	}
	for _, s := range shards {
		d := erasure.Digest(s)
		if _, err := cw.w.Write(d[:]); err != nil {
			return err
		}
		if _, err := cw.w.Write(s); err != nil {
			return err
		}
	}
	return nil
}
