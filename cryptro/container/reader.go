package container

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/TheusHen/cryptro/cryptro"
	"github.com/TheusHen/cryptro/cryptro/container/erasure"
)

// Reader decrypts a container produced by Writer. Data is only returned
// after its chunk has decrypted; io.EOF is returned only once the trailer
// has matched the chunk count and Merkle root.
type Reader struct {
	r       *bufio.Reader
	keyed   *cryptro.Keyed
	hdr     header
	maxCT   int
	codec   *erasure.Codec
	log     *slog.Logger
	pending []byte
	next    uint32
	leaves  [][]byte
	repairs int
	tree    *MerkleTree
	err     error
}

// NewReader reads and validates the container header from r.
func NewReader(r io.Reader, k *cryptro.Keyed, opts ...Option) (*Reader, error) {
	if k == nil {
		return nil, cryptro.ErrInvalidKey
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	cr := &Reader{
		r:     br,
		keyed: k,
		hdr:   h,
		maxCT: h.chunkSize + k.Overhead(h.chunkSize),
		log:   o.logger.With("component", "container.reader", "matrix", k.Matrix()),
	}
	if h.hasParity() {
		cr.codec, err = erasure.NewCodec(h.dataShards, h.parityShards)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadHeader, err)
		}
	}
	return cr, nil
}

// ChunkSize reports the chunk size recorded in the header.
func (cr *Reader) ChunkSize() int { return cr.hdr.chunkSize }

// Repaired reports how many shards have been rebuilt from parity so far.
func (cr *Reader) Repaired() int { return cr.repairs }

// Chunks reports how many chunks have been decrypted so far.
func (cr *Reader) Chunks() int { return int(cr.next) }

// Root returns the verified Merkle root, or nil before the trailer matched.
func (cr *Reader) Root() []byte {
	if cr.tree == nil {
		return nil
	}
	return cr.tree.Root()
}

// Proof returns the inclusion proof of chunk i against Root. It is only
// available once the trailer has been verified.
func (cr *Reader) Proof(i int) (Proof, error) {
	if cr.tree == nil {
		return Proof{}, ErrNotVerified
	}
	return cr.tree.GenerateProof(i)
}

func (cr *Reader) Read(p []byte) (int, error) {
	for len(cr.pending) == 0 {
		if cr.err != nil {
			return 0, cr.err
		}
		cr.err = cr.readFrame()
	}
	n := copy(p, cr.pending)
	cr.pending = cr.pending[n:]
	return n, nil
}

// WriteTo drains the container into w.
func (cr *Reader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for {
		if len(cr.pending) > 0 {
			n, err := w.Write(cr.pending)
			total += int64(n)
			cr.pending = cr.pending[n:]
			if err != nil {
				return total, err
			}
			continue
		}
		if cr.err != nil {
			if cr.err == io.EOF {
				return total, nil
			}
			return total, cr.err
		}
		cr.err = cr.readFrame()
	}
}

// readFrame decodes the next frame into pending. It returns io.EOF after a
// valid trailer.
func (cr *Reader) readFrame() error {
	index, err := readUint32(cr.r)
	if err != nil {
		return err
	}
	if index == trailerMark {
		return cr.readTrailer()
	}
	if index != cr.next {
		return fmt.Errorf("%w: chunk %d out of order, want %d", ErrIntegrity, index, cr.next)
	}

	flag, err := cr.r.ReadByte()
	if err != nil {
		return ErrTruncated
	}
	if flag > 1 {
		return fmt.Errorf("%w: chunk %d has flag %#x", ErrBadHeader, index, flag)
	}
	size, err := readUint32(cr.r)
	if err != nil {
		return err
	}
	// Compressed chunks are only stored when smaller, so a full chunk bounds
	// every ciphertext.
	if size == 0 || int(size) > cr.maxCT {
		return fmt.Errorf("%w: chunk %d ciphertext %d bytes", ErrFrameTooLarge, index, size)
	}

	var ct []byte
	if cr.codec == nil {
		ct = make([]byte, size)
		if err := readFull(cr.r, ct); err != nil {
			return err
		}
	} else if ct, err = cr.readShards(index, int(size)); err != nil {
		return err
	}
	cr.leaves = append(cr.leaves, HashChunk(ct))

	pt, err := cr.keyed.Decrypt(ct)
	if err != nil {
		return fmt.Errorf("container: chunk %d: %w", index, err)
	}
	if flag == 1 {
		if pt, err = Decompress(pt, cr.hdr.chunkSize); err != nil {
			return fmt.Errorf("container: chunk %d: %w", index, err)
		}
	}
	if len(pt) > cr.hdr.chunkSize {
		return fmt.Errorf("%w: chunk %d larger than chunk size", ErrIntegrity, index)
	}

	cr.pending = pt
	cr.next++
	return nil
}

func (cr *Reader) readShards(index uint32, size int) ([]byte, error) {
	shardSize, err := readUint32(cr.r)
	if err != nil {
		return nil, err
	}
	want := cr.codec.ShardSize(size)
	if int(shardSize) != want {
		return nil, fmt.Errorf("%w: chunk %d shard size %d, want %d", ErrIntegrity, index, shardSize, want)
	}

	total := cr.codec.TotalShards()
	shards := make([][]byte, total)
	digests := make([][erasure.DigestSize]byte, total)
	for i := 0; i < total; i++ {
		if err := readFull(cr.r, digests[i][:]); err != nil {
			return nil, err
		}
		shards[i] = make([]byte, shardSize)
		if err := readFull(cr.r, shards[i]); err != nil {
			return nil, err
		}
	}

	fixed, err := cr.codec.Repair(shards, digests)
	if err != nil {
		return nil, fmt.Errorf("container: chunk %d: %w", index, err)
	}
	if fixed > 0 {
		cr.repairs += fixed
		cr.log.Warn("repaired damaged shards", "chunk", index, "shards", fixed)
	}
	return cr.codec.Join(shards, size), nil
}

func (cr *Reader) readTrailer() error {
	count, err := readUint32(cr.r)
	if err != nil {
		return err
	}
	root := make([]byte, 32)
	if err := readFull(cr.r, root); err != nil {
		return err
	}
	if count != cr.next {
		return fmt.Errorf("%w: trailer counts %d chunks, read %d", ErrTruncated, count, cr.next)
	}
	tree, err := BuildMerkleTree(cr.leaves)
	if err != nil {
		return fmt.Errorf("%w: no chunks", ErrIntegrity)
	}
	if !bytes.Equal(tree.Root(), root) {
		return fmt.Errorf("%w: merkle root mismatch", ErrIntegrity)
	}
	cr.tree = tree
	cr.log.Debug("container verified", "chunks", count, "root", tree.RootHex())
	return io.EOF
}
