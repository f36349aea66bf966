package container

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrBadMagic      = errors.New("container: not a cryptro container")
	ErrBadHeader     = errors.New("container: invalid header")
	ErrFrameTooLarge = errors.New("container: frame exceeds maximum size")
	ErrTruncated     = errors.New("container: truncated")
	ErrIntegrity     = errors.New("container: integrity check failed")
	ErrClosed        = errors.New("container: writer closed")
	ErrTooManyChunks = errors.New("container: chunk limit reached")
	ErrNotVerified   = errors.New("container: trailer not verified yet")
)

const (
	// Magic identifies a container ("CRO1").
	Magic = uint32(0x43524F31)

	DefaultChunkSize = 64 * 1024
	MaxChunkSize     = 16 * 1024 * 1024

	headerSize  = 4 + 1 + 1 + 1 + 4
	trailerMark = uint32(0xFFFFFFFF)

	flagParity = 1 << 0
)

type header struct {
	flags        byte
	dataShards   int
	parityShards int
	chunkSize    int
}

func (h header) hasParity() bool { return h.flags&flagParity != 0 }

func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	buf[4] = h.flags
	buf[5] = byte(h.dataShards)
	buf[6] = byte(h.parityShards)
	binary.BigEndian.PutUint32(buf[7:11], uint32(h.chunkSize))
	return buf
}

func readHeader(r io.Reader) (header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return header{}, ErrTruncated
		}
		return header{}, err
	}
	if binary.BigEndian.Uint32(buf[0:4]) != Magic {
		return header{}, ErrBadMagic
	}
	h := header{
		flags:        buf[4],
		dataShards:   int(buf[5]),
		parityShards: int(buf[6]),
		chunkSize:    int(binary.BigEndian.Uint32(buf[7:11])),
	}
	if h.flags&^flagParity != 0 {
		return header{}, fmt.Errorf("%w: unknown flags %#x", ErrBadHeader, h.flags)
	}
	if h.chunkSize <= 0 || h.chunkSize > MaxChunkSize {
		return header{}, fmt.Errorf("%w: chunk size %d", ErrBadHeader, h.chunkSize)
	}
	if h.hasParity() && (h.dataShards == 0 || h.parityShards == 0) {
		return header{}, fmt.Errorf("%w: parity flag without shards", ErrBadHeader)
	}
	return h, nil
}

func putUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrTruncated
		}
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readFull(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrTruncated
		}
		return err
	}
	return nil
}
