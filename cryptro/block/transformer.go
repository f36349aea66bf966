package block

import (
	"crypto/cipher"
	"sync"

	"github.com/TheusHen/cryptro/cryptro/keyschedule"
)

// Transformer applies every layer of a schedule to one block.
// It implements cipher.Block and is safe for concurrent use.
type Transformer struct {
	sched *keyschedule.Schedule
	size  int
	pool  sync.Pool
}

var _ cipher.Block = (*Transformer)(nil)

// New creates a Transformer over s. The schedule must not be modified
// afterwards.
func New(s *keyschedule.Schedule) *Transformer {
	size := s.Dim()
	return &Transformer{
		sched: s,
		size:  size,
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// BlockSize returns the block size in bytes, equal to the matrix dimension.
func (t *Transformer) BlockSize() int { return t.size }

// Encrypt transforms the first block of src into dst. dst and src may overlap
// entirely.
func (t *Transformer) Encrypt(dst, src []byte) {
	t.check(dst, src)
	scratch := t.pool.Get().(*[]byte)
	defer t.pool.Put(scratch)
	tmp := *scratch

	copy(dst[:t.size], src[:t.size])
	for i := 0; i < t.sched.Rounds(); i++ {
		EncryptLayer(t.sched.Layer(i), dst[:t.size], tmp)
	}
}

// Decrypt inverts Encrypt.
func (t *Transformer) Decrypt(dst, src []byte) {
	t.check(dst, src)
	scratch := t.pool.Get().(*[]byte)
	defer t.pool.Put(scratch)
	tmp := *scratch

	copy(dst[:t.size], src[:t.size])
	for i := t.sched.Rounds() - 1; i >= 0; i-- {
		DecryptLayer(t.sched.Layer(i), dst[:t.size], tmp)
	}
}

func (t *Transformer) check(dst, src []byte) {
	if len(src) < t.size {
		panic("block: input not full block")
	}
	if len(dst) < t.size {
		panic("block: output not full block")
	}
}

// EncryptLayer runs one layer forward over buf in place. tmp must be at
// least as long as buf.
func EncryptLayer(l *keyschedule.Layer, buf, tmp []byte) {
	substitute(&l.SBox, buf)
	l.Matrix.MulVec(tmp, buf)
	copy(buf, tmp[:len(buf)])
	xorInto(buf, l.RoundKey)
}

// DecryptLayer runs one layer backward over buf in place.
func DecryptLayer(l *keyschedule.Layer, buf, tmp []byte) {
	xorInto(buf, l.RoundKey)
	l.Inverse.MulVec(tmp, buf)
	copy(buf, tmp[:len(buf)])
	substitute(&l.InvSBox, buf)
}
