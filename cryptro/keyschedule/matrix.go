package keyschedule

import "errors"

var ErrNotInverse = errors.New("keyschedule: matrices do not compose to identity")

// Matrix is a square matrix of bytes with arithmetic mod 256, stored row-major.
type Matrix struct {
	n     int
	cells []byte
}

// NewMatrix returns the n×n zero matrix.
func NewMatrix(n int) Matrix {
	return Matrix{n: n, cells: make([]byte, n*n)}
}

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Dim returns the matrix dimension.
func (m Matrix) Dim() int { return m.n }

func (m Matrix) At(i, j int) byte { return m.cells[i*m.n+j] }

func (m Matrix) Set(i, j int, v byte) { m.cells[i*m.n+j] = v }

// Row returns row i; the slice aliases the matrix.
func (m Matrix) Row(i int) []byte { return m.cells[i*m.n : (i+1)*m.n] }

// Mul returns m·o mod 256.
func (m Matrix) Mul(o Matrix) Matrix {
	n := m.n
	out := NewMatrix(n)
	for i := 0; i < n; i++ {
		row := m.Row(i)
		dst := out.Row(i)
		for k := 0; k < n; k++ {
			a := row[k]
			src := o.Row(k)
			for j := 0; j < n; j++ {
				dst[j] += a * src[j]
			}
		}
	}
	return out
}

// MulVec writes m·v mod 256 into dst. dst and v must not overlap.
func (m Matrix) MulVec(dst, v []byte) {
	n := m.n
	for i := 0; i < n; i++ {
		row := m.cells[i*n : (i+1)*n]
		var acc byte
		for j, x := range v[:n] {
			acc += row[j] * x
		}
		dst[i] = acc
	}
}

// Equal reports whether both matrices hold the same cells.
func (m Matrix) Equal(o Matrix) bool {
	if m.n != o.n {
		return false
	}
	for i := range m.cells {
		if m.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// IsIdentity reports whether m is the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m.Equal(Identity(m.n))
}

// permuteRows returns P·m for the permutation matrix P of perm.
func (m Matrix) permuteRows(perm []int) Matrix {
	out := NewMatrix(m.n)
	for i, src := range perm {
		copy(out.Row(i), m.Row(src))
	}
	return out
}

// permuteCols returns m·Pᵀ for the permutation matrix P of perm.
func (m Matrix) permuteCols(perm []int) Matrix {
	out := NewMatrix(m.n)
	for i := 0; i < m.n; i++ {
		row, dst := m.Row(i), out.Row(i)
		for j, src := range perm {
			dst[j] = row[src]
		}
	}
	return out
}

// invertUnitLower inverts a unit lower triangular matrix by forward
// substitution. The unit diagonal makes every pivot 1, which is invertible
// mod 256, so the inverse always exists.
func invertUnitLower(l Matrix) Matrix {
	n := l.n
	x := Identity(n)
	for j := 0; j < n; j++ {
		for i := j + 1; i < n; i++ {
			var acc byte
			for k := j; k < i; k++ {
				acc += l.At(i, k) * x.At(k, j)
			}
			x.Set(i, j, -acc)
		}
	}
	return x
}

// invertUnitUpper inverts a unit upper triangular matrix by back substitution.
func invertUnitUpper(u Matrix) Matrix {
	n := u.n
	x := Identity(n)
	for j := n - 1; j >= 0; j-- {
		for i := j - 1; i >= 0; i-- {
			var acc byte
			for k := i + 1; k <= j; k++ {
				acc += u.At(i, k) * x.At(k, j)
			}
			x.Set(i, j, -acc)
		}
	}
	return x
}

// CheckInverse returns ErrNotInverse unless m·inv is the identity. Over a
// commutative ring a one-sided inverse of a square matrix is two-sided.
func CheckInverse(m, inv Matrix) error {
	if m.n != inv.n || !m.Mul(inv).IsIdentity() {
		return ErrNotInverse
	}
	return nil
}
