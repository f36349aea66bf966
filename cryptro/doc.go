// Package cryptro provides password-based symmetric encryption built on a
// matrix substitution-permutation cipher.
//
// A message is padded to the block size, chained under a fresh random IV,
// and every block runs through the layers derived from the password by
// package keyschedule. The result is laid out as:
//
//	1 byte:   matrix dimension d (block size)
//	d bytes:  IV
//	N*d bytes: ciphertext blocks (N >= 1)
//
// EncryptText and DecryptText additionally armor the bytes as URL-safe
// base64. The cipher provides confidentiality only; it does not
// authenticate ciphertext.
package cryptro
