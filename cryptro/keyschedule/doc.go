// Package keyschedule derives the per-layer key material of the matrix cipher
// from a password.
//
// A schedule holds, for every layer:
//   - an invertible d×d round matrix M = P·L·U over Z/256 and its inverse
//   - a key-derived 8-bit S-box and its inverse
//   - a d-byte round key
//
// Derivation is a pure function of (password, dimension, rounds, KDF).
package keyschedule
