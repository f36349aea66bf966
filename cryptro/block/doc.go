// Package block implements one substitution-permutation layer of the matrix
// cipher and stacks the layers of a key schedule into a crypto/cipher.Block.
//
// Per layer, encryption applies:
//  1. byte substitution through the layer S-box (confusion)
//  2. multiplication by the layer round matrix mod 256 (diffusion)
//  3. XOR with the layer round key
//
// Decryption undoes the steps in reverse order with the inverse S-box and
// inverse matrix. S-box lookups touch every table entry so that neither the
// memory access pattern nor control flow depends on secret bytes.
package block
