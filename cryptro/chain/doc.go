// Package chain links block transformations across a whole message in
// cipher-block-chaining style so that equal plaintext blocks never yield
// equal ciphertext blocks.
//
// Every message starts with a fresh random IV. Block i is XORed with the IV
// (i == 0) or the ciphertext of block i-1 before encryption. Decryption of a
// block depends only on ciphertext, so the Engine decrypts long messages in
// parallel segments.
package chain
