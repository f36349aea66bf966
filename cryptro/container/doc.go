// Package container provides a streaming file format for payloads too large
// to encrypt as a single message.
//
// The plaintext is cut into fixed-size chunks. Each chunk is optionally
// LZ4-compressed, encrypted as an independent cryptro message, and
// optionally spread over Reed-Solomon shards so that damaged storage can be
// repaired. A trailer records the chunk count and a SHA-256 Merkle root over
// the chunk ciphertexts to detect truncation and reordering.
//
// Format:
//
//	header:  magic "CRO1" (4) | flags (1) | dataShards (1) | parityShards (1) | chunkSize (4)
//	frame:   index (4) | compressed (1) | ctLen (4) | body
//	         body without parity: ciphertext
//	         body with parity:    shardSize (4) | {blake3 (32) | shard} * (data + parity)
//	trailer: 0xFFFFFFFF (4) | chunkCount (4) | merkleRoot (32)
//
// The digests and Merkle root are unkeyed; they catch accidental damage, not
// forgery.
package container
