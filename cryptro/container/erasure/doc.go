// Package erasure protects container chunks with Reed-Solomon parity.
//
// Each ciphertext chunk is split into data shards plus parity shards, and
// every shard is stored next to its BLAKE3 digest. On read, shards whose
// digest no longer matches are treated as lost; as long as no more than the
// parity count is damaged, the chunk is rebuilt bit for bit.
//
// This implementation uses the klauspost/reedsolomon library for high performance.
package erasure
