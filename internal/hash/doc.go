// Package hash provides the hashing primitives used by the engine.
//
// # Int32 sequences
//
// Equivalence-class keys and interned distribution arrays are short int32
// sequences. Int32s hashes them with xxhash over their little-endian bytes.
//
// # CRC32-Castagnoli (CRC32C)
//
// Encoded snapshots carry a CRC32C checksum of their payload. The table is
// computed once at init and Go's crc32 package uses hardware instructions
// (SSE4.2, ARM CRC) when available.
package hash
