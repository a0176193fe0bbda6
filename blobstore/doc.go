// Package blobstore stores spilled snapshot blobs.
//
// A Store holds immutable, whole-object blobs addressed by slash-separated
// names. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and short-lived runs
//   - LocalStore: a directory on the local file system
//   - minio.Store: MinIO and other S3-compatible services
//   - s3.Store: Amazon S3
//
// # Custom Implementations
//
//	type Store interface {
//	    Get(ctx, name) ([]byte, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Get must return an error matching ErrNotFound for missing blobs. Delete of
// a missing blob is not an error.
package blobstore
