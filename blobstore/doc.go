// Package blobstore provides storage backends for container files.
//
// BlobStore is the interface for reading and writing named, immutable
// blobs. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, memory-mapped reads, atomic puts
//   - MemoryStore: in-process map, for tests
//   - CachingStore: block cache in front of any store
//   - s3.Store, s3.DDBCommitStore: Amazon S3, with DynamoDB commit pointers
//   - minio.Store: MinIO and other S3-compatible servers
//
// Use ReaderAt to hand a Blob to code that expects an io.ReaderAt.
package blobstore
