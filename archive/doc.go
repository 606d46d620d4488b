// Package archive keeps numbered versions of a data structure in a blob
// store.
//
// Every commit writes a new container GRAPH-NNNNNN.nxg and then points the
// CURRENT blob at it. A crash between the two steps leaves the previous
// version current. CURRENT is replaced with BlobStore.Put, which is atomic
// on every backend; on S3 the DynamoDB commit store makes concurrent
// commits safe.
package archive
