// Package minio stores containers in MinIO or any other S3-compatible
// server (Ceph, Garage, SeaweedFS) through the MinIO client.
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := nxminio.NewStore(client, "my-bucket", "graphs/")
//	ds, err := dataio.Load(ctx, store, "run-1.nxg")
//
// Ranged reads are pinned to the ETag seen at Open, and CURRENT pointers
// are written unbuffered with Cache-Control: no-cache.
package minio
