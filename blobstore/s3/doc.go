// Package s3 stores containers in Amazon S3.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := s3.NewFromConfig(cfg)
//	store := nxs3.NewStore(client, "my-bucket", "graphs/")
//
//	err = dataio.Save(ctx, store, "run-1.nxg", ds, dataio.WriteOptions{})
//
// # Features
//
//   - Range reads pinned to the ETag seen at Open, so chunked datasets are
//     fetched chunk by chunk from one container version
//   - Multipart streaming uploads with CRC32C integrity checks
//   - Containers and CURRENT pointers labelled with their content type
//   - DDBCommitStore: one DynamoDB item per archive version, written
//     conditionally so concurrent committers cannot both win
package s3
