package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/nxgraph/archive"
	"github.com/hupe1980/nxgraph/blobstore"
)

// CurrentName is the blob name DDBCommitStore serves from DynamoDB.
const CurrentName = archive.CurrentName

// DDBCommitStore is a blobstore.BlobStore backed by S3 that keeps the
// archive's CURRENT pointer in DynamoDB. Every commit is one item keyed by
// the archive version of the container it points at. Conditional writes
// make concurrent archive commits safe: of two writers racing for the same
// version, one gets ErrConcurrentModification, as does any writer pointing
// CURRENT at a version older than the latest.
//
// Table schema:
//   - Partition key: base_uri (string), the S3 bucket/prefix
//   - Sort key: version (number), the archive version
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name nxgraph-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	blobstore.BlobStore
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// DDBClient is the subset of *dynamodb.Client the commit store uses.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var (
	// ErrConcurrentModification is returned when another writer committed
	// the same or a later version first.
	ErrConcurrentModification = errors.New("s3: concurrent modification detected")
	// ErrInvalidTarget is returned when CURRENT is set to something other
	// than an archive container name.
	ErrInvalidTarget = errors.New("s3: CURRENT must name an archive container")
)

// NewDDBCommitStore wraps store. baseURI, e.g. "s3://bucket/prefix",
// partitions the table.
func NewDDBCommitStore(store blobstore.BlobStore, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{BlobStore: store, ddbClient: ddbClient, tableName: tableName, baseURI: baseURI}
}

// Open serves CURRENT from the latest committed version.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentName {
		return s.BlobStore.Open(ctx, name)
	}
	version, err := s.Version(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, fmt.Errorf("%s: %w", name, blobstore.ErrNotFound)
	}
	return &currentBlob{content: []byte(version.Name())}, nil
}

// Put commits CURRENT with a conditional write; other names go to S3.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name != CurrentName {
		return s.BlobStore.Put(ctx, name, data)
	}
	return s.commit(ctx, string(data))
}

// Version returns the latest committed archive version, 0 if none.
func (s *DDBCommitStore) Version(ctx context.Context) (archive.Version, error) {
	v, target, err := s.latest(ctx)
	if err != nil || v == 0 {
		return 0, err
	}
	if tv, ok := archive.ParseName(target); !ok || tv != v {
		return 0, fmt.Errorf("s3: commit %d points at %q", v, target)
	}
	return v, nil
}

func (s *DDBCommitStore) latest(ctx context.Context) (archive.Version, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("s3: query commits: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("s3: invalid version attribute")
	}
	targetAttr, ok := item["target"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("s3: invalid target attribute")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("s3: parse version: %w", err)
	}
	return archive.Version(version), targetAttr.Value, nil
}

func (s *DDBCommitStore) commit(ctx context.Context, target string) error {
	v, ok := archive.ParseName(target)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
	}
	current, _, err := s.latest(ctx)
	if err != nil {
		return err
	}
	if v <= current {
		return fmt.Errorf("%w: version %d, latest is %d", ErrConcurrentModification, v, current)
	}
	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(uint64(v), 10)},
			"target":   &types.AttributeValueMemberS{Value: target},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit version: %w", err)
	}
	return nil
}

type currentBlob struct {
	content []byte
}

func (b *currentBlob) Close() error { return nil }
func (b *currentBlob) Size() int64  { return int64(len(b.content)) }

func (b *currentBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off >= int64(len(b.content)) {
		return 0, io.EOF
	}
	n := copy(p, b.content[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
