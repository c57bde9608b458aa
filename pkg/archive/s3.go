package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/vdiff/pkg/session"
)

// S3API is the subset of the S3 client used by S3Store. *s3.Client
// implements it.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	s3.ListObjectsV2APIClient
}

const (
	metaDigest    = "vdiff-digest"
	metaPatches   = "vdiff-patches"
	metaSnapshot  = "vdiff-snapshot"
	metaCreatedAt = "vdiff-created-at"
)

// S3Store stores batches as S3 objects under prefix/<session>/<seq>.bin, with
// the digest and batch fields in object metadata.
//
// Example usage:
//
//	client := archive.NewS3Client("eu-west-1")
//	store := archive.NewS3Store(client, "my-bucket", "batches")
//	rec := session.New(session.Config{Sinks: []session.Sink{archive.NewArchiver(store, logger, nil)}})
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Store creates a store writing to bucket under prefix.
func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client creates an S3 client for region with credentials from the
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN environment
// variables. AWS_ENDPOINT_URL, when set, selects an S3-compatible endpoint
// with path-style addressing.
func NewS3Client(region string) *s3.Client {
	opts := s3.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL"); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}

func envCredentials(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "vdiff environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("archive: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}

func (s *S3Store) key(sessionID string, seq uint64) string {
	return path.Join(s.prefix, Key(sessionID, seq))
}

func (s *S3Store) sessionPrefix(sessionID string) string {
	return path.Join(s.prefix, sessionID) + "/"
}

// Put uploads b, replacing any object stored for the same session and seq.
func (s *S3Store) Put(ctx context.Context, b *session.Batch) error {
	key := s.key(b.Session, b.Seq)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b.Data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			metaDigest:    strconv.FormatUint(b.Digest, 16),
			metaPatches:   strconv.Itoa(b.Patches),
			metaSnapshot:  strconv.FormatBool(b.Snapshot),
			metaCreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	return nil
}

// Get downloads the batch for session and seq and checks its digest.
func (s *S3Store) Get(ctx context.Context, sessionID string, seq uint64) (*session.Batch, error) {
	key := s.key(sessionID, seq)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: s3 read %s: %w", key, err)
	}

	digest, err := strconv.ParseUint(out.Metadata[metaDigest], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no valid %s metadata", ErrCorrupt, key, metaDigest)
	}
	b := &session.Batch{
		Session: sessionID,
		Seq:     seq,
		Data:    data,
		Digest:  digest,
	}
	b.Patches, _ = strconv.Atoi(out.Metadata[metaPatches])
	b.Snapshot, _ = strconv.ParseBool(out.Metadata[metaSnapshot])
	b.CreatedAt, _ = time.Parse(time.RFC3339Nano, out.Metadata[metaCreatedAt])
	if err := verify(b); err != nil {
		return nil, err
	}
	return b, nil
}

// List pages through the session's objects.
func (s *S3Store) List(ctx context.Context, sessionID string) ([]uint64, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.sessionPrefix(sessionID)),
	})

	var seqs []uint64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("archive: s3 list: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			if seq, ok := parseKey(*obj.Key); ok {
				seqs = append(seqs, seq)
			}
		}
	}
	return seqs, nil
}

// Close is a no-op; the client owns no resources that need releasing.
func (s *S3Store) Close() error {
	return nil
}

var _ Store = (*S3Store)(nil)
