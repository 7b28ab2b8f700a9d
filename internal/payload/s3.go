package payload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/groblegark/audittrail/internal/model"
)

// S3Reader reads payload documents from a JSONL log object in an
// S3-compatible bucket using ranged GETs.
type S3Reader struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Reader creates an S3 payload reader. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Reader(ctx context.Context, bucket, key, region, endpoint string) (*S3Reader, error) {
	client, err := newS3Client(ctx, region, endpoint)
	if err != nil {
		return nil, err
	}
	return &S3Reader{
		client: client,
		bucket: bucket,
		key:    key,
	}, nil
}

func newS3Client(ctx context.Context, region, endpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(cfg, s3opts...), nil
}

// Read fetches the locator's byte range from the log object. The range is
// inclusive on both ends per the HTTP Range header.
func (r *S3Reader) Read(ctx context.Context, loc model.PayloadLocator) (json.RawMessage, error) {
	rng := fmt.Sprintf("bytes=%d-%d", loc.Offset, loc.Offset+loc.Length-1)
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(rng),
	})
	if err != nil {
		return nil, &ReadError{Locator: loc, Err: err}
	}
	defer out.Body.Close()

	buf, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &ReadError{Locator: loc, Err: err}
	}
	if int64(len(buf)) != loc.Length {
		return nil, &ReadError{Locator: loc, Err: fmt.Errorf("ranged get returned %d bytes, want %d", len(buf), loc.Length)}
	}
	return decodeDocument(loc, buf)
}

func (r *S3Reader) Close() error {
	return nil
}

// UploadS3 copies the payload log at path into the bucket as a single object,
// making the dataset readable through the S3 backend after a local seed.
func UploadS3(ctx context.Context, path, bucket, key, region, endpoint string) error {
	client, err := newS3Client(ctx, region, endpoint)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open payload log %s: %w", path, err)
	}
	defer f.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("upload payload log to s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
