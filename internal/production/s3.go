package production

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/comalice/storex/internal/core"
)

// S3API is the subset of the S3 client used by S3Persister.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds explicit construction parameters. Credentials fall back to
// the default AWS chain when the static keys are empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional; S3-compatible endpoint such as MinIO
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// S3Persister stores one JSON object per store ID under prefix.
type S3Persister struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Persister wraps an existing client.
func NewS3Persister(client S3API, bucket, prefix string) *S3Persister {
	return &S3Persister{client: client, bucket: bucket, prefix: prefix}
}

// NewS3PersisterFromConfig builds an S3 client from cfg.
func NewS3PersisterFromConfig(ctx context.Context, cfg S3Config) (*S3Persister, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3Persister(client, cfg.Bucket, cfg.Prefix), nil
}

func (p *S3Persister) key(storeID string) string {
	return path.Join(p.prefix, storeID+".json")
}

func (p *S3Persister) Save(ctx context.Context, snapshot core.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.key(snapshot.StoreID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"storex-version": snapshot.Version},
	})
	if err != nil {
		return fmt.Errorf("put snapshot %q: %w", snapshot.StoreID, err)
	}
	return nil
}

func (p *S3Persister) Load(ctx context.Context, storeID string) (core.Snapshot, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key(storeID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return core.Snapshot{}, fmt.Errorf("store %q: %w", storeID, core.ErrSnapshotNotFound)
		}
		return core.Snapshot{}, fmt.Errorf("get snapshot %q: %w", storeID, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("read snapshot %q: %w", storeID, err)
	}
	var snapshot core.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return core.Snapshot{}, fmt.Errorf("unmarshal snapshot %q: %w", storeID, err)
	}
	snapshot.StoreID = storeID
	return snapshot, nil
}
