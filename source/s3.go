package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const s3Scheme = "s3://"

// S3Config holds the credentials and endpoint for an S3 source.
type S3Config struct {
	Region    string
	AccessKey string
	SecretKey string

	// Endpoint overrides the service endpoint for S3-compatible stores.
	// Path-style addressing is used when it is set.
	Endpoint string
}

// S3API is the subset of the S3 client used by S3.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3 reads documents addressed as s3://bucket/key.
type S3 struct {
	client S3API
}

var _ Source = (*S3)(nil)

// NewS3 builds a client from cfg. Empty keys fall back to the default AWS
// credential chain.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Region == "" {
		return nil, errors.New("AWS_REGION not set")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3WithClient(client), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client S3API) *S3 {
	return &S3{client: client}
}

// ParseURI splits s3://bucket/key into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsS3(uri) {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	bucket, key, _ = strings.Cut(strings.TrimPrefix(uri, s3Scheme), "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: %q has no bucket", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}

// List pages through the objects under the root prefix. Without
// opts.Recursive only keys directly under the prefix are returned.
func (s *S3) List(ctx context.Context, root string, opts ListOptions) ([]string, error) {
	bucket, prefix, err := ParseURI(root)
	if err != nil {
		return nil, err
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}
	if !opts.Recursive {
		input.Delimiter = aws.String("/")
	}

	var paths []string
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list failed: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") || !opts.Matches(key) {
				continue
			}
			paths = append(paths, s3Scheme+bucket+"/"+key)
		}
	}

	slices.Sort(paths)
	return paths, nil
}

// Read downloads the object body.
func (s *S3) Read(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
