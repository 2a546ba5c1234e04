package dataset

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultS3Region is used when neither options nor the AWS environment
// name a region.
const DefaultS3Region = "us-east-1"

// S3Options configures access to an S3-compatible store such as MinIO.
// Credentials fall back to the default AWS chain when AccessKeyID is empty.
type S3Options struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`

	// HTTPClient overrides the transport, mostly for tests.
	HTTPClient s3.HTTPClient `yaml:"-"`
}

// S3Source fetches a dataset object from a bucket.
type S3Source struct {
	bucket string
	key    string
	opts   S3Options
}

// NewS3Source creates a source for s3://bucket/key.
func NewS3Source(bucket, key string, opts S3Options) *S3Source {
	return &S3Source{bucket: bucket, key: key, opts: opts}
}

func (s *S3Source) String() string { return "s3://" + s.bucket + "/" + s.key }

func (s *S3Source) client(ctx context.Context) (*s3.Client, error) {
	region := s.opts.Region
	if region == "" {
		region = DefaultS3Region
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if s.opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.opts.AccessKeyID, s.opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = s.opts.PathStyle
		if s.opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.opts.Endpoint)
		}
		if s.opts.HTTPClient != nil {
			o.HTTPClient = s.opts.HTTPClient
		}
	}), nil
}

// Ping issues a HEAD request for the object.
func (s *S3Source) Ping(ctx context.Context) error {
	client, err := s.client(ctx)
	if err != nil {
		return unavailable(s.String(), err)
	}
	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return unavailable(s.String(), err)
	}
	return nil
}

// Load downloads the object and splits it into records. Keys ending in
// .sz or .snappy are decompressed like local files.
func (s *S3Source) Load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	origin := s.String()

	client, err := s.client(ctx)
	if err != nil {
		return nil, unavailable(origin, err)
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, unavailable(origin, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, unavailable(origin, fmt.Errorf("read body: %w", err))
	}

	switch strings.ToLower(path.Ext(s.key)) {
	case ".sz", ".snappy":
		if data, err = decompress(data); err != nil {
			return nil, unavailable(origin, err)
		}
	}

	records, err := DecodeDocument(data)
	if err != nil {
		return nil, unavailable(origin, err)
	}

	return &Snapshot{
		Records:  records,
		Digest:   Digest(data),
		Origin:   origin,
		Bytes:    len(data),
		Duration: time.Since(start),
	}, nil
}
