package recordings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/alfredjeanlab/somno/internal/model"
)

// S3Config locates recordings in an S3-compatible bucket.
type S3Config struct {
	Bucket   string
	Prefix   string
	Pattern  string
	Region   string
	Endpoint string // path-style addressing is used when set (MinIO and similar)
}

// S3Source serves recordings stored as objects under a key prefix.
type S3Source struct {
	client  *s3.Client
	bucket  string
	prefix  string
	pattern string
}

// NewS3Source creates an S3 source using the default AWS credential chain.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return newS3Source(s3.NewFromConfig(awsCfg, s3opts...), cfg)
}

func newS3Source(client *s3.Client, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	p, err := patternOrDefault(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	return &S3Source{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, pattern: p}, nil
}

func (s *S3Source) Name() string { return "s3" }

// List returns the matching objects directly under the prefix, sorted by name.
func (s *S3Source) List(ctx context.Context) ([]model.Recording, error) {
	var recs []model.Recording
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name == "" || strings.Contains(name, "/") || !matchPattern(s.pattern, name) {
				continue
			}
			recs = append(recs, model.Recording{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified).UTC(),
				Source:  s.Name(),
			})
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Name < recs[j].Name })
	return recs, nil
}

// Open streams an object. The caller must close the body.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if !matchPattern(s.pattern, name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	return out.Body, nil
}
