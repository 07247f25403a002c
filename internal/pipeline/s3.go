package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the slice of the S3 client the pipeline needs; tests substitute
// a fake.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Bucket discovers raw property JSON documents dropped in an S3 bucket and
// exposes each object as a pipeline Source.
type S3Bucket struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Bucket builds an S3Bucket using the default AWS credential chain,
// optionally pinned to a shared-config profile.
func NewS3Bucket(ctx context.Context, bucket, prefix, region, profile string) (*S3Bucket, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &S3Bucket{client: s3.NewFromConfig(awsCfg), bucket: bucket, prefix: prefix}, nil
}

// Sources lists every .json object under the configured prefix.
func (b *S3Bucket) Sources(ctx context.Context) ([]Source, error) {
	var sources []Source
	var token *string

	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(b.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list s3 objects %s: %w", b.bucket, err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(strings.ToLower(key), ".json") {
				continue
			}
			sources = append(sources, &s3Source{bucket: b, key: key})
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		token = out.NextContinuationToken
	}

	return sources, nil
}

type s3Source struct {
	bucket *S3Bucket
	key    string
}

func (s *s3Source) Name() string { return "s3://" + s.bucket.bucket + "/" + s.key }

func (s *s3Source) Records(ctx context.Context) ([]map[string]interface{}, error) {
	out, err := s.bucket.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", s.key, err)
	}
	defer out.Body.Close()
	return decodeRecords(out.Body, s.Name())
}
