package s3

import (
	"context"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 talks to any s3 compatible endpoint with static credentials.
type S3 struct {
	Endpoint string
	Region   string
	Bucket   string
	ak       string
	sk       string

	once   sync.Once
	client *s3.Client
	err    error
}

func NewS3Client(endpoint, region, bucket, ak, sk string) *S3 {
	return &S3{
		Endpoint: endpoint,
		Region:   region,
		Bucket:   bucket,
		ak:       ak,
		sk:       sk,
	}
}

func (s *S3) loadConfig(ctx context.Context) (aws.Config, error) {
	return config.LoadDefaultConfig(
		ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.ak, s.sk, "")),
		config.WithRegion(s.Region),
		config.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           s.Endpoint,
				SigningRegion: s.Region,
			}, nil
		})))
}

func (s *S3) Client(ctx context.Context) (*s3.Client, error) {
	s.once.Do(func() {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			s.err = err
			return
		}
		s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	})
	return s.client, s.err
}

// ObjectKey joins a directory and file name into a bucket key without a leading slash.
func ObjectKey(filePath, file string) string {
	return strings.TrimPrefix(path.Join(filePath, file), "/")
}

func (s *S3) GenGetObjectPreSignURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	client, err := s.Client(ctx)
	if err != nil {
		return "", err
	}
	req, err := s3.NewPresignClient(client).PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

func (s *S3) Upload(ctx context.Context, filePath, file, contentType string, body io.Reader) error {
	client, err := s.Client(ctx)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(ObjectKey(filePath, file)),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err = manager.NewUploader(client).Upload(ctx, input)
	return err
}

func (s *S3) Delete(ctx context.Context, key string) error {
	client, err := s.Client(ctx)
	if err != nil {
		return err
	}
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(strings.TrimPrefix(key, "/")),
	})
	return err
}
