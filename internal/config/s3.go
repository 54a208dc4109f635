package config

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vango-dev/routefilter/internal/errors"
)

// maxRemoteSize bounds configuration objects read from S3.
const maxRemoteSize = 1 << 20

// ObjectGetter is the part of the S3 client used to read configuration.
// *s3.Client satisfies it.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// IsS3Location reports whether location is an s3:// URL.
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, "s3://")
}

// ParseS3Location splits s3://bucket/key into bucket and key.
func ParseS3Location(location string) (bucket, key string, err error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme != "s3" {
		return "", "", errors.New("R108").WithDetail(location)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.New("R108").WithDetailf("%s: bucket and key are required", location)
	}
	return u.Host, key, nil
}

// NewS3Client creates an S3 client from the environment. AWS_REGION (or
// AWS_DEFAULT_REGION) selects the region; AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN supply credentials. Without
// credentials requests are anonymous, which works for public objects.
// AWS_ENDPOINT_URL_S3 overrides the endpoint.
func NewS3Client() (*s3.Client, error) {
	region := firstEnv("AWS_REGION", "AWS_DEFAULT_REGION")
	if region == "" {
		return nil, errors.New("R109").WithDetail("AWS_REGION is not set")
	}

	opts := s3.Options{
		Region:      region,
		Credentials: envCredentials(),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_URL_S3"); endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts), nil
}

func envCredentials() aws.CredentialsProvider {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	token := os.Getenv("AWS_SESSION_TOKEN")
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return aws.Credentials{
			AccessKeyID:     id,
			SecretAccessKey: secret,
			SessionToken:    token,
			Source:          "environment",
		}, nil
	}))
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// LoadS3 reads configuration from an s3://bucket/key object.
func LoadS3(ctx context.Context, client ObjectGetter, location string) (*Config, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New("R109").WithDetailf("%s: %v", location, err).Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxRemoteSize+1))
	if err != nil {
		return nil, errors.New("R109").WithDetailf("%s: %v", location, err).Wrap(err)
	}
	if len(data) > maxRemoteSize {
		return nil, errors.New("R109").WithDetail(fmt.Sprintf("%s: larger than %d bytes", location, maxRemoteSize))
	}
	return Parse(location, data)
}
