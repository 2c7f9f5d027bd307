package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	appconfig "github.com/IAmSomeoneLikeYou/s3-restore/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Region used when neither the config nor the AWS environment names one.
const defaultRegion = "us-west-2"

type s3API interface {
	ListObjectVersions(ctx context.Context, params *s3.ListObjectVersionsInput, optFns ...func(*s3.Options)) (*s3.ListObjectVersionsOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Client struct {
	api            s3API
	requestTimeout time.Duration
}

func NewS3Client(ctx context.Context, cfg appconfig.S3Config) (*S3Client, error) {
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return nil, errors.New("s3 access_key_id and secret_access_key must be set together")
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{
		api:            api,
		requestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}, nil
}

func loadAWSConfig(ctx context.Context, cfg appconfig.S3Config) (aws.Config, error) {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = appconfig.DefaultMaxAttempts
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRetryer(func() aws.Retryer {
			return retry.AddWithMaxAttempts(retry.NewStandard(), maxAttempts)
		}),
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	if awsCfg.Region == "" {
		awsCfg.Region = defaultRegion
	}
	return awsCfg, nil
}

func normalizeEndpoint(raw string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("s3 endpoint must be a valid http(s) URL: %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("s3 endpoint must use http or https: %q", raw)
	}
	return strings.TrimRight(endpoint, "/"), nil
}

func (c *S3Client) ListObjectVersions(ctx context.Context, req ListRequest) (ListingPage, error) {
	if c.api == nil {
		return ListingPage{}, errors.New("s3 api client is not configured")
	}
	if req.Bucket == "" {
		return ListingPage{}, fmt.Errorf("list object versions: bucket: %w", ErrMissingField)
	}

	input := &s3.ListObjectVersionsInput{Bucket: aws.String(req.Bucket)}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}
	if req.KeyMarker != "" {
		input.KeyMarker = aws.String(req.KeyMarker)
	}
	if req.VersionIDMarker != "" {
		input.VersionIdMarker = aws.String(req.VersionIDMarker)
	}
	if req.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(req.MaxKeys)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	out, err := c.api.ListObjectVersions(callCtx, input)
	if err != nil {
		return ListingPage{}, fmt.Errorf("list object versions: %w", err)
	}
	return pageFromOutput(out), nil
}

func pageFromOutput(out *s3.ListObjectVersionsOutput) ListingPage {
	if out == nil {
		return ListingPage{}
	}

	entries := make([]VersionEntry, 0, len(out.Versions)+len(out.DeleteMarkers))
	for _, v := range out.Versions {
		entries = append(entries, VersionEntry{
			Key:       aws.ToString(v.Key),
			VersionID: aws.ToString(v.VersionId),
			IsLatest:  aws.ToBool(v.IsLatest),
		})
	}
	for _, m := range out.DeleteMarkers {
		entries = append(entries, VersionEntry{
			Key:            aws.ToString(m.Key),
			VersionID:      aws.ToString(m.VersionId),
			IsLatest:       aws.ToBool(m.IsLatest),
			IsDeleteMarker: true,
		})
	}
	// The SDK splits versions and markers into two lists; restore key order.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	page := ListingPage{
		Entries:     entries,
		IsTruncated: aws.ToBool(out.IsTruncated),
	}
	if page.IsTruncated {
		page.NextKeyMarker = aws.ToString(out.NextKeyMarker)
		page.NextVersionIDMarker = aws.ToString(out.NextVersionIdMarker)
	}
	return page
}

func (c *S3Client) DeleteObjectVersion(ctx context.Context, bucket, key, versionID string) error {
	if c.api == nil {
		return errors.New("s3 api client is not configured")
	}
	if bucket == "" || key == "" || versionID == "" {
		return fmt.Errorf("delete object version: %w", ErrMissingField)
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	_, err := c.api.DeleteObject(callCtx, &s3.DeleteObjectInput{
		Bucket:    aws.String(bucket),
		Key:       aws.String(key),
		VersionId: aws.String(versionID),
	})
	if err != nil {
		if isVersionNotFound(err) {
			return fmt.Errorf("delete object %s@%s: %w", key, versionID, ErrVersionNotFound)
		}
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (c *S3Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.requestTimeout > 0 {
		return context.WithTimeout(ctx, c.requestTimeout)
	}
	return context.WithCancel(ctx)
}

func isVersionNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NoSuchVersion", "NoSuchKey":
		return true
	default:
		return false
	}
}
