// Package s3 implements objstore.Client on Amazon S3 and S3-compatible
// services (MinIO, LocalStack) with aws-sdk-go-v2.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"dualfm/internal/fault"
	"dualfm/internal/logging"
	"dualfm/internal/storage/objstore"
)

// Domain is the error domain of S3 failures.
const Domain = "S3"

// DefaultRegion is used when neither flags, config nor the environment name one.
const DefaultRegion = "eu-central-1"

// Config selects the bucket and how to reach it.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string // custom endpoint, implies path-style addressing
	Profile   string // shared config profile
	PathStyle bool
	// Static keys, used instead of the default chain when both are set.
	AccessKey string
	SecretKey string
}

// API is the subset of *s3.Client the store uses.
type API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client is an objstore.Client bound to one bucket.
type Client struct {
	api    API
	bucket string
}

var _ objstore.Client = (*Client)(nil)

// New builds a client from the default credential chain, optionally pinned
// to a shared profile or to static keys.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}
	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fault.Wrap(Domain, fault.Service, "Credentials Error", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" || cfg.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = true
		})
	}
	logging.L().Debug().
		Str("bucket", cfg.Bucket).
		Str("region", region).
		Str("endpoint", cfg.Endpoint).
		Msg("s3 client configured")
	return NewWithAPI(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket), nil
}

// NewWithAPI wraps an existing API implementation.
func NewWithAPI(api API, bucket string) *Client {
	return &Client{api: api, bucket: bucket}
}

// List pages through every key under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]objstore.Object, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}
	var out []objstore.Object
	p := s3.NewListObjectsV2Paginator(c.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, obj := range page.Contents {
			o := objstore.Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			out = append(out, o)
		}
	}
	return out, nil
}

// Get opens the object body. Its size comes from Content-Length.
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, 0, classify(err)
	}
	size := int64(-1)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, size, nil
}

// Put uploads size bytes from r. The body is streamed, so the payload is
// sent unsigned instead of being hashed up front.
func (c *Client) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
	}, s3.WithAPIOptions(v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware))
	if err != nil {
		return classify(err)
	}
	return nil
}

// Delete removes key.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classify(err)
	}
	return nil
}

// Container is the bucket name.
func (c *Client) Container() string { return c.bucket }

// Provider is "S3".
func (c *Client) Provider() string { return "S3" }

// Domain is "S3".
func (c *Client) Domain() string { return Domain }

// classify maps SDK errors to fault records. Service responses keep the S3
// error code and message; transport level failures get a generic code.
func classify(err error) error {
	if _, ok := fault.As(err); ok {
		return err
	}
	if strings.Contains(err.Error(), "failed to retrieve credentials") {
		return fault.Wrap(Domain, fault.PermissionDenied, "Credentials Error", unwrapOperation(err))
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		kind := fault.Service
		switch ae.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			kind = fault.NotFound
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			kind = fault.PermissionDenied
		case "InvalidArgument", "InvalidRequest", "KeyTooLongError":
			kind = fault.InvalidData
		case "IncompleteBody", "RequestTimeout":
			kind = fault.IncompleteTransfer
		}
		msg := ae.ErrorMessage()
		if msg == "" {
			msg = ae.ErrorCode()
		}
		return &fault.Error{Domain: Domain, Code: ae.ErrorCode(), Message: msg, Kind: kind, Err: err}
	}

	var de *smithy.DeserializationError
	if errors.As(err, &de) {
		return fault.Wrap(Domain, fault.InvalidData, "ParsingError", unwrapOperation(err))
	}
	var oe *smithy.OperationError
	if errors.As(err, &oe) {
		return fault.Wrap(Domain, fault.Service, "Request Error", oe.Err)
	}
	return fault.Wrap(Domain, fault.Unexpected, "Unknown Error", err)
}

func unwrapOperation(err error) error {
	var oe *smithy.OperationError
	if errors.As(err, &oe) && oe.Err != nil {
		return oe.Err
	}
	return err
}
