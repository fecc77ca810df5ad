// Package source opens CSV input from a local path, stdin, or an S3 object.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/platinummonkey/harbor-usertools/pkg/source")

// Stdin is the location that reads from standard input
const Stdin = "-"

// S3Options configures the S3 client used for s3:// locations
type S3Options struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// ObjectGetter is the subset of the S3 API needed to read an object
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Opener opens input locations
type Opener struct {
	S3 S3Options

	// NewS3Client builds the client for s3:// locations. nil uses NewS3Client.
	NewS3Client func(ctx context.Context, opts S3Options) (ObjectGetter, error)

	// Stdin is read for the "-" location. nil uses os.Stdin.
	Stdin io.Reader
}

// Open opens location with a default Opener
func Open(ctx context.Context, location string, opts S3Options) (io.ReadCloser, error) {
	return (&Opener{S3: opts}).Open(ctx, location)
}

// Open returns a reader for location: "-" for stdin, s3://bucket/key for an
// S3 object, anything else is a local file path. The caller closes it.
func (o *Opener) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case location == "":
		return nil, fmt.Errorf("no input location given")
	case location == Stdin:
		if o.Stdin != nil {
			return io.NopCloser(o.Stdin), nil
		}
		return io.NopCloser(os.Stdin), nil
	case strings.HasPrefix(location, "s3://"):
		return o.openS3(ctx, location)
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", location, err)
		}
		return f, nil
	}
}

func (o *Opener) openS3(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URL(location)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "S3.GetObject",
		trace.WithAttributes(
			attribute.String("s3.operation", "GetObject"),
			attribute.String("s3.bucket", bucket),
			attribute.String("s3.key", key),
		),
	)
	defer span.End()

	newClient := o.NewS3Client
	if newClient == nil {
		newClient = NewS3Client
	}
	client, err := newClient(ctx, o.S3)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create S3 client")
		return nil, err
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get object")
		return nil, fmt.Errorf("failed to get %s: %w", location, err)
	}

	span.SetStatus(codes.Ok, "object retrieved")
	return result.Body, nil
}

// ParseS3URL splits s3://bucket/key into its bucket and key
func ParseS3URL(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 location %q: missing s3:// prefix", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 location %q: expected s3://bucket/key", location)
	}
	return bucket, key, nil
}

// NewS3Client creates an S3 client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (ObjectGetter, error) {
	var awsConfig aws.Config
	var err error

	if opts.AccessKey != "" && opts.SecretKey != "" {
		// Use static credentials (for MinIO or AWS with explicit keys)
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(opts.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				opts.AccessKey,
				opts.SecretKey,
				"",
			)),
		)
	} else {
		// Use default credential chain (IAM roles, env vars, etc.)
		awsConfig, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(opts.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	}), nil
}
