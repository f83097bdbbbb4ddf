package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-contact-intake/internal/config"
	"github.com/tbourn/go-contact-intake/internal/domain"
)

// defaultRegion is the provider region in which CreateBucket must be called
// without a location constraint.
const defaultRegion = "us-east-1"

// keyTimeLayout is the timestamp embedded in object names.
const keyTimeLayout = "20060102T150405Z"

// S3API is the subset of *s3.Client used by ObjectWriter.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ObjectWriter stores each submission as one encrypted JSON object under a
// date-partitioned key. The identifier is the object key.
type ObjectWriter struct {
	client S3API
	bucket string
	region string
	prefix string
	token  func() string
	log    zerolog.Logger
}

// NewObjectWriter binds a writer to the bucket, region, and key prefix in cfg.
func NewObjectWriter(client S3API, cfg config.S3Config) *ObjectWriter {
	return &ObjectWriter{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: cfg.Prefix,
		token:  domain.NewToken,
		log:    log.With().Str("component", "s3").Str("bucket", cfg.Bucket).Logger(),
	}
}

// NewS3Client builds an S3 client from the default AWS credential chain.
// Endpoint and path-style addressing support S3-compatible stores.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// Name implements Backend.
func (*ObjectWriter) Name() string { return config.BackendS3 }

// Prepare implements Preparer.
func (w *ObjectWriter) Prepare(ctx context.Context) error { return w.EnsureBucket(ctx) }

// EnsureBucket checks that the bucket exists and creates it when the check
// reports not-found or forbidden. Any other check failure, and any creation
// failure, is logged and returned wrapping ErrStoragePreparation. Concurrent
// provisioning by another deployment may surface as a creation error.
func (w *ObjectWriter) EnsureBucket(ctx context.Context) error {
	_, err := w.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(w.bucket)})
	if err == nil {
		return nil
	}
	if !isMissingOrForbidden(err) {
		w.log.Error().Err(err).Msg("bucket existence check failed")
		return fmt.Errorf("%w: head bucket %q: %w", ErrStoragePreparation, w.bucket, err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(w.bucket)}
	if w.region != defaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(w.region),
		}
	}
	if _, err := w.client.CreateBucket(ctx, in); err != nil {
		w.log.Error().Err(err).Str("region", w.region).Msg("bucket creation failed")
		return fmt.Errorf("%w: create bucket %q: %w", ErrStoragePreparation, w.bucket, err)
	}
	w.log.Info().Str("region", w.region).Msg("bucket created")
	return nil
}

// Write implements Backend.
func (w *ObjectWriter) Write(ctx context.Context, s *domain.Submission) (string, error) {
	at, err := time.Parse(domain.TimestampLayout, s.SubmittedAt)
	if err != nil {
		at = time.Now().UTC()
	}
	key := ObjectKey(w.prefix, at, w.token())

	rec := *s
	rec.ID = key
	body, err := json.Marshal(&rec)
	if err != nil {
		return "", writeErr(config.BackendS3, err)
	}

	_, err = w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(w.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(body),
		ContentType:          aws.String("application/json"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return "", writeErr(config.BackendS3, err)
	}
	return key, nil
}

// ObjectKey derives prefix/YYYY/MM/DD/<timestamp>_<token>.json from at (UTC).
func ObjectKey(prefix string, at time.Time, token string) string {
	at = at.UTC()
	name := at.Format(keyTimeLayout) + "_" + token + ".json"
	return path.Join(prefix, at.Format("2006"), at.Format("01"), at.Format("02"), name)
}

// isMissingOrForbidden reports whether a HeadBucket failure means the bucket
// should be created: a 404/NotFound or a 403/Forbidden answer.
func isMissingOrForbidden(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case http.StatusNotFound, http.StatusForbidden:
			return true
		}
	}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "NotFound", "NoSuchBucket", "Forbidden", "AccessDenied", "404", "403":
			return true
		}
	}
	return false
}
