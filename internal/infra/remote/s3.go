package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/vietddude/cloudvault/internal/core/domain"
)

// S3Config holds connection settings for an S3-compatible object store.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
	PageSize        int32  `yaml:"page_size"`
}

const defaultPageSize = 100

// S3Service implements Service over an S3-compatible object store.
//
// Mapping: a record of type T named N is the object at key "records/T/N";
// the payload field is the object body and all other fields are carried as
// base64-encoded user metadata. A metadata-only fetch is a HeadObject, a
// query-by-type is a prefixed ListObjectsV2 whose continuation token is the
// opaque pagination cursor, and the account probe is a HeadBucket.
type S3Service struct {
	client   *s3.Client
	bucket   string
	pageSize int32
}

// NewS3Service connects to the object store described by cfg. The SDK's own
// retryer is disabled: retry policy belongs to the vault client, and a second
// retry layer underneath it would stretch delays unpredictably.
func NewS3Service(ctx context.Context, cfg S3Config) (*S3Service, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &S3Service{client: client, bucket: cfg.Bucket, pageSize: pageSize}, nil
}

func objectKey(recordType domain.RecordType, name string) string {
	return fmt.Sprintf("records/%s/%s", recordType, name)
}

func typePrefix(recordType domain.RecordType) string {
	return fmt.Sprintf("records/%s/", recordType)
}

func (s *S3Service) SaveRecord(ctx context.Context, rec *domain.Record) error {
	meta := make(map[string]string)
	for k, v := range rec.Fields {
		if k == domain.PayloadFieldKey {
			continue
		}
		meta[k] = base64.StdEncoding.EncodeToString(v)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(objectKey(rec.Type, rec.Name)),
		Body:     bytes.NewReader(rec.Payload()),
		Metadata: meta,
	})
	return mapError(err)
}

func (s *S3Service) DeleteRecord(ctx context.Context, name string) error {
	// S3 deletes are idempotent: a missing key still reports success, so
	// CodeUnknownItem never surfaces from this implementation.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(domain.RecordTypeBackup, name)),
	})
	return mapError(err)
}

func (s *S3Service) FetchRecord(ctx context.Context, name string, scope FieldScope) (*domain.Record, error) {
	rec := domain.NewRecord(name, domain.RecordTypeBackup)
	key := objectKey(domain.RecordTypeBackup, name)

	if scope == ScopeMetadata {
		out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, mapError(err)
		}
		decodeMetadata(rec, out.Metadata)
		return rec, nil
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, mapError(err)
	}
	decodeMetadata(rec, out.Metadata)
	rec.SetPayload(payload)
	return rec, nil
}

func (s *S3Service) QueryRecordNames(ctx context.Context, recordType domain.RecordType, cursor *Cursor) (*QueryResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(typePrefix(recordType)),
		MaxKeys: aws.Int32(s.pageSize),
	}
	if cursor != nil {
		input.ContinuationToken = aws.String(cursor.Token)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}

	result := &QueryResult{}
	prefix := typePrefix(recordType)
	for _, obj := range out.Contents {
		result.Names = append(result.Names, strings.TrimPrefix(aws.ToString(obj.Key), prefix))
	}
	if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
		result.Next = &Cursor{Token: aws.ToString(out.NextContinuationToken)}
	}
	return result, nil
}

func (s *S3Service) AccountStatus(ctx context.Context) (domain.AccountStatus, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return domain.AccountStatusAvailable, nil
	}

	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case 403:
			return domain.AccountStatusRestricted, err
		case 404:
			return domain.AccountStatusNoAccount, err
		}
	}
	return domain.AccountStatusUndetermined, err
}

func decodeMetadata(rec *domain.Record, meta map[string]string) {
	for k, v := range meta {
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			// Foreign metadata written outside this client; keep it verbatim.
			decoded = []byte(v)
		}
		rec.Fields[strings.ToLower(k)] = decoded
	}
}

// mapError converts SDK and transport failures into *domain.ServiceError so
// the retry policy can classify them. Context cancellation passes through
// untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		code := errorCodeFor(ae.ErrorCode())
		se := &domain.ServiceError{Code: code, Err: err}
		if code == domain.CodeRateLimited {
			se.RetryAfter = retryAfterHint(err)
		}
		return se
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return domain.NewServiceError(domain.CodeNetworkFailure, err)
	}

	return domain.NewServiceError(domain.CodeUnknown, err)
}

func errorCodeFor(apiCode string) domain.ErrorCode {
	switch apiCode {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return domain.CodeUnknownItem
	case "SlowDown", "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequests":
		return domain.CodeRateLimited
	case "ServiceUnavailable", "InternalError":
		return domain.CodeServiceUnavailable
	case "OperationAborted":
		return domain.CodeResourceContention
	case "RequestTimeout":
		return domain.CodeLostResponse
	default:
		return domain.CodeUnknown
	}
}

// retryAfterHint extracts the service-suggested delay from a throttled
// response, if the service sent one.
func retryAfterHint(err error) time.Duration {
	var re *awshttp.ResponseError
	if !errors.As(err, &re) || re.Response == nil {
		return 0
	}
	header := re.Response.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, perr := strconv.ParseFloat(header, 64)
	if perr != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}
