package s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

var (
	LedgerBucket *oss.Bucket

	GetObjectFunc     func(context.Context, string, ...oss.Option) (io.ReadCloser, error)
	PutObjectFunc     func(context.Context, string, io.Reader, ...oss.Option) (http.Header, error)
	GetObjectMetaFunc func(context.Context, string, ...oss.Option) (http.Header, error)
)

func Bootstrap() error {
	var err error
	LedgerBucket, err = BuildBucketFromEnv()
	if err != nil {
		return err
	}

	GetObjectFunc = GetObject
	PutObjectFunc = PutObject
	GetObjectMetaFunc = GetObjectMeta
	return nil
}

func BuildBucketFromEnv() (*oss.Bucket, error) {
	endpoint := os.ExpandEnv(os.Getenv("OSS_ENDPOINT"))
	if endpoint == "" {
		endpoint = "dummy"
	}
	accessKey := os.Getenv("OSS_ACCESS_KEY")
	secretKey := os.Getenv("OSS_SECRET_KEY")
	bucket := os.Getenv("OSS_BUCKET")
	if bucket == "" {
		bucket = "teamflow"
	}
	return BuildBucket(endpoint, accessKey, secretKey, bucket)
}

func BuildBucket(endpoint, accesskey, secretKey, bucketName string) (*oss.Bucket, error) {
	// endpoint http://oss-cn-hangzhou.aliyuncs.com
	cli, err := oss.New(endpoint, accesskey, secretKey, oss.HTTPClient(nil))
	if err != nil {
		return nil, err
	}
	return cli.Bucket(bucketName)
}

// IsNoSuchKey reports whether err says the object does not exist.
func IsNoSuchKey(err error) bool {
	var serErr oss.ServiceError
	if errors.As(err, &serErr) {
		return serErr.Code == "NoSuchKey" || serErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsPreconditionFailed reports whether a conditional request was refused.
func IsPreconditionFailed(err error) bool {
	var serErr oss.ServiceError
	if errors.As(err, &serErr) {
		return serErr.StatusCode == http.StatusPreconditionFailed || serErr.Code == "FileAlreadyExists"
	}
	return false
}

func GetObject(ctx context.Context, key string, opts ...oss.Option) (io.ReadCloser, error) {
	span := startSpan(ctx, "get-object", key)
	r, err := LedgerBucket.GetObject(key, opts...)
	finishSpan(span, err)
	return r, err
}

// PutObject returns the response header of the put, which carries the new ETag.
func PutObject(ctx context.Context, key string, r io.Reader, opts ...oss.Option) (http.Header, error) {
	span := startSpan(ctx, "put-object", key)
	var respHeader http.Header
	err := LedgerBucket.PutObject(key, r, append(opts, oss.GetResponseHeader(&respHeader))...)
	finishSpan(span, err)
	return respHeader, err
}

// IsServiceError reports whether OSS answered err, as opposed to a transport failure.
func IsServiceError(err error) bool {
	var serErr oss.ServiceError
	return errors.As(err, &serErr)
}

func GetObjectMeta(ctx context.Context, key string, opts ...oss.Option) (http.Header, error) {
	span := startSpan(ctx, "get-object-meta", key)
	h, err := LedgerBucket.GetObjectDetailedMeta(key, opts...)
	finishSpan(span, err)
	return h, err
}

func startSpan(ctx context.Context, operation, key string) opentracing.Span {
	if ctx == nil {
		return nil
	}
	parentSpan := opentracing.SpanFromContext(ctx)
	if parentSpan == nil {
		return nil
	}
	sp := parentSpan.Tracer().StartSpan(operation, opentracing.ChildOf(parentSpan.Context()))
	sp.SetTag("object-key", key)
	return sp
}

func finishSpan(sp opentracing.Span, err error) {
	if sp == nil {
		return
	}
	ext.Error.Set(sp, err != nil)
	sp.Finish()
}
