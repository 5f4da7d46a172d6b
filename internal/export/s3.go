package export

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies written output files to an S3 bucket.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Uploader loads the default AWS configuration for region and returns
// an uploader for bucket. Object keys are prefix/<file name>.
func NewS3Uploader(ctx context.Context, region, bucket, prefix string) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, eris.Wrap(err, "export: load aws config")
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3UploaderWithClient returns an uploader using client.
func NewS3UploaderWithClient(client PutObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a local file.
func (u *S3Uploader) Key(file string) string {
	return path.Join(u.prefix, filepath.Base(file))
}

// Upload puts each file into the bucket. It stops at the first failure.
func (u *S3Uploader) Upload(ctx context.Context, files []string) error {
	for _, file := range files {
		if err := u.put(ctx, file); err != nil {
			return err
		}
	}
	return nil
}

func (u *S3Uploader) put(ctx context.Context, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return eris.Wrapf(err, "export: open %s", file)
	}
	defer f.Close() //nolint:errcheck

	key := u.Key(file)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(file)),
	})
	if err != nil {
		return eris.Wrapf(err, "export: upload s3://%s/%s", u.bucket, key)
	}

	zap.L().Info("output uploaded",
		zap.String("bucket", u.bucket),
		zap.String("key", key),
	)
	return nil
}

func contentType(file string) string {
	switch filepath.Ext(file) {
	case ".json":
		return "application/json"
	case ".geojson":
		return "application/geo+json"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
