// Package s3compat stores chat objects in any S3-compatible bucket (AWS S3, Backblaze B2,
// MinIO, R2).
package s3compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/thebluefowl/parley/internal/storage"
)

var _ storage.Storage = (*Client)(nil)

// Client wraps an S3 client bound to one bucket and an optional key prefix.
type Client struct {
	client      *s3.Client
	bucket      string
	prefix      string
	partSizeMB  int64
	concurrency int
}

type Opts struct {
	Bucket    string
	Region    string
	Endpoint  string // empty for AWS
	AccessKey string // empty to use the default credential chain
	SecretKey string
	PathStyle bool
	Prefix    string // prepended to every key, e.g. "parley/"

	PartSizeMB  int64 // default 16
	Concurrency int   // default 4
}

// New builds a client. Credentials fall back to the AWS default chain when AccessKey is empty.
func New(ctx context.Context, opts Opts) (*Client, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3compat: bucket required")
	}
	if opts.PartSizeMB <= 0 {
		opts.PartSizeMB = 16
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(opts.Endpoint))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.UsePathStyle = opts.PathStyle })

	return &Client{
		client:      client,
		bucket:      opts.Bucket,
		prefix:      opts.Prefix,
		partSizeMB:  opts.PartSizeMB,
		concurrency: opts.Concurrency,
	}, nil
}

func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if contentType == "" {
		if ext := filepath.Ext(key); ext != "" {
			contentType = mime.TypeByExtension(ext)
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
	}

	uploader := manager.NewUploader(c.client, func(u *manager.Uploader) {
		u.PartSize = c.partSizeMB * 1024 * 1024
		u.Concurrency = c.concurrency
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.prefix + key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

func (c *Client) Download(ctx context.Context, key string, w io.Writer) error {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.prefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("get object %s: %w", key, storage.ErrNotFound)
		}
		return fmt.Errorf("get object %s/%s: %w", c.bucket, key, err)
	}
	defer result.Body.Close()

	if _, err := io.Copy(w, result.Body); err != nil {
		return fmt.Errorf("copy object data: %w", err)
	}
	return nil
}

// List pages through ListObjectsV2. Returned keys have the client prefix stripped.
func (c *Client) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	}
	if full := c.prefix + prefix; full != "" {
		input.Prefix = aws.String(full)
	}

	paginator := s3.NewListObjectsV2Paginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects in %s: %w", c.bucket, err)
		}

		for _, obj := range page.Contents {
			lastMod := ""
			if obj.LastModified != nil {
				lastMod = obj.LastModified.String()
			}
			objects = append(objects, storage.ObjectInfo{
				Key:          aws.ToString(obj.Key)[len(c.prefix):],
				Size:         aws.ToInt64(obj.Size),
				LastModified: lastMod,
			})
		}
	}

	return objects, nil
}

// Delete checks for the object first; S3 reports success when deleting a missing key.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.prefix + key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("delete %s: %w", key, storage.ErrNotFound)
		}
		return fmt.Errorf("head object %s/%s: %w", c.bucket, key, err)
	}

	_, err = c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.prefix + key),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	// some S3-compatible services only set the code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
