package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config configures the S3-compatible backend. Fields are grounded on
// original_source's configuration/src/storage.rs S3 variant, carried into
// SPEC_FULL.md §9.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	EnforcePathStyle bool
}

// S3Backend implements Backend against an S3-compatible object store.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend builds an S3Backend from cfg.
func NewS3Backend(cfg S3Config) *S3Backend {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		Credentials:  creds,
		UsePathStyle: cfg.EnforcePathStyle,
		BaseEndpoint: aws.String(cfg.Endpoint),
	})

	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}
}

func (b *S3Backend) key(p string) string {
	if b.prefix == "" {
		return strings.TrimPrefix(p, "/")
	}
	return strings.TrimSuffix(b.prefix, "/") + "/" + strings.TrimPrefix(p, "/")
}

func (b *S3Backend) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if isNoSuchKey(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (b *S3Backend) Blob(ctx context.Context, p string) (*BlobMeta, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	if isNoSuchKey(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	meta := &BlobMeta{Name: lastSegment(p)}
	if out.ContentLength != nil {
		meta.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		meta.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		meta.LastModified = *out.LastModified
	}
	return meta, nil
}

func (b *S3Backend) Blobs(ctx context.Context, prefix string, opts ListOptions) ([]Blob, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.key(prefix)),
	}
	if !opts.Recursive {
		input.Delimiter = aws.String("/")
	}

	var blobs []Blob
	paginator := s3.NewListObjectsV2Paginator(b.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, cp := range page.CommonPrefixes {
			if cp.Prefix != nil {
				blobs = append(blobs, Blob{Kind: EntryDirectory, Name: lastSegment(*cp.Prefix)})
			}
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			blob := Blob{Kind: EntryFile, Name: lastSegment(*obj.Key)}
			if obj.Size != nil {
				blob.Size = *obj.Size
			}
			if obj.LastModified != nil {
				blob.LastModified = *obj.LastModified
			}
			blobs = append(blobs, blob)
		}
	}

	return blobs, nil
}

func (b *S3Backend) Exists(ctx context.Context, p string) (bool, error) {
	meta, err := b.Blob(ctx, p)
	return meta != nil, err
}

func (b *S3Backend) Upload(ctx context.Context, p string, req UploadRequest) error {
	data, err := io.ReadAll(req.Data)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
		Body:   bytes.NewReader(data),
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}
	if len(req.Metadata) > 0 {
		input.Metadata = req.Metadata
	}

	_, err = b.client.PutObject(ctx, input)
	return err
}

func (b *S3Backend) Delete(ctx context.Context, p string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(p)),
	})
	return err
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

func lastSegment(p string) string {
	p = strings.TrimSuffix(p, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
