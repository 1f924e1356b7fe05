package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3 is an object-store archive: one object per asset under a key
// prefix, named the same way as the Dir backend.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// ParseS3URI splits "s3://bucket/prefix" into bucket and key prefix.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("invalid S3 URI %q: must start with s3://", uri)
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing bucket", uri)
	}
	return bucket, prefix, nil
}

// NewS3 creates an S3 archive using the default AWS configuration.
func NewS3(ctx context.Context, bucket, prefix string) (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3WithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3WithClient creates an S3 archive from an existing client.
func NewS3WithClient(client *s3.Client, bucket, prefix string) *S3 {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3) key(id int64, ext string) string {
	return s.prefix + fileName(id, ext)
}

// Write uploads the asset unless an object for the ID already exists.
// The upload itself is conditional (If-None-Match), so the archive
// stays append-only even if two runs race on the same ID.
func (s *S3) Write(ctx context.Context, id int64, data []byte, ext string) error {
	if ok, err := s.Has(ctx, id); err != nil {
		return err
	} else if ok {
		return nil
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(id, ext)),
		Body:        bytes.NewReader(data),
		IfNoneMatch: aws.String("*"),
	}
	if ct := mime.TypeByExtension(normalizeExt(ext)); ct != "" {
		in.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			// A concurrent writer got there first; the asset is stored.
			return nil
		}
		return fmt.Errorf("put asset %d: %w", id, err)
	}
	return nil
}

// Has reports whether an object for the ID exists under the prefix.
func (s *S3) Has(ctx context.Context, id int64) (bool, error) {
	// Assets carry whatever extension was sniffed at fetch time, so a
	// prefix listing on "<id>." is the only exact check.
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.prefix + fmt.Sprintf("%d.", id)),
		MaxKeys: aws.Int32(1),
	})
	page, err := p.NextPage(ctx)
	if err != nil {
		return false, fmt.Errorf("check asset %d: %w", id, err)
	}
	return len(page.Contents) > 0, nil
}

// ListIDs parses asset IDs out of the object keys under the prefix.
func (s *S3) ListIDs(ctx context.Context) ([]int64, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var ids []int64
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list archive objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if id, ok := parseID(name); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}
