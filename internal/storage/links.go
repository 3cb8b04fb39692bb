// Package storage turns stored document locations into customer download
// links. Documents kept in object storage are referenced as
// s3://<bucket>/<key> and receive a presigned GET URL; any other URL is
// already public and is returned unchanged.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const objectScheme = "s3://"

// MaxLinkExpiry is the longest lifetime S3 signature v4 allows.
const MaxLinkExpiry = 7 * 24 * time.Hour

var ErrInvalidObjectURL = errors.New("storage: object url must be s3://<bucket>/<key>")

// MinioLinker presigns object URLs against an S3-compatible endpoint.
type MinioLinker struct {
	client *minio.Client
	expiry time.Duration
	now    func() time.Time
}

// NewMinioLinker builds a linker. Region is set explicitly so presigning never
// has to ask the server for the bucket location.
func NewMinioLinker(endpoint, accessKey, secretKey string, useSSL bool, region string, expiry time.Duration) (*MinioLinker, error) {
	if expiry <= 0 || expiry > MaxLinkExpiry {
		return nil, fmt.Errorf("storage: link expiry %s outside (0, %s]", expiry, MaxLinkExpiry)
	}
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: minio client: %w", err)
	}

	return &MinioLinker{client: client, expiry: expiry, now: time.Now}, nil
}

// ParseObjectURL splits s3://bucket/key. ok is false for any other scheme.
func ParseObjectURL(raw string) (bucket, key string, ok bool, err error) {
	if !strings.HasPrefix(raw, objectScheme) {
		return "", "", false, nil
	}
	bucket, key, found := strings.Cut(strings.TrimPrefix(raw, objectScheme), "/")
	if !found || bucket == "" || key == "" {
		return "", "", true, fmt.Errorf("%w: %q", ErrInvalidObjectURL, raw)
	}
	return bucket, key, true, nil
}

// DownloadURL returns a presigned link for object URLs and its expiry. Other
// URLs come back unchanged with a zero expiry.
func (l *MinioLinker) DownloadURL(ctx context.Context, raw string) (string, time.Time, error) {
	bucket, key, isObject, err := ParseObjectURL(raw)
	if err != nil {
		return "", time.Time{}, err
	}
	if !isObject {
		return raw, time.Time{}, nil
	}

	issued := l.now()
	u, err := l.client.PresignedGetObject(ctx, bucket, key, l.expiry, url.Values{})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("storage: presign %s/%s: %w", bucket, key, err)
	}
	return u.String(), issued.Add(l.expiry), nil
}
