package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
	"vetski/vetski/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	BucketAnimalProfiles    = "animal-profiles"
	BucketChatImages        = "chat-images"
	BucketConsultationAudio = "consultation-audio"

	ShortExpiry = 60 * time.Second
	LongExpiry  = 30 * 24 * time.Hour
)

var (
	ErrUnknownBucket = errors.New("unknown bucket")
	ErrInvalidPath   = errors.New("invalid object path")
)

// Buckets lists every bucket the service may sign for.
var Buckets = []string{BucketAnimalProfiles, BucketChatImages, BucketConsultationAudio}

// ObjectStore is the subset of storage the controllers depend on.
type ObjectStore interface {
	PresignedUpload(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	PresignedDownload(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
	Get(ctx context.Context, bucket, key string) ([]byte, string, error)
}

type MinIOClient struct {
	client *minio.Client
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	client, err := minio.New(
		cfg.StorageEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
			Secure: cfg.StorageSecure,
			Region: cfg.StorageRegion,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	for _, bucket := range Buckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: cfg.StorageRegion}); err != nil {
				return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
	}
	return &MinIOClient{client: client}, nil
}

// Ping checks that the storage endpoint answers.
func (m *MinIOClient) Ping(ctx context.Context) error {
	_, err := m.client.BucketExists(ctx, BucketChatImages)
	return err
}

func (m *MinIOClient) PresignedUpload(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if err := ValidateObject(bucket, key); err != nil {
		return "", err
	}
	u, err := m.client.PresignedPutObject(ctx, bucket, key, expiry)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *MinIOClient) PresignedDownload(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if err := ValidateObject(bucket, key); err != nil {
		return "", err
	}
	u, err := m.client.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (m *MinIOClient) Put(ctx context.Context, bucket, key, contentType string, data []byte) error {
	if err := ValidateObject(bucket, key); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	return err
}

// Get returns the object bytes and its content type.
func (m *MinIOClient) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	if err := ValidateObject(bucket, key); err != nil {
		return nil, "", err
	}
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		return nil, "", err
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", err
	}
	return data, info.ContentType, nil
}

// ValidateObject rejects unknown buckets and keys that escape their prefix.
func ValidateObject(bucket, key string) error {
	known := false
	for _, b := range Buckets {
		if b == bucket {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.HasPrefix(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return nil
}

// UserKey namespaces key under the owner's id, e.g. "<user>/avatars/rex.png".
func UserKey(userID, key string) string {
	key = strings.TrimLeft(key, "/")
	if strings.HasPrefix(key, userID+"/") {
		return key
	}
	return userID + "/" + key
}
