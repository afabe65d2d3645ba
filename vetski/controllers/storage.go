package controllers

import (
	"context"
	"errors"
	"time"
	"vetski/vetski/sources/storage"
	"vetski/vetski/utils/types"

	"github.com/google/uuid"
)

type StorageController struct {
	store storage.ObjectStore
}

func NewStorageController(store storage.ObjectStore) *StorageController {
	return &StorageController{store: store}
}

func (c *StorageController) objectKey(userID uuid.UUID, req types.SignedURLRequest) (string, error) {
	if req.Path == "" {
		return "", badRequest("path is required")
	}
	key := storage.UserKey(userID.String(), req.Path)
	if err := storage.ValidateObject(req.Bucket, key); err != nil {
		if errors.Is(err, storage.ErrUnknownBucket) || errors.Is(err, storage.ErrInvalidPath) {
			return "", badRequest("%v", err)
		}
		return "", err
	}
	return key, nil
}

// SignedUpload issues a short-lived PUT URL under the caller's prefix.
func (c *StorageController) SignedUpload(ctx context.Context, userID uuid.UUID, req types.SignedURLRequest) (*types.SignedURLResponse, error) {
	key, err := c.objectKey(userID, req)
	if err != nil {
		return nil, err
	}
	url, err := c.store.PresignedUpload(ctx, req.Bucket, key, storage.ShortExpiry)
	if err != nil {
		return nil, err
	}
	return &types.SignedURLResponse{URL: url, Path: key, ExpiresIn: int(storage.ShortExpiry / time.Second)}, nil
}

// SignedDownload issues a GET URL, valid for 30 days when req.Long is set.
func (c *StorageController) SignedDownload(ctx context.Context, userID uuid.UUID, req types.SignedURLRequest) (*types.SignedURLResponse, error) {
	key, err := c.objectKey(userID, req)
	if err != nil {
		return nil, err
	}
	expiry := storage.ShortExpiry
	if req.Long {
		expiry = storage.LongExpiry
	}
	url, err := c.store.PresignedDownload(ctx, req.Bucket, key, expiry)
	if err != nil {
		return nil, err
	}
	return &types.SignedURLResponse{URL: url, Path: key, ExpiresIn: int(expiry / time.Second)}, nil
}
