package staging

import (
	"context"
	"errors"
	"fmt"

	"lingodoc/utils"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrNotStaged is returned when no bytes exist (or remain) for a file ID.
var ErrNotStaged = errors.New("no staged file for id")

// Store binds raw file bytes to a generated identifier so they survive the
// customer's redirect to the hosted payment page. Entries expire on their own;
// orphan cleanup is not this store's job.
type Store interface {
	Stage(ctx context.Context, data []byte) (string, error)
	Resolve(ctx context.Context, fileID string) ([]byte, error)
	Discard(ctx context.Context, fileID string) error
}

// RedisStore implements Store on a dedicated Redis DB with a fixed TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a staged-file store backed by the given client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Stage writes the bytes under a fresh file ID and returns the ID.
func (s *RedisStore) Stage(ctx context.Context, data []byte) (string, error) {
	fileID := uuid.New().String()
	key := utils.StagedFilePrefix + fileID
	if err := s.client.Set(ctx, key, data, utils.StagedFileTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to stage file: %w", err)
	}
	return fileID, nil
}

// Resolve returns the staged bytes for a file ID.
func (s *RedisStore) Resolve(ctx context.Context, fileID string) ([]byte, error) {
	data, err := s.client.Get(ctx, utils.StagedFilePrefix+fileID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotStaged
		}
		return nil, fmt.Errorf("failed to resolve staged file %s: %w", fileID, err)
	}
	return data, nil
}

// Discard drops the staged bytes once they have been durably uploaded.
func (s *RedisStore) Discard(ctx context.Context, fileID string) error {
	if err := s.client.Del(ctx, utils.StagedFilePrefix+fileID).Err(); err != nil {
		return fmt.Errorf("failed to discard staged file %s: %w", fileID, err)
	}
	return nil
}
