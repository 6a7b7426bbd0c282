package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus-audit/internal/session"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrSnapshotNotFound 快照不存在
var ErrSnapshotNotFound = errors.New("session snapshot not found")

// SessionStore 会话快照存储（Redis，带 TTL）
// 每次会话变更后写入整份快照，进程崩溃/重启后可恢复进行中的巡检
type SessionStore struct {
	redisClient *redis.Client
	keyPrefix   string
	ttl         time.Duration
	logger      *zap.Logger
}

// NewSessionStore 创建快照存储
func NewSessionStore(redisClient *redis.Client, keyPrefix string, ttl time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		ttl:         ttl,
		logger:      logger,
	}
}

// Key 构建快照键
func (s *SessionStore) Key(sessionID string) string {
	return s.keyPrefix + sessionID
}

// Save 写入快照（覆盖旧值，刷新 TTL）
func (s *SessionStore) Save(ctx context.Context, snap session.Snapshot) error {
	jsonData, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.redisClient.Set(ctx, s.Key(snap.SessionID), jsonData, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Get 读取快照
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	val, err := s.redisClient.Get(ctx, s.Key(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var snap session.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete 删除快照（会话完成或放弃后）
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redisClient.Del(ctx, s.Key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// ListKeys 列出全部快照键（重启恢复时扫描）
func (s *SessionStore) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		k, next, err := s.redisClient.Scan(ctx, cursor, s.keyPrefix+"*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot keys: %w", err)
		}
		keys = append(keys, k...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
