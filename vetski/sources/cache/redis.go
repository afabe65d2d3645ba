package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"vetski/vetski/config"
	"vetski/vetski/sources/psql/models"
	"vetski/vetski/utils/logging"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const historyTTL = 24 * time.Hour

// MessageCache keeps conversation histories in Redis lists. A nil
// *MessageCache is valid and caches nothing.
type MessageCache struct {
	client *redis.Client
}

// NewMessageCache connects to Redis. It returns nil when Redis is not
// configured or unreachable; callers fall back to the database.
func NewMessageCache(ctx context.Context, cfg config.Config) *MessageCache {
	if cfg.RedisAddr == "" {
		logging.AppLogger.Info("Redis not configured, message cache disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logging.ErrorLogger.Error("redis ping failed, message cache disabled", zap.Error(err))
		client.Close()
		return nil
	}
	logging.AppLogger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))
	return &MessageCache{client: client}
}

// NewMessageCacheFromClient wraps an existing client.
func NewMessageCacheFromClient(client *redis.Client) *MessageCache {
	return &MessageCache{client: client}
}

func historyKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:messages", conversationID)
}

// History returns the cached messages; ok is false on a miss.
func (c *MessageCache) History(ctx context.Context, conversationID string) (msgs []models.ConversationMessage, ok bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.LRange(ctx, historyKey(conversationID), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	msgs = make([]models.ConversationMessage, 0, len(raw))
	for _, s := range raw {
		var m models.ConversationMessage
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logging.ErrorLogger.Error("bad cached message", zap.Error(err))
			return nil, false
		}
		msgs = append(msgs, m)
	}
	return msgs, true
}

// Fill replaces the cached history with msgs.
func (c *MessageCache) Fill(ctx context.Context, conversationID string, msgs []models.ConversationMessage) {
	if c == nil {
		return
	}
	key := historyKey(conversationID)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.Expire(ctx, key, historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.ErrorLogger.Error("failed to cache history", zap.String("conversation_id", conversationID), zap.Error(err))
	}
}

// Append adds msg to an already cached history. A missing list is left
// missing so the next read repopulates it from the database in full.
func (c *MessageCache) Append(ctx context.Context, conversationID string, msg models.ConversationMessage) {
	if c == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	key := historyKey(conversationID)
	if err := c.client.RPushX(ctx, key, data).Err(); err != nil {
		logging.ErrorLogger.Error("failed to cache message", zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}
	c.client.Expire(ctx, key, historyTTL)
}

func (c *MessageCache) Invalidate(ctx context.Context, conversationID string) {
	if c == nil {
		return
	}
	c.client.Del(ctx, historyKey(conversationID))
}

// Ping reports Redis health; a disabled cache is healthy.
func (c *MessageCache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *MessageCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
