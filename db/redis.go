// db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authz/logging"
	"github.com/dev-mohitbeniwal/echo/authz/model"
)

const policyKeyPrefix = "authz:policy:"

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := SetEncryptionKey([]byte(viper.GetString("redis.encryptionKey"))); err != nil {
		return err
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

// SetEncryptionKey sets the AES-256 key used for cached policies.
func SetEncryptionKey(key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("invalid encryption key length: must be 32 bytes")
	}
	encryptionKey = key
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// sealPolicy and openPolicy convert between a policy and its cached form.
func sealPolicy(policy *model.Policy) (string, error) {
	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return "", fmt.Errorf("failed to marshal policy: %w", err)
	}
	encryptedPolicy, err := encrypt(policyJSON)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt policy: %w", err)
	}
	return base64.StdEncoding.EncodeToString(encryptedPolicy), nil
}

func openPolicy(sealed string) (*model.Policy, error) {
	encryptedPolicy, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode policy: %w", err)
	}
	policyJSON, err := decrypt(encryptedPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt policy: %w", err)
	}
	var policy model.Policy
	if err := json.Unmarshal(policyJSON, &policy); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy: %w", err)
	}
	return &policy, nil
}

func CachePolicy(ctx context.Context, policy *model.Policy) error {
	sealed, err := sealPolicy(policy)
	if err != nil {
		return err
	}

	key := policyKeyPrefix + policy.ID
	defaultTTL := viper.GetDuration("redis.defaultCacheTTL")
	if err := RedisClient.Set(ctx, key, sealed, defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache policy: %w", err)
	}

	logger.Debug("Policy cached successfully", zap.String("policyID", policy.ID))
	return nil
}

// GetCachedPolicy returns nil, nil on a cache miss.
func GetCachedPolicy(ctx context.Context, policyID string) (*model.Policy, error) {
	sealed, err := RedisClient.Get(ctx, policyKeyPrefix+policyID).Result()
	if errors.Is(err, redis.Nil) {
		logger.Debug("Policy not found in cache", zap.String("policyID", policyID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get policy from cache: %w", err)
	}

	policy, err := openPolicy(sealed)
	if err != nil {
		return nil, err
	}

	logger.Debug("Policy retrieved from cache", zap.String("policyID", policyID))
	return policy, nil
}

func DeleteCachedPolicy(ctx context.Context, policyID string) error {
	if err := RedisClient.Del(ctx, policyKeyPrefix+policyID).Err(); err != nil {
		return fmt.Errorf("failed to delete policy from cache: %w", err)
	}
	logger.Debug("Policy deleted from cache", zap.String("policyID", policyID))
	return nil
}

// PublishInvalidation broadcasts a policy cache invalidation to every
// instance subscribed to channel.
func PublishInvalidation(ctx context.Context, channel string, msg model.PolicyInvalidation) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	receivers, err := RedisClient.Publish(ctx, channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	logger.Debug("Policy invalidation published",
		zap.String("channel", channel),
		zap.String("policyID", msg.PolicyID),
		zap.Int64("receivers", receivers))
	return nil
}

// SubscribeInvalidations delivers invalidation messages from channel to
// handle until ctx is done. Malformed messages are logged and dropped.
func SubscribeInvalidations(ctx context.Context, channel string, handle func(model.PolicyInvalidation)) error {
	sub := RedisClient.Subscribe(ctx, channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	logger.Info("Subscribed to policy invalidations", zap.String("channel", channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-messages:
			if !ok {
				return nil
			}
			var msg model.PolicyInvalidation
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				logger.Warn("Dropping malformed policy invalidation", zap.Error(err), zap.String("payload", m.Payload))
				continue
			}
			handle(msg)
		}
	}
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: rateLimitMember(now)})
	card := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := card.Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

// rateLimitMember keeps requests landing on the same nanosecond, possibly on
// different instances, as separate window entries.
func rateLimitMember(now int64) string {
	return fmt.Sprintf("%d-%s", now, uuid.NewString())
}

// LockResource takes a best-effort cluster-wide lock, used to keep policy
// bootstrap to a single instance.
func LockResource(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resourceName)
	locked, err := RedisClient.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	logger.Debug("Lock acquisition attempt",
		zap.String("resource", resourceName),
		zap.Bool("locked", locked))
	return locked, nil
}

func UnlockResource(ctx context.Context, resourceName string) error {
	key := fmt.Sprintf("lock:%s", resourceName)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	logger.Debug("Lock released", zap.String("resource", resourceName))
	return nil
}
