package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// revokedFallbackTTL is used when a token's remaining lifetime cannot be read
const revokedFallbackTTL = 7 * 24 * time.Hour

// RedisRepository stores refresh tokens in Redis, keyed by token hash.
// Expiry is left to key TTLs.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// storedRefreshToken is the Redis hash layout of a refresh token
type storedRefreshToken struct {
	UserID    string `redis:"user_id"`
	ExpiresAt int64  `redis:"expires_at"`
	CreatedAt int64  `redis:"created_at"`
}

func refreshTokenKey(tokenHash string) string {
	return "swapbnb:refresh_token:" + tokenHash
}

func revokedTokenKey(tokenHash string) string {
	return "swapbnb:refresh_token:revoked:" + tokenHash
}

func userTokensKey(userID uuid.UUID) string {
	return "swapbnb:user_tokens:" + userID.String()
}

// StoreRefreshToken saves the token hash and indexes it under the user
func (r *RedisRepository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return errors.New("token expiration time is in the past")
	}

	tokenHash := hashToken(token)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, refreshTokenKey(tokenHash), storedRefreshToken{
			UserID:    userID.String(),
			ExpiresAt: expiresAt.Unix(),
			CreatedAt: time.Now().Unix(),
		})
		pipe.Expire(ctx, refreshTokenKey(tokenHash), ttl)
		pipe.SAdd(ctx, userTokensKey(userID), tokenHash)
		pipe.Expire(ctx, userTokensKey(userID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken looks up a live, unrevoked refresh token
func (r *RedisRepository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	tokenHash := hashToken(token)

	revoked, err := r.client.Exists(ctx, revokedTokenKey(tokenHash)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked > 0 {
		return nil, ErrRefreshTokenRevoked
	}

	res := r.client.HGetAll(ctx, refreshTokenKey(tokenHash))
	data, err := res.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrRefreshTokenNotFound
	}

	var stored storedRefreshToken
	if err := res.Scan(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode refresh token: %w", err)
	}
	userID, err := uuid.Parse(stored.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	rt := &RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: time.Unix(stored.ExpiresAt, 0),
		CreatedAt: time.Unix(stored.CreatedAt, 0),
	}
	if rt.IsExpired() {
		return nil, ErrRefreshTokenExpired
	}
	return rt, nil
}

// RevokeRefreshToken marks a token as revoked for the rest of its lifetime
func (r *RedisRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	tokenHash := hashToken(token)

	ttl, err := r.client.TTL(ctx, refreshTokenKey(tokenHash)).Result()
	if err != nil {
		return fmt.Errorf("failed to get token TTL: %w", err)
	}
	// -2 means the key does not exist
	if ttl == -2 {
		return ErrRefreshTokenNotFound
	}
	if ttl <= 0 {
		ttl = revokedFallbackTTL
	}

	if err := r.client.Set(ctx, revokedTokenKey(tokenHash), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllUserTokens revokes every refresh token issued to the user
func (r *RedisRepository) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	hashes, err := r.client.SMembers(ctx, userTokensKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to get user tokens: %w", err)
	}
	if len(hashes) == 0 {
		return nil
	}

	ttls := make([]*redis.DurationCmd, len(hashes))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, h := range hashes {
			ttls[i] = pipe.TTL(ctx, refreshTokenKey(h))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read token TTLs: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, h := range hashes {
			ttl := ttls[i].Val()
			if ttl <= 0 {
				ttl = revokedFallbackTTL
			}
			pipe.Set(ctx, revokedTokenKey(h), "1", ttl)
		}
		pipe.Del(ctx, userTokensKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to revoke all user tokens: %w", err)
	}
	return nil
}
