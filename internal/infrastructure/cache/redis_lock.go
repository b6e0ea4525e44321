// Package cache contiene adaptadores sobre Redis.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/facturador-api/internal/application/billing"
)

var _ billing.Locker = (*RedisLocker)(nil)

// releaseScript borra la llave solo si sigue siendo nuestra (otra instancia pudo tomarla
// después de vencer el TTL).
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker lock de exclusión mutua entre instancias con SET NX PX.
type RedisLocker struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig conexión a Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisLocker conecta a Redis y verifica la conexión.
func NewRedisLocker(ctx context.Context, cfg RedisConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("conectar a Redis: %w", err)
	}
	return NewRedisLockerWithClient(client, ""), nil
}

// NewRedisLockerWithClient usa un cliente existente.
func NewRedisLockerWithClient(client *redis.Client, keyPrefix string) *RedisLocker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &RedisLocker{client: client, keyPrefix: keyPrefix}
}

// TryLock intenta tomar el lock sin esperar. ok=false si otra instancia lo tiene.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	fullKey := l.keyPrefix + key
	token := uuid.New().String()

	acquired, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("tomar lock %s: %w", fullKey, err)
	}
	if !acquired {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("liberar lock %s: %w", fullKey, err)
		}
		return nil
	}
	return release, true, nil
}

// Close cierra el cliente de Redis.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
