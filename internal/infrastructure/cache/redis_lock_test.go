package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLockerWithClient(client, "test:"), mr
}

func TestRedisLocker_TomaYLibera(t *testing.T) {
	locker, mr := newMiniredisLocker(t)
	ctx := context.Background()

	release, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, release)
	assert.True(t, mr.Exists("test:sweep"))
	assert.Equal(t, time.Minute, mr.TTL("test:sweep"))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("test:sweep"))

	_, ok, err = locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_SegundoIntentoOcupado(t *testing.T) {
	locker, _ := newMiniredisLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	release, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)

	// otra llave no se ve afectada
	_, ok, err = locker.TryLock(ctx, "otra", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_ExpiraPorTTL(t *testing.T) {
	locker, mr := newMiniredisLocker(t)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Minute)
	assert.False(t, mr.Exists("test:sweep"))

	_, ok, err = locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLocker_LiberarNoBorraLockAjeno(t *testing.T) {
	locker, mr := newMiniredisLocker(t)
	ctx := context.Background()

	releaseA, ok, err := locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Minute)
	_, ok, err = locker.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	tokenB, err := mr.Get("test:sweep")
	require.NoError(t, err)

	// el primer dueño libera tarde: la llave sigue siendo del segundo
	require.NoError(t, releaseA(ctx))
	got, err := mr.Get("test:sweep")
	require.NoError(t, err)
	assert.Equal(t, tokenB, got)
}

func TestRedisLocker_ServidorCaido(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	locker := NewRedisLockerWithClient(client, "test:")

	release, ok, err := locker.TryLock(context.Background(), "sweep", time.Second)

	assert.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
	assert.Contains(t, err.Error(), "test:sweep")
}

func TestNewRedisLocker_SinConexion(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisLocker(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
