package redis_db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
	}{
		{"docker style", "redis:6379", "redis:6379", ""},
		{"url with password", "redis://:password123@localhost:6379", "localhost:6379", "password123"},
		{"password without colon", "redis://secret@localhost:6379", "localhost:6379", "secret"},
		{"azure host", "myinstance.redis.cache.windows.net:6380", "myinstance.redis.cache.windows.net:6380", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRedisURL(tt.url, false)
			require.NoError(t, err)
			assert.Equal(t, tt.addr, got.Addr)
			assert.Equal(t, tt.password, got.Password)
		})
	}
}

func TestParseRedisURL_SkipTLSVerify(t *testing.T) {
	got, err := ParseRedisURL("rediss://:pw@localhost:6380", true)
	require.NoError(t, err)
	require.NotNil(t, got.TLSConfig)
	assert.True(t, got.TLSConfig.InsecureSkipVerify)
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient([]string{}, false)
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	r, err := NewRedisClient([]string{mr.Addr()}, false)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Client().Set(context.Background(), "k", "v", 0).Err())
	val, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	_, err := NewRedisClient([]string{"127.0.0.1:1"}, false)
	assert.Error(t, err)
}

func TestNewFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	assert.NoError(t, r.Ping(context.Background()))
}
