package storage

import (
	"testing"

	"github.com/aescanero/kvarea/pkg/adapters/storage/memory"
	redisstore "github.com/aescanero/kvarea/pkg/adapters/storage/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	s, err := NewStore(&Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	s, err = NewStore(&Config{Backend: BackendRedis, Client: client})
	require.NoError(t, err)
	assert.IsType(t, &redisstore.Store{}, s)

	_, err = NewStore(&Config{Backend: BackendRedis})
	assert.Error(t, err)

	_, err = NewStore(&Config{Backend: "etcd"})
	assert.Error(t, err)
}
