package myredis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mycontroller/domain"
	"mycontroller/helpers"
	"mycontroller/service"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedisAddr = "redis://localhost:6379"
const testPrefix = "session"

func setupTestRedis(t *testing.T) (redis.UniversalClient, func()) {
	client, err := NewRedisUniversalClient(testRedisAddr)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("redis not reachable at %s: %v", testRedisAddr, err)
	}

	keys, err := client.Keys(ctx, testPrefix+":*").Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}

	cleanup := func() {
		keys, _ := client.Keys(ctx, testPrefix+":*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	}
	return client, cleanup
}

func marshalRecord(r domain.SessionRecord) ([]byte, error) { return json.Marshal(r) }
func unmarshalRecord(b []byte) (domain.SessionRecord, error) {
	var r domain.SessionRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

func testRecord(key, id string) domain.SessionRecord {
	return domain.SessionRecord{
		Key:        key,
		InstanceID: id,
		Address:    "172.20.0.5:5800",
		CreatedAt:  helpers.TestNow(),
	}
}

func TestCache_WriteValue(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewCache[domain.SessionRecord](client, testPrefix, marshalRecord, unmarshalRecord)
	rec := testRecord("tenant-a", "c1")

	t.Run("success_no_ttl", func(t *testing.T) {
		err := cache.WriteValue(ctx, rec.Key, rec, 0)
		require.NoError(t, err)

		items, err := cache.ListAllValues(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		got := items[0]
		assert.Equal(t, rec.Key, got.Key)
		assert.Equal(t, rec.InstanceID, got.InstanceID)
		assert.Equal(t, rec.Address, got.Address)
		assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("when Redis write fails returns internal_server_error", func(t *testing.T) {
		closedClient, err := NewRedisUniversalClient(testRedisAddr)
		require.NoError(t, err)
		closedClient.Close()
		cacheClosed := NewCache[domain.SessionRecord](closedClient, testPrefix, marshalRecord, unmarshalRecord)

		err = cacheClosed.WriteValue(ctx, "x", rec, 0)
		require.Error(t, err)
		assert.True(t, service.IsInternalServerError(err))
	})
}

func TestCache_DeleteValue(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewCache[domain.SessionRecord](client, testPrefix, marshalRecord, unmarshalRecord)
	rec := testRecord("tenant-del", "c2")
	require.NoError(t, cache.WriteValue(ctx, rec.Key, rec, 0))

	require.NoError(t, cache.DeleteValue(ctx, rec.Key))

	items, err := cache.ListAllValues(ctx)
	require.Error(t, err)
	assert.True(t, service.IsEntityNotFoundError(err))
	assert.Nil(t, items)
}

func TestCache_ListAllValues(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	cache := NewCache[domain.SessionRecord](client, testPrefix, marshalRecord, unmarshalRecord)

	t.Run("empty_returns_entity_not_found", func(t *testing.T) {
		items, err := cache.ListAllValues(ctx)
		require.Error(t, err)
		assert.True(t, service.IsEntityNotFoundError(err))
		assert.Nil(t, items)
	})

	t.Run("returns_all_records", func(t *testing.T) {
		require.NoError(t, cache.WriteValue(ctx, "tenant-a", testRecord("tenant-a", "c1"), 0))
		require.NoError(t, cache.WriteValue(ctx, "tenant-b", testRecord("tenant-b", "c2"), 0))

		items, err := cache.ListAllValues(ctx)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("expired_records_disappear", func(t *testing.T) {
		require.NoError(t, cache.WriteValue(ctx, "tenant-ttl", testRecord("tenant-ttl", "c3"), 50))
		time.Sleep(100 * time.Millisecond)

		items, _ := cache.ListAllValues(ctx)
		for _, item := range items {
			assert.NotEqual(t, "tenant-ttl", item.Key)
		}
	})
}
