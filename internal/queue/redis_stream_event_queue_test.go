package queue_test

import (
	"context"
	"testing"
	"time"

	"go-gin-flight-booking/config"
	"go-gin-flight-booking/internal/database"
	"go-gin-flight-booking/internal/queue"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestRdb(t *testing.T) *redis.Client {
	t.Helper()

	cfg := config.LoadTestConfig()
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// newTestStream 每個測試用獨立的 stream，避免互相干擾
func newTestStream(t *testing.T, rdb *redis.Client, cfg queue.RedisStreamConfig) queue.ReservationEventQueue {
	t.Helper()
	ctx := context.Background()

	cfg.StreamKey = "test:" + t.Name()
	_ = rdb.Del(ctx, cfg.StreamKey).Err()
	t.Cleanup(func() { _ = rdb.Del(context.Background(), cfg.StreamKey).Err() })

	q, err := queue.NewRedisStreamEventQueue(ctx, rdb, "test-consumer", &cfg)
	require.NoError(t, err)
	return q
}

func TestNewRedisStreamEventQueue(t *testing.T) {
	rdb := getTestRdb(t)

	t.Run("empty_consumer_id_generates_uuid", func(t *testing.T) {
		q, err := queue.NewRedisStreamEventQueue(context.Background(), rdb, "", &queue.RedisStreamConfig{StreamKey: "test:ctor"})
		require.NoError(t, err)
		require.NotNil(t, q)
		_ = rdb.Del(context.Background(), "test:ctor").Err()
	})

	t.Run("group_already_exists", func(t *testing.T) {
		cfg := &queue.RedisStreamConfig{StreamKey: "test:ctor-twice"}
		_, err := queue.NewRedisStreamEventQueue(context.Background(), rdb, "a", cfg)
		require.NoError(t, err)
		_, err = queue.NewRedisStreamEventQueue(context.Background(), rdb, "b", cfg)
		require.NoError(t, err)
		_ = rdb.Del(context.Background(), "test:ctor-twice").Err()
	})
}

func TestRedisStreamEventQueue_Subscribe_deliversPublishedMessage(t *testing.T) {
	rdb := getTestRdb(t)
	q := newTestStream(t, rdb, queue.RedisStreamConfig{ReadGroupBlockTime: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, newTestEvent("1")))

	d, ok := receive(t, ch, 3*time.Second)
	require.True(t, ok)
	assert.Equal(t, "r-1", d.Data.ReservationID)
	assert.Equal(t, []string{"1A"}, d.Data.Seats)
	d.Ack()
}

func TestRedisStreamEventQueue_NackRequeue_redeliversAfterIdle(t *testing.T) {
	rdb := getTestRdb(t)
	q := newTestStream(t, rdb, queue.RedisStreamConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, newTestEvent("1")))

	d, ok := receive(t, ch, 3*time.Second)
	require.True(t, ok)
	d.Nack(true)

	again, ok := receive(t, ch, 3*time.Second)
	require.True(t, ok, "Nack(requeue) 後應在 ClaimMinIdleTime 後再次投遞")
	assert.Equal(t, "1", again.Data.ID)
	again.Ack()
}

func TestRedisStreamEventQueue_NackDiscard_preventsRedelivery(t *testing.T) {
	rdb := getTestRdb(t)
	q := newTestStream(t, rdb, queue.RedisStreamConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		ReadGroupBlockTime: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, newTestEvent("1")))

	d, ok := receive(t, ch, 3*time.Second)
	require.True(t, ok)
	d.Nack(false)

	_, ok = receive(t, ch, 800*time.Millisecond)
	assert.False(t, ok, "Nack(false) 後不應再投遞")
}

func TestRedisStreamEventQueue_poisonMessage_discardedAfterMaxRetries(t *testing.T) {
	rdb := getTestRdb(t)
	q := newTestStream(t, rdb, queue.RedisStreamConfig{
		ClaimMinIdleTime:   100 * time.Millisecond,
		ReadGroupBlockTime: 50 * time.Millisecond,
		MaxRetryCount:      2,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := q.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, newTestEvent("poison")))

	deliveries := 0
	for {
		d, ok := receive(t, ch, time.Second)
		if !ok {
			break
		}
		deliveries++
		d.Nack(true)
		require.Less(t, deliveries, 10, "毒藥消息應在超過重試上限後被丟棄")
	}
	assert.GreaterOrEqual(t, deliveries, 1)
}
