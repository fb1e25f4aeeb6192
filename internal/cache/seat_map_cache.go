package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SeatMapCache 航班已佔座位的快取，可隨時由有效訂位重建
type SeatMapCache interface {
	// 讀取：hit 為 false 代表尚未預熱或已失效
	Get(ctx context.Context, flightID string) ([]string, bool, error)
	// 目前版本，每次失效加一
	Version(ctx context.Context, flightID string) (int64, error)
	// 重建：版本未變才整組覆蓋 (使用Lua腳本確保原子性)
	Set(ctx context.Context, flightID string, version int64, seats []string) (bool, error)
	// 失效：刪除快取並推進版本，下次讀取時重建
	Invalidate(ctx context.Context, flightID string) error
}

type RedisSeatMapCacheImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSeatMapCache(client *redis.Client, ttl time.Duration) SeatMapCache {
	if ttl < time.Second {
		ttl = time.Second
	}
	return &RedisSeatMapCacheImpl{
		client: client,
		ttl:    ttl,
	}
}

// 已佔座位的 set key
func (c *RedisSeatMapCacheImpl) getSeatsKey(flightID string) string {
	return fmt.Sprintf("flight:%s:seats", flightID)
}

// 標記 key：空 set 在 Redis 中不存在，需要另外記錄「已預熱」
func (c *RedisSeatMapCacheImpl) getLoadedKey(flightID string) string {
	return fmt.Sprintf("flight:%s:seats:loaded", flightID)
}

// 版本 key 不設 TTL；過期重置為 0 只會讓一次重建被拒
func (c *RedisSeatMapCacheImpl) getVersionKey(flightID string) string {
	return fmt.Sprintf("flight:%s:seats:version", flightID)
}

func (c *RedisSeatMapCacheImpl) Get(ctx context.Context, flightID string) ([]string, bool, error) {
	script := `
		if redis.call('EXISTS', KEYS[2]) == 0 then
			return false -- 未預熱
		end
		return redis.call('SMEMBERS', KEYS[1])
	`

	result, err := c.client.Eval(ctx, script, []string{c.getSeatsKey(flightID), c.getLoadedKey(flightID)}).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return sortedCopy(result), true, nil
}

func (c *RedisSeatMapCacheImpl) Version(ctx context.Context, flightID string) (int64, error) {
	version, err := c.client.Get(ctx, c.getVersionKey(flightID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}

/*
重建座位快取 (使用Lua腳本確保原子性)
 1. 版本已被推進就放棄 (推導期間有寫入)
 2. 清掉舊的 set
 3. 寫入所有已佔座位
 4. 設定標記與 TTL
*/
func (c *RedisSeatMapCacheImpl) Set(ctx context.Context, flightID string, version int64, seats []string) (bool, error) {
	script := `
		local seats_key = KEYS[1]
		local loaded_key = KEYS[2]
		local version_key = KEYS[3]
		local ttl = tonumber(ARGV[1])

		local current = redis.call('GET', version_key) or '0'
		if current ~= ARGV[2] then
			return 0
		end

		redis.call('DEL', seats_key)
		for i = 3, #ARGV do
			redis.call('SADD', seats_key, ARGV[i])
		end
		if #ARGV > 2 then
			redis.call('EXPIRE', seats_key, ttl)
		end
		redis.call('SET', loaded_key, '1', 'EX', ttl)

		return 1
	`

	args := make([]interface{}, 0, len(seats)+2)
	args = append(args, int(c.ttl.Seconds()), strconv.FormatInt(version, 10))
	for _, seat := range seats {
		args = append(args, seat)
	}

	keys := []string{c.getSeatsKey(flightID), c.getLoadedKey(flightID), c.getVersionKey(flightID)}
	stored, err := c.client.Eval(ctx, script, keys, args...).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

func (c *RedisSeatMapCacheImpl) Invalidate(ctx context.Context, flightID string) error {
	script := `
		redis.call('DEL', KEYS[1], KEYS[2])
		return redis.call('INCR', KEYS[3])
	`
	keys := []string{c.getSeatsKey(flightID), c.getLoadedKey(flightID), c.getVersionKey(flightID)}
	return c.client.Eval(ctx, script, keys).Err()
}

// NopSeatMapCache Redis 未啟用時使用，永遠未命中
type NopSeatMapCache struct{}

func NewNopSeatMapCache() SeatMapCache {
	return NopSeatMapCache{}
}

func (NopSeatMapCache) Get(ctx context.Context, flightID string) ([]string, bool, error) {
	return nil, false, nil
}

func (NopSeatMapCache) Version(ctx context.Context, flightID string) (int64, error) {
	return 0, nil
}

func (NopSeatMapCache) Set(ctx context.Context, flightID string, version int64, seats []string) (bool, error) {
	return false, nil
}

func (NopSeatMapCache) Invalidate(ctx context.Context, flightID string) error {
	return nil
}

// SMEMBERS 沒有順序，回傳前排序
func sortedCopy(seats []string) []string {
	out := append([]string{}, seats...)
	sort.Strings(out)
	return out
}
