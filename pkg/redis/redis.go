package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timetable-composer/config"
	pkgerrors "timetable-composer/pkg/errors"
)

// Client Redis 客户端封装
// 用于教室目录等只读数据的 JSON 缓存，以及接口限流计数
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
	prefix string
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger, prefix: "timetable:"}, nil
}

// ── JSON 缓存 ──

// GetJSON 读取并反序列化缓存值，不存在时返回 ErrCacheMiss
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return pkgerrors.ErrCacheMiss
		}
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// 脏数据直接删掉，下次回源重建
		c.logger.Warn("缓存数据损坏，已删除", zap.String("key", key), zap.Error(err))
		_ = c.rdb.Del(ctx, c.prefix+key).Err()
		return pkgerrors.ErrCacheMiss
	}
	return nil
}

// SetJSON 序列化后写入缓存
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化缓存值失败: %w", err)
	}
	return c.rdb.Set(ctx, c.prefix+key, raw, ttl).Err()
}

// Delete 删除缓存键
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.prefix+k)
	}
	return c.rdb.Del(ctx, full...).Err()
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流，窗口内请求数未超过 limit 时返回 true
// 每次调用都会计入窗口，被拒绝的请求同样占用配额
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	full := c.prefix + key
	now := time.Now().UnixNano()
	floor := strconv.FormatInt(now-window.Nanoseconds(), 10)

	var count *goredis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, full, "0", floor)
		pipe.ZAdd(ctx, full, goredis.Z{Score: float64(now), Member: uuid.NewString()})
		count = pipe.ZCard(ctx, full)
		pipe.Expire(ctx, full, window)
		return nil
	})
	if err != nil {
		return false, err
	}
	return count.Val() <= int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
