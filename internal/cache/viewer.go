// Package cache хранит снимки прав посетителей в Redis, чтобы не читать
// подписку и покупки из базы на каждый просмотр страницы.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmeshcher/clube-madua/internal/model"
)

const (
	keyPrefix  = "viewer:"
	defaultTTL = 5 * time.Minute
)

// ErrMiss возвращается, если снимка посетителя нет в кеше.
var ErrMiss = errors.New("viewer cache miss")

type viewerData struct {
	Status    string  `json:"status"`
	Purchased []int64 `json:"purchased"`
}

// ViewerCache хранит снимки посетителей в Redis.
type ViewerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewerCache подключается к Redis по URL и проверяет соединение.
func NewViewerCache(redisURL string, ttl time.Duration) (*ViewerCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewViewerCacheWithClient(client, ttl), nil
}

// NewViewerCacheWithClient создаёт кеш поверх существующего клиента.
func NewViewerCacheWithClient(client *redis.Client, ttl time.Duration) *ViewerCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ViewerCache{client: client, ttl: ttl}
}

// Снимок хранится под ключом viewer:<id>:<поколение>. Invalidate увеличивает
// поколение, поэтому снимок, прочитанный из базы до инвалидации и записанный
// после неё, попадает под старый ключ и больше не читается.
func genKey(userID int64) string {
	return keyPrefix + "gen:" + strconv.FormatInt(userID, 10)
}

func dataKey(userID, gen int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(gen, 10)
}

func (c *ViewerCache) generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get viewer generation: %w", err)
	}
	return gen, nil
}

// Get возвращает снимок посетителя и текущее поколение. При промахе
// возвращается ErrMiss вместе с поколением, которое нужно передать в Set.
func (c *ViewerCache) Get(ctx context.Context, userID int64) (model.Viewer, int64, error) {
	gen, err := c.generation(ctx, userID)
	if err != nil {
		return model.Viewer{}, 0, err
	}

	raw, err := c.client.Get(ctx, dataKey(userID, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Viewer{}, gen, ErrMiss
	}
	if err != nil {
		return model.Viewer{}, gen, fmt.Errorf("get viewer: %w", err)
	}

	var data viewerData
	if err := json.Unmarshal(raw, &data); err != nil {
		return model.Viewer{}, gen, fmt.Errorf("unmarshal viewer: %w", err)
	}

	v := model.Viewer{
		UserID:             userID,
		Status:             model.ParseSubscriptionStatus(data.Status),
		PurchasedCourseIDs: make(map[int64]struct{}, len(data.Purchased)),
	}
	for _, id := range data.Purchased {
		v.PurchasedCourseIDs[id] = struct{}{}
	}
	return v, gen, nil
}

// Set сохраняет снимок посетителя под поколением gen, полученным из Get
// до чтения базы.
func (c *ViewerCache) Set(ctx context.Context, v model.Viewer, gen int64) error {
	data := viewerData{
		Status:    string(v.Status),
		Purchased: make([]int64, 0, len(v.PurchasedCourseIDs)),
	}
	for id := range v.PurchasedCourseIDs {
		data.Purchased = append(data.Purchased, id)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal viewer: %w", err)
	}

	if err := c.client.Set(ctx, dataKey(v.UserID, gen), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save viewer: %w", err)
	}
	return nil
}

// Invalidate делает текущий снимок посетителя недоступным после смены
// подписки или покупки.
func (c *ViewerCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Incr(ctx, genKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate viewer: %w", err)
	}
	return nil
}

// Ping проверяет доступность Redis.
func (c *ViewerCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close закрывает соединение с Redis.
func (c *ViewerCache) Close() error {
	return c.client.Close()
}
