package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// Prometheus-метрики кэша сессий.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sir_session_cache_hits_total",
		Help: "Общее количество попаданий в кэш сессий.",
	}, []string{"kind"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sir_session_cache_misses_total",
		Help: "Общее количество промахов кэша сессий.",
	}, []string{"kind"})
)

// SessionCache — кратковременный кэш записей сессий и пользователей.
// Кэш не продлевает сессию: проверка активности и срока выполняется
// шлюзом на каждом запросе. Хэш пароля в кэш не попадает.
type SessionCache interface {
	GetSession(ctx context.Context, id string) (*model.Session, bool)
	SetSession(ctx context.Context, s *model.Session)
	DeleteSession(ctx context.Context, id string)
	GetUser(ctx context.Context, id string) (*model.User, bool)
	SetUser(ctx context.Context, u *model.User)
	// DeleteUser инвалидирует пользователя после смены пароля или роли.
	DeleteUser(ctx context.Context, id string)
}

// --- In-process LRU ---

// LRUCache — per-instance кэш на hashicorp/golang-lru/v2/expirable.
type LRUCache struct {
	sessions *expirable.LRU[string, model.Session]
	users    *expirable.LRU[string, model.User]
}

// NewLRUCache создаёт LRU-кэш с указанным размером и TTL записи.
func NewLRUCache(maxSize int, ttl time.Duration) *LRUCache {
	return &LRUCache{
		sessions: expirable.NewLRU[string, model.Session](maxSize, nil, ttl),
		users:    expirable.NewLRU[string, model.User](maxSize, nil, ttl),
	}
}

// Значения хранятся копиями: изменения у вызывающего не попадают в кэш.

func (c *LRUCache) GetSession(_ context.Context, id string) (*model.Session, bool) {
	s, ok := c.sessions.Get(id)
	if !ok {
		cacheMissesTotal.WithLabelValues("session").Inc()
		return nil, false
	}
	cacheHitsTotal.WithLabelValues("session").Inc()
	return &s, true
}

func (c *LRUCache) SetSession(_ context.Context, s *model.Session) {
	c.sessions.Add(s.ID, *s)
}

func (c *LRUCache) DeleteSession(_ context.Context, id string) {
	c.sessions.Remove(id)
}

func (c *LRUCache) GetUser(_ context.Context, id string) (*model.User, bool) {
	u, ok := c.users.Get(id)
	if !ok {
		cacheMissesTotal.WithLabelValues("user").Inc()
		return nil, false
	}
	cacheHitsTotal.WithLabelValues("user").Inc()
	return &u, true
}

func (c *LRUCache) SetUser(_ context.Context, u *model.User) {
	c.users.Add(u.ID, withoutSecrets(u))
}

func (c *LRUCache) DeleteUser(_ context.Context, id string) {
	c.users.Remove(id)
}

// withoutSecrets возвращает копию пользователя без хэша пароля.
func withoutSecrets(u *model.User) model.User {
	c := *u
	c.PasswordHash = ""
	return c
}

// --- Redis ---

const (
	redisSessionPrefix = "sir:session:"
	redisUserPrefix    = "sir:user:"
)

// cachedUser — запись пользователя в Redis. Хэша пароля в ней нет.
type cachedUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	UsageCount int       `json:"usageCount"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func toCachedUser(u *model.User) cachedUser {
	return cachedUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Role:       u.Role,
		UsageCount: u.UsageCount,
		Verified:   u.Verified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func (c *cachedUser) user() *model.User {
	return &model.User{
		ID:         c.ID,
		Username:   c.Username,
		Email:      c.Email,
		Role:       c.Role,
		UsageCount: c.UsageCount,
		Verified:   c.Verified,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

// RedisCache — общий для всех экземпляров кэш в Redis.
// Ошибки Redis не прерывают запрос: они логируются и считаются промахом.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisClient создаёт клиента Redis.
func NewRedisClient(addr, password string, db int) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:       addr,
		Password:   password,
		DB:         db,
		MaxRetries: 2,
	})
}

// NewRedisCache создаёт кэш поверх клиента Redis.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "session_cache")),
	}
}

func (c *RedisCache) GetSession(ctx context.Context, id string) (*model.Session, bool) {
	s := &model.Session{}
	if !c.get(ctx, redisSessionPrefix+id, s) {
		cacheMissesTotal.WithLabelValues("session").Inc()
		return nil, false
	}
	cacheHitsTotal.WithLabelValues("session").Inc()
	return s, true
}

func (c *RedisCache) SetSession(ctx context.Context, s *model.Session) {
	c.set(ctx, redisSessionPrefix+s.ID, s)
}

func (c *RedisCache) DeleteSession(ctx context.Context, id string) {
	c.del(ctx, redisSessionPrefix+id)
}

func (c *RedisCache) GetUser(ctx context.Context, id string) (*model.User, bool) {
	cu := &cachedUser{}
	if !c.get(ctx, redisUserPrefix+id, cu) {
		cacheMissesTotal.WithLabelValues("user").Inc()
		return nil, false
	}
	cacheHitsTotal.WithLabelValues("user").Inc()
	return cu.user(), true
}

func (c *RedisCache) SetUser(ctx context.Context, u *model.User) {
	c.set(ctx, redisUserPrefix+u.ID, toCachedUser(u))
}

func (c *RedisCache) DeleteUser(ctx context.Context, id string) {
	c.del(ctx, redisUserPrefix+id)
}

func (c *RedisCache) get(ctx context.Context, key string, dst any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Ошибка чтения из Redis",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.Warn("Повреждённая запись кэша",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func (c *RedisCache) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Ошибка записи в Redis",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func (c *RedisCache) del(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Ошибка удаления из Redis",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// RedisReadinessChecker — проверка готовности Redis для health endpoint.
type RedisReadinessChecker struct {
	client redis.UniversalClient
}

// NewRedisReadinessChecker создаёт проверку готовности Redis.
func NewRedisReadinessChecker(client redis.UniversalClient) *RedisReadinessChecker {
	return &RedisReadinessChecker{client: client}
}

// Name возвращает имя проверки в ответе /health/ready.
func (c *RedisReadinessChecker) Name() string {
	return "redis"
}

// CheckReady проверяет Redis командой PING.
func (c *RedisReadinessChecker) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := c.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
