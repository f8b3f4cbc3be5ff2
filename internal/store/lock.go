package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

/* ─── In-process ─────────────────────────────────────────────────────── */

// LocalLocker serializes per user inside one process. Used by the CLI and tests.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[int]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[int]chan struct{})}
}

func (l *LocalLocker) Lock(ctx context.Context, userID int) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[userID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[userID] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-slot }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

/* ─── Postgres advisory lock ─────────────────────────────────────────── */

// PGAdvisoryLocker holds a session-level advisory lock on a dedicated pool
// connection for the duration of the critical section.
type PGAdvisoryLocker struct {
	pool *pgxpool.Pool
}

func NewPGAdvisoryLocker(pool *pgxpool.Pool) *PGAdvisoryLocker {
	return &PGAdvisoryLocker{pool: pool}
}

func (l *PGAdvisoryLocker) Lock(ctx context.Context, userID int) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock conn: %w", err)
	}
	args := pgx.NamedArgs{"ns": planLockNamespace, "user_id": userID}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(@ns, @user_id)`, args); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Unlock on a fresh context so a cancelled request still frees the lock.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.Exec(unlockCtx, `SELECT pg_advisory_unlock(@ns, @user_id)`, args); err != nil {
				// Closing the session drops any advisory locks it still holds.
				conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}

/* ─── Redis ──────────────────────────────────────────────────────────── */

// releaseScript deletes the lock key only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a single-instance Redis lock (SET NX PX with a random
// token). It is used when several API replicas share one Redis.
type RedisLocker struct {
	rdb   *goredis.Client
	ttl   time.Duration
	retry time.Duration
}

// NewRedisLocker connects to addr and pings it before returning.
func NewRedisLocker(ctx context.Context, addr string, ttl time.Duration) (*RedisLocker, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retry: 50 * time.Millisecond}, nil
}

func (l *RedisLocker) key(userID int) string {
	return "stride:plan-lock:" + strconv.Itoa(userID)
}

func (l *RedisLocker) Lock(ctx context.Context, userID int) (func(), error) {
	key := l.key(userID)
	token := uuid.NewString()
	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(unlockCtx, l.rdb, []string{key}, token).Err()
		})
	}, nil
}

func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}
