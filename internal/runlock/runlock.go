package runlock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld means another maintenance run currently owns the lock.
var ErrHeld = errors.New("maintenance run lock already held")

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// Client is the slice of the redis client the lock needs. Tests supply a
// fake; commands supply NewClient.
type Client interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Lock is a best-effort single-runner guard for maintenance commands. It
// keeps two dedupe runs from interleaving deletions; it is not a lock
// against application writers.
type Lock struct {
	rdb   Client
	key   string
	token string
}

// Acquire takes the named lock with SET NX and a TTL so a crashed run cannot
// wedge the key forever. On any failure the client is closed before
// returning.
func Acquire(ctx context.Context, rdb Client, key string, ttl time.Duration) (*Lock, error) {
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}

	token := uuid.NewString()

	ok, err := rdb.SetNX(ctx, key, token, ttl).Result()

	if err != nil {
		rdb.Close()
		return nil, err
	}

	if !ok {
		rdb.Close()
		return nil, ErrHeld
	}

	return &Lock{rdb: rdb, key: key, token: token}, nil
}

// Release deletes the key only if this run still owns it, then closes the
// client. A key that expired and was re-acquired by another run is left
// alone.
func (l *Lock) Release(ctx context.Context) error {
	defer l.rdb.Close()

	return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
