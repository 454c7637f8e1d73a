package runlock_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/devonwhite/dbmaint/internal/runlock"
	"github.com/redis/go-redis/v9"
)

// fakeRedis holds keys in a map and evaluates the one script this package
// uses (compare token, delete on match) in both Eval and EvalSha.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.values[key]; ok {
		cmd.SetVal(false)
		return cmd
	}

	f.values[key] = fmt.Sprint(value)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeRedis) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

func (f *fakeRedis) compareAndDel(ctx context.Context, keys []string, args ...any) *redis.Cmd {
	cmd := redis.NewCmd(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(keys) == 1 && len(args) == 1 && f.values[keys[0]] == fmt.Sprint(args[0]) {
		delete(f.values, keys[0])
		cmd.SetVal(int64(1))
		return cmd
	}

	cmd.SetVal(int64(0))
	return cmd
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.compareAndDel(ctx, keys, args...)
}

func (f *fakeRedis) EvalSha(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return f.compareAndDel(ctx, keys, args...)
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.compareAndDel(ctx, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...any) *redis.Cmd {
	return f.compareAndDel(ctx, keys, args...)
}

func (f *fakeRedis) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	cmd := redis.NewBoolSliceCmd(ctx)
	cmd.SetVal(make([]bool, len(hashes)))
	return cmd
}

func (f *fakeRedis) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal("fake-sha")
	return cmd
}

func (f *fakeRedis) get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.values[key]
	return v, ok
}

func TestAcquire_RefusesHeldLock(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()

	first, err := runlock.Acquire(ctx, rdb, "dbmaint:dedupe", time.Minute)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}

	_, err = runlock.Acquire(ctx, newSharedFake(rdb), "dbmaint:dedupe", time.Minute)
	if err != runlock.ErrHeld {
		t.Fatalf("expected ErrHeld, got %v", err)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release error: %v", err)
	}
}

func TestRelease_DeletesOwnedKey(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()

	lock, err := runlock.Acquire(ctx, rdb, "dbmaint:dedupe", time.Minute)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release error: %v", err)
	}

	if _, held := rdb.get("dbmaint:dedupe"); held {
		t.Fatalf("key should be gone after release")
	}
	if !rdb.closed {
		t.Fatalf("client should be closed after release")
	}
}

func TestRelease_WrongTokenLeavesKey(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()

	lock, err := runlock.Acquire(ctx, rdb, "dbmaint:dedupe", time.Minute)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	// the TTL lapsed and another run took the key
	rdb.mu.Lock()
	rdb.values["dbmaint:dedupe"] = "someone-elses-token"
	rdb.mu.Unlock()

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release error: %v", err)
	}

	if _, held := rdb.get("dbmaint:dedupe"); !held {
		t.Fatalf("release with a stale token must not delete the key")
	}
}

func TestLock_ReleasedWhenGuardedRunFails(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()

	// mirror the command shape: acquire, defer release, bail with a
	// failure code. The deferred release must complete before the caller
	// turns the code into a process exit.
	code := func() int {
		lock, err := runlock.Acquire(ctx, rdb, "dbmaint:dedupe", time.Minute)
		if err != nil {
			t.Fatalf("Acquire error: %v", err)
		}

		defer func() {
			if err := lock.Release(ctx); err != nil {
				t.Errorf("Release error: %v", err)
			}
		}()

		return 1
	}()

	if code != 1 {
		t.Fatalf("expected failure code 1, got %d", code)
	}
	if _, held := rdb.get("dbmaint:dedupe"); held {
		t.Fatalf("failed run left the lock held; immediate rerun would be refused")
	}
}

// newSharedFake wraps an existing fake so a second Acquire sees the same
// keys but its Close does not mark the first client closed.
func newSharedFake(base *fakeRedis) *fakeRedis {
	return &fakeRedis{values: base.values}
}
