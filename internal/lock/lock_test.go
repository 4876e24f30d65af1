package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocal_Exclusive(t *testing.T) {
	l := NewLocal()
	var (
		inside  atomic.Int32
		overlap atomic.Bool
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(context.Background(), "k")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			if inside.Add(1) != 1 {
				overlap.Store(true)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			release()
		}()
	}
	wg.Wait()
	if overlap.Load() {
		t.Error("two holders at once")
	}
	if n := l.held(); n != 0 {
		t.Errorf("entries left = %d", n)
	}
}

func TestLocal_KeysIndependent(t *testing.T) {
	l := NewLocal()
	r1, err := l.Lock(context.Background(), Key("a", "m"))
	if err != nil {
		t.Fatal(err)
	}
	defer r1()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r2, err := l.Lock(ctx, Key("b", "m"))
	if err != nil {
		t.Fatalf("independent key blocked: %v", err)
	}
	r2()
}

func TestLocal_ContextCancel(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}

	release()
	release() // idempotent
	if n := l.held(); n != 0 {
		t.Errorf("entries left = %d", n)
	}
}

func TestRedis_Exclusive(t *testing.T) {
	addr := os.Getenv("ADAPTLY_TEST_REDIS")
	if addr == "" {
		t.Skip("ADAPTLY_TEST_REDIS not set")
	}
	client, err := DialRedis(t.Context(), addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	l := NewRedis(client, RedisConfig{TTL: time.Second, Retry: 5 * time.Millisecond}, nil)
	key := Key("test", t.Name())
	release, err := l.Lock(t.Context(), key)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, key); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second holder err = %v", err)
	}

	release()
	again, err := l.Lock(t.Context(), key)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	again()
}
