package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestKey(t *testing.T) {
	a := Key("quiz", "prompt one")
	b := Key("quiz", "prompt one")
	c := Key("quiz", "prompt two")
	d := Key("simplify", "prompt one")

	if a != b {
		t.Errorf("Expected stable key, got %q and %q", a, b)
	}
	if a == c {
		t.Errorf("Expected different prompts to produce different keys")
	}
	if a == d {
		t.Errorf("Expected different kinds to produce different keys")
	}
	if !strings.HasPrefix(a, "gen:quiz:") || len(a) != len("gen:quiz:")+64 {
		t.Errorf("unexpected key format %q", a)
	}
}

func TestGenerationCache_Disabled(t *testing.T) {
	var nilCache *GenerationCache
	var dst map[string]any
	if nilCache.Get(context.Background(), "quiz", "p", &dst) {
		t.Fatalf("nil cache must always miss")
	}
	nilCache.Set(context.Background(), "quiz", "p", map[string]int{"a": 1})

	zeroTTL := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0, zap.NewNop())
	if zeroTTL.Get(context.Background(), "quiz", "p", &dst) {
		t.Fatalf("zero TTL cache must always miss")
	}
}

func TestGenerationCache_RedisDownIsAMiss(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	c := New(rdb, time.Minute, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c.Set(ctx, "quiz", "p", map[string]int{"a": 1})

	var dst map[string]int
	if c.Get(ctx, "quiz", "p", &dst) {
		t.Fatalf("expected miss when redis is unreachable")
	}
}
