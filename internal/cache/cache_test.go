package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

// exerciseClient corre el contrato de Client contra cualquier backend.
func exerciseClient(t *testing.T, c Client) {
	t.Helper()
	ctx := context.Background()

	if _, err := c.Get(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("Get missing: want not-found, got %v", err)
	}

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("Get: %v / %q", err, got)
	}

	ok, err := c.Exists(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Exists: %v / %v", err, ok)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("deleted key should be gone, got %v", err)
	}

	// Delete de una key inexistente no es error.
	if err := c.Delete(ctx, "never-was"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}

	// Take consume en un solo paso: el segundo Take no ve nada.
	if err := c.Set(ctx, "once", "only", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err = c.Take(ctx, "once")
	if err != nil || got != "only" {
		t.Fatalf("Take: %v / %q", err, got)
	}
	if _, err := c.Take(ctx, "once"); !IsNotFound(err) {
		t.Fatalf("second Take should be not-found, got %v", err)
	}
	if _, err := c.Get(ctx, "once"); !IsNotFound(err) {
		t.Fatalf("taken key should be gone, got %v", err)
	}

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestMemoryClient_Contract(t *testing.T) {
	c := NewMemory("test", time.Minute)
	defer c.Close()
	exerciseClient(t, c)
}

// De N Take concurrentes sobre la misma key, exactamente uno gana.
func TestMemoryClient_TakeIsSingleWinner(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("take-test", time.Minute)
	defer c.Close()

	if err := c.Set(ctx, "contested", "prize", time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	const n = 16
	var won int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := c.Take(ctx, "contested"); err == nil {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if won != 1 {
		t.Fatalf("winners = %d, want 1", won)
	}
}

func TestMemoryClient_PrefixIsolation(t *testing.T) {
	ctx := context.Background()
	a := NewMemory("a", time.Minute)
	b := NewMemory("b", time.Minute)

	_ = a.Set(ctx, "k", "from-a", time.Minute)
	if _, err := b.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("prefixes should not collide across instances: %v", err)
	}
}

func TestRedisClient_Contract(t *testing.T) {
	srv := miniredis.RunT(t)
	port, _ := strconv.Atoi(srv.Port())

	c, err := NewRedis(Config{
		Host:   srv.Host(),
		Port:   port,
		Prefix: "sa",
	})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	exerciseClient(t, c)
}

func TestRedisClient_TTLExpiry(t *testing.T) {
	srv := miniredis.RunT(t)
	port, _ := strconv.Atoi(srv.Port())

	c, err := NewRedis(Config{Host: srv.Host(), Port: port})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "ephemeral", "x", 5*time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// miniredis avanza el reloj sin dormir.
	srv.FastForward(6 * time.Second)

	if _, err := c.Get(ctx, "ephemeral"); !IsNotFound(err) {
		t.Fatalf("expired key should be not-found, got %v", err)
	}
}

func TestRedisClient_DefaultTTLOnZero(t *testing.T) {
	srv := miniredis.RunT(t)
	port, _ := strconv.Atoi(srv.Port())

	c, err := NewRedis(Config{Host: srv.Host(), Port: port, DefaultTTL: 30 * time.Second})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	// Antes del default TTL sigue viva, después no.
	srv.FastForward(10 * time.Second)
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("key should still exist: %v", err)
	}
	srv.FastForward(30 * time.Second)
	if _, err := c.Get(ctx, "k"); !IsNotFound(err) {
		t.Fatalf("key should expire at default TTL, got %v", err)
	}
}

func TestNew_FactorySelectsDriver(t *testing.T) {
	c, err := New(Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("New memory: %v", err)
	}
	_ = c.Close()

	if _, err := New(Config{Driver: "memcached"}); err == nil {
		t.Fatalf("unknown driver should fail")
	}
}
