package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/socialauth/internal/cache"
)

func newTestCodes(t *testing.T) *Codes {
	t.Helper()
	return NewCodes(cache.NewMemory("codes-test", time.Minute), time.Minute)
}

func TestIssueAndRedeem(t *testing.T) {
	codes := newTestCodes(t)
	ctx := context.Background()

	in := Payload{
		UserID:   "u-1",
		Email:    "jane@example.com",
		Provider: "google",
		Token:    "jwt-token",
		Created:  true,
	}
	code, err := codes.Issue(ctx, in)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if code == "" {
		t.Fatalf("empty code")
	}

	out, err := codes.Redeem(ctx, code)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if *out != in {
		t.Fatalf("payload round trip: got %+v want %+v", out, in)
	}
}

func TestRedeem_SingleUse(t *testing.T) {
	codes := newTestCodes(t)
	ctx := context.Background()

	code, _ := codes.Issue(ctx, Payload{UserID: "u-1", Provider: "github", Token: "t"})
	if _, err := codes.Redeem(ctx, code); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if _, err := codes.Redeem(ctx, code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("second redeem should fail, got %v", err)
	}
}

// Dos canjes concurrentes del mismo code: exactamente uno gana.
func TestRedeem_ConcurrentSingleWinner(t *testing.T) {
	codes := newTestCodes(t)
	ctx := context.Background()

	code, err := codes.Issue(ctx, Payload{UserID: "u-1", Provider: "google", Token: "t"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const n = 8
	var won int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := codes.Redeem(ctx, code); err == nil {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if won != 1 {
		t.Fatalf("redeem winners = %d, want 1", won)
	}
}

func TestRedeem_UnknownOrEmpty(t *testing.T) {
	codes := newTestCodes(t)
	ctx := context.Background()

	if _, err := codes.Redeem(ctx, "nope"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("unknown code: %v", err)
	}
	if _, err := codes.Redeem(ctx, ""); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("empty code: %v", err)
	}
}

func TestIssue_CodesAreUnique(t *testing.T) {
	codes := newTestCodes(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		code, err := codes.Issue(ctx, Payload{UserID: "u", Provider: "google"})
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if seen[code] {
			t.Fatalf("code repeated")
		}
		seen[code] = true
	}
}
