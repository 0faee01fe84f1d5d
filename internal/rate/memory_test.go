package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_BlocksOverMax(t *testing.T) {
	t.Parallel()
	l := NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "ip1|/cli/login/initiate")
		if err != nil {
			t.Fatalf("Allow err: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d bloqueado antes del máximo", i)
		}
		if res.CurrentHits != int64(i) {
			t.Fatalf("CurrentHits = %d, quería %d", res.CurrentHits, i)
		}
	}

	res, err := l.Allow(ctx, "ip1|/cli/login/initiate")
	if err != nil {
		t.Fatalf("Allow err: %v", err)
	}
	if res.Allowed {
		t.Fatal("el cuarto hit debería bloquearse")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	l := NewMemoryLimiter(1, time.Hour)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "ip1"); !res.Allowed {
		t.Fatal("primer hit de ip1 debería pasar")
	}
	if res, _ := l.Allow(ctx, "ip1"); res.Allowed {
		t.Fatal("segundo hit de ip1 debería bloquearse")
	}
	if res, _ := l.Allow(ctx, "ip2"); !res.Allowed {
		t.Fatal("ip2 tiene su propia cuenta")
	}
}
