package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("groq") {
			t.Fatalf("disabled limiter rejected request %d", i)
		}
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://www.gutenberg.org/files/1513/1513-0.txt"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "https://mirror.example.org/1513.txt"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "not a url"); err == nil {
		t.Error("expected error for url without host")
	}
}

func TestLimiter_PerKey(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("www.gutenberg.org") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("www.gutenberg.org") {
		t.Error("expected second request to be throttled")
	}
	if !limiter.Allow("groq") {
		t.Error("expected independent bucket for another key")
	}
}

func TestLimiter_WaitKeyCancelled(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	_ = limiter.Allow("groq")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.WaitKey(ctx, "groq"); err == nil {
		t.Error("expected error when context expires before a token is available")
	}
}

func TestLimiter_NilIsNoop(t *testing.T) {
	var limiter *Limiter
	if err := limiter.WaitKey(context.Background(), "anything"); err != nil {
		t.Errorf("nil limiter should not block, got %v", err)
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetRate("slow", 0.1, 1)

	if !limiter.Allow("slow") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("slow") {
		t.Error("expected override rate to throttle second request")
	}
	if !limiter.Allow("fast") {
		t.Error("expected default rate for other keys")
	}
}

func TestLimiter_Throttle(t *testing.T) {
	limiter := NewLimiter(0, 5)
	limiter.Throttle("www.gutenberg.org", time.Minute)

	if !limiter.Allow("www.gutenberg.org") {
		t.Fatal("first request should be allowed")
	}
	if limiter.Allow("www.gutenberg.org") {
		t.Error("expected throttled host to wait for the next interval")
	}
	if !limiter.Allow("mirror.example.org") {
		t.Error("expected other hosts to stay unlimited")
	}
}

func TestLimiter_ThrottleKeepsSlowerRate(t *testing.T) {
	limiter := NewLimiter(10, 1)
	limiter.SetRate("slow", 0.01, 1)
	limiter.Throttle("slow", time.Second)

	if got := limiter.getLimiter("slow").Limit(); got != 0.01 {
		t.Errorf("expected slower rate 0.01 to be kept, got %v", got)
	}

	var nilLimiter *Limiter
	nilLimiter.Throttle("anything", time.Second)
}
