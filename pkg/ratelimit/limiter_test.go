package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected request to be denied when bucket is empty")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(2, 50*time.Millisecond)

	tb.Allow()
	tb.Allow()
	if tb.Allow() {
		t.Error("Expected empty bucket to deny")
	}

	time.Sleep(60 * time.Millisecond)

	if !tb.Allow() {
		t.Error("Expected refilled bucket to allow")
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Minute)

	tb.Allow()
	if tb.Allow() {
		t.Error("Expected deny after capacity exhausted")
	}

	tb.Reset()
	if !tb.Allow() {
		t.Error("Expected allow after reset")
	}
}

func TestTokenBucketWaitCancellation(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow() // drain

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	if err == nil {
		t.Error("Expected context error from Wait on drained bucket")
	}
}

func TestSlidingWindowAllow(t *testing.T) {
	sw := NewSlidingWindow(2, time.Minute)

	if !sw.Allow() || !sw.Allow() {
		t.Error("Expected first two requests to be allowed")
	}
	if sw.Allow() {
		t.Error("Expected third request in window to be denied")
	}
}

func TestSlidingWindowExpiry(t *testing.T) {
	sw := NewSlidingWindow(1, 50*time.Millisecond)

	if !sw.Allow() {
		t.Error("Expected first request to be allowed")
	}
	if sw.Allow() {
		t.Error("Expected second request to be denied")
	}

	time.Sleep(60 * time.Millisecond)

	if !sw.Allow() {
		t.Error("Expected request after window expiry to be allowed")
	}
}

func TestSlidingWindowReset(t *testing.T) {
	sw := NewSlidingWindow(1, time.Minute)

	sw.Allow()
	sw.Reset()
	if !sw.Allow() {
		t.Error("Expected allow after reset")
	}
}

func TestPerMinute(t *testing.T) {
	tb := PerMinute(60, 10)

	allowed := 0
	for i := 0; i < 20; i++ {
		if tb.Allow() {
			allowed++
		}
	}
	if allowed != 10 {
		t.Errorf("Expected burst of 10 allowed, got %d", allowed)
	}
}
