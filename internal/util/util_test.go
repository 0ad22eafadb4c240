package util

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, 1, func() error {
		return errors.New("always fails")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry with cancelled context: error = %v, want context.Canceled", err)
	}
}

func TestRateLimiterNew(t *testing.T) {
	rl := NewRateLimiter(60)
	if rl == nil {
		t.Fatal("NewRateLimiter returned nil")
	}
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait should succeed immediately: %v", err)
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(1)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("draining the initial token: %v", err)
	}

	// The bucket is empty and refills at one token per minute; a cancelled
	// context must end the wait instead of sleeping out the refill.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on empty bucket with cancelled context: error = %v, want context.Canceled", err)
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer

	log := NewLoggerTo(&buf, "info", "json")
	log.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("JSON logger output = %q, want JSON attributes", buf.String())
	}

	buf.Reset()
	log = NewLoggerTo(&buf, "warn", "text")
	log.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info record should be suppressed at warn level, got %q", buf.String())
	}
	log.Warn("shown", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("text logger output = %q, want key=value attributes", buf.String())
	}
}
