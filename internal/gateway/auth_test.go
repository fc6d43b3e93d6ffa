package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/soyeahso/oagate/internal/signature"
	"github.com/stretchr/testify/assert"
)

// --- safeEqual tests ---

func TestSafeEqual_Match(t *testing.T) {
	assert.True(t, safeEqual("secret", "secret"))
}

func TestSafeEqual_Mismatch(t *testing.T) {
	assert.False(t, safeEqual("secret", "wrong"))
}

func TestSafeEqual_DifferentLengths(t *testing.T) {
	assert.False(t, safeEqual("short", "longer-string"))
}

func TestSafeEqual_BothEmpty(t *testing.T) {
	assert.True(t, safeEqual("", ""))
}

func TestSafeEqual_OneEmpty(t *testing.T) {
	assert.False(t, safeEqual("secret", ""))
	assert.False(t, safeEqual("", "secret"))
}

// --- authRateLimiter tests ---

func TestAuthRateLimiter_AllowInitial(t *testing.T) {
	limiter := newAuthRateLimiter()
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_AllowAfterFewFailures(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < 5; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_BlockAfterMaxFailures(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.False(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_DifferentIPs(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}

	// Different IP should still be allowed
	assert.True(t, limiter.allow("192.168.1.2:12345"))
}

func TestAuthRateLimiter_IPWithoutPort(t *testing.T) {
	limiter := newAuthRateLimiter()

	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1")
	}
	assert.False(t, limiter.allow("192.168.1.1"))
}

func TestAuthRateLimiter_ExpiredFailures(t *testing.T) {
	limiter := newAuthRateLimiter()

	// Add old failures (before the window)
	limiter.mu.Lock()
	host := "192.168.1.1"
	oldTime := time.Now().Add(-authRateWindow - time.Minute)
	for i := 0; i < authRateMaxFails; i++ {
		limiter.failures[host] = append(limiter.failures[host], oldTime)
	}
	limiter.mu.Unlock()

	// Old failures should be cleaned up, so allow should return true
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_Cleanup(t *testing.T) {
	limiter := newAuthRateLimiter()
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.recordFailure("10.0.0.1:1")
	limiter.recordFailure("10.0.0.2:1")
	now = now.Add(authRateWindow + time.Second)
	limiter.recordFailure("10.0.0.2:1")

	limiter.cleanup()
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.failures, "10.0.0.1")
	assert.Len(t, limiter.failures["10.0.0.2"], 1)
}

func TestAuthRateLimiter_RunStopsWithContext(t *testing.T) {
	limiter := newAuthRateLimiter()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestAuthRateLimiter_CapsTrackedIPs(t *testing.T) {
	limiter := newAuthRateLimiter()
	limiter.mu.Lock()
	base := time.Now()
	for i := 0; i < authRateMaxIPs; i++ {
		limiter.failures[fmt.Sprintf("ip-%d", i)] = []time.Time{base.Add(time.Duration(i))}
	}
	limiter.mu.Unlock()

	limiter.recordFailure("203.0.113.9:1")
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.failures, authRateMaxIPs)
	assert.Contains(t, limiter.failures, "203.0.113.9")
}

// --- verify tests ---

func TestVerify(t *testing.T) {
	in := signature.Inputs{Token: "tok", Timestamp: "1700000000", Nonce: "n1"}
	in.Signature = signature.Sign(in.Token, in.Timestamp, in.Nonce)
	assert.True(t, verify(in))

	in.Signature = in.Signature[:len(in.Signature)-1]
	assert.False(t, verify(in))

	in.Signature = ""
	assert.False(t, verify(in))
}
