package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
)

func fastRetry(maxRetries int) RetryConfig {
	return RetryConfig{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryHealthCheck(t *testing.T) {
	notServing := status.Error(codes.Unavailable, "recognizer status NOT_SERVING")
	badService := status.Error(codes.NotFound, "unknown service")

	tests := []struct {
		name      string
		results   []error // per attempt; nil means serving
		retries   int
		wantCalls int
		wantErr   error
	}{
		{"serving at once", []error{nil}, 3, 1, nil},
		{"comes up after warmup", []error{notServing, notServing, nil}, 3, 3, nil},
		{"never comes up", []error{notServing, notServing, notServing}, 2, 3, notServing},
		{"unknown service is final", []error{badService, nil}, 5, 1, badService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fastRetry(tt.retries), func() error {
				r := tt.results[min(calls, len(tt.results)-1)]
				calls++
				return r
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Retry() = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryStopsWhenStartupCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Retry(ctx, RetryConfig{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}, func() error {
		return status.Error(codes.Unavailable, "starting")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Retry() = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Retry kept waiting %v after cancellation", elapsed)
	}
}

func TestIsRetryableGRPC(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", status.Error(codes.Unavailable, "x"), true},
		{"deadline", status.Error(codes.DeadlineExceeded, "x"), true},
		{"internal", status.Error(codes.Internal, "x"), true},
		{"invalid argument", status.Error(codes.InvalidArgument, "x"), false},
		{"not found", status.Error(codes.NotFound, "x"), false},
		{"plain error", errors.New("dial tcp: refused"), true},
		{"recognizer unavailable", apperrors.New(apperrors.CodeRecognitionUnavailable, "down"), true},
		{"invalid frame", apperrors.New(apperrors.CodeFrameInvalid, "bad"), false},
		{"breaker open", ErrOpen, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableGRPC(tt.err); got != tt.want {
				t.Errorf("IsRetryableGRPC(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestReadinessRetryConfig(t *testing.T) {
	cfg := ReadinessRetryConfig()
	if cfg.MaxRetries != ReadinessMaxRetries || cfg.BaseDelay != ReadinessBaseDelay || cfg.MaxDelay != ReadinessMaxDelay {
		t.Errorf("ReadinessRetryConfig() = %+v", cfg)
	}
	if cfg.IsRetryable == nil {
		t.Error("IsRetryable not set")
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for attempt, w := range want {
		if got := backoffDelay(cfg, attempt); got != w {
			t.Errorf("attempt %d delay = %v, want %v", attempt, got, w)
		}
	}

	cfg.JitterFactor = 0.2
	for i := 0; i < 20; i++ {
		if d := backoffDelay(cfg, 0); d < 90*time.Millisecond || d > 110*time.Millisecond {
			t.Fatalf("jittered delay %v outside ±10%%", d)
		}
	}
}
