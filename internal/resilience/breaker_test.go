package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
)

var (
	errDown     = status.Error(codes.Unavailable, "recognizer down")
	errBadFrame = apperrors.New(apperrors.CodeFrameInvalid, "corrupt jpeg")
)

func call(b *Breaker, err error) error {
	_, got := Call(context.Background(), b, func(context.Context) (int, error) { return 1, err })
	return got
}

func TestClassifyOutage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"ok", nil, Healthy},
		{"context canceled", context.Canceled, Ignored},
		{"wrapped deadline", fmt.Errorf("recognize: %w", context.DeadlineExceeded), Ignored},
		{"grpc canceled", status.Error(codes.Canceled, "stop"), Ignored},
		{"grpc unavailable", errDown, Outage},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "slow"), Outage},
		{"grpc internal", status.Error(codes.Internal, "panic"), Outage},
		{"recognizer unavailable", apperrors.New(apperrors.CodeRecognitionUnavailable, "no engine"), Outage},
		{"invalid frame", errBadFrame, Healthy},
		{"recognition failed", apperrors.New(apperrors.CodeRecognitionFailed, "tesseract"), Healthy},
		{"grpc invalid argument", status.Error(codes.InvalidArgument, "bad"), Healthy},
		{"frame invalid over grpc", errBadFrame.GRPCStatus().Err(), Healthy},
		{"resource exhausted", status.Error(codes.ResourceExhausted, "too big"), Healthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyOutage(tt.err); got != tt.want {
				t.Errorf("ClassifyOutage(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestBreakerOpensOnConsecutiveOutages(t *testing.T) {
	b := New(Config{Name: "test", Threshold: 3, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	for i := 0; i < 3; i++ {
		if err := call(b, errDown); !errors.Is(err, errDown) {
			t.Fatalf("call %d = %v, want the dependency error", i, err)
		}
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}

	ran := false
	_, err := Call(context.Background(), b, func(context.Context) (int, error) { ran = true; return 0, nil })
	if !errors.Is(err, ErrOpen) || ran {
		t.Errorf("open breaker: err = %v ran = %v, want ErrOpen without calling", err, ran)
	}

	s := b.Snapshot()
	if s.Status != "open" || s.Opens != 1 || s.Rejected != 1 || s.OpenedAt.IsZero() {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestBreakerIgnoresRequestErrors(t *testing.T) {
	b := New(RecognitionConfig())
	for i := 0; i < 10; i++ {
		_ = call(b, errBadFrame)
	}
	if b.State() != Closed {
		t.Errorf("state = %v after rejected frames, want closed", b.State())
	}
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	b := New(RecognitionConfig())
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := Call(ctx, b, func(ctx context.Context) (int, error) {
			cancel()
			<-ctx.Done()
			// Transports report cancellation with their own error types.
			return 0, status.Error(codes.Unavailable, "transport closing")
		})
		if err == nil {
			t.Fatal("expected error")
		}
	}
	if b.State() != Closed {
		t.Errorf("state = %v after cancelled calls, want closed", b.State())
	}
	if s := b.Snapshot(); s.Failures != 0 {
		t.Errorf("failures = %d, want 0", s.Failures)
	}
}

func TestBreakerHealthyAnswerResetsCount(t *testing.T) {
	b := New(Config{Threshold: 3, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	_ = call(b, errDown)
	_ = call(b, errDown)
	_ = call(b, errBadFrame) // the recognizer answered
	_ = call(b, errDown)
	_ = call(b, errDown)

	if b.State() != Closed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreakerRecovery(t *testing.T) {
	tests := []struct {
		name   string
		probes []error
		want   State
	}{
		{"closes after healthy probes", []error{nil, nil}, Closed},
		{"stays half-open until enough probes", []error{nil}, HalfOpen},
		{"reopens on outage probe", []error{errDown}, Open},
		{"cancelled probe changes nothing", []error{context.Canceled}, HalfOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(Config{Threshold: 1, ResetTimeout: time.Millisecond, HalfOpenSuccesses: 2})
			_ = call(b, errDown)
			time.Sleep(5 * time.Millisecond)

			for _, p := range tt.probes {
				_ = call(b, p)
			}
			if b.State() != tt.want {
				t.Errorf("state = %v, want %v", b.State(), tt.want)
			}
		})
	}
}

func TestBreakerCustomClassifier(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Hour, Classify: func(err error) Outcome {
		if apperrors.IsCode(err, apperrors.CodeFrameInvalid) {
			return Outage
		}
		return Healthy
	}})
	_ = call(b, errBadFrame)
	if b.State() != Open {
		t.Errorf("state = %v, want open", b.State())
	}
}

func TestBreakerConcurrentTrip(t *testing.T) {
	b := New(Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = call(b, errDown)
		}()
	}
	wg.Wait()

	if s := b.Snapshot(); s.Opens != 1 {
		t.Errorf("opens = %d, want exactly one trip", s.Opens)
	}
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{Closed: "closed", Open: "open", HalfOpen: "half-open"} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	if cfg.Name != "default" || cfg.Threshold != DefaultThreshold ||
		cfg.ResetTimeout != DefaultResetTimeout || cfg.HalfOpenSuccesses != DefaultHalfOpenSuccesses {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Classify == nil {
		t.Error("Classify not defaulted")
	}
}

func TestRecognitionConfig(t *testing.T) {
	b := New(RecognitionConfig())
	if b.Name() != "recognition" {
		t.Errorf("Name() = %q, want recognition", b.Name())
	}
	for i := 0; i < RecognitionThreshold; i++ {
		_ = call(b, errDown)
	}
	if b.State() != Open {
		t.Errorf("state = %v, want open after %d outages", b.State(), RecognitionThreshold)
	}
}
