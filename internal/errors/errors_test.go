package errors

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("socket closed")
	err := Wrap(cause, CodeRecognitionFailed, "recognize frame").WithMetadata("frame", "42")

	msg := err.Error()
	for _, want := range []string{"[RECOGNITION_FAILED]", "recognize frame", "frame:42", "socket closed"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := New(CodeFrameInvalid, "bad header")
	wrapped := errors.Join(errors.New("context"), base)

	if !IsCode(wrapped, CodeFrameInvalid) {
		t.Error("IsCode should see through wrapping")
	}
	if IsCode(errors.New("plain"), CodeFrameInvalid) {
		t.Error("plain errors carry no code")
	}
	if CodeOf(nil) != CodeUnknown {
		t.Error("CodeOf(nil) should be UNKNOWN")
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	orig := Newf(CodeRecognitionUnavailable, "engine %s offline", "tesseract").WithMetadata("lang", "eng")

	grpcErr := orig.GRPCStatus().Err()
	if status.Code(grpcErr) != codes.Unavailable {
		t.Errorf("status code = %v, want Unavailable", status.Code(grpcErr))
	}

	got := FromGRPCError(grpcErr)
	if got.Code != CodeRecognitionUnavailable {
		t.Errorf("Code = %v, want RECOGNITION_UNAVAILABLE", got.Code)
	}
	if got.Message != "engine tesseract offline" {
		t.Errorf("Message = %q", got.Message)
	}
	if got.Metadata["lang"] != "eng" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestFromGRPCErrorFallback(t *testing.T) {
	tests := []struct {
		code codes.Code
		want Code
	}{
		{codes.InvalidArgument, CodeInvalidArgument},
		{codes.Unavailable, CodeUnavailable},
		{codes.DeadlineExceeded, CodeTimeout},
		{codes.Canceled, CodeCancelled},
		{codes.PermissionDenied, CodeUnknown},
	}

	for _, tt := range tests {
		got := FromGRPCError(status.Error(tt.code, "x"))
		if got.Code != tt.want {
			t.Errorf("FromGRPCError(%v).Code = %v, want %v", tt.code, got.Code, tt.want)
		}
	}

	if got := FromGRPCError(errors.New("plain")); got.Code != CodeUnknown {
		t.Errorf("plain error code = %v, want UNKNOWN", got.Code)
	}
	if FromGRPCError(nil) != nil {
		t.Error("FromGRPCError(nil) should be nil")
	}
}

func TestParseCode(t *testing.T) {
	for c, name := range codeNames {
		if got := ParseCode(name); got != c {
			t.Errorf("ParseCode(%q) = %v, want %v", name, got, c)
		}
	}
	if ParseCode("NOPE") != CodeUnknown {
		t.Error("unknown names should parse to UNKNOWN")
	}
	if Code(99).String() != "CODE_99" {
		t.Errorf("Code(99).String() = %q", Code(99).String())
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New(CodeUnavailable, "down")) {
		t.Error("UNAVAILABLE should be retryable")
	}
	if IsRetryable(New(CodeInvalidArgument, "bad")) {
		t.Error("INVALID_ARGUMENT should not be retryable")
	}
}
