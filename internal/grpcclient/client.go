package grpcclient

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/recognition"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/resilience"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/trace"
)

// Client is a recognition.Engine backed by a remote recognizer service.
type Client struct {
	conn       *grpc.ClientConn
	recognizer RecognizerClient
	health     healthpb.HealthClient
	breaker    *resilience.Breaker
}

var _ recognition.Engine = (*Client)(nil)

// New creates a client for the recognizer at addr. The connection is
// established lazily; use WaitReady to block until the service is serving.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                DefaultKeepaliveTime,
			Timeout:             DefaultKeepaliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithChainUnaryInterceptor(trace.UnaryClientInterceptor()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(MaxMessageBytes),
			grpc.MaxCallRecvMsgSize(MaxMessageBytes),
		),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeRecognitionUnavailable, "dial recognizer")
	}

	return &Client{
		conn:       conn,
		recognizer: NewRecognizerClient(conn),
		health:     healthpb.NewHealthClient(conn),
		breaker:    resilience.New(resilience.RecognitionConfig()),
	}, nil
}

// Close closes the gRPC connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// BreakerSnapshot reports the circuit breaker guarding recognition calls.
func (c *Client) BreakerSnapshot() resilience.Snapshot { return c.breaker.Snapshot() }

// Recognize sends the frame to the remote recognizer. The frame is not
// released.
func (c *Client) Recognize(ctx context.Context, f *camera.Frame) (*recognition.Document, error) {
	if !f.HasImage() {
		return nil, apperrors.New(apperrors.CodeFrameInvalid, "frame has no image")
	}

	ctx, span := trace.StartSpan(ctx, "grpc.recognize")
	span.SetAttr("bytes", len(f.Data))
	defer span.End()

	req := &RecognizeRequest{
		Image:       f.Data,
		Format:      f.Format,
		Width:       f.Width,
		Height:      f.Height,
		Rotation:    f.Rotation,
		TimestampMs: f.Timestamp.UnixMilli(),
	}
	// Cancelled calls and rejected frames do not count against the breaker.
	resp, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) (*RecognizeResponse, error) {
		return c.recognizer.Recognize(ctx, req)
	})
	if err != nil {
		span.SetAttr("error", err.Error())
		if errors.Is(err, resilience.ErrOpen) {
			return nil, apperrors.Wrap(err, apperrors.CodeRecognitionUnavailable, "recognizer circuit open")
		}
		return nil, apperrors.FromGRPCError(err)
	}
	if resp.Document == nil {
		return &recognition.Document{}, nil
	}
	span.SetAttr("elements", resp.Document.ElementCount())
	return resp.Document, nil
}

// Ready performs a single health check against the recognizer service.
func (c *Client) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return err
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return status.Errorf(codes.Unavailable, "recognizer status %s", resp.GetStatus())
	}
	return nil
}

// WaitReady polls the health service with backoff until it reports serving.
func (c *Client) WaitReady(ctx context.Context, cfg resilience.RetryConfig) error {
	if err := resilience.Retry(ctx, cfg, func() error { return c.Ready(ctx) }); err != nil {
		return apperrors.Wrap(err, apperrors.CodeRecognitionUnavailable, "recognizer not ready")
	}
	return nil
}
