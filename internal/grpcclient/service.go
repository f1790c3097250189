package grpcclient

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/GriffinCanCode/codefinder/backend/platform/internal/camera"
	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/recognition"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/trace"
)

// Service identifiers.
const (
	ServiceName     = "codefinder.v1.Recognizer"
	RecognizeMethod = "/" + ServiceName + "/Recognize"
)

// RecognizeRequest carries one encoded frame.
type RecognizeRequest struct {
	Image       []byte `json:"image"`
	Format      string `json:"format,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Rotation    int    `json:"rotation,omitempty"`
	TimestampMs int64  `json:"timestamp_ms,omitempty"`
}

// RecognizeResponse carries the recognized document.
type RecognizeResponse struct {
	Document *recognition.Document `json:"document"`
}

// RecognizerServer is the server API for the recognizer service.
type RecognizerServer interface {
	Recognize(context.Context, *RecognizeRequest) (*RecognizeResponse, error)
}

// RecognizerClient is the client API for the recognizer service.
type RecognizerClient interface {
	Recognize(ctx context.Context, in *RecognizeRequest, opts ...grpc.CallOption) (*RecognizeResponse, error)
}

type recognizerClient struct {
	cc grpc.ClientConnInterface
}

// NewRecognizerClient creates a client stub on cc.
func NewRecognizerClient(cc grpc.ClientConnInterface) RecognizerClient {
	return &recognizerClient{cc: cc}
}

func (c *recognizerClient) Recognize(ctx context.Context, in *RecognizeRequest, opts ...grpc.CallOption) (*RecognizeResponse, error) {
	out := new(RecognizeResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, RecognizeMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func recognizeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RecognizeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RecognizerServer).Recognize(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RecognizeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RecognizerServer).Recognize(ctx, req.(*RecognizeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// RecognizerServiceDesc describes the recognizer service.
var RecognizerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecognizerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Recognize", Handler: recognizeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "codefinder/v1/recognizer",
}

// RegisterRecognizerServer registers srv on s.
func RegisterRecognizerServer(s grpc.ServiceRegistrar, srv RecognizerServer) {
	s.RegisterService(&RecognizerServiceDesc, srv)
}

// EngineService serves a recognition.Engine over gRPC.
type EngineService struct {
	engine recognition.Engine
}

// NewEngineService wraps engine as a RecognizerServer.
func NewEngineService(engine recognition.Engine) *EngineService {
	return &EngineService{engine: engine}
}

// Recognize implements RecognizerServer.
func (s *EngineService) Recognize(ctx context.Context, req *RecognizeRequest) (*RecognizeResponse, error) {
	if len(req.Image) == 0 {
		return nil, apperrors.New(apperrors.CodeFrameInvalid, "image is required")
	}

	ts := time.UnixMilli(req.TimestampMs)
	var f *camera.Frame
	if req.Width > 0 && req.Height > 0 {
		f = camera.NewFrame(req.Image, req.Format, req.Width, req.Height, req.Rotation, ts, nil)
	} else {
		var err error
		if f, err = camera.FromEncoded(req.Image, req.Rotation, ts, nil); err != nil {
			return nil, err
		}
	}
	defer f.Release()

	doc, err := s.engine.Recognize(ctx, f)
	if err != nil {
		trace.Logger(ctx).Warn("recognize failed", "error", err, "bytes", len(req.Image))
		if apperrors.CodeOf(err) == apperrors.CodeUnknown {
			return nil, apperrors.Wrap(err, apperrors.CodeRecognitionFailed, "recognize")
		}
		return nil, err
	}
	if doc == nil {
		doc = &recognition.Document{}
	}
	return &RecognizeResponse{Document: doc}, nil
}
