package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	core "github.com/LeonardoBeccarini/soil_advisor/internal/advisor"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/entities"
	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
)

// Il servizio usa google.protobuf.Struct come messaggio, niente codice generato:
//
//	service Advisor {
//	  rpc Evaluate(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Recommend(google.protobuf.Struct) returns (google.protobuf.Struct);
//	}
//
// Request fields: "reading" (board JSON, optional: the stored reading is used
// when absent), "max", "top".
const (
	GRPCServiceName     = "soiladvisor.Advisor"
	evaluateFullMethod  = "/" + GRPCServiceName + "/Evaluate"
	recommendFullMethod = "/" + GRPCServiceName + "/Recommend"
)

// AdvisorServer is the server API of soiladvisor.Advisor.
type AdvisorServer interface {
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Recommend(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var advisorServiceDesc = grpc.ServiceDesc{
	ServiceName: GRPCServiceName,
	HandlerType: (*AdvisorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: unaryHandler(evaluateFullMethod, AdvisorServer.Evaluate)},
		{MethodName: "Recommend", Handler: unaryHandler(recommendFullMethod, AdvisorServer.Recommend)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "soiladvisor.proto",
}

type unaryMethod func(AdvisorServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AdvisorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AdvisorServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// RegisterAdvisorServer registers srv plus the standard health service.
func RegisterAdvisorServer(s *grpc.Server, srv AdvisorServer) *health.Server {
	s.RegisterService(&advisorServiceDesc, srv)
	hs := health.NewServer()
	hs.SetServingStatus(GRPCServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// GrpcHandler implements AdvisorServer on top of Service.
type GrpcHandler struct {
	svc *Service
}

func NewGrpcHandler(svc *Service) *GrpcHandler { return &GrpcHandler{svc: svc} }

func (h *GrpcHandler) Evaluate(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := h.readingFrom(req)
	if err != nil {
		return nil, err
	}
	max := intField(req, "max", core.MaxIssues)
	top := intField(req, "top", core.DefaultTopN)
	return toStruct(h.svc.Evaluate(r, max, top))
}

func (h *GrpcHandler) Recommend(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := h.readingFrom(req)
	if err != nil {
		return nil, err
	}
	top := intField(req, "top", core.DefaultTopN)
	return toStruct(map[string]any{"recommendations": core.Recommend(r, h.svc.crops, top)})
}

func (h *GrpcHandler) readingFrom(req *structpb.Struct) (entities.Reading, error) {
	v, ok := req.GetFields()["reading"]
	if !ok || v.GetStructValue() == nil {
		r, _, have := h.svc.Latest()
		if !have {
			return entities.Reading{}, status.Error(codes.FailedPrecondition, ErrNoReading.Error())
		}
		return r, nil
	}
	raw, err := protojson.Marshal(v.GetStructValue())
	if err != nil {
		return entities.Reading{}, status.Errorf(codes.InvalidArgument, "reading: %v", err)
	}
	var sr messages.SoilReading
	if err := json.Unmarshal(raw, &sr); err != nil {
		return entities.Reading{}, status.Errorf(codes.InvalidArgument, "reading: %v", err)
	}
	return sr.ToReading(), nil
}

func intField(req *structpb.Struct, key string, def int) int {
	v, ok := req.GetFields()[key]
	if !ok {
		return def
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return def
	}
	return int(v.GetNumberValue())
}

// round trip via JSON: structpb accetta solo tipi JSON nativi
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}

// Client calls a remote advisor.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client { return &Client{conn: conn} }

// Evaluate sends sr (nil = use the server's stored reading).
func (c *Client) Evaluate(ctx context.Context, sr *messages.SoilReading, max, top int) (Evaluation, error) {
	req, err := buildRequest(sr, max, top)
	if err != nil {
		return Evaluation{}, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, evaluateFullMethod, req, out); err != nil {
		return Evaluation{}, err
	}
	var ev Evaluation
	if err := fromStruct(out, &ev); err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

func (c *Client) Recommend(ctx context.Context, sr *messages.SoilReading, top int) ([]core.Suitability, error) {
	req, err := buildRequest(sr, -1, top)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, recommendFullMethod, req, out); err != nil {
		return nil, err
	}
	var resp struct {
		Recommendations []core.Suitability `json:"recommendations"`
	}
	if err := fromStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Recommendations, nil
}

func buildRequest(sr *messages.SoilReading, max, top int) (*structpb.Struct, error) {
	fields := map[string]any{"top": top}
	if max >= 0 {
		fields["max"] = max
	}
	if sr != nil {
		b, err := json.Marshal(sr)
		if err != nil {
			return nil, fmt.Errorf("encode reading: %w", err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("encode reading: %w", err)
		}
		fields["reading"] = m
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
