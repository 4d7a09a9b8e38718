package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/carpoolnetwork/trust-service/internal/application"
	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName          = "trust.v1.TrustInternalService"
	getTrustScoreMethod  = "GetTrustScore"
	GetTrustScoreFullRPC = "/" + serviceName + "/" + getTrustScoreMethod
)

type TrustScorer interface {
	GetTrustScore(ctx context.Context, userID uuid.UUID) (application.TrustScoreResponse, error)
}

// TrustInternalServiceServer is the server contract for the service
// descriptor below.
type TrustInternalServiceServer interface {
	GetTrustScore(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

// TrustInternalServer exposes score lookups to other services. Messages are
// protobuf well-known types so no generated stubs are needed.
type TrustInternalServer struct {
	service TrustScorer
}

func NewTrustInternalServer(service TrustScorer) *TrustInternalServer {
	return &TrustInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc TrustInternalServiceServer) {
	server.RegisterService(&serviceDesc, svc)
}

func (s *TrustInternalServer) GetTrustScore(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	userID, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid user_id")
	}
	resp, err := s.service.GetTrustScore(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := toStruct(resp)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode trust score")
	}
	return out, nil
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "trust profile not found")
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, domain.ErrDependencyUnavailable), errors.Is(err, domain.ErrStorageUnavailable):
		return status.Error(codes.Unavailable, "dependency unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func getTrustScoreHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TrustInternalServiceServer).GetTrustScore(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetTrustScoreFullRPC,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TrustInternalServiceServer).GetTrustScore(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*TrustInternalServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: getTrustScoreMethod, Handler: getTrustScoreHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "trust/v1/trust_internal.proto",
}

// Client is a thin caller for GetTrustScore, used by peers and tests.
type Client struct {
	conn grpc.ClientConnInterface
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) GetTrustScore(ctx context.Context, userID string) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, GetTrustScoreFullRPC, wrapperspb.String(userID), out); err != nil {
		return nil, err
	}
	return out, nil
}
