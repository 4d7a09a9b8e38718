package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/carpoolnetwork/trust-service/internal/application"
	"github.com/carpoolnetwork/trust-service/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type stubScorer struct {
	known uuid.UUID
	err   error
}

func (s stubScorer) GetTrustScore(_ context.Context, userID uuid.UUID) (application.TrustScoreResponse, error) {
	if s.err != nil {
		return application.TrustScoreResponse{}, s.err
	}
	if userID != s.known {
		return application.TrustScoreResponse{}, domain.ErrNotFound
	}
	return application.TrustScoreResponse{
		UserID:            userID.String(),
		Total:             57,
		Max:               domain.MaxTrustScore,
		Incomplete:        true,
		UnknownCategories: []string{"driver_license"},
		Categories: []application.TrustCategoryView{
			{Key: "email_verification", Earned: 10, Cap: 10, Status: "complete"},
		},
		CalculatedAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func dialServer(t *testing.T, scorer TrustScorer) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, NewTrustInternalServer(scorer))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestGetTrustScoreReturnsStruct(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	client := dialServer(t, stubScorer{known: userID})

	out, err := client.GetTrustScore(context.Background(), userID.String())
	require.NoError(t, err)
	fields := out.GetFields()
	require.Equal(t, float64(57), fields["total"].GetNumberValue())
	require.True(t, fields["incomplete"].GetBoolValue())
	require.Len(t, fields["categories"].GetListValue().GetValues(), 1)
	require.Equal(t, "driver_license", fields["unknown_categories"].GetListValue().GetValues()[0].GetStringValue())
}

func TestGetTrustScoreStatusCodes(t *testing.T) {
	t.Parallel()

	client := dialServer(t, stubScorer{known: uuid.New()})

	_, err := client.GetTrustScore(context.Background(), "not-a-uuid")
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetTrustScore(context.Background(), uuid.NewString())
	require.Equal(t, codes.NotFound, status.Code(err))

	down := dialServer(t, stubScorer{err: domain.ErrStorageUnavailable})
	_, err = down.GetTrustScore(context.Background(), uuid.NewString())
	require.Equal(t, codes.Unavailable, status.Code(err))
}
