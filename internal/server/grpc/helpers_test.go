package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/cryptox"
	"github.com/dmitrijs2005/shieldauth/internal/logging"
	"github.com/dmitrijs2005/shieldauth/internal/server/gemini"
	"github.com/dmitrijs2005/shieldauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/shieldauth/internal/server/services"
	"github.com/dmitrijs2005/shieldauth/internal/shared"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const testSecret = "test-ticket-secret"

type fakeAnalyzer struct {
	text     string
	analysis *gemini.Analysis
	err      error
}

func (f *fakeAnalyzer) ExtractText(ctx context.Context, image []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if len(image) == 0 {
		return "", gemini.ErrEmptyImage
	}
	return f.text, nil
}

func (f *fakeAnalyzer) AnalyzeText(ctx context.Context, text string) (*gemini.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

type testServer struct {
	srv  *GRPCServer
	auth *services.AuthService
	conn *grpc.ClientConn
}

func newTestServer(t *testing.T, an Analyzer) *testServer {
	t.Helper()
	ctx := context.Background()

	db, rm, err := repomanager.Open(ctx, repomanager.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cipher, err := cryptox.NewSecretCipher("test-encryption-key")
	require.NoError(t, err)

	as := services.NewAuthService(db, rm, cipher, logging.Nop())
	if an == nil {
		an = &fakeAnalyzer{}
	}
	s := NewGRPCServer("bufnet", logging.Nop(), as, an, testSecret, time.Minute)

	lis := bufconn.Listen(1 << 20)
	srvCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(srvCtx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &testServer{srv: s, auth: as, conn: conn}
}

func (ts *testServer) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := ts.conn.Invoke(ctx, shared.FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func bearer(token string) context.Context {
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}
