// Package grpc exposes the authentication core over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/logging"
	"github.com/dmitrijs2005/shieldauth/internal/server/auth"
	"github.com/dmitrijs2005/shieldauth/internal/server/gemini"
	"github.com/dmitrijs2005/shieldauth/internal/server/services"
	"google.golang.org/grpc"
)

// Analyzer is the OCR and dark-pattern collaborator.
type Analyzer interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
	AnalyzeText(ctx context.Context, text string) (*gemini.Analysis, error)
}

type GRPCServer struct {
	address        string
	auth           *services.AuthService
	analyzer       Analyzer
	guard          *auth.Guard
	logger         logging.Logger
	ticketSecret   []byte
	ticketValidity time.Duration
}

func NewGRPCServer(a string, l logging.Logger, as *services.AuthService, an Analyzer, secretKey string, ticketValidity time.Duration) *GRPCServer {
	logger := l.With("module", "grpc_server")
	return &GRPCServer{
		address:        a,
		auth:           as,
		analyzer:       an,
		guard:          auth.NewGuard(as, l),
		logger:         logger,
		ticketSecret:   []byte(secretKey),
		ticketValidity: ticketValidity,
	}
}

// NewServer builds a grpc.Server with the interceptors and service registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.sessionInterceptor))
	srv.RegisterService(&ServiceDesc, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
