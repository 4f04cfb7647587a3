package grpcx

import (
	"context"
	"testing"

	"github.com/venturahq/ventura/internal/domain"
	"github.com/venturahq/ventura/internal/rpccontract"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func passthrough(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptorAllowsReadsWithoutToken(t *testing.T) {
	interceptor := AuthUnaryInterceptor("secret")
	out, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{
		FullMethod: rpccontract.MethodGetResult,
	}, passthrough)
	if err != nil || out != "ok" {
		t.Fatalf("read method blocked: %v", err)
	}
}

func TestAuthInterceptorRejectsWriteWithoutToken(t *testing.T) {
	interceptor := AuthUnaryInterceptor("secret")
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{
		FullMethod: rpccontract.MethodStartValidation,
	}, passthrough)
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %s", status.Code(err))
	}
}

func TestAuthInterceptorAcceptsHeaderToken(t *testing.T) {
	interceptor := AuthUnaryInterceptor("secret")
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-ventura-token", "secret"))
	out, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{
		FullMethod: rpccontract.MethodStartSwarm,
	}, passthrough)
	if err != nil || out != "ok" {
		t.Fatalf("token rejected: %v", err)
	}
}

func TestAuthInterceptorAcceptsBearerToken(t *testing.T) {
	interceptor := AuthUnaryInterceptor("secret")
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer secret"))
	out, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{
		FullMethod: rpccontract.MethodCancelSession,
	}, passthrough)
	if err != nil || out != "ok" {
		t.Fatalf("bearer token rejected: %v", err)
	}
}

func TestAuthInterceptorDisabledWithoutConfiguredToken(t *testing.T) {
	interceptor := AuthUnaryInterceptor("")
	out, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{
		FullMethod: rpccontract.MethodStartValidation,
	}, passthrough)
	if err != nil || out != "ok" {
		t.Fatalf("auth should be disabled: %v", err)
	}
}

func TestRecoveryInterceptorConvertsPanic(t *testing.T) {
	interceptor := RecoveryUnaryInterceptor()
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{
		FullMethod: rpccontract.MethodGetHealth,
	}, func(context.Context, any) (any, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %s", status.Code(err))
	}
}

func TestErrorInterceptorMapsAppErrors(t *testing.T) {
	interceptor := ErrorUnaryInterceptor()
	cases := []struct {
		appErr *domain.AppError
		want   codes.Code
	}{
		{domain.InvalidArgument("bad idea"), codes.InvalidArgument},
		{domain.NotFound("no session"), codes.NotFound},
		{domain.Conflict("duplicate"), codes.AlreadyExists},
		{domain.FailedPrecondition("finished"), codes.FailedPrecondition},
		{domain.Timeout("slow", nil), codes.DeadlineExceeded},
		{domain.Unavailable("breaker open", nil), codes.Unavailable},
		{domain.Internal("oops", nil), codes.Internal},
	}
	for _, tc := range cases {
		_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{
			FullMethod: rpccontract.MethodGetResult,
		}, func(context.Context, any) (any, error) {
			return nil, tc.appErr
		})
		if status.Code(err) != tc.want {
			t.Fatalf("code for %s = %s, want %s", tc.appErr.Code, status.Code(err), tc.want)
		}
	}
}

func TestErrorInterceptorPreservesExistingStatus(t *testing.T) {
	interceptor := ErrorUnaryInterceptor()
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{
		FullMethod: rpccontract.MethodGetResult,
	}, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.PermissionDenied, "nope")
	})
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("existing status replaced: %s", status.Code(err))
	}
}
