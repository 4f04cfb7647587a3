package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/venturahq/ventura/internal/agent"
	"github.com/venturahq/ventura/internal/config"
	"github.com/venturahq/ventura/internal/redact"
	"github.com/venturahq/ventura/internal/retry"
	"github.com/venturahq/ventura/internal/service"
	"github.com/venturahq/ventura/internal/store"
	grpcx "github.com/venturahq/ventura/internal/transport/grpc"
	httpx "github.com/venturahq/ventura/internal/transport/http"
)

func main() {
	cfg := config.Load()

	sessionStore, dataSource, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("store setup failed: %v", err)
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			log.Printf("store close warning: %v", err)
		}
	}()

	if err := sessionStore.Load(); err != nil {
		log.Fatalf("store initialization failed: %v", err)
	}

	client := buildReasoningClient(cfg)
	exec := retry.NewExecutor(cfg.BreakerThreshold, cfg.BreakerCooldown)
	hub := service.NewValidationService(sessionStore, client, exec, cfg.Workflow)
	handler := grpcx.NewHubHandler(hub)
	httpServer := httpx.NewServer(cfg.HTTPAddr, hub, cfg.AuthToken)

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", cfg.GRPCAddr, err)
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcx.RecoveryUnaryInterceptor(),
			grpcx.AuthUnaryInterceptor(cfg.AuthToken),
			grpcx.LoggingUnaryInterceptor(),
			grpcx.ErrorUnaryInterceptor(),
		),
	)
	grpcx.RegisterHubServer(server, handler)

	healthService := health.NewServer()
	healthService.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthService)

	if cfg.EnableReflection {
		reflection.Register(server)
	}

	go func() {
		log.Printf("Ventura gRPC server listening on %s", cfg.GRPCAddr)
		log.Printf("Store driver=%s source=%s", cfg.StoreDriver, dataSource)
		if cfg.AuthToken == "" {
			log.Printf("AUTH_TOKEN is not configured; write methods are currently unauthenticated.")
		}
		if cfg.ReasoningCommand == "" {
			log.Printf("REASONING_COMMAND is not configured; using the built-in scripted client.")
		}
		if err := server.Serve(listener); err != nil {
			log.Fatalf("grpc serve failed: %v", err)
		}
	}()

	go func() {
		if strings.TrimSpace(cfg.HTTPAddr) == "" {
			return
		}
		log.Printf("Ventura HTTP API listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http serve failed: %v", err)
		}
	}()

	waitForShutdown(server, httpServer, hub)
}

func waitForShutdown(server *grpc.Server, httpServer *http.Server, hub *service.ValidationService) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("shutdown signal received; cancelling in-flight sessions")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Printf("session shutdown warning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Println("gRPC server stopped gracefully")
	case <-time.After(5 * time.Second):
		log.Println("graceful timeout reached; forcing stop")
		server.Stop()
	}
	if httpServer != nil {
		httpCtx, cancelHTTP := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelHTTP()
		if err := httpServer.Shutdown(httpCtx); err != nil {
			log.Printf("http shutdown warning: %v", err)
		}
	}
}

func buildStore(cfg config.Config) (store.SessionStore, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StoreDriver)) {
	case "postgres":
		pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, "", err
		}
		return pgStore, "postgres", nil
	case "", "file":
		return store.NewFileStore(cfg.DataFile), cfg.DataFile, nil
	default:
		return nil, "", fmt.Errorf("unsupported STORE_DRIVER %q; expected file|postgres", cfg.StoreDriver)
	}
}

func buildReasoningClient(cfg config.Config) agent.ReasoningClient {
	if strings.TrimSpace(cfg.ReasoningCommand) == "" {
		return agent.NewScripted()
	}
	client := agent.NewCLIClient(cfg.ReasoningCommand, cfg.ReasoningUsePTY, redact.New(cfg.RedactTranscript, nil))
	client.Args = cfg.ReasoningArgs
	client.Dir = cfg.ReasoningWorkdir
	return client
}
