package main

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/lora-pipeline-analysis/internal/airtimesvc"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/report"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func startServer(t *testing.T, cfg Config) (airtimesvc.AirtimeServiceClient, context.Context, func() error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	cfg.ListenAddress = lis.Addr().String()

	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	runCtx, stop := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(runCtx, cfg, log, lis)
	}()

	conn, err := grpc.NewClient(cfg.ListenAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	shutdown := func() error {
		stop()
		return <-errCh
	}
	return airtimesvc.NewAirtimeServiceClient(conn), ctx, shutdown
}

func TestAirtimeServerStartupSmoke(t *testing.T) {
	client, ctx, shutdown := startServer(t, Config{ConfigPath: "../../configs/airtime.yaml"})

	resp, err := client.ComputeAirtime(ctx, report.RadioConfigToStruct(model.DefaultRadioConfig(100, 7, model.Bandwidth125kHz)))
	if err != nil {
		t.Fatalf("ComputeAirtime: %v", err)
	}
	res, err := report.AirtimeFromStruct(resp)
	if err != nil {
		t.Fatalf("AirtimeFromStruct: %v", err)
	}
	if math.Abs(res.TotalAirtimeMs()-174.336) > 1e-9 {
		t.Fatalf("airtime = %v ms, want 174.336", res.TotalAirtimeMs())
	}

	sweep, err := client.EnumerateConfigurations(ctx, report.SweepRequestToStruct(report.SweepRequest{}))
	if err != nil {
		t.Fatalf("EnumerateConfigurations: %v", err)
	}
	results, err := report.SweepFromStruct(sweep)
	if err != nil {
		t.Fatalf("SweepFromStruct: %v", err)
	}
	if len(results) != 12 {
		t.Fatalf("configured sweep returned %d rows, want 12", len(results))
	}

	if err := shutdown(); err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestAirtimeServerRequiresTokenWhenConfigured(t *testing.T) {
	client, ctx, shutdown := startServer(t, Config{AuthSecret: "smoke-secret"})
	req := report.RadioConfigToStruct(model.DefaultRadioConfig(10, 7, model.Bandwidth125kHz))

	if _, err := client.ComputeAirtime(ctx, req); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("unauthenticated call: err = %v, want Unauthenticated", err)
	}

	verifier, err := airtimesvc.NewTokenVerifier("smoke-secret")
	if err != nil {
		t.Fatalf("NewTokenVerifier: %v", err)
	}
	token, err := verifier.Sign(jwt.RegisteredClaims{Subject: "smoke"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	authCtx := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	if _, err := client.ComputeAirtime(authCtx, req); err != nil {
		t.Fatalf("authenticated call: %v", err)
	}

	if err := shutdown(); err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	defer lis.Close()

	t.Setenv("AIRTIME_RANGE_POLICY", "lenient")
	if err := run(context.Background(), Config{}, logging.Noop(), lis); err == nil {
		t.Fatalf("expected configuration error")
	}
}
