package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/lora-pipeline-analysis/core"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/airtimesvc"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/config"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/observability"
)

// Config holds the server's process-level settings.
type Config struct {
	ListenAddress  string
	MetricsAddress string // empty disables /metrics
	ConfigPath     string // optional YAML; see internal/config
	AuthSecret     string // empty disables bearer-token checks
}

func main() {
	grpcAddr := flag.String("grpc-addr", ":50061", "TCP address the airtime gRPC server listens on")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics (empty to disable)")
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.Parse()

	log := logging.NewFromEnv()

	cfg := Config{
		ListenAddress:  *grpcAddr,
		MetricsAddress: *metricsAddr,
		ConfigPath:     *configPath,
		AuthSecret:     os.Getenv("AIRTIME_AUTH_SECRET"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "airtime server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the airtime service on lis until ctx is cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	appCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return err
	}
	engineCfg, err := appCfg.AirtimeEngineConfig()
	if err != nil {
		return err
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv("airtime-server"), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewAirtimeCollector(nil)
	if err != nil {
		return fmt.Errorf("init metrics collector: %w", err)
	}

	var verifier *airtimesvc.TokenVerifier
	if cfg.AuthSecret != "" {
		if verifier, err = airtimesvc.NewTokenVerifier(cfg.AuthSecret); err != nil {
			return err
		}
	}

	engine := core.NewAirtimeEngine(engineCfg, log.With(logging.String("component", "airtime_engine")),
		core.WithMetricsRecorder(collector))

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		airtimesvc.ServerInterceptors(log, verifier, collector),
	)
	airtimesvc.RegisterAirtimeServiceServer(server, airtimesvc.NewService(engine, log,
		airtimesvc.WithDefaultSweep(appCfg.Sweep),
		airtimesvc.WithWorkers(appCfg.Engine.Workers),
		airtimesvc.WithSweepObserver(collector),
	))

	metricsSrv := serveMetrics(cfg.MetricsAddress, collector, log)

	serveErr := make(chan error, 1)
	log.Info(ctx, "starting airtime gRPC server",
		logging.String("addr", lis.Addr().String()),
		logging.String("range_policy", engineCfg.RangePolicy.String()),
		logging.Int("max_payload_per_packet", engineCfg.MaxPayloadPerPacket),
		logging.Any("auth", verifier != nil),
	)
	go func() {
		serveErr <- server.Serve(lis)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down airtime server")
		server.GracefulStop()
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			runErr = fmt.Errorf("gRPC server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

func serveMetrics(addr string, collector *observability.AirtimeCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
