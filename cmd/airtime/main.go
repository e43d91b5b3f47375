// Command airtime prints LoRa time-on-air tables for payload/SF sweeps.
//
// Without -payloads it evaluates the sweep from the configuration file (or
// the built-in 100/500/1000/2000 B x SF7/9/12 table). With -server it asks a
// running airtime-server instead of computing locally.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/signalsfoundry/lora-pipeline-analysis/core"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/airtimesvc"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/config"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/logging"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/observability"
	"github.com/signalsfoundry/lora-pipeline-analysis/internal/report"
	"github.com/signalsfoundry/lora-pipeline-analysis/model"
)

func main() {
	log := logging.NewFromEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, log); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error(ctx, "airtime failed", logging.Err(err))
		os.Exit(1)
	}
}

type options struct {
	configPath string
	output     string
	payloads   string
	sfs        string
	bwKHz      int
	workers    int
	maxPayload int

	// single packet breakdown
	explain        bool
	codingRate     int
	preamble       int
	implicitHeader bool
	noCRC          bool
	ldro           bool

	server  string
	token   string
	timeout time.Duration
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("airtime", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to a YAML configuration file")
	fs.StringVar(&o.output, "output", "json", "Output format: json, csv, latex, text, proto or all")
	fs.StringVar(&o.payloads, "payloads", "", "Comma-separated payload sizes in bytes (overrides the configured sweep)")
	fs.StringVar(&o.sfs, "sf", "7,9,12", "Comma-separated spreading factors used with -payloads")
	fs.IntVar(&o.bwKHz, "bw", 125, "Bandwidth in kHz used with -payloads")
	fs.IntVar(&o.workers, "workers", 0, "Sweep worker goroutines (0 uses the configured value)")
	fs.IntVar(&o.maxPayload, "max-payload", 0, "Maximum payload per packet (0 uses the configured value)")
	fs.BoolVar(&o.explain, "explain", false, "Print the full timing breakdown of a single packet")
	fs.IntVar(&o.codingRate, "cr", model.DefaultCodingRate, "Coding rate index, 4/(4+cr), used with -explain")
	fs.IntVar(&o.preamble, "preamble", model.DefaultPreambleSymbols, "Preamble symbols, used with -explain")
	fs.BoolVar(&o.implicitHeader, "implicit-header", false, "Use implicit header mode, used with -explain")
	fs.BoolVar(&o.noCRC, "no-crc", false, "Disable payload CRC, used with -explain")
	fs.BoolVar(&o.ldro, "ldro", false, "Enable low data rate optimization, used with -explain")
	fs.StringVar(&o.server, "server", "", "Address of an airtime-server to query instead of computing locally")
	fs.StringVar(&o.token, "token", os.Getenv("AIRTIME_TOKEN"), "Bearer token sent to -server")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "Deadline for -server requests")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer, log logging.Logger) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(o.output)
	if err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.maxPayload > 0 {
		cfg.Engine.MaxPayloadPerPacket = o.maxPayload
	}
	if o.workers > 0 {
		cfg.Engine.Workers = o.workers
	}

	points := cfg.Sweep
	if o.payloads != "" {
		if points, err = buildSweep(o.payloads, o.sfs, o.bwKHz*1000); err != nil {
			return err
		}
	}

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv("airtime-cli"), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	if o.server != "" {
		if o.explain {
			return errors.New("-explain is not supported with -server")
		}
		results, err := remoteSweep(ctx, o, points, cfg.Engine.Workers)
		if err != nil {
			return err
		}
		return report.WriteAirtime(stdout, format, results)
	}

	engineCfg, err := cfg.AirtimeEngineConfig()
	if err != nil {
		return err
	}
	engine := core.NewAirtimeEngine(engineCfg, log)

	if o.explain {
		return explain(stdout, engine, o, points)
	}

	ctx, span := observability.StartSpan(ctx, "airtime/sweep", observability.SweepAttributes(len(points), cfg.Engine.Workers)...)
	defer span.End()

	start := time.Now()
	results, err := engine.EnumerateConcurrent(ctx, points, cfg.Engine.Workers)
	if err != nil {
		span.RecordError(err)
		return err
	}
	log.Debug(ctx, "sweep complete",
		logging.Int("points", len(points)),
		logging.Any("elapsed", time.Since(start)),
	)
	return report.WriteAirtime(stdout, format, results)
}

// explain prints the breakdown of the single packet selected by -payloads
// and -sf. The packet-level flags only apply here.
func explain(w io.Writer, engine *core.AirtimeEngine, o options, points []model.SweepPoint) error {
	if len(points) != 1 {
		return fmt.Errorf("-explain needs exactly one payload and one spreading factor, got %d points", len(points))
	}
	p := points[0]
	rc := model.RadioConfig{
		PayloadBytes:            p.PayloadBytes,
		SpreadingFactor:         p.SpreadingFactor,
		BandwidthHz:             p.BandwidthHz,
		CodingRate:              o.codingRate,
		PreambleSymbols:         o.preamble,
		ExplicitHeader:          !o.implicitHeader,
		CRCEnabled:              !o.noCRC,
		LowDataRateOptimization: o.ldro,
	}
	res, err := engine.ComputeAirtime(rc)
	if err != nil {
		return err
	}
	return report.WriteJSON(w, res)
}

func remoteSweep(ctx context.Context, o options, points []model.SweepPoint, workers int) ([]model.SweepResult, error) {
	conn, err := grpc.NewClient(o.server, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", o.server, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if o.token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+o.token)
	}

	client := airtimesvc.NewAirtimeServiceClient(conn)
	resp, err := client.EnumerateConfigurations(ctx, report.SweepRequestToStruct(report.SweepRequest{
		Points:  points,
		Workers: workers,
	}))
	if err != nil {
		return nil, err
	}
	return report.SweepFromStruct(resp)
}

// buildSweep crosses every payload with every spreading factor, payload-major.
func buildSweep(payloads, sfs string, bandwidthHz int) ([]model.SweepPoint, error) {
	sizes, err := parseIntList(payloads)
	if err != nil {
		return nil, fmt.Errorf("-payloads: %w", err)
	}
	factors, err := parseIntList(sfs)
	if err != nil {
		return nil, fmt.Errorf("-sf: %w", err)
	}
	points := make([]model.SweepPoint, 0, len(sizes)*len(factors))
	for _, size := range sizes {
		for _, sf := range factors {
			points = append(points, model.SweepPoint{PayloadBytes: size, SpreadingFactor: sf, BandwidthHz: bandwidthHz})
		}
	}
	return points, nil
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, errors.New("empty list")
	}
	return out, nil
}
