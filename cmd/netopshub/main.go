// Command netopshub runs the network-operations observability core, or
// drives a one-off discovery/monitor/compliance/chat action against an
// in-process instance of it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/netopshub/netopshub/internal/config"
	"github.com/netopshub/netopshub/internal/crypto"
	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/internal/metrics"
	"github.com/netopshub/netopshub/internal/platform"
	"github.com/netopshub/netopshub/internal/ratelimit"
	"github.com/netopshub/netopshub/pkg/alert"
	"github.com/netopshub/netopshub/pkg/anomaly"
	"github.com/netopshub/netopshub/pkg/collectors/httpapi"
	"github.com/netopshub/netopshub/pkg/collectors/poll"
	"github.com/netopshub/netopshub/pkg/collectors/unified"
	"github.com/netopshub/netopshub/pkg/compliance"
	"github.com/netopshub/netopshub/pkg/configstore"
	"github.com/netopshub/netopshub/pkg/health"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/netopshub/netopshub/pkg/server"
	"github.com/netopshub/netopshub/pkg/sla"
	"github.com/netopshub/netopshub/pkg/topology"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError(errors.New("no command specified"))
	}

	switch args[0] {
	case "serve":
		return runServe(ctx, args[1:])
	case "discover":
		return runDiscover(ctx, args[1:])
	case "monitor":
		return runMonitor(ctx, args[1:])
	case "compliance":
		return runCompliance(ctx, args[1:])
	case "chat":
		return runChat(ctx, args[1:])
	default:
		return usageError(fmt.Errorf("unknown command %q", args[0]))
	}
}

func usageError(err error) error {
	fmt.Fprintln(os.Stderr, "usage: netopshub <serve|discover|monitor|compliance|chat> [flags]")
	return err
}

// buildDeps assembles every engine and collector the query/command API
// and the CLI's one-off actions share.
func buildDeps(cfg config.Config, log *logging.Logger) (server.Deps, *poll.Collector, *unified.Collector, error) {
	sealerKey, err := crypto.GenerateKey()
	if err != nil {
		return server.Deps{}, nil, nil, fmt.Errorf("generate sealer key: %w", err)
	}
	sealer, err := crypto.NewSealer(sealerKey)
	if err != nil {
		return server.Deps{}, nil, nil, fmt.Errorf("new sealer: %w", err)
	}

	limits := ratelimit.NewRegistry(ratelimit.DefaultConfig())
	pollCollector := poll.New(sealer, limits, log)
	httpCollector := httpapi.New(log)

	flowPort := portFromAddr(cfg.FlowListenAddr, 2055)
	eventPort := portFromAddr(cfg.EventListenAddr, 514)
	unifiedCollector := unified.New(flowPort, eventPort, pollCollector, httpCollector, log)

	graph := topology.New()
	anomalyEng := anomaly.New(anomaly.DefaultConfig())

	var mirror alert.Mirror
	if cfg.RedisAddr != "" {
		mirror = alert.NewRedisMirror(cfg.RedisAddr)
	}
	alertMgr := alert.New(mirror)
	alertMgr.LoadMirror()

	healthEng := health.New(health.DefaultThresholds(), cfg.MaxHistory, alertMgr)

	slaEval := sla.New()
	seedDefaultSLATargets(slaEval)

	configStore := configstore.New()
	complEval := compliance.New()
	seedDefaultComplianceRules(complEval)

	deps := server.Deps{
		Config:        cfg,
		Log:           log,
		Metrics:       metrics.New("netopshub"),
		Graph:         graph,
		Health:        healthEng,
		Anomaly:       anomalyEng,
		Alerts:        alertMgr,
		SLA:           slaEval,
		ConfigStore:   configStore,
		Compliance:    complEval,
		PollCollector: pollCollector,
		HTTPCollector: httpCollector,
		Unified:       unifiedCollector,
	}
	return deps, pollCollector, unifiedCollector, nil
}

func portFromAddr(addr string, fallback int) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fallback
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fallback
	}
	return port
}

func seedDefaultSLATargets(e *sla.Evaluator) {
	e.SetTarget(model.SLATarget{
		ID: "cpu-headroom", Name: "CPU headroom", MetricType: model.MetricCPU,
		TargetValue: 85, Comparison: model.ComparisonLessThan, WindowSamples: 20,
	})
	e.SetTarget(model.SLATarget{
		ID: "latency-budget", Name: "Latency budget", MetricType: model.MetricLatency,
		TargetValue: 100, Comparison: model.ComparisonLessThan, WindowSamples: 20,
	})
	e.SetTarget(model.SLATarget{
		ID: "uptime-target", Name: "Uptime target", MetricType: model.MetricUptime,
		TargetValue: 99, Comparison: model.ComparisonGreaterThan, WindowSamples: 20,
	})
}

func seedDefaultComplianceRules(e *compliance.Evaluator) {
	e.AddRule(model.ComplianceRule{
		ID: "cis-no-telnet", Name: "Telnet disabled", Framework: model.FrameworkCIS,
		ControlID: "CIS-1.1", Severity: model.SeverityCritical,
		Check: model.CheckNotContains, Pattern: "transport input telnet",
		RemediationHint: "remove telnet from vty transport input",
	})
	e.AddRule(model.ComplianceRule{
		ID: "cis-aaa-enabled", Name: "AAA authentication enabled", Framework: model.FrameworkCIS,
		ControlID: "CIS-4.1", Severity: model.SeverityWarning,
		Check: model.CheckContains, Pattern: "aaa new-model",
		RemediationHint: "enable aaa new-model and configure authentication",
	})
	e.AddRule(model.ComplianceRule{
		ID: "cis-snmp-v3-only", Name: "SNMPv3 only", Framework: model.FrameworkCIS,
		ControlID: "CIS-2.3", Severity: model.SeverityWarning,
		Check: model.CheckNotContains, Pattern: "snmp-server community public",
		RemediationHint: "remove default public SNMP community strings",
	})
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", "", "listen address override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	if *addr != "" {
		cfg.ListenAddr = *addr
	}
	log := logging.New("netopshub", cfg.LogLevel, cfg.LogFormat)

	deps, pollCollector, unifiedCollector, err := buildDeps(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := unifiedCollector.Start(ctx); err != nil {
		return fmt.Errorf("start unified collector: %w", err)
	}
	defer unifiedCollector.Stop()

	srv := server.New(deps)

	if cfg.DemoMode {
		if _, err := srv.ScanSubnet(cfg.DefaultSubnet, "public"); err != nil {
			log.WithError(err).Warn("demo subnet scan failed")
		}
	}

	scheduler := poll.NewScheduler(pollCollector, unifiedCollector.Ingest, log)
	if err := scheduler.Start(ctx, cfg.PollCronSpec); err != nil {
		return fmt.Errorf("start poll scheduler: %w", err)
	}
	defer scheduler.Stop()

	workers := platform.NewWorkerGroup()
	workers.AddFunc("sla-rollup", time.Minute, log, func(ctx context.Context) error {
		deps.SLA.EvaluateAll()
		return nil
	})
	if err := workers.Start(ctx); err != nil {
		return fmt.Errorf("start background workers: %w", err)
	}
	defer workers.Stop()

	log.WithFields(map[string]interface{}{"addr": cfg.ListenAddr}).Info("netopshub listening")
	return srv.Serve(ctx, cfg.ListenAddr)
}

func runDiscover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subnet := fs.String("subnet", "", "subnet CIDR to scan")
	community := fs.String("community", "public", "SNMP community string")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	if *subnet != "" {
		cfg.DefaultSubnet = *subnet
	}
	log := logging.New("netopshub-discover", cfg.LogLevel, cfg.LogFormat)

	deps, _, _, err := buildDeps(cfg, log)
	if err != nil {
		return err
	}
	srv := server.New(deps)

	count, err := srv.ScanSubnet(cfg.DefaultSubnet, *community)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"discovered": count, "subnet": cfg.DefaultSubnet})
}

func runMonitor(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	device := fs.String("device", "", "device address to poll")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *device == "" {
		return errors.New("-device is required")
	}

	cfg := config.Load()
	log := logging.New("netopshub-monitor", cfg.LogLevel, cfg.LogFormat)

	sealerKey, err := crypto.GenerateKey()
	if err != nil {
		return err
	}
	sealer, err := crypto.NewSealer(sealerKey)
	if err != nil {
		return err
	}
	limits := ratelimit.NewRegistry(ratelimit.DefaultConfig())
	pollCollector := poll.New(sealer, limits, log)

	deviceID := "monitor-" + *device
	if err := pollCollector.RegisterTarget(deviceID, *device, poll.ProtocolV2c, poll.AuthParams{Community: "public"}, 0, 2, []string{"Gi0/0"}); err != nil {
		return err
	}

	samples, err := pollCollector.PollOne(ctx, *device)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"device": *device, "metrics": samples})
}

func runCompliance(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compliance", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	framework := fs.String("framework", string(model.FrameworkCIS), "compliance framework")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	log := logging.New("netopshub-compliance", cfg.LogLevel, cfg.LogFormat)

	deps, _, _, err := buildDeps(cfg, log)
	if err != nil {
		return err
	}

	sampleConfig := "hostname demo-rtr1\naaa new-model\nsnmp-server community public RO\nline vty 0 4\n transport input ssh telnet\n"
	deps.ConfigStore.BackupConfig("demo-rtr1", sampleConfig)

	configs := map[string]string{"demo-rtr1": sampleConfig}
	results, summary := deps.Compliance.EvaluateFleet(configs, model.ComplianceFramework(*framework))
	return printJSON(map[string]interface{}{"results": results, "summary": summary})
}

func runChat(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("chat requires a message argument")
	}
	message := args[0]

	cfg := config.Load()
	log := logging.New("netopshub-chat", cfg.LogLevel, cfg.LogFormat)

	deps, _, _, err := buildDeps(cfg, log)
	if err != nil {
		return err
	}
	srv := server.New(deps)
	response := srv.Chat(message, nil)
	fmt.Println(response)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
