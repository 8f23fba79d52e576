// Package main is the entry point for lockkv.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"lockkv/internal/api"
	"lockkv/internal/config"
	"lockkv/internal/console"
	"lockkv/internal/loadgen"
	"lockkv/internal/logger"
	"lockkv/internal/protocol"
	"lockkv/internal/server"
	"lockkv/internal/sigmon"

	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "lockkv",
		Usage:   "multi-client in-memory key-value server",
		Version: version,
		Commands: []*cli.Command{
			serveCommand,
			loadCommand,
			stressCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("", "%v", err)
		os.Exit(1)
	}
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "run the server with the operator console on stdin",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "config file (YAML/JSON)"},
		&cli.StringFlag{Name: "listen", Usage: "client listen address", EnvVars: []string{"LOCKKV_LISTEN"}},
		&cli.IntFlag{Name: "max-connections", Usage: "concurrent connection cap (0 = unlimited)"},
		&cli.StringFlag{Name: "admin", Usage: "enable the read-only admin API on this address", EnvVars: []string{"LOCKKV_ADMIN"}},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", EnvVars: []string{"LOCKKV_LOG_LEVEL"}},
		&cli.BoolFlag{Name: "no-console", Usage: "ignore stdin and run until SIGTERM"},
	},
	Action: runServe,
}

var loadCommand = &cli.Command{
	Name:  "load",
	Usage: "drive concurrent client sessions against a server",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "config file (YAML/JSON)"},
		&cli.StringFlag{Name: "addr", Usage: "server address"},
		&cli.IntFlag{Name: "sessions", Usage: "connections to open"},
		&cli.IntFlag{Name: "workers", Usage: "concurrent sessions (0 = CPU count)"},
		&cli.IntFlag{Name: "commands", Usage: "commands per session"},
		&cli.IntFlag{Name: "keys", Usage: "key space size"},
		&cli.Float64Flag{Name: "write-ratio", Usage: "share of add/delete commands (0.0 to 1.0)"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	},
	Action: runLoad,
}

// loadConfig reads --config when given and applies the --log-level override
func loadConfig(cctx *cli.Context) (*config.FileConfig, error) {
	fileConfig := &config.FileConfig{}
	if path := cctx.String("config"); path != "" {
		fc, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		fileConfig = fc
	}
	if cctx.IsSet("log-level") {
		fileConfig.Log.Level = cctx.String("log-level")
	}
	return fileConfig, nil
}

func applyLogLevel(fileConfig *config.FileConfig) error {
	level, err := fileConfig.LogLevel()
	if err != nil {
		return err
	}
	logger.Default.SetLevel(level)
	return nil
}

func runServe(cctx *cli.Context) error {
	fileConfig, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	if cctx.IsSet("listen") {
		fileConfig.Server.Listen = cctx.String("listen")
	}
	if cctx.IsSet("max-connections") {
		fileConfig.Server.MaxConnections = cctx.Int("max-connections")
	}
	if cctx.IsSet("admin") {
		fileConfig.Admin.Enabled = true
		fileConfig.Admin.Listen = cctx.String("admin")
	}
	if err := fileConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := applyLogLevel(fileConfig); err != nil {
		return err
	}

	serverConfig := fileConfig.ToServerConfig()
	srv := server.New(serverConfig)

	ln, err := net.Listen("tcp", serverConfig.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", serverConfig.Listen, err)
	}

	ctx, stop := context.WithCancel(cctx.Context)
	defer stop()

	mon := sigmon.New(sigmon.Handlers{
		Interrupt: func() { srv.CancelAll("signal") },
		Terminate: stop,
	})
	mon.Start()
	defer mon.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, server.ErrServerClosed) {
			return err
		}
		return nil
	})

	if addr, enabled := fileConfig.AdminListen(); enabled {
		admin := api.NewServer(addr, srv)
		g.Go(func() error {
			return admin.Start(gctx)
		})
	}

	if !cctx.Bool("no-console") {
		g.Go(func() error {
			err := console.New(srv, os.Stdin, os.Stdout, os.Stderr).Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// End of input is the operator's shutdown request.
			stop()
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "exiting database")
		srv.Shutdown()
		return nil
	})

	return g.Wait()
}

func runLoad(cctx *cli.Context) error {
	fileConfig, err := loadConfig(cctx)
	if err != nil {
		return err
	}
	if err := fileConfig.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := applyLogLevel(fileConfig); err != nil {
		return err
	}

	genConfig, err := fileConfig.ToLoadConfig()
	if err != nil {
		return err
	}
	if cctx.IsSet("addr") {
		genConfig.Addr = cctx.String("addr")
	}
	if cctx.IsSet("sessions") {
		genConfig.Sessions = cctx.Int("sessions")
	}
	if cctx.IsSet("workers") {
		genConfig.Workers = cctx.Int("workers")
	}
	if cctx.IsSet("commands") {
		genConfig.Commands = cctx.Int("commands")
	}
	if cctx.IsSet("keys") {
		genConfig.Keys = cctx.Int("keys")
	}
	if cctx.IsSet("write-ratio") {
		genConfig.WriteRatio = cctx.Float64("write-ratio")
	}

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("lockkv load generator")
	fmt.Println("=====================")
	fmt.Printf("Target: %s\n", genConfig.Addr)
	fmt.Printf("Sessions: %d, Workers: %d\n", genConfig.Sessions, genConfig.Workers)
	fmt.Printf("Commands/session: %d, Keys: %d, Write ratio: %.2f\n",
		genConfig.Commands, genConfig.Keys, genConfig.WriteRatio)
	fmt.Println()

	result := loadgen.New(genConfig).Run(ctx)

	fmt.Printf("Sessions:     %d (%d failed)\n", result.Sessions, result.FailedSessions)
	fmt.Printf("Commands:     %d (%d failed)\n", result.TotalRequests, result.FailedRequests)
	fmt.Printf("Throughput:   %.1f cmd/s\n", result.OverallRPS)
	fmt.Printf("Avg latency:  %v\n", result.AverageLatency)
	fmt.Printf("P99 latency:  %v\n", result.P99Latency)
	fmt.Printf("Unexpected:   %d\n", result.Unexpected)
	for _, op := range []string{protocol.CmdQuery, protocol.CmdAdd, protocol.CmdDelete} {
		stats, ok := result.Commands[op]
		if !ok {
			continue
		}
		fmt.Printf("  %s: %d hits, %d misses, %d unexpected\n", op, stats.Hits, stats.Misses, stats.Unexpected)
	}

	if result.Unexpected > 0 {
		return cli.Exit("server returned unexpected replies", 2)
	}
	return nil
}
