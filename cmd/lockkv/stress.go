package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lockkv/internal/config"
	"lockkv/internal/scenario"

	"github.com/urfave/cli/v2"
)

var stressCommand = &cli.Command{
	Name:  "stress",
	Usage: "run a stress scenario against an in-process server and check for leaks",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "config file (YAML/JSON) with a stress section"},
		&cli.StringFlag{Name: "preset", Usage: "preset scenario (basic, pause, cancel, stress, quick)"},
		&cli.DurationFlag{Name: "duration", Usage: "load phase duration (e.g. 10s, 1m)"},
		&cli.IntFlag{Name: "workers", Usage: "concurrent client sessions"},
		&cli.BoolFlag{Name: "chaos", Value: true, Usage: "inject pause and cancel attacks"},
		&cli.BoolFlag{Name: "list-presets", Usage: "list preset scenarios"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
	},
	Action: runStress,
}

// buildScenarioConfig picks the config file, then the preset, then the quick
// scenario, and applies flag overrides on top
func buildScenarioConfig(cctx *cli.Context, fileConfig *config.FileConfig) (scenario.Config, error) {
	var cfg scenario.Config

	switch {
	case cctx.String("config") != "":
		sc, err := fileConfig.ToScenarioConfig()
		if err != nil {
			return cfg, fmt.Errorf("invalid stress config: %w", err)
		}
		cfg = sc
	case cctx.String("preset") != "":
		preset, ok := scenario.GetPreset(cctx.String("preset"))
		if !ok {
			return cfg, fmt.Errorf("unknown preset: %s (available: %v)", cctx.String("preset"), scenario.ListPresets())
		}
		cfg = preset
	default:
		cfg = scenario.QuickScenario()
	}

	if cctx.IsSet("duration") {
		cfg.Duration = cctx.Duration("duration")
	}
	if cctx.IsSet("workers") {
		cfg.Workers = cctx.Int("workers")
	}
	if cctx.IsSet("chaos") {
		cfg.EnableChaos = cctx.Bool("chaos")
	}

	return cfg, nil
}

func runStress(cctx *cli.Context) error {
	if cctx.Bool("list-presets") {
		printPresets()
		return nil
	}

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

	cfg, err := buildScenarioConfig(cctx, fileConfig)
	if err != nil {
		return err
	}

	fmt.Println("lockkv stress")
	fmt.Println("=============")
	fmt.Printf("Scenario: %s\n", cfg.Name)
	fmt.Printf("Duration: %v\n", cfg.Duration)
	fmt.Printf("Workers: %d, Keys: %d\n", cfg.Workers, cfg.Keys)
	fmt.Printf("Chaos: %v %v\n", cfg.EnableChaos, cfg.AttackTypes)
	fmt.Println("=============")
	fmt.Println()

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := scenario.New(cfg).Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Report())
	if !result.Passed() {
		return cli.Exit("scenario failed", 2)
	}
	return nil
}

func printPresets() {
	fmt.Println("Available presets:")
	fmt.Println()

	for _, name := range scenario.ListPresets() {
		preset, _ := scenario.GetPreset(name)
		fmt.Printf("  %-12s %s\n", name, preset.Description)
	}

	fmt.Println()
	fmt.Println("Example: lockkv stress --preset quick")
}
