package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"funnel-mcp/cmd/funnelgen/engine"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, slow, drift")
	outDir := flag.String("out", "./data/generated", "Output directory for graph and param files")
	steps := flag.Int("steps", 3, "Number of funnel steps")
	days := flag.Int("days", 60, "Number of daily cohorts")
	population := flag.Int("population", 500, "Mean daily entrants")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:   *scenario,
		Steps:      *steps,
		Days:       *days,
		Population: *population,
		Now:        time.Now(),
		Seed:       *seed,
	}

	fmt.Printf("Generating scenario '%s' (Steps: %d, Days: %d, Seed: %d) to %s...\n", cfg.Scenario, cfg.Steps, cfg.Days, cfg.Seed, *outDir)

	out := engine.Generate(cfg)
	if err := engine.Save(*outDir, out); err != nil {
		fmt.Printf("Failed to save generated funnel: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
