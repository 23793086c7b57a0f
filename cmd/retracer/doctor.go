package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mattjoyce/retracer/internal/config"
	"github.com/mattjoyce/retracer/internal/dispatch"
	"github.com/mattjoyce/retracer/internal/doctor"
)

func runDoctor(args []string) int {
	var configPath, format string
	var strict, jsonOut bool

	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "Path to configuration file")
	fs.BoolVar(&strict, "strict", false, "Treat warnings as errors")
	fs.StringVar(&format, "format", "human", "Output format (human, json)")
	// Handle -json alias for format=json
	fs.BoolVar(&jsonOut, "json", false, "Output in JSON")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return exitUsage
	}
	if fs.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Usage: retracer doctor [flags] [trace-file]")
		return exitUsage
	}
	if jsonOut {
		format = "json"
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config load error: %v\n", err)
		return exitUsage
	}

	doc := doctor.New(cfg, dispatch.SystemEnvironment(cfg.BinaryDir), fs.Arg(0))
	result := doc.Validate()

	switch format {
	case "json":
		out, err := doctor.FormatJSON(result)
		if err != nil {
			fmt.Fprintf(os.Stderr, "JSON format error: %v\n", err)
			return exitUsage
		}
		fmt.Println(out)
	default:
		if cfg.Source != "" {
			fmt.Printf("Config: %s\n", cfg.Source)
		}
		fmt.Print(doctor.FormatHuman(result))
	}

	if !result.Valid {
		return exitReplayFail
	}
	if strict && len(result.Warnings) > 0 {
		return exitReplayFail
	}
	return exitOK
}
