package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mykhaliev/agent-scenarios/engine"
	"github.com/mykhaliev/agent-scenarios/logger"
	"github.com/mykhaliev/agent-scenarios/version"
)

const (
	AppName = "agent-scenarios"
)

func main() {
	configPath := flag.String("c", "", "Path to the harness configuration file (YAML)")
	outputDir := flag.String("o", engine.DefaultOutputDir, "Directory for JSON reports")
	logPath := flag.String("l", "", "Path to the log file (if not set, logs to stderr)")
	agentName := flag.String("a", "", "Agent to run the scenarios against (default: first configured)")
	parallel := flag.Int("p", 0, "Number of scenarios to run concurrently (0: from configuration, default 1)")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	quiet := flag.Bool("quiet", false, "Suppress log output")
	showVersion := flag.Bool("v", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <scenario-file-or-directory>\n\n", AppName)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("Version: %s\nCommit: %s\nBuildDate: %s\n",
			version.Version, version.Commit, version.BuildDate)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: exactly one scenario file or directory is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	scenarioPath := flag.Arg(0)

	logWriter, logFile, err := logger.SetupLogWriter(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.Setup(logWriter, *verbose, *quiet)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Logger.Info("Starting application",
		"app", AppName,
		"scenarios", scenarioPath,
		"config", *configPath,
		"output", *outputDir,
		"parallel", *parallel,
		"verbose", *verbose)

	code := engine.Run(ctx, engine.Options{
		ScenarioPath: scenarioPath,
		ConfigPath:   *configPath,
		OutputDir:    *outputDir,
		AgentName:    *agentName,
		Parallel:     *parallel,
		Verbose:      *verbose,
	})
	os.Exit(code)
}
