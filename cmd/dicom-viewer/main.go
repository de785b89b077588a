package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/dicom-viewer/internal/config"
	"github.com/ironsheep/dicom-viewer/internal/imaging"
	"github.com/ironsheep/dicom-viewer/internal/server"
	"github.com/ironsheep/dicom-viewer/internal/session"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and --help before flag parsing
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("dicom-viewer %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("dicom-viewer", flag.ExitOnError)
	configPath := fs.String("config", "", "TOML or YAML configuration file")
	addr := fs.String("addr", "", "listen address, overrides [server] address")
	fs.Usage = printHelp
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *addr != "" {
		cfg.Server.Address = *addr
	}

	closeLog := cfg.Logging.SetLogger()
	defer closeLog()

	config.Infof("DICOM viewer %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
	config.Debugf("Configuration: %+v\n", *cfg)

	if err := run(cfg); err != nil {
		config.Errorf("Server error: %v\n", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	store, err := session.NewArtifactStore(cfg.Storage.OutputDir)
	if err != nil {
		return err
	}
	sess, err := session.New(imaging.Ops{}, store, cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	srv := server.New(sess, store, server.Options{
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxUploadSize:   cfg.Server.MaxUploadSize,
		ShutdownTimeout: cfg.ShutdownGrace(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cfg.Server.Address)
}

func printHelp() {
	fmt.Println("dicom-viewer - HTTP service for viewing and adjusting DICOM images")
	fmt.Println()
	fmt.Println("Usage: dicom-viewer [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config FILE       Load settings from a .toml, .yaml or .yml file")
	fmt.Println("  --addr HOST:PORT    Listen address (default " + config.DefaultAddress + ")")
	fmt.Println("  --version, -v       Print version information")
	fmt.Println("  --help, -h          Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  " + config.LogEnvVar + "=debug    Enable debug logging")
}
