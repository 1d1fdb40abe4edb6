package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/vietddude/cloudvault/internal/backup"
	"github.com/vietddude/cloudvault/internal/core/config"
	"github.com/vietddude/cloudvault/internal/core/domain"
	"github.com/vietddude/cloudvault/internal/health"
	"github.com/vietddude/cloudvault/internal/infra/ledger"
	"github.com/vietddude/cloudvault/internal/infra/remote"
	"github.com/vietddude/cloudvault/internal/vault"
)

const usage = `Usage: cloudvault [flags] <command>

Commands:
  check            Probe service access and connectivity
  export <dir>     Back up a data set directory to the remote store
  import <dir>     Restore the latest backup into a directory
  list             List all backup record names
  prune            Delete records the current manifest does not reference
`

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	_ = godotenv.Load()

	// Load Configuration first (before setting up logger)
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	}))
	slog.SetDefault(log)

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, err := remote.NewS3Service(ctx, cfg.Storage)
	if err != nil {
		log.Error("Failed to connect to remote store", "error", err)
		os.Exit(1)
	}

	clientCfg := vault.Config{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		DefaultDelay: cfg.Retry.DefaultDelay,
	}
	if cfg.Redis.URL != "" {
		led, err := ledger.New(cfg.Redis)
		if err != nil {
			log.Error("Failed to connect to redis ledger", "error", err)
			os.Exit(1)
		}
		defer led.Close()
		clientCfg.Ledger = led
	}

	client := vault.New(svc, clientCfg, log)

	if cfg.Server.MetricsPort > 0 {
		hs := health.NewServer(client, cfg.Server.MetricsPort)
		go func() {
			if err := hs.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Health server failed", "error", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = hs.Stop(sctx)
		}()
		log.Info("Health server listening", "port", cfg.Server.MetricsPort)
	}

	if err := run(ctx, client, log, flag.Args()); err != nil {
		log.Error("Command failed", "command", flag.Arg(0), "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, client *vault.Client, log *slog.Logger, args []string) error {
	switch args[0] {
	case "check":
		job := backup.NewJob(client, nil, log)
		return job.ProbeConnectivity(ctx)

	case "export":
		if len(args) < 2 {
			return fmt.Errorf("export requires a data set directory")
		}
		job := backup.NewJob(client, &backup.DirSource{Root: args[1]}, log)
		result, err := job.Export(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("snapshot:    %s\n", result.SnapshotRecord)
		fmt.Printf("attachments: %d\n", len(result.AttachmentRecords))
		fmt.Printf("manifest:    %s\n", result.ManifestRecord)
		return nil

	case "import":
		if len(args) < 2 {
			return fmt.Errorf("import requires a destination directory")
		}
		job := backup.NewJob(client, nil, log)
		manifest, err := job.Import(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("restored %d record(s) to %s\n",
			len(manifest.DatabaseFiles)+len(manifest.AttachmentFiles), args[1])
		return nil

	case "list":
		names, err := client.FetchAllRecordNames(ctx, domain.RecordTypeBackup)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil

	case "prune":
		job := backup.NewJob(client, nil, log)
		deleted, err := job.PruneStale(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d stale record(s)\n", deleted)
		return nil

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}
