package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogurasousui/dp-roster-sync/internal/app"
	"github.com/ogurasousui/dp-roster-sync/internal/core/rostersync"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/config"
	"github.com/ogurasousui/dp-roster-sync/internal/platform/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(runCLI())
}

// runCLI は同期を 1 回実行し、終了コードを返します。失敗した参照月があれば 1 を返します。
func runCLI() int {
	var (
		configPath = flag.String("config", "", "path to config file (defaults to CONFIG_PATH env or assets/local.yaml)")
		force      = flag.Bool("force", false, "re-extract reference dates that already have data")
		dataset    = flag.String("dataset", "all", "dataset to sync: roster, afastados or all")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(effectiveConfigPath(*configPath))
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Printf("failed to initialize logger: %v", err)
		return 1
	}
	defer func() { _ = zl.Sync() }()

	if err := validateDataset(*dataset); err != nil {
		zl.Error("invalid arguments", zap.Error(err))
		return 2
	}

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Error("failed to initialize application", zap.Error(err))
		return 1
	}
	defer a.Close()

	results, err := syncDatasets(ctx, a.Sync, *dataset, *force)
	if err != nil {
		zl.Error("invalid arguments", zap.Error(err))
		return 2
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		zl.Error("failed to encode result", zap.Error(err))
		return 1
	}

	return exitCode(results)
}

func validateDataset(dataset string) error {
	switch dataset {
	case "roster", "afastados", "all":
		return nil
	default:
		return fmt.Errorf("unsupported dataset %q", dataset)
	}
}

func exitCode(results map[string]rostersync.Result) int {
	for _, res := range results {
		if len(res.Failed()) > 0 {
			return 1
		}
	}
	return 0
}

func syncDatasets(ctx context.Context, uc rostersync.UseCase, dataset string, force bool) (map[string]rostersync.Result, error) {
	out := map[string]rostersync.Result{}
	switch dataset {
	case "roster":
		out["roster"] = uc.EnsureSnapshots(ctx, force)
	case "afastados":
		out["afastados"] = uc.EnsureAfastadosResumo(ctx, force)
	case "all":
		out["roster"] = uc.EnsureSnapshots(ctx, force)
		out["afastados"] = uc.EnsureAfastadosResumo(ctx, force)
	default:
		return nil, validateDataset(dataset)
	}
	return out, nil
}

func effectiveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return "assets/local.yaml"
}
