package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/marcelsud/webhook-inspector/config"
	"github.com/marcelsud/webhook-inspector/internal/storage"
	"github.com/marcelsud/webhook-inspector/metrics"
	"github.com/marcelsud/webhook-inspector/seed"
	"github.com/marcelsud/webhook-inspector/webhook"
)

/*
seed - fills the configured store with synthetic deliveries

Usage:
  go run cmd/seed/main.go [-file fixtures.yaml] [-count 75]

Without -file the embedded Stripe-like fixtures are used. Store settings
come from .env and the environment, the same as the API.
*/

func main() {
	file := flag.String("file", "", "fixtures YAML file (default: embedded Stripe fixtures)")
	count := flag.Int("count", 75, "number of deliveries to capture")
	flag.Parse()

	if err := run(*file, *count); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func run(file string, count int) error {
	if count < 0 {
		return fmt.Errorf("count cannot be negative (got %d)", count)
	}

	cfg, err := config.GetConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	loader := seed.NewLoader()
	if file == "" {
		err = loader.LoadDefault()
	} else {
		err = loader.Load(file)
	}
	if err != nil {
		return err
	}

	gen, err := seed.NewGenerator(loader.List(), nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("🔗 Opening %s store...\n", cfg.StoreDriver)
	repo, err := storage.Open(cfg)
	if err != nil {
		return err
	}
	defer repo.Close(context.Background())

	fmt.Printf("📝 Capturing %s deliveries from %d template(s)...\n",
		humanize.Comma(int64(count)), len(loader.List()))
	report, err := seed.Run(ctx, webhook.NewService(repo), gen, count)
	if err != nil {
		return fmt.Errorf("seeding stopped after %d deliveries: %w", report.Count, err)
	}

	fmt.Printf("✅ Captured %s deliveries, %s of bodies\n",
		humanize.Comma(int64(report.Count)), humanize.IBytes(uint64(report.Bytes)))

	names := make([]string, 0, len(report.ByTemplate))
	for name := range report.ByTemplate {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("   %-32s %d\n", name, report.ByTemplate[name])
	}
	if report.Count > 0 {
		fmt.Printf("🆕 Newest: %s %s (%s)\n", report.Latest.Method, report.Latest.Pathname, report.Latest.ID)
	}

	m, err := metrics.NewStoreCollector(repo).Collect(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("📦 Store holds %s webhooks as of %s\n",
		humanize.Comma(m.Records), m.Timestamp.Format("15:04:05"))
	return nil
}
