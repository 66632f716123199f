package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"reviewsync_api/config"
	"reviewsync_api/internal/reviews/app"
	"reviewsync_api/internal/reviews/business/services"
	"reviewsync_api/internal/reviews/pkg/clients"
	"reviewsync_api/metrics"
	"reviewsync_api/pkg/dbconnect/postgres"
)

// cliFlags -- явная таблица флагов запуска. Никакой рефлексии по полям
// конфига: каждый флаг объявлен руками и валидируется руками.
type cliFlags struct {
	ConfigPath  string
	Table       string
	Credentials string
	NotifyURL   string
	MetricsAddr string
}

func parseFlags(args []string) (*cliFlags, error) {
	fs := flag.NewFlagSet("reviewsync", flag.ContinueOnError)
	parsed := &cliFlags{}
	fs.StringVar(&parsed.ConfigPath, "config", "", "path to the yaml config (required)")
	fs.StringVar(&parsed.Table, "table", "", "review store table name (required)")
	fs.StringVar(&parsed.Credentials, "credentials", "", "path to the play service account key (overrides config)")
	fs.StringVar(&parsed.NotifyURL, "notify-url", "", "webhook endpoint for run reports (required)")
	fs.StringVar(&parsed.MetricsAddr, "metrics-addr", "", "listen address for /metrics; empty disables the listener")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if parsed.ConfigPath == "" {
		return nil, fmt.Errorf("required flag -config is missing")
	}
	if parsed.Table == "" {
		return nil, fmt.Errorf("required flag -table is missing")
	}
	if parsed.NotifyURL == "" {
		return nil, fmt.Errorf("required flag -notify-url is missing")
	}
	return parsed, nil
}

func main() {
	log.Printf("\nStarted reviewsync\n")

	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid arguments: %v", err)
	}

	cfg, err := config.LoadConfig(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if flags.Credentials != "" {
		cfg.Play.CredentialsFile = flags.Credentials
	}
	cfg.Notify.WebhookURL = flags.NotifyURL

	if flags.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.MetricsHandler())
			if err := http.ListenAndServe(flags.MetricsAddr, mux); err != nil {
				log.Printf("Metrics listener stopped: %v", err)
			}
		}()
	}

	notifier := clients.NewNotifyClient(cfg.Notify.WebhookURL, services.NewBearerAuth(cfg.Notify.AuthToken))

	ctx := context.Background()
	connector := postgres.NewPgConnector(&cfg.Postgres)
	server := app.NewSyncServer(connector, cfg, flags.Table, os.Stdout)

	summary, err := server.Run(ctx)
	if err != nil {
		// последний рубеж: сообщаем об упавшем прогоне и выходим с ошибкой
		if notifyErr := notifier.SendFailure(ctx, err); notifyErr != nil {
			log.Printf("Failed to report the failed run: %v", notifyErr)
		}
		log.Fatalf("Sync run failed: %v", err)
	}

	if err := notifier.SendSummary(ctx, summary); err != nil {
		log.Fatalf("Sync run finished, but reporting failed: %v", err)
	}

	log.Printf("Sync run %s finished: %d new reviews, %d unit failures",
		summary.RunID, len(summary.NewReviews), len(summary.Failures))
	if len(summary.Failures) > 0 {
		os.Exit(1)
	}
}
