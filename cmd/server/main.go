package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // TZ_NAME sin zoneinfo en la imagen

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/angelcm/crm-leads-dashboard/internal/config"
	"github.com/angelcm/crm-leads-dashboard/internal/export"
	"github.com/angelcm/crm-leads-dashboard/internal/httpx"
	"github.com/angelcm/crm-leads-dashboard/internal/ingest"
	"github.com/angelcm/crm-leads-dashboard/internal/metrics"
	"github.com/angelcm/crm-leads-dashboard/internal/models"
	"github.com/angelcm/crm-leads-dashboard/internal/store"
)

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	fetcher *ingest.Fetcher
	mSvc    *metrics.Service
	redis   *redis.Client
	shared  *store.RedisStore
}

// clockIn da la hora actual en loc: las fechas sin zona se leen en esa zona.
func clockIn(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}

func newApp(logOut io.Writer) *app {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	var cache store.Cache
	if cfg.CacheTTL > 0 {
		if cfg.RedisAddr != "" {
			a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
			a.shared = store.NewRedisStore(a.redis, cfg.CacheTTL, logger)
			cache = a.shared
		} else {
			cache = store.NewMemoryStore(cfg.CacheTTL)
		}
	}

	cl := ingest.NewHTTPClient(cfg.HTTPTimeout)
	a.fetcher = ingest.NewFetcher(cl, cfg, ingest.NewNormalizer(clockIn(cfg.Location)), cache, logger)
	a.mSvc = metrics.NewService(cfg.SLAMinutes, cfg.Location, clockIn(cfg.Location))
	return a
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

func (a *app) ready(ctx context.Context) error {
	if a.cfg.CRMAPIKey == "" {
		return ingest.ErrMissingAPIKey
	}
	if a.shared != nil {
		return a.shared.Ping(ctx)
	}
	return nil
}

func runServer(cmd *cobra.Command, _ []string) error {
	a := newApp(os.Stdout)
	defer a.close()

	r := httpx.NewRouter(a.logger, a.fetcher, a.mSvc, httpx.Options{
		WhatsAppPhone: a.cfg.WhatsAppPhone,
		Ready:         a.ready,
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	a.logger.Info("starting server", slog.String("port", a.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("server error", slog.String("err", err.Error()))
		return err
	}
	return nil
}

func newReportCmd() *cobra.Command {
	var source, format, phone string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fetch leads once and print a report (json, csv or whatsapp)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, ok := models.ParseSource(source)
			if !ok {
				return fmt.Errorf("invalid --source %q", source)
			}
			a := newApp(os.Stderr)
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.cfg.HTTPTimeout)
			defer cancel()
			leads, err := a.fetcher.Fetch(ctx, src)
			if err != nil {
				return err
			}
			rep := a.mSvc.Build(src, leads, metrics.Filter{})
			out := cmd.OutOrStdout()

			switch format {
			case "csv":
				return export.WriteCSV(out, rep.Rows)
			case "whatsapp":
				if phone == "" {
					phone = a.cfg.WhatsAppPhone
				}
				text := export.WhatsAppText(rep)
				_, err := fmt.Fprintf(out, "%s\n\n%s\n", text, export.WhatsAppURL(phone, text))
				return err
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", " ")
				return enc.Encode(rep)
			}
			return fmt.Errorf("invalid --format %q", format)
		},
	}
	cmd.Flags().StringVar(&source, "source", string(models.SourceAttendances), "atendimentos or leads")
	cmd.Flags().StringVar(&format, "format", "json", "json, csv or whatsapp")
	cmd.Flags().StringVar(&phone, "phone", "", "WhatsApp destination (defaults to WHATSAPP_PHONE)")
	return cmd
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leadsdash",
		Short:         "CRM lead SLA dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServer,
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP dashboard and CRM proxy",
		RunE:  runServer,
	})
	root.AddCommand(newReportCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
