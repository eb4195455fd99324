// Command memoryserver boots the persistent memory service: it loads
// configuration, opens (or falls back from) the relational store, applies
// migrations, wires every engine via internal/app, and serves the HTTP
// surface until signaled to shut down. Grounded on the teacher's
// cmd/appserver/main.go (flag/env resolution, open DB, migrate, construct
// stores, start manager, signal-driven shutdown), reworked as a cobra root
// with serve/migrate/maintenance subcommands per steveyegge-beads' cmd/bd.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/ankitaa186/agentic-memories-sub004/internal/app"
	"github.com/ankitaa186/agentic-memories-sub004/internal/httpapi"
	"github.com/ankitaa186/agentic-memories-sub004/internal/logging"
	"github.com/ankitaa186/agentic-memories-sub004/internal/platform/migrations"
	"github.com/ankitaa186/agentic-memories-sub004/pkg/config"
)

var (
	dsnFlag  string
	addrFlag string
)

func main() {
	root := &cobra.Command{
		Use:   "memoryserver",
		Short: "Persistent long-term memory service for conversational agents",
	}
	root.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "relational store DSN (overrides config/env; in-process stores when empty)")

	root.AddCommand(serveCmd(), migrateCmd(), maintenanceCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and every background engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logging.New("memoryservice", cfg.Logging.Level, cfg.Logging.Format)

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
				if cfg.Relational.MigrateOnStart {
					if err := migrations.Apply(db, cfg.Relational.Name); err != nil {
						return fmt.Errorf("apply migrations: %w", err)
					}
				}
			}

			application, err := app.New(cfg, db, app.Stores{}, app.Collaborators{}, log)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}

			addr := resolveAddr(cfg)
			httpSvc := httpapi.NewService(application, addr)
			if err := application.Attach(httpSvc); err != nil {
				return fmt.Errorf("attach http service: %w", err)
			}

			ctx := context.Background()
			if err := application.Start(ctx); err != nil {
				return fmt.Errorf("start application: %w", err)
			}
			log.WithFields(map[string]interface{}{"addr": addr}).Info("memoryservice listening")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			grace := time.Duration(cfg.Server.ShutdownGrace) * time.Second
			if grace <= 0 {
				grace = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()

			log.Info("shutting down")
			return application.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addrFlag, "addr", "", "HTTP listen address (defaults to config SERVER_HOST:SERVER_PORT or :8080)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply every pending relational-store migration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if db == nil {
				return fmt.Errorf("no relational DSN configured; set --dsn, RELATIONAL_DSN, or DATABASE_URL")
			}
			defer db.Close()
			return migrations.Apply(db, cfg.Relational.Name)
		},
	}
}

func maintenanceCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Run one maintenance pass (consolidation/forgetting/compaction/promotion/reconciliation) for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := logging.New("memoryservice", cfg.Logging.Level, cfg.Logging.Format)

			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			application, err := app.New(cfg, db, app.Stores{}, app.Collaborators{}, log)
			if err != nil {
				return fmt.Errorf("initialize application: %w", err)
			}

			report, err := application.Maintenance.Run(context.Background(), userID)
			if err != nil {
				return fmt.Errorf("maintenance run: %w", err)
			}
			fmt.Printf("consolidation_replayed=%d forgetting_archived=%d forgetting_decayed=%d compaction_merged=%d promotion_promoted=%d reconciliation_applied=%d\n",
				report.ConsolidationReplayed, report.ForgettingArchived, report.ForgettingDecayed,
				report.CompactionMerged, report.PromotionPromoted, report.ReconciliationApplied)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to run maintenance for (required)")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dsn := strings.TrimSpace(dsnFlag); dsn != "" {
		cfg.Relational.DSN = dsn
	}
	return cfg, nil
}

// openDB opens the relational pool when a DSN is configured. A nil *sql.DB
// (no DSN set) tells internal/app.New to fall back to in-process adapters,
// matching the teacher's "in-memory storage when empty" startup mode.
func openDB(cfg *config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.Relational.DSN) == "" && strings.TrimSpace(cfg.Relational.Host) == "" {
		return nil, nil
	}
	dsn := strings.TrimSpace(cfg.Relational.ConnectionString())
	db, err := sql.Open(cfg.Relational.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open relational store: %w", err)
	}
	if cfg.Relational.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Relational.MaxOpenConns)
	}
	if cfg.Relational.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Relational.MaxIdleConns)
	}
	if cfg.Relational.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.Relational.ConnMaxLifetime) * time.Second)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping relational store: %w", err)
	}
	return db, nil
}

func resolveAddr(cfg *config.Config) string {
	if addr := strings.TrimSpace(addrFlag); addr != "" {
		return addr
	}
	host := strings.TrimSpace(cfg.Server.Host)
	port := cfg.Server.Port
	if port != 0 {
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, port)
	}
	return ":8080"
}
