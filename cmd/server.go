package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pagekit/internal/db"
	"github.com/ziadkadry99/pagekit/internal/logger"
	"github.com/ziadkadry99/pagekit/internal/notifications"
	"github.com/ziadkadry99/pagekit/internal/server"
)

var (
	serverPort int
	serverSite string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the participant notification server",
	Long: `Serves the JSON and websocket endpoints the page kit loads pending
notifications from, backed by a SQLite database in the data directory.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "port to listen on (overrides server.port)")
	serverCmd.Flags().StringVar(&serverSite, "site", "", "directory of built pages to serve (defaults to {data_dir}/site when it exists)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	site := serverSite
	if site == "" {
		if dir := filepath.Join(cfg.DataDir, "site"); isDir(dir) {
			site = dir
		}
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		AllowAll:       cfg.Server.AllowAll,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SiteDir:        site,
	}, database, logger.Component(log, "http"))

	hub := notifications.NewHub(logger.Component(log, "hub"))
	dispatcher := notifications.NewDispatcher(
		notifications.NewStore(database),
		hub,
		cfg.Server.WebhookURL,
		logger.Component(log, "notifications"),
	)
	notifications.RegisterRoutes(srv.Router(), dispatcher)
	srv.OnShutdown(hub.Close)

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "err", err)
		}
	}()

	log.Info("pagekit server starting",
		"version", Version,
		"port", cfg.Server.Port,
		"database", database.Path(),
		"site", site,
	)
	if err := srv.Start(); err != nil {
		return err
	}
	<-done
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
