package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"accreditation/internal/app"
	"accreditation/internal/config"
	"accreditation/internal/logging"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "accreditation-server",
	Short:         "Serve the school accreditation wizard API.",
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v := viper.GetViper()
		config.Init(v, configFile)
		cfg, err := config.Load(v)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
		if err != nil {
			return err
		}
		defer logger.Sync()
		return run(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file (default ./accreditation.yaml)")
	rootCmd.Flags().Int("http-port", 8080, "HTTP listen port")
	rootCmd.Flags().String("catalog-path", "", "catalog YAML file (default: embedded catalog)")
	rootCmd.Flags().String("log-level", "info", "log level")
	_ = viper.BindPFlags(rootCmd.Flags())
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
