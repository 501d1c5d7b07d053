package labelkit

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

	"github.com/soundprediction/labelkit/pkg/config"
	"github.com/soundprediction/labelkit/pkg/server"
	"github.com/soundprediction/labelkit/pkg/utils"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the labelkit HTTP server",
	Long: `Start the labelkit HTTP server to provide REST access to the converters.

The server provides endpoints for:
- COCO export of label export records
- NDJSON validation and import row generation
- Mask vectorization
- Health checks

Configuration can be provided through config files, environment variables, or command-line flags.`,
	RunE: runServer,
}

var (
	serverHost string
	serverPort int
	serverMode string
)

func init() {
	rootCmd.AddCommand(serverCmd)

	// Server-specific flags
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Server port")
	serverCmd.Flags().StringVar(&serverMode, "mode", "debug", "Server mode (debug, release, test)")

	// Telemetry flags
	serverCmd.Flags().String("telemetry-parquet-path", "", "Directory for parquet telemetry of warnings and errors")
	viper.BindPFlag("telemetry.parquet_path", serverCmd.Flags().Lookup("telemetry-parquet-path"))
}

func runServer(cmd *cobra.Command, args []string) error {
	rt, err := newSession()
	if err != nil {
		return err
	}
	defer rt.Close()

	// Override config with command-line flags
	overrideConfigWithFlags(cmd, rt.cfg)

	if err := validateServerConfig(rt.cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	srv := server.New(rt.cfg, rt.client)
	srv.Setup()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Start server in a goroutine
	serverErrChan := utils.SafeGoWithResult(func() error {
		if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Wait for shutdown signal or server error
	select {
	case err, ok := <-serverErrChan:
		if !ok {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		rt.client.Logger().Info("received signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		rt.client.Logger().Info("server stopped gracefully")
		return nil
	}
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serverHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serverPort
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode = serverMode
	}
}

func validateServerConfig(cfg *config.Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}
	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid server mode: %q", cfg.Server.Mode)
	}
	return nil
}
