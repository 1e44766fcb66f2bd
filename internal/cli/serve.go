package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/bookgraph/internal/cache"
	"github.com/ppiankov/bookgraph/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the book and analysis endpoints:

  GET <base>/health              liveness probe
  GET <base>/book/:id            raw book text
  GET <base>/book/:id/metadata   title, authors and language
  GET <base>/analyze/:id         character interaction graph
  GET <base>/stats/:id           per-character statistics

Responses are cached per endpoint and id. Without a usable LLM provider the
server still starts and the analysis endpoints answer 503.

Example:
  bookgraph serve
  bookgraph serve --addr :8080 --cache redis`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":5001", "listen address")
	serveCmd.Flags().String("base-path", "/api", "route prefix")
	serveCmd.Flags().String("cache", "memory", "cache backend (memory, disk, layered, redis, none)")
	serveCmd.Flags().Bool("no-metrics", false, "disable the Prometheus endpoint")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.base_path", serveCmd.Flags().Lookup("base-path"))
	_ = viper.BindPFlag("cache.backend", serveCmd.Flags().Lookup("cache"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	if noMetrics, _ := cmd.Flags().GetBool("no-metrics"); noMetrics {
		a.cfg.Metrics.Enabled = false
	}

	c, err := cache.New(a.cfg.Cache)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	if closer, ok := c.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				a.logger.Warn("close cache", zap.Error(err))
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Bookgraph API\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Listen:     %s\n", a.cfg.Server.Addr)
	fmt.Fprintf(os.Stderr, "  Base path:  %s\n", a.cfg.Server.BasePath)
	fmt.Fprintf(os.Stderr, "  Cache:      %s\n", a.cfg.Cache.Backend)
	fmt.Fprintf(os.Stderr, "  LLM:        %s\n", a.providerLabel())
	if a.cfg.Metrics.Enabled {
		fmt.Fprintf(os.Stderr, "  Metrics:    %s\n", a.cfg.Metrics.Path)
	}
	fmt.Fprintf(os.Stderr, "\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.checkProvider(ctx)

	srv := server.New(a.cfg, a.pipeline, c, a.metrics, a.logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
