package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/BDNK1/taskforge/cli/internal/security"
	"github.com/BDNK1/taskforge/runtime"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the task type and validation API over HTTP",
	Long: `Serve exposes the registered task types and build validation over HTTP:

  GET  /types          registered task type names
  GET  /types/:name    actions and properties of one type
  POST /validate       {"build": "path"} validated against serve.root
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().String("root", ".", "directory build files must live in")
	if err := v.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	if err := v.BindPFlag("serve.root", serveCmd.Flags().Lookup("root")); err != nil {
		panic(err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	l, shutdownTelemetry, err := setupTelemetry(ctx, settings.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			l.Warn("Failed to flush telemetry", "error", err)
		}
	}()

	app, _, err := newApp(settings, l, appOptions{})
	if err != nil {
		return err
	}

	g := newRouter(app, settings.Serve.Root)
	server := &http.Server{Addr: settings.Serve.Addr, Handler: g}

	errCh := make(chan error, 1)
	go func() {
		l.Info("Listening", "addr", settings.Serve.Addr, "root", settings.Serve.Root)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	l.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRouter(app *runtime.App, root string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	runtime.NewHttpHandler(app, security.Guard(root), g)
	return g
}
