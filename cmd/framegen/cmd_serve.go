package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/peicooks/framegen/clients/server"
	"github.com/peicooks/framegen/pkg/compositor"
	"github.com/peicooks/framegen/pkg/export"
	"github.com/peicooks/framegen/pkg/photo"
)

var (
	serveAddr string
	openUI    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the frame generator web page and API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		comp, err := compositor.New(cfg.Render.FontPath)
		if err != nil {
			return fmt.Errorf("compositor: %w", err)
		}

		srv, err := server.New(server.Deps{
			Compositor:  comp,
			Loader:      photo.NewLoader(cfg.Upload.MaxBytes, logger),
			Exporter:    export.New(cfg.ExportOptions(), logger),
			Log:         logger,
			MaxSessions: cfg.Server.MaxSessions,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.Run(ctx, addr, openUI)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&openUI, "open", false, "Open the page in a browser")
}
