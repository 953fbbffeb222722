package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/journal-csv-converter/internal/converter"
	"github.com/ginjaninja78/journal-csv-converter/internal/llm"
	"github.com/ginjaninja78/journal-csv-converter/internal/server"
	"github.com/ginjaninja78/journal-csv-converter/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

// serveCmd runs the HTTP interface for one editing session.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload, edit and export API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			mainConfig.Server.Addr = serveAddr
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, err := llm.New(ctx, mainConfig.LLM, logger)
		if err != nil {
			return err
		}
		conv := converter.New(mainConfig, client, store.New(), logger)

		logger.Info("starting server",
			zap.String("addr", mainConfig.Server.Addr),
			zap.String("provider", mainConfig.LLM.Provider),
			zap.String("api_key", llm.MaskKey(mainConfig.LLM.APIKey)))
		return server.New(mainConfig, conv, logger).Run(ctx, mainConfig.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8501)")
}
