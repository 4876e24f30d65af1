package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/adaptly/internal/api"
	"github.com/abhisek/adaptly/internal/scheduler"
)

const breakerWatchInterval = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over HTTP and run the review sweep",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		rt, err := newRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		addr := rt.cfg.HTTPAddr
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}
		if rt.cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		sched := scheduler.New(rt.store, rt.publisher, rt.metrics, rt.logger)
		if err := sched.WatchBreakers(breakerWatchInterval, rt.catalogBreaker); err != nil {
			return err
		}
		if err := sched.Start(ctx, rt.cfg.ReviewSweep); err != nil {
			return err
		}
		defer sched.Stop()

		srv := api.New(rt.engine, api.Options{
			Health:  rt.store,
			Metrics: rt.metrics.Handler(),
			Logger:  rt.logger,
		})
		rt.logger.Info("serving",
			"policy", rt.cfg.Policy(),
			"catalog", rt.cfg.Catalog,
			"db_driver", rt.cfg.DBDriver,
			"llm_provider", rt.cfg.LLM.Provider,
			"review_sweep", rt.cfg.ReviewSweep)

		if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides ADAPTLY_HTTP_ADDR)")
}
