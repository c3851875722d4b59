package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sgg-bj/lawharvest/internal/app"
	"github.com/sgg-bj/lawharvest/internal/enumerate"
	"github.com/sgg-bj/lawharvest/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API and the periodic scan jobs",

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := buildScheduler(a)
			if sched != nil {
				sched.Start(ctx)
				defer sched.Stop()
			}

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.Cfg.Server.Port),
				Handler:           a.Server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("http server listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server: %w", err)
				}
			case <-ctx.Done():
				a.Logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
			}
			return nil
		},
	}
	return cmd
}

// buildScheduler registers the periodic jobs: the current-year rescan,
// the backward walk over prior years, and a consolidation repair pass.
func buildScheduler(a *app.App) *scheduler.Scheduler {
	if !a.Cfg.Scheduler.Enabled {
		return nil
	}
	sched := scheduler.New(a.Logger)
	types := a.ScanTypes()

	sched.Add("current-year-scan", a.Cfg.Scheduler.CurrentYearInterval, func(ctx context.Context) {
		for _, t := range types {
			if err := runScanFor(ctx, a, enumerate.KindFullRescan, t); err != nil {
				a.Logger.Error("current-year scan failed", zap.Error(err))
			}
		}
	})
	sched.Add("previous-years-scan", a.Cfg.Scheduler.PreviousYearsInterval, func(ctx context.Context) {
		for _, t := range types {
			if err := runScanFor(ctx, a, enumerate.KindCursorResumable, t); err != nil {
				a.Logger.Error("previous-years scan failed", zap.Error(err))
			}
		}
	})
	sched.Add("range-consolidation", a.Cfg.Scheduler.ConsolidateInterval, func(ctx context.Context) {
		year := a.Clock.Now().Year()
		for _, t := range types {
			for _, y := range []int{year, year - 1} {
				merged, err := a.Ranges.Consolidate(ctx, t, y)
				if err != nil {
					a.Logger.Error("consolidation failed",
						zap.String("type", string(t)), zap.Int("year", y), zap.Error(err))
					continue
				}
				if merged > 0 {
					a.Logger.Info("ranges consolidated",
						zap.String("type", string(t)), zap.Int("year", y), zap.Int("merged", merged))
				}
			}
		}
	})
	return sched
}
