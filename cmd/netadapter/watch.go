package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"example.com/netadapter/pkg"
	"example.com/netadapter/pkg/discovery"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rediscover interfaces whenever links appear or disappear",
	Long: `Watch /sys/class/net on the local host and rerun discovery after every
burst of link changes. Discovery metrics are served on --metrics-addr.

Examples:
  netadapter watch
  netadapter watch --metrics-addr :9108 --debounce 5s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("metrics-addr", "", "Listen address of the /metrics endpoint (empty disables it)")
	watchCmd.Flags().Duration("debounce", 0, "Quiet period before rediscovery")
	rootCmd.AddCommand(watchCmd)
}

// linkMonitor coalesces link events and triggers one rediscovery per burst.
type linkMonitor struct {
	debounce   time.Duration
	rediscover func(ctx context.Context) error
	logger     *logrus.Entry
}

// isLinkEvent reports whether event changes the set of links or the VF
// count of one.
func isLinkEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		return !strings.HasPrefix(filepath.Base(event.Name), ".")
	}
	return event.Has(fsnotify.Write) && strings.HasSuffix(event.Name, "sriov_numvfs")
}

// run processes events until ctx is done or the channels close.
func (m *linkMonitor) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if !isLinkEvent(event) {
				continue
			}
			m.logger.WithField("path", event.Name).Debug("link change detected")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(m.debounce)
			fire = timer.C
		case err, ok := <-errs:
			if !ok {
				return
			}
			m.logger.WithError(err).Error("file system monitor error")
		case <-fire:
			timer, fire = nil, nil
			m.logger.Info("performing rediscovery")
			if err := m.rediscover(ctx); err != nil {
				m.logger.WithError(err).Error("failed to rediscover interfaces")
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	go func() {
		pkg.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			pkg.WithError(err).Error("metrics server failed")
		}
	}()
}

func runWatch(cmd *cobra.Command, args []string) error {
	if settings.Target.Host != "" {
		return fmt.Errorf("watch only supports the local host")
	}
	cfg := settings.Watch
	if cmd.Flags().Changed("metrics-addr") {
		cfg.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Debounce, _ = cmd.Flags().GetDuration("debounce")
	}

	ctx, cancel := signalContext()
	defer cancel()

	metrics := discovery.NewMetrics()
	s, err := openSession(settings, metrics)
	if err != nil {
		return err
	}
	defer s.Close()

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics, collectors.NewGoCollector())
		serveMetrics(ctx, cfg.MetricsAddr, reg)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(cfg.Path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.Path, err)
	}

	logger := pkg.WithField("path", cfg.Path)
	monitor := &linkMonitor{
		debounce: cfg.Debounce,
		logger:   logger,
		rediscover: func(ctx context.Context) error {
			records, err := discoverConfigured(ctx, s.discoverer, settings)
			if err != nil {
				return err
			}
			logger.WithField("interfaces", len(records)).Info("rediscovery completed")
			return nil
		},
	}

	if err := monitor.rediscover(ctx); err != nil {
		return err
	}
	logger.Info("watching for link changes")
	monitor.run(ctx, watcher.Events, watcher.Errors)
	return nil
}
