// Package miningsim implements the miningsim command line tool.
package miningsim

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shreekarashastry/miningsim/internal/config"
	"github.com/shreekarashastry/miningsim/internal/logging"
	"github.com/shreekarashastry/miningsim/internal/metrics"
)

const c_shutdownTimeout = 5 * time.Second

// app is the state shared by every command of one invocation.
type app struct {
	v         *viper.Viper
	cfgFile   string
	file      *config.File
	logger    *logrus.Logger
	collector *metrics.Collector
	server    *http.Server
	out       io.Writer
	errOut    io.Writer
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree writing results to out and logs and
// progress to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:         config.NewViper(),
		collector: metrics.New(),
		out:       out,
		errOut:    errOut,
	}

	root := &cobra.Command{
		Use:               "miningsim",
		Short:             "Simulate strategic block mining and measure the revenue of each strategy",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "configuration file (yaml, toml or json)")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")
	flags.String("log-file", "", "also write logs to this file, rotated by size")
	flags.String("metrics-addr", "", "serve prometheus metrics on this address")
	a.bind("log.level", root, "log-level")
	a.bind("log.format", root, "log-format")
	a.bind("log.file", root, "log-file")
	a.bind("metrics.addr", root, "metrics-addr")

	root.AddCommand(newRunCmd(a), newSweepCmd(a), newVersionCmd(a))
	return root
}

func (a *app) bind(key string, cmd *cobra.Command, flag string) {
	f := cmd.PersistentFlags().Lookup(flag)
	if f == nil {
		f = cmd.Flags().Lookup(flag)
	}
	if err := a.v.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	file, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.file = file

	a.logger, err = logging.New(file.Log, a.errOut)
	if err != nil {
		return err
	}
	if a.cfgFile != "" {
		a.logger.WithField("file", a.cfgFile).Debug("Loaded configuration")
	}

	if addr := file.Metrics.Addr; addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(a.collector, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		a.server = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: c_shutdownTimeout}
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.WithError(err).Error("Metrics server failed")
			}
		}()
		a.logger.WithField("addr", addr).Info("Serving metrics")
	}
	return nil
}

func (a *app) teardown() error {
	if a.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c_shutdownTimeout)
	defer cancel()
	return errors.Wrap(a.server.Shutdown(ctx), "stop metrics server")
}

func (a *app) entry() *logrus.Entry {
	return logrus.NewEntry(a.logger)
}
