package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sagernet/evn"
	"github.com/sagernet/evn/common"
	E "github.com/sagernet/evn/common/exceptions"
	"github.com/sagernet/evn/common/log"
	"github.com/sagernet/evn/common/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var logger = log.NewLogger("evn-echo")

var configPath string

func main() {
	command := &cobra.Command{
		Use:     "evn-echo",
		Short:   "echo server over tcp or unix sockets",
		Version: evn.Version,
		Run:     run,
	}
	command.Flags().IntP("port", "p", 0, "Listen port. 0 listens on the unix socket path given by --address.")
	command.Flags().StringP("address", "a", "/tmp/evn-echo.sock", "Listen address or unix socket path.")
	command.Flags().Bool("oneshot", false, "Collect each request until the client half-closes, then reply once.")
	command.Flags().Int("max-aggregate", 0, "Maximum oneshot request size in bytes, 0 for unlimited.")
	command.Flags().String("metrics", "", "Serve prometheus metrics on this address.")
	command.Flags().String("log-level", "info", "Log level.")
	command.Flags().StringVarP(&configPath, "config", "c", "", "Use a configuration file.")

	if err := command.Execute(); err != nil {
		logger.Fatal(err)
	}
}

func loadConfig(cmd *cobra.Command) (*viper.Viper, error) {
	config := viper.New()
	config.SetEnvPrefix("EVN")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()
	err := config.BindPFlags(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		config.SetConfigFile(configPath)
		err = config.ReadInConfig()
		if err != nil {
			return nil, E.Cause(err, "read config file")
		}
	}
	return config, nil
}

func run(cmd *cobra.Command, args []string) {
	config, err := loadConfig(cmd)
	if err != nil {
		logger.Fatal(err)
	}
	err = log.SetLevel(config.GetString("log-level"))
	if err != nil {
		logger.Fatal(err)
	}

	registry := prometheus.NewRegistry()
	loopMetrics := metrics.New("evn")
	err = loopMetrics.Register(registry)
	if err != nil {
		logger.Fatal(err)
	}

	loop, err := evn.NewLoop(evn.LoopOptions{
		Logger:  logger,
		Metrics: loopMetrics,
	})
	if err != nil {
		logger.Fatal(err)
	}

	var options []evn.ServerOption
	if config.GetBool("oneshot") {
		options = append(options, evn.WithOneshot(config.GetInt("max-aggregate")))
	}
	server := evn.NewServer(loop, handleConnection, append(options, evn.WithReuseAddr(), evn.WithStreamTracking())...)
	server.OnError(func(server *evn.Server, err error) {
		logger.Warn(err)
	})
	err = server.Listen(config.GetInt("port"), config.GetString("address"))
	if err != nil {
		logger.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := loop.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if address := config.GetString("metrics"); address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		httpServer := &http.Server{Addr: address, Handler: mux}
		group.Go(func() error {
			logger.Info("metrics server started at ", address)
			err := httpServer.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		group.Go(func() error {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	err = group.Wait()
	common.Close(server, loop)
	if err != nil {
		logger.Fatal(err)
	}
}

func handleConnection(server *evn.Server, stream *evn.Stream) {
	logger.Debug("accepted connection fd ", stream.FD())
	stream.OnData(func(stream *evn.Stream, data []byte) {
		err := common.Error(stream.Write(data))
		if err != nil {
			logger.Debug(err)
			return
		}
		if stream.Oneshot() {
			stream.EndWrite()
		}
	})
	stream.OnEnd(func(stream *evn.Stream) {
		if stream.Buffered() == 0 {
			stream.End()
			return
		}
		stream.OnDrain(func(stream *evn.Stream) {
			stream.End()
		})
	})
	stream.OnError(func(stream *evn.Stream, err error) {
		if errors.Is(err, evn.ErrAggregateOverflow) {
			logger.Warn("fd ", stream.FD(), ": ", err)
			return
		}
		logger.Debug("fd ", stream.FD(), ": ", err)
		stream.Destroy()
	})
}
