package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sagernet/evn"
	"github.com/sagernet/evn/common"
	E "github.com/sagernet/evn/common/exceptions"
	"github.com/sagernet/evn/common/log"

	"github.com/spf13/cobra"
)

var logger = log.NewLogger("evn-send")

type flags struct {
	Port    int
	Address string
	Data    string
	Verbose bool
}

func main() {
	f := new(flags)

	command := &cobra.Command{
		Use:     "evn-send",
		Short:   "send one request and print the reply",
		Version: evn.Version,
		Run: func(cmd *cobra.Command, args []string) {
			run(cmd, f)
		},
	}
	command.Flags().IntVarP(&f.Port, "port", "p", 0, "Server port. 0 connects to the unix socket path given by --address.")
	command.Flags().StringVarP(&f.Address, "address", "a", "/tmp/evn-echo.sock", "Server address or unix socket path.")
	command.Flags().StringVarP(&f.Data, "data", "d", "", "Request payload. Read from stdin when empty.")
	command.Flags().BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose mode.")

	if err := command.Execute(); err != nil {
		logger.Fatal(err)
	}
}

func run(cmd *cobra.Command, f *flags) {
	if f.Verbose {
		log.SetLevel("trace")
	}
	payload := []byte(f.Data)
	if len(payload) == 0 {
		var err error
		payload, err = io.ReadAll(os.Stdin)
		if err != nil {
			logger.Fatal(E.Cause(err, "read stdin"))
		}
	}

	loop, err := evn.NewLoop(evn.LoopOptions{Logger: logger})
	if err != nil {
		logger.Fatal(err)
	}
	stream, err := evn.Connect(loop, f.Port, f.Address)
	if err != nil {
		logger.Fatal(err)
	}

	var failure error
	stream.OnConnect(func(stream *evn.Stream) {
		logger.Debug("connected to ", stream.RemoteAddr())
		err := common.Error(stream.Write(payload))
		if err == nil {
			err = stream.EndWrite()
		}
		if err != nil {
			failure = err
			stream.Destroy()
		}
	})
	stream.OnData(func(stream *evn.Stream, data []byte) {
		os.Stdout.Write(data)
	})
	stream.OnEnd(func(stream *evn.Stream) {
		stream.End()
	})
	stream.OnError(func(stream *evn.Stream, err error) {
		failure = err
		stream.Destroy()
	})
	stream.OnClose(func(stream *evn.Stream, hadError bool) {
		loop.Close()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err = loop.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal(err)
	}
	if failure != nil {
		logger.Fatal(failure)
	}
}
