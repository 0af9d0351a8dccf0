// Command streamrelay is a demonstration TCP line-echo relay built on the
// stream engine: inbound bytes flow through a flow-controlled StreamReader,
// and every completed line is echoed back through a payload under a writer
// lease.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"example.com/streamcore/internal/config"
	"example.com/streamcore/internal/logger"
	"example.com/streamcore/internal/payload"
	"example.com/streamcore/internal/streams"
	"example.com/streamcore/internal/transport"
	"example.com/streamcore/internal/writer"
)

var configFilePath string

func main() {
	flag.StringVar(&configFilePath, "config", "", "Path to the configuration file (JSON or TOML); defaults apply when omitted")
	flag.Parse()

	cfg := &config.Config{}
	if configFilePath != "" {
		var err error
		cfg, err = config.LoadConfig(configFilePath)
		if err != nil {
			log.Fatalf("Failed to load configuration from %s: %v", configFilePath, err)
		}
	}

	appLogger, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if err := appLogger.CloseLogFile(); err != nil {
			log.Printf("Error closing log file during shutdown: %v", err)
		}
	}()

	addr := "127.0.0.1:9000"
	if cfg.Relay != nil && cfg.Relay.ListenAddress != "" {
		addr = cfg.Relay.ListenAddress
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		appLogger.Error("listen failed", logger.LogFields{"address": addr, "error": err.Error()})
		os.Exit(1)
	}
	appLogger.Info("listening", logger.LogFields{"address": ln.Addr().String()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		appLogger.Info("shutting down", nil)
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			appLogger.Warn("accept failed", logger.LogFields{"error": err.Error()})
			continue
		}
		go handleConn(ctx, nc, cfg, appLogger)
	}
}

func handleConn(ctx context.Context, nc net.Conn, cfg *config.Config, appLogger *logger.Logger) {
	remote := nc.RemoteAddr().String()
	connLogger := appLogger.WithComponent("relay")
	connLogger.Info("connection accepted", logger.LogFields{"remote": remote})

	limit := cfg.Stream.EffectiveReadLimit()
	conn := transport.NewConn(nc, appLogger, transport.Options{
		ChunkSize:          cfg.Stream.EffectiveChunkSize(),
		WriteHighWatermark: cfg.Stream.EffectiveWriteHighWatermark(),
	})
	defer conn.Close()

	// Start the transport paused so the flow-control wrapper resumes it and
	// takes ownership of the pause state.
	_ = conn.PauseReading()
	reader := streams.NewFlowControlStreamReader(
		streams.NewStreamReader(streams.WithLimit(limit)), conn, limit)
	conn.Start(reader)

	sw := writer.NewStreamWriter(conn)
	if cfg.Relay != nil && cfg.Relay.TCPNoDelay != nil && *cfg.Relay.TCPNoDelay {
		sw.SetTCPNoDelay(true)
	}

	for {
		line, err := reader.ReadLine(ctx)
		if err != nil {
			var limitErr *streams.LimitExceededError
			if errors.As(err, &limitErr) {
				connLogger.Warn("line too long, dropping", logger.LogFields{"remote": remote, "limit": limitErr.Limit})
				continue
			}
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				connLogger.Warn("read failed", logger.LogFields{"remote": remote, "error": err.Error()})
			}
			return
		}
		if len(line) == 0 {
			// Empty line means the stream ended.
			connLogger.Info("connection done", logger.LogFields{
				"remote":      remote,
				"total_bytes": reader.TotalBytes(),
			})
			return
		}

		p, err := payload.Get(fmt.Sprintf("echo: %s", line))
		if err != nil {
			connLogger.Error("payload lookup failed", logger.LogFields{"error": err.Error()})
			return
		}
		if err := echo(ctx, sw, p); err != nil {
			connLogger.Warn("write failed", logger.LogFields{"remote": remote, "error": err.Error()})
			return
		}
	}
}

// echo streams p through sw under the writer lease.
func echo(ctx context.Context, sw *writer.StreamWriter, p payload.Payload) error {
	acquired := make(chan struct{})
	sw.Acquire(func(transport.Transport) { close(acquired) })
	select {
	case <-acquired:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer sw.Release()
	return p.Write(ctx, sw)
}
