package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"alusys.io/edge/simhttp/at"
	"alusys.io/edge/simhttp/modem"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("apn", "", "Access point name for the PDP context")
	flag.String("apn-user", "", "PDP authentication user")
	flag.String("apn-pass", "", "PDP authentication password")
	flag.String("method", "GET", "HTTP method (GET, POST, PUT)")
	flag.String("url", "", "Request URL")
	flag.String("body", "", "Request body for POST/PUT")
	flag.String("header", "", "Extra header line sent to the HTTP engine")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// run owns the session; exiting from here keeps its deferred Close
	// ahead of process exit.
	os.Exit(run(config, logger))
}

func run(config *Config, logger *slog.Logger) int {
	if config.URL == "" {
		logger.Error("No URL given")
		return 1
	}

	var method at.Method
	switch strings.ToUpper(config.Method) {
	case "GET":
		method = at.MethodGet
	case "POST":
		method = at.MethodPost
	case "PUT":
		method = at.MethodPut
	default:
		logger.Error("Unsupported HTTP method", "method", config.Method)
		return 1
	}

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(modem.SerialDialer{
			PortName: config.SerialPort,
			BaudRate: config.BaudRate,
		}).
		WithAPN(config.APN).
		WithAuth(config.APNUser, config.APNPass).
		WithUserData(config.Header).
		WithLogger(logger.With("component", "modem")).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		return 1
	}

	ctx := context.Background()

	s, err := modem.New(ctx, modemConfig)
	if err != nil {
		logger.Error("Failed to create modem session", "error", err)
		return 1
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("Failed to close modem session", "error", err)
		}
	}()

	if err := s.Attach(ctx); err != nil {
		logger.Error("PDP bring-up failed", "error", err)
		return 1
	}

	var outcome modem.Outcome
	switch method {
	case at.MethodGet:
		outcome, err = s.Get(ctx, config.URL)
	case at.MethodPost:
		outcome, err = s.Post(ctx, config.URL, []byte(config.Body))
	case at.MethodPut:
		outcome, err = s.Put(ctx, config.URL, []byte(config.Body))
	}
	if err != nil {
		logger.Error("HTTP transaction failed", "method", method.String(), "error", err)
		return 1
	}

	logger.Info("HTTP transaction finished",
		"method", method.String(), "status", outcome.StatusCode, "bytes", len(outcome.Body))

	if len(outcome.Body) > 0 {
		fmt.Println(string(outcome.Body))
	}
	if !outcome.OK {
		return 1
	}
	return 0
}
