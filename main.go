package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
)

// Set at build time with -ldflags "-X main.version=...".
var version = ""

func newLogger() zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "[" + time.RFC3339 + "]",
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			zerolog.MessageFieldName,
		},
	}
	logger := zerolog.New(out).With().Timestamp().Logger().Level(zerolog.InfoLevel)

	if envLevel, ok := os.LookupEnv("LOG_LEVEL"); ok {
		level, err := zerolog.ParseLevel(envLevel)
		if err != nil {
			logger.Warn().Err(err).Str("LOG_LEVEL", envLevel).Msg("unknown log level, using info")
			return logger
		}
		logger = logger.Level(level)
	}
	return logger
}

func buildVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "devel"
}

func main() {
	args := Command{}
	cli := kong.Parse(&args,
		kong.Name("ssassets"),
		kong.Description("Stupid Simple Assets"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger()
	switch cli.Command() {
	case "version":
		fmt.Println("ssassets", buildVersion())
	case "serve":
		err := serveCommand(ctx, args, logger)
		if err != nil {
			logger.Error().Err(err).Msg("serve error")
			cli.Exit(1)
		}
	case "bundle":
		err := bundleCommand(ctx, args, logger)
		if err != nil {
			logger.Error().Err(err).Msg("bundle error")
			cli.Exit(1)
		}
	default:
		panic(cli.Command())
	}
}
