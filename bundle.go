package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/assets/bundle"
	"github.com/stupid-simple/assets/fileutils"
)

func bundleCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	params := args.Bundle
	if params.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	if !fileutils.IsDir(params.Source) {
		return fmt.Errorf("source %s is not a directory", params.Source)
	}
	if !params.DryRun {
		if err := fileutils.VerifyWritable(filepath.Dir(params.Dest)); err != nil {
			return fmt.Errorf("destination directory is not writable: %w", err)
		}
	}

	summary, err := bundle.Write(
		ctx,
		params.Dest,
		bundle.ScanDirectory(ctx, params.Source, logger),
		logger,
		bundle.WithPrefix(params.Prefix),
		bundle.WithDryRun(params.DryRun),
		bundle.WithMaxFileBytes(params.MaxFileSize.Size),
	)
	if err != nil {
		return err
	}

	logger.Info().
		Str("source", params.Source).
		Str("dest", summary.Path).
		Int("files", len(summary.Entries)).
		Int64("bytes", summary.Bytes).
		Int("skipped", summary.Skipped).
		Msg("bundle ready")
	return nil
}
