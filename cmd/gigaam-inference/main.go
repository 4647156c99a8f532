package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhype/gigaam-inference/internal/apierr"
	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/cli"
	"github.com/nhype/gigaam-inference/internal/config"
	"github.com/nhype/gigaam-inference/internal/ffmpeg"
	"github.com/nhype/gigaam-inference/internal/interrupt"
	"github.com/nhype/gigaam-inference/internal/lang"
	"github.com/nhype/gigaam-inference/internal/recognize"
	"github.com/nhype/gigaam-inference/internal/server"
	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitGeneral       = 1
	ExitUsage         = 2
	ExitSetup         = 3
	ExitValidation    = 4
	ExitTranscription = 5
	ExitInterrupt     = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C drains, second forces exit.
	handler, ctx := interrupt.NewHandler(context.Background())

	env := cli.NewEnv(cli.WithVersion(version))

	rootCmd := &cobra.Command{
		Use:     "gigaam-inference",
		Short:   "Speech recognition service with fixed-length chunking",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&env.ConfigPath, "config", "",
		"Config file (default: $"+config.EnvConfigPath+" or ~/.config/gigaam-inference/config.yaml)")

	rootCmd.AddCommand(cli.ServeCmd(env))
	rootCmd.AddCommand(cli.TranscribeCmd(env))
	rootCmd.AddCommand(cli.ModelsCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	err := rootCmd.ExecuteContext(ctx)
	handler.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if isCobraUsageError(err) || errors.Is(err, cli.ErrInvalidFlag) {
		return ExitUsage
	}

	// Setup errors: the environment cannot run the pipeline.
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, server.ErrTLSMissing) ||
		errors.Is(err, config.ErrInvalid) || errors.Is(err, recognize.ErrModelNotReady) ||
		errors.Is(err, recognize.ErrUnknownBackend) || errors.Is(err, recognize.ErrEmptyCommand) ||
		errors.Is(err, apierr.ErrAuthFailed) {
		return ExitSetup
	}

	// Validation errors: the input or a requested option was rejected.
	if errors.Is(err, audio.ErrFileNotFound) || errors.Is(err, transcribe.ErrUnsupportedMedia) ||
		errors.Is(err, transcribe.ErrUnreadableMedia) || errors.Is(err, recognize.ErrUnknownModel) ||
		errors.Is(err, cli.ErrOutputExists) || errors.Is(err, lang.ErrInvalid) {
		return ExitValidation
	}

	// Transcription errors.
	if errors.Is(err, transcribe.ErrTranscription) || errors.Is(err, transcribe.ErrSegmentation) ||
		errors.Is(err, transcribe.ErrTimeout) {
		return ExitTranscription
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",             // Missing required flag
	"unknown flag",              // Flag doesn't exist
	"unknown shorthand",         // Short flag doesn't exist
	"flag needs an argument",    // Flag provided without value
	"invalid argument",          // Invalid flag value type
	"if any flags in the group", // Mutually exclusive flag violation
	"accepts ",                  // Wrong number of arguments (e.g., "accepts 1 arg(s)")
	"requires at least",         // Too few arguments
	"requires at most",          // Too many arguments
	"unknown command",           // Subcommand doesn't exist
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
