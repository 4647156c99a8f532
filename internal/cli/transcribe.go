package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/config"
	"github.com/nhype/gigaam-inference/internal/lang"
	"github.com/nhype/gigaam-inference/internal/recognize"
	"github.com/nhype/gigaam-inference/internal/telemetry"
)

// transcribeOptions holds the parsed flags of the transcribe command.
type transcribeOptions struct {
	output     string
	model      string
	backend    string
	language   string
	parallel   int
	maxSegment float64
	verbatim   bool
	verbose    bool
}

// TranscribeCmd creates the transcribe command.
// The env parameter provides injectable dependencies for testing.
func TranscribeCmd(env *Env) *cobra.Command {
	var opts transcribeOptions

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe a local audio file",
		Long: `Transcribe a local audio file with the same pipeline the server runs.

The file is probed for its duration, split into fixed-length segments when it
is longer than the segment limit, each segment is recognized in order, and the
joined transcript is printed as the JSON body POST /transcribe would return.

Flags override the corresponding configuration keys for this run only.`,
		Example: `  gigaam-inference transcribe lecture.webm
  gigaam-inference transcribe call.wav --model v2_rnnt -o call.json
  gigaam-inference transcribe long.ogg --parallel 4 --max-segment 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscribe(cmd, env, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the JSON result to a file instead of stdout")
	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Recognition model (see 'models')")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Recognizer backend: exec, openai, mock (placeholder text)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Language hint for the backend (ISO 639-1, e.g. ru)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 0, "Segments recognized concurrently (1-8)")
	cmd.Flags().Float64Var(&opts.maxSegment, "max-segment", 0, "Longest segment in seconds")
	cmd.Flags().BoolVar(&opts.verbatim, "verbatim-join", false, "Keep a separator for empty segment results")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	return cmd
}

// applyTranscribeFlags overlays flag values on cfg.
func applyTranscribeFlags(cfg *config.Config, opts transcribeOptions) error {
	if opts.model != "" {
		if _, err := recognize.ParseModel(opts.model); err != nil {
			return err
		}
		cfg.Model.Name = opts.model
	}
	if opts.backend != "" {
		cfg.Model.Backend = opts.backend
	}
	if opts.language != "" {
		if err := lang.Validate(opts.language); err != nil {
			return err
		}
		cfg.Model.Language = opts.language
	}
	if opts.parallel != 0 {
		cfg.Pipeline.SegmentParallel = clampParallel(opts.parallel)
	}
	if opts.maxSegment < 0 {
		return fmt.Errorf("%w: --max-segment must be positive", ErrInvalidFlag)
	}
	if opts.maxSegment > 0 {
		cfg.Pipeline.MaxSegmentSeconds = opts.maxSegment
		if cfg.Pipeline.MaxSegment() <= 0 {
			return fmt.Errorf("%w: --max-segment %v is below one microsecond", ErrInvalidFlag, opts.maxSegment)
		}
	}
	if opts.verbatim {
		cfg.Pipeline.VerbatimJoin = true
	}
	return nil
}

// runTranscribe executes the transcription pipeline on a local file.
// Validation order: file exists -> format -> config -> flags -> setup -> model load.
func runTranscribe(cmd *cobra.Command, env *Env, inputPath string, opts transcribeOptions) error {
	ctx := cmd.Context()

	// === VALIDATION (fail-fast) ===

	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", audio.ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot access input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", audio.ErrUnsupportedMedia, inputPath)
	}

	in := audio.Input{
		Path:     inputPath,
		Filename: filepath.Base(inputPath),
		Size:     info.Size(),
	}
	in.ContentType = audio.ResolveContentType("", sniff(inputPath))
	if err := in.Validate(); err != nil {
		return err
	}

	cfg, err := env.ConfigLoader.Load(env.ConfigPath)
	if err != nil {
		return err
	}
	if err := applyTranscribeFlags(&cfg, opts); err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger := telemetry.NewLogger(env.Stderr, level, "text")

	// === SETUP ===

	st, err := buildStack(ctx, env, cfg, logger)
	if err != nil {
		return err
	}
	if err := st.handle.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", recognize.ErrModelNotReady, err)
	}

	// === TRANSCRIPTION ===

	res, err := st.runner.Run(ctx, in)
	if err != nil {
		return err
	}

	// === WRITE OUTPUT ===

	if opts.output == "" {
		return writeEnvelope(env.Stdout, res)
	}
	warnNonJSONExtension(env.Stderr, opts.output)
	var buf bytes.Buffer
	if err := writeEnvelope(&buf, res); err != nil {
		return err
	}
	if err := writeFileAtomic(opts.output, buf.Bytes()); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(env.Stderr, "Done: %s\n", opts.output)
	return nil
}

// sniff returns the first bytes of path for content type detection, or nil.
func sniff(path string) []byte {
	f, err := os.Open(path) // #nosec G304 -- user-specified input file
	if err != nil {
		return nil
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return head[:n]
}
