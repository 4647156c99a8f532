package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nhype/gigaam-inference/internal/transcribe"
)

// transcriptEnvelope mirrors the body of a successful POST /transcribe.
type transcriptEnvelope struct {
	Filename      string  `json:"filename"`
	Duration      float64 `json:"duration"`
	Transcription string  `json:"transcription"`
}

func envelopeOf(res transcribe.Result) transcriptEnvelope {
	return transcriptEnvelope{
		Filename:      res.Filename,
		Duration:      res.Duration.Seconds(),
		Transcription: res.Transcript,
	}
}

// writeEnvelope encodes res as indented JSON.
func writeEnvelope(w io.Writer, res transcribe.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(envelopeOf(res))
}

// warnNonJSONExtension writes a warning to w if path has an extension
// that is not .json.
func warnNonJSONExtension(w io.Writer, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" && ext != ".json" {
		_, _ = fmt.Fprintf(w, "Warning: output is JSON regardless of %s extension\n", ext)
	}
}

// writeFileAtomic writes content to path atomically.
// It fails if the file already exists (O_EXCL), preventing accidental overwrites.
// On write failure, the partial file is removed.
func writeFileAtomic(path string, content []byte) error {
	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output file already exists: %s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.Write(content); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}

	return nil
}
