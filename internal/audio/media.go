package audio

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nhype/gigaam-inference/internal/format"
)

// Input references one uploaded or local audio file for the lifetime of a
// single pipeline run.
type Input struct {
	Path        string // Location of the bytes on disk.
	Filename    string // Name reported back to the client.
	ContentType string // Declared or sniffed media type, without parameters.
	Size        int64  // Byte length.
}

// String returns a human-readable representation for logging.
func (in Input) String() string {
	return fmt.Sprintf("%s (%s, %s)", in.Filename, in.ContentType, format.Size(in.Size))
}

// Validate rejects empty inputs and media types the pipeline does not accept.
func (in Input) Validate() error {
	if in.Path == "" {
		return fmt.Errorf("%w: no file provided", ErrUnsupportedMedia)
	}
	if in.Size <= 0 {
		return fmt.Errorf("%w: file %q is empty", ErrUnsupportedMedia, in.Filename)
	}
	if !Accepts(in.Filename, in.ContentType) {
		return fmt.Errorf("%w: %q (%s); only audio files are supported",
			ErrUnsupportedMedia, in.Filename, displayType(in.ContentType))
	}
	return nil
}

// audioExtensions lists filename extensions accepted regardless of content type.
var audioExtensions = map[string]bool{
	".webm": true,
	".ogg":  true,
	".oga":  true,
	".opus": true,
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".aac":  true,
}

// containerTypes are non-audio/* types browsers and sniffers report for
// audio-only recordings.
var containerTypes = map[string]bool{
	"video/webm":      true,
	"video/mp4":       true,
	"application/ogg": true,
}

// Accepts reports whether a file is acceptable by content type or extension.
// Either is sufficient: browsers often upload recordings as
// application/octet-stream with a .webm name.
func Accepts(filename, contentType string) bool {
	ct := baseType(contentType)
	if strings.HasPrefix(ct, "audio/") || containerTypes[ct] {
		return true
	}
	return audioExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ResolveContentType returns the declared type without parameters, or the
// type sniffed from head when the declared type is missing or generic.
func ResolveContentType(declared string, head []byte) string {
	ct := baseType(declared)
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if len(head) == 0 {
		return ct
	}
	return baseType(http.DetectContentType(head))
}

// Extension returns the lowercase extension of filename if it is a known
// audio extension, else "". FFmpeg uses it as a demuxer hint.
func Extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if audioExtensions[ext] {
		return ext
	}
	return ""
}

// baseType strips parameters such as "; codecs=opus".
func baseType(ct string) string {
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType, _, _ = strings.Cut(ct, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func displayType(ct string) string {
	if ct == "" {
		return "no content type"
	}
	return ct
}
