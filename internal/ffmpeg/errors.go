package ffmpeg

import "errors"

// ErrNotFound indicates the FFmpeg binary could not be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ErrProbeNotFound indicates the FFprobe binary could not be located.
// Probing still works through FFmpeg alone, so this is usually only a warning.
var ErrProbeNotFound = errors.New("ffprobe not found")
