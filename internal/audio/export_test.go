package audio

// Export internal functions for testing.
// This file is only compiled during tests (suffix _test.go).

import (
	"io"
	"time"
)

// ParseDurationFromFFmpegOutput exports parseDurationFromFFmpegOutput for testing.
// Returns the duration and whether any numeric value was found.
func ParseDurationFromFFmpegOutput(output string) (time.Duration, bool) {
	r := parseDurationFromFFmpegOutput(output)
	return r.d, r.found
}

// ParseFFprobeJSON exports parseFFprobeJSON for testing.
func ParseFFprobeJSON(output string) (time.Duration, bool) {
	r := parseFFprobeJSON(output)
	return r.d, r.found
}

// ParseTimeComponents exports parseTimeComponents for testing.
var ParseTimeComponents = parseTimeComponents

// FormatFFmpegTime exports formatFFmpegTime for testing.
var FormatFFmpegTime = formatFFmpegTime

// SegmentEncodingArgs exports segmentEncodingArgs for testing.
var SegmentEncodingArgs = segmentEncodingArgs

// LastLine exports lastLine for testing.
var LastLine = lastLine

// WAVDuration exports the data-chunk duration reader for testing.
func WAVDuration(r io.ReadSeeker) (time.Duration, bool) {
	info, ok := readPCMInfo(r)
	if !ok {
		return 0, false
	}
	return info.duration(), true
}

// --- Dependency injection exports ---

// CommandRunner exports commandRunner interface for testing.
type CommandRunner = commandRunner

// TempDirCreator exports tempDirCreator interface for testing.
type TempDirCreator = tempDirCreator

// FileRemover exports fileRemover interface for testing.
type FileRemover = fileRemover

// FileStatter exports fileStatter interface for testing.
type FileStatter = fileStatter

// FileOpener exports fileOpener interface for testing.
type FileOpener = fileOpener
