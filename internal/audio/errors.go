package audio

import "errors"

// ErrUnsupportedMedia indicates the input is empty or not an accepted audio type.
var ErrUnsupportedMedia = errors.New("unsupported media")

// ErrUnreadableMedia indicates no probing strategy could determine a duration.
var ErrUnreadableMedia = errors.New("unreadable media")

// ErrSegmentation indicates FFmpeg could not produce the planned segments.
var ErrSegmentation = errors.New("segmentation failed")

// ErrInvalidPlan indicates a chunk plan was requested with a non-positive
// segment limit or a negative duration.
var ErrInvalidPlan = errors.New("invalid chunk plan")

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")
