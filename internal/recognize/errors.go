package recognize

import "errors"

// ErrModelNotReady indicates the recognizer is still loading or failed to load.
var ErrModelNotReady = errors.New("model not ready")

// ErrUnknownModel indicates a model identifier outside the supported set.
var ErrUnknownModel = errors.New("unknown model")

// ErrUnknownBackend indicates an unsupported recognizer backend name.
var ErrUnknownBackend = errors.New("unknown recognizer backend")

// ErrEmptyCommand indicates the exec backend has no command configured.
var ErrEmptyCommand = errors.New("recognizer command is empty")

// ErrBadOutput indicates the recognizer produced output that could not be decoded.
var ErrBadOutput = errors.New("unreadable recognizer output")
