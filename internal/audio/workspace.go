package audio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// workspacePrefix marks directories created by NewWorkspace.
const workspacePrefix = "gigaam-"

// Workspace is a per-request scratch directory holding the saved upload and
// any segment files. Close removes everything and is safe to call more than
// once, so callers defer it immediately after creation.
type Workspace struct {
	dir string

	mu     sync.Mutex
	closed bool

	// Injectable dependencies (defaults to OS implementations).
	files fileRemover
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceConfig)

type workspaceConfig struct {
	label   string
	tempDir tempDirCreator
	files   fileRemover
}

// WithLabel embeds a label, typically the job ID, in the directory name.
func WithLabel(label string) WorkspaceOption {
	return func(c *workspaceConfig) { c.label = label }
}

// WithWorkspaceTempDir sets the temp directory creator.
func WithWorkspaceTempDir(t tempDirCreator) WorkspaceOption {
	return func(c *workspaceConfig) { c.tempDir = t }
}

// WithWorkspaceFileRemover sets the file remover.
func WithWorkspaceFileRemover(f fileRemover) WorkspaceOption {
	return func(c *workspaceConfig) { c.files = f }
}

// NewWorkspace creates a fresh directory under root (the OS temp dir when
// root is empty).
func NewWorkspace(root string, opts ...WorkspaceOption) (*Workspace, error) {
	cfg := workspaceConfig{
		tempDir: osTempDirCreator{},
		files:   osFileRemover{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	pattern := workspacePrefix + "*"
	if cfg.label != "" {
		pattern = workspacePrefix + cfg.label + "-*"
	}
	dir, err := cfg.tempDir.MkdirTemp(root, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &Workspace{dir: dir, files: cfg.files}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the location of name inside the workspace. Only the base
// name is used, so callers cannot escape the directory.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, filepath.Base(name))
}

// Create creates (or truncates) a file inside the workspace.
func (w *Workspace) Create(name string) (*os.File, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("workspace %s already closed", w.dir)
	}
	// #nosec G304 -- path is confined to the workspace by Path
	return os.Create(w.Path(name))
}

// Remove deletes one file early, e.g. a segment whose result is already in.
// A file that is already gone is not an error.
func (w *Workspace) Remove(path string) error {
	if err := w.files.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Close removes the workspace directory and everything in it.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.files.RemoveAll(w.dir)
}
