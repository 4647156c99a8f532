package audio

import (
	"context"
	"io"
	"os"

	"github.com/nhype/gigaam-inference/internal/ffmpeg"
)

// commandRunner executes external commands and captures stdout and stderr.
// *ffmpeg.Executor satisfies it.
type commandRunner interface {
	Run(ctx context.Context, name string, args []string) (ffmpeg.Output, error)
}

// tempDirCreator creates temporary directories.
type tempDirCreator interface {
	MkdirTemp(dir, pattern string) (string, error)
}

// fileStatter retrieves file information.
type fileStatter interface {
	Stat(name string) (os.FileInfo, error)
}

// fileRemover removes files and directories.
type fileRemover interface {
	Remove(name string) error
	RemoveAll(path string) error
}

// fileOpener opens files for header inspection.
type fileOpener interface {
	Open(name string) (io.ReadSeekCloser, error)
}

// Compile-time interface verification.
var (
	_ commandRunner  = (*ffmpeg.Executor)(nil)
	_ tempDirCreator = osTempDirCreator{}
	_ fileStatter    = osFileStatter{}
	_ fileRemover    = osFileRemover{}
	_ fileOpener     = osFileOpener{}
)

// --- Default implementations using real OS functions ---

// osTempDirCreator implements tempDirCreator using os.MkdirTemp.
type osTempDirCreator struct{}

func (osTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

// osFileStatter implements fileStatter using os.Stat.
type osFileStatter struct{}

func (osFileStatter) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

// osFileRemover implements fileRemover using os.Remove and os.RemoveAll.
type osFileRemover struct{}

func (osFileRemover) Remove(name string) error {
	return os.Remove(name)
}

func (osFileRemover) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// osFileOpener implements fileOpener using os.Open.
type osFileOpener struct{}

func (osFileOpener) Open(name string) (io.ReadSeekCloser, error) {
	// #nosec G304 -- name is a workspace path created by this process
	return os.Open(name)
}
