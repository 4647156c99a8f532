package audio_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/nhype/gigaam-inference/internal/ffmpeg"
)

// ---------------------------------------------------------------------------
// Mocks for testing
// ---------------------------------------------------------------------------

type mockCall struct {
	name string
	args []string
}

type mockCommandRunner struct {
	mu      sync.Mutex
	runFunc func(ctx context.Context, name string, args []string) (ffmpeg.Output, error)
	calls   []mockCall
}

func (m *mockCommandRunner) Run(ctx context.Context, name string, args []string) (ffmpeg.Output, error) {
	m.mu.Lock()
	m.calls = append(m.calls, mockCall{name: name, args: slices.Clone(args)})
	m.mu.Unlock()
	if m.runFunc != nil {
		return m.runFunc(ctx, name, args)
	}
	return ffmpeg.Output{}, nil
}

func (m *mockCommandRunner) Calls() []mockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

type mockTempDirCreator struct {
	dir string
	err error
}

func (m *mockTempDirCreator) MkdirTemp(dir, pattern string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.dir, nil
}

type mockFileRemover struct {
	mu           sync.Mutex
	removed      []string
	removedAll   []string
	removeErr    error
	removeAllErr error
}

func (m *mockFileRemover) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, name)
	return m.removeErr
}

func (m *mockFileRemover) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removedAll = append(m.removedAll, path)
	return m.removeAllErr
}

type mockFileStatter struct {
	size func(name string) int64
	err  error
}

func (m *mockFileStatter) Stat(name string) (os.FileInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	var size int64 = 1 << 16
	if m.size != nil {
		size = m.size(name)
	}
	return &mockFileInfo{name: filepath.Base(name), size: size}, nil
}

type mockFileInfo struct {
	name string
	size int64
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() os.FileMode  { return 0o644 }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return false }
func (m *mockFileInfo) Sys() any           { return nil }

// mockFileOpener serves the same in-memory content for every path.
type mockFileOpener struct {
	mu     sync.Mutex
	data   []byte
	err    error
	opened []string
}

func (m *mockFileOpener) Open(name string) (io.ReadSeekCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, name)
	if m.err != nil {
		return nil, m.err
	}
	return nopSeekCloser{bytes.NewReader(m.data)}, nil
}

type nopSeekCloser struct{ io.ReadSeeker }

func (nopSeekCloser) Close() error { return nil }

// wavBytes builds a silent 16-bit mono WAV by hand. With list set it carries
// the LIST/INFO chunk FFmpeg's muxer writes by default, so an empty file is
// 78 bytes instead of 44.
func wavBytes(sampleRate, samples int, list bool) []byte {
	var body bytes.Buffer
	le := binary.LittleEndian

	body.WriteString("WAVE")
	body.WriteString("fmt ")
	_ = binary.Write(&body, le, uint32(16))
	_ = binary.Write(&body, le, uint16(1)) // PCM
	_ = binary.Write(&body, le, uint16(1)) // mono
	_ = binary.Write(&body, le, uint32(sampleRate))
	_ = binary.Write(&body, le, uint32(sampleRate*2))
	_ = binary.Write(&body, le, uint16(2))
	_ = binary.Write(&body, le, uint16(16))

	if list {
		software := "Lavf60.16.100\x00"
		body.WriteString("LIST")
		_ = binary.Write(&body, le, uint32(4+8+len(software)))
		body.WriteString("INFO")
		body.WriteString("ISFT")
		_ = binary.Write(&body, le, uint32(len(software)))
		body.WriteString(software)
	}

	body.WriteString("data")
	_ = binary.Write(&body, le, uint32(samples*2))
	body.Write(make([]byte, samples*2))

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, le, uint32(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes()
}

// writeWAV writes a silent 16-bit mono WAV file with the given sample count.
func writeWAV(t *testing.T, path string, sampleRate, samples int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, samples),
		SourceBitDepth: 16,
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
}
