package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nhype/gigaam-inference/internal/audio"
	"github.com/nhype/gigaam-inference/internal/format"
	"github.com/nhype/gigaam-inference/internal/recognize"
)

// sniffLen is how many leading bytes are kept for content type detection.
const sniffLen = 512

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	msg := fmt.Sprintf("GigaAM transcription service (model %s)", s.handle.Model())
	if s.version != "" {
		msg += " " + s.version
	}
	writeJSON(w, http.StatusOK, rootResponse{Message: msg, Status: "running"})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	state := s.handle.State()
	status := "starting"
	switch state {
	case recognize.StateReady:
		status = "healthy"
	case recognize.StateFailed:
		status = "unhealthy"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		Model:       s.handle.Model().String(),
		ModelStatus: state.String(),
	})
}

func (s *Server) transcribe(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With(slog.String("request_id", chimiddleware.GetReqID(r.Context())))

	// Reject early while the model is unavailable, before reading the body.
	if _, err := s.handle.Recognizer(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	ws, err := audio.NewWorkspace(s.tempDir, audio.WithLabel("upload"))
	if err != nil {
		logger.Error("failed to create upload workspace", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.Warn("failed to remove upload", slog.String("dir", ws.Dir()), slog.Any("error", err))
		}
	}()

	in, err := s.receive(r, ws)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file exceeds the %s upload limit", format.Size(tooLarge.Limit)))
		case errors.Is(err, errNoFile):
			writeError(w, http.StatusBadRequest, "No file provided")
		default:
			logger.Warn("failed to read upload", slog.Any("error", err))
			writeError(w, http.StatusBadRequest, "invalid multipart upload")
		}
		return
	}

	logger.Info("upload received", slog.String("input", in.String()))

	res, err := s.runner.Run(r.Context(), in)
	if err != nil {
		status := statusFor(err)
		if status == statusClientClosedRequest {
			// Nobody is listening; the status only shows up in the access log.
			w.WriteHeader(status)
			return
		}
		detail := err.Error()
		if status == http.StatusInternalServerError {
			detail = "Transcription failed: " + detail
		}
		writeError(w, status, detail)
		return
	}

	if res.JobID != "" {
		w.Header().Set("X-Job-Id", res.JobID)
	}
	writeJSON(w, http.StatusOK, transcriptionResponse{
		Filename:      res.Filename,
		Duration:      res.Duration.Seconds(),
		Transcription: res.Transcript,
	})
}

var errNoFile = errors.New("no file part in upload")

// receive streams the first file part of a multipart body into ws.
func (s *Server) receive(r *http.Request, ws *audio.Workspace) (audio.Input, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return audio.Input{}, errNoFile
		}
		return audio.Input{}, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return audio.Input{}, errNoFile
		}
		if err != nil {
			return audio.Input{}, err
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		in, err := save(part, ws)
		_ = part.Close()
		return in, err
	}
}

func save(part *multipart.Part, ws *audio.Workspace) (audio.Input, error) {
	filename := filepath.Base(part.FileName())
	f, err := ws.Create("upload" + audio.Extension(filename))
	if err != nil {
		return audio.Input{}, err
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(part, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return audio.Input{}, err
	}
	head = head[:n]
	if _, err := f.Write(head); err != nil {
		return audio.Input{}, err
	}
	rest, err := io.Copy(f, part)
	if err != nil {
		return audio.Input{}, err
	}

	return audio.Input{
		Path:        f.Name(),
		Filename:    filename,
		ContentType: audio.ResolveContentType(part.Header.Get("Content-Type"), head),
		Size:        int64(n) + rest,
	}, nil
}
