package audio

import (
	"io"
	"time"

	"github.com/go-audio/wav"
)

// pcmInfo describes the sample data of a WAV file.
type pcmInfo struct {
	frames     int64
	sampleRate int64
}

// duration is frames/sampleRate, exact to the nanosecond for whole seconds.
func (i pcmInfo) duration() time.Duration {
	whole := i.frames / i.sampleRate
	rest := i.frames % i.sampleRate
	return time.Duration(whole)*time.Second + time.Duration(rest)*time.Second/time.Duration(i.sampleRate)
}

// readPCMInfo walks the RIFF chunks to the data chunk and counts its frames.
// The RIFF size is not used: it also covers the fmt and LIST chunks. A data
// size larger than what follows in the file (streamed or truncated output)
// is clamped to the bytes present. ok is false for anything that is not a
// PCM-style WAV.
func readPCMInfo(r io.ReadSeeker) (info pcmInfo, ok bool) {
	if !wav.NewDecoder(r).IsValidFile() {
		return pcmInfo{}, false
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return pcmInfo{}, false
	}

	dec := wav.NewDecoder(r)
	if err := dec.FwdToPCM(); err != nil || dec.PCMChunk == nil {
		return pcmInfo{}, false
	}

	frame := int64(dec.BitDepth/8) * int64(dec.NumChans)
	if frame <= 0 || dec.SampleRate == 0 {
		return pcmInfo{}, false
	}

	size := dec.PCMLen()
	if avail, err := remaining(r); err == nil && size > avail {
		size = avail
	}
	if size < 0 {
		size = 0
	}
	return pcmInfo{frames: size / frame, sampleRate: int64(dec.SampleRate)}, true
}

// remaining returns the bytes between the current offset and the end of r,
// leaving the offset unchanged.
func remaining(r io.Seeker) (int64, error) {
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	return end - pos, nil
}
