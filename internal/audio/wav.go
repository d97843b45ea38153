package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"mixdown/internal/services"
)

// DecodeWAV reads a PCM WAV stream into a Clip.
func DecodeWAV(r io.ReadSeeker) (*Clip, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, services.Wrap(services.ErrValidation, "audio", "decode", "not a valid WAV stream", nil)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "audio", "decode", "read PCM data", err)
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 || buf.Format.SampleRate == 0 {
		return nil, services.Wrap(services.ErrValidation, "audio", "decode", "missing format header", nil)
	}
	return &Clip{
		Data:       buf.Data,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}

// DecodeWAVFile reads a PCM WAV file into a Clip.
func DecodeWAVFile(path string) (*Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	clip, err := DecodeWAV(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return clip, nil
}

// EncodeWAVFile writes a clip as a 16-bit PCM WAV file.
func EncodeWAVFile(path string, clip *Clip) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := wav.NewEncoder(file, clip.SampleRate, 16, clip.Channels, 1)
	buf := &goaudio.IntBuffer{
		Data:           clip.Data,
		Format:         &goaudio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("finalize %s: %w", path, err)
	}
	return file.Close()
}
