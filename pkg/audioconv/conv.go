// Package audioconv converts between the audio formats this application
// touches: compressed audio fetched from TTS endpoints (wav, mp3, ogg
// vorbis/opus) is decoded to the canonical 16 kHz mono float32 PCM used
// everywhere else, and captured PCM is wrapped into a WAV container for
// upload to HTTP transcription APIs.
package audioconv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// TargetRate is the canonical sample rate: mono float32 @ 16 kHz, as
// required by Whisper.
const TargetRate = 16000

// Format identifies the container/codec of an encoded audio payload.
type Format string

const (
	FormatWAV Format = "wav"
	FormatMP3 Format = "mp3"
	FormatOgg Format = "ogg"
)

// FormatFromContentType maps an HTTP Content-Type to a Format.
func FormatFromContentType(ct string) (Format, bool) {
	switch ct {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV, true
	case "audio/mpeg", "audio/mp3":
		return FormatMP3, true
	case "audio/ogg", "application/ogg":
		return FormatOgg, true
	}
	return "", false
}

// DecodeToPCM16k decodes an encoded audio payload to 16 kHz mono float32
// PCM, downmixing and resampling as needed. Ogg containers are tried as
// Vorbis first and Opus second.
func DecodeToPCM16k(data []byte, format Format) ([]float32, error) {
	switch format {
	case FormatWAV:
		return decodeWAVTo16k(bytes.NewReader(data))
	case FormatMP3:
		return decodeMP3To16k(bytes.NewReader(data))
	case FormatOgg:
		if pcm, err := decodeOggVorbisTo16k(bytes.NewReader(data)); err == nil {
			return pcm, nil
		}
		pcm, err := decodeOggOpusTo16k(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("cannot decode ogg as vorbis or opus: %w", err)
		}
		return pcm, nil
	}
	return nil, fmt.Errorf("unsupported audio format %q", format)
}

// SniffFormat guesses the Format from the payload's magic bytes.
func SniffFormat(data []byte) (Format, bool) {
	if len(data) >= 4 {
		switch string(data[:4]) {
		case "RIFF":
			return FormatWAV, true
		case "OggS":
			return FormatOgg, true
		}
	}
	if len(data) >= 3 && string(data[:3]) == "ID3" {
		return FormatMP3, true
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3, true
	}
	return "", false
}

func decodeWAVTo16k(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || pb.Data == nil {
		return nil, errors.New("empty wav")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	x := intSliceToFloat32(pb.Data, bd)

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	if ch > 1 {
		x = downmixInterleaved(x, ch)
	}
	return resampleLinear(x, sr, TargetRate), nil
}

func decodeMP3To16k(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}
	// go-mp3 always emits 16-bit stereo.
	x := downmixInterleaved(int16SliceToFloat32(ints), 2)

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	return resampleLinear(x, sr, TargetRate), nil
}

func decodeOggVorbisTo16k(r io.Reader) ([]float32, error) {
	pcm, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.New("invalid ogg/vorbis stream")
	}
	x := pcm
	if format.Channels > 1 {
		x = downmixInterleaved(pcm, format.Channels)
	}
	return resampleLinear(x, format.SampleRate, TargetRate), nil
}

func decodeOggOpusTo16k(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	// Opus always decodes at 48 kHz.
	var pcm48 []float32
	buf := make([]int16, 48_000*ch/2)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm48 = append(pcm48, int16SliceToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if len(pcm48) == 0 {
		return nil, errors.New("empty opus stream")
	}

	if ch > 1 {
		pcm48 = downmixInterleaved(pcm48, ch)
	}
	return resampleLinear(pcm48, 48000, TargetRate), nil
}

// EncodeWAV16k wraps 16 kHz mono float32 PCM into a 16-bit PCM WAV
// container, for upload to HTTP transcription endpoints.
func EncodeWAV16k(samples []float32) ([]byte, error) {
	ints := make([]int, len(samples))
	for i, s := range samples {
		ints[i] = int(clamp(float64(s), -1, 1) * 32767)
	}

	var ws memWriteSeeker
	enc := wav.NewEncoder(&ws, TargetRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Data:           ints,
		Format:         &audio.Format{NumChannels: 1, SampleRate: TargetRate},
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// memWriteSeeker is an in-memory io.WriteSeeker for the wav encoder, which
// seeks back to patch chunk sizes on Close.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		if need > cap(m.buf) {
			grown := make([]byte, need, need*2)
			copy(grown, m.buf)
			m.buf = grown
		} else {
			m.buf = m.buf[:need]
		}
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	m.pos = int(abs)
	return abs, nil
}

func intSliceToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16SliceToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	const scale = 1.0 / 32768.0
	for i, v := range data {
		out[i] = float32(float64(v) * scale)
	}
	return out
}

func downmixInterleaved(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	nFrames := len(in) / channels
	out := make([]float32, nFrames)
	for i := 0; i < nFrames; i++ {
		sum := 0.0
		base := i * channels
		for c := 0; c < channels; c++ {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	for i := 0; i < outN; i++ {
		src := float64(i) / ratio
		i0 := int(math.Floor(src))
		i1 := i0 + 1
		if i0 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		if i1 >= len(in) {
			out[i] = in[i0]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
