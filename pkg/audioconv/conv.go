package audioconv

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep/flac"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

// TargetRate is the sample rate whisper expects.
const TargetRate = 16000

var ErrUnsupportedFormat = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int // 0 = keep everything
}

// pcm is a decoded stream before it is normalized: interleaved float32 in [-1, 1].
type pcm struct {
	samples  []float32
	rate     int
	channels int
}

type decoder func(io.ReadSeeker) (pcm, error)

var byExt = map[string]decoder{
	".wav":  decodeWAV,
	".wave": decodeWAV,
	".mp3":  decodeMP3,
	".ogg":  decodeOgg,
	".oga":  decodeOgg,
	".opus": decodeOgg,
	".flac": decodeFLAC,
}

// DecodeFile reads an audio file and returns mono float32 samples at 16 kHz.
// A well-formed file with no audio yields an empty slice and no error.
func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, ok := byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		if dec, err = sniff(f); err != nil {
			return nil, err
		}
	}

	p, err := dec(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return normalize(p, opt), nil
}

func sniff(r io.ReadSeeker) (decoder, error) {
	magic := make([]byte, 4)
	n, err := io.ReadFull(r, magic)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, []byte("RIFF")):
		return decodeWAV, nil
	case bytes.HasPrefix(magic, []byte("OggS")):
		return decodeOgg, nil
	case bytes.HasPrefix(magic, []byte("fLaC")):
		return decodeFLAC, nil
	case bytes.HasPrefix(magic, []byte("ID3")),
		len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return decodeMP3, nil
	}
	return nil, fmt.Errorf("%w (supported: wav/mp3/ogg-vorbis/ogg-opus/flac)", ErrUnsupportedFormat)
}

func normalize(p pcm, opt Options) []float32 {
	x := downmix(p.samples, p.channels)
	x = resampleLinear(x, p.rate, TargetRate)
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, err
	}
	if buf == nil {
		return pcm{}, errors.New("invalid wav data chunk")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	p := pcm{
		samples:  intsToFloat32(buf.Data, bd),
		rate:     int(dec.SampleRate),
		channels: int(dec.NumChans),
	}
	if buf.Format != nil {
		if buf.Format.SampleRate > 0 {
			p.rate = buf.Format.SampleRate
		}
		if buf.Format.NumChannels > 0 {
			p.channels = buf.Format.NumChannels
		}
	}
	if p.rate <= 0 {
		p.rate = 44100
	}
	return p, nil
}

// go-mp3 always yields 16-bit little-endian stereo.
func decodeMP3(r io.ReadSeeker) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	return pcm{samples: le16ToFloat32(raw), rate: sr, channels: 2}, nil
}

// decodeOgg tries Vorbis first and falls back to Opus on the same stream.
func decodeOgg(r io.ReadSeeker) (pcm, error) {
	p, verr := decodeOggVorbis(r)
	if verr == nil {
		return p, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return pcm{}, err
	}
	p, oerr := decodeOggOpus(r)
	if oerr != nil {
		return pcm{}, fmt.Errorf("ogg is neither vorbis (%v) nor opus: %w", verr, oerr)
	}
	return p, nil
}

func decodeOggVorbis(r io.Reader) (pcm, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return pcm{}, errors.New("invalid ogg/vorbis stream")
	}
	return pcm{samples: data, rate: format.SampleRate, channels: format.Channels}, nil
}

// Opus always decodes at 48 kHz.
func decodeOggOpus(r io.ReadSeeker) (pcm, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var (
		out []float32
		buf = make([]int16, 48_000*ch/2)
	)
	for {
		n, err := dec.Read(buf) // n is per channel
		if n > 0 {
			out = append(out, int16sToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, err
		}
	}
	return pcm{samples: out, rate: 48000, channels: ch}, nil
}

// beep streams stereo frames regardless of the source layout.
func decodeFLAC(r io.ReadSeeker) (pcm, error) {
	s, format, err := flac.Decode(r)
	if err != nil {
		return pcm{}, err
	}
	defer s.Close()

	var (
		out []float32
		buf = make([][2]float64, 4096)
	)
	for {
		n, ok := s.Stream(buf)
		for _, fr := range buf[:n] {
			out = append(out, float32(fr[0]), float32(fr[1]))
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return pcm{}, err
	}
	return pcm{samples: out, rate: int(format.SampleRate), channels: 2}, nil
}

// helpers

func intsToFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		if bitDepth == 8 {
			// 8-bit wav is unsigned
			v -= 128
		}
		out[i] = float32(clamp(float64(v)*scale, -1.0, 1.0))
	}
	return out
}

func int16sToFloat32(data []int16) []float32 {
	out := make([]float32, len(data))
	for i, v := range data {
		out[i] = float32(v) / 32768.0
	}
	return out
}

func le16ToFloat32(raw []byte) []float32 {
	out := make([]float32, len(raw)/2)
	for i := range out {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		out[i] = float32(v) / 32768.0
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		base := i * channels
		for c := range channels {
			sum += float64(in[base+c])
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

func resampleLinear(in []float32, inSR, outSR int) []float32 {
	if inSR == outSR || inSR <= 0 || len(in) == 0 {
		return in
	}
	ratio := float64(outSR) / float64(inSR)
	outN := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, outN)
	last := len(in) - 1
	for i := range out {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= last {
			out[i] = in[last]
			continue
		}
		a := float32(src - float64(i0))
		out[i] = in[i0]*(1-a) + in[i0+1]*a
	}
	return out
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
