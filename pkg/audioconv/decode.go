package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// TargetRate is the sample rate whisper expects.
const TargetRate = 16000

var ErrUnsupportedFormat = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int // 0 = no limit
}

type decoder func(r io.ReadSeeker) (samples []float32, channels, rate int, err error)

var byExt = map[string]decoder{
	".wav": decodeWAV,
	".mp3": decodeMP3,
	".ogg": decodeOgg,
	".oga": decodeOgg,
}

// DecodeFile reads a wav, mp3 or ogg file into mono 16 kHz float32 PCM.
func DecodeFile(path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f, filepath.Ext(path), opt)
}

// Decode picks a decoder by extension, falling back to sniffing the
// container magic.
func Decode(r io.ReadSeeker, ext string, opt Options) ([]float32, error) {
	dec, ok := byExt[strings.ToLower(ext)]
	if !ok {
		var err error
		if dec, err = sniff(r); err != nil {
			return nil, err
		}
	}

	x, ch, rate, err := dec(r)
	if err != nil {
		return nil, err
	}

	x = Resample(Downmix(x, ch), rate, TargetRate)
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x, nil
}

func sniff(r io.ReadSeeker) (decoder, error) {
	magic, _ := bufio.NewReader(r).Peek(4)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	switch string(magic) {
	case "RIFF":
		return decodeWAV, nil
	case "OggS":
		return decodeOgg, nil
	case "ID3\x03", "ID3\x04":
		return decodeMP3, nil
	}
	return nil, fmt.Errorf("%w: magic %q", ErrUnsupportedFormat, magic)
}

func decodeWAV(r io.ReadSeeker) ([]float32, int, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, 0, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, 0, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	ch, rate := 1, 44100
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			ch = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}

	return IntToFloat(buf.Data, depth), ch, rate, nil
}

func decodeMP3(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("mp3 decoder: %w", err)
	}

	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, 0, 0, fmt.Errorf("read mp3: %w", err)
	}

	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(&raw, binary.LittleEndian, ints); err != nil {
		return nil, 0, 0, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}

	// go-mp3 always produces interleaved stereo
	return Int16ToFloat(ints), 2, rate, nil
}

func decodeOgg(r io.ReadSeeker) ([]float32, int, int, error) {
	x, format, err := oggvorbis.ReadAll(r)
	if err == nil && format != nil && format.Channels > 0 && format.SampleRate > 0 {
		return x, format.Channels, format.SampleRate, nil
	}

	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, 0, 0, serr
	}

	x, ch, rate, oerr := decodeOpus(r)
	if oerr != nil {
		return nil, 0, 0, fmt.Errorf("ogg is neither vorbis (%v) nor opus: %w", err, oerr)
	}
	return x, ch, rate, nil
}
