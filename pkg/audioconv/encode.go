package audioconv

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV packs mono float32 samples into a 16-bit PCM wav file.
func EncodeWAV(pcm []float32, rate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, errors.New("no samples")
	}

	data := make([]int, len(pcm))
	for i, v := range pcm {
		data[i] = int(min(max(v, -1), 1) * 32767)
	}

	var buf memFile
	enc := wav.NewEncoder(&buf, rate, 16, 1, 1)
	if err := enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish wav: %w", err)
	}

	return buf.data, nil
}

// memFile is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes.
type memFile struct {
	data []byte
	pos  int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	n := copy(m.data[m.pos:], p)
	m.pos += n
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.data))
	default:
		return 0, errors.New("invalid whence")
	}

	pos := base + offset
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(pos)
	return pos, nil
}
