//go:build opus

package audioconv

import (
	"io"

	"github.com/pekim/opus"
)

const opusRate = 48000

func decodeOpus(r io.ReadSeeker) ([]float32, int, int, error) {
	dec, err := opus.NewDecoder(r)
	if err != nil {
		return nil, 0, 0, err
	}
	defer dec.Destroy()

	ch := max(dec.ChannelCount(), 1)

	var (
		out []float32
		buf = make([]int16, opusRate*ch/2)
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out = append(out, Int16ToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, 0, err
		}
	}

	return out, ch, opusRate, nil
}
