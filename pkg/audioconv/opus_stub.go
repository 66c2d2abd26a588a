//go:build !opus

package audioconv

import (
	"fmt"
	"io"
)

func decodeOpus(io.ReadSeeker) ([]float32, int, int, error) {
	return nil, 0, 0, fmt.Errorf("%w: ogg/opus needs a build with -tags opus", ErrUnsupportedFormat)
}
