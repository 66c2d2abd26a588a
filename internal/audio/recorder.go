package audio

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const SampleRate = 16000

var ErrNoAudio = errors.New("no audio recorded")

type RecorderConfig struct {
	FrameSize        int           // samples per read, 320 = 20ms
	SilenceThreshold float64       // frame RMS below this counts as silence
	SilenceDuration  time.Duration // trailing silence that ends an utterance
	MaxDuration      time.Duration
}

func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		FrameSize:        320,
		SilenceThreshold: 0.015,
		SilenceDuration:  600 * time.Millisecond,
		MaxDuration:      10 * time.Second,
	}
}

// Recorder captures one utterance from the default input device.
type Recorder struct {
	cfg RecorderConfig
}

func NewRecorder(cfg RecorderConfig) *Recorder {
	def := DefaultRecorderConfig()
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = def.SilenceThreshold
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = def.SilenceDuration
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = def.MaxDuration
	}
	return &Recorder{cfg: cfg}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture records 16 kHz mono until speech is followed by enough silence,
// the max duration elapses or ctx is done.
func (r *Recorder) Capture(ctx context.Context) ([]float32, error) {
	buf := make([]float32, r.cfg.FrameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)

	frameDur := time.Duration(r.cfg.FrameSize) * time.Second / SampleRate
	maxFrames := int(r.cfg.MaxDuration / frameDur)
	silenceFramesMax := int(r.cfg.SilenceDuration / frameDur)

	for i := 0; i < maxFrames; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > r.cfg.SilenceThreshold {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silenceFrames++
			if silenceFrames >= silenceFramesMax {
				break
			}
			out = append(out, buf...)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoAudio
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
