package duck

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const maxVolume = 150

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fadeStep struct {
	id   int
	from int
	to   int
}

// Mixer is the slice of pactl the ducker needs.
type Mixer interface {
	ListSinkInputs(ctx context.Context) ([]sinkInput, error)
	SetSinkInputVolume(ctx context.Context, id, percent int) error
}

// Ducker lowers every other application's playback while the assistant
// listens, and restores it afterwards. Streams named in selfApps are left
// alone.
type Ducker struct {
	mu       sync.Mutex
	mixer    Mixer
	ducked   bool
	selfApps []string
	saved    map[int]int
	floor    int
	factor   float64
	fade     time.Duration
}

type Config struct {
	SelfApps []string
	Floor    int     // lowest volume percent a ducked stream goes to
	Factor   float64 // target = current * Factor
	Fade     time.Duration
}

func New(mixer Mixer, cfg Config) *Ducker {
	if mixer == nil {
		mixer = Pactl{}
	}
	floor := min(max(cfg.Floor, 0), maxVolume)
	if cfg.Factor <= 0 || cfg.Factor > 1 {
		cfg.Factor = 0.3
	}

	return &Ducker{
		mixer:    mixer,
		selfApps: append([]string(nil), cfg.SelfApps...),
		saved:    make(map[int]int),
		floor:    floor,
		factor:   cfg.Factor,
		fade:     cfg.Fade,
	}
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked {
		return nil
	}

	inputs, err := d.mixer.ListSinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	d.saved = make(map[int]int)

	var steps []fadeStep
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}

		to := int(math.Round(float64(in.Volume) * d.factor))
		to = min(max(to, d.floor), maxVolume)

		d.saved[in.ID] = in.Volume
		steps = append(steps, fadeStep{id: in.ID, from: in.Volume, to: to})
	}

	if err := d.fadeAll(ctx, steps); err != nil {
		return err
	}

	d.ducked = true
	return nil
}

// Restore fades ducked streams back to their saved volume. Streams that
// appeared after Duck are not touched.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ducked {
		return nil
	}

	inputs, err := d.mixer.ListSinkInputs(ctx)
	if err != nil {
		return fmt.Errorf("list sink inputs: %w", err)
	}

	var steps []fadeStep
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}
		orig, ok := d.saved[in.ID]
		if !ok {
			continue
		}
		steps = append(steps, fadeStep{id: in.ID, from: in.Volume, to: orig})
	}

	if err := d.fadeAll(ctx, steps); err != nil {
		return err
	}

	d.saved = make(map[int]int)
	d.ducked = false
	return nil
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.selfApps {
		if in.AppName == name {
			return true
		}
	}
	return false
}

func (d *Ducker) fadeAll(ctx context.Context, steps []fadeStep) error {
	if len(steps) == 0 {
		return nil
	}

	if d.fade <= 0 {
		for _, s := range steps {
			if err := d.mixer.SetSinkInputVolume(ctx, s.id, s.to); err != nil {
				return fmt.Errorf("set volume id=%d: %w", s.id, err)
			}
		}
		return nil
	}

	const tick = 10 * time.Millisecond

	n := max(int(d.fade/tick), 1)
	pause := d.fade / time.Duration(n)

	for i := 0; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(n)
		for _, s := range steps {
			v := int(math.Round(float64(s.from) + float64(s.to-s.from)*frac))
			if err := d.mixer.SetSinkInputVolume(ctx, s.id, v); err != nil {
				return fmt.Errorf("set volume id=%d: %w", s.id, err)
			}
		}

		if i < n {
			time.Sleep(pause)
		}
	}

	return nil
}

// Pactl drives PulseAudio / PipeWire through the pactl command.
type Pactl struct{}

func (Pactl) ListSinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func (Pactl) SetSinkInputVolume(ctx context.Context, id, percent int) error {
	percent = min(max(percent, 0), maxVolume)
	arg := strconv.Itoa(percent) + "%"
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}

func parseSinkInputs(text string) []sinkInput {
	blocks := strings.Split(text, "Sink Input #")
	if len(blocks) <= 1 {
		return nil
	}

	var res []sinkInput
	for _, block := range blocks[1:] {
		head, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			if strings.HasPrefix(line, "Volume:") && in.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					if v, err := strconv.Atoi(m[1]); err == nil {
						in.Volume = v
					}
				}
			}

			// application.name = "Firefox"
			if strings.HasPrefix(line, "application.name =") && in.AppName == "" {
				if _, rest, ok := strings.Cut(line, `"`); ok {
					in.AppName, _, _ = strings.Cut(rest, `"`)
				}
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}

	return res
}
