package usecase

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"rightskeeper/internal/domain"
	"rightskeeper/internal/ports"
)

const (
	silenceDBFS   = -160.0
	levelBaseline = 0.1
	levelCeiling  = 20.0
)

// normalizeLevel maps an average power in dBFS onto the display scale.
func normalizeLevel(dbfs float64) float64 {
	return math.Min(math.Max(0.2, dbfs+50)/2, levelCeiling)
}

// rmsDBFS returns the RMS power of little-endian signed 16-bit samples.
func rmsDBFS(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return silenceDBFS
	}
	var sum float64
	for i := 0; i < samples; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(samples))
	if rms == 0 {
		return silenceDBFS
	}
	return math.Max(20*math.Log10(rms), silenceDBFS)
}

// powerMeter holds the most recent power reading of a capture.
type powerMeter struct {
	bits atomic.Uint64
}

func newPowerMeter() *powerMeter {
	m := &powerMeter{}
	m.set(silenceDBFS)
	return m
}

func (m *powerMeter) set(dbfs float64) {
	m.bits.Store(math.Float64bits(dbfs))
}

func (m *powerMeter) level() float64 {
	return math.Float64frombits(m.bits.Load())
}

// levelWindow is the fixed-length rolling level sequence.
type levelWindow struct {
	mu      sync.Mutex
	samples []float64
}

func newLevelWindow(size int) *levelWindow {
	w := &levelWindow{samples: make([]float64, size)}
	w.reset()
	return w
}

// push drops the oldest sample and appends v.
func (w *levelWindow) push(v float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) == 0 {
		return
	}
	copy(w.samples, w.samples[1:])
	w.samples[len(w.samples)-1] = v
}

func (w *levelWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.samples {
		w.samples[i] = levelBaseline
	}
}

func (w *levelWindow) snapshot() []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]float64, len(w.samples))
	copy(out, w.samples)
	return out
}

// pumpLevels drains the metering tap of a capture session into meter.
// Read errors are reported unless stopping has been set.
func pumpLevels(
	audio ports.AudioSession,
	meter *powerMeter,
	chunkSize int,
	stopping *atomic.Bool,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	carry := 0
	for {
		n, err := audio.Read(buf[carry:])
		n += carry
		carry = 0
		if n > 1 {
			even := n &^ 1
			meter.set(rmsDBFS(buf[:even]))
			if even < n {
				buf[0] = buf[even]
				carry = 1
			}
		} else {
			carry = n
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !stopping.Load() {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}
