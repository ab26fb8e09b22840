// Package monitor plays generated samples live through the default audio
// device, so an operator can hear the stream the analyzer sees. Samples
// queue in a bounded FIFO between the pipeline and the audio callback:
// overflow drops the oldest samples, underruns play silence.
package monitor

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// fifo is a bounded float32 sample queue. Push never blocks; when the
// queue is full the oldest samples are dropped to make room.
type fifo struct {
	mu    sync.Mutex
	buf   []float32
	start int
	count int
}

func newFifo(capacity int) *fifo {
	if capacity < 1 {
		capacity = 1
	}
	return &fifo{buf: make([]float32, capacity)}
}

func (f *fifo) Push(samples []float32) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.buf)
	if len(samples) >= n {
		copy(f.buf, samples[len(samples)-n:])
		f.start = 0
		f.count = n
		return
	}
	if overflow := f.count + len(samples) - n; overflow > 0 {
		f.start = (f.start + overflow) % n
		f.count -= overflow
	}
	pos := (f.start + f.count) % n
	copied := copy(f.buf[pos:], samples)
	copy(f.buf, samples[copied:])
	f.count += len(samples)
}

// pop moves up to len(dst) samples into dst and reports how many it moved.
func (f *fifo) pop(dst []float32) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(dst)
	if n > f.count {
		n = f.count
	}
	copied := copy(dst[:n], f.buf[f.start:])
	copy(dst[copied:n], f.buf)
	f.start = (f.start + n) % len(f.buf)
	f.count -= n
	return n
}

func (f *fifo) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// streamReader feeds the audio callback: it drains the FIFO into mono
// float32 LE frames and zero-fills whatever the queue cannot cover.
type streamReader struct {
	fifo    *fifo
	scratch []float32
}

func (r *streamReader) Read(b []byte) (int, error) {
	frames := len(b) / 4
	if frames == 0 {
		return 0, nil
	}
	if cap(r.scratch) < frames {
		r.scratch = make([]float32, frames)
	}
	tmp := r.scratch[:frames]
	n := r.fifo.pop(tmp)
	for i := n; i < frames; i++ {
		tmp[i] = 0
	}
	for i, v := range tmp {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return frames * 4, nil
}

// Player streams pushed samples to the default audio device. The FIFO
// holds about one second of audio; a stalled device therefore costs at
// most a second of lag before old samples are dropped.
type Player struct {
	reader streamReader
	otoCtx *oto.Context
	player *oto.Player
}

// NewPlayer opens the audio device for mono float32 playback at the given
// rate. It blocks until the device is ready.
func NewPlayer(sampleRate int) (*Player, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("monitor: sample rate must be positive, got %d", sampleRate)
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, fmt.Errorf("monitor: open audio context: %w", err)
	}
	<-ready

	p := &Player{otoCtx: otoCtx}
	p.reader.fifo = newFifo(sampleRate)
	p.player = otoCtx.NewPlayer(&p.reader)
	return p, nil
}

// Push queues samples for playback without blocking.
func (p *Player) Push(samples []float32) {
	p.reader.fifo.Push(samples)
}

// Buffered reports how many samples are waiting in the queue.
func (p *Player) Buffered() int {
	return p.reader.fifo.Len()
}

// Start begins playback.
func (p *Player) Start() {
	p.player.Play()
}

// Close stops playback and releases the device player.
func (p *Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("monitor: close player: %w", err)
	}
	return nil
}
