package input

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/cwbudde/wavescope/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pcmBytes(samples ...int16) []byte {
	raw := make([]byte, 2*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(v))
	}
	return raw
}

// runAll drives src to completion and collects every published chunk.
func runAll(t *testing.T, src *StreamSource) []pipeline.Chunk {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- src.Run(context.Background()) }()
	var out []pipeline.Chunk
	for c := range src.Chunks() {
		out = append(out, c)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

func TestFramesCompleteChunks(t *testing.T) {
	values := []int16{0, 16384, -16384, 32767, -32768, 1, -1, 100}
	src := NewStreamSource(bytes.NewReader(pcmBytes(values...)),
		WithChunkLen(4), WithSampleRate(1000), WithLogger(quietLogger()))

	chunks := runAll(t, src)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Samples) != 4 {
			t.Fatalf("chunk %d has %d samples, want 4", i, len(c.Samples))
		}
		if c.SampleRate != 1000 {
			t.Fatalf("chunk %d carries rate %v, want 1000", i, c.SampleRate)
		}
		for j, got := range c.Samples {
			want := float32(float64(values[4*i+j]) / 32768)
			if got != want {
				t.Fatalf("chunk %d sample %d = %v, want %v", i, j, got, want)
			}
		}
	}
	if chunks[0].StartTime != 0 {
		t.Fatalf("first chunk starts at %v, want 0", chunks[0].StartTime)
	}
	if chunks[1].StartTime != 0.004 {
		t.Fatalf("second chunk starts at %v, want 0.004", chunks[1].StartTime)
	}
}

func TestDiscardsOddTailByte(t *testing.T) {
	raw := append(pcmBytes(1, 2, 3, 4, 5), 0x7f)
	src := NewStreamSource(bytes.NewReader(raw), WithChunkLen(4), WithLogger(quietLogger()))

	chunks := runAll(t, src)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestDiscardsShortFinalChunk(t *testing.T) {
	src := NewStreamSource(bytes.NewReader(pcmBytes(1, 2, 3, 4, 5, 6)),
		WithChunkLen(4), WithLogger(quietLogger()))

	chunks := runAll(t, src)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
}

func TestSurvivesPartialReads(t *testing.T) {
	values := []int16{10, -20, 30, -40, 50, -60, 70, -80}
	src := NewStreamSource(iotest.OneByteReader(bytes.NewReader(pcmBytes(values...))),
		WithChunkLen(4), WithLogger(quietLogger()))

	chunks := runAll(t, src)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if got, want := chunks[1].Samples[3], float32(float64(-80)/32768); got != want {
		t.Fatalf("last sample = %v, want %v", got, want)
	}
}

func TestReadErrorPropagates(t *testing.T) {
	r := io.MultiReader(
		bytes.NewReader(pcmBytes(1, 2, 3, 4)),
		iotest.ErrReader(errors.New("device gone")),
	)
	src := NewStreamSource(r, WithChunkLen(4), WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- src.Run(context.Background()) }()
	var chunks []pipeline.Chunk
	for c := range src.Chunks() {
		chunks = append(chunks, c)
	}
	err := <-done
	if err == nil || !strings.Contains(err.Error(), "device gone") {
		t.Fatalf("Run returned %v, want the device error", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks before the error, want 1", len(chunks))
	}
}

func TestEmptyStream(t *testing.T) {
	src := NewStreamSource(bytes.NewReader(nil), WithLogger(quietLogger()))
	if chunks := runAll(t, src); len(chunks) != 0 {
		t.Fatalf("got %d chunks from an empty stream, want 0", len(chunks))
	}
}

// endlessZeros always has data ready, so Run only stops via its context.
type endlessZeros struct{}

func (endlessZeros) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

func TestCancelStopsRun(t *testing.T) {
	src := NewStreamSource(endlessZeros{}, WithChunkLen(16), WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-src.Chunks():
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for chunk %d", i)
		}
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestScaleOption(t *testing.T) {
	src := NewStreamSource(bytes.NewReader(pcmBytes(100, 200)),
		WithChunkLen(2), WithScale(0.01), WithLogger(quietLogger()))

	chunks := runAll(t, src)

	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if got := chunks[0].Samples[0]; got != 1 {
		t.Fatalf("scaled sample = %v, want 1", got)
	}
	if got := chunks[0].Samples[1]; got != 2 {
		t.Fatalf("scaled sample = %v, want 2", got)
	}
}
