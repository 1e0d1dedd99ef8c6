package audio

import (
	"testing"
	"time"
)

// Тесты логики буфера без реального устройства: appendChunk и предел
// длительности не требуют portaudio.

func TestAppendChunkUnbounded(t *testing.T) {
	r := &Recorder{running: true}

	chunk := make([]float32, FramesPerBuffer)
	for i := 0; i < 5; i++ {
		r.appendChunk(chunk)
	}

	if len(r.samples) != 5*FramesPerBuffer {
		t.Fatalf("ожидалось %d сэмплов, получено %d", 5*FramesPerBuffer, len(r.samples))
	}
	if r.truncated {
		t.Fatal("без предела буфер не должен помечаться обрезанным")
	}
}

func TestAppendChunkExactBoundNotTruncated(t *testing.T) {
	// Запись ровно до предела не считается обрезанной.
	r := &Recorder{running: true, maxSamples: 2 * FramesPerBuffer}

	chunk := make([]float32, FramesPerBuffer)
	r.appendChunk(chunk)
	r.appendChunk(chunk)

	if len(r.samples) != 2*FramesPerBuffer {
		t.Fatalf("ожидалось %d сэмплов, получено %d", 2*FramesPerBuffer, len(r.samples))
	}
	if r.truncated {
		t.Fatal("запись ровно до предела не должна быть truncated")
	}
}

func TestAppendChunkCrossingBoundClampsWithoutFlag(t *testing.T) {
	// Предел почти никогда не делится на размер блока нацело: при
	// фиксированной длительности последний блок пересекает предел.
	// Его подрезка - не обрезание записи.
	r := &Recorder{running: true, maxSamples: FramesPerBuffer + 100}

	chunk := make([]float32, FramesPerBuffer)
	r.appendChunk(chunk)
	r.appendChunk(chunk) // пересекает предел, подрезается

	if len(r.samples) != FramesPerBuffer+100 {
		t.Fatalf("ожидалось %d сэмплов, получено %d", FramesPerBuffer+100, len(r.samples))
	}
	if r.truncated {
		t.Fatal("подрезка блока на границе предела не должна помечать запись обрезанной")
	}
}

func TestAppendChunkAfterBoundTruncates(t *testing.T) {
	r := &Recorder{running: true, maxSamples: FramesPerBuffer + 100}

	chunk := make([]float32, FramesPerBuffer)
	r.appendChunk(chunk)
	r.appendChunk(chunk) // добирает до предела

	// Аудио продолжает приходить после предела - отбрасывается с флагом
	r.appendChunk(chunk)
	if len(r.samples) != FramesPerBuffer+100 {
		t.Fatal("сэмплы сверх предела не должны добавляться")
	}
	if !r.truncated {
		t.Fatal("аудио после предела должно помечать запись обрезанной")
	}
}

func TestSetMaxDuration(t *testing.T) {
	r := &Recorder{}

	r.SetMaxDuration(10 * time.Second)
	if r.maxSamples != 10*SampleRate {
		t.Fatalf("ожидалось %d, получено %d", 10*SampleRate, r.maxSamples)
	}

	r.SetMaxDuration(0)
	if r.maxSamples != 0 {
		t.Fatal("0 должен снимать предел")
	}
}

func TestStopWithoutStartReturnsEmptyCapture(t *testing.T) {
	r := &Recorder{}

	if _, err := r.Stop(); err != ErrEmptyCapture {
		t.Fatalf("ожидался ErrEmptyCapture, получено %v", err)
	}
}

func TestBufferDuration(t *testing.T) {
	b := Buffer{Samples: make([]float32, SampleRate*2)}
	if b.Duration() != 2*time.Second {
		t.Fatalf("ожидалось 2s, получено %v", b.Duration())
	}
}
