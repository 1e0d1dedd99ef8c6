// Package audio предоставляет запись аудио с микрофона.
package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	// SampleRate - частота дискретизации (требование Whisper).
	SampleRate = 16000
	// Channels - количество каналов (mono).
	Channels = 1
	// FramesPerBuffer - размер буфера.
	FramesPerBuffer = 1024
	// MinSamples - минимальное количество сэмплов (500ms при 16kHz).
	// Более короткие записи сервис распознаёт плохо, отбрасываем их.
	MinSamples = SampleRate / 2
)

var (
	// ErrAlreadyRecording - запись уже идёт, микрофон занят активной сессией.
	ErrAlreadyRecording = errors.New("audio: запись уже идёт")
	// ErrEmptyCapture - записано слишком мало аудио для распознавания.
	ErrEmptyCapture = errors.New("audio: пустая запись")
)

// Buffer - результат одной записи.
type Buffer struct {
	Samples []float32
	// Truncated - true если аудио продолжало приходить после
	// достижения maxDuration и было отброшено.
	Truncated bool
}

// Duration возвращает длительность записанного аудио.
func (b Buffer) Duration() time.Duration {
	return time.Duration(len(b.Samples)) * time.Second / SampleRate
}

// Recorder записывает аудио с микрофона.
type Recorder struct {
	mu         sync.Mutex
	stream     *portaudio.Stream
	buffer     []float32
	samples    []float32
	maxSamples int // 0 - без предела
	truncated  bool
	running    bool
	done       chan struct{}
}

// New создаёт новый Recorder.
func New() (*Recorder, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: инициализация portaudio: %w", err)
	}

	r := &Recorder{
		buffer: make([]float32, FramesPerBuffer),
	}

	return r, nil
}

// SetMaxDuration устанавливает предел длительности записи. По достижении
// предела буфер перестаёт расти (само устройство работает до Stop);
// буфер помечается как обрезанный только если аудио пришло сверх предела.
// 0 снимает предел.
func (r *Recorder) SetMaxDuration(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d <= 0 {
		r.maxSamples = 0
		return
	}
	r.maxSamples = int(d * SampleRate / time.Second)
}

// Start начинает запись аудио. Возвращает ErrAlreadyRecording если
// микрофон уже занят: устройство эксклюзивно принадлежит активной сессии.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRecording
	}

	r.samples = make([]float32, 0, SampleRate*30) // Буфер на 30 сек
	r.truncated = false
	r.done = make(chan struct{})

	stream, err := portaudio.OpenDefaultStream(
		Channels,        // input channels
		0,               // output channels
		SampleRate,      // sample rate
		FramesPerBuffer, // frames per buffer
		r.buffer,        // buffer
	)
	if err != nil {
		return fmt.Errorf("audio: не удалось открыть устройство: %w", err)
	}

	r.stream = stream
	r.running = true

	if err := stream.Start(); err != nil {
		r.stream.Close()
		r.stream = nil
		r.running = false
		return fmt.Errorf("audio: не удалось запустить поток: %w", err)
	}

	go r.recordLoop()

	return nil
}

func (r *Recorder) recordLoop() {
	defer func() {
		close(r.done)
	}()

	for {
		r.mu.Lock()
		if !r.running {
			r.mu.Unlock()
			return
		}
		stream := r.stream
		r.mu.Unlock()

		if stream == nil {
			return
		}

		// Проверяем доступность данных с таймаутом
		available, err := stream.AvailableToRead()
		if err != nil {
			if !r.IsRecording() {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if available == 0 {
			// Нет данных - проверяем running и ждём
			if !r.IsRecording() {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := stream.Read(); err != nil {
			if !r.IsRecording() {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		r.appendChunk(r.buffer)
	}
}

// appendChunk добавляет прочитанный блок в буфер сессии с учётом
// предела длительности.
func (r *Recorder) appendChunk(chunk []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	if r.maxSamples > 0 {
		room := r.maxSamples - len(r.samples)
		if room <= 0 {
			// Аудио продолжает приходить уже после предела - запись обрезана
			r.truncated = true
			return
		}
		if len(chunk) > room {
			// Блок, пересекающий предел, подрезаем без флага: запись
			// длиной ровно в предел обрезанной не считается
			chunk = chunk[:room]
		}
	}

	bufCopy := make([]float32, len(chunk))
	copy(bufCopy, chunk)
	r.samples = append(r.samples, bufCopy...)
}

// Stop останавливает запись и возвращает записанный буфер.
// Возвращает ErrEmptyCapture если записано меньше минимума.
// Устройство освобождается на любом пути выхода.
func (r *Recorder) Stop() (Buffer, error) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return Buffer{}, ErrEmptyCapture
	}

	r.running = false
	stream := r.stream
	r.stream = nil
	samples := r.samples
	truncated := r.truncated
	r.samples = nil
	done := r.done
	r.mu.Unlock()

	// Ждём завершения recordLoop (максимум 100ms - он проверяет running каждые 10ms)
	if done != nil {
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	// Закрываем stream после завершения recordLoop
	if stream != nil {
		stream.Stop()
		stream.Close()
	}

	if len(samples) < MinSamples {
		return Buffer{}, ErrEmptyCapture
	}

	return Buffer{Samples: samples, Truncated: truncated}, nil
}

// Close освобождает ресурсы.
func (r *Recorder) Close() {
	r.Stop()
	portaudio.Terminate()
}

// IsRecording возвращает true если идёт запись.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
