package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stt-hotkey/internal/audio"
	"stt-hotkey/internal/service"
	"stt-hotkey/internal/transcribe"
)

// fakeRecorder имитирует запись с микрофона.
type fakeRecorder struct {
	mu         sync.Mutex
	recording  bool
	startErr   error
	stopBuf    audio.Buffer
	stopErr    error
	startCalls int
	stopCalls  int
}

func (f *fakeRecorder) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return f.startErr
	}
	if f.recording {
		return audio.ErrAlreadyRecording
	}
	f.recording = true
	return nil
}

func (f *fakeRecorder) Stop() (audio.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.recording = false
	if f.stopErr != nil {
		return audio.Buffer{}, f.stopErr
	}
	return f.stopBuf, nil
}

func (f *fakeRecorder) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

// fakeService имитирует жизненный цикл сервиса.
type fakeService struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeService) EnsureReady(ctx context.Context) (*service.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return service.NewHandle("http://localhost:8001"), nil
}

func (f *fakeService) ensureCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeTranscriber возвращает подготовленную последовательность ответов.
type fakeTranscriber struct {
	mu      sync.Mutex
	results []transcribe.Result
	errs    []error
	calls   int
	targets []string
	block   chan struct{} // если не nil, Transcribe ждёт закрытия или ctx
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, baseURL string, wav []byte, sourceLang, targetLang string) (transcribe.Result, error) {
	f.mu.Lock()
	idx := f.calls
	f.calls++
	f.targets = append(f.targets, targetLang)
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return transcribe.Result{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	if err != nil {
		return transcribe.Result{}, err
	}
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return transcribe.Result{}, errors.New("нет подготовленного ответа")
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDeliverer записывает доставленные тексты.
type fakeDeliverer struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeDeliverer) Deliver(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.err
}

func (f *fakeDeliverer) delivered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.texts))
	copy(out, f.texts)
	return out
}

// fakeSink собирает события сессии.
type fakeSink struct {
	mu      sync.Mutex
	states  []State
	errors  []string
	empties int
	results []transcribe.Result
}

func (f *fakeSink) StateChanged(state State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeSink) SessionError(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, msg)
}

func (f *fakeSink) Empty() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.empties++
}

func (f *fakeSink) Delivered(result transcribe.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, result)
}

func (f *fakeSink) snapshotStates() []State {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]State, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeSink) errorCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errors)
}

func (f *fakeSink) emptyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.empties
}

func (f *fakeSink) deliveredResults() []transcribe.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transcribe.Result, len(f.results))
	copy(out, f.results)
	return out
}

func goodBuffer() audio.Buffer {
	return audio.Buffer{Samples: make([]float32, audio.SampleRate)} // 1 секунда
}

// waitForState ждёт пока контроллер не перейдёт в нужное состояние.
func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("не дождались состояния %s, текущее %s", want, c.State())
}

// waitFor ждёт выполнения условия с общим таймаутом.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func press() Event   { return Event{Kind: EventPress, Time: time.Now()} }
func release() Event { return Event{Kind: EventRelease, Time: time.Now()} }

func TestPressReleaseDeliversTranscript(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	svc := &fakeService{}
	transcriber := &fakeTranscriber{
		results: []transcribe.Result{{SourceText: "hello", TranslatedText: "hello", DetectedLanguage: "en"}},
	}
	delivery := &fakeDeliverer{}
	sink := &fakeSink{}

	c := New(recorder, svc, transcriber, delivery, sink, Options{
		TargetLanguage: func() string { return "en" },
	})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)

	c.HandleHotkey(release())
	waitFor(t, func() bool { return len(delivery.delivered()) > 0 }, "текст не доставлен")
	waitForState(t, c, StateIdle)

	texts := delivery.delivered()
	if len(texts) != 1 || texts[0] != "hello" {
		t.Fatalf("доставка вызвана неверно: %v", texts)
	}
	if results := sink.deliveredResults(); len(results) != 1 || results[0].SourceText != "hello" {
		t.Fatalf("sink не получил результат: %v", results)
	}
	if got := transcriber.callCount(); got != 1 {
		t.Fatalf("ожидался один запрос распознавания, было %d", got)
	}
}

func TestPressWhileRecordingIsNoop(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	transcriber := &fakeTranscriber{results: []transcribe.Result{{SourceText: "ok"}}}
	sink := &fakeSink{}

	c := New(recorder, &fakeService{}, transcriber, &fakeDeliverer{}, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)

	// Повторные press не перезапускают запись и не создают вторую сессию
	c.HandleHotkey(press())
	c.HandleHotkey(press())
	waitFor(t, func() bool { return recorder.starts() >= 1 }, "запись не началась")

	if c.State() != StateRecording {
		t.Fatalf("состояние изменилось: %s", c.State())
	}
	if recorder.starts() != 1 {
		t.Fatalf("recorder.Start вызван %d раз", recorder.starts())
	}
}

func TestReleaseWhileIdleIgnored(t *testing.T) {
	recorder := &fakeRecorder{}
	sink := &fakeSink{}

	c := New(recorder, &fakeService{}, &fakeTranscriber{}, &fakeDeliverer{}, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(release())
	// Даём циклу обработать событие
	time.Sleep(20 * time.Millisecond)

	if c.State() != StateIdle {
		t.Fatalf("состояние: %s", c.State())
	}
	if recorder.stopCalls != 0 {
		t.Fatal("Stop не должен вызываться на release в Idle")
	}
	if sink.errorCount() != 0 {
		t.Fatal("невалидное событие не должно быть ошибкой")
	}
}

func TestCaptureUnavailableStaysIdle(t *testing.T) {
	recorder := &fakeRecorder{startErr: errors.New("audio: не удалось открыть устройство")}
	sink := &fakeSink{}
	transcriber := &fakeTranscriber{}

	c := New(recorder, &fakeService{}, transcriber, &fakeDeliverer{}, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitFor(t, func() bool { return sink.errorCount() > 0 }, "ошибка не доложена")

	if c.State() != StateIdle {
		t.Fatalf("сессия не должна создаваться: %s", c.State())
	}
	if transcriber.callCount() != 0 {
		t.Fatal("распознавание не должно вызываться")
	}

	// Слушатель жив: следующая попытка работает
	recorder.mu.Lock()
	recorder.startErr = nil
	recorder.mu.Unlock()
	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
}

func TestEmptyCaptureSkipsTranscription(t *testing.T) {
	recorder := &fakeRecorder{stopErr: audio.ErrEmptyCapture}
	transcriber := &fakeTranscriber{}
	svc := &fakeService{}
	sink := &fakeSink{}

	c := New(recorder, svc, transcriber, &fakeDeliverer{}, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return sink.emptyCount() > 0 }, "пустая запись не доложена")
	waitForState(t, c, StateIdle)

	if transcriber.callCount() != 0 {
		t.Fatal("для пустой записи запрос не отправляется")
	}
	if svc.ensureCalls() != 0 {
		t.Fatal("готовность сервиса не должна проверяться")
	}
}

func TestServiceUnavailableAbortsSession(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	svc := &fakeService{err: service.ErrNotReady}
	transcriber := &fakeTranscriber{}
	sink := &fakeSink{}

	c := New(recorder, svc, transcriber, &fakeDeliverer{}, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return sink.errorCount() > 0 }, "отказ сервиса не доложен")
	waitForState(t, c, StateIdle)

	if transcriber.callCount() != 0 {
		t.Fatal("запрос не должен отправляться если сервис не готов")
	}
}

func TestTimeoutRetriesExactlyOnce(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	transcriber := &fakeTranscriber{
		errs:    []error{transcribe.ErrTimeout, nil},
		results: []transcribe.Result{{}, {SourceText: "привет", DetectedLanguage: "ru"}},
	}
	delivery := &fakeDeliverer{}

	c := New(recorder, &fakeService{}, transcriber, delivery, &fakeSink{}, Options{
		TargetLanguage: func() string { return "ru" },
	})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return len(delivery.delivered()) > 0 }, "текст не доставлен после повтора")

	if got := transcriber.callCount(); got != 2 {
		t.Fatalf("ожидалось ровно 2 запроса (1 повтор), было %d", got)
	}
}

func TestTimeoutTwiceAborts(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	transcriber := &fakeTranscriber{
		errs: []error{transcribe.ErrTimeout, transcribe.ErrTimeout},
	}
	sink := &fakeSink{}

	c := New(recorder, &fakeService{}, transcriber, &fakeDeliverer{}, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return sink.errorCount() > 0 }, "ошибка не доложена")
	waitForState(t, c, StateIdle)

	if got := transcriber.callCount(); got != 2 {
		t.Fatalf("после повтора больше попыток быть не должно, было %d", got)
	}
}

func TestServiceErrorNoRetry(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	transcriber := &fakeTranscriber{
		errs: []error{&transcribe.StatusError{Code: 500, Detail: "boom"}},
	}
	sink := &fakeSink{}

	c := New(recorder, &fakeService{}, transcriber, &fakeDeliverer{}, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return sink.errorCount() > 0 }, "ошибка не доложена")
	waitForState(t, c, StateIdle)

	if got := transcriber.callCount(); got != 1 {
		t.Fatalf("ошибка сервиса не повторяется, было %d запросов", got)
	}
}

func TestPressDuringTranscribingIgnored(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	block := make(chan struct{})
	transcriber := &fakeTranscriber{
		block:   block,
		results: []transcribe.Result{{SourceText: "ok"}},
	}
	delivery := &fakeDeliverer{}

	c := New(recorder, &fakeService{}, transcriber, delivery, &fakeSink{}, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitForState(t, c, StateTranscribing)

	// press во время Transcribing ставится в очередь и игнорируется,
	// а не вплетается в активную сессию
	c.HandleHotkey(press())
	time.Sleep(20 * time.Millisecond)
	close(block)

	waitFor(t, func() bool { return len(delivery.delivered()) > 0 }, "текст не доставлен")
	waitForState(t, c, StateIdle)

	if recorder.starts() != 1 {
		t.Fatalf("press во время распознавания не должен начинать запись, Start вызван %d раз", recorder.starts())
	}
}

func TestTargetLanguageForwarded(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	transcriber := &fakeTranscriber{results: []transcribe.Result{{SourceText: "dobrý den"}}}
	delivery := &fakeDeliverer{}

	c := New(recorder, &fakeService{}, transcriber, delivery, &fakeSink{}, Options{
		TargetLanguage: func() string { return "cs" },
	})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return len(delivery.delivered()) > 0 }, "текст не доставлен")

	transcriber.mu.Lock()
	defer transcriber.mu.Unlock()
	if len(transcriber.targets) != 1 || transcriber.targets[0] != "cs" {
		t.Fatalf("target_language: %v", transcriber.targets)
	}
}

func TestDeliveryFailureStillReturnsIdle(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	transcriber := &fakeTranscriber{results: []transcribe.Result{{SourceText: "ok"}}}
	delivery := &fakeDeliverer{err: errors.New("xdotool не найден")}
	sink := &fakeSink{}

	c := New(recorder, &fakeService{}, transcriber, delivery, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return sink.errorCount() > 0 }, "ошибка доставки не доложена")
	waitForState(t, c, StateIdle)

	if len(sink.deliveredResults()) != 0 {
		t.Fatal("Delivered не должен вызываться при ошибке доставки")
	}
}

func TestShutdownCancelsInflightTranscription(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	// Transcribe висит до отмены контекста
	transcriber := &fakeTranscriber{block: make(chan struct{})}

	c := New(recorder, &fakeService{}, transcriber, &fakeDeliverer{}, &fakeSink{}, Options{
		ShutdownGrace: time.Second,
	})

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitForState(t, c, StateTranscribing)

	start := time.Now()
	c.Shutdown()

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Shutdown не уложился в grace-период: %v", elapsed)
	}
	if c.State() != StateIdle {
		t.Fatalf("после Shutdown состояние должно быть Idle: %s", c.State())
	}
}

func TestShutdownReleasesMicrophone(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}

	c := New(recorder, &fakeService{}, &fakeTranscriber{}, &fakeDeliverer{}, &fakeSink{}, Options{})

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)

	c.Shutdown()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if recorder.recording {
		t.Fatal("микрофон не освобождён при выходе")
	}
	if recorder.stopCalls == 0 {
		t.Fatal("Stop не вызван при выходе")
	}
}

func TestStateTransitionOrder(t *testing.T) {
	recorder := &fakeRecorder{stopBuf: goodBuffer()}
	transcriber := &fakeTranscriber{results: []transcribe.Result{{SourceText: "hello", TranslatedText: "hello"}}}
	delivery := &fakeDeliverer{}
	sink := &fakeSink{}

	c := New(recorder, &fakeService{}, transcriber, delivery, sink, Options{})
	defer c.Shutdown()

	c.HandleHotkey(press())
	waitForState(t, c, StateRecording)
	c.HandleHotkey(release())
	waitFor(t, func() bool { return len(delivery.delivered()) > 0 }, "текст не доставлен")
	waitForState(t, c, StateIdle)

	want := []State{StateRecording, StateTranscribing, StateDelivering, StateIdle}
	got := sink.snapshotStates()
	if len(got) != len(want) {
		t.Fatalf("переходы: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("переходы: %v, ожидалось %v", got, want)
		}
	}
}
