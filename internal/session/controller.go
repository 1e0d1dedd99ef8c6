// Package session реализует конечный автомат записи и распознавания.
//
// Горячая клавиша только ставит события в ограниченную очередь;
// единственная горутина цикла обработки снимает их и выполняет переходы.
// Благодаря этому события обрабатываются строго в порядке прихода, а
// слушатель клавиш никогда не блокируется и не видит ошибок сессии.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"stt-hotkey/internal/audio"
	"stt-hotkey/internal/service"
	"stt-hotkey/internal/transcribe"
)

// State - состояние сессии.
type State string

const (
	StateIdle         State = "idle"
	StateRecording    State = "recording"
	StateTranscribing State = "transcribing"
	StateDelivering   State = "delivering"
)

// EventKind - тип события горячей клавиши.
type EventKind string

const (
	EventPress   EventKind = "press"
	EventRelease EventKind = "release"
)

// Event - событие горячей клавиши. Не сохраняется, потребляется и
// отбрасывается.
type Event struct {
	Kind EventKind
	Time time.Time
}

// Recorder записывает аудио с микрофона.
type Recorder interface {
	Start() error
	Stop() (audio.Buffer, error)
}

// Service гарантирует готовность сервиса распознавания.
type Service interface {
	EnsureReady(ctx context.Context) (*service.Handle, error)
}

// Transcriber отправляет аудио в сервис распознавания.
type Transcriber interface {
	Transcribe(ctx context.Context, baseURL string, wav []byte, sourceLang, targetLang string) (transcribe.Result, error)
}

// Deliverer доставляет распознанный текст пользователю.
type Deliverer interface {
	Deliver(ctx context.Context, text string) error
}

// Sink получает события сессии для UI (трей, уведомления).
// Вызывается из горутин контроллера.
type Sink interface {
	StateChanged(state State)
	SessionError(msg string)
	// Empty - записано слишком мало аудио или речь не распознана.
	Empty()
	Delivered(result transcribe.Result)
}

// Options - настройки контроллера.
type Options struct {
	// TargetLanguage читается в момент отправки запроса, чтобы смена
	// языка в трее действовала сразу.
	TargetLanguage func() string
	// SourceLanguage - код языка источника, "" или "auto" для автоопределения.
	SourceLanguage string
	// QueueSize - размер очереди событий.
	QueueSize int
	// ShutdownGrace - сколько ждать завершения активной операции при выходе.
	ShutdownGrace time.Duration
}

// Controller - конечный автомат сессий. В любой момент активна не более
// одной сессии: новая запись может начаться только из Idle, а Idle
// возвращается только после завершения предыдущей сессии.
type Controller struct {
	recorder    Recorder
	service     Service
	transcriber Transcriber
	delivery    Deliverer
	sink        Sink
	opts        Options

	events   chan Event
	quit     chan struct{}
	done     chan struct{}
	quitOnce sync.Once

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc // отмена активной операции распознавания

	inflight sync.WaitGroup
}

// New создаёт контроллер и запускает цикл обработки событий.
func New(recorder Recorder, svc Service, transcriber Transcriber, delivery Deliverer, sink Sink, opts Options) *Controller {
	if opts.TargetLanguage == nil {
		opts.TargetLanguage = func() string { return "en" }
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 5 * time.Second
	}

	c := &Controller{
		recorder:    recorder,
		service:     svc,
		transcriber: transcriber,
		delivery:    delivery,
		sink:        sink,
		opts:        opts,
		events:      make(chan Event, opts.QueueSize),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		state:       StateIdle,
	}

	go c.run()
	return c
}

// HandleHotkey ставит событие в очередь. Не блокируется: при
// переполнении очереди событие отбрасывается с записью в лог.
func (c *Controller) HandleHotkey(ev Event) {
	select {
	case c.events <- ev:
	default:
		log.Printf("Очередь событий переполнена, %s отброшен", ev.Kind)
	}
}

// State возвращает текущее состояние сессии.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) run() {
	defer close(c.done)

	for {
		select {
		case <-c.quit:
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch state := c.State(); state {
	case StateIdle:
		if ev.Kind == EventPress {
			c.startRecording()
		} else {
			// release без записи - например отпустили клавишу после отказа старта
			log.Printf("Событие %s в состоянии %s игнорируется", ev.Kind, state)
		}
	case StateRecording:
		if ev.Kind == EventRelease {
			c.stopRecording()
		} else {
			// Key repeat или второе нажатие - запись не перезапускаем
			log.Printf("Повторный press во время записи игнорируется")
		}
	default:
		// Сессия ещё обрабатывается - события не встраиваются в неё
		log.Printf("Событие %s в состоянии %s игнорируется", ev.Kind, state)
	}
}

func (c *Controller) startRecording() {
	if err := c.recorder.Start(); err != nil {
		if errors.Is(err, audio.ErrAlreadyRecording) {
			// Гонка двойного нажатия - не ошибка
			log.Printf("Микрофон уже занят, press игнорируется")
			return
		}
		// Сессия не создаётся, остаёмся в Idle
		log.Printf("Ошибка начала записи: %v", err)
		c.sink.SessionError("микрофон недоступен: " + err.Error())
		return
	}

	c.setState(StateRecording)
}

func (c *Controller) stopRecording() {
	buf, err := c.recorder.Stop()
	if err != nil {
		// Пустая или слишком короткая запись - запрос не отправляем
		log.Printf("Запись отброшена: %v", err)
		c.sink.Empty()
		c.setState(StateIdle)
		return
	}

	if buf.Truncated {
		log.Printf("Запись обрезана по пределу длительности (%v)", buf.Duration())
	}

	c.setState(StateTranscribing)

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	wav := audio.EncodeWAV(buf.Samples, audio.SampleRate, audio.Channels)

	// Распознавание идёт в фоне, цикл продолжает снимать (и игнорировать)
	// события - press во время Transcribing не порождает вторую сессию
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()
		c.transcribeAndDeliver(ctx, wav)
	}()
}

func (c *Controller) transcribeAndDeliver(ctx context.Context, wav []byte) {
	handle, err := c.service.EnsureReady(ctx)
	if err != nil {
		log.Printf("Сервис распознавания недоступен: %v", err)
		c.sink.SessionError("сервис распознавания недоступен")
		c.setState(StateIdle) // буфер отбрасывается
		return
	}

	target := c.opts.TargetLanguage()
	result, err := c.transcriber.Transcribe(ctx, handle.BaseURL(), wav, c.opts.SourceLanguage, target)
	if err != nil && errors.Is(err, transcribe.ErrTimeout) && ctx.Err() == nil {
		// Один повтор после таймаута. Ошибки сервиса не повторяем:
		// chunk мог быть частично обработан.
		log.Printf("Таймаут распознавания, повторяем запрос")
		result, err = c.transcriber.Transcribe(ctx, handle.BaseURL(), wav, c.opts.SourceLanguage, target)
	}
	if err != nil {
		log.Printf("Ошибка распознавания: %v", err)
		c.sink.SessionError("ошибка распознавания")
		c.setState(StateIdle)
		return
	}

	text := result.Text()
	if text == "" {
		log.Printf("Речь не распознана")
		c.sink.Empty()
		c.setState(StateIdle)
		return
	}

	c.setState(StateDelivering)

	if err := c.delivery.Deliver(ctx, text); err != nil {
		// Доставка best-effort: ошибка не возвращает сессию в Transcribing
		log.Printf("Ошибка доставки текста: %v", err)
		c.sink.SessionError("не удалось вставить текст")
	} else {
		c.sink.Delivered(result)
	}

	c.setState(StateIdle)
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	if c.state == state {
		c.mu.Unlock()
		return
	}
	c.state = state
	c.mu.Unlock()

	c.sink.StateChanged(state)
}

// Shutdown останавливает цикл обработки, отменяет активную операцию и
// дожидается её завершения в пределах grace-периода. Микрофон
// освобождается, итоговое состояние - Idle.
func (c *Controller) Shutdown() {
	c.quitOnce.Do(func() { close(c.quit) })

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	// Если запись ещё шла - останавливаем и отбрасываем буфер
	if c.State() == StateRecording {
		if _, err := c.recorder.Stop(); err != nil && !errors.Is(err, audio.ErrEmptyCapture) {
			log.Printf("Ошибка остановки записи при выходе: %v", err)
		}
	}

	finished := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(c.opts.ShutdownGrace):
		log.Printf("Активная операция не завершилась за %v", c.opts.ShutdownGrace)
	}

	<-c.done

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}
