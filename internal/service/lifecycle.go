// Package service управляет жизненным циклом контейнера сервиса распознавания.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	// ErrNotReady - сервис не стал готов в пределах бюджета.
	ErrNotReady = errors.New("service: сервис не готов")
)

// Handle описывает состояние сервиса. Разделяется между сессиями,
// мутируется только Lifecycle.
type Handle struct {
	mu      sync.RWMutex
	running bool
	ready   bool
	baseURL string
}

// NewHandle создаёт handle для уже запущенного сервиса по известному
// адресу, без управления контейнером.
func NewHandle(baseURL string) *Handle {
	return &Handle{running: true, ready: true, baseURL: baseURL}
}

// BaseURL возвращает адрес сервиса.
func (h *Handle) BaseURL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.baseURL
}

// Ready возвращает true после успешной проверки здоровья.
func (h *Handle) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

// Running возвращает true если контейнер запущен.
func (h *Handle) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Handle) set(running, ready bool) {
	h.mu.Lock()
	h.running = running
	h.ready = ready
	h.mu.Unlock()
}

// Runtime управляет контейнером во внешней среде выполнения.
type Runtime interface {
	// IsRunning проверяет, запущен ли контейнер с данным именем.
	IsRunning(ctx context.Context, name string) (bool, error)
	// Start запускает контейнер, предварительно убрав старый с тем же именем.
	Start(ctx context.Context, name, image string, hostPort int) error
	// Stop останавливает контейнер.
	Stop(ctx context.Context, name string) error
}

// Config - параметры жизненного цикла.
type Config struct {
	HostPort      int
	Image         string
	ContainerName string
	ReadyTimeout  time.Duration
	PollInterval  time.Duration
	// ProbeTimeout - таймаут одного запроса к health endpoint'у.
	ProbeTimeout time.Duration
}

// Lifecycle запускает сервис и следит за его готовностью.
// EnsureReady безопасно вызывать конкурентно: одновременные вызовы
// разделяют один запуск/опрос (single-flight).
type Lifecycle struct {
	runtime    Runtime
	cfg        Config
	handle     *Handle
	group      singleflight.Group
	httpClient *http.Client
}

// New создаёт Lifecycle. Контейнер изначально считается остановленным.
func New(runtime Runtime, cfg Config) *Lifecycle {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}

	return &Lifecycle{
		runtime: runtime,
		cfg:     cfg,
		handle: &Handle{
			baseURL: fmt.Sprintf("http://localhost:%d", cfg.HostPort),
		},
		httpClient: &http.Client{Timeout: cfg.ProbeTimeout},
	}
}

// Handle возвращает общий handle сервиса.
func (l *Lifecycle) Handle() *Handle {
	return l.handle
}

// EnsureReady гарантирует, что сервис запущен и отвечает на health probe.
// Готовность кешируется до Stop. Конкурентные вызовы ждут общий результат.
func (l *Lifecycle) EnsureReady(ctx context.Context) (*Handle, error) {
	if l.handle.Ready() {
		return l.handle, nil
	}

	result := l.group.DoChan("ensure", func() (interface{}, error) {
		return nil, l.ensure(ctx)
	})

	select {
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return l.handle, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lifecycle) ensure(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.ReadyTimeout)
	defer cancel()

	running, err := l.runtime.IsRunning(ctx, l.cfg.ContainerName)
	if err != nil {
		return fmt.Errorf("service: проверка контейнера: %w", err)
	}

	if !running {
		log.Printf("Запуск контейнера %s (образ %s, порт %d)",
			l.cfg.ContainerName, l.cfg.Image, l.cfg.HostPort)
		if err := l.runtime.Start(ctx, l.cfg.ContainerName, l.cfg.Image, l.cfg.HostPort); err != nil {
			return fmt.Errorf("service: запуск контейнера: %w", err)
		}
	}
	l.handle.set(true, false)

	// Опрашиваем health endpoint до готовности или истечения бюджета
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if l.probe(ctx) {
			l.handle.set(true, true)
			log.Printf("Сервис распознавания готов: %s", l.handle.BaseURL())
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrNotReady, ctx.Err())
		case <-ticker.C:
		}
	}
}

// probe проверяет health endpoint. Сервис отдаёт 200 на /docs когда
// модели загружены и API поднят.
func (l *Lifecycle) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", l.handle.BaseURL()+"/docs", nil)
	if err != nil {
		return false
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Stop останавливает контейнер и сбрасывает флаги.
// Ошибка остановки не должна блокировать завершение демона - решает вызывающий.
func (l *Lifecycle) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	l.handle.set(false, false)

	if err := l.runtime.Stop(ctx, l.cfg.ContainerName); err != nil {
		return fmt.Errorf("service: остановка контейнера: %w", err)
	}
	return nil
}
