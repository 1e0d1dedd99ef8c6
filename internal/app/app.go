// Package app содержит основную логику приложения.
package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stt-hotkey/internal/audio"
	"stt-hotkey/internal/config"
	"stt-hotkey/internal/delivery"
	"stt-hotkey/internal/dialog"
	"stt-hotkey/internal/hotkey"
	"stt-hotkey/internal/i18n"
	"stt-hotkey/internal/notify"
	"stt-hotkey/internal/service"
	"stt-hotkey/internal/session"
	"stt-hotkey/internal/transcribe"
	"stt-hotkey/internal/tray"
)

// App представляет главное приложение.
type App struct {
	config     *config.Config
	recorder   *audio.Recorder
	lifecycle  *service.Lifecycle
	controller *session.Controller
	notifier   *notify.Notifier
	tray       *tray.Tray
	hotkey     *hotkey.Handler

	closeOnce sync.Once
}

// New создаёт новое приложение.
func New() (*App, error) {
	cfg := config.New()

	// Инициализируем язык интерфейса из конфига
	if uiLang := cfg.UILanguage(); uiLang != "" {
		i18n.SetLanguage(i18n.Language(uiLang))
	}

	recorder, err := audio.New()
	if err != nil {
		return nil, err
	}
	recorder.SetMaxDuration(cfg.MaxDuration())

	deliverer, err := delivery.New(cfg.Delivery)
	if err != nil {
		recorder.Close()
		return nil, err
	}

	svcCfg := cfg.Service()
	lifecycle := service.New(service.NewDockerRuntime(), service.Config{
		HostPort:      svcCfg.HostPort,
		Image:         svcCfg.Image,
		ContainerName: svcCfg.ContainerName,
		ReadyTimeout:  svcCfg.ReadyTimeout(),
		PollInterval:  svcCfg.PollInterval(),
	})

	notifier := notify.New(cfg.NotificationsEnabled())

	app := &App{
		config:    cfg,
		recorder:  recorder,
		lifecycle: lifecycle,
		notifier:  notifier,
	}

	client := transcribe.New(svcCfg.RequestTimeout())

	app.controller = session.New(recorder, lifecycle, client, deliverer, app, session.Options{
		TargetLanguage: cfg.Language,
		ShutdownGrace:  cfg.ShutdownGrace(),
	})

	// Создаём системный трей с обработчиками
	app.tray = tray.New(tray.Callbacks{
		OnLanguageSelect: func(code string) {
			if !config.IsSupportedLanguage(code) {
				return
			}
			cfg.SetLanguage(code)
			log.Printf("Язык перевода: %s", code)
		},
		OnNotificationsToggle: func() bool {
			enabled := cfg.ToggleNotifications()
			notifier.SetEnabled(enabled)
			return enabled
		},
		OnDeliverySelect: func(mode string) {
			m := config.DeliveryMode(mode)
			switch m {
			case config.DeliverClipboard, config.DeliverType, config.DeliverBoth:
			default:
				return
			}
			cfg.SetDelivery(m)
			log.Printf("Способ доставки: %s", mode)
		},
		OnUILanguageSelect: func(lang string) {
			i18n.SetLanguage(i18n.Language(lang))
			cfg.SetUILanguage(lang)
			log.Printf("Язык интерфейса: %s", lang)
		},
		OnHotkeyClick: func() {
			// Показываем реально зарегистрированную комбинацию,
			// конфиг - запасной вариант до первой регистрации
			current := app.hotkey.Current()
			if current.Key == "" {
				current = cfg.Hotkey()
			}
			hk, err := dialog.SelectHotkey(current)
			if err != nil {
				return // Пользователь отменил
			}
			cfg.SetHotkey(hk)
		},
		OnStopService: func() {
			go func() {
				if err := lifecycle.Stop(); err != nil {
					log.Printf("Ошибка остановки сервиса: %v", err)
				}
			}()
		},
		OnQuit: func() {
			app.Close()
		},
	}, tray.Settings{
		Languages:       config.SupportedLanguages(),
		CurrentLanguage: cfg.Language(),
		DeliveryModes: []string{
			string(config.DeliverClipboard),
			string(config.DeliverType),
			string(config.DeliverBoth),
		},
		CurrentDelivery: string(cfg.Delivery()),
		Notifications:   cfg.NotificationsEnabled(),
	})

	// Смена горячей клавиши в конфиге - перерегистрируем
	cfg.OnHotkeyChange(func(hk config.HotkeyConfig) {
		if err := app.hotkey.Register(hk); err != nil {
			log.Printf("Ошибка регистрации горячей клавиши: %v", err)
			notifier.Error(i18n.T("error_hotkey_register"))
		}
	})

	// Горячая клавиша: нажатие и отпускание уходят в контроллер сессии
	app.hotkey = hotkey.New(
		func() {
			app.controller.HandleHotkey(session.Event{Kind: session.EventPress, Time: time.Now()})
		},
		func() {
			app.controller.HandleHotkey(session.Event{Kind: session.EventRelease, Time: time.Now()})
		},
	)

	return app, nil
}

// Run запускает приложение.
func (a *App) Run() {
	a.tray.Run(func() {
		// Регистрируем горячую клавишу после инициализации трея
		hk := a.config.Hotkey()
		if err := a.hotkey.Register(hk); err != nil {
			log.Printf("Ошибка регистрации горячей клавиши: %v", err)
			a.notifier.Error(i18n.T("error_hotkey_register"))
		}

		// Прогреваем сервис в фоне, чтобы первая запись не ждала запуск
		go a.warmUpService()

		go a.handleSignals()
	})
}

// handleSignals завершает приложение по SIGINT/SIGTERM.
func (a *App) handleSignals() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	sig := <-ch
	log.Printf("Получен сигнал %v, завершаемся", sig)
	a.Close()
	a.tray.Quit()
}

func (a *App) warmUpService() {
	a.notifier.Info(i18n.T("notify_starting"))

	ctx, cancel := context.WithTimeout(context.Background(), a.config.Service().ReadyTimeout())
	defer cancel()

	if _, err := a.lifecycle.EnsureReady(ctx); err != nil {
		log.Printf("Прогрев сервиса не удался: %v", err)
		return
	}
	a.notifier.Info(i18n.T("notify_ready"))
}

// StateChanged обновляет иконку трея и уведомления при смене состояния сессии.
func (a *App) StateChanged(state session.State) {
	switch state {
	case session.StateIdle:
		a.tray.SetState(tray.StateIdle)
	case session.StateRecording:
		a.tray.SetState(tray.StateRecording)
		a.notifier.Recording()
	case session.StateTranscribing:
		a.tray.SetState(tray.StateProcessing)
		a.notifier.Processing()
	case session.StateDelivering:
		a.tray.SetState(tray.StateDelivering)
	}
}

// SessionError показывает ошибку сессии.
func (a *App) SessionError(msg string) {
	a.notifier.Error(msg)
}

// Empty сообщает о пустой записи или пустом результате.
func (a *App) Empty() {
	a.notifier.Empty()
}

// Delivered сообщает об успешной доставке текста.
func (a *App) Delivered(result transcribe.Result) {
	a.notifier.Success(result.Text())
}

// Close освобождает ресурсы приложения. Повторные вызовы
// (меню "Выход" и сигнал могут прийти оба) безопасны.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		if a.hotkey != nil {
			a.hotkey.Unregister()
		}

		if a.controller != nil {
			a.controller.Shutdown()
		}

		if a.recorder != nil {
			a.recorder.Close()
		}

		// Остановка контейнера best-effort: ошибка не блокирует выход
		if a.lifecycle != nil {
			if err := a.lifecycle.Stop(); err != nil {
				log.Printf("Ошибка остановки сервиса: %v", err)
			}
		}
	})
}
