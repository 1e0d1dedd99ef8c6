// Package tray предоставляет системный трей с меню.
package tray

import (
	"stt-hotkey/embedded"
	"stt-hotkey/internal/i18n"

	"github.com/getlantern/systray"
)

// State представляет состояние приложения для отображения в трее.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateDelivering
)

// Callbacks содержит обработчики событий меню.
type Callbacks struct {
	// OnLanguageSelect вызывается при выборе языка перевода.
	OnLanguageSelect func(code string)
	// OnDeliverySelect вызывается при выборе способа доставки текста.
	OnDeliverySelect      func(mode string)
	OnUILanguageSelect    func(lang string)
	OnNotificationsToggle func() bool
	OnHotkeyClick         func()
	OnStopService         func()
	OnQuit                func()
}

// Settings описывает начальное состояние меню.
type Settings struct {
	Languages       []string // коды языков перевода
	CurrentLanguage string
	DeliveryModes   []string // способы доставки текста
	CurrentDelivery string
	Notifications   bool
}

// Tray управляет иконкой в системном трее.
type Tray struct {
	callbacks Callbacks
	settings  Settings

	status       *systray.MenuItem
	langMenu     *systray.MenuItem
	langItems    map[string]*systray.MenuItem
	deliveryMenu *systray.MenuItem
	deliverItems map[string]*systray.MenuItem
	uiLangMenu   *systray.MenuItem
	uiLangItems  map[string]*systray.MenuItem
	notifyOn     *systray.MenuItem
	hotkeyBtn    *systray.MenuItem
	stopSvcBtn   *systray.MenuItem
	quitBtn      *systray.MenuItem

	currentLang     string
	currentDelivery string
}

// New создаёт новый Tray с начальным состоянием из settings.
func New(callbacks Callbacks, settings Settings) *Tray {
	return &Tray{
		callbacks:       callbacks,
		settings:        settings,
		langItems:       make(map[string]*systray.MenuItem),
		deliverItems:    make(map[string]*systray.MenuItem),
		uiLangItems:     make(map[string]*systray.MenuItem),
		currentLang:     settings.CurrentLanguage,
		currentDelivery: settings.CurrentDelivery,
	}
}

// Run запускает системный трей. Блокирующая функция.
func (t *Tray) Run(onReady func()) {
	systray.Run(func() {
		t.onReady()
		if onReady != nil {
			onReady()
		}
	}, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(embedded.IconIdle)
	systray.SetTitle("STT")
	systray.SetTooltip(i18n.T("app_tooltip"))

	// Статус
	t.status = systray.AddMenuItem(i18n.T("tray_ready"), "")
	t.status.Disable()

	systray.AddSeparator()

	// Язык перевода
	t.langMenu = systray.AddMenuItem(i18n.T("tray_language"), i18n.T("tray_lang_select"))
	for _, code := range t.settings.Languages {
		item := t.langMenu.AddSubMenuItemCheckbox(i18n.T("lang_"+code), "", code == t.currentLang)
		t.langItems[code] = item
		go t.handleLanguageClicks(code, item)
	}

	// Способ доставки текста
	t.deliveryMenu = systray.AddMenuItem(i18n.T("tray_delivery"), i18n.T("tray_delivery_hint"))
	for _, mode := range t.settings.DeliveryModes {
		item := t.deliveryMenu.AddSubMenuItemCheckbox(i18n.T("delivery_"+mode), "", mode == t.currentDelivery)
		t.deliverItems[mode] = item
		go t.handleDeliveryClicks(mode, item)
	}

	// Язык интерфейса
	t.uiLangMenu = systray.AddMenuItem(i18n.T("tray_ui_language"), "")
	for _, lang := range i18n.AvailableLanguages() {
		code := string(lang)
		item := t.uiLangMenu.AddSubMenuItemCheckbox(i18n.LanguageName(lang), "", lang == i18n.GetLanguage())
		t.uiLangItems[code] = item
		go t.handleUILanguageClicks(code, item)
	}

	// Уведомления
	t.notifyOn = systray.AddMenuItemCheckbox(i18n.T("tray_notifications"), i18n.T("tray_notifications_hint"), t.settings.Notifications)

	// Горячая клавиша
	t.hotkeyBtn = systray.AddMenuItem(i18n.T("tray_hotkey"), i18n.T("tray_hotkey_hint"))

	systray.AddSeparator()

	// Сервис
	t.stopSvcBtn = systray.AddMenuItem(i18n.T("tray_stop_service"), i18n.T("tray_stop_service_hint"))

	systray.AddSeparator()

	// Выход
	t.quitBtn = systray.AddMenuItem(i18n.T("tray_quit"), i18n.T("tray_quit_hint"))

	// Обработка событий меню
	go t.handleMenuEvents()
}

func (t *Tray) handleLanguageClicks(code string, item *systray.MenuItem) {
	for range item.ClickedCh {
		if t.callbacks.OnLanguageSelect != nil {
			t.callbacks.OnLanguageSelect(code)
		}
		t.SetLanguage(code)
	}
}

func (t *Tray) handleDeliveryClicks(mode string, item *systray.MenuItem) {
	for range item.ClickedCh {
		if t.callbacks.OnDeliverySelect != nil {
			t.callbacks.OnDeliverySelect(mode)
		}
		t.SetDelivery(mode)
	}
}

func (t *Tray) handleUILanguageClicks(code string, item *systray.MenuItem) {
	for range item.ClickedCh {
		if t.callbacks.OnUILanguageSelect != nil {
			t.callbacks.OnUILanguageSelect(code)
		}
		for c, it := range t.uiLangItems {
			if c == code {
				it.Check()
			} else {
				it.Uncheck()
			}
		}
		// Язык интерфейса сменился - перерисовываем все тексты меню
		t.RefreshUI()
	}
}

func (t *Tray) handleMenuEvents() {
	for {
		select {
		// Уведомления
		case <-t.notifyOn.ClickedCh:
			if t.callbacks.OnNotificationsToggle != nil {
				enabled := t.callbacks.OnNotificationsToggle()
				if enabled {
					t.notifyOn.Check()
				} else {
					t.notifyOn.Uncheck()
				}
			}

		// Горячая клавиша
		case <-t.hotkeyBtn.ClickedCh:
			if t.callbacks.OnHotkeyClick != nil {
				t.callbacks.OnHotkeyClick()
			}

		// Остановка сервиса
		case <-t.stopSvcBtn.ClickedCh:
			if t.callbacks.OnStopService != nil {
				t.callbacks.OnStopService()
			}

		// Выход
		case <-t.quitBtn.ClickedCh:
			if t.callbacks.OnQuit != nil {
				t.callbacks.OnQuit()
			}
			systray.Quit()
		}
	}
}

// SetState устанавливает состояние приложения и обновляет иконку.
func (t *Tray) SetState(state State) {
	switch state {
	case StateIdle:
		systray.SetIcon(embedded.IconIdle)
		systray.SetTooltip("STT - " + i18n.T("tray_ready"))
		if t.status != nil {
			t.status.SetTitle(i18n.T("tray_ready"))
		}
	case StateRecording:
		systray.SetIcon(embedded.IconRecording)
		systray.SetTooltip("STT - " + i18n.T("tray_recording"))
		if t.status != nil {
			t.status.SetTitle(i18n.T("tray_recording"))
		}
	case StateProcessing:
		systray.SetIcon(embedded.IconProcessing)
		systray.SetTooltip("STT - " + i18n.T("tray_processing"))
		if t.status != nil {
			t.status.SetTitle(i18n.T("tray_processing"))
		}
	case StateDelivering:
		systray.SetIcon(embedded.IconProcessing)
		systray.SetTooltip("STT - " + i18n.T("tray_delivering"))
		if t.status != nil {
			t.status.SetTitle(i18n.T("tray_delivering"))
		}
	}
}

// SetLanguage отмечает выбранный язык перевода в меню.
func (t *Tray) SetLanguage(code string) {
	t.currentLang = code
	for c, item := range t.langItems {
		if c == code {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// SetDelivery отмечает выбранный способ доставки в меню.
func (t *Tray) SetDelivery(mode string) {
	t.currentDelivery = mode
	for m, item := range t.deliverItems {
		if m == mode {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (t *Tray) onExit() {
	// Cleanup при выходе
}

// Quit закрывает системный трей.
func (t *Tray) Quit() {
	systray.Quit()
}

// RefreshUI обновляет все тексты меню на текущем языке.
func (t *Tray) RefreshUI() {
	systray.SetTooltip(i18n.T("app_tooltip"))

	if t.status != nil {
		t.status.SetTitle(i18n.T("tray_ready"))
	}
	if t.langMenu != nil {
		t.langMenu.SetTitle(i18n.T("tray_language"))
		t.langMenu.SetTooltip(i18n.T("tray_lang_select"))
	}
	for code, item := range t.langItems {
		item.SetTitle(i18n.T("lang_" + code))
	}
	if t.deliveryMenu != nil {
		t.deliveryMenu.SetTitle(i18n.T("tray_delivery"))
		t.deliveryMenu.SetTooltip(i18n.T("tray_delivery_hint"))
	}
	for mode, item := range t.deliverItems {
		item.SetTitle(i18n.T("delivery_" + mode))
	}
	if t.uiLangMenu != nil {
		t.uiLangMenu.SetTitle(i18n.T("tray_ui_language"))
	}
	if t.notifyOn != nil {
		t.notifyOn.SetTitle(i18n.T("tray_notifications"))
		t.notifyOn.SetTooltip(i18n.T("tray_notifications_hint"))
	}
	if t.hotkeyBtn != nil {
		t.hotkeyBtn.SetTitle(i18n.T("tray_hotkey"))
		t.hotkeyBtn.SetTooltip(i18n.T("tray_hotkey_hint"))
	}
	if t.stopSvcBtn != nil {
		t.stopSvcBtn.SetTitle(i18n.T("tray_stop_service"))
		t.stopSvcBtn.SetTooltip(i18n.T("tray_stop_service_hint"))
	}
	if t.quitBtn != nil {
		t.quitBtn.SetTitle(i18n.T("tray_quit"))
		t.quitBtn.SetTooltip(i18n.T("tray_quit_hint"))
	}
}
