// Package config предоставляет конфигурацию приложения с сохранением в файл.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Modifier представляет модификатор клавиши.
type Modifier string

const (
	ModCtrl  Modifier = "ctrl"
	ModShift Modifier = "shift"
	ModAlt   Modifier = "alt"
	ModSuper Modifier = "super" // Win/Cmd
)

// Key представляет клавишу.
type Key string

const (
	KeySpace  Key = "space"
	KeyReturn Key = "return"
	KeyTab    Key = "tab"
	KeyA      Key = "a"
	KeyB      Key = "b"
	KeyC      Key = "c"
	KeyD      Key = "d"
	KeyE      Key = "e"
	KeyF      Key = "f"
	KeyG      Key = "g"
	KeyH      Key = "h"
	KeyI      Key = "i"
	KeyJ      Key = "j"
	KeyK      Key = "k"
	KeyL      Key = "l"
	KeyM      Key = "m"
	KeyN      Key = "n"
	KeyO      Key = "o"
	KeyP      Key = "p"
	KeyQ      Key = "q"
	KeyR      Key = "r"
	KeyS      Key = "s"
	KeyT      Key = "t"
	KeyU      Key = "u"
	KeyV      Key = "v"
	KeyW      Key = "w"
	KeyX      Key = "x"
	KeyY      Key = "y"
	KeyZ      Key = "z"
	KeyF1     Key = "f1"
	KeyF2     Key = "f2"
	KeyF3     Key = "f3"
	KeyF4     Key = "f4"
	KeyF5     Key = "f5"
	KeyF6     Key = "f6"
	KeyF7     Key = "f7"
	KeyF8     Key = "f8"
	KeyF9     Key = "f9"
	KeyF10    Key = "f10"
	KeyF11    Key = "f11"
	KeyF12    Key = "f12"
)

// HotkeyConfig хранит настройки горячей клавиши.
type HotkeyConfig struct {
	Modifiers []Modifier `json:"modifiers"`
	Key       Key        `json:"key"`
}

// String возвращает строковое представление горячей клавиши.
func (h HotkeyConfig) String() string {
	result := ""
	for _, m := range h.Modifiers {
		if result != "" {
			result += "+"
		}
		result += string(m)
	}
	if result != "" {
		result += "+"
	}
	result += string(h.Key)
	return result
}

// DeliveryMode определяет способ доставки распознанного текста.
type DeliveryMode string

const (
	// DeliverClipboard - только копирование в буфер обмена.
	DeliverClipboard DeliveryMode = "clipboard"
	// DeliverType - только эмуляция ввода в активное окно.
	DeliverType DeliveryMode = "type"
	// DeliverBoth - буфер обмена + ввод.
	DeliverBoth DeliveryMode = "both"
)

// ServiceConfig хранит параметры контейнера сервиса распознавания.
type ServiceConfig struct {
	HostPort      int    `json:"host_port"`
	Image         string `json:"image"`
	ContainerName string `json:"container_name"`
	// ReadySec - бюджет ожидания готовности сервиса.
	ReadySec int `json:"ready_sec"`
	// PollMs - интервал опроса health endpoint'а.
	PollMs int `json:"poll_ms"`
	// RequestSec - таймаут одного запроса распознавания.
	RequestSec int `json:"request_sec"`
}

// ReadyTimeout возвращает бюджет ожидания готовности.
func (s ServiceConfig) ReadyTimeout() time.Duration {
	return time.Duration(s.ReadySec) * time.Second
}

// PollInterval возвращает интервал опроса готовности.
func (s ServiceConfig) PollInterval() time.Duration {
	return time.Duration(s.PollMs) * time.Millisecond
}

// RequestTimeout возвращает таймаут запроса распознавания.
func (s ServiceConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestSec) * time.Second
}

// configData структура для сериализации. Notifications через указатель,
// чтобы отличать "выключено" от "ключ отсутствует в файле".
type configData struct {
	Language        string        `json:"language"`
	UILanguage      string        `json:"ui_language,omitempty"`
	Notifications   *bool         `json:"notifications,omitempty"`
	Hotkey          HotkeyConfig  `json:"hotkey"`
	Delivery        DeliveryMode  `json:"delivery,omitempty"`
	Service         ServiceConfig `json:"service"`
	MaxDurationSec  int           `json:"max_duration_sec,omitempty"`
	ShutdownGraceMs int           `json:"shutdown_grace_ms,omitempty"`
}

// Config хранит настройки приложения.
type Config struct {
	mu             sync.RWMutex
	language       string
	uiLanguage     string
	notifications  bool
	hotkey         HotkeyConfig
	delivery       DeliveryMode
	service        ServiceConfig
	maxDuration    time.Duration
	shutdownGrace  time.Duration
	configPath     string
	onHotkeyChange func(HotkeyConfig)
}

// Языки перевода, которые понимает сервис (плюс "auto" для автоопределения).
var supportedLanguages = []string{"en", "ru", "uk", "cs", "es", "pl"}

// SupportedLanguages возвращает список поддерживаемых языков перевода.
func SupportedLanguages() []string {
	out := make([]string, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// IsSupportedLanguage проверяет, что код языка известен сервису.
func IsSupportedLanguage(lang string) bool {
	for _, l := range supportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// New создаёт конфигурацию, загружая из файла или с настройками по умолчанию.
// Переменные окружения (STT_PORT, STT_LANGUAGE, STT_IMAGE, STT_CONTAINER)
// имеют приоритет над файлом.
func New() *Config {
	c := &Config{
		language:      "en",
		uiLanguage:    "en",
		notifications: true,
		hotkey: HotkeyConfig{
			Modifiers: []Modifier{ModCtrl, ModShift},
			Key:       KeySpace,
		},
		delivery: DeliverBoth,
		service: ServiceConfig{
			HostPort:      8001,
			Image:         "stt-service:latest",
			ContainerName: "stt-whisper-gui",
			ReadySec:      60,
			PollMs:        1000,
			RequestSec:    120,
		},
		shutdownGrace: 5 * time.Second,
	}

	// Определяем путь к файлу конфигурации рядом с бинарником
	execPath, err := os.Executable()
	if err == nil {
		// Резолвим симлинки
		execPath, err = filepath.EvalSymlinks(execPath)
		if err == nil {
			execDir := filepath.Dir(execPath)
			c.configPath = filepath.Join(execDir, "config.json")
		}
	}

	c.load()
	c.applyEnv()

	return c
}

// load загружает конфигурацию из файла.
func (c *Config) load() {
	if c.configPath == "" {
		return
	}

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return // Файл не существует, используем defaults
	}

	var cfg configData
	if err := json.Unmarshal(data, &cfg); err != nil {
		return
	}

	if IsSupportedLanguage(cfg.Language) || cfg.Language == "auto" {
		c.language = cfg.Language
	}
	if cfg.UILanguage != "" {
		c.uiLanguage = cfg.UILanguage
	}
	if cfg.Notifications != nil {
		c.notifications = *cfg.Notifications
	}
	if cfg.Hotkey.Key != "" {
		c.hotkey = cfg.Hotkey
	}
	switch cfg.Delivery {
	case DeliverClipboard, DeliverType, DeliverBoth:
		c.delivery = cfg.Delivery
	}
	if cfg.Service.HostPort > 0 {
		c.service.HostPort = cfg.Service.HostPort
	}
	if cfg.Service.Image != "" {
		c.service.Image = cfg.Service.Image
	}
	if cfg.Service.ContainerName != "" {
		c.service.ContainerName = cfg.Service.ContainerName
	}
	if cfg.Service.ReadySec > 0 {
		c.service.ReadySec = cfg.Service.ReadySec
	}
	if cfg.Service.PollMs > 0 {
		c.service.PollMs = cfg.Service.PollMs
	}
	if cfg.Service.RequestSec > 0 {
		c.service.RequestSec = cfg.Service.RequestSec
	}
	if cfg.MaxDurationSec > 0 {
		c.maxDuration = time.Duration(cfg.MaxDurationSec) * time.Second
	}
	if cfg.ShutdownGraceMs > 0 {
		c.shutdownGrace = time.Duration(cfg.ShutdownGraceMs) * time.Millisecond
	}
}

// applyEnv применяет переменные окружения поверх файла.
func (c *Config) applyEnv() {
	if port := envInt("STT_PORT", 0); port > 0 {
		c.service.HostPort = port
	}
	if lang := strings.TrimSpace(os.Getenv("STT_LANGUAGE")); lang != "" {
		if IsSupportedLanguage(lang) || lang == "auto" {
			c.language = lang
		}
	}
	if image := strings.TrimSpace(os.Getenv("STT_IMAGE")); image != "" {
		c.service.Image = image
	}
	if name := strings.TrimSpace(os.Getenv("STT_CONTAINER")); name != "" {
		c.service.ContainerName = name
	}
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// save сохраняет конфигурацию в файл.
func (c *Config) save() {
	if c.configPath == "" {
		return
	}

	notifications := c.notifications
	cfg := configData{
		Language:        c.language,
		UILanguage:      c.uiLanguage,
		Notifications:   &notifications,
		Hotkey:          c.hotkey,
		Delivery:        c.delivery,
		Service:         c.service,
		MaxDurationSec:  int(c.maxDuration / time.Second),
		ShutdownGraceMs: int(c.shutdownGrace / time.Millisecond),
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return
	}

	os.WriteFile(c.configPath, data, 0644)
}

// SetLanguage устанавливает целевой язык перевода.
func (c *Config) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.language = lang
	c.save()
}

// Language возвращает целевой язык перевода.
func (c *Config) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// ToggleNotifications переключает состояние уведомлений.
func (c *Config) ToggleNotifications() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = !c.notifications
	c.save()
	return c.notifications
}

// NotificationsEnabled возвращает true если уведомления включены.
func (c *Config) NotificationsEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notifications
}

// Hotkey возвращает текущую горячую клавишу.
func (c *Config) Hotkey() HotkeyConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hotkey
}

// SetHotkey устанавливает горячую клавишу.
func (c *Config) SetHotkey(hk HotkeyConfig) {
	c.mu.Lock()
	c.hotkey = hk
	callback := c.onHotkeyChange
	c.save()
	c.mu.Unlock()

	if callback != nil {
		callback(hk)
	}
}

// OnHotkeyChange устанавливает callback для изменения горячей клавиши.
func (c *Config) OnHotkeyChange(fn func(HotkeyConfig)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHotkeyChange = fn
}

// Delivery возвращает способ доставки текста.
func (c *Config) Delivery() DeliveryMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.delivery
}

// SetDelivery устанавливает способ доставки текста.
func (c *Config) SetDelivery(mode DeliveryMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delivery = mode
	c.save()
}

// Service возвращает параметры сервиса распознавания.
func (c *Config) Service() ServiceConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.service
}

// MaxDuration возвращает предел длительности записи (0 - без предела).
func (c *Config) MaxDuration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.maxDuration
}

// ShutdownGrace возвращает сколько ждать завершения активной сессии при выходе.
func (c *Config) ShutdownGrace() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shutdownGrace
}

// UILanguage возвращает язык интерфейса.
func (c *Config) UILanguage() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uiLanguage
}

// SetUILanguage устанавливает язык интерфейса.
func (c *Config) SetUILanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uiLanguage = lang
	c.save()
}

// AvailableModifiers возвращает список доступных модификаторов.
func AvailableModifiers() []Modifier {
	return []Modifier{ModCtrl, ModShift, ModAlt, ModSuper}
}

// AvailableKeys возвращает список доступных клавиш.
func AvailableKeys() []Key {
	return []Key{
		KeySpace, KeyReturn, KeyTab,
		KeyA, KeyB, KeyC, KeyD, KeyE, KeyF, KeyG, KeyH, KeyI, KeyJ, KeyK, KeyL, KeyM,
		KeyN, KeyO, KeyP, KeyQ, KeyR, KeyS, KeyT, KeyU, KeyV, KeyW, KeyX, KeyY, KeyZ,
		KeyF1, KeyF2, KeyF3, KeyF4, KeyF5, KeyF6, KeyF7, KeyF8, KeyF9, KeyF10, KeyF11, KeyF12,
	}
}
