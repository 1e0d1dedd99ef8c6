// Package i18n provides internationalization support.
package i18n

import "sync"

// Language represents a UI language.
type Language string

const (
	RU Language = "ru"
	EN Language = "en"
)

var (
	mu      sync.RWMutex
	current = EN // Default language
)

// Translations for all supported languages.
var translations = map[Language]map[string]string{
	RU: {
		// App
		"app_name":    "STT",
		"app_tooltip": "STT - голосовой ввод",

		// Tray menu
		"tray_ready":              "Готов к работе",
		"tray_recording":          "Запись...",
		"tray_processing":         "Распознавание...",
		"tray_delivering":         "Вставка текста...",
		"tray_language":           "Язык перевода",
		"tray_lang_select":        "На какой язык переводить",
		"tray_delivery":           "Доставка текста",
		"tray_delivery_hint":      "Как вставлять распознанный текст",
		"tray_ui_language":        "Язык интерфейса",
		"tray_notifications":      "Уведомления",
		"tray_notifications_hint": "Показывать уведомления",
		"tray_hotkey":             "Горячая клавиша...",
		"tray_hotkey_hint":        "Изменить комбинацию клавиш",
		"tray_stop_service":       "Остановить сервис",
		"tray_stop_service_hint":  "Остановить контейнер распознавания",
		"tray_quit":               "Выход",
		"tray_quit_hint":          "Закрыть приложение",

		// Notifications
		"notify_recording":       "Запись...",
		"notify_recording_hint":  "Говорите в микрофон",
		"notify_processing":      "Распознаю...",
		"notify_processing_hint": "Пожалуйста, подождите",
		"notify_done":            "Готово",
		"notify_empty":           "Не удалось распознать",
		"notify_empty_hint":      "Попробуйте ещё раз",
		"notify_error":           "Ошибка",
		"notify_ready":           "STT готов к работе",
		"notify_starting":        "Запуск сервиса распознавания...",

		// Errors
		"error_recording":       "Ошибка записи",
		"error_recognition":     "Ошибка распознавания",
		"error_input":           "Ошибка ввода",
		"error_hotkey_register": "Не удалось зарегистрировать горячую клавишу",
		"error_clipboard":       "Ошибка копирования в буфер обмена",
		"error_service":         "Сервис распознавания недоступен",

		// Languages
		"lang_en": "Английский",
		"lang_ru": "Русский",
		"lang_uk": "Украинский",
		"lang_cs": "Чешский",
		"lang_es": "Испанский",
		"lang_pl": "Польский",

		// Delivery modes
		"delivery_clipboard": "Буфер обмена",
		"delivery_type":      "Автоввод",
		"delivery_both":      "Буфер + автоввод",
	},

	EN: {
		// App
		"app_name":    "STT",
		"app_tooltip": "STT - voice input",

		// Tray menu
		"tray_ready":              "Ready",
		"tray_recording":          "Recording...",
		"tray_processing":         "Processing...",
		"tray_delivering":         "Inserting text...",
		"tray_language":           "Target language",
		"tray_lang_select":        "Language to translate into",
		"tray_delivery":           "Text delivery",
		"tray_delivery_hint":      "How to insert the recognized text",
		"tray_ui_language":        "Interface language",
		"tray_notifications":      "Notifications",
		"tray_notifications_hint": "Show notifications",
		"tray_hotkey":             "Hotkey...",
		"tray_hotkey_hint":        "Change key combination",
		"tray_stop_service":       "Stop service",
		"tray_stop_service_hint":  "Stop the recognition container",
		"tray_quit":               "Quit",
		"tray_quit_hint":          "Close application",

		// Notifications
		"notify_recording":       "Recording...",
		"notify_recording_hint":  "Speak into the microphone",
		"notify_processing":      "Processing...",
		"notify_processing_hint": "Please wait",
		"notify_done":            "Done",
		"notify_empty":           "Could not recognize",
		"notify_empty_hint":      "Please try again",
		"notify_error":           "Error",
		"notify_ready":           "STT is ready",
		"notify_starting":        "Starting recognition service...",

		// Errors
		"error_recording":       "Recording error",
		"error_recognition":     "Recognition error",
		"error_input":           "Input error",
		"error_hotkey_register": "Could not register hotkey",
		"error_clipboard":       "Clipboard copy error",
		"error_service":         "Recognition service unavailable",

		// Languages
		"lang_en": "English",
		"lang_ru": "Russian",
		"lang_uk": "Ukrainian",
		"lang_cs": "Czech",
		"lang_es": "Spanish",
		"lang_pl": "Polish",

		// Delivery modes
		"delivery_clipboard": "Clipboard",
		"delivery_type":      "Auto-type",
		"delivery_both":      "Clipboard + typing",
	},
}

// T returns the translation for the given key.
func T(key string) string {
	mu.RLock()
	defer mu.RUnlock()

	if strings, ok := translations[current]; ok {
		if s, ok := strings[key]; ok {
			return s
		}
	}
	// Fallback to key itself
	return key
}

// SetLanguage sets the current UI language.
func SetLanguage(lang Language) {
	mu.Lock()
	defer mu.Unlock()
	current = lang
}

// GetLanguage returns the current UI language.
func GetLanguage() Language {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// AvailableLanguages returns list of supported languages.
func AvailableLanguages() []Language {
	return []Language{RU, EN}
}

// LanguageName returns display name for a language.
func LanguageName(lang Language) string {
	switch lang {
	case RU:
		return "Русский"
	case EN:
		return "English"
	default:
		return string(lang)
	}
}
