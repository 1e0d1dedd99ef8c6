package i18n

import "testing"

func TestTKnownKey(t *testing.T) {
	SetLanguage(RU)
	defer SetLanguage(EN)

	if got := T("tray_quit"); got != "Выход" {
		t.Errorf("T(tray_quit) = %q, ожидалось %q", got, "Выход")
	}
}

func TestTFallsBackToKey(t *testing.T) {
	if got := T("no_such_key"); got != "no_such_key" {
		t.Errorf("T для неизвестного ключа = %q, ожидался сам ключ", got)
	}
}

func TestSetLanguageRoundtrip(t *testing.T) {
	defer SetLanguage(EN)

	SetLanguage(RU)
	if got := GetLanguage(); got != RU {
		t.Errorf("GetLanguage() = %q, ожидалось %q", got, RU)
	}
	if got := T("tray_ready"); got != "Готов к работе" {
		t.Errorf("T(tray_ready) после SetLanguage(RU) = %q", got)
	}
}

func TestLanguageName(t *testing.T) {
	if got := LanguageName(RU); got != "Русский" {
		t.Errorf("LanguageName(RU) = %q", got)
	}
	if got := LanguageName(EN); got != "English" {
		t.Errorf("LanguageName(EN) = %q", got)
	}
	if got := LanguageName(Language("de")); got != "de" {
		t.Errorf("LanguageName(de) = %q, ожидался код языка", got)
	}
}

// Все ключи, доступные на одном языке, должны быть переведены и на остальные.
func TestTranslationKeysMatchAcrossLanguages(t *testing.T) {
	for key := range translations[RU] {
		if _, ok := translations[EN][key]; !ok {
			t.Errorf("ключ %q есть в RU, но отсутствует в EN", key)
		}
	}
	for key := range translations[EN] {
		if _, ok := translations[RU][key]; !ok {
			t.Errorf("ключ %q есть в EN, но отсутствует в RU", key)
		}
	}
}
