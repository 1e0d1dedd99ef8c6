package dialog

import (
	"testing"

	"stt-hotkey/internal/config"
)

func TestModifierLabel(t *testing.T) {
	cases := []struct {
		mod  config.Modifier
		want string
	}{
		{config.ModCtrl, "Ctrl"},
		{config.ModShift, "Shift"},
		{config.ModAlt, "Alt"},
		{config.ModSuper, "Super (Win/Cmd)"},
	}
	for _, c := range cases {
		if got := modifierLabel(c.mod); got != c.want {
			t.Errorf("modifierLabel(%q) = %q, ожидалось %q", c.mod, got, c.want)
		}
	}
}

func TestKeyLabel(t *testing.T) {
	cases := []struct {
		key  config.Key
		want string
	}{
		{config.KeySpace, "Space"},
		{config.KeyReturn, "Return"},
		{config.KeyTab, "Tab"},
		{config.KeyA, "A"},
		{config.KeyF12, "F12"},
	}
	for _, c := range cases {
		if got := keyLabel(c.key); got != c.want {
			t.Errorf("keyLabel(%q) = %q, ожидалось %q", c.key, got, c.want)
		}
	}
}

// Каждому значению из списков доступных должна соответствовать непустая подпись.
func TestLabelsCoverAvailableLists(t *testing.T) {
	for _, m := range config.AvailableModifiers() {
		if modifierLabel(m) == "" {
			t.Errorf("пустая подпись модификатора %q", m)
		}
	}
	for _, k := range config.AvailableKeys() {
		if keyLabel(k) == "" {
			t.Errorf("пустая подпись клавиши %q", k)
		}
	}
}
