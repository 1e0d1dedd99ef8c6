//go:build linux

package delivery

import (
	"context"
	"os"
	"os/exec"
	"strings"
)

type linuxTyper struct {
	useWayland bool
}

func newTyper() (Typer, error) {
	t := &linuxTyper{
		useWayland: os.Getenv("WAYLAND_DISPLAY") != "",
	}
	return t, nil
}

func (t *linuxTyper) Type(ctx context.Context, text string) error {
	if t.useWayland {
		return t.typeWayland(ctx, text)
	}
	return t.typeX11(ctx, text)
}

func (t *linuxTyper) typeX11(ctx context.Context, text string) error {
	// --delay 10 сглаживает ввод в приложениях, которые теряют
	// символы при моментальной вставке
	cmd := exec.CommandContext(ctx, "xdotool", "type", "--clearmodifiers", "--delay", "10", "--", text)
	return cmd.Run()
}

func (t *linuxTyper) typeWayland(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, "wtype", text)
	return cmd.Run()
}

func copyToClipboard(ctx context.Context, text string) error {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		cmd := exec.CommandContext(ctx, "wl-copy")
		cmd.Stdin = strings.NewReader(text)
		return cmd.Run()
	}

	cmd := exec.CommandContext(ctx, "xclip", "-selection", "clipboard")
	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
