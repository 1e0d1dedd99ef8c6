// Package delivery доставляет распознанный текст пользователю:
// в буфер обмена, автовводом в активное поле, или обоими способами.
package delivery

import (
	"context"
	"fmt"
	"time"

	"stt-hotkey/internal/config"
)

// focusDelay - пауза перед автовводом, чтобы фокус успел вернуться
// в исходное окно после отпускания горячей клавиши.
const focusDelay = 150 * time.Millisecond

// Typer вводит текст в текущее активное поле ввода.
type Typer interface {
	Type(ctx context.Context, text string) error
}

// Deliverer доставляет текст согласно настроенному режиму.
type Deliverer struct {
	mode  func() config.DeliveryMode
	typer Typer
}

// New создаёт Deliverer. mode читается на каждой доставке, чтобы
// смена режима в настройках применялась сразу.
func New(mode func() config.DeliveryMode) (*Deliverer, error) {
	typer, err := newTyper()
	if err != nil {
		return nil, fmt.Errorf("delivery: %w", err)
	}
	return &Deliverer{mode: mode, typer: typer}, nil
}

// Deliver копирует и/или вводит текст. Буфер обмена заполняется
// первым: даже если автоввод упадёт, текст останется доступен.
func (d *Deliverer) Deliver(ctx context.Context, text string) error {
	mode := d.mode()

	if mode == config.DeliverClipboard || mode == config.DeliverBoth {
		if err := copyToClipboard(ctx, text); err != nil {
			return fmt.Errorf("буфер обмена: %w", err)
		}
	}

	if mode == config.DeliverType || mode == config.DeliverBoth {
		select {
		case <-time.After(focusDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := d.typer.Type(ctx, text); err != nil {
			return fmt.Errorf("автоввод: %w", err)
		}
	}

	return nil
}
