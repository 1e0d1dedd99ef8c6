// STT Hotkey - голосовой ввод текста через внешний сервис распознавания.
//
// Работает в системном трее, слушает Ctrl+Shift+Space для push-to-talk.
// Запись уходит в Whisper-сервис в Docker, распознанный и переведённый
// текст вставляется в активное поле ввода.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"stt-hotkey/internal/app"
	"stt-hotkey/internal/dialog"
	"stt-hotkey/internal/hotkey"
)

// Version устанавливается при сборке через -ldflags.
var Version = "dev"

func main() {
	// .env необязателен - в нём удобно держать STT_PORT и STT_IMAGE
	_ = godotenv.Load()

	log.SetFlags(log.Ltime | log.Lshortfile)
	log.Printf("STT Hotkey %s запускается...", Version)

	// Запускаем в главном потоке (требование для macOS и некоторых GUI)
	hotkey.RunOnMainThread(run)
}

func run() {
	application, err := app.New()
	if err != nil {
		log.Printf("Ошибка инициализации: %v", err)
		// Приложение без консоли - показываем ошибку в GUI
		dialog.ShowError("STT Hotkey", err.Error())
		os.Exit(1)
	}

	log.Println("Приложение запущено. Нажмите Ctrl+Shift+Space для записи.")
	application.Run()
}
