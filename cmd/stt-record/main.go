// STT Record - запись фиксированной длительности с распознаванием.
//
// Утилита для проверки всего пайплайна без горячих клавиш: пишет звук
// заданное время, отправляет в сервис и печатает результат в stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stt-hotkey/internal/audio"
	"stt-hotkey/internal/config"
	"stt-hotkey/internal/service"
	"stt-hotkey/internal/transcribe"
)

func main() {
	_ = godotenv.Load()

	log.SetFlags(log.Ltime | log.Lshortfile)

	duration, language, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := run(duration, language); err != nil {
		log.Printf("Ошибка: %v", err)
		os.Exit(1)
	}
}

// parseFlags разбирает аргументы. Длительность задаётся в секундах,
// как целое число: -duration 10.
func parseFlags(args []string) (time.Duration, string, error) {
	fs := flag.NewFlagSet("stt-record", flag.ContinueOnError)
	durationSec := fs.Int("duration", 5, "длительность записи в секундах")
	language := fs.String("language", "en", "целевой язык перевода")
	if err := fs.Parse(args); err != nil {
		return 0, "", err
	}

	if *durationSec <= 0 {
		return 0, "", fmt.Errorf("длительность должна быть положительной: %d", *durationSec)
	}
	if !config.IsSupportedLanguage(*language) {
		return 0, "", fmt.Errorf("неподдерживаемый язык: %s (доступны: %v)", *language, config.SupportedLanguages())
	}

	return time.Duration(*durationSec) * time.Second, *language, nil
}

func run(duration time.Duration, language string) error {
	cfg := config.New()
	svcCfg := cfg.Service()

	recorder, err := audio.New()
	if err != nil {
		return err
	}
	defer recorder.Close()
	recorder.SetMaxDuration(duration)

	lifecycle := service.New(service.NewDockerRuntime(), service.Config{
		HostPort:      svcCfg.HostPort,
		Image:         svcCfg.Image,
		ContainerName: svcCfg.ContainerName,
		ReadyTimeout:  svcCfg.ReadyTimeout(),
		PollInterval:  svcCfg.PollInterval(),
	})

	// Поднимаем сервис параллельно с записью
	readyCh := make(chan error, 1)
	ctx, cancel := context.WithTimeout(context.Background(), svcCfg.ReadyTimeout()+svcCfg.RequestTimeout())
	defer cancel()
	go func() {
		_, err := lifecycle.EnsureReady(ctx)
		readyCh <- err
	}()

	log.Printf("Запись %v...", duration)
	if err := recorder.Start(); err != nil {
		return err
	}
	time.Sleep(duration)

	buf, err := recorder.Stop()
	if err != nil {
		return err
	}
	log.Printf("Записано %v", buf.Duration())

	if err := <-readyCh; err != nil {
		return err
	}

	wav := audio.EncodeWAV(buf.Samples, audio.SampleRate, audio.Channels)

	client := transcribe.New(svcCfg.RequestTimeout())
	result, err := client.Transcribe(ctx, lifecycle.Handle().BaseURL(), wav, "", language)
	if err != nil {
		return err
	}

	fmt.Printf("Распознано [%s]: %s\n", result.DetectedLanguage, result.SourceText)
	if result.TranslatedText != "" && result.TranslatedText != result.SourceText {
		fmt.Printf("Перевод [%s]: %s\n", language, result.TranslatedText)
	}
	return nil
}
