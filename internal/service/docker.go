package service

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// containerPort - порт uvicorn внутри контейнера.
const containerPort = 8000

// DockerRuntime управляет контейнером через docker CLI.
type DockerRuntime struct {
	command string
}

// NewDockerRuntime создаёт runtime поверх docker CLI.
func NewDockerRuntime() *DockerRuntime {
	return &DockerRuntime{command: "docker"}
}

// IsRunning проверяет состояние контейнера через docker inspect.
func (d *DockerRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, d.command, "inspect", "-f", "{{.State.Running}}", name)
	out, err := cmd.Output()
	if err != nil {
		// Контейнер не существует - это не ошибка
		return false, nil
	}
	return strings.TrimSpace(string(out)) == "true", nil
}

// Start запускает контейнер, убрав предыдущий с тем же именем.
func (d *DockerRuntime) Start(ctx context.Context, name, image string, hostPort int) error {
	// Убираем остановленный контейнер если остался
	rm := exec.CommandContext(ctx, d.command, "rm", "-f", name)
	_ = rm.Run()

	run := exec.CommandContext(ctx, d.command, "run", "-d",
		"--name", name,
		"--gpus", "all",
		"-p", strconv.Itoa(hostPort)+":"+strconv.Itoa(containerPort),
		"--rm",
		image,
	)
	var stderr bytes.Buffer
	run.Stderr = &stderr

	if err := run.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("docker run: %w: %s", err, detail)
		}
		return fmt.Errorf("docker run: %w", err)
	}
	return nil
}

// Stop останавливает контейнер.
func (d *DockerRuntime) Stop(ctx context.Context, name string) error {
	cmd := exec.CommandContext(ctx, d.command, "stop", name)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("docker stop: %w: %s", err, detail)
		}
		return fmt.Errorf("docker stop: %w", err)
	}
	return nil
}
