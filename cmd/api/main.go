package main

import (
	"context"
	"fmt"
	"os"
	"weekendTasks/internal/app"
	"weekendTasks/internal/config"
	"weekendTasks/internal/logger"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.yml", "путь к файлу конфигурации")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	application := app.New(cfg)
	if err := application.Init(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ошибка инициализации: %v\n", err)
		os.Exit(1)
	}

	if err := application.Start(); err != nil {
		logger.Error("Сервер не запущен", err)
		application.Stop(ctx)
		os.Exit(1)
	}

	wait := gfshutdown.GracefulShutdown(
		ctx,
		cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"weekend-tasks": func(ctx context.Context) error {
				logger.Info("Получен сигнал завершения")
				return application.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	os.Exit(exitCode)
}
