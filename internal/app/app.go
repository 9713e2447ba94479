package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"weekendTasks/internal/config"
	"weekendTasks/internal/handlers"
	"weekendTasks/internal/logger"
	"weekendTasks/internal/middleware"
	"weekendTasks/internal/repository/task/inmemory"
	"weekendTasks/internal/repository/task/mysql"
	"weekendTasks/internal/repository/task/postgres"
	"weekendTasks/internal/repository/task/sqlite"
	"weekendTasks/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository // интерфейс!
	service    *service.TaskService
	shutdowns  []func() // функции для graceful shutdown
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	repo, err := newRepository(ctx, a.config)
	if err != nil {
		return fmt.Errorf("создание хранилища: %w", err)
	}
	a.repository = repo
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Закрытие хранилища...", zap.String("repo_type", a.config.Repository.Type))
		repo.Close()
	})

	a.service = service.NewTaskService(repo, a.config.Repository.Type,
		service.WithQueryTimeout(a.config.Database.QueryTimeout))

	// сервер поднимается и без схемы: /health покажет unhealthy, список вернёт 503
	if err := a.service.Init(ctx); err != nil {
		logger.Error("Хранилище не инициализировано, сервер запускается без него", err,
			zap.String("repo_type", a.config.Repository.Type))
	}

	a.router = a.newRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	return nil
}

func newRepository(ctx context.Context, cfg *config.Config) (service.TaskRepository, error) {
	switch cfg.Repository.Type {
	case config.RepoMySQL:
		return mysql.New(cfg.Database)
	case config.RepoPostgres:
		return postgres.New(ctx, cfg.Database)
	case config.RepoSQLite:
		return sqlite.New(cfg.Database)
	case config.RepoInMemory:
		return inmemory.NewTaskStorage(), nil
	default:
		return nil, fmt.Errorf("неизвестный тип репозитория %q", cfg.Repository.Type)
	}
}

func (a *App) newRouter() *chi.Mux {
	taskHandler := handlers.NewTaskHandler(a.service)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", taskHandler.GetTasks)  // GET /api/tasks
		r.Post("/", taskHandler.PostTask) // POST /api/tasks
	})

	r.Get("/health", taskHandler.HealthCheck)

	return r
}

// Handler корневой обработчик, доступен после Init
func (a *App) Handler() http.Handler {
	return a.router
}

// Start занимает порт сразу, чтобы ошибка адреса вернулась вызывающему
func (a *App) Start() error {
	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("не удалось занять адрес %s: %w", a.server.Addr, err)
	}

	logger.Info("Сервер запущен",
		zap.String("addr", listener.Addr().String()),
		zap.String("repo_type", a.config.Repository.Type))

	go func() {
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ошибка HTTP сервера", err)
		}
	}()
	return nil
}

// Stop останавливает приём запросов и выполняет shutdown-функции в обратном порядке
func (a *App) Stop(ctx context.Context) error {
	var err error
	if a.server != nil {
		logger.Info("Остановка HTTP сервера...")
		if shutdownErr := a.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("остановка сервера: %w", shutdownErr)
		}
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil

	return err
}
