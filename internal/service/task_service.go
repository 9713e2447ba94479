package service

import (
	"context"
	"strings"
	"time"
	"weekendTasks/internal/logger"
	"weekendTasks/internal/models/task"

	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	repo           TaskRepository
	RepoType       string
	queryTimeout   time.Duration
	migrateTimeout time.Duration
}

// CreateTaskInput поля запроса в том виде, как их прислал клиент
type CreateTaskInput struct {
	Event           string
	Day             string
	StartTime       string
	Description     string
	AdditionalLinks string
}

func NewTaskService(repo TaskRepository, repoType string, opts ...ServiceOption) *TaskService {
	s := &TaskService{
		repo:           repo,
		RepoType:       repoType,
		queryTimeout:   DefaultQueryTimeout,
		migrateTimeout: DefaultMigrateTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// Init создаёт схему хранилища, повторный вызов безопасен
func (s *TaskService) Init(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx, s.migrateTimeout)
	defer cancel()

	start := time.Now()
	if err := s.repo.Migrate(ctx); err != nil {
		logger.Error("Service: Ошибка инициализации хранилища", err,
			zap.String("repo_type", s.RepoType))
		return fromRepositoryError("initialize", err)
	}

	logger.Info("Service: Хранилище инициализировано",
		zap.String("repo_type", s.RepoType),
		zap.Duration("ms", time.Since(start)))
	return nil
}

func (s *TaskService) GetAllTasks(ctx context.Context) ([]*task.Task, error) {
	ctx, cancel := s.withTimeout(ctx, s.queryTimeout)
	defer cancel()

	tasks, err := s.repo.GetAll(ctx)
	if err != nil {
		logger.Error("Service: Ошибка получения задач", err,
			zap.String("repo_type", s.RepoType))
		return nil, fromRepositoryError("get_all_tasks", err)
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}

	logger.Debug("Service: Задачи получены", zap.Int("count", len(tasks)))
	return tasks, nil
}

func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*task.Task, error) {
	event := strings.TrimSpace(input.Event)

	var missing []string
	if event == "" {
		missing = append(missing, "event")
	}
	if strings.TrimSpace(input.Day) == "" {
		missing = append(missing, "day")
	}
	if strings.TrimSpace(input.StartTime) == "" {
		missing = append(missing, "start_time")
	}
	if len(missing) > 0 {
		logger.Info("Service: Не заполнены обязательные поля", zap.Strings("fields", missing))
		return nil, NewMissingFieldsError(missing)
	}

	startTime, err := task.ParseTimeOfDay(input.StartTime)
	if err != nil {
		logger.Info("Service: Неверное время начала",
			zap.String("start_time", input.StartTime))
		return nil, NewValidationError("start_time", "ожидается формат HH:MM или HH:MM:SS")
	}

	// день не проверяем здесь: допустимые значения задаёт схема хранилища
	newTask := &task.Task{
		Event:           event,
		Day:             task.Day(input.Day),
		StartTime:       startTime,
		Description:     input.Description,
		AdditionalLinks: input.AdditionalLinks,
	}

	ctx, cancel := s.withTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.Create(ctx, newTask); err != nil {
		logger.Warn("Service: Задача не создана",
			zap.Error(err),
			zap.String("day", input.Day),
			zap.String("repo_type", s.RepoType))
		return nil, fromRepositoryError("create_task", err)
	}

	logger.Info("Service: Задача создана",
		zap.Int64("task_id", newTask.ID),
		zap.String("day", newTask.Day.String()),
		zap.String("start_time", newTask.StartTime.String()))
	return newTask, nil
}

func (s *TaskService) HealthCheck(ctx context.Context) task.Health {
	ctx, cancel := s.withTimeout(ctx, s.queryTimeout)
	defer cancel()

	if err := s.repo.HealthCheck(ctx); err != nil {
		logger.Warn("Service: Хранилище не отвечает",
			zap.Error(err),
			zap.String("repo_type", s.RepoType))
		return task.HealthUnhealthy
	}
	return task.HealthHealthy
}

func (s *TaskService) Close() {
	s.repo.Close()
}
