package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
	"weekendTasks/internal/logger"
	"weekendTasks/internal/models/task"
	repo "weekendTasks/internal/repository"
)

var (
	errInvalidDay   = errors.New("день должен быть Friday, Saturday или Sunday")
	errEmptyEvent   = errors.New("event не может быть пустым")
	errEventTooLong = fmt.Errorf("event длиннее %d символов", task.MaxEventLength)
	errDescTooLong  = fmt.Errorf("description длиннее %d символов", task.MaxDescriptionLength)
)

// TaskStorage повторяет ограничения схемы weekend_tasks в памяти процесса
type TaskStorage struct {
	tasks  []*task.Task
	mtx    *sync.RWMutex
	nextID int64
	now    func() time.Time
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		tasks:  []*task.Task{},
		mtx:    &sync.RWMutex{},
		nextID: 1,
		now:    time.Now,
	}
}

func (s *TaskStorage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Хранилище в памяти не требует миграций")
	return nil
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return repo.Unavailable("проверка соединения", err)
	}
	return nil
}

func (s *TaskStorage) Close() {}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	if err := ctx.Err(); err != nil {
		return repo.Unavailable("добавление задачи", err)
	}
	if err := checkConstraints(taskToCreate); err != nil {
		return repo.Constraint("добавление задачи", err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	taskToCreate.ID = s.nextID
	taskToCreate.CreatedAt = s.now()
	s.nextID++

	stored := *taskToCreate
	s.tasks = append(s.tasks, &stored)
	return nil
}

func (s *TaskStorage) GetAll(ctx context.Context) ([]*task.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, repo.Unavailable("получение задач", err)
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	// копии, чтобы вызывающий не мог изменить хранилище
	tasks := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		copied := *t
		tasks = append(tasks, &copied)
	}
	task.Sort(tasks)
	return tasks, nil
}

func checkConstraints(t *task.Task) error {
	if !t.Day.Valid() {
		return fmt.Errorf("%w: %q", errInvalidDay, t.Day)
	}
	if t.Event == "" {
		return errEmptyEvent
	}
	if utf8.RuneCountInString(t.Event) > task.MaxEventLength {
		return errEventTooLong
	}
	if utf8.RuneCountInString(t.Description) > task.MaxDescriptionLength {
		return errDescTooLong
	}
	return nil
}
