package service

import (
	"context"
	"weekendTasks/internal/models/task"
)

type TaskRepository interface {
	Migrate(context.Context) error
	Create(context.Context, *task.Task) error
	GetAll(context.Context) ([]*task.Task, error)
	HealthCheck(context.Context) error
	Close()
}
