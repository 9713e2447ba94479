package handlers

import (
	"context"
	"weekendTasks/internal/models/task"
	"weekendTasks/internal/service"
)

type Service interface {
	GetAllTasks(context.Context) ([]*task.Task, error)
	CreateTask(context.Context, service.CreateTaskInput) (*task.Task, error)
	HealthCheck(context.Context) task.Health
}
