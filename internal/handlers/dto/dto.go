package dto

import (
	"time"
	"weekendTasks/internal/models/task"
	"weekendTasks/internal/service"
)

type CreateTaskRequest struct {
	Event           string `json:"event"`
	Day             string `json:"day"`
	StartTime       string `json:"start_time"`
	Description     string `json:"description"`
	AdditionalLinks string `json:"additional_links"`
}

func (r CreateTaskRequest) ToInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Event:           r.Event,
		Day:             r.Day,
		StartTime:       r.StartTime,
		Description:     r.Description,
		AdditionalLinks: r.AdditionalLinks,
	}
}

type TaskResponse struct {
	ID              int64     `json:"id"`
	Event           string    `json:"event"`
	Day             string    `json:"day"`
	StartTime       string    `json:"start_time"`
	Description     string    `json:"description"`
	AdditionalLinks string    `json:"additional_links"`
	CreatedAt       time.Time `json:"created_at"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		Event:           t.Event,
		Day:             t.Day.String(),
		StartTime:       t.StartTime.String(),
		Description:     t.Description,
		AdditionalLinks: t.AdditionalLinks,
		CreatedAt:       t.CreatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}
