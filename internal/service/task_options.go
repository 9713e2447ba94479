package service

import "time"

const (
	DefaultQueryTimeout   = 5 * time.Second
	DefaultMigrateTimeout = 30 * time.Second
)

// ServiceOption настраивает TaskService при создании
type ServiceOption func(*TaskService)

// WithQueryTimeout ограничивает каждый вызов хранилища, 0 отключает ограничение
func WithQueryTimeout(timeout time.Duration) ServiceOption {
	return func(s *TaskService) {
		s.queryTimeout = timeout
	}
}

func WithMigrateTimeout(timeout time.Duration) ServiceOption {
	return func(s *TaskService) {
		s.migrateTimeout = timeout
	}
}
