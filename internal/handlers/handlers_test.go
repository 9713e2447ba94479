package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"weekendTasks/internal/handlers"
	"weekendTasks/internal/handlers/dto"
	"weekendTasks/internal/models/task"
	"weekendTasks/internal/repository"
	"weekendTasks/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskService - мок сервиса
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) HealthCheck(ctx context.Context) task.Health {
	args := m.Called(ctx)
	return args.Get(0).(task.Health)
}

func (m *MockTaskService) CreateTask(ctx context.Context, input service.CreateTaskInput) (*task.Task, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskService) GetAllTasks(ctx context.Context) ([]*task.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

var _ handlers.Service = (*MockTaskService)(nil)

// TestTaskHandler_HealthCheck тестирует HealthCheck
func TestTaskHandler_HealthCheck(t *testing.T) {
	tests := []struct {
		name           string
		health         task.Health
		expectedStatus int
	}{
		{name: "success - healthy", health: task.HealthHealthy, expectedStatus: http.StatusOK},
		{name: "error - unhealthy", health: task.HealthUnhealthy, expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			mockService.On("HealthCheck", mock.Anything).Return(tt.health)

			handler := handlers.NewTaskHandler(mockService)

			req := httptest.NewRequest("GET", "/health", nil)
			w := httptest.NewRecorder()

			handler.HealthCheck(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, `{"status":"`+string(tt.health)+`"}`, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}

// TestTaskHandler_GetTasks тестирует получение списка задач
func TestTaskHandler_GetTasks(t *testing.T) {
	createdAt := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

	t.Run("success - list tasks", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("GetAllTasks", mock.Anything).Return([]*task.Task{
			{ID: 3, Event: "Dinner", Day: task.DayFriday, StartTime: task.MustTimeOfDay("19:00"), CreatedAt: createdAt},
			{ID: 1, Event: "Hike", Day: task.DaySunday, StartTime: task.MustTimeOfDay("07:30"), Description: "Trail", AdditionalLinks: "https://example.com", CreatedAt: createdAt},
		}, nil)

		handler := handlers.NewTaskHandler(mockService)
		req := httptest.NewRequest("GET", "/api/tasks", nil)
		w := httptest.NewRecorder()

		handler.GetTasks(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response struct {
			Tasks []dto.TaskResponse `json:"tasks"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response.Tasks, 2)
		assert.Equal(t, int64(3), response.Tasks[0].ID)
		assert.Equal(t, "Friday", response.Tasks[0].Day)
		assert.Equal(t, "19:00:00", response.Tasks[0].StartTime)
		assert.Equal(t, "Trail", response.Tasks[1].Description)
		assert.True(t, createdAt.Equal(response.Tasks[1].CreatedAt))

		mockService.AssertExpectations(t)
	})

	t.Run("success - empty list", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("GetAllTasks", mock.Anything).Return([]*task.Task{}, nil)

		handler := handlers.NewTaskHandler(mockService)
		w := httptest.NewRecorder()
		handler.GetTasks(w, httptest.NewRequest("GET", "/api/tasks", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"tasks":[]}`, w.Body.String())
	})

	t.Run("error - storage unavailable", func(t *testing.T) {
		mockService := new(MockTaskService)
		mockService.On("GetAllTasks", mock.Anything).
			Return(nil, &service.BusinessError{Code: service.CodeStorageUnavailable, Err: repository.ErrStorageUnavailable})

		handler := handlers.NewTaskHandler(mockService)
		w := httptest.NewRecorder()
		handler.GetTasks(w, httptest.NewRequest("GET", "/api/tasks", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var response map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, []any{}, response["tasks"])
		assert.NotEmpty(t, response["error"])
	})
}

// TestTaskHandler_PostTask тестирует создание задачи
func TestTaskHandler_PostTask(t *testing.T) {
	createdAt := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    string
		contentType    string
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "success - create task",
			requestBody: `{
				"event": "Movie night",
				"day": "Saturday",
				"start_time": "20:00",
				"description": "Popcorn"
			}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, service.CreateTaskInput{
					Event:       "Movie night",
					Day:         "Saturday",
					StartTime:   "20:00",
					Description: "Popcorn",
				}).Return(&task.Task{
					ID:          5,
					Event:       "Movie night",
					Day:         task.DaySaturday,
					StartTime:   task.MustTimeOfDay("20:00"),
					Description: "Popcorn",
					CreatedAt:   createdAt,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:        "success - content type with charset",
			requestBody: `{"event": "X", "day": "Friday", "start_time": "10:00"}`,
			contentType: "application/json; charset=utf-8",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(&task.Task{
					ID: 1, Event: "X", Day: task.DayFriday, StartTime: task.MustTimeOfDay("10:00"), CreatedAt: createdAt,
				}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "error - invalid content type",
			requestBody:    `{}`,
			contentType:    "text/plain",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:           "error - invalid JSON",
			requestBody:    `{invalid json}`,
			contentType:    "application/json",
			setupMock:      func(m *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "error - missing fields",
			requestBody: `{"description": "no event"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).
					Return(nil, service.NewMissingFieldsError([]string{"event", "day", "start_time"}))
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  service.CodeValidation,
		},
		{
			name:        "error - invalid day",
			requestBody: `{"event": "X", "day": "Monday", "start_time": "10:00"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).
					Return(nil, &service.BusinessError{Code: service.CodeConstraintViolation, Err: repository.ErrConstraintViolation})
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  service.CodeConstraintViolation,
		},
		{
			name:        "error - storage unavailable",
			requestBody: `{"event": "X", "day": "Friday", "start_time": "10:00"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).
					Return(nil, &service.BusinessError{Code: service.CodeStorageUnavailable, Err: repository.ErrStorageUnavailable})
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  service.CodeStorageUnavailable,
		},
		{
			name:        "error - unexpected service error",
			requestBody: `{"event": "X", "day": "Friday", "start_time": "10:00"}`,
			contentType: "application/json",
			setupMock: func(m *MockTaskService) {
				m.On("CreateTask", mock.Anything, mock.Anything).Return(nil, errors.New("service error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockTaskService)
			tt.setupMock(mockService)

			handler := handlers.NewTaskHandler(mockService)

			req := httptest.NewRequest("POST", "/api/tasks", bytes.NewBufferString(tt.requestBody))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			handler.PostTask(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusCreated {
				var response struct {
					Task dto.TaskResponse `json:"task"`
				}
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.NotZero(t, response.Task.ID)
				assert.NotEmpty(t, response.Task.Event)
			}

			if tt.expectedError != "" {
				var response map[string]any
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, tt.expectedError, response["error"])
			}

			mockService.AssertExpectations(t)
		})
	}
}
