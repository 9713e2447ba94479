// Package storetest содержит общий набор тестов для всех реализаций хранилища задач.
// Реализация встраивает Suite, заполняет Store и Reset в SetupSuite и запускает suite.Run.
package storetest

import (
	"context"
	"strings"
	"sync"
	"time"
	"weekendTasks/internal/models/task"
	"weekendTasks/internal/repository"

	"github.com/stretchr/testify/suite"
)

type Store interface {
	Migrate(ctx context.Context) error
	Create(ctx context.Context, t *task.Task) error
	GetAll(ctx context.Context) ([]*task.Task, error)
	HealthCheck(ctx context.Context) error
}

type Suite struct {
	suite.Suite
	Store Store
	// Reset очищает таблицу перед каждым тестом
	Reset func()
	// CreatedAtPrecision точность хранения created_at, 0 - без округления
	CreatedAtPrecision time.Duration
}

func (s *Suite) SetupTest() {
	if s.Reset != nil {
		s.Reset()
	}
}

func (s *Suite) ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	s.T().Cleanup(cancel)
	return ctx
}

// callTime момент вызова, округлённый вниз до точности хранилища
func (s *Suite) callTime() time.Time {
	now := time.Now()
	if s.CreatedAtPrecision > 0 {
		return now.Truncate(s.CreatedAtPrecision)
	}
	return now
}

func (s *Suite) create(day task.Day, start string) *task.Task {
	t := &task.Task{
		Event:     string(day) + " " + start,
		Day:       day,
		StartTime: task.MustTimeOfDay(start),
	}
	s.Require().NoError(s.Store.Create(s.ctx(), t))
	return t
}

// TestCreate_RoundTrip созданная задача возвращается списком без изменений
func (s *Suite) TestCreate_RoundTrip() {
	before := s.callTime()

	created := &task.Task{
		Event:           "Movie night",
		Day:             task.DaySaturday,
		StartTime:       task.MustTimeOfDay("20:00"),
		Description:     "",
		AdditionalLinks: "",
	}
	s.Require().NoError(s.Store.Create(s.ctx(), created))

	s.NotZero(created.ID)
	s.False(created.CreatedAt.Before(before), "created_at %s earlier than %s", created.CreatedAt, before)
	s.Equal("20:00:00", created.StartTime.String())

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)

	got := tasks[0]
	s.Equal(created.ID, got.ID)
	s.Equal("Movie night", got.Event)
	s.Equal(task.DaySaturday, got.Day)
	s.Equal(task.MustTimeOfDay("20:00:00"), got.StartTime)
	s.Equal("", got.Description)
	s.Equal("", got.AdditionalLinks)
	s.WithinDuration(created.CreatedAt, got.CreatedAt, time.Millisecond)
}

// TestCreate_CreatedAtNotBeforeCall created_at не раньше момента вызова
func (s *Suite) TestCreate_CreatedAtNotBeforeCall() {
	for i := 0; i < 50; i++ {
		before := s.callTime()
		created := s.create(task.DayFriday, "10:00")
		s.Require().False(created.CreatedAt.Before(before),
			"created_at %s earlier than call %s", created.CreatedAt.Format(time.RFC3339Nano), before.Format(time.RFC3339Nano))
	}

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	for _, t := range tasks {
		s.False(t.CreatedAt.IsZero())
	}
}

func (s *Suite) TestCreate_OptionalFields() {
	created := &task.Task{
		Event:           "Hike",
		Day:             task.DaySunday,
		StartTime:       task.MustTimeOfDay("07:30:15"),
		Description:     "Bring water",
		AdditionalLinks: "https://example.com/trail\nhttps://example.com/weather",
	}
	s.Require().NoError(s.Store.Create(s.ctx(), created))

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("Bring water", tasks[0].Description)
	s.Equal(created.AdditionalLinks, tasks[0].AdditionalLinks)
	s.Equal("07:30:15", tasks[0].StartTime.String())
}

func (s *Suite) TestGetAll_Empty() {
	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.NotNil(tasks)
	s.Empty(tasks)
}

// TestGetAll_Ordering пятница, суббота, воскресенье, внутри дня по времени
func (s *Suite) TestGetAll_Ordering() {
	sunday := s.create(task.DaySunday, "09:00")
	fridayLate := s.create(task.DayFriday, "18:00")
	saturday := s.create(task.DaySaturday, "10:00")
	fridayEarly := s.create(task.DayFriday, "08:00")

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(tasks, 4)

	s.Equal([]int64{fridayEarly.ID, fridayLate.ID, saturday.ID, sunday.ID}, ids(tasks))
	s.True(task.IsSorted(tasks))
}

func (s *Suite) TestGetAll_OrderingManyTasks() {
	times := []string{"23:00", "00:30", "12:00", "09:15:30", "09:15:00", "17:45"}
	for i := 0; i < 12; i++ {
		day := task.Days[(i*7)%len(task.Days)]
		s.create(day, times[i%len(times)])
	}

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(tasks, 12)
	s.True(task.IsSorted(tasks), "tasks out of order: %v", describe(tasks))
}

// TestCreate_InvalidDay день вне перечисления отклоняется хранилищем
func (s *Suite) TestCreate_InvalidDay() {
	for _, day := range []task.Day{"Monday", "friday", "Fri"} {
		err := s.Store.Create(s.ctx(), &task.Task{
			Event:     "X",
			Day:       day,
			StartTime: task.MustTimeOfDay("10:00"),
		})
		s.Require().Error(err, "day %q accepted", day)
		s.ErrorIs(err, repository.ErrConstraintViolation, "day %q", day)
		s.NotErrorIs(err, repository.ErrStorageUnavailable, "day %q", day)
	}

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *Suite) TestCreate_EmptyEvent() {
	err := s.Store.Create(s.ctx(), &task.Task{
		Event:     "",
		Day:       task.DayFriday,
		StartTime: task.MustTimeOfDay("10:00"),
	})
	s.ErrorIs(err, repository.ErrConstraintViolation)
}

func (s *Suite) TestCreate_FieldTooLong() {
	tests := []struct {
		name string
		t    *task.Task
	}{
		{
			name: "event",
			t: &task.Task{
				Event:     strings.Repeat("e", task.MaxEventLength+1),
				Day:       task.DayFriday,
				StartTime: task.MustTimeOfDay("10:00"),
			},
		},
		{
			name: "description",
			t: &task.Task{
				Event:       "Long description",
				Day:         task.DayFriday,
				StartTime:   task.MustTimeOfDay("10:00"),
				Description: strings.Repeat("d", task.MaxDescriptionLength+1),
			},
		},
	}

	for _, tt := range tests {
		err := s.Store.Create(s.ctx(), tt.t)
		s.ErrorIs(err, repository.ErrConstraintViolation, tt.name)
	}

	// ровно на границе допустимо
	s.NoError(s.Store.Create(s.ctx(), &task.Task{
		Event:       strings.Repeat("e", task.MaxEventLength),
		Day:         task.DayFriday,
		StartTime:   task.MustTimeOfDay("10:00"),
		Description: strings.Repeat("d", task.MaxDescriptionLength),
	}))
}

func (s *Suite) TestCreate_IDsUniqueAndIncreasing() {
	first := s.create(task.DayFriday, "10:00")
	second := s.create(task.DayFriday, "10:00")
	third := s.create(task.DaySunday, "08:00")

	s.Less(first.ID, second.ID)
	s.Less(second.ID, third.ID)
}

func (s *Suite) TestCreate_Concurrent() {
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Store.Create(context.Background(), &task.Task{
				Event:     "parallel",
				Day:       task.Days[i%len(task.Days)],
				StartTime: task.TimeOfDay{Hour: i},
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.Len(tasks, workers)

	seen := map[int64]bool{}
	for _, t := range tasks {
		s.False(seen[t.ID], "duplicate id %d", t.ID)
		seen[t.ID] = true
	}
}

// TestMigrate_Idempotent повторная инициализация не трогает данные
func (s *Suite) TestMigrate_Idempotent() {
	s.Require().NoError(s.Store.Migrate(s.ctx()))
	created := s.create(task.DayFriday, "19:00")

	s.Require().NoError(s.Store.Migrate(s.ctx()))
	s.Require().NoError(s.Store.Migrate(s.ctx()))

	tasks, err := s.Store.GetAll(s.ctx())
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal(created.ID, tasks[0].ID)
}

func (s *Suite) TestHealthCheck_Healthy() {
	s.NoError(s.Store.HealthCheck(s.ctx()))
}

func ids(tasks []*task.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func describe(tasks []*task.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, string(t.Day)+" "+t.StartTime.String())
	}
	return out
}
