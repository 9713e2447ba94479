package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
	"weekendTasks/internal/config"
	"weekendTasks/internal/logger"
	"weekendTasks/internal/migrations"
	"weekendTasks/internal/models/task"
	repo "weekendTasks/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

const backend = "postgres"

const selectColumns = `SELECT
				id,
				event,
				day::text,
				start_time,
				COALESCE(description, ''),
				COALESCE(additional_links, ''),
				created_at
				FROM weekend_tasks`

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dbCfg config.DatabaseConfig) (*Storage, error) {
	poolCfg, err := pgxpool.ParseConfig(ConnString(dbCfg))
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	poolCfg.MaxConns = 10
	if dbCfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(dbCfg.MaxConnections)
	}
	poolCfg.MinConns = int32(dbCfg.MinConnections)
	poolCfg.MaxConnIdleTime = time.Minute * 5
	if dbCfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = dbCfg.IdleTimeout
	}
	if dbCfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = dbCfg.ConnectTimeout
	}

	// пул подключается лениво, ping делают Migrate и HealthCheck
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	logger.Info("Repository: Создан пул PostgreSQL", zap.String("host", poolCfg.ConnConfig.Host))
	return &Storage{pool: pool}, nil
}

// ConnString возвращает database.url или собирает URL из отдельных полей
func ConnString(dbCfg config.DatabaseConfig) string {
	if dbCfg.URL != "" {
		return dbCfg.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbCfg.User, dbCfg.Password),
		Host:     net.JoinHostPort(dbCfg.Host, strconv.Itoa(dbCfg.Port)),
		Path:     "/" + dbCfg.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с PostgreSQL", err)
		return repo.Unavailable("проверка соединения", err)
	}
	defer conn.Release()

	var one int
	if err := conn.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		logger.Error("Repository: Неудачная проверка SELECT 1", err)
		return repo.Unavailable("проверка соединения", err)
	}
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

// Migrate создаёт тип weekend_day и таблицу, если их нет. Повторный вызов ничего не меняет.
func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Попытка миграций", zap.String("backend", backend))

	// у golang-migrate своё *sql.DB, закрывается внутри migrations.Up
	db := stdlib.OpenDB(*s.pool.Config().ConnConfig.Copy())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Repository: Неудачная проверка ping перед миграциями", err)
		return repo.Unavailable("миграции", err)
	}

	if err := migrations.Up(ctx, db, migrations.Postgres); err != nil {
		logger.Error("Repository: Ошибка миграций", err)
		return repo.Unavailable("миграции", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с PostgreSQL", err)
		return repo.Unavailable("добавление задачи", err)
	}
	defer conn.Release()

	query := `INSERT INTO weekend_tasks
				(event, day, start_time, description, additional_links)
				VALUES ($1, $2::text::weekend_day, $3, $4, $5)
				RETURNING id, start_time, created_at`

	var startTime pgtype.Time
	err = conn.QueryRow(ctx, query,
		taskToCreate.Event,
		string(taskToCreate.Day),
		toPgTime(taskToCreate.StartTime),
		taskToCreate.Description,
		taskToCreate.AdditionalLinks,
	).Scan(&taskToCreate.ID, &startTime, &taskToCreate.CreatedAt)

	if err != nil {
		err = repo.Classify("добавление задачи", err, IsConstraintError)
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return err
	}

	taskToCreate.StartTime, err = fromPgTime(startTime)
	if err != nil {
		return repo.Unavailable("добавление задачи", err)
	}

	repo.WarnIfSlow(backend, "create", start)
	return nil
}

// GetAll сортирует по day: порядок значений ENUM совпадает с порядком дней
func (s *Storage) GetAll(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с PostgreSQL", err)
		return nil, repo.Unavailable("получение задач", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, selectColumns+`
				ORDER BY day, start_time, id`)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Unavailable("получение задач", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t := &task.Task{}
		var day string
		var startTime pgtype.Time

		err := rows.Scan(
			&t.ID,
			&t.Event,
			&day,
			&startTime,
			&t.Description,
			&t.AdditionalLinks,
			&t.CreatedAt,
		)
		if err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
			return nil, repo.Unavailable("получение задач", err)
		}

		t.Day = task.Day(day)
		if t.StartTime, err = fromPgTime(startTime); err != nil {
			return nil, repo.Unavailable("получение задач", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, repo.Unavailable("итерация по строкам", err)
	}

	repo.WarnIfSlow(backend, "get_all", start)
	return tasks, nil
}

func toPgTime(t task.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: t.SinceMidnight().Microseconds(), Valid: true}
}

func fromPgTime(t pgtype.Time) (task.TimeOfDay, error) {
	if !t.Valid {
		return task.TimeOfDay{}, fmt.Errorf("%w: NULL", task.ErrInvalidTimeOfDay)
	}
	return task.TimeOfDayFromDuration(time.Duration(t.Microseconds) * time.Microsecond)
}

// IsConstraintError: классы SQLSTATE 22 (data exception) и 23 (integrity constraint violation)
func IsConstraintError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return len(pgErr.Code) == 5 && (pgErr.Code[:2] == "22" || pgErr.Code[:2] == "23")
}
