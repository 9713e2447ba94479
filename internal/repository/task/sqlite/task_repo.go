package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"
	"weekendTasks/internal/config"
	"weekendTasks/internal/logger"
	"weekendTasks/internal/migrations"
	"weekendTasks/internal/models/task"
	repo "weekendTasks/internal/repository"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const backend = "sqlite"

const selectColumns = `SELECT
				id,
				event,
				day,
				start_time,
				COALESCE(description, ''),
				COALESCE(additional_links, ''),
				created_at
				FROM weekend_tasks`

type Storage struct {
	db  *sql.DB
	dsn string
}

func New(dbCfg config.DatabaseConfig) (*Storage, error) {
	dsn := DSN(dbCfg)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		logger.Error("Repository: Ошибка открытия SQLite", err)
		return nil, repo.Unavailable("открытие базы", err)
	}
	if dbCfg.MaxConnections > 0 {
		db.SetMaxOpenConns(dbCfg.MaxConnections)
	}
	if dbCfg.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(dbCfg.IdleTimeout)
	}

	logger.Info("Repository: Открыта база SQLite", zap.String("dsn", dsn))
	return &Storage{db: db, dsn: dsn}, nil
}

func DSN(dbCfg config.DatabaseConfig) string {
	if dbCfg.URL != "" {
		return dbCfg.URL
	}
	return "file:" + dbCfg.Path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		logger.Warn("Repository: Ошибка закрытия SQLite", zap.Error(err))
		return
	}
	logger.Info("Repository: Закрытие базы SQLite")
}

// Migrate создаёт таблицу, если её нет. Повторный вызов ничего не меняет.
func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Попытка миграций", zap.String("backend", backend))

	db, err := sql.Open("sqlite3", s.dsn)
	if err != nil {
		return repo.Unavailable("миграции", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Repository: Не удалось открыть файл базы", err)
		return repo.Unavailable("миграции", err)
	}

	if err := migrations.Up(ctx, db, migrations.SQLite); err != nil {
		logger.Error("Repository: Ошибка миграций", err)
		return repo.Unavailable("миграции", err)
	}
	return nil
}

// Down удаляет схему, нужен для тестов и ручного отката
func (s *Storage) Down(ctx context.Context) error {
	db, err := sql.Open("sqlite3", s.dsn)
	if err != nil {
		return repo.Unavailable("откат миграций", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return repo.Unavailable("откат миграций", err)
	}
	if err := migrations.Down(ctx, db, migrations.SQLite); err != nil {
		return repo.Unavailable("откат миграций", err)
	}
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с SQLite", err)
		return repo.Unavailable("проверка соединения", err)
	}
	defer conn.Close()

	var one int
	if err := conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		logger.Error("Repository: Неудачная проверка SELECT 1", err)
		return repo.Unavailable("проверка соединения", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с SQLite", err)
		return repo.Unavailable("добавление задачи", err)
	}
	defer conn.Close()

	query := `INSERT INTO weekend_tasks
				(event, day, start_time, description, additional_links)
				VALUES (?, ?, ?, ?, ?)`

	res, err := conn.ExecContext(ctx, query,
		taskToCreate.Event,
		string(taskToCreate.Day),
		taskToCreate.StartTime,
		taskToCreate.Description,
		taskToCreate.AdditionalLinks,
	)
	if err != nil {
		err = repo.Classify("добавление задачи", err, IsConstraintError)
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return repo.Unavailable("добавление задачи", err)
	}

	row := conn.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	if err := scanTask(row, taskToCreate); err != nil {
		logger.Error("Repository: Не удалось прочитать созданную задачу", err, zap.Int64("task_id", id))
		return repo.Unavailable("добавление задачи", err)
	}

	repo.WarnIfSlow(backend, "create", start)
	return nil
}

func (s *Storage) GetAll(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с SQLite", err)
		return nil, repo.Unavailable("получение задач", err)
	}
	defer conn.Close()

	query := selectColumns + `
				ORDER BY CASE day
					WHEN 'Friday' THEN 0
					WHEN 'Saturday' THEN 1
					WHEN 'Sunday' THEN 2
				END, start_time, id`

	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, repo.Unavailable("получение задач", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t := &task.Task{}
		if err := scanTask(rows, t); err != nil {
			logger.Error("Repository: Ошибка сканирования задачи", err)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, t *task.Task) error {
	var day string
	err := row.Scan(
		&t.ID,
		&t.Event,
		&day,
		&t.StartTime,
		&t.Description,
		&t.AdditionalLinks,
		&t.CreatedAt,
	)
	if err != nil {
		return err
	}
	t.Day = task.Day(day)
	return nil
}

func IsConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint
}
