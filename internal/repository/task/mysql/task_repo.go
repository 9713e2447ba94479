package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
	"weekendTasks/internal/config"
	"weekendTasks/internal/logger"
	"weekendTasks/internal/migrations"
	"weekendTasks/internal/models/task"
	repo "weekendTasks/internal/repository"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

const backend = "mysql"

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
	cfg *mysql.Config
}

// New не открывает соединение: sql.DB подключается лениво, поэтому хранилище можно
// создать и при недоступной базе, а проблемы увидит Migrate или HealthCheck.
func New(dbCfg config.DatabaseConfig) (*Storage, error) {
	cfg, err := ConnConfig(dbCfg)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		logger.Error("Repository: Ошибка создания коннектора", err)
		return nil, fmt.Errorf("создание коннектора: %w", err)
	}

	db := sql.OpenDB(connector)
	if dbCfg.MaxConnections > 0 {
		db.SetMaxOpenConns(dbCfg.MaxConnections)
	}
	if dbCfg.MinConnections > 0 {
		db.SetMaxIdleConns(dbCfg.MinConnections)
	}
	if dbCfg.IdleTimeout > 0 {
		db.SetConnMaxIdleTime(dbCfg.IdleTimeout)
	}

	logger.Info("Repository: Создан пул MySQL", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBName))
	return &Storage{db: db, cfg: cfg}, nil
}

// ConnConfig собирает конфиг драйвера. Время разбирается в time.Time,
// а строгий sql_mode гарантирует ошибку вместо тихого обрезания значений ENUM.
func ConnConfig(dbCfg config.DatabaseConfig) (*mysql.Config, error) {
	var cfg *mysql.Config
	if dbCfg.URL != "" {
		parsed, err := mysql.ParseDSN(dbCfg.URL)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	} else {
		cfg = mysql.NewConfig()
		cfg.User = dbCfg.User
		cfg.Passwd = dbCfg.Password
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(dbCfg.Host, strconv.Itoa(dbCfg.Port))
		cfg.DBName = dbCfg.Name
	}

	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if dbCfg.ConnectTimeout > 0 {
		cfg.Timeout = dbCfg.ConnectTimeout
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["sql_mode"] = "'STRICT_ALL_TABLES,NO_ZERO_DATE,NO_ZERO_IN_DATE,ERROR_FOR_DIVISION_BY_ZERO'"
	cfg.Params["time_zone"] = "'+00:00'"
	return cfg, nil
}

func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		logger.Warn("Repository: Ошибка закрытия пула MySQL", zap.Error(err))
		return
	}
	logger.Info("Repository: Закрытие всех соединений MySQL")
}

// Migrate создаёт схему, если её нет. Повторный вызов ничего не меняет.
func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: Попытка миграций", zap.String("backend", backend))

	connector, err := mysql.NewConnector(s.cfg.Clone())
	if err != nil {
		return repo.Unavailable("миграции", err)
	}
	db := sql.OpenDB(connector)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		logger.Error("Repository: Неудачная проверка ping перед миграциями", err)
		return repo.Unavailable("миграции", err)
	}

	if err := migrations.Up(ctx, db, migrations.MySQL); err != nil {
		logger.Error("Repository: Ошибка миграций", err)
		return repo.Unavailable("миграции", err)
	}
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с MySQL", err)
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
		logger.Error("Repository: Нет соединения с MySQL", err)
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
		logger.Error("Repository: Не удалось получить id задачи", err)
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

// GetAll возвращает задачи в порядке пятница, суббота, воскресенье, затем по времени начала
func (s *Storage) GetAll(ctx context.Context) ([]*task.Task, error) {
	start := time.Now()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		logger.Error("Repository: Нет соединения с MySQL", err)
		return nil, repo.Unavailable("получение задач", err)
	}
	defer conn.Close()

	query := selectColumns + `
				ORDER BY FIELD(day, 'Friday', 'Saturday', 'Sunday'), start_time, id`

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

// IsConstraintError отличает нарушение ограничений схемы от проблем с соединением
func IsConstraintError(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	switch myErr.Number {
	case 1048, // ER_BAD_NULL_ERROR
		1265, // WARN_DATA_TRUNCATED, значение вне ENUM
		1292, // ER_TRUNCATED_WRONG_VALUE
		1364, // ER_NO_DEFAULT_FOR_FIELD
		1366, // ER_TRUNCATED_WRONG_VALUE_FOR_FIELD
		1406, // ER_DATA_TOO_LONG
		3819: // ER_CHECK_CONSTRAINT_VIOLATED
		return true
	}
	return false
}
