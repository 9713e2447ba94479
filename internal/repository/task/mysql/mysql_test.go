package mysql_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"
	"weekendTasks/internal/config"
	"weekendTasks/internal/models/task"
	"weekendTasks/internal/repository"
	"weekendTasks/internal/repository/task/mysql"
	"weekendTasks/internal/repository/task/storetest"

	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// MySQLTestSuite интеграционные тесты с MySQL в контейнере
type MySQLTestSuite struct {
	storetest.Suite
	container testcontainers.Container
	storage   *mysql.Storage
	raw       *sql.DB
	dbCfg     config.DatabaseConfig
}

func (s *MySQLTestSuite) SetupSuite() {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "test",
			"MYSQL_DATABASE":      "weekend_tasks",
		},
		// временный сервер инициализации слушает port: 0, ждём основной
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
			WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(ctx)
	require.NoError(s.T(), err)

	port, err := container.MappedPort(ctx, "3306")
	require.NoError(s.T(), err)

	s.dbCfg = config.DatabaseConfig{
		URL:            fmt.Sprintf("root:test@tcp(%s:%s)/weekend_tasks", host, port.Port()),
		ConnectTimeout: 5 * time.Second,
	}

	s.storage, err = mysql.New(s.dbCfg)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.storage.Migrate(ctx))

	cfg, err := mysql.ConnConfig(s.dbCfg)
	require.NoError(s.T(), err)
	connector, err := driver.NewConnector(cfg)
	require.NoError(s.T(), err)
	s.raw = sql.OpenDB(connector)

	s.Store = s.storage
	s.CreatedAtPrecision = time.Microsecond
	s.Reset = func() {
		_, err := s.raw.Exec("DELETE FROM weekend_tasks")
		require.NoError(s.T(), err)
	}
}

func (s *MySQLTestSuite) TearDownSuite() {
	if s.raw != nil {
		s.raw.Close()
	}
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		s.container.Terminate(context.Background())
	}
}

func TestMySQLTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(MySQLTestSuite))
}

// TestStorage_DayColumnIsEnum схема ограничивает day на уровне базы
func (s *MySQLTestSuite) TestStorage_DayColumnIsEnum() {
	var columnType string
	err := s.raw.QueryRow(`SELECT COLUMN_TYPE FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'weekend_tasks' AND COLUMN_NAME = 'day'`).Scan(&columnType)
	s.Require().NoError(err)
	s.Equal("enum('Friday','Saturday','Sunday')", columnType)
}

// TestStorage_RawInsertRejected даже прямой INSERT мимо хранилища не пройдёт
func (s *MySQLTestSuite) TestStorage_RawInsertRejected() {
	_, err := s.raw.Exec(`INSERT INTO weekend_tasks (event, day, start_time) VALUES ('X', 'Monday', '10:00')`)
	s.Require().Error(err)
	s.True(mysql.IsConstraintError(err), "unexpected error: %v", err)
}

// TestStorage_Unreachable сервер не отвечает
func TestStorage_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storage, err := mysql.New(config.DatabaseConfig{
		Host:           "127.0.0.1",
		Port:           1,
		Name:           "weekend_tasks",
		User:           "root",
		Password:       "password",
		ConnectTimeout: time.Second,
	})
	require.NoError(t, err)
	defer storage.Close()

	err = storage.HealthCheck(ctx)
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

	err = storage.Migrate(ctx)
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

	_, err = storage.GetAll(ctx)
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

	err = storage.Create(ctx, &task.Task{Event: "X", Day: task.DayFriday, StartTime: task.MustTimeOfDay("10:00")})
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, repository.ErrConstraintViolation)
}

func TestConnConfig(t *testing.T) {
	cfg, err := mysql.ConnConfig(config.DatabaseConfig{
		Host:           "db",
		Port:           3306,
		Name:           "weekend_tasks",
		User:           "app",
		Password:       "secret",
		ConnectTimeout: 3 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "weekend_tasks", cfg.DBName)
	assert.Equal(t, "app", cfg.User)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Contains(t, cfg.Params["sql_mode"], "STRICT_ALL_TABLES")
}

func TestConnConfig_FromURL(t *testing.T) {
	cfg, err := mysql.ConnConfig(config.DatabaseConfig{URL: "user:pw@tcp(10.0.0.1:3307)/other"})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1:3307", cfg.Addr)
	assert.Equal(t, "other", cfg.DBName)
	assert.True(t, cfg.ParseTime)

	_, err = mysql.ConnConfig(config.DatabaseConfig{URL: "not a dsn"})
	assert.Error(t, err)
}

func TestIsConstraintError(t *testing.T) {
	assert.True(t, mysql.IsConstraintError(&driver.MySQLError{Number: 1265, Message: "Data truncated for column 'day'"}))
	assert.True(t, mysql.IsConstraintError(fmt.Errorf("insert: %w", &driver.MySQLError{Number: 1406})))
	assert.False(t, mysql.IsConstraintError(&driver.MySQLError{Number: 1045, Message: "Access denied"}))
	assert.False(t, mysql.IsConstraintError(driver.ErrInvalidConn))
}
