// Package migrations хранит версии схемы weekend_tasks для каждой базы и применяет их через golang-migrate.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"weekendTasks/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed mysql/*.sql postgres/*.sql sqlite/*.sql
var files embed.FS

type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type result struct {
	err     error
	version uint
}

// Up применяет все новые миграции, актуальная схема не ошибка.
// db закрывается внутри Up. Если ctx истекает раньше, Up возвращает ошибку сразу,
// а golang-migrate получает GracefulStop и останавливается после текущей миграции.
func Up(ctx context.Context, db *sql.DB, dialect Dialect) error {
	res, err := run(ctx, db, dialect, (*migrate.Migrate).Up)
	if err != nil {
		return fmt.Errorf("применение миграций %s: %w", dialect, err)
	}
	if errors.Is(res.err, migrate.ErrNoChange) {
		logger.Info("Migrations: Схема актуальна", zap.String("dialect", string(dialect)))
		return nil
	}
	if res.err != nil {
		return fmt.Errorf("применение миграций %s: %w", dialect, res.err)
	}

	logger.Info("Migrations: Миграции применены",
		zap.String("dialect", string(dialect)),
		zap.Uint("version", res.version))
	return nil
}

// Down откатывает все миграции и закрывает db
func Down(ctx context.Context, db *sql.DB, dialect Dialect) error {
	res, err := run(ctx, db, dialect, (*migrate.Migrate).Down)
	if err != nil {
		return fmt.Errorf("откат миграций %s: %w", dialect, err)
	}
	if res.err != nil && !errors.Is(res.err, migrate.ErrNoChange) {
		return fmt.Errorf("откат миграций %s: %w", dialect, res.err)
	}
	logger.Info("Migrations: Миграции откачены", zap.String("dialect", string(dialect)))
	return nil
}

// run выполняет step в отдельной горутине, чтобы ожидание было ограничено ctx
func run(ctx context.Context, db *sql.DB, dialect Dialect, step func(*migrate.Migrate) error) (result, error) {
	if err := ctx.Err(); err != nil {
		db.Close()
		return result{}, err
	}

	m, err := newMigrate(db, dialect)
	if err != nil {
		return result{}, err
	}

	done := make(chan result, 1)
	go func() {
		defer closeMigrate(m, dialect)
		var res result
		res.err = step(m)
		res.version, _, _ = m.Version()
		done <- res
	}()

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		select {
		case m.GracefulStop <- true:
		default:
		}
		logger.Warn("Migrations: Прервано по таймауту, остановка после текущего шага",
			zap.String("dialect", string(dialect)),
			zap.Error(ctx.Err()))
		return result{}, ctx.Err()
	}
}

func newMigrate(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	src, err := iofs.New(files, string(dialect))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("источник миграций %s: %w", dialect, err)
	}

	var driver database.Driver
	switch dialect {
	case MySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{})
	case Postgres:
		driver, err = migratepgx.WithInstance(db, &migratepgx.Config{})
	case SQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("неизвестный диалект %q", dialect)
	}
	if err != nil {
		src.Close()
		db.Close()
		return nil, fmt.Errorf("драйвер миграций %s: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		src.Close()
		driver.Close()
		return nil, fmt.Errorf("инициализация миграций %s: %w", dialect, err)
	}
	m.Log = logger.NewPrintf("Migrations: ", false)
	return m, nil
}

func closeMigrate(m *migrate.Migrate, dialect Dialect) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("Migrations: Ошибка закрытия источника", zap.String("dialect", string(dialect)), zap.Error(srcErr))
	}
	if dbErr != nil {
		logger.Warn("Migrations: Ошибка закрытия соединения", zap.String("dialect", string(dialect)), zap.Error(dbErr))
	}
}
