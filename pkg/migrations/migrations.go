package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embedded embed.FS

const migrationDir = "sql"

// MigrateStore applies the embedded goose migrations. Only postgres is
// supported; sqlite databases are created with store.InitialMigration.
func MigrateStore(db *gorm.DB) error {
	if name := db.Dialector.Name(); name != "postgres" {
		return fmt.Errorf("goose migrations need postgres, got %q", name)
	}

	goose.SetLogger(&logger{})
	goose.SetBaseFS(embedded)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := goose.Up(sqlDB, migrationDir); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	return nil
}

// Files lists the embedded migration files in apply order.
func Files() ([]string, error) {
	files, err := fs.Glob(embedded, migrationDir+"/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

/*
logger implements goose.Logger interface

	type Logger interface {
		Fatalf(format string, v ...interface{})
		Printf(format string, v ...interface{})
	}
*/
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) { zap.S().Named("goose").Infof(format, v...) }
func (m *logger) Fatalf(format string, v ...interface{}) { zap.S().Named("goose").Fatalf(format, v...) }
