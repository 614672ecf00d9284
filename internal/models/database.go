package models

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	go_sqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var DB *gorm.DB

// SlowQueryThreshold is the duration above which queries are logged as
// warnings. Zero disables the slow query log.
var SlowQueryThreshold = 200 * time.Millisecond

type PlannerContext string

const (
	DBContextURL PlannerContext = "planner-url"
)

// Connect opens the SQLite database and configures the connection pool.
func Connect(dsn string) error {
	config := &gorm.Config{
		Logger: &logger{
			Logger:        log.Logger,
			SlowThreshold: SlowQueryThreshold,
		},
	}

	// Migration runs with foreign keys disabled since sqlite does not
	// support ALTER COLUMN. Tables are copied to a temporary table,
	// then the table is dropped and recreated.
	db, err := gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	err = migrate(db)
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	sqlDB.Close()

	// Now, reconnect with foreign keys enabled
	dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)", dsn)
	db, err = gorm.Open(sqlite.Open(dsn), config)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err = db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}

	// Get new connections after one hour
	sqlDB.SetConnMaxLifetime(time.Hour)

	// A single connection prevents SQLITE_BUSY errors
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	callbacks := []struct {
		processor interface {
			Register(string, func(*gorm.DB)) error
		}
		name string
		fn   func(*gorm.DB)
	}{
		{db.Callback().Query().After("*"), "planner:after_query", queryCallback},
		{db.Callback().Query().After("*"), "planner:after_query_general", generalCallback},
		{db.Callback().Create().After("*"), "planner:after_create", createUpdateCallback},
		{db.Callback().Create().After("*"), "planner:after_create_general", generalCallback},
		{db.Callback().Update().After("*"), "planner:after_update", createUpdateCallback},
		{db.Callback().Update().After("*"), "planner:after_update_general", generalCallback},
		{db.Callback().Delete().After("*"), "planner:after_delete_general", generalCallback},
	}

	for _, c := range callbacks {
		err = c.processor.Register(c.name, c.fn)
		if err != nil {
			return err
		}
	}

	// Set the exported variable
	DB = db

	return nil
}

// queryCallback replaces the generic "no record" error with a more user
// friendly one
func queryCallback(db *gorm.DB) {
	if errors.Is(db.Error, gorm.ErrRecordNotFound) {
		// Use the table name as information about the type of resource
		// and replace "_" with "[space]"
		name := strings.ReplaceAll(db.Statement.Table, "_", " ")

		// Replace pluralized "ies" with "y"
		match := regexp.MustCompile("ies$")
		name = match.ReplaceAllString(name, "y")

		// Remove plural "s"
		name = strings.TrimRight(name, "s")

		db.Error = fmt.Errorf("%w %s matching your query", ErrResourceNotFound, name)
	}
}

// createUpdateCallback inspects errors returned by the database for create
// and update calls and replaces them with user friendly ones
func createUpdateCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	if strings.Contains(db.Error.Error(), "UNIQUE constraint failed: departments.code") {
		db.Error = ErrDepartmentCodeNotUnique
	}

	if strings.Contains(db.Error.Error(), "UNIQUE constraint failed: global_limits.year") {
		db.Error = ErrGlobalLimitYearNotUnique
	}

	if strings.Contains(db.Error.Error(), "UNIQUE constraint failed: conflicts.entry_a_id, conflicts.entry_b_id") {
		db.Error = ErrConflictPairNotUnique
	}

	if strings.Contains(db.Error.Error(), "FOREIGN KEY constraint failed") && db.Statement.Table == "entries" {
		db.Error = ErrDepartmentDoesNotExist
	}
}

// generalCallback handles unspecified errors.
//
// For these errors, we cannot provide the user with a helpful message.
// Instead, the error is logged and we return a general message to users.
func generalCallback(db *gorm.DB) {
	if db.Error == nil {
		return
	}

	db.Error = general(db.Error)
}

// general replaces errors of the database connection and the sqlite driver
// with ErrGeneral. All other errors are returned unchanged.
func general(err error) error {
	// "sql: database is closed" is hard-coded in the sql module
	if errors.Is(err, sql.ErrConnDone) || err.Error() == "sql: database is closed" || reflect.TypeOf(err) == reflect.TypeOf(&go_sqlite.Error{}) {
		log.Error().Msgf("%T: %v", err, err.Error())
		return ErrGeneral
	}

	return err
}

// Transaction runs fc in a transaction on db.
//
// Errors from beginning or committing the transaction do not pass through
// the gorm callbacks, they are translated here.
func Transaction(db *gorm.DB, fc func(tx *gorm.DB) error) error {
	err := db.Transaction(fc)
	if err != nil {
		return general(err)
	}

	return nil
}

// migrate migrates all models to the schema defined in the code.
func migrate(db *gorm.DB) (err error) {
	err = db.AutoMigrate(Department{}, Entry{}, GlobalLimit{}, Conflict{}, AuditLog{})
	if err != nil {
		return fmt.Errorf("error during DB migration: %w", err)
	}

	return nil
}
