package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"drifttapes/pkg/models"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUserNotFound is returned when no account matches a lookup
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when creating an account with a taken email
	ErrUserExists = errors.New("user already exists")
)

// Database wraps a *sql.DB holding client-side storage and accounts. It is
// safe for concurrent use because the underlying *sql.DB is.
type Database struct {
	conn   *sql.DB
	logger *logrus.Logger

	getItemStmt        *sql.Stmt
	setItemStmt        *sql.Stmt
	insertUserStmt     *sql.Stmt
	getUserByEmailStmt *sql.Stmt
	getUserByIDStmt    *sql.Stmt
	updateUserStmt     *sql.Stmt
}

// NewDatabase opens (or creates) a SQLite database at dbPath and ensures the
// schema exists. Caller should Close() it when finished.
func NewDatabase(dbPath string, maxConnections int, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if maxConnections < 1 {
		maxConnections = 1
	}

	conn, err := sql.Open("sqlite3", dbPath+"?cache=shared&mode=rwc&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxConnections)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(15 * time.Minute)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=2000;",
		"PRAGMA temp_store=memory;",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Warn("Failed to set pragma")
		}
	}

	db := &Database{
		conn:   conn,
		logger: logger,
	}

	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	logger.WithField("db_path", dbPath).Info("Database initialized successfully")
	return db, nil
}

// createTables is idempotent and safe to call on every start
func (db *Database) createTables() error {
	clientStorageTable := `
	CREATE TABLE IF NOT EXISTS client_storage (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	usersTable := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`

	for _, table := range []string{clientStorageTable, usersTable} {
		if _, err := db.conn.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) prepareStatements() error {
	var err error

	db.getItemStmt, err = db.conn.Prepare(`SELECT value FROM client_storage WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get item statement: %w", err)
	}

	db.setItemStmt, err = db.conn.Prepare(`
		INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare set item statement: %w", err)
	}

	db.insertUserStmt, err = db.conn.Prepare(`
		INSERT INTO users (id, email, display_name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert user statement: %w", err)
	}

	db.getUserByEmailStmt, err = db.conn.Prepare(`
		SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get user by email statement: %w", err)
	}

	db.getUserByIDStmt, err = db.conn.Prepare(`
		SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare get user by id statement: %w", err)
	}

	db.updateUserStmt, err = db.conn.Prepare(`UPDATE users SET display_name = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare update user statement: %w", err)
	}

	return nil
}

// GetItem returns the value stored under key. found is false when the key
// has never been written.
func (db *Database) GetItem(key string) ([]byte, bool, error) {
	var value []byte
	if err := db.getItemStmt.QueryRow(key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		db.logger.WithError(err).WithField("key", key).Error("Failed to read client storage")
		return nil, false, err
	}
	return value, true, nil
}

// SetItem stores value under key, replacing any previous value
func (db *Database) SetItem(key string, value []byte) error {
	if _, err := db.setItemStmt.Exec(key, value, time.Now().UTC()); err != nil {
		db.logger.WithError(err).WithField("key", key).Error("Failed to write client storage")
		return err
	}
	return nil
}

// CreateUser inserts a new account. Emails are unique ignoring case.
func (db *Database) CreateUser(user models.User) error {
	_, err := db.insertUserStmt.Exec(user.ID, strings.TrimSpace(user.Email), user.DisplayName, user.PasswordHash, user.CreatedAt.UTC())
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrUserExists
		}
		db.logger.WithError(err).WithField("email", user.Email).Error("Failed to insert user")
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByEmail looks up an account by email, ignoring case
func (db *Database) GetUserByEmail(email string) (*models.User, error) {
	return db.scanUser(db.getUserByEmailStmt.QueryRow(strings.TrimSpace(email)))
}

// GetUserByID looks up an account by id
func (db *Database) GetUserByID(id string) (*models.User, error) {
	return db.scanUser(db.getUserByIDStmt.QueryRow(id))
}

// UpdateUserProfile changes an account's display name
func (db *Database) UpdateUserProfile(id, displayName string) error {
	result, err := db.updateUserStmt.Exec(displayName, id)
	if err != nil {
		db.logger.WithError(err).WithField("user_id", id).Error("Failed to update user")
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (db *Database) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// Ping verifies the database is reachable
func (db *Database) Ping() error {
	return db.conn.Ping()
}

// Close closes prepared statements and the connection
func (db *Database) Close() error {
	statements := []*sql.Stmt{
		db.getItemStmt,
		db.setItemStmt,
		db.insertUserStmt,
		db.getUserByEmailStmt,
		db.getUserByIDStmt,
		db.updateUserStmt,
	}

	for _, stmt := range statements {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				db.logger.WithError(err).Error("Failed to close prepared statement")
			}
		}
	}

	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
