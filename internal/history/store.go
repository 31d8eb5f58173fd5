// Package history keeps a sqlite record of completed downloads, so the
// file-serving endpoint can look up what a filename corresponds to.
package history

import (
	"context"
	"database/sql"
	"embed"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jaydl/jaydl"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type Store struct {
	db  *sqlx.DB
	log *zap.SugaredLogger
}

func NewStore(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, log: zap.S().Named("history")}, nil
}

func (s *Store) Migrate() error {
	s.log.Info("running database migrations")
	fs, err := iofs.New(embedMigrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := sqlite3.WithInstance(s.db.DB, &sqlite3.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", fs, "sqlite3", driver)
	if err != nil {
		return err
	}
	err = m.Up()
	switch err {
	case nil:
		s.log.Info("database migration complete")
	case migrate.ErrNoChange:
		s.log.Info("no database migration required")
	default:
		return err
	}
	return nil
}

func (s *Store) Close() {
	_ = s.db.Close()
}

// Record inserts one download record.
func (s *Store) Record(ctx context.Context, rec jaydl.DownloadRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO download_history (id, url, platform, source, kind, quality, filename, size_bytes, created_at)
		VALUES (:id, :url, :platform, :source, :kind, :quality, :filename, :size_bytes, :created_at)`, rec)
	return err
}

// GetByFilename returns (nil, nil) if the error is only that no such row exists.
func (s *Store) GetByFilename(ctx context.Context, filename string) (*jaydl.DownloadRecord, error) {
	rec := jaydl.DownloadRecord{}
	err := s.db.GetContext(ctx, &rec, `
		SELECT * FROM download_history WHERE filename = ? ORDER BY created_at DESC LIMIT 1`, filename)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]jaydl.DownloadRecord, error) {
	var recs []jaydl.DownloadRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT * FROM download_history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return recs, nil
}
