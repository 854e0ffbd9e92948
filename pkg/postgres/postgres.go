package postgres

import (
	"context"
	"io/fs"
	"net"
	"net/url"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

type DB struct {
	Host     string `yaml:"host" envconfig:"DB_HOST" default:"localhost"`
	Port     string `yaml:"port" envconfig:"DB_PORT" default:"5432"`
	User     string `yaml:"user" envconfig:"DB_USER" default:"postgres"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD" json:"-"`
	NameDB   string `yaml:"dbname" envconfig:"DB_NAME" default:"library"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE" default:"disable"`
}

func (cfg *DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     cfg.NameDB,
		RawQuery: url.Values{"sslmode": []string{cfg.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewPostgresDB connects through the pgx driver and applies pending migrations from migrationFS.
func NewPostgresDB(ctx context.Context, cfg *DB, migrationFS fs.FS) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(err, "sqlx.Connect")
	}
	if migrationFS == nil {
		return db, nil
	}

	goose.SetBaseFS(migrationFS)
	if err = goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "goose.SetDialect")
	}
	if err = goose.Up(db.DB, "."); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "goose.Up")
	}
	return db, nil
}
