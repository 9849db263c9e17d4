// Package database opens the ClickHouse connection shared by the
// processing service and the migrate command.
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

type Options struct {
	// DSN is either host:port or a clickhouse:// URL. Credentials and the
	// database in a URL take precedence over the fields below.
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	DialTimeout     time.Duration
	Username        string
	Password        string
	Database        string
}

type Database struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

func New(ctx context.Context, opts Options, logger *zap.Logger) (*Database, error) {
	chOpts, err := clickhouseOptions(opts)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(chOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	logger.Info("connected to clickhouse",
		zap.Strings("addr", chOpts.Addr),
		zap.String("database", chOpts.Auth.Database))
	return &Database{
		conn:   conn,
		logger: logger,
	}, nil
}

func clickhouseOptions(opts Options) (*clickhouse.Options, error) {
	dial := opts.DialTimeout
	if dial <= 0 {
		dial = 30 * time.Second
	}

	if strings.Contains(opts.DSN, "://") {
		parsed, err := clickhouse.ParseDSN(opts.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse clickhouse dsn: %w", err)
		}
		if parsed.Auth.Database == "" {
			parsed.Auth.Database = opts.Database
		}
		if parsed.Auth.Username == "" {
			parsed.Auth.Username = opts.Username
			parsed.Auth.Password = opts.Password
		}
		parsed.DialTimeout = dial
		parsed.MaxOpenConns = opts.MaxOpenConns
		parsed.MaxIdleConns = opts.MaxIdleConns
		parsed.ConnMaxLifetime = opts.ConnMaxLifetime
		return parsed, nil
	}

	host := strings.Split(opts.DSN, "?")[0]
	if host == "" {
		return nil, fmt.Errorf("empty clickhouse dsn")
	}
	return &clickhouse.Options{
		Protocol: clickhouse.Native,
		Addr:     []string{host},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout:     dial,
		MaxOpenConns:    opts.MaxOpenConns,
		MaxIdleConns:    opts.MaxIdleConns,
		ConnMaxLifetime: opts.ConnMaxLifetime,
	}, nil
}

func (db *Database) Close() error {
	return db.conn.Close()
}

func (db *Database) Conn() clickhouse.Conn {
	return db.conn
}
