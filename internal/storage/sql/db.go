package sql

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/logger"
)

var ErrTransactionNotFoundInCtx = errors.New("no transaction found in ctx")

const slowQueryThreshold = 200 * time.Millisecond

type Config struct {
	L         *logger.Logger
	Dialector gorm.Dialector
	Now       func() time.Time
}

type DB struct {
	db  *gorm.DB
	l   *logger.Logger
	now func() time.Time
}

func New(conf Config) (*DB, error) {
	gormLog := gormlogger.New(
		log.New(conf.L.Writer(), "gorm ", log.LstdFlags),
		gormlogger.Config{ //nolint:exhaustruct
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(conf.Dialector, &gorm.Config{ //nolint:exhaustruct
		Logger:         gormLog,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	now := conf.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &DB{db: db, l: conf.L, now: now}, nil
}

func (db *DB) Migrate(ctx context.Context) error {
	err := db.db.WithContext(ctx).AutoMigrate(
		&auth.User{},
		&catalog.City{},
		&catalog.Hotel{},
		&booking.RoomType{},
		&booking.Room{},
		&deals.Deal{},
		&booking.Booking{},
		&catalog.Review{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close sql db: %w", err)
	}

	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

type contextKey string

const transactionKey contextKey = "gormTransaction"

type transaction struct {
	tx       *gorm.DB
	affected int64
}

func transactionFromContext(ctx context.Context) (*transaction, bool) {
	trx, ok := ctx.Value(transactionKey).(*transaction)

	return trx, ok && trx != nil
}

func isolation(level string) stdsql.IsolationLevel {
	switch level {
	case "READ UNCOMMITTED":
		return stdsql.LevelReadUncommitted
	case "READ COMMITTED":
		return stdsql.LevelReadCommitted
	case "REPEATABLE READ":
		return stdsql.LevelRepeatableRead
	case "SERIALIZABLE":
		return stdsql.LevelSerializable
	default:
		return stdsql.LevelDefault
	}
}

func (db *DB) supportsRowLocks() bool {
	return db.db.Dialector.Name() == "mysql"
}

func (db *DB) BeginTransaction(ctx context.Context, level string) (context.Context, error) {
	//nolint:exhaustruct
	opts := &stdsql.TxOptions{}
	if db.supportsRowLocks() {
		opts.Isolation = isolation(level)
	}

	tx := db.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return ctx, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	return context.WithValue(ctx, transactionKey, &transaction{tx: tx, affected: 0}), nil
}

func (db *DB) CommitTransaction(ctx context.Context) (int, error) {
	trx, ok := transactionFromContext(ctx)
	if !ok {
		return 0, ErrTransactionNotFoundInCtx
	}

	if err := trx.tx.Commit().Error; err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return int(trx.affected), nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	trx, ok := transactionFromContext(ctx)
	if !ok {
		return ErrTransactionNotFoundInCtx
	}

	if err := trx.tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	return nil
}

// conn returns the transaction carried by ctx, or the pool.
func (db *DB) conn(ctx context.Context) *gorm.DB {
	if trx, ok := transactionFromContext(ctx); ok {
		return trx.tx.WithContext(ctx)
	}

	return db.db.WithContext(ctx)
}

func (db *DB) forUpdate(q *gorm.DB) *gorm.DB {
	if !db.supportsRowLocks() {
		return q
	}

	return q.Clauses(clause.Locking{Strength: "UPDATE"}) //nolint:exhaustruct
}

func (db *DB) track(ctx context.Context, res *gorm.DB) error {
	if res.Error != nil {
		return mapError(res.Error)
	}

	if trx, ok := transactionFromContext(ctx); ok {
		trx.affected += res.RowsAffected
	}

	return nil
}

// save inserts or updates an entity, stamping its audit fields first.
func (db *DB) save(ctx context.Context, entity booking.Auditable, isNew bool) error {
	entity.Touch(db.now())

	q := db.conn(ctx).Omit(clause.Associations)
	if isNew {
		return db.track(ctx, q.Create(entity))
	}

	return db.track(ctx, q.Model(entity).Select("*").Updates(entity))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %w", booking.ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", booking.ErrConstraint, err)
	default:
		return err
	}
}
