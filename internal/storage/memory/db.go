package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/idgen/simple"
	"github.com/avstrong/hotelbooking/internal/logger"
)

type Config struct {
	L   *logger.Logger
	Now func() time.Time
}

// DB keeps every table in maps guarded by one mutex. Row locks taken inside a
// transaction are separate one-slot channels so a transaction can wait for a
// lock without holding the table mutex.
type DB struct {
	mu           sync.Mutex
	l            *logger.Logger
	now          func() time.Time
	ids          map[string]*simple.Generator
	cities       map[uint]*catalog.City
	hotels       map[uint]*catalog.Hotel
	roomTypes    map[uint]*booking.RoomType
	rooms        map[uint]*booking.Room
	bookings     map[uint]*booking.Booking
	deals        map[uint]*deals.Deal
	reviews      map[uint]*catalog.Review
	users        map[uint]*auth.User
	transactions map[string]*transaction
	rowLocks     map[string]chan struct{}
	nextTrxID    int64
}

func New(conf Config) *DB {
	now := conf.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	l := conf.L
	if l == nil {
		l = logger.Discard()
	}

	//nolint:exhaustruct
	return &DB{
		l:            l,
		now:          now,
		ids:          make(map[string]*simple.Generator),
		cities:       make(map[uint]*catalog.City),
		hotels:       make(map[uint]*catalog.Hotel),
		roomTypes:    make(map[uint]*booking.RoomType),
		rooms:        make(map[uint]*booking.Room),
		bookings:     make(map[uint]*booking.Booking),
		deals:        make(map[uint]*deals.Deal),
		reviews:      make(map[uint]*catalog.Review),
		users:        make(map[uint]*auth.User),
		transactions: make(map[string]*transaction),
		rowLocks:     make(map[string]chan struct{}),
	}
}

// nextID must be called with db.mu held.
func (db *DB) nextID(ctx context.Context, table string) (uint, error) {
	g, ok := db.ids[table]
	if !ok {
		g = simple.New()
		db.ids[table] = g
	}

	id, err := g.GetID(ctx)
	if err != nil {
		return 0, fmt.Errorf("generate %s id: %w", table, err)
	}

	return id, nil
}

func (db *DB) BeginTransaction(ctx context.Context, _ string) (context.Context, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if open, ok := transactionIDFromContext(ctx); ok {
		if _, alive := db.transactions[open]; alive {
			return nil, fmt.Errorf("begin inside %s: %w", open, ErrNestedTransaction)
		}
	}

	trxID := fmt.Sprintf("trx-%d", db.nextTrxID)
	db.nextTrxID++

	db.transactions[trxID] = newTransaction(trxID)

	return withTransactionID(ctx, trxID), nil
}

// transactionFromContext must be called with db.mu held. It returns nil
// without error when ctx carries no transaction.
func (db *DB) transactionFromContext(ctx context.Context) (*transaction, error) {
	trxID, ok := transactionIDFromContext(ctx)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	trx, exists := db.transactions[trxID]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found: %w", trxID, ErrTransactionNotFound)
	}

	return trx, nil
}

func (db *DB) requireTransaction(ctx context.Context) (*transaction, error) {
	trx, err := db.transactionFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if trx == nil {
		return nil, ErrTransactionIDNotFoundInCtx
	}

	return trx, nil
}

// CommitTransaction re-checks every staged booking against the committed
// ones before applying them. A conflicting booking rolls the whole
// transaction back and yields booking.ErrConstraint.
func (db *DB) CommitTransaction(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.requireTransaction(ctx)
	if err != nil {
		return 0, err
	}

	defer db.finish(trx)

	for _, b := range trx.bookingModifications {
		if db.conflicts(b) {
			db.l.LogDebug("Transaction %s conflicts with a committed booking on room %d", trx.id, b.RoomID)
			db.rollback(trx)

			return 0, fmt.Errorf("booking %s on room %d: %w", b.Reference, b.RoomID, booking.ErrConstraint)
		}
	}

	for id, b := range trx.bookingModifications {
		db.bookings[id] = b
	}

	return len(trx.bookingModifications) + trx.writes, nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.requireTransaction(ctx)
	if err != nil {
		return err
	}

	db.rollback(trx)
	db.finish(trx)

	return nil
}

// trackWrite must be called with db.mu held. Inside a transaction the write
// is counted and undo runs on rollback.
func (db *DB) trackWrite(trx *transaction, undo func()) {
	if trx == nil {
		return
	}

	trx.writes++
	trx.rollbackActions = append(trx.rollbackActions, undo)
}

// put must be called with db.mu held.
func put[T any](db *DB, trx *transaction, table map[uint]*T, id uint, v *T) {
	prev, existed := table[id]
	table[id] = v

	db.trackWrite(trx, func() {
		if existed {
			table[id] = prev
		} else {
			delete(table, id)
		}
	})
}

func (db *DB) rollback(trx *transaction) {
	for i := len(trx.rollbackActions) - 1; i >= 0; i-- {
		trx.rollbackActions[i]()
	}
}

func (db *DB) finish(trx *transaction) {
	for _, lock := range trx.locks {
		<-lock
	}

	delete(db.transactions, trx.id)
}

// conflicts must be called with db.mu held.
func (db *DB) conflicts(b *booking.Booking) bool {
	if !b.Active() {
		return false
	}

	for _, other := range db.bookings {
		if other.ID == b.ID || other.RoomID != b.RoomID || !other.Active() {
			continue
		}

		if other.OverlapsWith(b.CheckIn, b.CheckOut) {
			return true
		}
	}

	return false
}

// lockRow blocks until the row lock is acquired by the transaction in ctx or
// ctx is done. Locks are released when the transaction finishes.
func (db *DB) lockRow(ctx context.Context, key string) error {
	db.mu.Lock()

	trx, err := db.requireTransaction(ctx)
	if err != nil {
		db.mu.Unlock()

		return err
	}

	if _, held := trx.locks[key]; held {
		db.mu.Unlock()

		return nil
	}

	lock, ok := db.rowLocks[key]
	if !ok {
		lock = make(chan struct{}, 1)
		db.rowLocks[key] = lock
	}

	db.mu.Unlock()

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("wait for lock %s: %w", key, ctx.Err())
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, alive := db.transactions[trx.id]; !alive {
		<-lock

		return fmt.Errorf("transaction %s finished while waiting for lock: %w", trx.id, ErrTransactionNotFound)
	}

	trx.locks[key] = lock

	return nil
}

func (db *DB) LockRoom(ctx context.Context, roomID uint) error {
	return db.lockRow(ctx, fmt.Sprintf("room:%d", roomID))
}

func (db *DB) Close() error {
	return nil
}
