package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/cache"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/config"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/document/pdf"
	"github.com/avstrong/hotelbooking/internal/filestore/hdfs"
	"github.com/avstrong/hotelbooking/internal/filestore/local"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/migration"
	"github.com/avstrong/hotelbooking/internal/notify/amqp"
	"github.com/avstrong/hotelbooking/internal/notify/mail"
	"github.com/avstrong/hotelbooking/internal/payment"
	"github.com/avstrong/hotelbooking/internal/payment/sandbox"
	"github.com/avstrong/hotelbooking/internal/payment/stripe"
	"github.com/avstrong/hotelbooking/internal/storage/memory"
	"github.com/avstrong/hotelbooking/internal/storage/redis"
	storagesql "github.com/avstrong/hotelbooking/internal/storage/sql"
	"github.com/avstrong/hotelbooking/internal/transport/web"
)

type store interface {
	booking.Storage
	catalog.Storage
	deals.Storage
	auth.Storage
	UpdateBookingPdf(ctx context.Context, b *booking.Booking) error
	Close() error
}

type fileStore interface {
	booking.Uploader
	Open(fileName string) ([]byte, error)
	Close() error
}

type paymentProvider interface {
	CreatePaymentIntent(ctx context.Context, amount float64, currency, bookingRef string) (*booking.PaymentIntent, error)
	ParseWebhook(payload []byte, signature string) (*payment.Event, error)
}

type idempotencyStore interface {
	booking.IdempotencyStore
	Close() error
}

func openStorage(ctx context.Context, cfg *config.Config, l *logger.Logger) (store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.New(memory.Config{L: l, Now: nil}), nil
	case "mysql":
		db, err := storagesql.New(storagesql.Config{L: l, Dialector: mysql.Open(cfg.Storage.DSN()), Now: nil})
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}

		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()

			return nil, fmt.Errorf("migrate mysql schema: %w", err)
		}

		return db, nil
	default:
		return nil, fmt.Errorf("%w: storage driver %q", ErrUnknownDriver, cfg.Storage.Driver)
	}
}

func openFileStore(cfg *config.Config, l *logger.Logger) (fileStore, error) {
	switch cfg.Files.Driver {
	case "local":
		s, err := local.New(cfg.Files.Root, cfg.Files.PublicURL)
		if err != nil {
			return nil, fmt.Errorf("open local file store: %w", err)
		}

		return s, nil
	case "hdfs":
		s, err := hdfs.New(hdfs.Config{L: l, Addr: cfg.Files.HDFSAddr, Root: cfg.Files.Root, PublicURL: cfg.Files.PublicURL})
		if err != nil {
			return nil, fmt.Errorf("open hdfs file store: %w", err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("%w: file driver %q", ErrUnknownDriver, cfg.Files.Driver)
	}
}

func newPaymentProvider(cfg *config.Config, l *logger.Logger) (paymentProvider, error) {
	switch cfg.Payment.Provider {
	case "sandbox":
		return sandbox.New(l), nil
	case "stripe":
		return stripe.New(stripe.Config{
			L:             l,
			SecretKey:     cfg.Payment.StripeKey,
			WebhookSecret: cfg.Payment.WebhookSecret,
		}), nil
	default:
		return nil, fmt.Errorf("%w: payment provider %q", ErrUnknownDriver, cfg.Payment.Provider)
	}
}

func newMailer(cfg *config.Config, l *logger.Logger) booking.Mailer {
	if cfg.SMTP.Host == "" {
		l.LogInfo("SMTP is not configured, confirmation emails are logged")

		return mail.NewLogSender(l)
	}

	return mail.New(mail.Config{
		L:        l,
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
}

func newIdempotencyStore(ctx context.Context, cfg *config.Config, l *logger.Logger) idempotencyStore {
	if cfg.Redis.Addr == "" {
		return memory.NewIdempotencyStore(cfg.Redis.IdempotencyTTL)
	}

	s := redis.New(redis.Config{L: l, Addr: cfg.Redis.Addr, TTL: cfg.Redis.IdempotencyTTL})
	if err := s.Ping(ctx); err != nil {
		l.LogErrorf("Redis is unreachable, falling back to in-process idempotency keys: %v", err)
		closeWithLog(l, "redis client", s.Close)

		return memory.NewIdempotencyStore(cfg.Redis.IdempotencyTTL)
	}

	return s
}

//nolint:funlen,cyclop // it's linear wiring code
func Run(cfg *config.Config, l *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	storage, err := openStorage(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer closeWithLog(l, "storage", storage.Close)

	if cfg.Storage.Seed {
		if err := migration.Up(ctx, l, storage, time.Now().UTC()); err != nil {
			return fmt.Errorf("up seed migration: %w", err)
		}
	}

	authManager := auth.New(storage, auth.Conf{Secret: []byte(cfg.Auth.JWTSecret), TokenTTL: cfg.Auth.TokenTTL})
	if _, err := authManager.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}

	files, err := openFileStore(cfg, l)
	if err != nil {
		return err
	}
	defer closeWithLog(l, "file store", files.Close)

	payments, err := newPaymentProvider(cfg, l)
	if err != nil {
		return err
	}

	catalogCache := cache.New(cache.Config{
		L:             l,
		MemcachedHost: cfg.Cache.MemcachedHost,
		LocalSize:     cfg.Cache.LocalSize,
		TTL:           cfg.Cache.TTL,
	})
	defer catalogCache.Close()

	dealManager := deals.New(storage)

	idempotency := newIdempotencyStore(ctx, cfg, l)
	defer closeWithLog(l, "idempotency store", idempotency.Close)

	handlers := []booking.ConfirmationHandler{
		booking.NewEmailHandler(l, storage, newMailer(cfg, l)),
	}

	if cfg.AMQP.URL != "" {
		publisher, err := amqp.New(amqp.Config{L: l, URL: cfg.AMQP.URL, Exchange: cfg.AMQP.Exchange})
		if err != nil {
			return fmt.Errorf("init amqp publisher: %w", err)
		}
		defer closeWithLog(l, "amqp publisher", publisher.Close)

		handlers = append(handlers, publisher)
	}

	bookManager := booking.New(
		l,
		storage,
		payments,
		booking.Conf{
			Currency:            cfg.Booking.Currency,
			ExternalCallTimeout: cfg.Booking.ExternalCallTimeout,
			HandlerTimeout:      cfg.Booking.HandlerTimeout,
		},
		booking.WithDeals(dealManager),
		booking.WithIdempotencyStore(idempotency),
		booking.WithPdfHandler(booking.NewPdfHandler(l, storage, pdf.New(), files)),
		booking.WithConfirmationHandlers(handlers...),
		booking.WithTracer(otel.Tracer("github.com/avstrong/hotelbooking/booking")),
	)

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.New(l.Writer(), "http ", log.LstdFlags),
		Host:              cfg.HTTP.Host,
		Port:              cfg.HTTP.Port,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		LivenessEndpoint:  cfg.HTTP.LivenessEndpoint,
		AllowedOrigins:    cfg.HTTP.AllowedOrigins,
	}

	srv, err := web.New(ctx, webConf, web.Deps{
		Bookings: bookManager,
		Catalog:  catalog.New(l, storage, catalogCache),
		Deals:    dealManager,
		Auth:     authManager,
		Webhooks: payments,
		Files:    files,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		cancel()

		return fmt.Errorf("run http server: %w", err)
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}

func closeWithLog(l *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		l.LogErrorf("Could not close %s: %v", name, err)
	}
}
