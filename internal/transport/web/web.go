package web

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/avstrong/hotelbooking/internal/auth"
	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/catalog"
	"github.com/avstrong/hotelbooking/internal/deals"
	"github.com/avstrong/hotelbooking/internal/logger"
	"github.com/avstrong/hotelbooking/internal/payment"
)

var ErrPanic = errors.New("panic recovered")

type webhookParser interface {
	ParseWebhook(payload []byte, signature string) (*payment.Event, error)
}

type fileOpener interface {
	Open(fileName string) ([]byte, error)
}

type Server struct {
	srv      *http.Server
	router   *mux.Router
	l        *logger.Logger
	conf     Conf
	bManager *booking.Manager
	catalog  *catalog.Manager
	deals    *deals.Manager
	auth     *auth.Manager
	webhooks webhookParser
	files    fileOpener
}

type Conf struct {
	L                 *logger.Logger
	ServerLogger      *log.Logger
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	LivenessEndpoint  string
	AllowedOrigins    []string
}

type Deps struct {
	Bookings *booking.Manager
	Catalog  *catalog.Manager
	Deals    *deals.Manager
	Auth     *auth.Manager
	Webhooks webhookParser
	Files    fileOpener
}

func New(ctx context.Context, conf Conf, deps Deps) (*Server, error) {
	router := mux.NewRouter()

	server := &Server{
		srv:      nil,
		router:   router,
		l:        conf.L,
		conf:     conf,
		bManager: deps.Bookings,
		catalog:  deps.Catalog,
		deals:    deps.Deals,
		auth:     deps.Auth,
		webhooks: deps.Webhooks,
		files:    deps.Files,
	}

	server.addRoutes(router)

	origins := conf.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "Idempotency-Key", "Stripe-Signature"}),
	)

	//nolint:exhaustruct
	server.srv = &http.Server{
		Addr:              net.JoinHostPort(conf.Host, conf.Port),
		ReadHeaderTimeout: conf.ReadHeaderTimeout,
		ErrorLog:          conf.ServerLogger,
		Handler:           cors(router),
		BaseContext: func(listener net.Listener) context.Context {
			return ctx
		},
	}

	return server, nil
}

func (s *Server) Srv() *http.Server {
	return s.srv
}

// Handler exposes the routed handler without the listener. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}
