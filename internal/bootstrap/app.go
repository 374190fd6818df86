// Package bootstrap assembles a service process from its configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Domenick1991/flightsaga/api"
	"github.com/Domenick1991/flightsaga/config"
	"github.com/Domenick1991/flightsaga/internal/cache"
	"github.com/Domenick1991/flightsaga/internal/inproc"
	"github.com/Domenick1991/flightsaga/internal/kafka"
	"github.com/Domenick1991/flightsaga/internal/messaging"
	"github.com/Domenick1991/flightsaga/internal/repository"
	"github.com/Domenick1991/flightsaga/internal/saga"
	"github.com/Domenick1991/flightsaga/internal/service/booking"
	"github.com/Domenick1991/flightsaga/internal/service/flights"
)

const shutdownTimeout = 5 * time.Second

// subscriber is implemented by transports that must attach every queue before the
// first publish.
type subscriber interface {
	Subscribe(ctx context.Context, q messaging.Queue, r *messaging.Router) (func() error, error)
}

type queueRun struct {
	queue  messaging.Queue
	router *messaging.Router
}

// App is one process: the HTTP servers of its services plus the queues it consumes.
type App struct {
	logger   *zap.Logger
	servers  []*http.Server
	consumer messaging.Consumer
	queues   []queueRun
	closers  []func()
	ready    chan struct{}

	flights  *flights.FlightService
	bookings *booking.BookingService
}

type stores struct {
	flights   repository.FlightRepository
	bookings  repository.BookingRepository
	cache     flights.FlightCache
	processed saga.ProcessedStore
}

type transport struct {
	publisher messaging.Publisher
	consumer  messaging.Consumer
}

// New connects storage and transport and wires the services named by service:
// flights, bookings or standalone (both in one process).
func New(ctx context.Context, cfg *config.Config, service string, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{logger: logger, ready: make(chan struct{})}

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	tr, err := a.openTransport(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.consumer = tr.consumer

	if service == config.ServiceFlights || service == config.ServiceStandalone {
		opts := []flights.FlightServiceOption{flights.WithLogger(logger.Named("flights"))}
		if st.cache != nil {
			opts = append(opts, flights.WithCache(st.cache))
		}
		a.flights = flights.NewFlightService(st.flights, tr.publisher, opts...)
	}
	if service == config.ServiceBookings || service == config.ServiceStandalone {
		a.bookings = booking.NewBookingService(st.bookings, tr.publisher, booking.WithLogger(logger.Named("bookings")))
	}
	if a.flights == nil && a.bookings == nil {
		a.Close()
		return nil, fmt.Errorf("unknown service %q", service)
	}

	for _, qc := range cfg.Queues {
		handler, err := a.handlerFor(qc, tr.publisher)
		if err != nil {
			a.Close()
			return nil, err
		}
		if cfg.Idempotency.Enabled {
			handler = saga.Deduplicate(st.processed, qc.Name, handler, logger.Named("dedup"))
		}
		a.queues = append(a.queues, queueRun{
			queue:  messaging.Queue{Name: qc.Name, Bindings: qc.Bindings, Workers: qc.Workers},
			router: messaging.NewRouter(handler, logger.Named("router")),
		})
	}

	a.servers = a.newServers(cfg)
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	var st stores
	switch cfg.Database.Driver {
	case config.StorageMemory:
		st.flights = repository.NewMemoryFlightRepository()
		st.bookings = repository.NewMemoryBookingRepository()
	default:
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return st, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return st, fmt.Errorf("ping postgres: %w", err)
		}
		if cfg.Database.Migrate {
			if err := repository.Migrate(ctx, pool); err != nil {
				return st, err
			}
		}
		st.flights = repository.NewFlightRepository(pool)
		st.bookings = repository.NewBookingRepository(pool)
	}

	if cfg.Redis.Addr == "" {
		st.processed = cache.NewMemoryProcessedStore(cfg.Idempotency.Lease(), cfg.Idempotency.TTL())
		return st, nil
	}
	client := cache.NewRedisClient(cfg.Redis)
	a.closers = append(a.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return st, fmt.Errorf("ping redis: %w", err)
	}
	st.cache = cache.NewRedisCache(client, cfg.Cache.FlightsTTL())
	st.processed = cache.NewRedisProcessedStore(client, cfg.Idempotency.Lease(), cfg.Idempotency.TTL())
	return st, nil
}

func (a *App) openTransport(cfg *config.Config) (transport, error) {
	switch cfg.Broker.Driver {
	case config.BrokerInproc:
		broker := inproc.NewBroker(a.logger.Named("inproc"),
			inproc.WithRedeliveryDelay(cfg.Broker.RedeliveryDelay()),
			inproc.WithDeadLetterTopic(cfg.Broker.DeadLetterTopic))
		a.closers = append(a.closers, func() { _ = broker.Close() })
		return transport{publisher: broker, consumer: broker}, nil
	case config.BrokerKafka:
		producer := kafka.NewProducer(cfg.Broker.Brokers, cfg.Broker.DeadLetterTopic, a.logger.Named("kafka"))
		a.closers = append(a.closers, func() { _ = producer.Close() })
		consumer := kafka.NewConsumer(cfg.Broker.Brokers, producer, cfg.Broker.RedeliveryDelay(), a.logger.Named("kafka"))
		return transport{publisher: producer, consumer: consumer}, nil
	default:
		return transport{}, fmt.Errorf("unknown broker driver %q", cfg.Broker.Driver)
	}
}

func (a *App) handlerFor(qc config.QueueConfig, publisher messaging.Publisher) (messaging.Handler, error) {
	logger := a.logger.Named("saga").With(zap.String("queue", qc.Name))
	switch {
	case qc.Consumer == config.ServiceFlights && a.flights != nil:
		return saga.NewFlightSide(a.flights, publisher, logger), nil
	case qc.Consumer == config.ServiceBookings && a.bookings != nil:
		return saga.NewBookingSide(a.bookings, logger), nil
	default:
		return nil, fmt.Errorf("queue %s: this process does not run the %s service", qc.Name, qc.Consumer)
	}
}

func (a *App) newServers(cfg *config.Config) []*http.Server {
	var servers []*http.Server
	switch {
	case a.flights != nil && a.bookings != nil:
		servers = append(servers,
			&http.Server{Addr: cfg.HTTP.Address, Handler: api.NewEngine(a.logger.Named("http"), api.NewFlightHandler(a.flights), nil)},
			&http.Server{Addr: cfg.HTTP.BookingsAddress, Handler: api.NewEngine(a.logger.Named("http"), nil, api.NewBookingHandler(a.bookings))},
		)
	case a.flights != nil:
		servers = append(servers, &http.Server{Addr: cfg.HTTP.Address, Handler: api.NewEngine(a.logger.Named("http"), api.NewFlightHandler(a.flights), nil)})
	default:
		servers = append(servers, &http.Server{Addr: cfg.HTTP.Address, Handler: api.NewEngine(a.logger.Named("http"), nil, api.NewBookingHandler(a.bookings))})
	}
	for _, srv := range servers {
		srv.ReadHeaderTimeout = 10 * time.Second
	}
	return servers
}

// Run consumes every queue and serves HTTP until ctx is canceled or one of them
// fails, then shuts the servers down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if err := a.startConsumers(gctx, g); err != nil {
		return err
	}
	close(a.ready)

	for _, srv := range a.servers {
		srv := srv
		g.Go(func() error {
			a.logger.Info("http server listening", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range a.servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown http server %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func (a *App) startConsumers(ctx context.Context, g *errgroup.Group) error {
	sub, attachFirst := a.consumer.(subscriber)
	for _, run := range a.queues {
		run := run
		if attachFirst {
			wait, err := sub.Subscribe(ctx, run.queue, run.router)
			if err != nil {
				return err
			}
			g.Go(wait)
			continue
		}
		g.Go(func() error {
			return a.consumer.Consume(ctx, run.queue, run.router)
		})
	}
	return nil
}

// Ready is closed once Run has attached every queue.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
