package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	httpapi "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/broker"
	"orderflow/internal/adapters/out/notifier"
	"orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/docs"
	"orderflow/internal/jobs"
	"orderflow/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenDatabase connects the configured driver and migrates the orders table.
func OpenDatabase(config Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch config.DBDriver {
	case DriverSQLite:
		dialector = sqlite.Open(config.SQLitePath)
	default:
		dialector = gormpostgres.Open(config.PostgresDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", config.DBDriver, err)
	}
	if err = db.AutoMigrate(&orderrepo.OrderDTO{}); err != nil {
		return nil, fmt.Errorf("migrate orders: %w", err)
	}
	return db, nil
}

type CompositionRoot struct {
	config      Config
	gormDB      *gorm.DB
	uowFactory  *postgres.GormUnitOfWorkFactory
	reader      *orderrepo.SqlxOrderReader
	machine     services.StateMachine
	clock       services.Clock
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	publisher   *broker.OrderUpdatesPublisher
	broadcaster *notifier.Broadcaster
	logger      *slog.Logger
}

func NewCompositionRoot(config Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	machine, err := services.NewStateMachine(services.NewActionGateway(), config.PhaseTargets())
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	readerDriver := "sqlite3"
	if config.DBDriver == DriverPostgres {
		readerDriver = "postgres"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var sinks []notifier.Sink
	var publisher *broker.OrderUpdatesPublisher
	if len(config.KafkaBrokers) > 0 {
		publisher = broker.NewOrderUpdatesPublisher(broker.Config{
			Brokers:        config.KafkaBrokers,
			Topic:          config.KafkaOrderUpdatesTopic,
			BatchTimeout:   config.KafkaBatchTimeout,
			PublishTimeout: config.KafkaPublishTimeout,
		})
		sinks = append(sinks, publisher)
	}

	return &CompositionRoot{
		config:      config,
		gormDB:      gormDB,
		uowFactory:  postgres.NewGormUnitOfWorkFactory(gormDB),
		reader:      orderrepo.NewSqlxOrderReader(sqlDB, readerDriver),
		machine:     machine,
		clock:       services.SystemClock{},
		registry:    registry,
		metrics:     m,
		publisher:   publisher,
		broadcaster: notifier.NewBroadcaster(logger, m, sinks...),
		logger:      logger,
	}, nil
}

func (c *CompositionRoot) orderUoWFactory() commands.OrderUoWFactory {
	return FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) observers() commands.Observers {
	return commands.Observers{
		Publisher: c.broadcaster,
		Recorder:  c.metrics,
		Logger:    c.logger,
	}
}

func (c *CompositionRoot) CreatePlaceOrderCommandHandler() commands.PlaceOrderCommandHandler {
	return commands.NewPlaceOrderCommandHandler(c.orderUoWFactory(), c.clock, c.observers())
}

func (c *CompositionRoot) CreatePerformActionCommandHandler() commands.PerformActionCommandHandler {
	return commands.NewPerformActionCommandHandler(c.orderUoWFactory(), c.machine, c.clock, c.observers())
}

func (c *CompositionRoot) CreateSetPaymentCommandHandler() commands.SetPaymentCommandHandler {
	return commands.NewSetPaymentCommandHandler(c.orderUoWFactory(), c.machine.Gateway(), c.clock, c.observers())
}

func (c *CompositionRoot) CreateSubmitFeedbackCommandHandler() commands.SubmitFeedbackCommandHandler {
	return commands.NewSubmitFeedbackCommandHandler(c.orderUoWFactory(), c.machine, c.clock, c.observers())
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.reader, c.machine.Gateway(), services.NewProgressEngine(), c.clock)
}

func (c *CompositionRoot) CreateGetAvailableActionsQueryHandler() queries.GetAvailableActionsQueryHandler {
	return queries.NewGetAvailableActionsQueryHandler(c.reader, c.machine.Gateway())
}

func (c *CompositionRoot) CreateGetOrdersProgressQueryHandler() queries.GetOrdersProgressQueryHandler {
	return queries.NewGetOrdersProgressQueryHandler(
		c.reader,
		c.machine.Gateway(),
		services.NewProgressEngine(),
		c.clock,
		c.config.ProgressBatchLimit,
		c.metrics,
	)
}

func (c *CompositionRoot) CreateListOrdersQueryHandler() queries.ListOrdersQueryHandler {
	return queries.NewListOrdersQueryHandler(c.reader, services.NewOrderFilter())
}

func (c *CompositionRoot) CreateJobManager() (*jobs.JobManager, error) {
	monitor, err := jobs.NewOverdueMonitorJob(
		c.CreateListOrdersQueryHandler(),
		c.clock,
		c.metrics,
		c.logger,
		jobs.WithOverdueSchedule(c.config.OverdueSchedule),
	)
	if err != nil {
		return nil, err
	}
	return jobs.NewJobManager(monitor), nil
}

// CreateRouter wires the API, /metrics and the swagger UI.
func (c *CompositionRoot) CreateRouter(ctx context.Context) (*echo.Echo, error) {
	server := httpapi.NewServer(httpapi.Handlers{
		PlaceOrder:          c.CreatePlaceOrderCommandHandler(),
		PerformAction:       c.CreatePerformActionCommandHandler(),
		SetPayment:          c.CreateSetPaymentCommandHandler(),
		SubmitFeedback:      c.CreateSubmitFeedbackCommandHandler(),
		GetOrder:            c.CreateGetOrderQueryHandler(),
		GetAvailableActions: c.CreateGetAvailableActionsQueryHandler(),
		GetOrdersProgress:   c.CreateGetOrdersProgressQueryHandler(),
		ListOrders:          c.CreateListOrdersQueryHandler(),
	}, c.broadcaster, c.clock, c.logger)

	e := httpapi.NewRouter(server, httpapi.RouterOptions{
		Logger:     c.logger,
		JWTSecret:  c.config.JWTSecret,
		Middleware: []echo.MiddlewareFunc{c.metrics.Middleware()},
	})

	// Open event streams end when the server starts draining.
	e.Server.RegisterOnShutdown(c.broadcaster.Close)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})))

	if err := docs.Register(ctx); err != nil {
		return nil, err
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}

// Close stops event fan-out and releases the broker and the database.
func (c *CompositionRoot) Close() error {
	c.broadcaster.Close()

	var errList []error
	if c.publisher != nil {
		errList = append(errList, c.publisher.Close())
	}
	if sqlDB, err := c.gormDB.DB(); err == nil {
		errList = append(errList, sqlDB.Close())
	}
	return errors.Join(errList...)
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}
