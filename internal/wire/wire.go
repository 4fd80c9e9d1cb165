// Package wire provides dependency injection for leadrouter.
// It builds the services once from configuration with lazy initialization.
package wire

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	cliadapter "github.com/example/leadrouter/internal/adapters/cli"
	"github.com/example/leadrouter/internal/adapters/lock"
	"github.com/example/leadrouter/internal/adapters/postgres"
	"github.com/example/leadrouter/internal/adapters/rabbitmq"
	"github.com/example/leadrouter/internal/adapters/sqlite"
	"github.com/example/leadrouter/internal/app"
	"github.com/example/leadrouter/internal/config"
	"github.com/example/leadrouter/internal/db"
	"github.com/example/leadrouter/internal/logging"
	"github.com/example/leadrouter/internal/metrics"
	"github.com/example/leadrouter/internal/ports/primary"
	"github.com/example/leadrouter/internal/ports/secondary"
)

// Container holds the wired services and the resources they own.
type Container struct {
	Config      *config.Config
	Logger      *logging.SlogLogger
	Metrics     *metrics.PrometheusCollector
	Assignments primary.AssignmentService
	Consultants primary.ConsultantService

	// AuditLog is nil when the configured sink cannot be queried.
	AuditLog secondary.AuditLog

	// SQL is the SQLite handle, nil for the postgres driver.
	SQL *sql.DB

	closers []func() error
}

// repositories groups the driver-specific secondary adapters.
type repositories struct {
	consultants   secondary.ConsultantRepository
	stats         secondary.ConsultantStatsProvider
	assignments   secondary.AssignmentRepository
	history       secondary.AssignmentHistory
	store         secondary.AssignmentStore
	reassignments secondary.ReassignmentRepository
	audit         interface {
		secondary.AuditSink
		secondary.AuditLog
	}
}

// Build wires every service described by cfg. Logs go to logOut.
func Build(ctx context.Context, cfg *config.Config, logOut io.Writer) (*Container, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, logOut)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewPrometheus(prometheus.NewRegistry(), ""),
	}

	repos, err := c.openRepositories(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	var sink secondary.AuditSink
	switch cfg.Audit.Sink {
	case config.AuditSQLite:
		sink = repos.audit
		c.AuditLog = repos.audit
	case config.AuditRabbitMQ:
		publisher, err := rabbitmq.Dial(cfg.Audit.AMQPURL, cfg.Audit.Exchange, logger.With("component", "audit"))
		if err != nil {
			c.Close()
			return nil, err
		}
		c.closers = append(c.closers, publisher.Close)
		sink = publisher
	}

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithMetrics(c.Metrics),
		app.WithStrategy(cfg.Engine.Strategy),
		app.WithLockTimeout(cfg.Engine.LockTimeout),
		app.WithMaxActiveAssignments(cfg.Engine.MaxActiveAssignments),
		app.WithPairingWindow(cfg.Engine.PairingWindow),
		app.WithIdlePreference(cfg.Engine.IdlePreference),
	}

	committer, err := app.NewCommitter(repos.store, lock.NewTable(nil), opts...)
	if err != nil {
		c.Close()
		return nil, err
	}
	tracker := app.NewReassignmentTracker(repos.reassignments, opts...)

	assignments := app.NewAssignmentService(repos.stats, repos.history, repos.assignments, repos.consultants,
		committer, tracker, sink, opts...)
	c.Assignments = assignments
	c.Consultants = app.NewConsultantService(repos.consultants, repos.assignments, assignments, sink, opts...)

	return c, nil
}

func (c *Container) openRepositories(ctx context.Context) (*repositories, error) {
	switch c.Config.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, c.Config.Database.DSN)
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, func() error { pool.Close(); return nil })

		consultants := postgres.NewConsultantRepository(pool, nil)
		assignments := postgres.NewAssignmentRepository(pool)
		return &repositories{
			consultants:   consultants,
			stats:         consultants,
			assignments:   assignments,
			history:       assignments,
			store:         postgres.NewAssignmentStore(pool),
			reassignments: postgres.NewReassignmentRepository(pool),
			audit:         postgres.NewAuditWriter(pool),
		}, nil

	default:
		path, err := c.Config.DBPath()
		if err != nil {
			return nil, err
		}
		database, err := db.Open(path)
		if err != nil {
			return nil, err
		}
		c.SQL = database
		c.closers = append(c.closers, database.Close)

		consultants := sqlite.NewConsultantRepository(database, nil)
		assignments := sqlite.NewAssignmentRepository(database)
		return &repositories{
			consultants:   consultants,
			stats:         consultants,
			assignments:   assignments,
			history:       assignments,
			store:         sqlite.NewAssignmentStore(database),
			reassignments: sqlite.NewReassignmentRepository(database),
			audit:         sqlite.NewAuditWriter(database),
		}, nil
	}
}

// Close releases the database and broker connections.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

var (
	container *Container
	initErr   error
	once      sync.Once
	configDir = "."
)

// SetConfigDir sets the directory config is loaded from. It must be called
// before the first call to Get.
func SetConfigDir(dir string) {
	configDir = dir
}

// Get returns the process-wide container, building it on first use.
func Get() (*Container, error) {
	once.Do(func() {
		cfg, err := config.LoadConfig(configDir)
		if err != nil {
			initErr = err
			return
		}
		container, initErr = Build(context.Background(), cfg, os.Stderr)
		if initErr != nil {
			initErr = fmt.Errorf("failed to initialize leadrouter: %w", initErr)
		}
	})
	return container, initErr
}

// Shutdown closes the process-wide container if it was built.
func Shutdown() error {
	if container == nil {
		return nil
	}
	return container.Close()
}

// AssignmentAdapter returns a new AssignmentAdapter writing to out.
// Each call creates a new adapter (adapters are stateless translators).
func AssignmentAdapter(out io.Writer) (*cliadapter.AssignmentAdapter, error) {
	c, err := Get()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewAssignmentAdapter(c.Assignments, out, app.IsRetryable), nil
}

// ConsultantAdapter returns a new ConsultantAdapter writing to out.
func ConsultantAdapter(out io.Writer) (*cliadapter.ConsultantAdapter, error) {
	c, err := Get()
	if err != nil {
		return nil, err
	}
	return cliadapter.NewConsultantAdapter(c.Consultants, out), nil
}

// AuditAdapter returns a new AuditAdapter writing to out, or an error when
// the configured sink cannot be read back.
func AuditAdapter(out io.Writer) (*cliadapter.AuditAdapter, error) {
	c, err := Get()
	if err != nil {
		return nil, err
	}
	if c.AuditLog == nil {
		return nil, fmt.Errorf("audit sink %q cannot be queried", c.Config.Audit.Sink)
	}
	return cliadapter.NewAuditAdapter(c.AuditLog, out), nil
}
