package app

import (
	"context"
	"fmt"
	"net/http"

	"teamflow/bizerror"
	"teamflow/client/s3"
	"teamflow/common"
	"teamflow/domain/assignment"
	"teamflow/domain/report"
	"teamflow/infra/tracing"
	"teamflow/ledger"
	"teamflow/ledger/dbstore"
	"teamflow/ledger/memstore"
	"teamflow/ledger/objectstore"
	"teamflow/persistence"
	"teamflow/roster"
	"teamflow/security"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	BackendDatabase = "database"
	BackendOSS      = "oss"
	BackendMemory   = "memory"
)

type Options struct {
	// RosterFile overrides ROSTER_FILE
	RosterFile string
	// Backend overrides LEDGER_BACKEND
	Backend string
}

type App struct {
	Roster      *roster.Roster
	Ledger      *ledger.Ledger
	Assignments *assignment.Manager
	Reports     *report.Facade

	ds *persistence.DataSourceManager
}

// Bootstrap loads the roster, connects the ledger backend and wires the managers.
// An unusable roster fails here, before anything is served.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	r, err := loadRoster(opts.RosterFile)
	if err != nil {
		return nil, err
	}
	config, err := ledger.ParseConfigFromEnv()
	if err != nil {
		return nil, err
	}

	a := &App{Roster: r}
	backend, err := a.buildBackend(ctx, backendKind(opts))
	if err != nil {
		a.Close()
		return nil, err
	}

	if a.Ledger, err = ledger.New(backend, config); err != nil {
		a.Close()
		return nil, err
	}
	a.Assignments = assignment.NewManager(a.Ledger, r, security.GateFromEnv())
	a.Reports = report.NewFacade(a.Ledger, r)

	logrus.WithFields(logrus.Fields{"backend": backendKind(opts), "concurrency": config.Concurrency,
		"members": len(r.Members)}).Info("ledger ready")
	return a, nil
}

// Migrate prepares the database backend tables, other backends need no preparation.
func Migrate(ctx context.Context, opts Options) error {
	if kind := backendKind(opts); kind != BackendDatabase {
		logrus.WithField("backend", kind).Info("nothing to migrate")
		return nil
	}
	a := &App{}
	defer a.Close()
	_, err := a.buildBackend(ctx, BackendDatabase)
	return err
}

func (a *App) Engine() *gin.Engine {
	engine := gin.Default()
	engine.Use(bizerror.ErrorHandling())
	engine.Use(tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.GetServiceName())
	})

	assignment.RegisterAssignmentsRestAPI(engine, a.Assignments)
	report.RegisterReportsRestAPI(engine, a.Reports)
	return engine
}

func (a *App) Close() {
	if a.ds != nil {
		a.ds.Stop()
		a.ds = nil
	}
}

func (a *App) buildBackend(ctx context.Context, kind string) (ledger.Backend, error) {
	switch kind {
	case BackendMemory:
		logrus.Warn("ledger kept in memory, records are lost on exit")
		return memstore.New(), nil
	case BackendOSS:
		if err := s3.Bootstrap(); err != nil {
			return nil, err
		}
		return objectstore.New(common.EnvOrDefault("LEDGER_OBJECT_KEY", "ledger.csv")), nil
	case BackendDatabase:
		dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
		if err != nil {
			return nil, err
		}
		if dbConfig.DriverType == persistence.DriverMysql {
			if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
				return nil, err
			}
		}
		ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
		if err := ds.Start(); err != nil {
			return nil, err
		}
		a.ds = ds

		store := dbstore.New(ds)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported LEDGER_BACKEND '%s'", kind)
	}
}

func backendKind(opts Options) string {
	if opts.Backend != "" {
		return opts.Backend
	}
	return common.EnvOrDefault("LEDGER_BACKEND", BackendDatabase)
}

func loadRoster(path string) (*roster.Roster, error) {
	if path != "" {
		return roster.Load(path)
	}
	return roster.FromEnv()
}
