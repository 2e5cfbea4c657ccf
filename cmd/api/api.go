package main

import (
	"context"
	"net/http"
	"time"

	"github.com/farxc/separacao-pedidos/internal/lock"
	"github.com/farxc/separacao-pedidos/internal/logger"
	"github.com/farxc/separacao-pedidos/internal/separation"
	"github.com/farxc/separacao-pedidos/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// pinger is satisfied by *sqlx.DB.
type pinger interface {
	PingContext(ctx context.Context) error
}

type application struct {
	config   config
	store    store.Storage
	db       pinger
	engine   *separation.Engine
	locker   lock.Locker
	validate *validator.Validate
	logger   *logger.Logger
}

type config struct {
	addr          string
	db            dbConfig
	redis         redisConfig
	batchSize     int
	maxProblems   int
	melanciaCodes []string
	maxUploadMB   int
	logLevel      string
	logFormat     string
}

type dbConfig struct {
	addr         string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
	autoMigrate  bool
}

type redisConfig struct {
	addr     string
	lockTTL  time.Duration
	lockWait time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.Route("/separations", func(r chi.Router) {
			r.Get("/", app.handleListSeparations)
			r.Post("/", app.handleCreateSeparation)
			r.Get("/active", app.handleGetActiveSeparation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.handleGetSeparation)
				r.Patch("/status", app.handleUpdateSeparationStatus)
				r.Get("/materials", app.handleListMaterials)

				r.Post("/reinforcement", app.handleReconcile(separation.ModeReinforcement))
				r.Post("/redistribution", app.handleReconcile(separation.ModeRedistribution))
				r.Post("/melancia/{code}", app.handleOverrideMelancia)

				r.Post("/cuts/preview", app.handlePreviewCut)
				r.Post("/cuts", app.handleCut)

				r.Get("/views/pre-separation", app.handleZoneView)
				r.Get("/views/separation", app.handleStoreView)

				r.Post("/stock/{kind}", app.handleUploadStock)
				r.Get("/stock/comparison", app.handleStockComparison)

				r.Get("/audit", app.handleGetAudit)
			})
		})
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	const component = "Server"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	app.logger.Info(component, "Server started: addr=%s", app.config.addr)
	return srv.ListenAndServe()
}
