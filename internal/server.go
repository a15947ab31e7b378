package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/progression/internal/cache"
	"github.com/2beens/progression/internal/catalog"
	"github.com/2beens/progression/internal/clock"
	"github.com/2beens/progression/internal/config"
	"github.com/2beens/progression/internal/db"
	"github.com/2beens/progression/internal/middleware"
	"github.com/2beens/progression/internal/program"
	"github.com/2beens/progression/internal/program/pgstore"
	"github.com/2beens/progression/internal/sessions"
	"github.com/2beens/progression/internal/telemetry/metrics"
	"github.com/2beens/progression/internal/telemetry/tracing"
	"github.com/2beens/progression/internal/weights"
	"github.com/2beens/progression/pkg"
)

const (
	weightRoundingKg    = 2.5
	maxRequestBodyBytes = 64 << 10
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	apiSecret         string
	versionInfo       string

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client
	rateLimiter middleware.RequestRateLimiter

	services services

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

// services are the domain components behind the HTTP surface.
type services struct {
	controller *program.Controller
	queries    *program.QueryService
	workouts   *program.WorkoutBuilder
	catalog    catalogRepo
	sessions   sessionsRepo
	suggester  program.WeightSuggester
	clock      clock.Clock
}

type catalogRepo interface {
	GetExerciseType(ctx context.Context, exerciseTypeID string) (catalog.ExerciseType, error)
	ListExerciseTypes(ctx context.Context, params catalog.ListParams) ([]catalog.ExerciseType, error)
	AddExerciseType(ctx context.Context, exerciseType catalog.ExerciseType) error
}

type sessionsRepo interface {
	program.SessionLookup
	Start(ctx context.Context, enrollmentID, programDayID int, startedAt time.Time) (*sessions.Session, error)
	Finish(ctx context.Context, sessionID int, finishedAt time.Time) (*sessions.Session, error)
	Get(ctx context.Context, sessionID int) (*sessions.Session, error)
}

// sessionDayRecorder completes the program day of a session being finished.
// A day that is no longer startable keeps its state and the session still
// finishes.
type sessionDayRecorder struct {
	controller *program.Controller
}

func (r sessionDayRecorder) RecordSessionDay(ctx context.Context, session sessions.Session) error {
	_, err := r.controller.CompleteSessionDay(ctx, session.EnrollmentID, session.ProgramDayID, session.ID)
	var stateErr *program.InvalidStateError
	if errors.As(err, &stateErr) {
		log.Debugf("session [%d] finished without completing its day: %s", session.ID, err)
		return nil
	}
	return err
}

type NewServerParams struct {
	Config                  *config.Config
	APISecret               string
	VersionInfo             string
	DBPassword              string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone [%s]: %w", cfg.Timezone, err)
	}

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:          cfg.PostgresHost,
		DBPort:          cfg.PostgresPort,
		DBName:          cfg.PostgresDBName,
		DBUser:          cfg.PostgresUser,
		DBPassword:      params.DBPassword,
		MaxConns:        cfg.PostgresMaxConns,
		MinConns:        cfg.PostgresMinConns,
		MaxConnIdleTime: cfg.PostgresMaxConnIdleTime.Duration,
		TracingEnabled:  params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	} else if err := db.Migrate(ctx, dbPool); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus("progression", pgxpoolCollector)
	metricsManager := metrics.NewManager("progression", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: params.RedisPassword,
		DB:       0,
	})
	if params.HoneycombTracingEnabled {
		rdb.AddHook(redisotel.NewTracingHook())
	}

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "progression-backend")
	if err != nil {
		return nil, err
	}

	clk := clock.NewSystem(loc)
	store := pgstore.NewStore(dbPool)
	programCache := cache.NewProgramCache(store, cfg.ProgramCacheSizeMB)
	summaryCache := cache.NewSummaryCache(rdb, cfg.SummaryCacheTTL.Duration)
	catalogRepo := catalog.NewRepo(dbPool)
	sessionsRepo := sessions.NewRepo(dbPool)
	weightsRepo := weights.NewRepo(dbPool)

	return &Server{
		apiSecret:   params.APISecret,
		versionInfo: params.VersionInfo,
		config:      cfg,
		dbPool:      dbPool,
		redisClient: rdb,
		rateLimiter: redis_rate.NewLimiter(rdb),
		services: newServices(serviceDeps{
			store:        store,
			programs:     programCache,
			summaries:    summaryCache,
			catalog:      catalogRepo,
			sessions:     sessionsRepo,
			suggester:    weights.NewSuggester(weightsRepo, clk, weightRoundingKg),
			clock:        clk,
			metrics:      metricsManager,
			storeTimeout: cfg.StoreTimeout.Duration,
		}),
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

type serviceDeps struct {
	store        program.Store
	programs     program.ProgramStore // optional read-through cache of the store's programs
	summaries    *cache.SummaryCache  // optional
	catalog      catalogRepo
	sessions     sessionsRepo
	suggester    program.WeightSuggester
	clock        clock.Clock
	metrics      *metrics.Manager
	storeTimeout time.Duration
}

func newServices(deps serviceDeps) services {
	var readRepo program.Repo = deps.store
	if deps.programs != nil {
		readRepo = program.WithProgramStore(deps.store, deps.programs)
	}

	var (
		listeners []program.ChangeListener
		summaries program.SummaryCache
	)
	if deps.summaries != nil {
		listeners = append(listeners, deps.summaries)
		summaries = deps.summaries
	}

	return services{
		controller: program.NewController(program.ControllerParams{
			Store:        deps.store,
			Clock:        deps.clock,
			Sessions:     deps.sessions,
			Catalog:      deps.catalog,
			Metrics:      deps.metrics,
			StoreTimeout: deps.storeTimeout,
			Listeners:    listeners,
		}),
		queries: program.NewQueryService(program.QueryServiceParams{
			Repo:         readRepo,
			Clock:        deps.clock,
			Sessions:     deps.sessions,
			Summaries:    summaries,
			Metrics:      deps.metrics,
			StoreTimeout: deps.storeTimeout,
		}),
		workouts:   program.NewWorkoutBuilder(readRepo, deps.catalog, deps.suggester),
		catalog:    deps.catalog,
		sessions:   deps.sessions,
		suggester:  deps.suggester,
		clock:      deps.clock,
	}
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("progression-router"))

	r.HandleFunc("/", s.handleVersion).Methods("GET").Name("root")
	r.HandleFunc("/version", s.handleVersion).Methods("GET").Name("version")

	programHandler := program.NewHandler(
		s.services.controller,
		s.services.queries,
		s.services.workouts,
	)
	programHandler.SetupRoutes(r)

	catalogHandler := catalog.NewHandler(s.services.catalog)
	catalogHandler.SetupRoutes(r.PathPrefix("/catalog").Subrouter())

	sessionsHandler := sessions.NewHandler(
		s.services.sessions,
		sessionDayRecorder{controller: s.services.controller},
		s.services.clock,
	)
	sessionsHandler.SetupRoutes(r.PathPrefix("/sessions").Subrouter())

	weightsHandler := weights.NewHandler(s.services.suggester)
	weightsHandler.SetupRoutes(r.PathPrefix("/weights").Subrouter())

	// all the rest - unhandled paths
	r.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONError(w, "not found", http.StatusNotFound)
	}).Methods("GET", "POST", "PUT", "DELETE", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.apiSecret)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(authMiddleware.AuthCheck())
	if s.rateLimiter != nil {
		r.Use(middleware.RateLimit(s.rateLimiter, s.metricsManager, "progression", s.config.CommandsPerMinute))
	}
	r.Use(middleware.LimitAndDrainBody(maxRequestBodyBytes))

	return r
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSON(w, map[string]string{
		"service": "progression",
		"version": s.versionInfo,
	}, http.StatusOK)
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:           router,
		Addr:              ipAndPort,
		WriteTimeout:      time.Minute,
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests first, in-flight commands still need the db
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown metrics http server: %s", err)
		}
		log.Warnln("metrics server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}
