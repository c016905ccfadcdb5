package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/loqalabs/loqa-interview/internal/bus"
	"github.com/loqalabs/loqa-interview/internal/camera"
	"github.com/loqalabs/loqa-interview/internal/config"
	"github.com/loqalabs/loqa-interview/internal/interview"
	"github.com/loqalabs/loqa-interview/internal/natsserver"
	"github.com/loqalabs/loqa-interview/internal/questionbank"
	"github.com/loqalabs/loqa-interview/internal/scoring"
	"github.com/loqalabs/loqa-interview/internal/stt"
	"go.opentelemetry.io/otel"
)

// Runtime wires the interview session to its adapters and the local HTTP surface.
type Runtime struct {
	cfg    config.Config
	logger *slog.Logger

	telemetryClose func(context.Context) error
	metricsHandler http.Handler
	embedded       *natsserver.EmbeddedServer
	bus            *bus.Client

	bank      *questionbank.Bank
	capture   stt.Capture
	camera    *camera.View
	session   *interview.Session
	driver    *interview.Driver
	autopilot *interview.Autopilot

	httpServer *http.Server
	ready      atomic.Bool
	wg         sync.WaitGroup
	setup      bool
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Setup builds every component. It must be called once before Run.
func (r *Runtime) Setup(ctx context.Context) error {
	if r.setup {
		return errors.New("runtime already set up")
	}

	shutdownTelemetry, metricsHandler, err := setupTelemetry(ctx, r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.telemetryClose = shutdownTelemetry
	r.metricsHandler = metricsHandler

	if err := r.setupBus(ctx); err != nil {
		r.teardown()
		return err
	}

	r.bank, err = questionbank.LoadOrDefault(r.cfg.Interview.QuestionBank)
	if err != nil {
		r.teardown()
		return fmt.Errorf("failed to load question bank: %w", err)
	}

	r.capture, err = stt.New(r.cfg.STT, r.bus, r.logger)
	if err != nil {
		r.teardown()
		return fmt.Errorf("failed to create speech capture: %w", err)
	}
	if !r.capture.Available() {
		r.logger.Warn("speech recognition not supported, recording disabled", slog.String("mode", r.cfg.STT.Mode))
	}

	device, err := camera.New(r.cfg.Camera, r.logger)
	if err != nil {
		r.teardown()
		return fmt.Errorf("failed to create camera device: %w", err)
	}
	r.camera = camera.NewView(device, camera.Constraints{
		Width:      r.cfg.Camera.Width,
		Height:     r.cfg.Camera.Height,
		FacingMode: r.cfg.Camera.FacingMode,
	}, r.logger)

	opts := []interview.Option{
		interview.WithLogger(r.logger),
		interview.WithContext(ctx),
		interview.WithAnswerSeconds(r.cfg.Interview.AnswerSeconds),
		interview.WithThresholds(scoring.Thresholds{
			Excellent: r.cfg.Interview.ExcellentThreshold,
			Good:      r.cfg.Interview.GoodThreshold,
		}),
	}
	metrics, err := newMetricsObserver(otel.Meter("github.com/loqalabs/loqa-interview"), r.logger)
	if err != nil {
		r.logger.Warn("interview metrics disabled", slogError(err))
	} else {
		opts = append(opts, interview.WithObserver(metrics))
	}
	if r.bus != nil {
		opts = append(opts, interview.WithObserver(newEventPublisher(r.bus)))
	}
	r.session = interview.NewSession(r.bank, r.capture, opts...)
	r.driver = interview.NewDriver(r.session,
		time.Duration(r.cfg.Interview.TickIntervalMS)*time.Millisecond, r.logger)

	r.setup = true
	r.logger.Info("runtime configured",
		slog.String("bank", r.bank.Name()),
		slog.Int("questions", r.bank.Len()),
		slog.String("stt_mode", r.cfg.STT.Mode),
		slog.String("camera_mode", r.cfg.Camera.Mode))
	return nil
}

func (r *Runtime) setupBus(ctx context.Context) error {
	if !r.cfg.Bus.Enabled {
		return nil
	}
	busCfg := r.cfg.Bus
	embedded, err := natsserver.Start(busCfg, r.logger.With(slog.String("component", "nats")))
	if err != nil {
		return fmt.Errorf("failed to start embedded bus: %w", err)
	}
	r.embedded = embedded
	if embedded != nil {
		busCfg.Servers = []string{embedded.ClientURL()}
	}
	client, err := bus.Connect(ctx, busCfg, r.cfg.RuntimeName, r.logger.With(slog.String("component", "bus")))
	if err != nil {
		return fmt.Errorf("failed to connect to bus: %w", err)
	}
	r.bus = client
	return nil
}

// EnableAutopilot answers the session unattended. Call it between Setup and Run.
func (r *Runtime) EnableAutopilot() *interview.Autopilot {
	if r.autopilot == nil {
		r.autopilot = interview.NewAutopilot(r.driver, r.logger)
	}
	return r.autopilot
}

func (r *Runtime) Driver() *interview.Driver { return r.driver }

func (r *Runtime) Camera() *camera.View { return r.camera }

func (r *Runtime) Bank() *questionbank.Bank { return r.bank }

// Run drives the session and serves HTTP until ctx is cancelled, then releases
// every device and connection.
func (r *Runtime) Run(ctx context.Context) error {
	if !r.setup {
		return errors.New("runtime not set up")
	}
	defer r.teardown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.cfg.HTTP.Enabled {
		addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
		r.httpServer = &http.Server{
			Addr:              addr,
			Handler:           r.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("http server failed", slogError(err))
			}
		}()
		r.logger.Info("http surface listening", slog.String("addr", addr))
	}

	driverErr := make(chan error, 1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		driverErr <- r.driver.Run(ctx)
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started")

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if r.httpServer != nil {
		if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("http shutdown error", slogError(err))
		}
	}
	r.wg.Wait()
	if err := <-driverErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Start is Setup followed by Run.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.Setup(ctx); err != nil {
		return err
	}
	return r.Run(ctx)
}

func (r *Runtime) teardown() {
	if r.session != nil {
		r.session.Close()
	}
	if r.camera != nil {
		_ = r.camera.Close()
	}
	if r.bus != nil {
		r.bus.Close()
		r.bus = nil
	}
	if r.embedded != nil {
		r.embedded.Shutdown()
		r.embedded = nil
	}
	if r.telemetryClose != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.telemetryClose(ctx); err != nil {
			r.logger.Error("telemetry shutdown error", slogError(err))
		}
		r.telemetryClose = nil
	}
}

// Handler is the HTTP surface: probes, metrics and a read-only session view.
func (r *Runtime) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", r.handleHealth)
	router.Get("/readyz", r.handleReady)
	if r.metricsHandler != nil {
		router.Handle("/metrics", r.metricsHandler)
	}
	router.Route("/v1/session", func(sr chi.Router) {
		sr.Get("/", r.handleSession)
		sr.Get("/records/{index}", r.handleRecord)
	})
	return router
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) handleSession(w http.ResponseWriter, _ *http.Request) {
	if r.driver == nil {
		http.Error(w, "session not initialized", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, r.driver.Snapshot())
}

func (r *Runtime) handleRecord(w http.ResponseWriter, req *http.Request) {
	if r.driver == nil {
		http.Error(w, "session not initialized", http.StatusServiceUnavailable)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(req, "index"))
	if err != nil {
		http.Error(w, "invalid record index", http.StatusBadRequest)
		return
	}
	records := r.driver.Snapshot().Records
	if index < 0 || index >= len(records) {
		http.Error(w, "record not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, records[index])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
