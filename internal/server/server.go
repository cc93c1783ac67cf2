package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/assetpulse/assetpulse-core/internal/config"
	"github.com/assetpulse/assetpulse-core/internal/db"
	"github.com/assetpulse/assetpulse-core/internal/journal"
	"github.com/assetpulse/assetpulse-core/internal/middleware"
	"github.com/assetpulse/assetpulse-core/internal/session"
)

// Server represents the AssetPulse monitoring server
type Server struct {
	config *config.Config

	// Core components
	registry *session.Registry
	store    db.Store
	journal  journal.Journal
	limiter  *middleware.RateLimiter
	hub      *Hub
	logger   *zap.Logger

	// HTTP server
	httpServer *http.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// State
	mu      sync.RWMutex
	running bool
}

// NewServer creates a new AssetPulse server wired to its persistence,
// session, and journal layers.
func NewServer(cfg *config.Config, store db.Store, jnl journal.Journal) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if jnl == nil {
		return nil, fmt.Errorf("journal cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	sessCfg := session.DefaultConfig()
	sessCfg.Seed = cfg.Detector.Seed
	sessCfg.BatchWindowSize = cfg.Detector.BatchWindowSize
	sessCfg.DebounceTicks = cfg.Assessment.DebounceTicks
	sessCfg.EnableRecovering = cfg.Assessment.EnableRecovering
	sessCfg.MinCoverage = cfg.Baseline.MinCoverage
	sessCfg.Assess.RangeWeight = cfg.Assessment.RangeWeight
	sessCfg.Assess.OverrideGap = cfg.Assessment.OverrideGap
	sessCfg.Assess.OverrideRangeWeight = cfg.Assessment.OverrideRangeWeight

	srv := &Server{
		config:   cfg,
		registry: session.NewRegistry(sessCfg),
		store:    store,
		journal:  jnl,
		limiter:  middleware.NewRateLimiter(cfg.Ingest.RateLimitPerMinute),
		hub:      NewHub(),
		logger:   jnl.AppLogger(),
		ctx:      ctx,
		cancel:   cancel,
	}

	return srv, nil
}

// Registry exposes the session registry, mainly for tests and the
// embedded simulator loop.
func (s *Server) Registry() *session.Registry {
	return s.registry
}

// Start starts the server
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.restoreSessions(s.ctx); err != nil {
		s.logger.Warn("session restore incomplete", zap.Error(err))
	}

	// Setup HTTP server
	mux := http.NewServeMux()
	s.registerHandlers(mux)

	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Start embedded demo stream if configured
	if s.config.Simulator.Enabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runSimulator()
		}()
	}

	s.journal.RecordServerStarted(s.ctx, addr)
	s.logger.Info("AssetPulse server started",
		zap.Int("port", s.config.Server.Port),
		zap.Bool("simulator", s.config.Simulator.Enabled),
		zap.Int("rate_limit_per_minute", s.config.Ingest.RateLimitPerMinute),
	)

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is not running")
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("stopping AssetPulse server")

	// Shutdown HTTP server
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down HTTP server", zap.Error(err))
		}
	}

	// Cancel context and wait for goroutines
	s.cancel()
	s.wg.Wait()

	s.hub.CloseAll()
	s.limiter.Stop()
	s.journal.RecordServerShutdown(context.Background())
	s.journal.Sync()

	s.logger.Info("AssetPulse server stopped")
	return nil
}

// Wait blocks until the server is stopped
func (s *Server) Wait() {
	<-s.ctx.Done()
}

// IsRunning returns whether the server is running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// restoreSessions replays persisted readings into fresh sessions so a
// restarted server does not lose its calibrations.
func (s *Server) restoreSessions(ctx context.Context) error {
	assets, err := s.assetIDsFromStore(ctx)
	if err != nil {
		return err
	}

	for _, assetID := range assets {
		recs, err := s.store.LatestReadings(ctx, assetID, session.MaxHistory)
		if err != nil {
			return fmt.Errorf("replay readings for %s: %w", assetID, err)
		}

		sess := s.registry.Session(assetID)
		for _, rec := range recs {
			sess.Ingest(rec.Reading())
		}

		// Recalibrate only if the asset had an active baseline before
		// the restart; otherwise leave it accumulating.
		bl, err := s.store.ActiveBaseline(ctx, assetID)
		if err != nil {
			return fmt.Errorf("load baseline for %s: %w", assetID, err)
		}
		if bl != nil {
			if _, err := sess.Calibrate(); err != nil {
				s.logger.Warn("recalibration after restart failed",
					zap.String("asset_id", assetID), zap.Error(err))
			}
		}

		s.logger.Info("session restored",
			zap.String("asset_id", assetID),
			zap.Int("readings", len(recs)),
			zap.Bool("calibrated", sess.Calibrated()),
		)
	}

	return nil
}

// assetIDsFromStore lists distinct assets with persisted readings.
func (s *Server) assetIDsFromStore(ctx context.Context) ([]string, error) {
	recs, err := s.store.QueryReadings(ctx, db.ReadingQuery{Limit: 10000})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var assets []string
	for _, rec := range recs {
		if !seen[rec.AssetID] {
			seen[rec.AssetID] = true
			assets = append(assets, rec.AssetID)
		}
	}
	return assets, nil
}

// registerHandlers registers HTTP handlers
func (s *Server) registerHandlers(mux *http.ServeMux) {
	// Health and readiness
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Ingest (rate limited)
	mux.HandleFunc("/api/v1/readings", s.limiter.Middleware(s.handleIngest))

	// Asset endpoints; per-asset routes are dispatched on path suffix
	mux.HandleFunc("/api/v1/assets", s.handleAssetList)
	mux.HandleFunc("/api/v1/assets/", s.handleAsset)

	// Fleet-wide condition events
	mux.HandleFunc("/api/v1/events", s.handleEvents)

	// Live stream
	mux.HandleFunc("/ws/stream", s.handleStream)
}
