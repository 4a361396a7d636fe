package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vk/opfuzz/internal/binary"
	"github.com/vk/opfuzz/internal/ctxlog"
	"github.com/vk/opfuzz/internal/hclspace"
	"github.com/vk/opfuzz/internal/report"
)

const (
	// maxServedTrials caps n on /trials.
	maxServedTrials = 1000
	// maxSpaceBytes caps the HCL body of POST /trials.
	maxSpaceBytes = 1 << 20
)

// router wires the HTTP endpoints.
func (a *App) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	r.Get("/health", a.healthHandler)
	r.Get("/space", a.spaceHandler)
	r.Get("/trials", a.trialsHandler)
	r.Post("/trials", a.trialsHandler)
	return r
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ctxlog.WithLogger(r.Context(), a.logger.With("request_id", middleware.GetReqID(r.Context())))
		ctxlog.FromContext(ctx).Debug("HTTP request.", "remote_addr", r.RemoteAddr, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// healthHandler reports liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// spaceHandler serves the active space as HCL.
func (a *App) spaceHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(hclspace.Encode(a.space))
}

type trialsResponse struct {
	Seed    int64           `json:"seed"`
	Scale   string          `json:"scale"`
	Records []report.Record `json:"records"`
	Summary report.Summary  `json:"summary"`
}

// trialsHandler serves /trials?seed=&scale=&n=&dim=. Unset parameters
// default to the app configuration; n defaults to 10. A POST body is an HCL
// space that replaces the configured one for this request.
func (a *App) trialsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	intParam := func(name string, def int64) (int64, error) {
		raw := q.Get(name)
		if raw == "" {
			return def, nil
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("query parameter %s: %w", name, err)
		}
		return v, nil
	}

	seed, err := intParam("seed", a.config.Seed)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := intParam("n", 10)
	if err == nil && (n < 1 || n > maxServedTrials) {
		err = fmt.Errorf("n must be in [1, %d]", maxServedTrials)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dim, err := intParam("dim", a.config.Dim)
	if err == nil && (dim < 0 || dim > binary.MaxDim) {
		err = fmt.Errorf("dim must be in [0, %d]", binary.MaxDim)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scale := a.config.Scale
	if raw := q.Get("scale"); raw != "" {
		if scale, err = binary.ParseScale(raw); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	s := a.space
	if r.Method == http.MethodPost {
		src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSpaceBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("reading space: %w", err))
			return
		}
		if s, err = loadSpaceBytes(ctx, a.config, scale, dim, src, "request.hcl"); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	} else if scale != a.config.Scale || dim != a.config.Dim {
		if s, err = loadSpace(ctx, a.config, scale, dim); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	records, stats, err := a.generate(ctx, batch{space: s, scale: scale, seed: seed, streams: 1, trials: int(n)})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	summary, err := report.Summarize(records, stats)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, trialsResponse{Seed: seed, Scale: scale.String(), Records: records, Summary: summary})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// startServer binds the configured port and serves in the background.
func (a *App) startServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring HTTP server.")

	addr := fmt.Sprintf(":%d", a.config.ServePort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	a.httpServer = &http.Server{
		Handler:           a.router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("🩺 HTTP server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// Serve returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

func (a *App) closeServer(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	if a.httpServer == nil {
		logger.Debug("HTTP server was not running.")
		return nil
	}

	// ctx is usually already cancelled here.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down HTTP server...")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	logger.Debug("HTTP server shut down gracefully.")
	return nil
}
