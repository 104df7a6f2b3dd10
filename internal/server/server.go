package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sw33tLie/lootscope/internal/utils"
	"github.com/sw33tLie/lootscope/pkg/report"
	"github.com/sw33tLie/lootscope/pkg/storage"
)

// Generator is the part of polling.Generator the server drives.
type Generator interface {
	Trigger(lootLimit int64)
	GetLastReport() (*report.Artifact, error)
}

// RunLister lists recent generations. *storage.DB satisfies it.
type RunLister interface {
	ListRecentRuns(ctx context.Context, limit int) ([]storage.Run, error)
}

type Server struct {
	Gen              Generator
	Runs             RunLister // optional
	StaticDir        string
	DefaultLootLimit int64
}

func New(gen Generator, runs RunLister, staticDir string, defaultLootLimit int64) *Server {
	return &Server{
		Gen:              gen,
		Runs:             runs,
		StaticDir:        staticDir,
		DefaultLootLimit: defaultLootLimit,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /generate-csv/", s.handleGenerate)
	mux.HandleFunc("POST /generate-csv/", s.handleGenerate)
	mux.HandleFunc("GET /download-csv/", s.handleDownload)
	mux.HandleFunc("GET /status", s.handleStatus)

	// Static Files
	mux.Handle("GET /static/", http.StripPrefix("/static/", hidePrivateFiles(http.FileServer(http.Dir(s.StaticDir)))))

	return logRequests(mux)
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Log.Infof("Starting server on %s (static dir: %s)", addr, filepath.Clean(s.StaticDir))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		utils.Log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		utils.Log.Debugf("%s %s (%s)", r.Method, r.URL.Path, time.Since(start).Round(time.Microsecond))
	})
}

// hidePrivateFiles answers 404 for dotfiles and lock files, which include the
// report's in-flight temp file and its publish lock.
func hidePrivateFiles(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, part := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".lock") {
				http.NotFound(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
