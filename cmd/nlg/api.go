package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/CTAG07/nlg/pkg/nlg"
	"github.com/google/uuid"
)

// maxFeedBytes limits the size of a single training upload.
const maxFeedBytes = 10 << 20

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// ProduceResponse is returned by the produce endpoint.
type ProduceResponse struct {
	Text string `json:"text"`
}

type requestIDKey struct{}

// GeneratorAPI holds the dependencies for the generator API handlers. The
// generator is not safe for concurrent use, so every handler holds mu.
type GeneratorAPI struct {
	mu     sync.Mutex
	gen    *nlg.Generator
	logger *slog.Logger
}

// NewGeneratorAPI creates a new instance of the GeneratorAPI.
func NewGeneratorAPI(gen *nlg.Generator, logger *slog.Logger) *GeneratorAPI {
	return &GeneratorAPI{
		gen:    gen,
		logger: logger,
	}
}

// RegisterRoutes sets up the routing for all /api endpoints.
func (a *GeneratorAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/feed", a.handleFeed)
	mux.HandleFunc("/api/produce", a.handleProduce)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/version", a.handleVersion)
}

// Handler returns the API routes wrapped with request ID tagging.
func (a *GeneratorAPI) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return withRequestID(a.logger, mux)
}

// handleFeed trains the model with the request body, one instance per line.
// The body is read in full first so an oversized upload trains nothing.
func (a *GeneratorAPI) handleFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFeedBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Training data too large")
			return
		}
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Could not read training data: %v", err))
		return
	}

	a.mu.Lock()
	err = a.gen.Train(r.Context(), bytes.NewReader(data))
	a.mu.Unlock()
	if err != nil {
		if errors.Is(err, nlg.ErrReservedToken) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error("Failed to train model", "request_id", requestID(r.Context()), "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleProduce generates one instance.
func (a *GeneratorAPI) handleProduce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a.mu.Lock()
	text, err := a.gen.Produce(r.Context())
	a.mu.Unlock()
	if err != nil {
		if errors.Is(err, nlg.ErrEmptyModel) {
			respondWithError(w, http.StatusConflict, "Model has not been trained yet")
			return
		}
		a.logger.Error("Failed to produce text", "request_id", requestID(r.Context()), "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, ProduceResponse{Text: text})
}

// handleStats returns a snapshot of the frequency table statistics.
func (a *GeneratorAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	a.mu.Lock()
	stats, err := a.gen.Stats(r.Context())
	a.mu.Unlock()
	if err != nil {
		a.logger.Error("Failed to get stats", "request_id", requestID(r.Context()), "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve stats: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// handleVersion returns the application's build information.
func (a *GeneratorAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

// withRequestID tags every request with an X-Request-ID, reusing the one sent
// by the client when present, and logs the request once it has been served.
func withRequestID(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		logger.Debug("Request served",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// requestID returns the request ID stored in ctx, if any.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		err := json.NewEncoder(w).Encode(payload)
		if err != nil {
			fmt.Printf("ERROR: Failed to encode JSON response: %v\n", err)
		}
	}
}
