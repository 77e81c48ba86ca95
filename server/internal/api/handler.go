package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/eshopco/latencymetrics/server/internal/aggregate"
	"github.com/eshopco/latencymetrics/server/internal/telemetry"
)

// maxBodyBytes caps the size of an aggregation request body.
const maxBodyBytes = 1 << 20

// Options configures the HTTP surface.
type Options struct {
	// ServiceName is reported by GET /.
	ServiceName string

	// AllowOrigin is sent as Access-Control-Allow-Origin on every response.
	AllowOrigin string

	// DefaultThresholdMs is used by /metrics when threshold_ms is not given.
	DefaultThresholdMs float64

	// Stream, when non-nil, is mounted at /ws/latency.
	Stream http.Handler
}

// Handler serves the latency API. It reads from an immutable telemetry
// store and holds no per-request state.
type Handler struct {
	store *telemetry.Store
	opts  Options
	mux   *http.ServeMux
}

// New creates the API handler wired to st, with CORS and request logging
// applied to every route.
func New(st *telemetry.Store, opts Options) http.Handler {
	h := &Handler{store: st, opts: opts, mux: http.NewServeMux()}

	h.mux.HandleFunc("/", h.root)
	h.mux.HandleFunc("/favicon.ico", h.favicon)
	h.mux.HandleFunc("/ping", h.ping)
	h.mux.HandleFunc("/api/ping", h.ping)
	h.mux.HandleFunc("/api/latency", h.latency)
	h.mux.HandleFunc("/api/regions", h.regions)
	h.mux.HandleFunc("/metrics", h.metrics)
	if opts.Stream != nil {
		h.mux.Handle("/ws/latency", opts.Stream)
	}

	return withRequestLog(withCORS(opts.AllowOrigin, h.mux))
}

// --- route handlers ---------------------------------------------------------

// root returns GET / — service status.
func (h *Handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/api" && r.URL.Path != "/api/" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, StatusResponse{Status: "ok", Service: h.opts.ServiceName})
}

// ping returns GET /ping — liveness check.
func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, PingResponse{Msg: "pong"})
}

// favicon answers browsers with an empty icon instead of a 404.
func (h *Handler) favicon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "image/x-icon")
	w.WriteHeader(http.StatusOK)
}

// latency returns POST /api/latency — per-region summaries in request order.
func (h *Handler) latency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		jsonErr(w, http.StatusBadRequest, "could not read request body")
		return
	}

	req, err := DecodeRequest(body)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("api: rejected latency request")
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	res := aggregate.Aggregate(h.store, req)
	zerolog.Ctx(r.Context()).Debug().
		Strs("regions", req.Regions).
		Float64("threshold_ms", req.ThresholdMs).
		Msg("api: latency summarized")
	jsonResp(w, http.StatusOK, res)
}

// regions returns GET /api/regions — the regions present in the dataset.
func (h *Handler) regions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	names := h.store.Regions()
	out := RegionsResponse{
		Source:  h.store.Source(),
		Records: h.store.Len(),
		Regions: make([]RegionInfo, 0, len(names)),
	}
	for _, name := range names {
		out.Regions = append(out.Regions, RegionInfo{Region: name, Records: h.store.Count(name)})
	}
	jsonResp(w, http.StatusOK, out)
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Detail: msg})
}
