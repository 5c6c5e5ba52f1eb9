package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/dlprobe/internal/domain"
	apimw "github.com/hamed0406/dlprobe/internal/httpapi/middleware"
	"github.com/hamed0406/dlprobe/internal/index"
	"github.com/hamed0406/dlprobe/internal/probe"
	"github.com/hamed0406/dlprobe/internal/render"
	"github.com/hamed0406/dlprobe/internal/repo"
)

type Server struct {
	Logger   *zap.Logger
	Index    *index.Service
	Renderer *render.Renderer
	// Resolver is used to explain connection failures; nil means the
	// system resolver.
	Resolver *net.Resolver
	// TrustProxy makes the rate limiter key on X-Forwarded-For.
	TrustProxy bool
}

func NewServer(l *zap.Logger, svc *index.Service, rnd *render.Renderer) *Server {
	return &Server{Logger: l, Index: svc, Renderer: rnd}
}

// Router wires the routes. Public endpoints accept public or admin keys,
// write endpoints need an admin key. Rates are requests per minute per IP.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, pubRPM, pubBurst, admRPM, admBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(corsHandler(allowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.With(apimw.RateLimit(pubRPM, pubBurst, s.TrustProxy)).Get("/", s.handlePage)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAny(keys), apimw.RateLimit(pubRPM, pubBurst, s.TrustProxy))
			r.Get("/downloads", s.handleListDownloads)
			r.Get("/downloads/status", s.handleStatuses)
			r.Post("/probe", s.handleProbe)
		})
		r.Group(func(r chi.Router) {
			r.Use(apimw.RequireAdmin(keys), apimw.RateLimit(admRPM, admBurst, s.TrustProxy))
			r.Post("/downloads", s.handleAddDownload)
		})
	})

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.Index.Statuses(r.Context())
	if err != nil {
		s.Logger.Warn("page_statuses_error", zap.Error(err))
		http.Error(w, "catalog error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	page := render.Build(s.Index.Title(), statuses, time.Now())
	if err := s.Renderer.Render(&buf, page); err != nil {
		s.Logger.Error("page_render_error", zap.Error(err))
		http.Error(w, "render error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleListDownloads(w http.ResponseWriter, r *http.Request) {
	ds, err := s.Index.Downloads(r.Context())
	if err != nil {
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.Index.Statuses(r.Context())
	if err != nil {
		http.Error(w, "status error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

type addPayload struct {
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Description string         `json:"description"`
	Section     domain.Section `json:"section"`
	Disabled    bool           `json:"disabled"`
}

func (s *Server) handleAddDownload(w http.ResponseWriter, r *http.Request) {
	var p addPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	d, err := s.Index.Add(r.Context(), domain.Download{
		Name:        strings.TrimSpace(p.Name),
		URL:         strings.TrimSpace(p.URL),
		Description: p.Description,
		Section:     p.Section,
		Disabled:    p.Disabled,
	})
	switch {
	case errors.Is(err, index.ErrInvalidDownload):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, repo.ErrDuplicate):
		writeError(w, http.StatusConflict, "download url already in catalog")
		return
	case err != nil:
		s.Logger.Error("add_download_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not add")
		return
	}

	// Probe once for immediate feedback.
	resp := map[string]any{"download": d}
	if !d.Disabled {
		res := s.Index.Probe(r.Context(), d.URL)
		resp["status"] = index.StatusOf(*d, res, time.Now().UTC())
	}
	writeJSON(w, http.StatusOK, resp)
}

type probePayload struct {
	URL string `json:"url"`
}

type probeResponse struct {
	URL        string           `json:"url"`
	Outcome    probe.Outcome    `json:"outcome"`
	Exists     bool             `json:"exists"`
	StatusLine string           `json:"status_line,omitempty"`
	Error      string           `json:"error,omitempty"`
	LatencyMS  float64          `json:"latency_ms"`
	DNS        *probe.DNSStatus `json:"dns,omitempty"`
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	var p probePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || strings.TrimSpace(p.URL) == "" {
		writeError(w, http.StatusBadRequest, "bad payload")
		return
	}

	// Only catalog links are checked; the server is not an open relay.
	d, err := s.Index.Store.GetByURL(r.Context(), p.URL)
	if err != nil {
		s.Logger.Error("probe_lookup_error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup error")
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "url is not in the catalog")
		return
	}

	res := s.Index.Probe(r.Context(), d.URL)
	out := probeResponse{
		URL:        res.URL,
		Outcome:    res.Outcome,
		Exists:     res.Exists(),
		StatusLine: res.StatusLine,
		LatencyMS:  res.LatencyMS,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}

	// If the host could not be reached, say whether DNS is the reason.
	if probe.ShouldDiagnose(res) {
		dns := probe.Diagnose(r.Context(), s.Resolver, res.Host)
		out.DNS = &dns
		s.Logger.Info("dns_check",
			zap.String("domain", dns.Domain),
			zap.String("class", dns.Class),
			zap.Bool("has_a_or_aaaa", dns.HasAOrAAAA),
			zap.Strings("nameservers", dns.Nameservers),
			zap.String("cname", dns.CNAME),
			zap.String("resolver_error", dns.ResolverError),
		)
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
