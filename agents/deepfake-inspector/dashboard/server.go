package dashboard

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"deepfake-inspector/agents/deepfake-inspector/acquire"
	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

//go:embed templates/index.html
var templateFS embed.FS

const (
	recentLimit = 10

	// multipart parts beyond this are spooled to disk
	formMemory = 32 << 20
)

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"trusted":  models.Trusted,
	"mediaURL": func(key string) string { return "/media/" + key },
}).ParseFS(templateFS, "templates/index.html"))

// Analyzer runs one analysis; the pipeline in production.
type Analyzer interface {
	Run(ctx context.Context, src models.MediaSource) (*models.Report, error)
}

// Server is the web dashboard and JSON API.
type Server struct {
	analyzer  Analyzer
	cache     *storage.MediaCache
	history   *storage.ReportStore
	maxUpload int64
}

// NewServer builds the dashboard. history may be nil.
func NewServer(analyzer Analyzer, cache *storage.MediaCache, history *storage.ReportStore, maxUploadBytes int64) *Server {
	return &Server{
		analyzer:  analyzer,
		cache:     cache,
		history:   history,
		maxUpload: maxUploadBytes,
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.Index)
	r.Post("/analyze", s.AnalyzeForm)
	r.Get("/media/{key}", s.Media)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, http.StatusText(http.StatusOK))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.AnalyzeAPI)
		r.Get("/reports", s.ListReports)
		r.Get("/cache", s.ListCache)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Dashboard listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	return nil
}

type pageData struct {
	URL    string
	Error  string
	Report *models.Report
	Recent []*models.Report
}

func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, &pageData{Recent: s.recent()})
}

// AnalyzeForm handles the dashboard form. Failures are shown inline next to
// whatever part of the report was produced; input errors also set 400.
func (s *Server) AnalyzeForm(w http.ResponseWriter, r *http.Request) {
	page := &pageData{}

	src, cleanup, err := s.sourceFromRequest(w, r)
	defer cleanup()
	if err != nil {
		page.Error = userMessage(err)
		page.Recent = s.recent()
		s.renderPage(w, statusFor(err), page)
		return
	}
	page.URL = src.URL

	status := http.StatusOK
	report, err := s.analyzer.Run(r.Context(), src)
	page.Report = report
	if err != nil {
		page.Error = userMessage(err)
		var invalid *acquire.InvalidSourceError
		if errors.As(err, &invalid) {
			status = statusFor(err)
		}
	}
	page.Recent = s.recent()
	s.renderPage(w, status, page)
}

// AnalyzeRequest is the JSON body accepted by POST /api/analyze.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// AnalyzeResponse carries the report, including a partial one, and any error.
type AnalyzeResponse struct {
	Report *models.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (s *Server) AnalyzeAPI(w http.ResponseWriter, r *http.Request) {
	var src models.MediaSource
	cleanup := func() {}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req AnalyzeRequest
		if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, 1<<20), &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, AnalyzeResponse{Error: "invalid JSON body: " + err.Error()})
			return
		}
		src = models.MediaSource{URL: req.URL}
	} else {
		var err error
		src, cleanup, err = s.sourceFromRequest(w, r)
		if err != nil {
			cleanup()
			render.Status(r, statusFor(err))
			render.JSON(w, r, AnalyzeResponse{Error: userMessage(err)})
			return
		}
	}
	defer cleanup()

	report, err := s.analyzer.Run(r.Context(), src)
	resp := AnalyzeResponse{Report: report}
	if err != nil {
		resp.Error = userMessage(err)
		render.Status(r, statusFor(err))
	}
	render.JSON(w, r, resp)
}

func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.recent())
}

func (s *Server) ListCache(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cache.Entries()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []storage.CacheEntry{}
	}
	render.JSON(w, r, entries)
}

// Media streams a cached file so the dashboard can preview it.
func (s *Server) Media(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	path, ok := s.cache.Lookup(key)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, path)
}

// sourceFromRequest reads a URL or uploaded file from a form post. An
// uploaded file wins over the URL field. cleanup is always safe to call.
func (s *Server) sourceFromRequest(w http.ResponseWriter, r *http.Request) (models.MediaSource, func(), error) {
	cleanup := func() {}
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(formMemory); err != nil {
			return models.MediaSource{}, cleanup, formError(err)
		}
		cleanup = func() { _ = r.MultipartForm.RemoveAll() }

		file, header, err := r.FormFile("file")
		switch {
		case err == nil && header.Size > 0:
			return models.MediaSource{Upload: file, Filename: header.Filename}, func() {
				file.Close()
				_ = r.MultipartForm.RemoveAll()
			}, nil
		case err == nil:
			file.Close()
		case !errors.Is(err, http.ErrMissingFile):
			return models.MediaSource{}, cleanup, formError(err)
		}
	} else if err := r.ParseForm(); err != nil {
		return models.MediaSource{}, cleanup, formError(err)
	}

	url := strings.TrimSpace(r.FormValue("url"))
	if url == "" {
		return models.MediaSource{}, cleanup, &acquire.InvalidSourceError{Source: "", Reason: "enter a video URL or choose a file to upload"}
	}
	return models.MediaSource{URL: url}, cleanup, nil
}

func (s *Server) recent() []*models.Report {
	if s.history == nil {
		return nil
	}
	return s.history.Recent(recentLimit)
}

func (s *Server) renderPage(w http.ResponseWriter, status int, page *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, page); err != nil {
		log.Printf("Failed to render dashboard: %v", err)
	}
}

var (
	errTooLarge = errors.New("upload exceeds the size limit")
	errBadForm  = errors.New("invalid form")
)

func formError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("%w of %d MB", errTooLarge, maxErr.Limit>>20)
	}
	return fmt.Errorf("%w: %v", errBadForm, err)
}

func statusFor(err error) int {
	var invalid *acquire.InvalidSourceError
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadForm):
		return http.StatusBadRequest
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusBadGateway
	}
}

func userMessage(err error) string {
	var invalid *acquire.InvalidSourceError
	if errors.As(err, &invalid) {
		return invalid.Reason
	}
	return err.Error()
}
