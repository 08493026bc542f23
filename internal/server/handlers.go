// internal/server/handlers.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"rubyistrun/internal/rss"

	"go.uber.org/zap"
)

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	doc, err := s.generator.Generate(r.Context(), s.siteURL(r))
	if err != nil {
		s.feedError(w, r, "error generating RSS feed", err)
		return
	}
	body, err := rss.Render(doc)
	if err != nil {
		s.feedError(w, r, "error rendering RSS feed", err)
		return
	}
	s.metrics.feedItems.Set(float64(len(doc.Channel.Items)))

	w.Header().Set("Content-Type", rss.ContentType)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("error writing RSS response",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
	}
}

func (s *Server) feedError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.metrics.feedErrors.Inc()
	s.logger.Error(msg,
		zap.String("request_id", RequestID(r.Context())),
		zap.Error(err))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// siteURL returns the configured site, or one built from the request.
// The Host header is trusted as is; configure a site behind untrusted proxies.
func (s *Server) siteURL(r *http.Request) *url.URL {
	if s.config.Site != nil {
		return s.config.Site
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	site := &url.URL{Scheme: scheme, Host: r.Host}
	s.siteWarning.Do(func() {
		s.logger.Warn("site URL is not configured, using request host", zap.String("site", site.String()))
	})
	return site
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.PingContext(ctx); err != nil {
		s.logger.Error("health check failed: store ping error", zap.Error(err))
		http.Error(w, "DB Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) handle404(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("not found", zap.String("path", r.URL.Path))
	http.NotFound(w, r)
}
