package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// ErrDownstreamStatus is returned for downstream answers outside 2xx.
var ErrDownstreamStatus = errors.New("downstream returned non-success status")

// HTTPClient is the subset of *http.Client the proxy needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProxyHandler answers with the body of a GET to a logical service. Name
// resolution is left entirely to the client.
type ProxyHandler struct {
	logger *slog.Logger
	client HTTPClient
	target string
}

// NewProxyHandler proxies to http://<service><path>.
func NewProxyHandler(logger *slog.Logger, client HTTPClient, service, path string) *ProxyHandler {
	target := url.URL{Scheme: "http", Host: service, Path: path}

	return &ProxyHandler{
		logger: logger,
		client: client,
		target: target.String(),
	}
}

// Target returns the logical URL the handler calls.
func (h *ProxyHandler) Target() string {
	return h.target
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := h.fetch(r.Context())
	if err != nil {
		h.logger.Error("Downstream call failed",
			slog.String("target", h.target),
			slog.String("client", extractClientIP(r)),
			slog.Any("err", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// fetch reads the whole downstream body so a failure half way through never
// turns into a truncated 200.
func (h *ProxyHandler) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %d", ErrDownstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read downstream body: %w", err)
	}

	return body, nil
}
