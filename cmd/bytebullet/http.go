package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/bytebullet/bytebullet/pkg/ingress"
	"github.com/bytebullet/bytebullet/pkg/version"
)

// NoStore is an http.Handler that disables the browser cache for the page
// and its script, which carry the injected configuration.
func NoStore(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "index.js") {
			w.Header().Set("Cache-Control", "no-store")
		}

		h.ServeHTTP(w, r)
	})
}

type statusResponse struct {
	ingress.Status
	Version     string `json:"version"`
	Description string `json:"description"`
}

func StatusHandler(ws *ingress.WSIngress, description string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		json.NewEncoder(w).Encode(statusResponse{
			Status:      ws.Status(),
			Version:     version.Version,
			Description: description,
		})
	})
}
