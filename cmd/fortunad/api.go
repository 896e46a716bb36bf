package main

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"fortunad"
	"fortunad/internal/generator"
)

func randomHandler(svc *fortuna.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Bounded by the same MaxOutputBytes the core generator enforces
		// (SPEC_FULL.md's Tunables table), not a narrower HTTP-only cap.
		n, err := strconv.Atoi(r.URL.Query().Get("n"))
		if err != nil || n <= 0 || n > generator.MaxOutputBytes {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		data := svc.RandomData(n)
		if data == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(hex.EncodeToString(data)))
	}
}

func statusHandler(svc *fortuna.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(svc.Status())
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
