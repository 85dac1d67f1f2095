// Copyright © 2023 Antalpha
//
// This file is part of Antalpha. The full Antalpha copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package report serves the timing counters of a run over HTTP.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"

	"github.com/swesemeyer/BenchmarkingETicketingSystems-sub002/internal/metrics"
)

// Source returns the counters to publish.
type Source func() map[string]metrics.Entry

// Handler publishes a Source.
type Handler struct {
	title  string
	source Source
}

// NewHandler creates a Handler for source.
func NewHandler(title string, source Source) *Handler {
	return &Handler{title: title, source: source}
}

// RegisterRoutes mounts the report endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/report", h.json)
	r.Get("/report.pb", h.protobuf)
	r.Get("/report.html", h.chart)
}

// Router returns a new router serving h.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) json(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.source()); err != nil {
		log.Errorf("report: encode json: %v", err)
	}
}

func (h *Handler) protobuf(w http.ResponseWriter, _ *http.Request) {
	s, err := metrics.Struct(h.source())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := proto.Marshal(s)
	if err != nil {
		http.Error(w, fmt.Sprintf("marshal report: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/x-protobuf")
	_, _ = w.Write(data)
}

func (h *Handler) chart(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := metrics.Chart(w, h.title, h.source()); err != nil {
		log.Errorf("report: render chart: %v", err)
	}
}

// Serve publishes h on addr until ctx is done.
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{Addr: addr, Handler: h.Router(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		log.Infof("report: listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
