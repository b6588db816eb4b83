// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves the live zone, the tracker status and the loaded
// catalog over HTTP and a websocket stream.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/relabs-tech/zone_tracker/internal/display"
	"github.com/relabs-tech/zone_tracker/internal/metrics"
	"github.com/relabs-tech/zone_tracker/internal/status"
	"github.com/relabs-tech/zone_tracker/internal/tracker"
)

// StateReader is the tracker as seen by the status endpoint.
type StateReader interface {
	State() tracker.State
}

// Server is an HTTP front end and a tracker sink.
type Server struct {
	tracker StateReader
	zones   tracker.Zones
	board   *status.Board
	hub     *Hub
	mux     *http.ServeMux

	mu      sync.RWMutex
	last    tracker.Signal
	haveSig bool
}

// New builds the server. staticDir, when not empty, is served at /.
func New(tr StateReader, zones tracker.Zones, board *status.Board, staticDir string) *Server {
	s := &Server{
		tracker: tr,
		zones:   zones,
		board:   board,
		hub:     NewHub(),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/api/zone", s.handleZone)
	s.mux.HandleFunc("/api/zone.png", s.handleZonePNG)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/zones", s.handleZones)
	s.mux.Handle("/ws", s.hub)
	s.mux.Handle("/metrics", metrics.Handler())
	if staticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return s
}

// Handler is the routed, request-logging handler.
func (s *Server) Handler() http.Handler {
	return accessLog(s.mux)
}

// Hub exposes the websocket fan-out.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Publish implements tracker.Sink.
func (s *Server) Publish(_ context.Context, sig tracker.Signal) error {
	msg, err := json.Marshal(sig)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.last = sig
	s.haveSig = true
	s.mu.Unlock()

	s.hub.Broadcast(msg)
	return nil
}

func (s *Server) lastSignal() (tracker.Signal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.haveSig
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	sig, ok := s.lastSignal()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, sig)
}

func (s *Server) handleZonePNG(w http.ResponseWriter, r *http.Request) {
	scale := 4
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 16 {
			http.Error(w, "scale must be 1-16", http.StatusBadRequest)
			return
		}
		scale = n
	}

	sig, ok := s.lastSignal()
	view := display.View{Have: ok}
	if ok {
		fix := sig.Fix
		view.Zone = sig.Zone
		view.Fix = &fix
	}
	if s.board != nil {
		view.Status = s.board.String()
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := display.WritePNG(w, view, scale); err != nil {
		log.Warn().Err(err).Msg("PNG encode error")
	}
}

type statusResponse struct {
	Status         status.Entry  `json:"status"`
	Tracker        tracker.State `json:"tracker"`
	CatalogVersion uint64        `json:"catalog_version"`
	Zones          int           `json:"zones"`
	Clients        int           `json:"ws_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Clients: s.hub.Clients()}
	if s.board != nil {
		resp.Status = s.board.Current()
	}
	if s.tracker != nil {
		resp.Tracker = s.tracker.State()
	}
	if snap := s.zones.Snapshot(); snap != nil {
		resp.CatalogVersion = snap.Version
		resp.Zones = snap.Len()
	}
	writeJSON(w, resp)
}

type zoneInfo struct {
	Name     string        `json:"name"`
	Vertices [][2]float64  `json:"vertices"`
	Bound    [2][2]float64 `json:"bound"`
}

type zonesResponse struct {
	Source   string     `json:"source"`
	Version  uint64     `json:"version"`
	LoadedAt time.Time  `json:"loaded_at"`
	Zones    []zoneInfo `json:"zones"`
}

func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	snap := s.zones.Snapshot()
	if snap == nil {
		http.Error(w, "no zones loaded", http.StatusServiceUnavailable)
		return
	}
	resp := zonesResponse{
		Source:   snap.Source,
		Version:  snap.Version,
		LoadedAt: snap.LoadedAt,
		Zones:    make([]zoneInfo, 0, len(snap.Zones)),
	}
	for _, z := range snap.Zones {
		info := zoneInfo{
			Name:     z.Name,
			Vertices: make([][2]float64, len(z.Ring)),
			Bound:    [2][2]float64{z.Bound.Min, z.Bound.Max},
		}
		for i, v := range z.Ring {
			info.Vertices[i] = v
		}
		resp.Zones = append(resp.Zones, info)
	}
	writeJSON(w, resp)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("JSON encode error")
	}
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Web server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
