package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/muurk/lifxlan/internal/color"
	"github.com/muurk/lifxlan/internal/device"
	"github.com/muurk/lifxlan/internal/logging"
	"github.com/muurk/lifxlan/internal/protocol"
	"github.com/muurk/lifxlan/internal/registry"
	"github.com/muurk/lifxlan/internal/version"
	"go.uber.org/zap"
)

// maxBodySize caps request bodies; every command fits comfortably.
const maxBodySize = 4096

// PowerRequest is the body of POST /api/devices/{mac}/power.
type PowerRequest struct {
	On       *bool  `json:"on"`
	Duration uint32 `json:"duration"`
	Rapid    bool   `json:"rapid"`
}

// ColorRequest is the body of POST /api/devices/{mac}/color.
type ColorRequest struct {
	Color    string `json:"color"`
	Duration uint32 `json:"duration"`
	Rapid    bool   `json:"rapid"`
}

// LabelRequest is the body of POST /api/devices/{mac}/label.
type LabelRequest struct {
	Label string `json:"label"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	MAC   string `json:"mac,omitempty"`
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/devices", s.handleListDevices)
		r.Route("/devices/{mac}", func(r chi.Router) {
			r.Get("/", s.handleGetDevice)
			r.Post("/power", s.handleSetPower)
			r.Post("/color", s.handleSetColor)
			r.Post("/label", s.handleSetLabel)
		})
	})
	r.Get("/ws", s.handleWebSocket)

	return r
}

// logRequests records every request once it has been answered.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, ww.Status())
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	entities := s.reg.GetList(registry.CapAny)
	snapshots := make([]device.Snapshot, 0, len(entities))
	for _, e := range entities {
		snapshots = append(snapshots, e.Snapshot())
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleSetPower(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req PowerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.On == nil {
		writeError(w, http.StatusBadRequest, e.Base().MAC(), "missing \"on\"")
		return
	}

	ctx := commandContext(r, req.Rapid)
	var err error
	if l, isLight := e.(*device.Light); isLight {
		err = l.SetLightPower(ctx, *req.On, req.Duration, req.Rapid)
	} else {
		err = e.Base().SetPower(ctx, *req.On, req.Rapid)
	}
	s.finishCommand(w, e, err)
}

func (s *Server) handleSetColor(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	l, isLight := e.(*device.Light)
	if !isLight {
		writeError(w, http.StatusBadRequest, e.Base().MAC(), "device is not a light")
		return
	}

	var req ColorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := color.Parse(req.Color)
	if err != nil {
		writeError(w, http.StatusBadRequest, l.MAC(), err.Error())
		return
	}

	err = l.SetColor(commandContext(r, req.Rapid), c.Values(), req.Duration, req.Rapid)
	s.finishCommand(w, e, err)
}

func (s *Server) handleSetLabel(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req LabelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Label) > protocol.LabelSize {
		writeError(w, http.StatusBadRequest, e.Base().MAC(),
			fmt.Sprintf("label longer than %d bytes", protocol.LabelSize))
		return
	}

	err := e.Base().SetLabel(r.Context(), req.Label)
	s.finishCommand(w, e, err)
}

// lookup resolves the {mac} URL parameter, answering 404 when unknown.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (device.Entity, bool) {
	mac := chi.URLParam(r, "mac")
	e, ok := s.reg.Get(mac)
	if !ok {
		writeError(w, http.StatusNotFound, mac, "device not found")
		return nil, false
	}
	return e, true
}

// finishCommand maps a setter result to a response and publishes the change.
func (s *Server) finishCommand(w http.ResponseWriter, e device.Entity, err error) {
	mac := e.Base().MAC()
	switch {
	case err == nil:
		s.reg.Publish(registry.EventChanged, e)
		writeJSON(w, http.StatusOK, e.Snapshot())
	case device.IsOffline(err):
		logging.Info("Device offline", zap.String("mac", mac), zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, mac, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, mac, err.Error())
	default:
		logging.Error("Device command failed", zap.String("mac", mac), zap.Error(err))
		writeError(w, http.StatusInternalServerError, mac, err.Error())
	}
}

// commandContext detaches rapid sends from the request so their repeats
// outlive the response.
func commandContext(r *http.Request, rapid bool) context.Context {
	if rapid {
		return context.WithoutCancel(r.Context())
	}
	return r.Context()
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "", "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, mac, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, MAC: mac})
}
