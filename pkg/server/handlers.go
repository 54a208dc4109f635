package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vango-dev/routefilter/pkg/filter"
	"github.com/vango-dev/routefilter/pkg/loop"
	"github.com/vango-dev/routefilter/pkg/router"
	"github.com/vango-dev/routefilter/pkg/routepath"
)

// maxBody bounds request bodies.
const maxBody = 64 << 10

// NavigateRequest is the body of POST /navigate.
type NavigateRequest struct {
	Fragment string `json:"fragment"`

	// Trigger defaults to true. When false only the fragment is recorded.
	Trigger *bool `json:"trigger,omitempty"`
}

// DispatchResult describes the state of a navigation when the request
// returns. Status is "skipped" when the navigation was not triggered.
type DispatchResult struct {
	Fragment string    `json:"fragment"`
	Route    string    `json:"route,omitempty"`
	Params   []*string `json:"params,omitempty"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RouteRequest is the body of POST /routes.
type RouteRequest struct {
	Pattern string `json:"pattern"`
	Handler string `json:"handler"`
}

// RejectRequest is the optional body of POST /gates/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var opts []router.NavigateOption
	if req.Trigger != nil && !*req.Trigger {
		opts = append(opts, router.WithoutTrigger())
	}

	// The dispatch may outlive the request while it is pending.
	ctx := context.WithoutCancel(r.Context())

	var (
		d      *filter.Dispatch
		navErr error
	)
	if err := s.onLoop(r, func() {
		d, navErr = s.router.Navigate(ctx, req.Fragment, opts...)
	}); err != nil {
		writeLoopError(w, err)
		return
	}

	result := DispatchResult{Fragment: req.Fragment, Status: "skipped"}
	if d != nil {
		result.Route = d.Route()
		result.Params = paramsJSON(d.Params())
		result.Status = d.Status().String()
		if reason := d.Reason(); reason != nil {
			result.Reason = reason.Error()
		}
	}

	switch {
	case errors.Is(navErr, router.ErrNoMatch):
		writeError(w, http.StatusNotFound, navErr)
	case errors.Is(navErr, routepath.ErrBackslashInFragment), errors.Is(navErr, routepath.ErrNullByteInFragment):
		writeError(w, http.StatusBadRequest, navErr)
	case navErr != nil && d == nil:
		writeError(w, http.StatusInternalServerError, navErr)
	case navErr != nil:
		result.Error = navErr.Error()
		writeJSON(w, http.StatusInternalServerError, result)
	case d != nil && d.Status() == filter.StatusPending:
		writeJSON(w, http.StatusAccepted, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	var routes []router.Route
	if err := s.onLoop(r, func() {
		routes = s.router.Routes()
	}); err != nil {
		writeLoopError(w, err)
		return
	}
	if routes == nil {
		routes = []router.Route{}
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) handleAddRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var routeErr error
	if err := s.onLoop(r, func() {
		routeErr = s.router.Route(req.Pattern, req.Handler)
	}); err != nil {
		writeLoopError(w, err)
		return
	}
	if routeErr != nil {
		writeError(w, http.StatusBadRequest, routeErr)
		return
	}
	writeJSON(w, http.StatusCreated, router.Route{Pattern: req.Pattern, Handler: req.Handler})
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	tickets := []filter.Ticket{}
	if s.gate != nil {
		tickets = append(tickets, s.gate.Pending()...)
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		writeError(w, http.StatusNotFound, filter.ErrUnknownTicket)
		return
	}
	if err := s.gate.Resolve(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	if s.gate == nil {
		writeError(w, http.StatusNotFound, filter.ErrUnknownTicket)
		return
	}

	var req RejectRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	var reason error
	if req.Reason != "" {
		reason = fmt.Errorf("%w: %s", filter.ErrGateRejected, req.Reason)
	}
	if err := s.gate.Reject(chi.URLParam(r, "id"), reason); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeLoopError(w http.ResponseWriter, err error) {
	if errors.Is(err, loop.ErrStopped) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeError(w, http.StatusGatewayTimeout, err)
}

// paramsJSON encodes missing params as null.
func paramsJSON(p filter.Params) []*string {
	out := make([]*string, len(p))
	for i, param := range p {
		if param.Present {
			v := param.Value
			out[i] = &v
		}
	}
	return out
}
