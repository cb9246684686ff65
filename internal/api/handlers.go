package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/example/material-stock/internal/api/middleware"
	"github.com/example/material-stock/internal/command"
	"github.com/example/material-stock/internal/domain/ledger"
	"github.com/example/material-stock/internal/domain/stock"
	"github.com/example/material-stock/internal/query"
)

type Handlers struct {
	cmdHandler   *command.Handler
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(cmdHandler *command.Handler, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		cmdHandler:   cmdHandler,
		queryHandler: queryHandler,
		logger:       logger.Named("api"),
	}
}

// Command handlers

func (h *Handlers) Incoming(w http.ResponseWriter, r *http.Request) {
	var body command.Incoming
	h.handleCommand(w, r, &body, func(actor stock.Actor) (*stock.Event, error) {
		return h.cmdHandler.Incoming(r.Context(), actor, body)
	})
}

func (h *Handlers) Purchase(w http.ResponseWriter, r *http.Request) {
	var body command.Purchase
	h.handleCommand(w, r, &body, func(actor stock.Actor) (*stock.Event, error) {
		return h.cmdHandler.Purchase(r.Context(), actor, body)
	})
}

func (h *Handlers) Package(w http.ResponseWriter, r *http.Request) {
	var body command.Package
	h.handleCommand(w, r, &body, func(actor stock.Actor) (*stock.Event, error) {
		return h.cmdHandler.Package(r.Context(), actor, body)
	})
}

// Transfer serves both moving and divide; the kind comes from the route.
func (h *Handlers) Transfer(kind stock.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body command.Transfer
		h.handleCommand(w, r, &body, func(actor stock.Actor) (*stock.Event, error) {
			return h.cmdHandler.Transfer(r.Context(), actor, kind, body)
		})
	}
}

func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	var body command.Close
	id := mux.Vars(r)["id"]
	h.handleCommand(w, r, &body, func(actor stock.Actor) (*stock.Event, error) {
		return h.cmdHandler.Cancel(r.Context(), actor, id, body)
	})
}

func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	var body command.Close
	id := mux.Vars(r)["id"]
	h.handleCommand(w, r, &body, func(actor stock.Actor) (*stock.Event, error) {
		return h.cmdHandler.Delete(r.Context(), actor, id, body)
	})
}

func (h *Handlers) handleCommand(w http.ResponseWriter, r *http.Request, body any, run func(stock.Actor) (*stock.Event, error)) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondCode(w, http.StatusUnauthorized, "auth.unauthorized", "unauthorized")
		return
	}
	// Cancel and delete accept an empty body.
	if err := json.NewDecoder(r.Body).Decode(body); err != nil && !errors.Is(err, io.EOF) {
		respondCode(w, http.StatusBadRequest, "request.invalid_body", err.Error())
		return
	}

	e, err := run(actor)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

// Query handlers

func (h *Handlers) GetStock(w http.ResponseWriter, r *http.Request) {
	e, err := h.queryHandler.GetStock(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	events, err := h.queryHandler.History(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// GetTotals lists ledger rows for a SKU. The profile defaults to the caller's.
func (h *Handlers) GetTotals(w http.ResponseWriter, r *http.Request) {
	profile := r.URL.Query().Get("profile")
	if profile == "" {
		if actor, ok := middleware.ActorFromContext(r.Context()); ok {
			profile = actor.Profile
		}
	}
	rows, err := h.queryHandler.ListTotals(r.Context(), ledger.NewKey(profile, skuFromQuery(r)))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handlers) GetAvailability(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryHandler.Availability(r.Context(), skuFromQuery(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func skuFromQuery(r *http.Request) ledger.SKU {
	q := r.URL.Query()
	optional := func(name string) *string {
		if v := q.Get(name); v != "" {
			return &v
		}
		return nil
	}
	return ledger.SKU{
		Material:     q.Get("material"),
		Offer:        optional("offer"),
		Variation:    optional("variation"),
		Modification: optional("modification"),
	}
}
