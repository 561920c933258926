package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mongoadapter "github.com/ticketfair/ticketfair/internal/adapters/mongo"
	"github.com/ticketfair/ticketfair/internal/config"
	"github.com/ticketfair/ticketfair/internal/domain"
	"github.com/ticketfair/ticketfair/internal/idempotency"
	"github.com/ticketfair/ticketfair/internal/settlement"
)

type Handlers struct {
	cfg          *config.Config
	svc          *settlement.Service
	idemp        *idempotency.Idempotency
	mongoCatalog *mongoadapter.CatalogRepository
}

func NewHandlers(cfg *config.Config, svc *settlement.Service, idemp *idempotency.Idempotency, mongoCatalog *mongoadapter.CatalogRepository) *Handlers {
	return &Handlers{
		cfg:          cfg,
		svc:          svc,
		idemp:        idemp,
		mongoCatalog: mongoCatalog,
	}
}

// callerID reads the authenticated identity. The signer model lives in
// the external wallet layer; here it arrives as a header set by the
// auth middleware.
func callerID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-Caller-ID"))
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidAuctionWindow),
		errors.Is(err, domain.ErrInvalidPriceBounds):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidEventState),
		errors.Is(err, domain.ErrInvalidBidState),
		errors.Is(err, domain.ErrAlreadyRefunded),
		errors.Is(err, domain.ErrEventNotFinalized),
		errors.Is(err, domain.ErrBidNotAtCurrentPrice),
		errors.Is(err, domain.ErrEventSoldOut),
		errors.Is(err, domain.ErrDuplicateBid),
		errors.Is(err, domain.ErrWrongEvent),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrSerializationFailure):
		code = http.StatusConflict
	case errors.Is(err, domain.ErrAuctionNotActive),
		errors.Is(err, domain.ErrAuctionNotStarted),
		errors.Is(err, domain.ErrAuctionEnded),
		errors.Is(err, domain.ErrAuctionStillRunning),
		errors.Is(err, domain.ErrInsufficientFunds):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthorized):
		code = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
	return data
}

func eventResponse(ev *domain.Event) map[string]interface{} {
	return map[string]interface{}{
		"event_id":            ev.ID,
		"organizer":           ev.Organizer,
		"metadata_url":        ev.MetadataURL,
		"ticket_supply":       ev.TicketSupply,
		"tickets_awarded":     ev.TicketsAwarded,
		"start_price":         ev.StartPrice,
		"end_price":           ev.EndPrice,
		"auction_start_time":  ev.AuctionStartTime,
		"auction_end_time":    ev.AuctionEndTime,
		"auction_close_price": ev.AuctionClosePrice,
		"status":              ev.Status.String(),
	}
}

func (h *Handlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err == nil && existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		MetadataURL      string `json:"metadata_url"`
		TicketSupply     int32  `json:"ticket_supply"`
		StartPrice       int64  `json:"start_price"`
		EndPrice         int64  `json:"end_price"`
		AuctionStartTime int64  `json:"auction_start_time"`
		AuctionEndTime   int64  `json:"auction_end_time"`
		Name             string `json:"name"`
		Venue            string `json:"venue"`
		Description      string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := h.svc.CreateEvent(r.Context(), domain.EventParams{
		Organizer:        caller,
		MetadataURL:      req.MetadataURL,
		TicketSupply:     req.TicketSupply,
		StartPrice:       req.StartPrice,
		EndPrice:         req.EndPrice,
		AuctionStartTime: req.AuctionStartTime,
		AuctionEndTime:   req.AuctionEndTime,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.mongoCatalog.CreateEvent(r.Context(), mongoadapter.EventDoc{
		ID:          ev.ID,
		Organizer:   ev.Organizer,
		Name:        req.Name,
		Venue:       req.Venue,
		Description: req.Description,
		MetadataURL: ev.MetadataURL,
	}); err != nil {
		// The ledger record is authoritative; the catalog doc is
		// redecorated on the next write.
		writeJSON(w, http.StatusCreated, eventResponse(ev))
		return
	}

	data := writeJSON(w, http.StatusCreated, eventResponse(ev))
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) ActivateEvent(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	ev, err := h.svc.ActivateEvent(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse(ev))
}

func (h *Handlers) FinalizeAuction(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		ClosePrice int64 `json:"close_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ev, err := h.svc.FinalizeAuction(r.Context(), caller, id, req.ClosePrice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse(ev))
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	ev, err := h.svc.GetEvent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := eventResponse(ev)
	resp["current_price"] = domain.CurrentPrice(ev, h.svc.Now())
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	price, now, err := h.svc.CurrentPrice(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"event_id": id,
		"price":    price,
		"now":      now,
	})
}

func (h *Handlers) PlaceBid(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if existing, err := h.idemp.Get(r.Context(), key); err == nil && existing != nil {
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		EventID uuid.UUID `json:"event_id"`
		Amount  int64     `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	bid, err := h.svc.PlaceBid(r.Context(), req.EventID, caller, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	data := writeJSON(w, http.StatusCreated, map[string]interface{}{
		"bid_id":   bid.ID,
		"event_id": bid.Event,
		"amount":   bid.Amount,
		"status":   bid.Status.String(),
	})
	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

func (h *Handlers) RefundBid(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	refund, err := h.svc.RefundBid(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bid_id": id,
		"refund": refund,
	})
}

func (h *Handlers) AwardTicket(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		EventID  uuid.UUID `json:"event_id"`
		BidID    uuid.UUID `json:"bid_id"`
		AssetRef uuid.UUID `json:"asset_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ticket, err := h.svc.AwardTicket(r.Context(), caller, req.EventID, req.BidID, req.AssetRef)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"ticket_id": ticket.ID,
		"event_id":  ticket.Event,
		"owner":     ticket.Owner,
		"asset_id":  ticket.AssetID,
		"status":    ticket.Status.String(),
	})
}

func (h *Handlers) ClaimTicket(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var req struct {
		OffchainRef string `json:"offchain_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.ClaimTicket(r.Context(), caller, id, req.OffchainRef); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	if err := h.svc.Deposit(r.Context(), caller, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}
