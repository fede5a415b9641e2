package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"matchforge/internal/command"
	"matchforge/internal/common"
)

// Server wires command.Service to an HTTP router, per spec.md §6.
type Server struct {
	svc *command.Service
}

// NewServer constructs a Server over svc.
func NewServer(svc *command.Service) *Server {
	return &Server{svc: svc}
}

// Router builds the chi router: POST/DELETE for orders, GET for book/trades,
// and a WebSocket upgrade endpoint for live subscription.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Post("/orders", s.handleSubmitOrder)
	r.Delete("/orders/{pair}/{id}", s.handleCancelOrder)
	r.Get("/book/{pair}", s.handleGetBook)
	r.Get("/trades/{pair}", s.handleGetTrades)
	r.Get("/ws/{pair}", s.handleSubscribe)

	return r
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, badRequest("malformed request body"))
		return
	}

	side, ok := parseSide(req.Side)
	if !ok {
		writeError(w, badRequest("side must be \"buy\" or \"sell\""))
		return
	}
	kind, ok := parseKind(req.OrderType)
	if !ok {
		writeError(w, badRequest("order_type must be \"limit\" or \"market\""))
		return
	}
	var price *common.Price
	if req.Price != nil {
		p := common.Price(*req.Price)
		price = &p
	}

	out, err := s.svc.SubmitOrder(r.Context(), command.SubmitOrderInput{
		Pair:  req.Symbol,
		Side:  side,
		Kind:  kind,
		Price: price,
		Qty:   common.Quantity(req.Quantity),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := submitOrderResponse{OrderID: out.OrderID.String()}
	for _, t := range out.Trades {
		resp.Trades = append(resp.Trades, newTradeView(t))
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := common.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.CancelOrder(r.Context(), chi.URLParam(r, "pair"), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelOrderResponse{Status: "cancelled"})
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	pair, snapshot, err := s.svc.GetBook(r.Context(), chi.URLParam(r, "pair"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newBookView(pair, snapshot))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, badRequest("limit must be an integer"))
			return
		}
		limit = parsed
	}

	out, err := s.svc.GetTrades(r.Context(), command.GetTradesInput{
		Pair:  chi.URLParam(r, "pair"),
		Limit: limit,
		After: r.URL.Query().Get("after"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	page := tradesPageView{}
	for _, t := range out.Items {
		page.Items = append(page.Items, newTradeView(t))
	}
	if out.Next != nil {
		page.Next = out.Next.Encode()
	}

	w.Header().Set("x-effective-limit", strconv.Itoa(out.EffectiveLimit))
	writeJSON(w, http.StatusOK, page)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// writeError renders every command error through the uniform error body
// spec.md §7 requires, picking the HTTP status from the sentinel error.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrBadRequest), errors.Is(err, common.ErrInvalidCursor):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrUnsupportedSymbol):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrStore):
		status = http.StatusInternalServerError
	case errors.Is(err, common.ErrInternal):
		status = http.StatusInternalServerError
	}
	var unsupported *common.UnsupportedSymbolError
	if errors.As(err, &unsupported) {
		writeJSON(w, status, struct {
			errorBody
			Supported []string `json:"supported"`
		}{errorBody{Error: err.Error()}, unsupported.Supported})
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

type badRequestError struct{ msg string }

func (e *badRequestError) Error() string { return e.msg }
func (e *badRequestError) Unwrap() error { return common.ErrBadRequest }
