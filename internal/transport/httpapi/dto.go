// Package httpapi is the HTTP + WebSocket transport over command.Service,
// per spec.md §6. Grounded on go-chi/chi routing conventions and the
// gorilla/websocket read/write-pump pattern in
// abdoElHodaky-tradSys's internal/transport/websocket.
package httpapi

import (
	"matchforge/internal/broadcast"
	"matchforge/internal/common"
	"matchforge/internal/engine"
)

// submitOrderRequest is POST /orders's body, per spec.md §6:
// {side, order_type, price?, quantity, symbol}.
type submitOrderRequest struct {
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	OrderType string  `json:"order_type"`
	Price     *uint64 `json:"price,omitempty"`
	Quantity  uint64  `json:"quantity"`
}

func parseSide(s string) (common.Side, bool) {
	switch s {
	case "buy":
		return common.Buy, true
	case "sell":
		return common.Sell, true
	default:
		return 0, false
	}
}

func parseKind(s string) (common.OrderKind, bool) {
	switch s {
	case "limit":
		return common.Limit, true
	case "market":
		return common.Market, true
	default:
		return 0, false
	}
}

type submitOrderResponse struct {
	OrderID string      `json:"order_id"`
	Trades  []tradeView `json:"trades"`
}

type tradeView struct {
	Pair      string `json:"pair"`
	Price     uint64 `json:"price"`
	Quantity  uint64 `json:"quantity"`
	MakerID   string `json:"maker_id"`
	TakerID   string `json:"taker_id"`
	Timestamp string `json:"timestamp"`
}

func newTradeView(t common.Trade) tradeView {
	return tradeView{
		Pair:      t.Pair.String(),
		Price:     uint64(t.Price),
		Quantity:  uint64(t.Quantity),
		MakerID:   t.MakerID.String(),
		TakerID:   t.TakerID.String(),
		Timestamp: t.Timestamp.Format(timeLayout),
	}
}

const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type priceLevelView struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
}

type bookView struct {
	Pair string           `json:"pair"`
	Bids []priceLevelView `json:"bids"`
	Asks []priceLevelView `json:"asks"`
}

func newBookView(pair common.Pair, snap engine.Snapshot) bookView {
	view := bookView{Pair: pair.String()}
	for _, lvl := range snap.Bids {
		view.Bids = append(view.Bids, priceLevelView{Price: uint64(lvl.Price), Quantity: uint64(lvl.Quantity)})
	}
	for _, lvl := range snap.Asks {
		view.Asks = append(view.Asks, priceLevelView{Price: uint64(lvl.Price), Quantity: uint64(lvl.Quantity)})
	}
	return view
}

type tradesPageView struct {
	Items []tradeView `json:"items"`
	Next  string      `json:"next,omitempty"`
}

// wsTradeData is the Trade frame's data envelope, per spec.md §6:
// {price,quantity,maker_id,taker_id,timestamp,symbol}. The pair is named
// symbol here, unlike the REST tradeView's pair field.
type wsTradeData struct {
	Price     uint64 `json:"price"`
	Quantity  uint64 `json:"quantity"`
	MakerID   string `json:"maker_id"`
	TakerID   string `json:"taker_id"`
	Timestamp string `json:"timestamp"`
	Symbol    string `json:"symbol"`
}

func newWSTradeData(t common.Trade) wsTradeData {
	return wsTradeData{
		Price:     uint64(t.Price),
		Quantity:  uint64(t.Quantity),
		MakerID:   t.MakerID.String(),
		TakerID:   t.TakerID.String(),
		Timestamp: t.Timestamp.Format(timeLayout),
		Symbol:    t.Pair.String(),
	}
}

// frameView is the WebSocket wire frame, per spec.md §6:
// {"type":"BookSnapshot","data":{pair,bids,asks}} or
// {"type":"Trade","data":{price,quantity,maker_id,taker_id,timestamp,symbol}}.
type frameView struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func newFrameView(f broadcast.Frame) frameView {
	view := frameView{Type: string(f.Type)}
	switch f.Type {
	case broadcast.FrameBookSnapshot:
		view.Data = newBookView(f.Pair, f.Snapshot)
	case broadcast.FrameTrade:
		view.Data = newWSTradeData(f.Trade)
	}
	return view
}

type errorBody struct {
	Error string `json:"error"`
}

type cancelOrderResponse struct {
	Status string `json:"status"`
}
