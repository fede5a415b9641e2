package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"matchforge/internal/common"
)

// tradeRecordLen is the fixed size of an encoded Trade: price(8) + qty(8) +
// makerID hi/lo(16) + takerID hi/lo(16) + unix-microseconds timestamp(8).
// This hand-rolled binary layout mirrors the teacher's own wire-format idiom
// (internal/net/messages.go's fixed-header encoding/binary approach) rather
// than pulling in a schema codec — see DESIGN.md.
const tradeRecordLen = 8 + 8 + 16 + 16 + 8

func encodeTrade(t common.Trade) []byte {
	buf := make([]byte, tradeRecordLen)
	makerHi, makerLo := t.MakerID.Parts()
	takerHi, takerLo := t.TakerID.Parts()

	binary.BigEndian.PutUint64(buf[0:8], uint64(t.Price))
	binary.BigEndian.PutUint64(buf[8:16], uint64(t.Quantity))
	binary.BigEndian.PutUint64(buf[16:24], makerHi)
	binary.BigEndian.PutUint64(buf[24:32], makerLo)
	binary.BigEndian.PutUint64(buf[32:40], takerHi)
	binary.BigEndian.PutUint64(buf[40:48], takerLo)
	binary.BigEndian.PutUint64(buf[48:56], uint64(t.Timestamp.UnixMicro()))
	return buf
}

func decodeTrade(pair common.Pair, raw []byte) (common.Trade, error) {
	if len(raw) != tradeRecordLen {
		return common.Trade{}, fmt.Errorf("%w: trade record has %d bytes, want %d", common.ErrStore, len(raw), tradeRecordLen)
	}
	price := binary.BigEndian.Uint64(raw[0:8])
	qty := binary.BigEndian.Uint64(raw[8:16])
	makerHi := binary.BigEndian.Uint64(raw[16:24])
	makerLo := binary.BigEndian.Uint64(raw[24:32])
	takerHi := binary.BigEndian.Uint64(raw[32:40])
	takerLo := binary.BigEndian.Uint64(raw[40:48])
	micros := int64(binary.BigEndian.Uint64(raw[48:56]))

	return common.Trade{
		Pair:      pair,
		Price:     common.Price(price),
		Quantity:  common.Quantity(qty),
		MakerID:   common.IDFromParts(makerHi, makerLo),
		TakerID:   common.IDFromParts(takerHi, takerLo),
		Timestamp: time.UnixMicro(micros).UTC(),
	}, nil
}
