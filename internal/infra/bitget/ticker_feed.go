package bitget

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/siwoo2013/siu-autotrade-gui/internal/infra"
	"github.com/siwoo2013/siu-autotrade-gui/internal/symbol"
)

// wsSubscribeRequest/Arg follow the Bitget v2 public WS protocol.
type wsSubscribeRequest struct {
	Op   string           `json:"op"`
	Args []wsSubscribeArg `json:"args"`
}

type wsSubscribeArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstId   string `json:"instId"`
}

type wsTickerResponse struct {
	Arg  wsSubscribeArg `json:"arg"`
	Data []wsTickerData `json:"data"`
}

type wsTickerData struct {
	InstId string `json:"instId"`
	LastPr string `json:"lastPr"`
}

// TickerFeed keeps the latest traded price per instrument over the public
// websocket. It exists so the take-profit monitor can watch prices without
// burning REST rate-limit budget on every poll tick.
type TickerFeed struct {
	url     string
	symbols map[string]string // canonical -> ws instId
	base    *infra.BaseWSWorker

	mu     sync.RWMutex
	prices map[string]decimal.Decimal // canonical -> last price
}

// NewTickerFeed creates a feed for the given canonical symbols.
func NewTickerFeed(wsURL string, canonicalSymbols []string) *TickerFeed {
	syms := make(map[string]string, len(canonicalSymbols))
	for _, s := range canonicalSymbols {
		syms[s] = wsInstID(s)
	}
	f := &TickerFeed{
		url:     wsURL,
		symbols: syms,
		prices:  make(map[string]decimal.Decimal, len(canonicalSymbols)),
	}
	f.base = infra.NewBaseWSWorker(f)
	return f
}

func (f *TickerFeed) ID() string     { return "BITGET_TICKER" }
func (f *TickerFeed) GetURL() string { return f.url }

// Start begins the connection loop.
func (f *TickerFeed) Start(ctx context.Context) {
	f.base.Start(ctx)
}

// Stop closes the feed.
func (f *TickerFeed) Stop() {
	f.base.Stop()
}

// Price returns the latest known price for a canonical symbol.
func (f *TickerFeed) Price(canonical string) (decimal.Decimal, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.prices[canonical]
	return p, ok
}

func (f *TickerFeed) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	args := make([]wsSubscribeArg, 0, len(f.symbols))
	for _, instID := range f.symbols {
		args = append(args, wsSubscribeArg{InstType: "USDT-FUTURES", Channel: "ticker", InstId: instID})
	}
	req := wsSubscribeRequest{Op: "subscribe", Args: args}
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return f.base.Write(websocket.TextMessage, b)
}

func (f *TickerFeed) OnMessage(ctx context.Context, msg []byte) {
	if string(msg) == "pong" {
		return
	}

	var resp wsTickerResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return
	}
	if resp.Arg.Channel != "ticker" || len(resp.Data) == 0 {
		return
	}

	for _, data := range resp.Data {
		canonical := f.findCanonical(data.InstId)
		if canonical == "" {
			continue
		}
		price, err := decimal.NewFromString(data.LastPr)
		if err != nil {
			continue
		}

		f.mu.Lock()
		f.prices[canonical] = price
		f.mu.Unlock()
	}
}

func (f *TickerFeed) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return f.base.Write(websocket.TextMessage, []byte("ping"))
}

func (f *TickerFeed) findCanonical(instID string) string {
	for canonical, id := range f.symbols {
		if id == instID {
			return canonical
		}
	}
	return ""
}

// wsInstID maps a canonical REST symbol to the v2 websocket instrument id
// (the websocket drops the product suffix: BTCUSDT_UMCBL -> BTCUSDT).
func wsInstID(canonical string) string {
	return strings.TrimSuffix(canonical, symbol.CanonicalSuffix)
}
