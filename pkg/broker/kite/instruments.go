package kite

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Nifty50 and BankNifty are the curated index constituent lists offered to
// the dashboard as watchlist starting points.
var Nifty50 = []string{
	"ADANIENT", "ADANIPORTS", "APOLLOHOSP", "ASIANPAINT", "AXISBANK",
	"BAJAJ-AUTO", "BAJFINANCE", "BAJAJFINSV", "BEL", "BHARTIARTL",
	"CIPLA", "COALINDIA", "DRREDDY", "EICHERMOT", "ETERNAL",
	"GRASIM", "HCLTECH", "HDFCBANK", "HDFCLIFE", "HEROMOTOCO",
	"HINDALCO", "HINDUNILVR", "ICICIBANK", "INDUSINDBK", "INFY",
	"ITC", "JIOFIN", "JSWSTEEL", "KOTAKBANK", "LT",
	"M&M", "MARUTI", "NESTLEIND", "NTPC", "ONGC",
	"POWERGRID", "RELIANCE", "SBILIFE", "SBIN", "SHRIRAMFIN",
	"SUNPHARMA", "TATACONSUM", "TATAMOTORS", "TATASTEEL", "TCS",
	"TECHM", "TITAN", "TRENT", "ULTRACEMCO", "WIPRO",
}

var BankNifty = []string{
	"AUBANK", "AXISBANK", "BANKBARODA", "CANBK", "FEDERALBNK",
	"HDFCBANK", "ICICIBANK", "IDFCFIRSTB", "INDUSINDBK", "KOTAKBANK",
	"PNB", "SBIN",
}

// Instruments caches the exchange instrument master keyed by trading symbol.
type Instruments struct {
	client *Client

	mu       sync.RWMutex
	bySymbol map[string]Instrument
	loadedAt time.Time
}

// NewInstruments builds an empty cache backed by the given client.
func NewInstruments(client *Client) *Instruments {
	return &Instruments{
		client:   client,
		bySymbol: make(map[string]Instrument),
	}
}

// Load downloads and parses the instrument master CSV for one exchange.
// The master changes at most daily, so callers load once per session.
func (m *Instruments) Load(ctx context.Context, exchange string) error {
	if err := m.client.limiter.Wait(ctx); err != nil {
		return err
	}

	u := fmt.Sprintf("%s/instruments/%s", m.client.baseURL, exchange)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Kite-Version", kiteVersion)

	res, err := m.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("instrument master: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("instrument master: http %d", res.StatusCode)
	}

	parsed, err := parseInstrumentCSV(res.Body, exchange)
	if err != nil {
		return fmt.Errorf("instrument master: %w", err)
	}

	m.mu.Lock()
	m.bySymbol = parsed
	m.loadedAt = time.Now()
	m.mu.Unlock()
	return nil
}

func parseInstrumentCSV(r io.Reader, exchange string) (map[string]Instrument, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"instrument_token", "tradingsymbol"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	out := make(map[string]Instrument)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		token, err := strconv.ParseInt(field(row, "instrument_token"), 10, 64)
		if err != nil {
			continue
		}
		symbol := field(row, "tradingsymbol")
		if symbol == "" {
			continue
		}
		lot, _ := strconv.Atoi(field(row, "lot_size"))
		tick, _ := strconv.ParseFloat(field(row, "tick_size"), 64)
		out[symbol] = Instrument{
			Token:    token,
			Symbol:   symbol,
			Name:     field(row, "name"),
			Exchange: exchange,
			Segment:  field(row, "segment"),
			Type:     field(row, "instrument_type"),
			LotSize:  lot,
			TickSize: tick,
		}
	}
	return out, nil
}

// Lookup returns the instrument for a trading symbol.
func (m *Instruments) Lookup(symbol string) (Instrument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.bySymbol[symbol]
	return inst, ok
}

// TokenFor returns the instrument token for a trading symbol.
func (m *Instruments) TokenFor(symbol string) (int64, error) {
	inst, ok := m.Lookup(symbol)
	if !ok {
		return 0, fmt.Errorf("instrument %q not in master", symbol)
	}
	return inst.Token, nil
}

// Known filters the given list to symbols present in the master, preserving
// order. Before Load it returns the list unchanged so dry runs still work.
func (m *Instruments) Known(symbols []string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.bySymbol) == 0 {
		return symbols
	}
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := m.bySymbol[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Loaded reports whether the master has been fetched this session.
func (m *Instruments) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySymbol) > 0
}
