package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WatchSymbol is one monitored instrument from the watchlist file.
type WatchSymbol struct {
	Symbol   string `yaml:"symbol"`
	Token    int64  `yaml:"token"`
	Exchange string `yaml:"exchange"`
	Enabled  *bool  `yaml:"enabled"`
}

// Watchlist is the instrument universe the engine monitors.
type Watchlist struct {
	Symbols []WatchSymbol `yaml:"symbols"`
}

// LoadWatchlist reads the YAML watchlist and returns enabled symbols only.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}

	var wl Watchlist
	if err := yaml.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("parse watchlist: %w", err)
	}

	enabled := make([]WatchSymbol, 0, len(wl.Symbols))
	for _, s := range wl.Symbols {
		if s.Symbol == "" {
			continue
		}
		if s.Enabled != nil && !*s.Enabled {
			continue
		}
		if s.Exchange == "" {
			s.Exchange = "NSE"
		}
		enabled = append(enabled, s)
	}
	wl.Symbols = enabled
	return &wl, nil
}

// Names returns the plain symbol names in watchlist order.
func (w *Watchlist) Names() []string {
	names := make([]string, 0, len(w.Symbols))
	for _, s := range w.Symbols {
		names = append(names, s.Symbol)
	}
	return names
}
