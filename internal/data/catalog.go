package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// TickerInfo describes one tradable symbol.
type TickerInfo struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	AssetClass string `json:"asset_class"` // e.g. "equity", "bond", "commodity"
}

// TickerCatalog is the list of symbols offered to clients.
type TickerCatalog struct {
	UpdatedAt string       `json:"updated_at"` // ISO 8601 timestamp
	Tickers   []TickerInfo `json:"tickers"`
}

// DefaultCatalog covers every ticker in the built-in strategy universes.
func DefaultCatalog() *TickerCatalog {
	return &TickerCatalog{Tickers: []TickerInfo{
		{Symbol: "AGG", Name: "iShares Core US Aggregate Bond", AssetClass: "bond"},
		{Symbol: "DBC", Name: "Invesco DB Commodity Index", AssetClass: "commodity"},
		{Symbol: "EEM", Name: "iShares MSCI Emerging Markets", AssetClass: "equity"},
		{Symbol: "EFA", Name: "iShares MSCI EAFE", AssetClass: "equity"},
		{Symbol: "EWJ", Name: "iShares MSCI Japan", AssetClass: "equity"},
		{Symbol: "GLD", Name: "SPDR Gold Shares", AssetClass: "commodity"},
		{Symbol: "HYG", Name: "iShares iBoxx High Yield Corporate Bond", AssetClass: "bond"},
		{Symbol: "IEF", Name: "iShares 7-10 Year Treasury Bond", AssetClass: "bond"},
		{Symbol: "IWM", Name: "iShares Russell 2000", AssetClass: "equity"},
		{Symbol: "LQD", Name: "iShares iBoxx Investment Grade Corporate Bond", AssetClass: "bond"},
		{Symbol: "QQQ", Name: "Invesco QQQ Trust", AssetClass: "equity"},
		{Symbol: "SHY", Name: "iShares 1-3 Year Treasury Bond", AssetClass: "bond"},
		{Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", AssetClass: "equity"},
		{Symbol: "VGK", Name: "Vanguard FTSE Europe", AssetClass: "equity"},
		{Symbol: "VNQ", Name: "Vanguard Real Estate", AssetClass: "real_estate"},
	}}
}

// Filter returns the entries of the given asset class, or all when class is empty.
func (c *TickerCatalog) Filter(class string) []TickerInfo {
	out := []TickerInfo{}
	for _, t := range c.Tickers {
		if class == "" || t.AssetClass == class {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// LoadCatalog loads a catalog from a JSON file
func LoadCatalog(filePath string) (*TickerCatalog, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var list TickerCatalog
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return &list, nil
}

// SaveCatalog writes a catalog as indented JSON, creating the directory.
func SaveCatalog(list *TickerCatalog, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	return nil
}
