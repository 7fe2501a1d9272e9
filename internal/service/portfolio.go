package service

import "fmt"

// Portfolio is the static demo payload shown after a face login. It is not
// backed by any real account data.
type Portfolio struct {
	Summary    PortfolioSummary `json:"summary"`
	Positions  []Position       `json:"positions"`
	Watchlist  []WatchItem      `json:"watchlist"`
	Allocation []AllocationItem `json:"allocation"`
}

type PortfolioSummary struct {
	AccountName string  `json:"account_name"`
	Balance     float64 `json:"balance"`
	DailyPnL    float64 `json:"daily_pnl"`
	YTDPnL      float64 `json:"ytd_pnl"`
}

type Position struct {
	Ticker string  `json:"ticker"`
	Qty    int     `json:"qty"`
	Price  float64 `json:"price"`
	Avg    float64 `json:"avg"`
	PnL    float64 `json:"pnl"`
}

type WatchItem struct {
	Ticker string  `json:"ticker"`
	Price  float64 `json:"price"`
	Change float64 `json:"chg"`
}

type AllocationItem struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

func demoPortfolio(name string) *Portfolio {
	return &Portfolio{
		Summary: PortfolioSummary{
			AccountName: fmt.Sprintf("%s's account", name),
			Balance:     127450.32,
			DailyPnL:    842.18,
			YTDPnL:      9315.77,
		},
		Positions: []Position{
			{Ticker: "PETR4", Qty: 600, Price: 37.12, Avg: 33.90, PnL: 1932.00},
			{Ticker: "VALE3", Qty: 150, Price: 62.45, Avg: 58.10, PnL: 652.50},
			{Ticker: "IVVB11", Qty: 40, Price: 327.70, Avg: 305.00, PnL: 907.99},
		},
		Watchlist: []WatchItem{
			{Ticker: "BBDC4", Price: 13.42, Change: 0.82},
			{Ticker: "ITUB4", Price: 36.05, Change: -0.15},
			{Ticker: "WEGE3", Price: 38.90, Change: 1.12},
		},
		Allocation: []AllocationItem{
			{Label: "BR equities", Value: 55},
			{Label: "US ETF (IVVB11)", Value: 25},
			{Label: "Fixed income", Value: 15},
			{Label: "Cash", Value: 5},
		},
	}
}
