package polygon

// contractsResponse: /v3/reference/options/contracts
type contractsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Ticker         string  `json:"ticker"`
		ExpirationDate string  `json:"expiration_date"` // YYYY-MM-DD
		StrikePrice    float64 `json:"strike_price"`
		ContractType   string  `json:"contract_type"`
	} `json:"results"`
	Next string `json:"next_url"`
}

func (r *contractsResponse) NextURL() string { return r.Next }

// snapshotResponse: /v3/snapshot/options/{underlying}
type snapshotResponse struct {
	Status  string           `json:"status"`
	Results []snapshotResult `json:"results"`
	Next    string           `json:"next_url"`
}

func (r *snapshotResponse) NextURL() string { return r.Next }

type snapshotResult struct {
	Details struct {
		Ticker         string  `json:"ticker"`
		StrikePrice    float64 `json:"strike_price"`
		ExpirationDate string  `json:"expiration_date"`
		ContractType   string  `json:"contract_type"`
	} `json:"details"`
	LastQuote *struct {
		Bid *float64 `json:"bid"`
		Ask *float64 `json:"ask"`
	} `json:"last_quote"`
	LastTrade *struct {
		Price *float64 `json:"price"`
	} `json:"last_trade"`
	Greeks *struct {
		Delta *float64 `json:"delta"`
		Gamma *float64 `json:"gamma"`
		Theta *float64 `json:"theta"`
		Vega  *float64 `json:"vega"`
	} `json:"greeks"`
	Day *struct {
		Close  *float64 `json:"close"`
		Volume *float64 `json:"volume"`
	} `json:"day"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
	OpenInterest      *float64 `json:"open_interest"`
	UnderlyingAsset   *struct {
		Ticker string   `json:"ticker"`
		Price  *float64 `json:"price"`
	} `json:"underlying_asset"`
}

// aggsResponse: /v2/aggs/ticker/{ticker}/range/1/day/{from}/{to}
type aggsResponse struct {
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Results      []struct {
		T int64   `json:"t"` // unix ms (bar 시작, 미 동부 자정)
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}
