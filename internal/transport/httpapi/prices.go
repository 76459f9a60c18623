package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/KotFed0t/stock_ledger/internal/service/priceSyncService"
)

func (s *Server) handleMarketIndicators(w http.ResponseWriter, r *http.Request) {
	indicators := s.prices.MarketIndicators(r.Context())

	res := make([]indicatorView, 0, len(indicators))
	for _, ind := range indicators {
		res = append(res, toIndicatorView(ind))
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRefreshPrices - без тела или с пустым списком обновляются все тикеры
func (s *Server) handleRefreshPrices(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	var report priceSyncService.RefreshReport
	if len(req.Tickers) > 0 {
		report = s.prices.Refresh(r.Context(), req.Tickers)
	} else {
		var err error
		if report, err = s.prices.RefreshAll(r.Context()); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, toRefreshView(report))
}
