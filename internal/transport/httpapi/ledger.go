package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service"
	"github.com/KotFed0t/stock_ledger/internal/service/ledgerService"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		res = append(res, toAccountView(a))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := s.ledger.CreateAccount(r.Context(), req.Name, req.Currency)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountView(account))
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.ledger.GetAccount(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountView(account))
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := s.ledger.RenameAccount(r.Context(), chi.URLParam(r, "accountID"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountView(account))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteAccount(r.Context(), chi.URLParam(r, "accountID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.ledger.ListHoldings(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := make([]holdingView, 0, len(holdings))
	for _, h := range holdings {
		res = append(res, toHoldingView(h))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCreateHolding(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	holding, err := s.ledger.CreateHolding(r.Context(), ledgerService.CreateHoldingInput{
		AccountID:   chi.URLParam(r, "accountID"),
		Ticker:      req.Ticker,
		DisplayName: req.DisplayName,
		Currency:    req.Currency,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHoldingView(holding))
}

func (s *Server) handleGetHolding(w http.ResponseWriter, r *http.Request) {
	holding, err := s.ledger.GetHolding(r.Context(), chi.URLParam(r, "holdingID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldingView(holding))
}

func (s *Server) handleRenameHolding(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	holding, err := s.ledger.RenameHolding(r.Context(), chi.URLParam(r, "holdingID"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldingView(holding))
}

func (s *Server) handleDeleteHolding(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteHolding(r.Context(), chi.URLParam(r, "holdingID")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.ledger.ListRecords(r.Context(), chi.URLParam(r, "holdingID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := make([]recordView, 0, len(records))
	for _, rec := range records {
		res = append(res, toRecordView(rec))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAddTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tradeType, err := model.ParseTradeType(req.Type)
	if err != nil {
		writeServiceError(w, r, service.NewValidationError(service.RuleInvalidTradeType, "%s", err.Error()))
		return
	}

	holding, record, err := s.ledger.AddTrade(r.Context(), chi.URLParam(r, "holdingID"), model.TradeInput{
		Type:         tradeType,
		Price:        req.Price,
		Quantity:     req.Quantity,
		ExchangeRate: req.ExchangeRate,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tradeResponse{Holding: toHoldingView(holding), Record: toRecordView(record)})
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	holding, err := s.ledger.DeleteRecord(r.Context(), chi.URLParam(r, "holdingID"), chi.URLParam(r, "recordID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldingView(holding))
}

func (s *Server) handleResetHolding(w http.ResponseWriter, r *http.Request) {
	holding, err := s.ledger.ResetHolding(r.Context(), chi.URLParam(r, "holdingID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHoldingView(holding))
}

func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	err := s.ledger.VerifyLedger(r.Context(), chi.URLParam(r, "holdingID"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"consistent": true})
	case errors.Is(err, service.ErrLedgerInconsistent):
		writeJSON(w, http.StatusOK, map[string]any{"consistent": false, "error": err.Error()})
	default:
		writeServiceError(w, r, err)
	}
}

func (s *Server) handleAccountSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.AccountSummary(r.Context(), chi.URLParam(r, "accountID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryView(summary))
}

func (s *Server) handleSaveScenario(w http.ResponseWriter, r *http.Request) {
	var req scenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	holding, err := s.ledger.SaveScenario(r.Context(), ledgerService.SaveScenarioInput{
		AccountID:        chi.URLParam(r, "accountID"),
		Name:             req.Name,
		BaseAveragePrice: req.BaseAveragePrice,
		BaseQuantity:     req.BaseQuantity,
		Rounds:           toRounds(req.Rounds),
		Currency:         req.Currency,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHoldingView(holding))
}

// handleExport отдает xlsx файлом, а с ?upload=true возвращает ссылку на облако
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	upload := false
	if raw := r.URL.Query().Get("upload"); raw != "" {
		var err error
		if upload, err = strconv.ParseBool(raw); err != nil {
			writeError(w, http.StatusBadRequest, "upload must be a boolean")
			return
		}
	}

	res, err := s.ledger.ExportAccount(r.Context(), chi.URLParam(r, "accountID"), upload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if upload {
		writeJSON(w, http.StatusOK, map[string]string{"fileName": res.FileName, "shareLink": res.ShareLink})
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Content)
}
