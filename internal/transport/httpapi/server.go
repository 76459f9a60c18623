package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/KotFed0t/stock_ledger/config"
	"github.com/KotFed0t/stock_ledger/internal/model"
	"github.com/KotFed0t/stock_ledger/internal/service/ledgerService"
	"github.com/KotFed0t/stock_ledger/internal/service/priceSyncService"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type LedgerService interface {
	CreateAccount(ctx context.Context, name, currency string) (model.Account, error)
	GetAccount(ctx context.Context, accountID string) (model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	RenameAccount(ctx context.Context, accountID, name string) (model.Account, error)
	DeleteAccount(ctx context.Context, accountID string) error

	CreateHolding(ctx context.Context, in ledgerService.CreateHoldingInput) (model.Holding, error)
	GetHolding(ctx context.Context, holdingID string) (model.Holding, error)
	ListHoldings(ctx context.Context, accountID string) ([]model.Holding, error)
	RenameHolding(ctx context.Context, holdingID, displayName string) (model.Holding, error)
	DeleteHolding(ctx context.Context, holdingID string) error

	AddTrade(ctx context.Context, holdingID string, in model.TradeInput) (model.Holding, model.TradingRecord, error)
	ListRecords(ctx context.Context, holdingID string) ([]model.TradingRecord, error)
	DeleteRecord(ctx context.Context, holdingID, recordID string) (model.Holding, error)
	ResetHolding(ctx context.Context, holdingID string) (model.Holding, error)
	VerifyLedger(ctx context.Context, holdingID string) error

	AccountSummary(ctx context.Context, accountID string) (model.AccountSummary, error)
	SaveScenario(ctx context.Context, in ledgerService.SaveScenarioInput) (model.Holding, error)
	ExportAccount(ctx context.Context, accountID string, upload bool) (ledgerService.ExportResult, error)
}

type PriceService interface {
	Refresh(ctx context.Context, tickers []string) priceSyncService.RefreshReport
	RefreshAll(ctx context.Context) (priceSyncService.RefreshReport, error)
	MarketIndicators(ctx context.Context) []model.MarketIndicator
}

type PriceSubscriber interface {
	Subscribe(ctx context.Context) (<-chan model.PriceUpdate, func(), error)
}

type Server struct {
	cfg        *config.Config
	router     *chi.Mux
	server     *http.Server
	ledger     LedgerService
	prices     PriceService
	subscriber PriceSubscriber
}

func New(cfg *config.Config, ledger LedgerService, prices PriceService, subscriber PriceSubscriber) *Server {
	s := &Server{
		cfg:        cfg,
		router:     chi.NewRouter(),
		ledger:     ledger,
		prices:     prices,
		subscriber: subscriber,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logRequest)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", s.handleListAccounts)
			r.Post("/", s.handleCreateAccount)

			r.Route("/{accountID}", func(r chi.Router) {
				r.Get("/", s.handleGetAccount)
				r.Patch("/", s.handleRenameAccount)
				r.Delete("/", s.handleDeleteAccount)

				r.Get("/holdings", s.handleListHoldings)
				r.Post("/holdings", s.handleCreateHolding)
				r.Get("/summary", s.handleAccountSummary)
				r.Post("/scenarios", s.handleSaveScenario)
				r.Get("/export", s.handleExport)
			})
		})

		r.Route("/holdings/{holdingID}", func(r chi.Router) {
			r.Get("/", s.handleGetHolding)
			r.Patch("/", s.handleRenameHolding)
			r.Delete("/", s.handleDeleteHolding)

			r.Get("/records", s.handleListRecords)
			r.Post("/records", s.handleAddTrade)
			r.Delete("/records", s.handleResetHolding)
			r.Delete("/records/{recordID}", s.handleDeleteRecord)
			r.Get("/verify", s.handleVerifyLedger)
		})

		r.Route("/calculator", func(r chi.Router) {
			r.Post("/averaging", s.handleAveraging)
			r.Post("/profit", s.handleProfit)
		})

		r.Get("/market/indicators", s.handleMarketIndicators)
		r.Post("/prices/refresh", s.handleRefreshPrices)
	})

	s.router.Get("/ws/prices", s.handlePriceStream)
}

func (s *Server) Start() {
	go func() {
		slog.Info("starting HTTP server", slog.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", slog.String("err", err.Error()))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
