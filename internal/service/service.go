// Package service provides the HTTP handlers and request plumbing for the
// pricing engine: trades, liquidity, settlement claims, fee withdrawal,
// and risk-parameter administration.
//
// All monetary values use shopspring/decimal, never float64 for money.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oddsline/amm-engine/internal/bank"
	"github.com/oddsline/amm-engine/internal/liquidity"
	"github.com/oddsline/amm-engine/internal/market"
	"github.com/oddsline/amm-engine/internal/metrics"
	"github.com/oddsline/amm-engine/internal/model"
	"github.com/oddsline/amm-engine/internal/oracle"
	"github.com/oddsline/amm-engine/internal/pool"
	"github.com/oddsline/amm-engine/internal/pricing"
	"github.com/oddsline/amm-engine/internal/risk"
	"github.com/oddsline/amm-engine/internal/settlement"
	"github.com/oddsline/amm-engine/internal/store"
)

// Service handles engine operations over HTTP. Uses a mutex for serialized
// execution (single-instance); the engine's own reentrancy guard catches
// re-entry through external transfer calls.
type Service struct {
	core   *pricing.Core
	lpool  *liquidity.Pool
	settle *settlement.Engine
	risk   *risk.Engine
	store  store.Store
	owner  string

	// Optional operational collaborators. A nil field disables the
	// corresponding admin endpoint.
	timedMarket *market.TimedMarket
	fixedAnchor *oracle.Fixed
	treasury    *bank.MemoryBank

	mu    sync.Mutex
	wsHub *Hub // optional WebSocket hub for real-time broadcasts
	now   func() time.Time
}

// NewService creates the HTTP service over a fully wired engine.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(
	core *pricing.Core,
	lpool *liquidity.Pool,
	settle *settlement.Engine,
	riskEngine *risk.Engine,
	st store.Store,
	owner string,
	hub *Hub,
) *Service {
	return &Service{
		core:   core,
		lpool:  lpool,
		settle: settle,
		risk:   riskEngine,
		store:  st,
		owner:  owner,
		wsHub:  hub,
		now:    time.Now,
	}
}

// WithAdmin attaches the optional operational collaborators behind the
// admin endpoints: attested resolution, anchor price updates, and
// treasury credits for the in-memory bank.
func (s *Service) WithAdmin(m *market.TimedMarket, anchor *oracle.Fixed, treasury *bank.MemoryBank) *Service {
	s.timedMarket = m
	s.fixedAnchor = anchor
	s.treasury = treasury
	return s
}

// RegisterRoutes mounts all engine endpoints on the router.
func (s *Service) RegisterRoutes(r chi.Router) {
	r.Post("/trade", s.Trade)
	r.Post("/liquidity/deposit", s.Deposit)
	r.Post("/liquidity/withdraw", s.Withdraw)
	r.Post("/claim", s.Claim)
	r.Post("/fees/withdraw", s.WithdrawFees)
	r.Get("/pool", s.GetPool)
	r.Get("/trades", s.GetTrades)
	r.Get("/positions/{account}", s.GetPositions)
	r.Put("/risk/params", s.UpdateRiskParams)
	r.Post("/market/resolve", s.ResolveMarket)
	r.Post("/oracle/price", s.SetAnchorPrice)
	r.Post("/accounts/credit", s.CreditAccount)
	if s.wsHub != nil {
		r.Get("/ws", s.wsHub.HandleWS)
	}
}

// --- Request/Response types ---

// TradeRequest is the JSON body for POST /trade.
type TradeRequest struct {
	Account string          `json:"account"`
	Action  string          `json:"action"` // "buy" or "sell"
	Side    string          `json:"side"`   // "YES" or "NO"
	Amount  decimal.Decimal `json:"amount"` // collateral in (buy) or shares in (sell)
}

// TradeResponse is the JSON body returned from POST /trade.
type TradeResponse struct {
	TradeID   string          `json:"trade_id"`
	Account   string          `json:"account"`
	Action    model.Action    `json:"action"`
	Side      model.Side      `json:"side"`
	Amount    decimal.Decimal `json:"amount"`
	Fee       decimal.Decimal `json:"fee"`
	Net       decimal.Decimal `json:"net"`
	Price     decimal.Decimal `json:"price"`
	RiskScore decimal.Decimal `json:"risk_score"`
}

// LiquidityRequest is the JSON body for deposit and withdraw.
type LiquidityRequest struct {
	Account string          `json:"account"`
	Amount  decimal.Decimal `json:"amount"` // collateral (deposit) or LP shares (withdraw)
}

// LiquidityResponse reports the other leg of a deposit or withdrawal.
type LiquidityResponse struct {
	Account      string          `json:"account"`
	SharesMinted decimal.Decimal `json:"shares_minted,omitempty"`
	SharesBurned decimal.Decimal `json:"shares_burned,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
}

// AccountRequest carries just the caller identity.
type AccountRequest struct {
	Account string `json:"account"`
}

// ClaimResponse reports a settlement payout.
type ClaimResponse struct {
	Account string          `json:"account"`
	Payout  decimal.Decimal `json:"payout"`
}

// --- HTTP Handlers ---

// Trade handles POST /api/v1/trade for both buy and sell.
func (s *Service) Trade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}
	side, err := model.ParseSide(req.Side)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Action != string(model.ActionBuy) && req.Action != string(model.ActionSell) {
		writeError(w, "action must be buy or sell", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	start := time.Now()

	// Serialize execution.
	s.mu.Lock()
	defer s.mu.Unlock()

	var ev model.TradeEvent
	if req.Action == string(model.ActionBuy) {
		ev, err = s.core.Buy(ctx, req.Account, side, req.Amount)
	} else {
		ev, err = s.core.Sell(ctx, req.Account, side, req.Amount)
	}
	if err != nil {
		metrics.TradeRejections.WithLabelValues(rejectionReason(err)).Inc()
		writeError(w, err.Error(), statusForError(err))
		return
	}

	ev.ID = uuid.New().String()
	ev.CreatedAt = s.now().UTC()
	s.persistTrade(ctx, &ev)

	metrics.TradesTotal.WithLabelValues(string(ev.Action), string(ev.Side)).Inc()
	metrics.TradeLatency.WithLabelValues(string(ev.Action)).Observe(time.Since(start).Seconds())
	metrics.PoolPrice.Set(ev.Price.InexactFloat64())
	metrics.RiskScore.Set(ev.RiskScore.InexactFloat64())
	metrics.CollateralBalance.Set(s.core.State().CollateralBalance.InexactFloat64())

	slog.Info("trade executed",
		"trade_id", ev.ID,
		"account", ev.Account,
		"action", ev.Action,
		"side", ev.Side,
		"amount", ev.Amount.String(),
		"fee", ev.Fee.String(),
		"price", ev.Price.String(),
		"risk_score", ev.RiskScore.String(),
	)

	if s.wsHub != nil {
		s.wsHub.Broadcast(WSMessage{
			Type:      "trade_executed",
			Action:    string(ev.Action),
			Side:      string(ev.Side),
			Amount:    ev.Amount.String(),
			Price:     ev.Price.String(),
			RiskScore: ev.RiskScore.String(),
		})
	}

	writeJSON(w, http.StatusOK, TradeResponse{
		TradeID:   ev.ID,
		Account:   ev.Account,
		Action:    ev.Action,
		Side:      ev.Side,
		Amount:    ev.Amount,
		Fee:       ev.Fee,
		Net:       ev.Net,
		Price:     ev.Price,
		RiskScore: ev.RiskScore,
	})
}

// Deposit handles POST /api/v1/liquidity/deposit.
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	minted, err := s.lpool.Deposit(r.Context(), req.Account, req.Amount)
	if err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}
	s.persistSnapshot(r.Context())

	slog.Info("liquidity deposited",
		"account", req.Account,
		"amount", req.Amount.String(),
		"shares", minted.String(),
	)

	writeJSON(w, http.StatusOK, LiquidityResponse{
		Account:      req.Account,
		SharesMinted: minted,
		Amount:       req.Amount,
	})
}

// Withdraw handles POST /api/v1/liquidity/withdraw.
func (s *Service) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.lpool.Withdraw(r.Context(), req.Account, req.Amount)
	if err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}
	s.persistSnapshot(r.Context())

	slog.Info("liquidity withdrawn",
		"account", req.Account,
		"shares", req.Amount.String(),
		"amount", amount.String(),
	)

	writeJSON(w, http.StatusOK, LiquidityResponse{
		Account:      req.Account,
		SharesBurned: req.Amount,
		Amount:       amount,
	})
}

// Claim handles POST /api/v1/claim.
func (s *Service) Claim(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		writeError(w, "account is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payout, err := s.settle.ClaimWinnings(r.Context(), req.Account)
	if err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}
	s.persistSnapshot(r.Context())
	metrics.ClaimsTotal.Inc()

	slog.Info("winnings claimed", "account", req.Account, "payout", payout.String())

	writeJSON(w, http.StatusOK, ClaimResponse{Account: req.Account, Payout: payout})
}

// WithdrawFees handles POST /api/v1/fees/withdraw.
func (s *Service) WithdrawFees(w http.ResponseWriter, r *http.Request) {
	var req AccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	amount, err := s.core.WithdrawFees(r.Context(), req.Account)
	if err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}
	s.persistSnapshot(r.Context())

	slog.Info("fees withdrawn", "recipient", req.Account, "amount", amount.String())

	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"amount": amount})
}

// GetPool handles GET /api/v1/pool. Takes the same mutex as the mutating
// handlers: pool state fields have no locking of their own, so an
// unserialized read could observe a half-committed trade.
func (s *Service) GetPool(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	quote, err := s.core.CurrentQuote(r.Context())
	s.mu.Unlock()
	if err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// GetTrades handles GET /api/v1/trades, optionally filtered by ?account=.
func (s *Service) GetTrades(w http.ResponseWriter, r *http.Request) {
	var (
		events []model.TradeEvent
		err    error
	)
	if account := r.URL.Query().Get("account"); account != "" {
		events, err = s.store.ListTradeEventsByAccount(r.Context(), account)
	} else {
		events, err = s.store.ListTradeEvents(r.Context())
	}
	if err != nil {
		writeError(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []model.TradeEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetPositions handles GET /api/v1/positions/{account}.
func (s *Service) GetPositions(w http.ResponseWriter, r *http.Request) {
	account := chi.URLParam(r, "account")
	yes, no := s.core.PositionBalances(account)
	lp := s.lpool.Shares().BalanceOf(account)

	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{
		"yes":       yes,
		"no":        no,
		"lp_shares": lp,
	})
}

// RiskParamsRequest is the JSON body for PUT /risk/params. TimeCeiling is
// a Go duration string (e.g. "72h").
type RiskParamsRequest struct {
	Account           string          `json:"account"`
	DivergenceCeiling decimal.Decimal `json:"divergence_ceiling"`
	TimeCeiling       string          `json:"time_ceiling"`
	LiquidityTarget   decimal.Decimal `json:"liquidity_target"`
	WDiv              decimal.Decimal `json:"w_div"`
	WTime             decimal.Decimal `json:"w_time"`
	WLiq              decimal.Decimal `json:"w_liq"`
	FeeMinBps         decimal.Decimal `json:"fee_min_bps"`
	FeeMaxBps         decimal.Decimal `json:"fee_max_bps"`
	BaseMaxTrade      decimal.Decimal `json:"base_max_trade"`
	DepthSensitivity  decimal.Decimal `json:"depth_sensitivity"`
}

// UpdateRiskParams handles PUT /api/v1/risk/params. Owner-gated.
func (s *Service) UpdateRiskParams(w http.ResponseWriter, r *http.Request) {
	var req RiskParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ceiling, err := time.ParseDuration(req.TimeCeiling)
	if err != nil {
		writeError(w, "time_ceiling must be a duration string", http.StatusBadRequest)
		return
	}

	params := risk.Params{
		DivergenceCeiling: req.DivergenceCeiling,
		TimeCeiling:       ceiling,
		LiquidityTarget:   req.LiquidityTarget,
		WDiv:              req.WDiv,
		WTime:             req.WTime,
		WLiq:              req.WLiq,
		FeeMinBps:         req.FeeMinBps,
		FeeMaxBps:         req.FeeMaxBps,
		BaseMaxTrade:      req.BaseMaxTrade,
		DepthSensitivity:  req.DepthSensitivity,
	}

	if err := s.risk.SetParams(req.Account, params); err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}

	slog.Info("risk parameters updated", "owner", req.Account)
	writeJSON(w, http.StatusOK, params)
}

// ResolveRequest is the JSON body for POST /market/resolve.
type ResolveRequest struct {
	Account string `json:"account"`
	Outcome bool   `json:"outcome"`
	Timeout bool   `json:"timeout"` // true = time-delayed fallback, ignore Outcome
}

// ResolveMarket handles POST /api/v1/market/resolve. Owner-gated entry
// point for attested resolution and the timeout fallback.
func (s *Service) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	if s.timedMarket == nil {
		writeError(w, "market resolution is managed externally", http.StatusNotFound)
		return
	}
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account != s.owner {
		writeError(w, "caller is not the market owner", http.StatusForbidden)
		return
	}

	var err error
	if req.Timeout {
		err = s.timedMarket.ResolveByTimeout(s.now())
	} else {
		err = s.timedMarket.Resolve(s.now(), req.Outcome)
	}
	if err != nil {
		writeError(w, err.Error(), statusForError(err))
		return
	}

	outcome, _ := s.timedMarket.Outcome()
	slog.Info("market resolved", "outcome", outcome, "timeout", req.Timeout)
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": true, "outcome": outcome})
}

// AnchorRequest is the JSON body for POST /oracle/price.
type AnchorRequest struct {
	Account string          `json:"account"`
	Price   decimal.Decimal `json:"price"`
}

// SetAnchorPrice handles POST /api/v1/oracle/price. Owner-gated; only
// available when the active oracle is the fixed development oracle.
func (s *Service) SetAnchorPrice(w http.ResponseWriter, r *http.Request) {
	if s.fixedAnchor == nil {
		writeError(w, "anchor price is served by an external oracle", http.StatusNotFound)
		return
	}
	var req AnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account != s.owner {
		writeError(w, "caller is not the oracle owner", http.StatusForbidden)
		return
	}

	s.fixedAnchor.SetPrice(req.Price)
	slog.Info("anchor price updated", "price", req.Price.String())
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"price": req.Price})
}

// CreditRequest is the JSON body for POST /accounts/credit.
type CreditRequest struct {
	Account string          `json:"account"` // caller
	To      string          `json:"to"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreditAccount handles POST /api/v1/accounts/credit. Owner-gated; only
// available when collateral is backed by the in-memory bank.
func (s *Service) CreditAccount(w http.ResponseWriter, r *http.Request) {
	if s.treasury == nil {
		writeError(w, "collateral is managed by an external ledger", http.StatusNotFound)
		return
	}
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Account != s.owner {
		writeError(w, "caller is not the treasury owner", http.StatusForbidden)
		return
	}
	if req.To == "" || req.Amount.LessThanOrEqual(decimal.Zero) {
		writeError(w, "to and a positive amount are required", http.StatusBadRequest)
		return
	}

	s.treasury.Credit(req.To, req.Amount)
	writeJSON(w, http.StatusOK, map[string]string{"credited": req.To})
}

// --- Persistence helpers ---

// persistTrade mirrors a committed trade into the store. The in-memory
// engine state is authoritative; a persistence failure is logged, not
// surfaced, because the trade has already committed.
func (s *Service) persistTrade(ctx context.Context, ev *model.TradeEvent) {
	if err := s.store.InsertTradeEvent(ctx, ev); err != nil {
		slog.Error("failed to persist trade event", "err", err, "trade_id", ev.ID)
	}
	s.persistSnapshot(ctx)
}

func (s *Service) persistSnapshot(ctx context.Context) {
	snap := s.core.State().Snapshot(s.now().UTC())
	if err := s.store.SaveSnapshot(ctx, &snap); err != nil {
		slog.Error("failed to persist pool snapshot", "err", err)
	}
}

// --- Error mapping ---

// statusForError maps engine errors onto HTTP statuses: input errors to
// 400, authorization to 403, state/limit/accounting conflicts to 409, and
// external dependency failures to 502.
func statusForError(err error) int {
	switch {
	case errors.Is(err, pricing.ErrZeroAmount),
		errors.Is(err, liquidity.ErrZeroAmount),
		errors.Is(err, model.ErrInvalidSide),
		errors.Is(err, bank.ErrNonPositiveAmount),
		errors.Is(err, risk.ErrInvalidWeights),
		errors.Is(err, risk.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, risk.ErrNotOwner),
		errors.Is(err, oracle.ErrNotOwner),
		errors.Is(err, pricing.ErrNotFeeRecipient):
		return http.StatusForbidden
	case errors.Is(err, oracle.ErrUnavailable),
		errors.Is(err, risk.ErrAnchorInvalid):
		return http.StatusBadGateway
	case errors.Is(err, pricing.ErrMarketResolved),
		errors.Is(err, pricing.ErrTradeTooLarge),
		errors.Is(err, pricing.ErrInsufficientPosition),
		errors.Is(err, pricing.ErrInsufficientCollateral),
		errors.Is(err, pricing.ErrNoFeesToWithdraw),
		errors.Is(err, liquidity.ErrInsufficientShares),
		errors.Is(err, liquidity.ErrInsufficientLiquidity),
		errors.Is(err, settlement.ErrMarketNotResolved),
		errors.Is(err, settlement.ErrNothingToClaim),
		errors.Is(err, bank.ErrInsufficientFunds),
		errors.Is(err, pool.ErrReentrantCall),
		errors.Is(err, market.ErrAlreadyResolved),
		errors.Is(err, market.ErrBeforeExpiry),
		errors.Is(err, market.ErrDisputeWindowOpen):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// rejectionReason labels a rejected trade for metrics without unbounded
// cardinality.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, pricing.ErrTradeTooLarge):
		return "trade_too_large"
	case errors.Is(err, pricing.ErrMarketResolved):
		return "market_resolved"
	case errors.Is(err, pricing.ErrInsufficientPosition):
		return "insufficient_position"
	case errors.Is(err, pricing.ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, oracle.ErrUnavailable), errors.Is(err, risk.ErrAnchorInvalid):
		return "anchor_unavailable"
	case errors.Is(err, bank.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, pricing.ErrZeroAmount):
		return "zero_amount"
	default:
		return "other"
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
