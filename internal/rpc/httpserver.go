package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"positionengine/internal/lifecycle"
	"positionengine/pkg/types"
)

// Server is the dashboard-facing HTTP+WebSocket adapter over Service.
// It is deliberately thin: every handler decodes a request, calls
// Service, and encodes the result.
type Server struct {
	svc    Service
	hub    *Hub
	logger *slog.Logger
	server *http.Server
}

// NewServer builds the HTTP mux and wraps it in an *http.Server
// listening on addr (e.g. ":8090").
func NewServer(addr string, svc Service, hub *Hub, logger *slog.Logger) *Server {
	s := &Server{svc: svc, hub: hub, logger: logger.With("component", "rpc-server")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/positions", s.handleOpenPosition)
	mux.HandleFunc("GET /v1/positions/{id}", s.handleGetActivePosition)
	mux.HandleFunc("DELETE /v1/positions/{id}", s.handleClosePosition)
	mux.HandleFunc("POST /v1/pending", s.handleOpenPending)
	mux.HandleFunc("GET /v1/pending/{id}", s.handleGetPendingPosition)
	mux.HandleFunc("DELETE /v1/pending/{id}", s.handleCancelPending)
	mux.HandleFunc("POST /v1/pending/{id}/confirm", s.handleConfirmPendingExecution)
	mux.HandleFunc("POST /v1/positions/{id}/swap", s.handleChargeSwap)
	mux.HandleFunc("POST /v1/positions/{id}/topup", s.handleTopUp)
	mux.HandleFunc("POST /v1/positions/{id}/sltp", s.handleUpdateSLTP)
	mux.HandleFunc("POST /v1/positions/{id}/topping-up-settings", s.handleUpdateToppingUpSettings)
	mux.HandleFunc("GET /v1/accounts/{trader}/{account}/positions", s.handleAccountActivePositions)
	mux.HandleFunc("GET /v1/accounts/{trader}/{account}/pending", s.handleAccountPendingPositions)
	mux.HandleFunc("GET /ping", s.handlePing)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the hub and the HTTP server; it blocks until the server
// stops.
func (s *Server) Start() error {
	go s.hub.Run()

	s.logger.Info("rpc server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("rpc server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down within a bounded timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var req OpenPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dto, err := s.svc.OpenPosition(req)
	s.respond(w, dto, err)
}

func (s *Server) handleGetActivePosition(w http.ResponseWriter, r *http.Request) {
	dto, err := s.svc.GetActivePosition(r.PathValue("id"))
	s.respond(w, dto, err)
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	dto, err := s.svc.ClosePosition(r.PathValue("id"), types.ClosedManually)
	s.respond(w, dto, err)
}

func (s *Server) handleOpenPending(w http.ResponseWriter, r *http.Request) {
	var req OpenPendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dto, err := s.svc.OpenPending(req)
	s.respond(w, dto, err)
}

func (s *Server) handleGetPendingPosition(w http.ResponseWriter, r *http.Request) {
	dto, err := s.svc.GetPendingPosition(r.PathValue("id"))
	s.respond(w, dto, err)
}

func (s *Server) handleCancelPending(w http.ResponseWriter, r *http.Request) {
	dto, err := s.svc.CancelPending(r.PathValue("id"))
	s.respond(w, dto, err)
}

func (s *Server) handleConfirmPendingExecution(w http.ResponseWriter, r *http.Request) {
	dto, err := s.svc.ConfirmPendingExecution(r.PathValue("id"))
	s.respond(w, dto, err)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleChargeSwap(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dto, err := s.svc.ChargeSwap(r.PathValue("id"), req.Amount)
	s.respond(w, dto, err)
}

func (s *Server) handleTopUp(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dto, err := s.svc.TopUp(r.PathValue("id"), req.Amount)
	s.respond(w, dto, err)
}

type sltpRequest struct {
	StopLossPrice    decimal.Decimal `json:"stop_loss_price"`
	StopLossProfit   decimal.Decimal `json:"stop_loss_profit"`
	TakeProfitPrice  decimal.Decimal `json:"take_profit_price"`
	TakeProfitProfit decimal.Decimal `json:"take_profit_profit"`
}

func (s *Server) handleUpdateSLTP(w http.ResponseWriter, r *http.Request) {
	var req sltpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dto, err := s.svc.UpdateSLTP(r.PathValue("id"), req.StopLossPrice, req.StopLossProfit, req.TakeProfitPrice, req.TakeProfitProfit)
	s.respond(w, dto, err)
}

type toppingUpSettingsRequest struct {
	IsToppingUp      bool            `json:"is_topping_up"`
	ToppingUpPercent decimal.Decimal `json:"topping_up_percent"`
}

func (s *Server) handleUpdateToppingUpSettings(w http.ResponseWriter, r *http.Request) {
	var req toppingUpSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dto, err := s.svc.UpdateToppingUpSettings(r.PathValue("id"), req.IsToppingUp, req.ToppingUpPercent)
	s.respond(w, dto, err)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAccountActivePositions(w http.ResponseWriter, r *http.Request) {
	dtos := s.svc.GetAccountActivePositions(r.PathValue("trader"), r.PathValue("account"))
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) handleAccountPendingPositions(w http.ResponseWriter, r *http.Request) {
	dtos := s.svc.GetAccountPendingPositions(r.PathValue("trader"), r.PathValue("account"))
	writeJSON(w, http.StatusOK, dtos)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	NewClient(s.hub, conn)
}

func (s *Server) respond(w http.ResponseWriter, dto any, err error) {
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrNoLiquidity):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrInvalidCommand):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
