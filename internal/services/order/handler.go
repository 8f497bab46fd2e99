package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/models"
)

const requestTimeout = 30 * time.Second

// Promotions is the promotion application surface the handler exposes
type Promotions interface {
	Apply(ctx context.Context, orderID, promotionID int64) (models.Order, error)
	Remove(ctx context.Context, orderID, promotionID int64) (models.Order, error)
	RemoveAll(ctx context.Context, orderID int64) (models.Order, error)
	IsApplied(ctx context.Context, orderID, promotionID int64) (bool, error)
	Applied(ctx context.Context, orderID int64) ([]models.Promotion, error)
}

// Payments is the payment surface the handler exposes
type Payments interface {
	Pay(ctx context.Context, orderID int64, req models.PaymentRequest) (models.Payment, error)
	DeletePayment(ctx context.Context, paymentID int64) (models.Order, error)
	IsPaid(ctx context.Context, orderID int64) (bool, error)
	Find(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, error)
}

// Stock is the ledger surface the handler exposes
type Stock interface {
	AddQuantity(ctx context.Context, ingredientID int64, amount decimal.Decimal, reason string) (models.Ingredient, error)
	WithdrawQuantity(ctx context.Context, ingredientID int64, amount decimal.Decimal, reason string) (models.Ingredient, error)
	Ingredients(ctx context.Context) ([]models.Ingredient, error)
	Movements(ctx context.Context, filter models.MovementFilter) ([]models.StockMovement, error)
}

// Pinger reports backing store health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for the order service
type Handler struct {
	orders     *Manager
	promotions Promotions
	payments   Payments
	stock      Stock
	health     Pinger
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewHandler(orders *Manager, promotions Promotions, payments Payments, stock Stock, health Pinger, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		orders:     orders,
		promotions: promotions,
		payments:   payments,
		stock:      stock,
		health:     health,
		logger:     log,
		metrics:    m,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	routes := map[string]http.HandlerFunc{
		"POST /orders":                                 h.CreateOrder,
		"GET /orders":                                  h.ListOrders,
		"GET /orders/{id}":                             h.GetOrder,
		"DELETE /orders/{id}":                          h.DeleteOrder,
		"GET /orders/{id}/history":                     h.OrderHistory,
		"PATCH /orders/{id}/status":                    h.UpdateStatus,
		"POST /orders/{id}/lines":                      h.AddLine,
		"DELETE /orders/{id}/lines":                    h.RemoveAllLines,
		"PATCH /lines/{id}":                            h.UpdateLine,
		"DELETE /lines/{id}":                           h.RemoveLine,
		"POST /orders/{id}/promotions/{promotionId}":   h.ApplyPromotion,
		"DELETE /orders/{id}/promotions/{promotionId}": h.RemovePromotion,
		"GET /orders/{id}/promotions/{promotionId}":    h.PromotionApplied,
		"DELETE /orders/{id}/promotions":               h.RemoveAllPromotions,
		"GET /orders/{id}/promotions":                  h.ListAppliedPromotions,
		"POST /orders/{id}/payment":                    h.Pay,
		"GET /orders/{id}/payment/status":              h.PaymentStatus,
		"GET /payments":                                h.ListPayments,
		"DELETE /payments/{id}":                        h.DeletePayment,
		"GET /ingredients":                             h.ListIngredients,
		"POST /ingredients/{id}/add":                   h.AddStock,
		"POST /ingredients/{id}/withdraw":              h.WithdrawStock,
		"GET /stock/movements":                         h.ListMovements,
		"GET /health":                                  h.HealthCheck,
	}
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, h.withLogging(pattern, handler))
	}
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}
	return mux
}

// CreateOrder handles POST /orders requests
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := h.orders.CreateOrder(ctx, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, order)
}

// ListOrders handles GET /orders?status=&table_id=&server_id=&from=&to=
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter models.OrderFilter
		err    error
	)
	if s := q.Get("status"); s != "" {
		status, perr := models.ParseOrderStatus(s)
		if perr != nil {
			h.writeError(w, r, perr)
			return
		}
		filter.Status = &status
	}
	if filter.TableID, err = queryID(q.Get("table_id"), "table_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.ServerID, err = queryID(q.Get("server_id"), "server_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.From, filter.To, err = queryRange(q.Get("from"), q.Get("to")); err != nil {
		h.writeError(w, r, err)
		return
	}

	orders, err := h.orders.Find(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, orders)
}

// GetOrder handles GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// DeleteOrder handles DELETE /orders/{id}
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OrderHistory handles GET /orders/{id}/history
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	history, err := h.orders.History(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, history)
}

type statusRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by,omitempty"`
}

// UpdateStatus handles PATCH /orders/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	changedBy := req.ChangedBy
	if changedBy == "" {
		changedBy = "api"
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, status, changedBy)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// AddLine handles POST /orders/{id}/lines
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.AddLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.orders.AddLine(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, order)
}

// RemoveAllLines handles DELETE /orders/{id}/lines
func (h *Handler) RemoveAllLines(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.RemoveAllLines(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateLine handles PATCH /lines/{id}
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.orders.UpdateLineQuantity(r.Context(), id, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// RemoveLine handles DELETE /lines/{id}
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orders.RemoveLine(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// ApplyPromotion handles POST /orders/{id}/promotions/{promotionId}
func (h *Handler) ApplyPromotion(w http.ResponseWriter, r *http.Request) {
	orderID, promotionID, ok := h.promotionIDs(w, r)
	if !ok {
		return
	}
	order, err := h.promotions.Apply(r.Context(), orderID, promotionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// RemovePromotion handles DELETE /orders/{id}/promotions/{promotionId}
func (h *Handler) RemovePromotion(w http.ResponseWriter, r *http.Request) {
	orderID, promotionID, ok := h.promotionIDs(w, r)
	if !ok {
		return
	}
	order, err := h.promotions.Remove(r.Context(), orderID, promotionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// PromotionApplied handles GET /orders/{id}/promotions/{promotionId}
func (h *Handler) PromotionApplied(w http.ResponseWriter, r *http.Request) {
	orderID, promotionID, ok := h.promotionIDs(w, r)
	if !ok {
		return
	}
	applied, err := h.promotions.IsApplied(r.Context(), orderID, promotionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"order_id":     orderID,
		"promotion_id": promotionID,
		"applied":      applied,
	})
}

// ListAppliedPromotions handles GET /orders/{id}/promotions
func (h *Handler) ListAppliedPromotions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	promotions, err := h.promotions.Applied(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, promotions)
}

// RemoveAllPromotions handles DELETE /orders/{id}/promotions
func (h *Handler) RemoveAllPromotions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.promotions.RemoveAll(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// Pay handles POST /orders/{id}/payment
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	payment, err := h.payments.Pay(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, payment)
}

// PaymentStatus handles GET /orders/{id}/payment/status
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	paid, err := h.payments.IsPaid(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"order_id": id,
		"paid":     paid,
	})
}

// ListPayments handles GET /payments?order_id=&reference=&from=&to=
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.PaymentFilter{Reference: q.Get("reference")}
	var err error
	if filter.OrderID, err = queryID(q.Get("order_id"), "order_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if filter.From, filter.To, err = queryRange(q.Get("from"), q.Get("to")); err != nil {
		h.writeError(w, r, err)
		return
	}

	payments, err := h.payments.Find(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, payments)
}

// DeletePayment handles DELETE /payments/{id}
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	order, err := h.payments.DeletePayment(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// ListIngredients handles GET /ingredients
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	ingredients, err := h.stock.Ingredients(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ingredients)
}

// AddStock handles POST /ingredients/{id}/add
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	h.moveStock(w, r, h.stock.AddQuantity)
}

// WithdrawStock handles POST /ingredients/{id}/withdraw
func (h *Handler) WithdrawStock(w http.ResponseWriter, r *http.Request) {
	h.moveStock(w, r, h.stock.WithdrawQuantity)
}

func (h *Handler) moveStock(w http.ResponseWriter, r *http.Request, move func(context.Context, int64, decimal.Decimal, string) (models.Ingredient, error)) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.StockRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}
	ingredient, err := move(r.Context(), id, req.Amount, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, ingredient)
}

// ListMovements handles GET /stock/movements?ingredient_id=&kind=&from=&to=
func (h *Handler) ListMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		filter models.MovementFilter
		err    error
	)
	if filter.IngredientID, err = queryID(q.Get("ingredient_id"), "ingredient_id"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if s := q.Get("kind"); s != "" {
		kind, perr := models.ParseMovementKind(s)
		if perr != nil {
			h.writeError(w, r, perr)
			return
		}
		filter.Kind = &kind
	}
	if filter.From, filter.To, err = queryRange(q.Get("from"), q.Get("to")); err != nil {
		h.writeError(w, r, err)
		return
	}

	movements, err := h.stock.Movements(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if movements == nil {
		movements = []models.StockMovement{}
	}
	h.writeJSON(w, r, http.StatusOK, movements)
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "order-service",
	}

	status := http.StatusOK
	if err := h.health.Ping(ctx); err != nil {
		h.logger.Error("health_check_failed", "Store ping failed", logger.RequestID(r.Context()), err, nil)
		response["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, r, status, response)
}

// decode parses a JSON body, rejecting other content types and unknown fields
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		h.writeError(w, r, apperr.Validationf("Content-Type must be application/json"))
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		h.logger.Debug("validation_failed", "Failed to parse request body", logger.RequestID(r.Context()), map[string]interface{}{
			"error": err.Error(),
		})
		h.writeError(w, r, apperr.Validationf("invalid JSON format: %v", err))
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, r, apperr.Validationf("%s must be a positive integer", name))
		return 0, false
	}
	return id, true
}

func (h *Handler) promotionIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	orderID, ok := h.pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	promotionID, ok := h.pathID(w, r, "promotionId")
	return orderID, promotionID, ok
}

func queryID(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, apperr.Validationf("%s must be a positive integer", name)
	}
	return &id, nil
}

// queryRange accepts RFC 3339 timestamps or plain dates. A plain "to" date
// covers the whole day.
func queryRange(from, to string) (*time.Time, *time.Time, error) {
	start, err := queryTime(from, "from", false)
	if err != nil {
		return nil, nil, err
	}
	end, err := queryTime(to, "to", true)
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, apperr.Validationf("to must not be before from")
	}
	return start, end, nil
}

func queryTime(raw, name string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, apperr.Validationf("%s must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", logger.RequestID(r.Context()), err, nil)
	}
}

// writeError writes an error response in JSON format. Internal errors are
// logged and answered with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := logger.RequestID(r.Context())
	kind := apperr.KindOf(err)

	message := err.Error()
	if kind == apperr.Internal {
		h.logger.Error("request_failed", "Internal error while handling request", requestID, err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
		message = "Internal server error"
	}

	h.writeJSON(w, r, kind.HTTPStatus(), map[string]interface{}{
		"error":      message,
		"kind":       kind.String(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

// withLogging adds request logging, request ids and request metrics
func (h *Handler) withLogging(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))
		w.Header().Set("X-Request-ID", requestID)

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		h.metrics.ObserveRequest(route, rw.statusCode, duration)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
