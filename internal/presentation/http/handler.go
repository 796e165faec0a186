package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	appcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/minishop-fulfillment/internal/application/order"
	domcatalog "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/catalog"
	domorder "github.com/Zhima-Mochi/minishop-fulfillment/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability"
	"github.com/Zhima-Mochi/minishop-fulfillment/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	maxBodyBytes         = 1 << 20
)

// OrderPlacer runs the order pipeline.
type OrderPlacer interface {
	Execute(ctx context.Context, cmd apporder.PlaceOrderInput) (*domorder.Result, error)
}

// OrderReader looks up recorded orders.
type OrderReader interface {
	Get(ctx context.Context, id string) (*domorder.Order, error)
}

type Handler struct {
	orders  OrderPlacer
	records OrderReader
	catalog *appcatalog.Service
	log     observability.Logger
	tel     observability.Observability
}

func NewHandler(orders OrderPlacer, records OrderReader, catalog *appcatalog.Service, logger observability.Logger, tel observability.Observability) *Handler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Handler{
		orders:  orders,
		records: records,
		catalog: catalog,
		log:     logger.With(observability.F("component", componentHTTPHandler)),
		tel:     tel,
	}
}

// Router wires every route behind ObservabilityMiddleware. Callers may mount
// more routes (e.g. /metrics) on the returned router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log, h.tel))

	r.Get("/health", h.handleHealth)
	r.Post("/orders", h.handlePlaceOrder)
	r.Get("/orders/{id}", h.handleGetOrder)
	r.Get("/products", h.handleListProducts)
	r.Get("/products/{sku}", h.handleGetProduct)
	r.Put("/products/{sku}", h.handlePutProduct)
	return r
}

type orderItem struct {
	SKU      string          `json:"sku"`
	Quantity json.RawMessage `json:"qty"`
}

type placeOrderRequest struct {
	CustomerEmail string      `json:"customer_email"`
	Items         []orderItem `json:"items"`
	PaymentToken  string      `json:"payment_token"`
}

type placeOrderResponse struct {
	OrderID    string          `json:"order_id"`
	Status     domorder.Status `json:"status"`
	Total      string          `json:"total"`
	ChargeID   string          `json:"charge_id"`
	InvoiceID  string          `json:"invoice_id"`
	ShipmentID string          `json:"shipment_id"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	items := make([]domorder.RawLine, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domorder.RawLine{SKU: it.SKU, Quantity: domorder.QuantityFromJSON(it.Quantity)})
	}

	res, err := h.orders.Execute(r.Context(), apporder.PlaceOrderInput{
		CustomerAddress:   req.CustomerEmail,
		Items:             items,
		PaymentCredential: req.PaymentToken,
	})
	if err != nil {
		h.writeOrderError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeOrderResponse{
		OrderID:    res.OrderID,
		Status:     res.Status,
		Total:      res.TotalAmount.StringFixed(2),
		ChargeID:   res.ChargeID,
		InvoiceID:  res.InvoiceID,
		ShipmentID: res.ShipmentID,
	})
}

type orderView struct {
	OrderID       string          `json:"order_id"`
	Status        domorder.Status `json:"status"`
	CustomerEmail string          `json:"customer_email"`
	Items         []domorder.Line `json:"items"`
	Total         string          `json:"total"`
	ChargeID      string          `json:"charge_id,omitempty"`
	InvoiceID     string          `json:"invoice_id,omitempty"`
	ShipmentID    string          `json:"shipment_id,omitempty"`
	FailedStage   domorder.Stage  `json:"failed_stage,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.records.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domorder.ErrNotFound) {
			writeError(w, http.StatusNotFound, errorBody{Error: err.Error()})
			return
		}
		h.writeInternal(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{
		OrderID:       o.ID,
		Status:        o.Status,
		CustomerEmail: o.CustomerAddress,
		Items:         o.Lines,
		Total:         o.Total.StringFixed(2),
		ChargeID:      o.ChargeID,
		InvoiceID:     o.InvoiceID,
		ShipmentID:    o.ShipmentID,
		FailedStage:   o.FailedStage,
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	})
}

type productView struct {
	SKU       string    `json:"sku"`
	Title     string    `json:"title"`
	Price     string    `json:"price"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProductView(p domcatalog.Product) productView {
	return productView{
		SKU:       p.SKU,
		Title:     p.Title,
		Price:     p.UnitPrice.StringFixed(2),
		Stock:     p.Stock,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.writeInternal(r.Context(), w, err)
		return
	}
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, toProductView(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		if errors.Is(err, domcatalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, errorBody{Error: err.Error()})
			return
		}
		h.writeInternal(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(p))
}

type putProductRequest struct {
	Title string      `json:"title"`
	Price json.Number `json:"price"`
	Stock int         `json:"stock"`
}

func (h *Handler) handlePutProduct(w http.ResponseWriter, r *http.Request) {
	var req putProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	loaded, err := h.catalog.Load(r.Context(), appcatalog.ProductInput{
		SKU:   chi.URLParam(r, "sku"),
		Title: req.Title,
		Price: req.Price.String(),
		Stock: req.Stock,
	})
	if err != nil {
		if errors.Is(err, domcatalog.ErrInvalidProduct) {
			writeError(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
			return
		}
		h.writeInternal(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductView(loaded[0]))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type errorBody struct {
	Error   string `json:"error"`
	OrderID string `json:"order_id,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Rule    string `json:"rule,omitempty"`
	Line    *int   `json:"line,omitempty"`
}

// writeOrderError maps pipeline failures onto status codes.
func (h *Handler) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error()}
	var serr *domorder.StageError
	if errors.As(err, &serr) {
		body.OrderID = serr.OrderID
		body.Stage = string(serr.Stage)
	}

	var (
		malformed  *domorder.MalformedLineError
		validation *domorder.ValidationError
		payment    *domorder.PaymentError
	)
	switch {
	case errors.As(err, &malformed):
		body.Line = &malformed.Line
		writeError(w, http.StatusUnprocessableEntity, body)
	case errors.As(err, &validation):
		body.Rule = string(validation.Rule)
		if validation.Line >= 0 {
			body.Line = &validation.Line
		}
		writeError(w, http.StatusUnprocessableEntity, body)
	case errors.Is(err, domcatalog.ErrNotFound):
		writeError(w, http.StatusNotFound, body)
	case errors.Is(err, domcatalog.ErrInsufficientStock):
		writeError(w, http.StatusConflict, body)
	case errors.As(err, &payment):
		writeError(w, http.StatusPaymentRequired, body)
	default:
		h.writeInternal(ctx, w, err)
	}
}

func (h *Handler) writeInternal(ctx context.Context, w http.ResponseWriter, err error) {
	logctx.FromOr(ctx, h.log).Error("http_internal_error", observability.F("error", err.Error()))
	writeError(w, http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}
