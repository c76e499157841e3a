package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/compustore/compustore/internal/core/domain"
	"github.com/compustore/compustore/internal/core/service"
	"github.com/compustore/compustore/internal/port"
)

// HTTPHandler exposes the purchase engine over HTTP for the store UI.
type HTTPHandler struct {
	purchases *service.PurchaseCoordinator
	combos    *service.ComboService
	ledger    *service.StockLedger
	invoices  port.InvoiceReader

	lowStockThreshold int
}

func NewHTTPHandler(
	purchases *service.PurchaseCoordinator,
	combos *service.ComboService,
	ledger *service.StockLedger,
	invoices port.InvoiceReader,
	lowStockThreshold int,
) *HTTPHandler {
	return &HTTPHandler{
		purchases:         purchases,
		combos:            combos,
		ledger:            ledger,
		invoices:          invoices,
		lowStockThreshold: lowStockThreshold,
	}
}

func (h *HTTPHandler) Register(r *gin.Engine) {
	r.GET("/health", h.health)

	api := r.Group("/api")
	api.POST("/purchases", h.purchase)
	api.POST("/combos/validate", h.validateCombo)
	api.POST("/combos", h.createCombo)
	api.PUT("/combos/:id", h.updateCombo)
	api.DELETE("/combos/:id", h.deleteCombo)
	api.GET("/combos", h.listCombos)
	api.GET("/parts/:id/stock", h.partStock)
	api.GET("/parts/:id/compatible/:kind", h.compatibleParts)
	api.GET("/stock", h.allStock)
	api.GET("/stock/low", h.lowStock)
	api.GET("/invoices", h.listInvoices)
}

type saleLineRequest struct {
	PartID   int64 `json:"part_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required"`
}

type purchaseRequest struct {
	CustomerID int64             `json:"customer_id" binding:"required"`
	ComboID    *int64            `json:"combo_id"`
	Lines      []saleLineRequest `json:"lines"`
}

type purchaseResponse struct {
	InvoiceID string `json:"invoice_id"`
}

func (h *HTTPHandler) purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lines := make([]domain.SaleLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.SaleLine{PartID: l.PartID, Quantity: l.Quantity})
	}

	invoiceID, err := h.purchases.ExecutePurchase(c.Request.Context(), service.PurchaseRequest{
		CustomerID: req.CustomerID,
		ComboID:    req.ComboID,
		Lines:      lines,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, purchaseResponse{InvoiceID: invoiceID})
}

type comboRequest struct {
	Name            string            `json:"name"`
	DiscountPercent string            `json:"discount_percent"`
	Lines           []saleLineRequest `json:"lines"`
}

func (r *comboRequest) toDomain() (*domain.Combo, error) {
	discount, err := decimal.NewFromString(r.DiscountPercent)
	if err != nil {
		return nil, err
	}
	combo := &domain.Combo{Name: r.Name, DiscountPercent: discount}
	for _, l := range r.Lines {
		combo.Lines = append(combo.Lines, domain.ComboLine{PartID: l.PartID, Quantity: l.Quantity})
	}
	return combo, nil
}

func (h *HTTPHandler) validateCombo(c *gin.Context) {
	var req comboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	lines := make([]domain.ComboLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.ComboLine{PartID: l.PartID, Quantity: l.Quantity})
	}

	if err := h.combos.Validate(c.Request.Context(), lines); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"compatible": true})
}

func (h *HTTPHandler) createCombo(c *gin.Context) {
	var req comboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	combo, err := req.toDomain()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount percent"})
		return
	}

	comboID, err := h.combos.Create(c.Request.Context(), combo)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"combo_id": comboID})
}

func (h *HTTPHandler) updateCombo(c *gin.Context) {
	comboID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid combo id"})
		return
	}
	var req comboRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	combo, err := req.toDomain()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discount percent"})
		return
	}
	combo.ID = comboID

	if err := h.combos.Update(c.Request.Context(), combo); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"combo_id": comboID})
}

func (h *HTTPHandler) deleteCombo(c *gin.Context) {
	comboID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid combo id"})
		return
	}
	if err := h.combos.Delete(c.Request.Context(), comboID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) listCombos(c *gin.Context) {
	combos, err := h.combos.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, combos)
}

func (h *HTTPHandler) partStock(c *gin.Context) {
	partID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid part id"})
		return
	}

	qty, err := h.ledger.GetQuantity(c.Request.Context(), partID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"part_id": partID, "quantity": qty})
}

func (h *HTTPHandler) compatibleParts(c *gin.Context) {
	partID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid part id"})
		return
	}
	kind := domain.Kind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown part kind"})
		return
	}

	parts, err := h.combos.CompatibleParts(c.Request.Context(), partID, kind)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, parts)
}

func (h *HTTPHandler) allStock(c *gin.Context) {
	levels, err := h.ledger.GetAllLevels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

func (h *HTTPHandler) lowStock(c *gin.Context) {
	threshold := h.lowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		threshold = parsed
	}

	levels, err := h.ledger.GetLowStock(c.Request.Context(), threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, levels)
}

type invoiceResponse struct {
	InvoiceID  string    `json:"invoice_id"`
	CustomerID int64     `json:"customer_id"`
	ComboID    *int64    `json:"combo_id,omitempty"`
	Total      string    `json:"total"`
	OrderDate  time.Time `json:"order_date"`
}

func (h *HTTPHandler) listInvoices(c *gin.Context) {
	invoices, err := h.invoices.GetAll(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, invoiceResponse{
			InvoiceID:  inv.ID,
			CustomerID: inv.CustomerID,
			ComboID:    inv.ComboID,
			Total:      inv.Total.StringFixed(2),
			OrderDate:  inv.OrderDate,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTPHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var insufficient *domain.InsufficientStockError
	var incompatible *domain.IncompatibleComponentsError

	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     insufficient.Error(),
			"part_id":   insufficient.PartID,
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
	case errors.As(err, &incompatible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": incompatible.Error()})
	case errors.Is(err, domain.ErrEmptySale),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, service.ErrDiscountOutOfRange),
		errors.Is(err, service.ErrComboEmpty):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPartNotFound),
		errors.Is(err, domain.ErrComboNotFound),
		errors.Is(err, domain.ErrCustomerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
