package handlers

import (
	"net/http"

	"github.com/diewo77/go-factures/httpx"
	"github.com/diewo77/go-factures/internal/services"
)

type OrderHandler struct {
	orders   *services.OrderService
	invoices *services.InvoiceService
}

func NewOrderHandler(orders *services.OrderService, invoices *services.InvoiceService) *OrderHandler {
	return &OrderHandler{orders: orders, invoices: invoices}
}

type quantityBody struct {
	Quantity int `json:"quantity"`
}

// Mine lists the caller's orders.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	orders, err := h.orders.ListClientOrders(r.Context(), uid)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

// Create opens an order for the caller, empty or with {"items": [...]}.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, err := callerID(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var in struct {
		Items []services.OrderItem `json:"items"`
	}
	if err := decodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.CreateOrderWithProducts(r.Context(), uid, in.Items)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

// Lines lists the lines of the order in the {id} (client) or {orderId}
// (admin) path parameter.
func (h *OrderHandler) Lines(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, param)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		lines, err := h.orders.OrderLines(r.Context(), id)
		if err != nil {
			httpx.Error(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, lines)
	}
}

// orderProduct reads the {id} and {productId} path parameters.
func orderProduct(r *http.Request) (orderID, productID uint, err error) {
	if orderID, err = idParam(r, "id"); err != nil {
		return 0, 0, err
	}
	if productID, err = idParam(r, "productId"); err != nil {
		return 0, 0, err
	}
	return orderID, productID, nil
}

func (h *OrderHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	orderID, productID, err := orderProduct(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	body := quantityBody{Quantity: 1}
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.AddProduct(r.Context(), orderID, productID, body.Quantity)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ChangeQuantity(w http.ResponseWriter, r *http.Request) {
	orderID, productID, err := orderProduct(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var body quantityBody
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.ChangeQuantity(r.Context(), orderID, productID, body.Quantity)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	orderID, productID, err := orderProduct(r)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.RemoveProduct(r.Context(), orderID, productID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.CancelOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.ChangeStatus(r.Context(), id, body.Status)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ChangePaymentMode(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var body struct {
		PaymentMode string `json:"payment_mode"`
	}
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.ChangePaymentMode(r.Context(), id, body.PaymentMode)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// GenerateInvoice issues the order's invoice explicitly.
func (h *OrderHandler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	inv, err := h.invoices.GenerateForOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Order line administration.

func (h *OrderHandler) AllLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.orders.ListLines(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lines)
}

func (h *OrderHandler) GetLine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	line, err := h.orders.GetLine(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *OrderHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	var body quantityBody
	if err := decodeJSON(r, &body); err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.UpdateLine(r.Context(), id, body.Quantity)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *OrderHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	o, err := h.orders.DeleteLine(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}
