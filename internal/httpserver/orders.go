package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ordersvc "storefront-api/internal/service/order"
)

type placeOrderRequest struct {
	CustomerEmail string               `json:"customer_email"`
	CustomerName  string               `json:"customer_name"`
	CreateAccount *bool                `json:"create_account"`
	Currency      string               `json:"currency"`
	OrderItems    []ordersvc.LineInput `json:"order_items" binding:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type quantityRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

func (h *handlers) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	createAccount := true
	if req.CreateAccount != nil {
		createAccount = *req.CreateAccount
	}
	ctx := c.Request.Context()
	order, err := h.orders.Place(ctx, customerFromContext(ctx), ordersvc.PlaceInput{
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		CreateAccount: createAccount,
		Currency:      req.Currency,
		Items:         req.OrderItems,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *handlers) listOrders(c *gin.Context) {
	skip, limit, ok := page(c)
	if !ok {
		return
	}
	list, err := h.orders.List(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) getOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	order, err := h.orders.Get(ctx, customerFromContext(ctx), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	order, err := h.orders.UpdateStatus(ctx, customerFromContext(ctx), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) deleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.orders.Delete(ctx, customerFromContext(ctx), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) myOrders(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.orders.ListByCustomer(ctx, customerFromContext(ctx).ID, "")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) addOrderItem(c *gin.Context) {
	var in ordersvc.AddItemInput
	if !bindJSON(c, &in) {
		return
	}
	ctx := c.Request.Context()
	item, err := h.orders.AddItem(ctx, customerFromContext(ctx), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *handlers) getOrderItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, err := h.orders.GetItem(ctx, customerFromContext(ctx), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handlers) updateOrderItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req quantityRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	item, err := h.orders.UpdateItem(ctx, customerFromContext(ctx), id, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *handlers) deleteOrderItem(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := h.orders.DeleteItem(ctx, customerFromContext(ctx), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
