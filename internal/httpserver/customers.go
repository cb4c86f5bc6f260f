package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/domain"
	customersvc "storefront-api/internal/service/customer"
)

type createAddressRequest struct {
	CustomerID int64 `json:"customer_id" binding:"required"`
	customersvc.AddressInput
}

func (h *handlers) createCustomer(c *gin.Context) {
	var in customersvc.CreateInput
	if !bindJSON(c, &in) {
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *handlers) listCustomers(c *gin.Context) {
	skip, limit, ok := page(c)
	if !ok {
		return
	}
	list, err := h.customers.List(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) getCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handlers) updateCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in customersvc.UpdateInput
	if !bindJSON(c, &in) {
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *handlers) deleteCustomer(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.customers.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createCustomerAddress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in customersvc.AddressInput
	if !bindJSON(c, &in) {
		return
	}
	addr, err := h.customers.AddAddress(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

func (h *handlers) listCustomerAddresses(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := h.customers.ListAddresses(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) listCustomerOrders(c *gin.Context) {
	h.customerOrders(c, "")
}

func (h *handlers) listCustomerAndGuestOrders(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		writeError(c, domain.InvalidRequest("email query parameter required"))
		return
	}
	h.customerOrders(c, email)
}

func (h *handlers) customerOrders(c *gin.Context, guestEmail string) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.customers.Get(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	list, err := h.orders.ListByCustomer(ctx, id, guestEmail)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) createAddress(c *gin.Context) {
	var req createAddressRequest
	if !bindJSON(c, &req) {
		return
	}
	addr, err := h.customers.AddAddress(c.Request.Context(), req.CustomerID, req.AddressInput)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addr)
}

func (h *handlers) getAddress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	addr, err := h.customers.GetAddress(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (h *handlers) updateAddress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in customersvc.AddressInput
	if !bindJSON(c, &in) {
		return
	}
	addr, err := h.customers.UpdateAddress(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, addr)
}

func (h *handlers) deleteAddress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.customers.DeleteAddress(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
