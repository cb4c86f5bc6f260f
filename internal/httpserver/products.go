package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	productsvc "storefront-api/internal/service/product"
)

func (h *handlers) createProduct(c *gin.Context) {
	var in productsvc.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.products.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *handlers) listProducts(c *gin.Context) {
	skip, limit, ok := page(c)
	if !ok {
		return
	}
	list, err := h.products.List(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.products.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in productsvc.ProductInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.products.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) createVariant(c *gin.Context) {
	var in productsvc.VariantInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.products.CreateVariant(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

func (h *handlers) listVariants(c *gin.Context) {
	skip, limit, ok := page(c)
	if !ok {
		return
	}
	list, err := h.products.ListVariants(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *handlers) getVariant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	v, err := h.products.GetVariant(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) updateVariant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in productsvc.VariantInput
	if !bindJSON(c, &in) {
		return
	}
	v, err := h.products.UpdateVariant(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) deleteVariant(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.products.DeleteVariant(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
