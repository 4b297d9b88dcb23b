package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	orderrepo "storefront/internal/repository/order"
	ordersvc "storefront/internal/service/order"
)

func listOrdersHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := orderrepo.ListFilter{
			Status:   c.Query("status"),
			Page:     parsePositiveInt(c.Query("page"), 1),
			PageSize: parsePositiveInt(c.Query("pageSize"), 20),
		}
		page, err := svc.ListMine(c.Request.Context(), currentPrincipal(c).UserID, f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func getOrderHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := currentPrincipal(c)
		order, err := svc.Get(c.Request.Context(), p.UserID, p.Admin(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func cancelOrderHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := currentPrincipal(c)
		order, err := svc.Cancel(c.Request.Context(), p.UserID, p.Admin(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func adminListOrdersHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := orderrepo.ListFilter{
			Status:        c.Query("status"),
			PaymentStatus: c.Query("paymentStatus"),
			UserID:        c.Query("userId"),
			Search:        c.Query("search"),
			Page:          parsePositiveInt(c.Query("page"), 1),
			PageSize:      parsePositiveInt(c.Query("pageSize"), 20),
		}
		page, err := svc.AdminList(c.Request.Context(), f)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

func adminUpdateOrderStatusHandler(svc OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ordersvc.StatusUpdateInput
		if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
			respondBadRequest(c, "status is required")
			return
		}
		order, err := svc.AdminUpdateStatus(c.Request.Context(), c.Param("id"), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
