package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
	"storefront/internal/payment"
	orderrepo "storefront/internal/repository/order"
	checkoutsvc "storefront/internal/service/checkout"
	couponsvc "storefront/internal/service/coupon"
	ordersvc "storefront/internal/service/order"
)

type CartService interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Add(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error)
	Remove(ctx context.Context, userID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) (*domain.Cart, error)
}

type CouponService interface {
	Validate(ctx context.Context, code string, orderCents int64, cartCategories []string) (*couponsvc.ValidationResult, error)
	Apply(ctx context.Context, code string) error
	Get(ctx context.Context, id string) (*domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
	Update(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
	Delete(ctx context.Context, id string) error
}

type CheckoutService interface {
	CreateIntent(ctx context.Context, userID string, in checkoutsvc.CreateIntentInput) (*checkoutsvc.IntentResult, error)
	ConfirmClient(ctx context.Context, userID, intentID string) (*domain.Order, error)
	HandleEvent(ctx context.Context, ev *payment.Event) error
}

type OrderService interface {
	ListMine(ctx context.Context, userID string, f orderrepo.ListFilter) (*ordersvc.Page, error)
	AdminList(ctx context.Context, f orderrepo.ListFilter) (*ordersvc.Page, error)
	Get(ctx context.Context, userID string, admin bool, orderID string) (*domain.Order, error)
	Cancel(ctx context.Context, userID string, admin bool, orderID string) (*domain.Order, error)
	AdminUpdateStatus(ctx context.Context, orderID string, in ordersvc.StatusUpdateInput) (*domain.Order, error)
}

type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

// Deps carries the services the router depends on.
type Deps struct {
	ProductSvc    ProductService
	CartSvc       CartService
	CouponSvc     CouponService
	CheckoutSvc   CheckoutService
	OrderSvc      OrderService
	WebhookSecret string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-User-Role"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")

	// Public surface: catalog reads, coupon validation, gateway webhook.
	api.GET("/products", listProductsHandler(deps.ProductSvc))
	api.GET("/products/:id", getProductHandler(deps.ProductSvc))
	api.POST("/coupons/validate", validateCouponHandler(deps.CouponSvc))
	api.POST("/coupons/apply", applyCouponHandler(deps.CouponSvc))
	api.POST("/webhooks/payment", webhookHandler(logger, deps.CheckoutSvc, deps.WebhookSecret))

	authed := api.Group("")
	authed.Use(principalMiddleware())
	{
		authed.GET("/cart", getCartHandler(deps.CartSvc))
		authed.POST("/cart/items", addCartItemHandler(deps.CartSvc))
		authed.PUT("/cart/items/:productId", setCartItemHandler(deps.CartSvc))
		authed.DELETE("/cart/items/:productId", removeCartItemHandler(deps.CartSvc))
		authed.DELETE("/cart", clearCartHandler(deps.CartSvc))

		authed.POST("/checkout/intent", createIntentHandler(deps.CheckoutSvc))
		authed.POST("/checkout/confirm", confirmCheckoutHandler(deps.CheckoutSvc))

		authed.GET("/orders", listOrdersHandler(deps.OrderSvc))
		authed.GET("/orders/:id", getOrderHandler(deps.OrderSvc))
		authed.POST("/orders/:id/cancel", cancelOrderHandler(deps.OrderSvc))
	}

	admin := api.Group("/admin")
	admin.Use(principalMiddleware(), requireAdmin())
	{
		admin.GET("/orders", adminListOrdersHandler(deps.OrderSvc))
		admin.PUT("/orders/:id/status", adminUpdateOrderStatusHandler(deps.OrderSvc))

		admin.GET("/coupons", adminListCouponsHandler(deps.CouponSvc))
		admin.POST("/coupons", adminCreateCouponHandler(deps.CouponSvc))
		admin.GET("/coupons/:id", adminGetCouponHandler(deps.CouponSvc))
		admin.PUT("/coupons/:id", adminUpdateCouponHandler(deps.CouponSvc))
		admin.DELETE("/coupons/:id", adminDeleteCouponHandler(deps.CouponSvc))
	}

	return router, nil
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func readyHandler(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
