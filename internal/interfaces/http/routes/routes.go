// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/marketplace-backend/internal/config"
	"github.com/your-org/marketplace-backend/internal/domain/cart"
	"github.com/your-org/marketplace-backend/internal/domain/checkout"
	"github.com/your-org/marketplace-backend/internal/domain/coupon"
	"github.com/your-org/marketplace-backend/internal/domain/order"
	"github.com/your-org/marketplace-backend/internal/domain/product"
	"github.com/your-org/marketplace-backend/internal/domain/shipping"
	"github.com/your-org/marketplace-backend/internal/domain/user"
	redisdb "github.com/your-org/marketplace-backend/internal/infrastructure/database/redis"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/handlers"
	"github.com/your-org/marketplace-backend/internal/interfaces/http/middleware"
	"github.com/your-org/marketplace-backend/internal/pkg/email"
	"gorm.io/gorm"
)

// SetupRoutes wires every API route group. Services are constructed once
// here and shared between handlers.
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redisdb.Client, cfg *config.Config) {
	// Services
	userService := user.NewService(db, cfg)
	addressService := user.NewAddressService(db, cfg)
	productService := product.NewService(db, cfg)
	cartService := cart.NewService(db, cart.NewGormBackend(db), cart.NewRedisBackend(redisClient))
	couponService := coupon.NewService(db)
	orderService := order.NewService(db)
	shippingClient := shipping.NewClient(cfg)
	emailService := email.NewService(cfg)
	checkoutService := checkout.NewService(
		db,
		cartService,
		couponService,
		shippingClient,
		checkout.NewRedisLocker(redisClient),
		emailService,
		nil,
	)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	profileHandler := handlers.NewUserProfileHandler(userService, db)
	addressHandler := handlers.NewUserAddressHandler(addressService)
	productHandler := handlers.NewProductHandler(productService)
	cartHandler := handlers.NewCartHandler(cartService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	couponHandler := handlers.NewCouponHandler(couponService, cartService)
	orderHandler := handlers.NewOrderHandler(orderService)

	setupAuthRoutes(rg, authHandler, cfg)
	setupUserRoutes(rg, profileHandler, addressHandler, cfg)
	setupProductRoutes(rg, productHandler)
	setupCartRoutes(rg, cartHandler, cfg)
	setupCheckoutRoutes(rg, checkoutHandler, orderHandler, couponHandler, cfg)
	setupOrderRoutes(rg, orderHandler, cfg)
	setupSupplierRoutes(rg, orderHandler, couponHandler, cfg)
	setupAdminRoutes(rg, authHandler, couponHandler, cfg)
}

// setupAuthRoutes sets up authentication related routes
func setupAuthRoutes(rg *gin.RouterGroup, authHandler *handlers.AuthHandler, cfg *config.Config) {
	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.POST("/logout", authHandler.Logout)
			protected.PUT("/change-password", authHandler.ChangePassword)
			protected.GET("/validate", authHandler.ValidateToken)
		}
	}
}

// setupUserRoutes sets up profile and address routes
func setupUserRoutes(rg *gin.RouterGroup, profileHandler *handlers.UserProfileHandler, addressHandler *handlers.UserAddressHandler, cfg *config.Config) {
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(cfg))
	{
		users.GET("/profile", profileHandler.GetProfile)
		users.PUT("/profile", profileHandler.UpdateProfile)
		users.GET("/dashboard", profileHandler.GetDashboard)
		users.GET("/account", profileHandler.GetAccount)

		users.GET("/addresses", addressHandler.GetAddresses)
		users.POST("/addresses", addressHandler.CreateAddress)
		users.GET("/addresses/:id", addressHandler.GetAddress)
		users.PUT("/addresses/:id", addressHandler.UpdateAddress)
		users.DELETE("/addresses/:id", addressHandler.DeleteAddress)
		users.PUT("/addresses/:id/default", addressHandler.SetDefaultAddress)
	}
}

// setupProductRoutes sets up the public catalog routes
func setupProductRoutes(rg *gin.RouterGroup, productHandler *handlers.ProductHandler) {
	products := rg.Group("/products")
	{
		products.GET("", productHandler.GetProducts)
		products.GET("/:id", productHandler.GetProduct)
	}
}

// setupCartRoutes sets up cart routes. All cart routes require an
// authenticated buyer since the cart is keyed by user ID.
func setupCartRoutes(rg *gin.RouterGroup, cartHandler *handlers.CartHandler, cfg *config.Config) {
	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.AuthMiddleware(cfg))
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.POST("/items", cartHandler.AddToCart)
		cartGroup.POST("/demo-items", cartHandler.AddDemoItem)
		cartGroup.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartGroup.DELETE("/items/:id", cartHandler.RemoveFromCart)
		cartGroup.DELETE("", cartHandler.ClearCart)
	}
}

// setupCheckoutRoutes sets up checkout and coupon validation routes
func setupCheckoutRoutes(rg *gin.RouterGroup, checkoutHandler *handlers.CheckoutHandler, orderHandler *handlers.OrderHandler, couponHandler *handlers.CouponHandler, cfg *config.Config) {
	checkoutGroup := rg.Group("/checkout")
	checkoutGroup.Use(middleware.AuthMiddleware(cfg))
	{
		checkoutGroup.GET("/shipping-quotes", checkoutHandler.GetShippingQuotes)
		checkoutGroup.POST("", checkoutHandler.Checkout)
		checkoutGroup.GET("/orders/:checkout_id", orderHandler.ListByCheckout)
	}

	coupons := rg.Group("/coupons")
	coupons.Use(middleware.AuthMiddleware(cfg))
	{
		coupons.POST("/validate", couponHandler.ValidateCoupon)
	}
}

// setupOrderRoutes sets up the buyer-facing order routes
func setupOrderRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, cfg *config.Config) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/:id/tracking", orderHandler.GetOrderTracking)
	}
}

// setupSupplierRoutes sets up the supplier back office routes
func setupSupplierRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, couponHandler *handlers.CouponHandler, cfg *config.Config) {
	supplier := rg.Group("/supplier")
	supplier.Use(middleware.AuthMiddleware(cfg))
	supplier.Use(middleware.SupplierMiddleware())
	{
		orders := supplier.Group("/orders")
		{
			orders.GET("", orderHandler.ListSupplierOrders)
			orders.GET("/:id", orderHandler.GetSupplierOrder)
			orders.PUT("/:id/status", orderHandler.UpdateOrderStatus)
			orders.POST("/:id/items/:item_id/tracking", orderHandler.AddTrackingEvent)
		}

		coupons := supplier.Group("/coupons")
		{
			coupons.GET("", couponHandler.ListCoupons)
			coupons.POST("", couponHandler.CreateCoupon)
			coupons.PUT("/:id", couponHandler.UpdateCoupon)
			coupons.DELETE("/:id", couponHandler.DeleteCoupon)
		}
	}
}

// setupAdminRoutes sets up admin related routes
func setupAdminRoutes(rg *gin.RouterGroup, authHandler *handlers.AuthHandler, couponHandler *handlers.CouponHandler, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg))
	admin.Use(middleware.AdminMiddleware())
	{
		admin.PUT("/users/:id/approve", authHandler.ApproveUser)

		// Admins manage coupons with no supplier scope
		coupons := admin.Group("/coupons")
		{
			coupons.GET("", couponHandler.ListCoupons)
			coupons.POST("", couponHandler.CreateCoupon)
			coupons.PUT("/:id", couponHandler.UpdateCoupon)
			coupons.DELETE("/:id", couponHandler.DeleteCoupon)
		}
	}
}
