package server

import (
	"shop/internal/config"
	"shop/internal/repository"

	"github.com/labstack/echo/v4"
)

func registerRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers) {
	//公開
	h.Product.RegisterRoutes(e)
	h.Category.RegisterRoutes(e)

	//認証必須
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.Review.RegisterRoutes(e, cfg, userRepo)
	h.Auth.RegisterRoutes(e, cfg, userRepo)

	//管理者
	h.AdminProduct.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)
	h.AdminUser.RegisterRoutes(e)
}
