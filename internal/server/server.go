package server

import (
	"shop/internal/config"
	"shop/internal/handler"
	"shop/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// ルート登録に必要なhandler一式。
type Handlers struct {
	Product      *handler.ProductHandler
	Category     *handler.CategoryHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Review       *handler.ReviewHandler
	Auth         *handler.AuthHandler
	AdminProduct *handler.AdminProductHandler
	AdminOrder   *handler.AdminOrderHandler
	AdminUser    *handler.AdminUserHandler
}

// echoを組み立てて返す。起動はmain側。
func New(cfg config.Config, userRepo repository.UserRepository, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	registerRoutes(e, cfg, userRepo, h)

	return e
}

// Startはblockする。
func Start(e *echo.Echo, port string) error {
	return e.Start(":" + port)
}
