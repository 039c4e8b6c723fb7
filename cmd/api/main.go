package main

import (
	"log"

	"shop/internal/config"
	"shop/internal/domain/model"
	"shop/internal/handler"
	"shop/internal/infra/db"
	infraRepo "shop/internal/infra/repository"
	"shop/internal/mail"
	"shop/internal/server"
	"shop/internal/usecase"
	"shop/internal/validator"

	"github.com/joho/godotenv"
)

func main() {
	//.envはローカル開発用。無ければ環境変数だけで動く。
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Category{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Review{},
		&model.InventoryAdjustment{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	//Repository（GORM実装）
	userRepo := infraRepo.NewUserRepository(gormDB)
	rtRepo := infraRepo.NewRefreshTokenRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	_ = infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	reviewRepo := infraRepo.NewReviewGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//Usecase
	authValidator := validator.NewAuthValidator(userRepo)
	mailer := mail.NewLogMailer()

	authUC := usecase.NewAuthUsecase(cfg, userRepo, rtRepo, authValidator, mailer)
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, inventoryRepo, auditRepo)
	categoryUC := usecase.NewCategoryUsecase(categoryRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	checkoutUC := usecase.NewCheckoutUsecase(txManager)
	orderUC := usecase.NewOrderUsecase(txManager)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, auditRepo)
	reviewUC := usecase.NewReviewUsecase(reviewRepo, orderItemRepo, productRepo)

	//Handler
	handlers := server.Handlers{
		Product:      handler.NewProductHandler(productUC),
		Category:     handler.NewCategoryHandler(categoryUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC, checkoutUC),
		Review:       handler.NewReviewHandler(reviewUC),
		Auth:         handler.NewAuthHandler(authUC, cfg),
		AdminProduct: handler.NewAdminProductHandler(productUC, categoryUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:    handler.NewAdminUserHandler(cfg, userRepo, auditRepo, authUC),
	}

	e := server.New(cfg, userRepo, handlers)

	if err := server.Start(e, cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}
