package handler

import (
	"net/http"
	"strconv"

	"shop/internal/config"
	"shop/internal/middleware"
	"shop/internal/repository"
	"shop/internal/usecase"

	"github.com/labstack/echo/v4"
)

// レビューAPIだけはエラーを{"detail": ...}で返す（フロント互換）。
type DetailErrorResponse struct {
	Detail string `json:"detail"`
}

func writeReviewError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, DetailErrorResponse{Detail: he.Message})
	}
	return c.JSON(http.StatusInternalServerError, DetailErrorResponse{Detail: "internal error"})
}

type ReviewHandler struct {
	uc *usecase.ReviewUsecase
}

func NewReviewHandler(uc *usecase.ReviewUsecase) *ReviewHandler {
	return &ReviewHandler{uc: uc}
}

type CreateReviewRequest struct {
	Product int64  `json:"product"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

type ReviewListResponse struct {
	Items []usecase.ReviewResponse `json:"items"`
	Total int64                    `json:"total"`
}

// 一覧は公開、書き込みは認証必須。
func (h *ReviewHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/reviews", h.list)

	g := e.Group("/reviews")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("", h.create)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *ReviewHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, DetailErrorResponse{Detail: "invalid page"})
		}
		page = p
	}

	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, DetailErrorResponse{Detail: "invalid limit"})
		}
		limit = l
	}

	var productID *int64
	if v := c.QueryParam("product_id"); v != "" {
		x, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, DetailErrorResponse{Detail: "invalid product_id"})
		}
		productID = &x
	}

	items, total, err := h.uc.List(c.Request().Context(), repository.ReviewListFilter{
		ProductID: productID,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return writeReviewError(c, err)
	}

	return c.JSON(http.StatusOK, ReviewListResponse{Items: items, Total: total})
}

func (h *ReviewHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailErrorResponse{Detail: "unauthorized"})
	}

	var req CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailErrorResponse{Detail: "invalid body"})
	}

	out, err := h.uc.Submit(c.Request().Context(), userID, usecase.SubmitReviewInput{
		ProductID: req.Product,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return writeReviewError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *ReviewHandler) update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailErrorResponse{Detail: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, DetailErrorResponse{Detail: "invalid id"})
	}

	var req UpdateReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, DetailErrorResponse{Detail: "invalid body"})
	}

	out, err := h.uc.Update(c.Request().Context(), userID, id, usecase.UpdateReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return writeReviewError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ReviewHandler) delete(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, DetailErrorResponse{Detail: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, DetailErrorResponse{Detail: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), userID, id); err != nil {
		return writeReviewError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
