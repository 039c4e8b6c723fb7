package usecase

import (
	"context"
	"net/http"
	"strings"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

// レビューは購入者限定。資格判定は注文明細（PAID/SHIPPED）で行う。
type ReviewUsecase struct {
	reviewRepo    repo.ReviewRepository
	orderItemRepo repo.OrderItemRepository
	productRepo   repo.ProductRepository
}

func NewReviewUsecase(reviewRepo repo.ReviewRepository, orderItemRepo repo.OrderItemRepository, productRepo repo.ProductRepository) *ReviewUsecase {
	return &ReviewUsecase{reviewRepo: reviewRepo, orderItemRepo: orderItemRepo, productRepo: productRepo}
}

type SubmitReviewInput struct {
	ProductID int64
	Rating    int
	Comment   string
}

type UpdateReviewInput struct {
	Rating  *int
	Comment *string
}

type ReviewResponse struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toReviewResponse(rv model.Review) ReviewResponse {
	return ReviewResponse{
		ID:        rv.ID,
		UserID:    rv.UserID,
		ProductID: rv.ProductID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
		CreatedAt: rv.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// レビュー投稿。購入実績がなければ400。
// 重複（同一ユーザー×同一商品）は事前チェックせず、INSERTの制約違反で弾く。
func (u *ReviewUsecase) Submit(ctx context.Context, userID int64, in SubmitReviewInput) (ReviewResponse, error) {
	if userID <= 0 {
		return ReviewResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return ReviewResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return ReviewResponse{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return ReviewResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return ReviewResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return ReviewResponse{}, NewHTTPError(http.StatusNotFound, "product not found")
	}

	ok, err := u.orderItemRepo.ExistsPurchasedByUser(ctx, userID, in.ProductID)
	if err != nil {
		return ReviewResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !ok {
		return ReviewResponse{}, NewHTTPError(http.StatusBadRequest, "you can only review products you have purchased")
	}

	rv, err := u.reviewRepo.Create(ctx, model.Review{
		UserID:    userID,
		ProductID: in.ProductID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	})
	if err == repo.ErrDuplicate {
		return ReviewResponse{}, NewHTTPError(http.StatusBadRequest, "you have already reviewed this product")
	}
	if err != nil {
		return ReviewResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return toReviewResponse(rv), nil
}

// レビュー一覧（公開）。product_idで絞り込める。
func (u *ReviewUsecase) List(ctx context.Context, f repo.ReviewListFilter) ([]ReviewResponse, int64, error) {
	if f.Page < 1 {
		return []ReviewResponse{}, 0, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []ReviewResponse{}, 0, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.ProductID != nil && *f.ProductID <= 0 {
		return []ReviewResponse{}, 0, NewHTTPError(http.StatusBadRequest, "invalid product")
	}

	rvs, total, err := u.reviewRepo.List(ctx, f)
	if err != nil {
		return []ReviewResponse{}, 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]ReviewResponse, 0, len(rvs))
	for _, rv := range rvs {
		outs = append(outs, toReviewResponse(rv))
	}
	return outs, total, nil
}

// レビュー更新（本人のみ）。他人のレビューは存在を明かさず404。
func (u *ReviewUsecase) Update(ctx context.Context, userID int64, reviewID int64, in UpdateReviewInput) (ReviewResponse, error) {
	if userID <= 0 {
		return ReviewResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if reviewID <= 0 {
		return ReviewResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	rv, err := u.reviewRepo.FindByID(ctx, reviewID)
	if err == repo.ErrNotFound {
		return ReviewResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ReviewResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if rv.UserID != userID {
		return ReviewResponse{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	if in.Rating != nil {
		if *in.Rating < 1 || *in.Rating > 5 {
			return ReviewResponse{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
		}
		rv.Rating = *in.Rating
	}
	if in.Comment != nil {
		rv.Comment = strings.TrimSpace(*in.Comment)
	}

	if err := u.reviewRepo.Update(ctx, rv); err != nil {
		return ReviewResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toReviewResponse(rv), nil
}

// レビュー削除（本人のみ）。
func (u *ReviewUsecase) Delete(ctx context.Context, userID int64, reviewID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if reviewID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	rv, err := u.reviewRepo.FindByID(ctx, reviewID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if rv.UserID != userID {
		return NewHTTPError(http.StatusNotFound, "not found")
	}

	if err := u.reviewRepo.DeleteByID(ctx, reviewID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
