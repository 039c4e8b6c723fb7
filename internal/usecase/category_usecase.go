package usecase

import (
	"context"
	"net/http"
	"strings"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/gosimple/slug"
)

type CategoryUsecase struct {
	categoryRepo repo.CategoryRepository
}

// DI
func NewCategoryUsecase(categoryRepo repo.CategoryRepository) *CategoryUsecase {
	return &CategoryUsecase{categoryRepo: categoryRepo}
}

func (u *CategoryUsecase) List(ctx context.Context) ([]model.Category, error) {
	cats, err := u.categoryRepo.List(ctx)
	if err != nil {
		return []model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return cats, nil
}

func (u *CategoryUsecase) Detail(ctx context.Context, id int64) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	c, err := u.categoryRepo.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return c, nil
}

type CategoryInput struct {
	Name     string
	Slug     string
	ParentID *int64
}

func (u *CategoryUsecase) AdminCreate(ctx context.Context, adminUserID int64, in CategoryInput) (model.Category, error) {
	if adminUserID <= 0 {
		return model.Category{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name required")
	}

	//親カテゴリ指定があれば存在確認
	if in.ParentID != nil {
		if _, err := u.categoryRepo.FindByID(ctx, *in.ParentID); err != nil {
			if err == repo.ErrNotFound {
				return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid parent_id")
			}
			return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	s := strings.TrimSpace(in.Slug)
	if s == "" {
		s = slug.Make(in.Name)
	}

	c, err := u.categoryRepo.Create(ctx, model.Category{
		Name:     strings.TrimSpace(in.Name),
		Slug:     s,
		ParentID: in.ParentID,
	})
	if err == repo.ErrDuplicate {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "slug already used")
	}
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return c, nil
}

func (u *CategoryUsecase) AdminUpdate(ctx context.Context, adminUserID int64, id int64, in CategoryInput) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	//自分自身を親にはできない
	if in.ParentID != nil && *in.ParentID == id {
		return NewHTTPError(http.StatusBadRequest, "invalid parent_id")
	}

	if in.ParentID != nil {
		if _, err := u.categoryRepo.FindByID(ctx, *in.ParentID); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "invalid parent_id")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	s := strings.TrimSpace(in.Slug)
	if s == "" {
		s = slug.Make(in.Name)
	}

	err := u.categoryRepo.Update(ctx, model.Category{
		ID:       id,
		Name:     strings.TrimSpace(in.Name),
		Slug:     s,
		ParentID: in.ParentID,
	})
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err == repo.ErrDuplicate {
		return NewHTTPError(http.StatusBadRequest, "slug already used")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *CategoryUsecase) AdminDelete(ctx context.Context, adminUserID int64, id int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.categoryRepo.Delete(ctx, id)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
