package usecase

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/shopspring/decimal"
)

// 配送先の入力上限
const maxAddressLen = 500

// CheckoutUsecaseはカート明細の選択を注文へ確定する。
// 在庫の読み→減算、注文作成、明細削除までを1トランザクションで行う。
type CheckoutUsecase struct {
	tx repo.TransactionManager
}

func NewCheckoutUsecase(tx repo.TransactionManager) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx}
}

type CheckoutInput struct {
	Address     string
	CartItemIDs []int64
}

// Checkoutは選択された明細だけを注文に変換する。
//
// 流れ:
//  1. ACTIVEカートを取得（無ければ404）
//  2. 指定IDのうちこのカートに属する明細を取得。件数が合わなければ400
//  3. 対象商品の行ロックをID昇順で取得（同時checkoutのデッドロック防止）
//  4. ロック下で在庫を再チェック。1つでも足りなければ全体を中断
//  5. 販売単価（セール価格優先）で合計を計算
//  6. Order＋OrderItem（スナップショット）を作成し、在庫を減算
//  7. 消費した明細だけ削除。選ばれなかった明細は残す
//
// 失敗時はロールバックされ、部分的な書き込みは残らない。
func (u *CheckoutUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	address := strings.TrimSpace(in.Address)
	if address == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "address required")
	}
	if len(address) > maxAddressLen {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "address too long")
	}
	if len(in.CartItemIDs) == 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//カート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "cart not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//このカートに属する明細だけを引く。
		//件数が合わない＝不正ID・他人の明細・重複指定なので、部分確定はせず弾く
		items, err := r.CartItems().ListByIDsInCart(ctx, cart.ID, in.CartItemIDs)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(items) == 0 || len(items) != len(in.CartItemIDs) {
			return NewHTTPError(http.StatusBadRequest, "invalid cart item selection")
		}

		//対象商品IDを昇順に並べてロック
		productIDs := make([]int64, 0, len(items))
		for _, it := range items {
			productIDs = append(productIDs, it.ProductID)
		}
		sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

		locked, err := r.Inventory().LockProducts(ctx, productIDs)
		if err == repo.ErrLockNotAvailable {
			return NewHTTPError(http.StatusConflict, "checkout conflict, please retry")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		productByID := make(map[int64]model.Product, len(locked))
		for _, p := range locked {
			productByID[p.ID] = p
		}

		//ロック下の在庫で全行を検証。1つでも失敗したら全体中断
		for _, it := range items {
			p, ok := productByID[it.ProductID]
			if !ok || !p.IsActive {
				return NewHTTPError(http.StatusBadRequest, "product no longer available")
			}
			if p.Stock < it.Quantity {
				return NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("insufficient stock for '%s'", p.Name))
			}
		}

		//合計計算と明細スナップショット
		total := decimal.Zero
		now := time.Now()
		orderItems := make([]model.OrderItem, 0, len(items))

		for _, it := range items {
			p := productByID[it.ProductID]
			unit := p.EffectiveUnitPrice()
			total = total.Add(unit.Mul(decimal.NewFromInt(it.Quantity)))

			pid := it.ProductID
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           &pid,
				ProductNameSnapshot: p.Name,
				UnitPriceSnapshot:   unit,
				Quantity:            it.Quantity,
				CreatedAt:           now,
			})
		}

		//注文作成
		order := model.Order{
			UserID:     userID,
			Status:     model.OrderStatusPending,
			TotalPrice: total,
			Address:    address,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		order.ID = orderID

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//在庫減算（ロック保持中。stock >= qtyを条件に入れた二重ガード）
		for _, it := range items {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "out of stock")
			}
		}

		//消費した明細だけ削除
		if err := r.CartItems().DeleteByIDsInCart(ctx, cart.ID, in.CartItemIDs); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}
