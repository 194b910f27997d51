package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/domain/orderview"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /carrito の業務ロジック。
// カートは本人しか触れない（パスの userId とトークンの sub が一致すること）
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// 価格は現在の商品価格（注文確定時にスナップショットを取る）
type CartItemResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"productoId"`
	Name      string          `json:"nombre"`
	Image     string          `json:"imagen"`
	Price     decimal.Decimal `json:"precio"`
	Quantity  int64           `json:"cantidad"`
	Size      string          `json:"talla"`
	Color     string          `json:"color"`
	Stock     int64           `json:"stock"`
	Amount    decimal.Decimal `json:"importe"`
}

type CartResponse struct {
	UserID   int64              `json:"usuarioId"`
	Items    []CartItemResponse `json:"items"`
	Count    int64              `json:"cantidadTotal"`
	Subtotal decimal.Decimal    `json:"subtotal"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
	Size      string
	Color     string
}

func (u *CartUsecase) GetCart(ctx context.Context, actorUserID int64, ownerID int64) (CartResponse, error) {
	if err := checkCartOwner(actorUserID, ownerID); err != nil {
		return CartResponse{}, err
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, ownerID)
	if err != nil {
		return CartResponse{}, dbError(ctx, "carts.get_or_create", err)
	}
	return u.buildCartResponse(ctx, cart)
}

// 同じ商品・サイズ・色は数量加算
func (u *CartUsecase) AddToCart(ctx context.Context, actorUserID int64, ownerID int64, in AddCartInput) (CartResponse, error) {
	if err := checkCartOwner(actorUserID, ownerID); err != nil {
		return CartResponse{}, err
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid productoId")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid cantidad")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}
	if err != nil {
		return CartResponse{}, dbError(ctx, "products.find", err)
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product")
	}

	size, err := pickOption(p.SizeOptions(), in.Size, "talla")
	if err != nil {
		return CartResponse{}, err
	}
	color, err := pickOption(p.ColorOptions(), in.Color, "color")
	if err != nil {
		return CartResponse{}, err
	}

	cart, err := u.cartRepo.GetOrCreateByUserID(ctx, ownerID)
	if err != nil {
		return CartResponse{}, dbError(ctx, "carts.get_or_create", err)
	}

	key := repo.CartLineKey{ProductID: p.ID, Size: size, Color: color}

	var existingQty int64
	existing, err := u.cartItemRepo.FindByKey(ctx, cart.ID, key)
	switch {
	case err == nil:
		existingQty = existing.Quantity
	case errors.Is(err, repo.ErrNotFound):
	default:
		return CartResponse{}, dbError(ctx, "cart_items.find_by_key", err)
	}

	if existingQty+in.Quantity > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "stock exceeded")
	}

	if _, err := u.cartItemRepo.Upsert(ctx, cart.ID, key, in.Quantity); err != nil {
		return CartResponse{}, dbError(ctx, "cart_items.upsert", err)
	}
	return u.buildCartResponse(ctx, cart)
}

func (u *CartUsecase) UpdateCartItem(ctx context.Context, actorUserID int64, ownerID int64, cartItemID int64, qty int64) (CartResponse, error) {
	if err := checkCartOwner(actorUserID, ownerID); err != nil {
		return CartResponse{}, err
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if qty < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid cantidad")
	}

	cart, item, err := u.ownedItem(ctx, ownerID, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	p, err := u.productRepo.FindByID(ctx, item.ProductID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, dbError(ctx, "products.find", err)
	}
	if err == nil && qty > p.Stock {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "stock exceeded")
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, qty); err != nil {
		return CartResponse{}, dbError(ctx, "cart_items.update_quantity", err)
	}
	return u.buildCartResponse(ctx, cart)
}

func (u *CartUsecase) RemoveCartItem(ctx context.Context, actorUserID int64, ownerID int64, cartItemID int64) (CartResponse, error) {
	if err := checkCartOwner(actorUserID, ownerID); err != nil {
		return CartResponse{}, err
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	cart, _, err := u.ownedItem(ctx, ownerID, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}
	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		return CartResponse{}, dbError(ctx, "cart_items.delete", err)
	}
	return u.buildCartResponse(ctx, cart)
}

func (u *CartUsecase) ClearCart(ctx context.Context, actorUserID int64, ownerID int64) error {
	if err := checkCartOwner(actorUserID, ownerID); err != nil {
		return err
	}

	cart, err := u.cartRepo.FindByUserID(ctx, ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dbError(ctx, "carts.find", err)
	}
	if err := u.cartRepo.Clear(ctx, cart.ID); err != nil {
		return dbError(ctx, "carts.clear", err)
	}
	return nil
}

// 明細が本人のカートのものか
func (u *CartUsecase) ownedItem(ctx context.Context, ownerID int64, cartItemID int64) (model.Cart, model.CartItem, error) {
	cart, err := u.cartRepo.FindByUserID(ctx, ownerID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, dbError(ctx, "carts.find", err)
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, dbError(ctx, "cart_items.find", err)
	}
	//他人の明細は存在しない扱い
	if item.CartID != cart.ID {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return cart, item, nil
}

func (u *CartUsecase) buildCartResponse(ctx context.Context, cart model.Cart) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, dbError(ctx, "cart_items.list", err)
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := u.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return CartResponse{}, dbError(ctx, "products.find_by_ids", err)
	}

	out := CartResponse{UserID: cart.UserID, Items: make([]CartItemResponse, 0, len(items))}
	lines := make([]orderview.Line, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		//消えた商品は表示しない
		if !ok {
			continue
		}
		amount := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		out.Items = append(out.Items, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			Image:     p.Images.First(),
			Price:     p.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Stock:     p.Stock,
			Amount:    amount,
		})
		out.Count += it.Quantity
		lines = append(lines, orderview.Line{UnitPrice: p.Price, Quantity: it.Quantity})
	}
	out.Subtotal = orderview.ComputeTotals(lines, decimal.Zero).Subtotal
	return out, nil
}

func checkCartOwner(actorUserID int64, ownerID int64) error {
	if actorUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if ownerID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid userId")
	}
	if actorUserID != ownerID {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return nil
}

// 指定が選択肢にあるか（大文字小文字は無視）。空なら先頭
func pickOption(options []string, chosen string, field string) (string, error) {
	chosen = strings.TrimSpace(chosen)
	if len(options) == 0 {
		return chosen, nil
	}
	if chosen == "" {
		return options[0], nil
	}
	for _, o := range options {
		if strings.EqualFold(o, chosen) {
			return o, nil
		}
	}
	return "", NewHTTPError(http.StatusBadRequest, "invalid "+field)
}
