package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/domain/orderview"
	"storefront/internal/logger"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 決済ゲートウェイ（izipay）とのやり取り
type PaymentGateway interface {
	CreateFormToken(ctx context.Context, req FormTokenRequest) (string, error)
	// kr-answer の署名確認。不一致なら error
	VerifyAnswer(answer string, hash string, algorithm string) error
}

type FormTokenCustomer struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	Country    string
	Department string
	Province   string
	District   string
	Reference  string
}

type FormTokenRequest struct {
	Amount   int64 // céntimos
	Currency string
	OrderID  string
	Customer FormTokenCustomer
	Metadata map[string]string
}

type CheckoutConfig struct {
	PublicKey  string
	SuccessURL string
	FailureURL string
}

type CheckoutItemInput struct {
	ProductID int64
	Quantity  int64
	Size      string
	Color     string
}

type CheckoutInput struct {
	Items          []CheckoutItemInput // 空ならサーバー側のカート
	ShippingMethod string
	OrderID        string

	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Country    string
	Department string
	Province   string
	District   string
	Address    string
	Reference  string
}

type FormTokenOutput struct {
	FormToken string          `json:"formToken"`
	OrderID   string          `json:"orderId"`
	Amount    decimal.Decimal `json:"amount"`
	PublicKey string          `json:"publicKey"`
}

type PaymentCallbackInput struct {
	Answer        string
	Hash          string
	HashAlgorithm string
}

type PaymentCallbackOutput struct {
	RedirectURL string
	OrderID     int64
	Created     bool
}

// 決済済みの注文がすでにある（同時に届いたコールバックが先に作った）
var errPaymentRecorded = errors.New("payment already recorded")

type CheckoutUsecase struct {
	productRepo  repo.ProductRepository
	orderRepo    repo.OrderRepository
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	tx           repo.TransactionManager
	gateway      PaymentGateway
	cfg          CheckoutConfig

	now   func() time.Time
	newID func() string
}

func NewCheckoutUsecase(
	productRepo repo.ProductRepository,
	orderRepo repo.OrderRepository,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	tx repo.TransactionManager,
	gateway PaymentGateway,
	cfg CheckoutConfig,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		tx:           tx,
		gateway:      gateway,
		cfg:          cfg,
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
}

// metadata.items に入れる1行
type checkoutLine struct {
	ProductID int64           `json:"productoId"`
	Name      string          `json:"nombreProducto"`
	Price     decimal.Decimal `json:"precio"`
	Quantity  int64           `json:"cantidad"`
	Size      string          `json:"talla"`
	Color     string          `json:"color"`
	Image     string          `json:"imagen"`
}

// フォームトークン発行。金額はサーバー側の価格で計算し直す
func (u *CheckoutUsecase) CreateFormToken(ctx context.Context, userID int64, in CheckoutInput) (FormTokenOutput, error) {
	method := orderview.NormalizeShippingMethod(in.ShippingMethod)
	if method == "" {
		return FormTokenOutput{}, NewHTTPError(http.StatusBadRequest, "shipping method is required")
	}
	if !orderview.IsKnownShippingMethod(method) {
		return FormTokenOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping method")
	}
	if err := validateCustomer(in, method); err != nil {
		return FormTokenOutput{}, err
	}

	items := in.Items
	if len(items) == 0 && userID > 0 {
		fromCart, err := u.cartLines(ctx, userID)
		if err != nil {
			return FormTokenOutput{}, err
		}
		items = fromCart
	}
	if len(items) == 0 {
		return FormTokenOutput{}, NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	lines, err := u.priceLines(ctx, items)
	if err != nil {
		return FormTokenOutput{}, err
	}

	shipping, _ := orderview.ShippingCostForMethod(method)
	calc := make([]orderview.Line, 0, len(lines))
	for _, l := range lines {
		calc = append(calc, orderview.Line{UnitPrice: l.Price, Quantity: l.Quantity})
	}
	totals := orderview.ComputeTotals(calc, shipping)

	orderRef := strings.TrimSpace(in.OrderID)
	if orderRef == "" {
		orderRef = u.orderReference()
	} else {
		// 使用済みの参照で払うとコールバックが既存の注文に化けるので断る
		_, found, err := u.orderRepo.FindByGatewayOrderID(ctx, orderRef)
		if err != nil {
			return FormTokenOutput{}, dbError(ctx, "orders.find_by_gateway_id", err)
		}
		if found {
			return FormTokenOutput{}, NewHTTPError(http.StatusConflict, "order reference already used")
		}
	}

	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return FormTokenOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	meta := map[string]string{
		"usuarioId":      strconv.FormatInt(userID, 10),
		"orderId":        orderRef,
		"referencia":     strings.TrimSpace(in.Reference),
		"distrito":       strings.TrimSpace(in.District),
		"shippingMethod": method,
		"shippingCost":   shipping.StringFixed(2),
		"items":          string(itemsJSON),
		"nombre":         strings.TrimSpace(in.FirstName),
		"apellido":       strings.TrimSpace(in.LastName),
		"email":          strings.TrimSpace(in.Email),
		"telefono":       strings.TrimSpace(in.Phone),
		"pais":           strings.TrimSpace(in.Country),
		"departamento":   strings.TrimSpace(in.Department),
		"provincia":      strings.TrimSpace(in.Province),
		"direccion":      strings.TrimSpace(in.Address),
	}

	req := FormTokenRequest{
		Amount:   totals.Total.Shift(2).Round(0).IntPart(),
		Currency: orderview.Currency,
		OrderID:  orderRef,
		Customer: FormTokenCustomer{
			Email:      meta["email"],
			FirstName:  meta["nombre"],
			LastName:   meta["apellido"],
			Phone:      meta["telefono"],
			Address:    meta["direccion"],
			Country:    meta["pais"],
			Department: meta["departamento"],
			Province:   meta["provincia"],
			District:   meta["distrito"],
			Reference:  meta["referencia"],
		},
		Metadata: meta,
	}

	token, err := u.gateway.CreateFormToken(ctx, req)
	if err != nil {
		logger.FromContext(ctx).Error("form token failed",
			zap.String("order_ref", orderRef),
			zap.Error(err),
		)
		return FormTokenOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}

	logger.FromContext(ctx).Info("form token created",
		zap.String("order_ref", orderRef),
		zap.Int64("user_id", userID),
		zap.String("amount", totals.Total.StringFixed(2)),
	)

	return FormTokenOutput{
		FormToken: token,
		OrderID:   orderRef,
		Amount:    totals.Total,
		PublicKey: u.cfg.PublicKey,
	}, nil
}

// 決済結果の受け取り。PAID なら注文を作る（同じゲートウェイ注文IDは1回だけ）
func (u *CheckoutUsecase) HandlePaymentResult(ctx context.Context, in PaymentCallbackInput) (PaymentCallbackOutput, error) {
	log := logger.FromContext(ctx)
	fail := PaymentCallbackOutput{RedirectURL: u.cfg.FailureURL}

	if strings.TrimSpace(in.Answer) == "" {
		return fail, NewHTTPError(http.StatusBadRequest, "kr-answer is required")
	}
	if err := u.gateway.VerifyAnswer(in.Answer, in.Hash, in.HashAlgorithm); err != nil {
		log.Warn("payment answer rejected", zap.Error(err))
		return fail, nil
	}

	resp := orderview.ParsePaymentResponse(in.Answer)
	status := strings.ToUpper(orderview.StringAt(resp, "orderStatus"))
	if status != "PAID" {
		log.Info("payment not paid", zap.String("order_status", status))
		return fail, nil
	}

	meta := orderview.MetadataOf(resp)
	gatewayOrderID := firstNonBlank(meta.String("orderId"), orderview.StringAt(resp, "orderDetails", "orderId"))
	if gatewayOrderID == "" {
		log.Warn("payment answer without order id")
		return fail, nil
	}

	userID, _ := strconv.ParseInt(meta.String("usuarioId"), 10, 64)
	tx := orderview.FirstTransaction(resp)
	now := u.now()

	var out PaymentCallbackOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じ注文IDが来たら作らない
		existing, found, err := r.Orders().FindByGatewayOrderID(ctx, gatewayOrderID)
		if err != nil {
			return dbError(ctx, "orders.find_by_gateway_id", err)
		}
		if found {
			out, err = u.recordedPayment(ctx, existing, userID)
			return err
		}

		items, err := u.itemsFromMetadata(ctx, r, meta)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return NewHTTPError(http.StatusBadRequest, "payment without items")
		}

		method := orderview.NormalizeShippingMethod(meta.String("shippingMethod", "metodoEnvio"))
		shipping, ok := meta.Decimal("shippingCost")
		if !ok || shipping.IsNegative() {
			shipping, _ = orderview.ShippingCostForMethod(method)
		}
		totals := orderview.ComputeTotals(orderview.LinesFromItems(items), shipping)

		for _, it := range items {
			err := r.Products().DecrementStock(ctx, it.ProductID, it.Quantity)
			if errors.Is(err, repo.ErrInsufficientStock) || errors.Is(err, repo.ErrNotFound) {
				// 支払い済みなので注文は作る。在庫は管理画面で調整
				log.Warn("stock not decremented",
					zap.Int64("product_id", it.ProductID),
					zap.Int64("qty", it.Quantity),
					zap.Error(err),
				)
				continue
			}
			if err != nil {
				return dbError(ctx, "products.decrement_stock", err)
			}
		}

		order := model.Order{
			UserID:          userID,
			FirstName:       firstNonBlank(meta.String("nombre"), orderview.StringAt(resp, "customer", "billingDetails", "firstName")),
			LastName:        firstNonBlank(meta.String("apellido"), orderview.StringAt(resp, "customer", "billingDetails", "lastName")),
			Email:           firstNonBlank(meta.String("email"), orderview.StringAt(resp, "customer", "email")),
			Phone:           firstNonBlank(meta.String("telefono"), orderview.StringAt(resp, "customer", "billingDetails", "cellPhoneNumber")),
			Country:         meta.String("pais"),
			Department:      meta.String("departamento"),
			Province:        meta.String("provincia"),
			District:        meta.String("distrito"),
			Address:         meta.String("direccion"),
			Reference:       meta.String("referencia"),
			ShippingMethod:  method,
			Subtotal:        totals.Subtotal,
			ShippingCost:    totals.Shipping,
			Total:           totals.Total,
			Status:          model.OrderStatusPending,
			TransactionID:   orderview.StringAt(tx, "uuid"),
			PaymentStatus:   firstNonBlank(orderview.StringAt(tx, "status"), status),
			PaymentDate:     &now,
			GatewayOrderID:  gatewayOrderID,
			PaymentMethod:   orderview.StringAt(tx, "paymentMethodType"),
			PaymentResponse: in.Answer,
		}

		id, err := r.Orders().Create(ctx, order)
		if errors.Is(err, repo.ErrDuplicate) {
			// 一意制約で負けた側。在庫の減算ごとロールバックする
			return errPaymentRecorded
		}
		if err != nil {
			return dbError(ctx, "orders.create", err)
		}

		if err := r.OrderItems().CreateBulk(ctx, id, items); err != nil {
			return dbError(ctx, "order_items.create_bulk", err)
		}

		// ゲストはカートなし
		if userID > 0 {
			cart, err := r.Carts().FindByUserID(ctx, userID)
			switch {
			case err == nil:
				if err := r.Carts().Clear(ctx, cart.ID); err != nil {
					return dbError(ctx, "carts.clear", err)
				}
			case errors.Is(err, repo.ErrNotFound):
			default:
				return dbError(ctx, "carts.find", err)
			}
		}

		out = PaymentCallbackOutput{OrderID: id, Created: true}
		return nil
	})
	if errors.Is(err, errPaymentRecorded) {
		existing, found, ferr := u.orderRepo.FindByGatewayOrderID(ctx, gatewayOrderID)
		switch {
		case ferr != nil:
			err = dbError(ctx, "orders.find_by_gateway_id", ferr)
		case !found:
			err = NewHTTPError(http.StatusConflict, "payment already recorded")
		default:
			out, err = u.recordedPayment(ctx, existing, userID)
		}
	}
	if err != nil {
		log.Error("payment order not created",
			zap.String("gateway_order_id", gatewayOrderID),
			zap.Error(err),
		)
		return fail, err
	}

	if out.Created {
		log.Info("order created from payment",
			zap.Int64("order_id", out.OrderID),
			zap.String("gateway_order_id", gatewayOrderID),
			zap.Int64("user_id", userID),
		)
	}
	out.RedirectURL = withQuery(u.cfg.SuccessURL, "orden", strconv.FormatInt(out.OrderID, 10))
	return out, nil
}

// 同じゲートウェイ注文IDの注文がある場合。別ユーザーの注文なら番号を返さない
func (u *CheckoutUsecase) recordedPayment(ctx context.Context, existing model.Order, userID int64) (PaymentCallbackOutput, error) {
	if existing.UserID != userID {
		logger.FromContext(ctx).Warn("gateway order id belongs to another user",
			zap.Int64("order_id", existing.ID),
			zap.Int64("user_id", userID),
		)
		return PaymentCallbackOutput{}, NewHTTPError(http.StatusConflict, "order reference already used")
	}
	return PaymentCallbackOutput{OrderID: existing.ID}, nil
}

// カートの行をチェックアウト入力に変換
func (u *CheckoutUsecase) cartLines(ctx context.Context, userID int64) ([]CheckoutItemInput, error) {
	cart, err := u.cartRepo.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(ctx, "carts.find", err)
	}

	rows, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return nil, dbError(ctx, "cart_items.list", err)
	}

	out := make([]CheckoutItemInput, 0, len(rows))
	for _, it := range rows {
		out = append(out, CheckoutItemInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
		})
	}
	return out, nil
}

// 入力の商品を現在の価格・在庫で確認
func (u *CheckoutUsecase) priceLines(ctx context.Context, items []CheckoutItemInput) ([]checkoutLine, error) {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid productoId")
		}
		if it.Quantity < 1 {
			return nil, NewHTTPError(http.StatusBadRequest, "invalid cantidad")
		}
		ids = append(ids, it.ProductID)
	}

	products, err := u.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dbError(ctx, "products.find_by_ids", err)
	}

	// 同じ商品が複数行にあるときは合計で在庫を見る
	wanted := map[int64]int64{}
	lines := make([]checkoutLine, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.IsActive || p.DeletedAt.Valid {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("product %d is not available", it.ProductID))
		}
		wanted[p.ID] += it.Quantity
		if wanted[p.ID] > p.Stock {
			return nil, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("insufficient stock for %s", p.Name))
		}

		size, err := pickOption(p.SizeOptions(), it.Size, "talla")
		if err != nil {
			return nil, err
		}
		color, err := pickOption(p.ColorOptions(), it.Color, "color")
		if err != nil {
			return nil, err
		}

		lines = append(lines, checkoutLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Size:      size,
			Color:     color,
			Image:     p.Images.First(),
		})
	}
	return lines, nil
}

// metadata.items から注文明細を組み立てる。価格は metadata、なければ商品
func (u *CheckoutUsecase) itemsFromMetadata(ctx context.Context, r repo.TxRepos, meta orderview.Metadata) ([]model.OrderItem, error) {
	metaItems := meta.Items()

	ids := make([]int64, 0, len(metaItems))
	for _, mi := range metaItems {
		if id := mi.ProductNumber(); id > 0 {
			ids = append(ids, id)
		}
	}
	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, dbError(ctx, "products.find_by_ids", err)
	}

	items := make([]model.OrderItem, 0, len(metaItems))
	for _, mi := range metaItems {
		id := mi.ProductNumber()
		if id <= 0 {
			logger.FromContext(ctx).Warn("metadata item skipped", zap.String("producto_id", mi.ProductID()))
			continue
		}
		qty := mi.Int("cantidad", "quantity")
		if qty < 1 {
			qty = 1
		}

		p, known := products[id]
		price, ok := mi.Decimal("precio", "price")
		if !ok && known {
			price = p.Price
		}

		item := model.OrderItem{
			ProductID:   id,
			Quantity:    qty,
			UnitPrice:   price,
			ProductName: mi.String("nombreProducto", "nombre"),
			Size:        mi.String("talla", "size"),
			Color:       mi.String("color"),
			Image:       mi.String("imagen", "image"),
		}
		if known {
			if item.ProductName == "" {
				item.ProductName = p.Name
			}
			if item.Image == "" {
				item.Image = p.Images.First()
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// SG-<yyyymmddhhmmss>-<8桁hex>
func (u *CheckoutUsecase) orderReference() string {
	id := strings.ReplaceAll(u.newID(), "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("SG-%s-%s", u.now().Format("20060102150405"), id)
}

type requiredField struct {
	value string
	field string
}

// 配送（olva）のときだけ住所を必須にする
func validateCustomer(in CheckoutInput, method string) error {
	required := []requiredField{
		{in.FirstName, "nombre"},
		{in.LastName, "apellido"},
		{in.Email, "email"},
		{in.Phone, "telefono"},
	}
	if method == orderview.ShippingOlva {
		required = append(required,
			requiredField{in.Department, "departamento"},
			requiredField{in.Province, "provincia"},
			requiredField{in.District, "distrito"},
			requiredField{in.Address, "direccion"},
		)
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewHTTPError(http.StatusBadRequest, r.field+" is required")
		}
	}
	if !strings.Contains(in.Email, "@") {
		return NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	return nil
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func withQuery(base string, key string, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
