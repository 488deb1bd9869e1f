package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/biomarker-backend/internal/data/repos"
	types "github.com/yungbote/biomarker-backend/internal/domain"
	"github.com/yungbote/biomarker-backend/internal/observability"
	"github.com/yungbote/biomarker-backend/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/biomarker-backend/internal/pkg/errors"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
	"github.com/yungbote/biomarker-backend/internal/realtime"
)

const orderNumberAttempts = 3

type CartView struct {
	Cart      *types.Cart `json:"cart"`
	ItemCount int         `json:"item_count"`
	Subtotal  float64     `json:"subtotal"`
}

type AddCartItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity"`
}

type CheckoutInput struct {
	ShippingAddress map[string]any `json:"shipping_address"`
	Notes           string         `json:"notes"`
}

type CheckoutResult struct {
	Order *types.Order `json:"order"`
	// Payment is nil until a payment provider is wired.
	Payment any `json:"payment"`
}

type CommerceService interface {
	ListProducts(ctx context.Context, category string) ([]*types.PartnerProduct, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*types.PartnerProduct, error)

	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, in AddCartItemInput) (*CartView, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error

	Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*CheckoutResult, error)
	ConfirmOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error)
}

type commerceService struct {
	log      *logger.Logger
	products repos.ProductRepo
	partners repos.PartnerRepo
	carts    repos.CartRepo
	orders   repos.OrderRepo
	notifier Notifier
	now      func() time.Time
}

func NewCommerceService(
	baseLog *logger.Logger,
	products repos.ProductRepo,
	partners repos.PartnerRepo,
	carts repos.CartRepo,
	orders repos.OrderRepo,
	notifier Notifier,
) CommerceService {
	return &commerceService{
		log:      baseLog.With("service", "CommerceService"),
		products: products,
		partners: partners,
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

func (s *commerceService) ListProducts(ctx context.Context, category string) ([]*types.PartnerProduct, error) {
	return s.products.ListActive(dbctx.New(ctx), strings.TrimSpace(category))
}

func (s *commerceService) GetProduct(ctx context.Context, id uuid.UUID) (*types.PartnerProduct, error) {
	p, err := s.products.GetByID(dbctx.New(ctx), id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, pkgerrors.ErrNotFound
	}
	return p, nil
}

// getOrCreateCart looks the cart up and creates it when missing. Losing the
// create race to another request re-reads the winner's cart.
func (s *commerceService) getOrCreateCart(ctx context.Context, userID uuid.UUID) (*types.Cart, error) {
	dbc := dbctx.New(ctx)
	cart, err := s.carts.GetByUserID(dbc, userID)
	if err != nil || cart != nil {
		return cart, err
	}
	cart = &types.Cart{UserID: userID}
	if err := s.carts.Create(dbc, cart); err != nil {
		if !errors.Is(err, pkgerrors.ErrConflict) {
			return nil, err
		}
		s.log.Debug("cart create raced, re-reading", "user_id", userID)
		cart, err = s.carts.GetByUserID(dbc, userID)
		if err != nil {
			return nil, err
		}
		if cart == nil {
			return nil, fmt.Errorf("cart for user vanished after conflict")
		}
		return cart, nil
	}
	cart.Items = []types.CartItem{}
	return cart, nil
}

func (s *commerceService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return newCartView(cart), nil
}

func (s *commerceService) reloadCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.carts.GetByUserID(dbctx.New(ctx), userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.ErrNotFound
	}
	return newCartView(cart), nil
}

func (s *commerceService) AddItem(ctx context.Context, userID uuid.UUID, in AddCartItemInput) (*CartView, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", pkgerrors.ErrInvalidArgument)
	}
	dbc := dbctx.New(ctx)
	product, err := s.products.GetByID(dbc, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
	}
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.carts.GetItemByProduct(dbc, cart.ID, product.ID)
	if err != nil {
		return nil, err
	}
	want := in.Quantity
	if existing != nil {
		want += existing.Quantity
	}
	if want > product.StockQuantity {
		return nil, insufficientStock(product.Name, want, product.StockQuantity)
	}
	if existing != nil {
		err = s.carts.UpdateItemQuantity(dbc, existing.ID, want)
	} else {
		err = s.carts.CreateItem(dbc, &types.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			Quantity:  want,
			UnitPrice: product.Price,
		})
	}
	if err != nil {
		return nil, err
	}
	return s.reloadCart(ctx, userID)
}

func (s *commerceService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*CartView, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", pkgerrors.ErrInvalidArgument)
	}
	dbc := dbctx.New(ctx)
	cart, err := s.carts.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.ErrNotFound
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}
	item, err := s.carts.GetItem(dbc, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Product == nil || !item.Product.Active {
		return nil, ErrProductUnavailable
	}
	if quantity > item.Product.StockQuantity {
		return nil, insufficientStock(item.Product.Name, quantity, item.Product.StockQuantity)
	}
	if err := s.carts.UpdateItemQuantity(dbc, item.ID, quantity); err != nil {
		return nil, err
	}
	return s.reloadCart(ctx, userID)
}

func (s *commerceService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartView, error) {
	dbc := dbctx.New(ctx)
	cart, err := s.carts.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, pkgerrors.ErrNotFound
	}
	deleted, err := s.carts.DeleteItem(dbc, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, pkgerrors.ErrNotFound
	}
	return s.reloadCart(ctx, userID)
}

func (s *commerceService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	dbc := dbctx.New(ctx)
	cart, err := s.carts.GetByUserID(dbc, userID)
	if err != nil || cart == nil {
		return err
	}
	return s.carts.ClearItems(dbc, cart.ID)
}

func (s *commerceService) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*CheckoutResult, error) {
	dbc := dbctx.New(ctx)
	cart, err := s.carts.GetByUserID(dbc, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	partnerIDs := make([]uuid.UUID, 0, len(cart.Items))
	var subtotal float64
	for _, it := range cart.Items {
		p := it.Product
		if p == nil || !p.Active {
			return nil, ErrProductUnavailable
		}
		if it.Quantity > p.StockQuantity {
			return nil, insufficientStock(p.Name, it.Quantity, p.StockQuantity)
		}
		subtotal += it.UnitPrice * float64(it.Quantity)
		partnerIDs = append(partnerIDs, p.PartnerID)
	}
	partners, err := s.partners.GetByIDs(dbc, partnerIDs)
	if err != nil {
		return nil, err
	}
	rates := make(map[uuid.UUID]float64, len(partners))
	for _, p := range partners {
		rates[p.ID] = p.CommissionRate
	}

	// TODO: compute tax and shipping once a provider is integrated.
	tax, shipping := 0.0, 0.0
	subtotal = round2(subtotal)
	order := &types.Order{
		UserID:       userID,
		Status:       types.OrderStatusPendingPayment,
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shipping,
		Total:        round2(subtotal + tax + shipping),
		Notes:        strings.TrimSpace(in.Notes),
	}
	if len(in.ShippingAddress) > 0 {
		b, err := json.Marshal(in.ShippingAddress)
		if err != nil {
			return nil, fmt.Errorf("%w: shipping address", pkgerrors.ErrInvalidArgument)
		}
		order.ShippingAddress = datatypes.JSON(b)
	}
	if err := s.createOrder(dbc, order); err != nil {
		return nil, err
	}

	items := make([]*types.OrderItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		lineTotal := round2(it.UnitPrice * float64(it.Quantity))
		rate := rates[it.Product.PartnerID]
		items = append(items, &types.OrderItem{
			OrderID:          order.ID,
			ProductID:        it.ProductID,
			PartnerID:        it.Product.PartnerID,
			ProductName:      it.Product.Name,
			Quantity:         it.Quantity,
			UnitPrice:        it.UnitPrice,
			Subtotal:         lineTotal,
			CommissionRate:   rate,
			CommissionAmount: round2(lineTotal * rate / 100),
		})
	}
	if err := s.orders.CreateItems(dbc, items); err != nil {
		if dErr := s.orders.Delete(dbctx.New(context.WithoutCancel(ctx)), order.ID); dErr != nil {
			s.log.Error("failed to roll back order", "order_id", order.ID, "error", dErr)
		}
		return nil, fmt.Errorf("create order items: %w", err)
	}
	order.Items = make([]types.OrderItem, 0, len(items))
	for _, it := range items {
		order.Items = append(order.Items, *it)
	}

	observability.Current().IncOrder(string(order.Status))
	s.log.Info("order created", "order_id", order.ID, "order_number", order.OrderNumber, "user_id", userID, "total", order.Total)
	// TODO: create a payment intent and return it here.
	return &CheckoutResult{Order: order, Payment: nil}, nil
}

func (s *commerceService) createOrder(dbc dbctx.Context, order *types.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.ID = uuid.Nil
		order.OrderNumber = newOrderNumber(s.now())
		if err = s.orders.Create(dbc, order); err == nil || !errors.Is(err, pkgerrors.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *commerceService) ConfirmOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	dbc := dbctx.New(ctx)
	order, err := s.orders.GetForUser(dbc, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != types.OrderStatusPendingPayment {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotPending, order.Status)
	}
	// TODO: verify the payment with the provider before confirming.
	ok, err := s.orders.ConfirmPending(dbc, order.ID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotPending
	}
	for _, it := range order.Items {
		if err := s.products.DecrementStock(dbc, it.ProductID, it.Quantity); err != nil {
			s.log.Warn("stock decrement failed after confirmation", "order_id", order.ID, "product_id", it.ProductID, "quantity", it.Quantity, "error", err)
		}
	}
	if err := s.ClearCart(ctx, userID); err != nil {
		s.log.Warn("failed to clear cart after confirmation", "user_id", userID, "error", err)
	}
	// TODO: notify partners and email the customer.

	confirmed, err := s.orders.GetForUser(dbc, userID, order.ID)
	if err != nil {
		return nil, err
	}
	observability.Current().IncOrder(string(confirmed.Status))
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, realtime.SSEMessage{
			Channel: realtime.UserChannel(userID),
			Event:   realtime.SSEEventOrderConfirmed,
			Data: map[string]any{
				"order_id":     confirmed.ID,
				"order_number": confirmed.OrderNumber,
				"total":        confirmed.Total,
			},
		}); err != nil {
			s.log.Warn("order confirmation publish failed", "order_id", confirmed.ID, "error", err)
		}
	}
	s.log.Info("order confirmed", "order_id", confirmed.ID, "user_id", userID)
	return confirmed, nil
}

func (s *commerceService) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*types.Order, error) {
	return s.orders.ListForUser(dbctx.New(ctx), userID, limit, offset)
}

func (s *commerceService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*types.Order, error) {
	return s.orders.GetForUser(dbctx.New(ctx), userID, orderID)
}

func newCartView(cart *types.Cart) *CartView {
	v := &CartView{Cart: cart}
	if cart.Items == nil {
		cart.Items = []types.CartItem{}
	}
	for _, it := range cart.Items {
		v.ItemCount += it.Quantity
		v.Subtotal += it.UnitPrice * float64(it.Quantity)
	}
	v.Subtotal = round2(v.Subtotal)
	return v
}

// newOrderNumber formats ORD-<yyyymmdd>-<8 hex>.
func newOrderNumber(now time.Time) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(hex))
}

func insufficientStock(name string, requested, available int) error {
	return fmt.Errorf("%w: %s (requested %d, available %d)", ErrInsufficientStock, name, requested, available)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
