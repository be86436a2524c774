package services

import (
	"context"
	"fmt"

	apperrors "github.com/dimz119/project-saeum/common/errors"
	"github.com/dimz119/project-saeum/models"
	"github.com/dimz119/project-saeum/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxCartQuantity = 99

type CartService struct {
	store  *repository.Store
	logger *zap.Logger
}

func NewCartService(store *repository.Store, logger *zap.Logger) *CartService {
	return &CartService{store: store, logger: logger}
}

// GetCart returns the user's cart priced at current prices. A user without a
// cart gets an empty one.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.CartView, error) {
	cart, err := s.store.Carts.FindByUser(ctx, userID)
	if repository.IsNotFound(err) {
		return &models.CartView{Items: []models.CartLineView{}}, nil
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}
	return models.NewCartView(cart), nil
}

// AddItem adds quantity of a product, accumulating onto an existing line.
func (s *CartService) AddItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.CartView, error) {
	cart, err := s.store.Carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}

	total := quantity
	existing, err := s.store.Carts.FindItem(ctx, cart.ID, productID)
	switch {
	case err == nil:
		total += existing.Quantity
	case !repository.IsNotFound(err):
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}

	if err := s.setQuantity(ctx, cart.ID, productID, total); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// UpdateItem overwrites the quantity of a line already in the cart.
func (s *CartService) UpdateItem(ctx context.Context, userID string, productID uuid.UUID, quantity int) (*models.CartView, error) {
	cart, err := s.store.Carts.FindByUser(ctx, userID)
	if repository.IsNotFound(err) {
		return nil, apperrors.NotFound("Item not in cart")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}
	if _, err := s.store.Carts.FindItem(ctx, cart.ID, productID); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("Item not in cart")
		}
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}

	if err := s.setQuantity(ctx, cart.ID, productID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID string, productID uuid.UUID) (*models.CartView, error) {
	cart, err := s.store.Carts.FindByUser(ctx, userID)
	if repository.IsNotFound(err) {
		return nil, apperrors.NotFound("Item not in cart")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch cart", err)
	}
	if err := s.store.Carts.RemoveItem(ctx, cart.ID, productID); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("Item not in cart")
		}
		return nil, apperrors.Internal("Failed to remove item", err)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	cart, err := s.store.Carts.FindByUser(ctx, userID)
	if repository.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return apperrors.Internal("Failed to fetch cart", err)
	}
	if err := s.store.Carts.Clear(ctx, cart.ID); err != nil {
		return apperrors.Internal("Failed to clear cart", err)
	}
	s.logger.Info("Cart cleared", zap.String("user_id", userID))
	return nil
}

// setQuantity checks the product can be sold in that quantity and stores it.
func (s *CartService) setQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) error {
	if quantity < 1 || quantity > maxCartQuantity {
		return apperrors.BadRequest(fmt.Sprintf("Quantity must be between 1 and %d", maxCartQuantity))
	}
	product, err := s.store.Products.FindByID(ctx, productID)
	if repository.IsNotFound(err) {
		return apperrors.ErrProductNotFound
	}
	if err != nil {
		return apperrors.Internal("Failed to fetch product", err)
	}
	if !product.IsActive {
		return apperrors.BadRequest(fmt.Sprintf("%s is not available", product.Name))
	}
	if product.Stock < quantity {
		return apperrors.ErrInsufficientStock.WithMessage(
			fmt.Sprintf("Insufficient stock for %s (available: %d)", product.Name, product.Stock), nil)
	}
	if err := s.store.Carts.SetItem(ctx, cartID, productID, quantity); err != nil {
		return apperrors.Internal("Failed to update cart", err)
	}
	return nil
}
