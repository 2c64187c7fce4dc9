package products

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pagination"
)

// Provisioner keeps the ledger aware of recipe ingredients. New menu items
// get zero-quantity ledger rows so stock can be received against them before
// the first order arrives.
type Provisioner interface {
	EnsureProvisioned(ctx context.Context, restaurantID uuid.UUID, productRef string, ingredients []models.ProductIngredient) error
	DeactivateForProduct(ctx context.Context, restaurantID uuid.UUID, productRef string) error
}

// CreateInput registers a menu product.
type CreateInput struct {
	RestaurantID uuid.UUID
	Name         string
	Description  *string
	PriceCents   int
	Ingredients  models.ProductIngredients
}

// UpdateInput patches a menu product. Nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	PriceCents  *int
	IsAvailable *bool
}

// ListParams configures pagination for menu products.
type ListParams struct {
	RestaurantID  uuid.UUID
	AvailableOnly bool
	Limit         int
	Cursor        string
}

// ListResult wraps returned rows and the cursor for the next page.
type ListResult struct {
	Products []models.Product `json:"products"`
	Cursor   string           `json:"cursor"`
}

// Service manages the menu side of the catalog store.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, restaurantID, productID uuid.UUID, input UpdateInput) (*models.Product, error)
	Get(ctx context.Context, restaurantID, productID uuid.UUID) (*models.Product, error)
	FindActive(ctx context.Context, restaurantID, productID uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Deactivate(ctx context.Context, restaurantID, productID uuid.UUID) error
}

type service struct {
	repo        Repository
	provisioner Provisioner
}

// NewService wires the product service dependencies.
func NewService(repo Repository, provisioner Provisioner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if provisioner == nil {
		return nil, fmt.Errorf("ingredient provisioner required")
	}
	return &service{repo: repo, provisioner: provisioner}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	restaurant, err := s.repo.FindRestaurant(ctx, input.RestaurantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant")
	}
	if !restaurant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
	}

	product := &models.Product{
		RestaurantID: input.RestaurantID,
		Name:         input.Name,
		Description:  input.Description,
		PriceCents:   input.PriceCents,
		Ingredients:  input.Ingredients,
		IsAvailable:  true,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	if err := s.provisioner.EnsureProvisioned(ctx, input.RestaurantID, product.ID.String(), input.Ingredients); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, restaurantID, productID uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, restaurantID, productID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name must not be empty")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		updates["price_cents"] = *input.PriceCents
	}
	if input.IsAvailable != nil {
		updates["is_available"] = *input.IsAvailable
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.repo.UpdateColumns(ctx, product.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.repo.FindByID(ctx, product.ID)
}

func (s *service) Get(ctx context.Context, restaurantID, productID uuid.UUID) (*models.Product, error) {
	return s.ownedProduct(ctx, restaurantID, productID)
}

// FindActive resolves an order line. Inactive products are indistinguishable
// from missing ones.
func (s *service) FindActive(ctx context.Context, restaurantID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, restaurantID, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}

	query := listParams{
		RestaurantID:  params.RestaurantID,
		AvailableOnly: params.AvailableOnly,
		Limit:         params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Products: rows, Cursor: cursor}, nil
}

func (s *service) Deactivate(ctx context.Context, restaurantID, productID uuid.UUID) error {
	product, err := s.ownedProduct(ctx, restaurantID, productID)
	if err != nil {
		return err
	}
	ok, err := s.repo.Deactivate(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "product already inactive")
	}

	// retire ledger rows that only existed for this recipe
	return s.provisioner.DeactivateForProduct(ctx, restaurantID, product.ID.String())
}

func (s *service) ownedProduct(ctx context.Context, restaurantID, productID uuid.UUID) (*models.Product, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.RestaurantID != restaurantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func validateCreate(input CreateInput) error {
	if input.RestaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	for _, ing := range input.Ingredients {
		if ing.Name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "ingredient name required")
		}
		if !ing.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("ingredient %q quantity must be positive", ing.Name))
		}
		if ing.Unit != "" && !ing.Unit.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", ing.Unit))
		}
	}
	return nil
}
