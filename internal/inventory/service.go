package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Demand is one ingredient requirement against the ledger, addressed by
// (restaurant, ingredient name).
type Demand struct {
	RestaurantID uuid.UUID
	Name         string
	Quantity     decimal.Decimal
}

// LowStockAlert is raised when a deduction leaves a row at or below its
// minimum stock threshold. Alerts are collected inside the transaction but
// only surfaced to callers after it commits.
type LowStockAlert struct {
	RestaurantID uuid.UUID
	ItemID       uuid.UUID
	Name         string
	Remaining    decimal.Decimal
	MinStock     decimal.Decimal
}

// ProvisionInput creates a new ledger row.
type ProvisionInput struct {
	RestaurantID uuid.UUID
	Name         string
	Quantity     decimal.Decimal
	Unit         enums.InventoryUnit
	CostPerUnit  decimal.Decimal
	MinStock     *decimal.Decimal
	ProductRef   *string
}

// AdjustInput patches an existing ledger row. Nil fields are left untouched.
type AdjustInput struct {
	Quantity    *decimal.Decimal
	MinStock    *decimal.Decimal
	CostPerUnit *decimal.Decimal
	Unit        *enums.InventoryUnit
}

// ListParams configures pagination for ledger rows.
type ListParams struct {
	RestaurantID uuid.UUID
	Limit        int
	Cursor       string
	ActiveOnly   bool
}

// ListResult wraps returned rows and the cursor for the next page.
type ListResult struct {
	Items  []models.InventoryItem `json:"items"`
	Cursor string                 `json:"cursor"`
}

// DefaultMinStock applies when a row is provisioned without a threshold.
var DefaultMinStock = decimal.NewFromInt(5)

// Service is the stock engine over the ledger store. Deduct and Restock are
// the only paths that mutate quantities, and both run inside a single ledger
// transaction so partial consumption can never be observed.
type Service interface {
	Deduct(ctx context.Context, demands []Demand) ([]LowStockAlert, error)
	Restock(ctx context.Context, demands []Demand) error
	EnsureProvisioned(ctx context.Context, restaurantID uuid.UUID, productRef string, ingredients []models.ProductIngredient) error
	Provision(ctx context.Context, input ProvisionInput) (*models.InventoryItem, error)
	Adjust(ctx context.Context, restaurantID, itemID uuid.UUID, input AdjustInput) (*models.InventoryItem, error)
	Get(ctx context.Context, restaurantID, itemID uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	Deactivate(ctx context.Context, restaurantID, itemID uuid.UUID) error
	DeactivateForProduct(ctx context.Context, restaurantID uuid.UUID, productRef string) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the stock engine dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Deduct(ctx context.Context, demands []Demand) ([]LowStockAlert, error) {
	merged, err := mergeDemands(demands)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no ingredient demands provided")
	}

	var alerts []LowStockAlert
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, demand := range merged {
			item, err := repo.Find(ctx, demand.RestaurantID, demand.Name)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("ingredient %q not found in inventory", demand.Name))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
			}
			if !item.IsActive {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("ingredient %q not found in inventory", demand.Name))
			}
			if item.Quantity.LessThan(demand.Quantity) {
				return insufficientStock(demand.Name, item.Quantity, demand.Quantity)
			}

			ok, err := repo.DecrementQuantity(ctx, item.ID, demand.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deduct inventory item")
			}
			if !ok {
				// guard lost to a concurrent deduction
				return insufficientStock(demand.Name, item.Quantity, demand.Quantity)
			}

			// re-read after the guarded update so the threshold compares
			// against the committed quantity, not the pre-update snapshot
			updated, err := repo.FindByID(ctx, item.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory item")
			}
			if updated.Quantity.LessThanOrEqual(updated.MinStock) {
				alerts = append(alerts, LowStockAlert{
					RestaurantID: updated.RestaurantID,
					ItemID:       updated.ID,
					Name:         updated.Name,
					Remaining:    updated.Quantity,
					MinStock:     updated.MinStock,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (s *service) Restock(ctx context.Context, demands []Demand) error {
	merged, err := mergeDemands(demands)
	if err != nil {
		return err
	}
	if len(merged) == 0 {
		return nil
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, demand := range merged {
			item, err := repo.Find(ctx, demand.RestaurantID, demand.Name)
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("ingredient %q missing during restock", demand.Name))
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
			}
			if err := repo.IncrementQuantity(ctx, item.ID, demand.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock inventory item")
			}
		}
		return nil
	})
}

func (s *service) EnsureProvisioned(ctx context.Context, restaurantID uuid.UUID, productRef string, ingredients []models.ProductIngredient) error {
	if restaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	for _, ing := range ingredients {
		_, err := s.repo.Find(ctx, restaurantID, ing.Name)
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up inventory item")
		}

		ref := productRef
		item := &models.InventoryItem{
			RestaurantID: restaurantID,
			Name:         ing.Name,
			Unit:         ing.Unit,
			Quantity:     decimal.Zero,
			MinStock:     DefaultMinStock,
		}
		if ref != "" {
			item.ProductRef = &ref
		}
		if err := s.repo.Create(ctx, item); err != nil {
			// concurrent provisioning of the same ingredient is fine
			if isUniqueViolation(err) {
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "provision inventory item")
		}
	}
	return nil
}

func (s *service) Provision(ctx context.Context, input ProvisionInput) (*models.InventoryItem, error) {
	if input.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient name required")
	}
	if input.Quantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if input.Unit != "" && !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", input.Unit))
	}

	item := &models.InventoryItem{
		RestaurantID: input.RestaurantID,
		Name:         input.Name,
		Quantity:     input.Quantity,
		Unit:         input.Unit,
		CostPerUnit:  input.CostPerUnit,
		MinStock:     DefaultMinStock,
		ProductRef:   input.ProductRef,
	}
	if item.Unit == "" {
		item.Unit = enums.UnitPiece
	}
	if input.MinStock != nil {
		item.MinStock = *input.MinStock
	}

	if err := s.repo.Create(ctx, item); err != nil {
		if isUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("ingredient %q already exists", input.Name))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}
	return item, nil
}

func (s *service) Adjust(ctx context.Context, restaurantID, itemID uuid.UUID, input AdjustInput) (*models.InventoryItem, error) {
	item, err := s.ownedItem(ctx, restaurantID, itemID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Quantity != nil {
		if input.Quantity.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
		}
		updates["quantity"] = *input.Quantity
	}
	if input.MinStock != nil {
		if input.MinStock.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "min stock must not be negative")
		}
		updates["min_stock"] = *input.MinStock
	}
	if input.CostPerUnit != nil {
		updates["cost_per_unit"] = *input.CostPerUnit
	}
	if input.Unit != nil {
		if !input.Unit.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit %q", *input.Unit))
		}
		updates["unit"] = *input.Unit
	}
	if len(updates) == 0 {
		return item, nil
	}

	if err := s.repo.UpdateColumns(ctx, item.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust inventory item")
	}
	return s.repo.FindByID(ctx, item.ID)
}

func (s *service) Get(ctx context.Context, restaurantID, itemID uuid.UUID) (*models.InventoryItem, error) {
	return s.ownedItem(ctx, restaurantID, itemID)
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}

	query := listItemsParams{
		RestaurantID: params.RestaurantID,
		Limit:        params.Limit,
		ActiveOnly:   params.ActiveOnly,
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) Deactivate(ctx context.Context, restaurantID, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, restaurantID, itemID)
	if err != nil {
		return err
	}
	ok, err := s.repo.Deactivate(ctx, item.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate inventory item")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "inventory item already inactive")
	}
	return nil
}

func (s *service) DeactivateForProduct(ctx context.Context, restaurantID uuid.UUID, productRef string) error {
	if productRef == "" {
		return nil
	}
	if _, err := s.repo.DeactivateByProductRef(ctx, restaurantID, productRef); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product inventory")
	}
	return nil
}

func (s *service) ownedItem(ctx context.Context, restaurantID, itemID uuid.UUID) (*models.InventoryItem, error) {
	if restaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory item id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	if item.RestaurantID != restaurantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return item, nil
}

func insufficientStock(name string, available, required decimal.Decimal) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("insufficient stock for %q", name)).
		WithDetails(map[string]any{
			"ingredient": name,
			"available":  available.String(),
			"required":   required.String(),
		})
}

func mergeDemands(demands []Demand) ([]Demand, error) {
	type key struct {
		restaurant uuid.UUID
		name       string
	}
	merged := make([]Demand, 0, len(demands))
	index := map[key]int{}
	for _, d := range demands {
		if d.RestaurantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required on demand")
		}
		if d.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient name required on demand")
		}
		if !d.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("demand for %q must be positive", d.Name))
		}
		k := key{restaurant: d.RestaurantID, name: d.Name}
		if i, ok := index[k]; ok {
			merged[i].Quantity = merged[i].Quantity.Add(d.Quantity)
			continue
		}
		index[k] = len(merged)
		merged = append(merged, d)
	}
	return merged, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	// sqlite (tests) and postgres word the violation differently
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
