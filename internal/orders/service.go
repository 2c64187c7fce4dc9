package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ecujcuj-2024028/Restaurant-ejemplo/internal/inventory"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/db/models"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/enums"
	pkgerrors "github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/errors"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/logger"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/metrics"
	"github.com/ecujcuj-2024028/Restaurant-ejemplo/pkg/pagination"
)

// StockEngine is the ledger-side surface the order saga drives. Deduct runs
// before the order row is written; Restock is the compensating action.
type StockEngine interface {
	Deduct(ctx context.Context, demands []inventory.Demand) ([]inventory.LowStockAlert, error)
	Restock(ctx context.Context, demands []inventory.Demand) error
}

// ProductCatalog resolves order lines against the menu.
type ProductCatalog interface {
	FindActive(ctx context.Context, restaurantID, productID uuid.UUID) (*models.Product, error)
}

// Notifier receives order lifecycle events. Dispatch must never block or fail
// the order path.
type Notifier interface {
	LowStock(ctx context.Context, alert inventory.LowStockAlert)
	InvoiceGenerated(ctx context.Context, order *models.Order, invoiceNumber string)
}

// CreateItemInput is one requested order line.
type CreateItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput places a new order.
type CreateInput struct {
	RestaurantID uuid.UUID
	UserID       uuid.UUID
	TableNumber  *int
	Items        []CreateItemInput
	Notes        *string
}

// Invoice is the one-shot billing document derived from a delivered order.
type Invoice struct {
	Number     string            `json:"number"`
	OrderID    uuid.UUID         `json:"orderId"`
	Items      models.OrderItems `json:"items"`
	TotalCents int               `json:"totalCents"`
}

// ListParams filters orders.
type ListParams struct {
	RestaurantID uuid.UUID
	UserID       uuid.UUID
	Status       *enums.OrderStatus
	Limit        int
	Cursor       string
}

// ListResult wraps returned rows and the cursor for the next page.
type ListResult struct {
	Orders []models.Order `json:"orders"`
	Cursor string         `json:"cursor"`
}

// Service runs the order lifecycle across both stores. Creation deducts the
// ledger first and writes the catalog row second; when the second write fails
// the deduction is compensated with a restock. Cancellation runs the same
// pair in reverse.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error)
	Cancel(ctx context.Context, orderID, actorID uuid.UUID, role enums.UserRole) (*models.Order, error)
	GenerateInvoice(ctx context.Context, orderID uuid.UUID) (*Invoice, error)
	ListByRestaurant(ctx context.Context, params ListParams) (*ListResult, error)
	ListByUser(ctx context.Context, params ListParams) (*ListResult, error)
}

type service struct {
	repo     Repository
	stock    StockEngine
	catalog  ProductCatalog
	notifier Notifier
	saga     *metrics.SagaMetrics
	logg     *logger.Logger
}

// NewService wires the order service dependencies.
func NewService(repo Repository, stock StockEngine, catalog ProductCatalog, notifier Notifier, saga *metrics.SagaMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock engine required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("product catalog required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, stock: stock, catalog: catalog, notifier: notifier, saga: saga, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	items := make(models.OrderItems, 0, len(input.Items))
	total := 0
	for _, line := range input.Items {
		product, err := s.catalog.FindActive(ctx, input.RestaurantID, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsAvailable {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("product %q is not available", product.Name))
		}
		subtotal := product.PriceCents * line.Quantity
		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			Name:           product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: product.PriceCents,
			SubtotalCents:  subtotal,
			Ingredients:    product.Ingredients,
		})
		total += subtotal
	}

	demands := demandsFor(input.RestaurantID, items)
	alerts, err := s.stock.Deduct(ctx, demands)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		RestaurantID: input.RestaurantID,
		UserID:       input.UserID,
		TableNumber:  input.TableNumber,
		Items:        items,
		TotalCents:   total,
		Status:       enums.OrderStatusReceived,
		Notes:        input.Notes,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		// compensate the deduction so the ledger does not leak stock
		restockErr := s.stock.Restock(ctx, demands)
		s.saga.IncCompensation("order_create", restockErr == nil)
		if restockErr != nil {
			s.logg.Error(ctx, "order create compensation failed", restockErr)
			err = multierr.Append(err, restockErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	for _, alert := range alerts {
		s.notifier.LowStock(ctx, alert)
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.findOrder(ctx, orderID)
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", target))
	}
	if target == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the cancel operation to cancel an order")
	}

	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status))
	}
	if !order.Status.CanAdvanceTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot move order from %s to %s", order.Status, target)).
			WithDetails(map[string]any{"from": order.Status, "to": target})
	}

	ok, err := s.repo.UpdateStatus(ctx, order.ID, order.Status, target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}
	order.Status = target
	return order, nil
}

func (s *service) Cancel(ctx context.Context, orderID, actorID uuid.UUID, role enums.UserRole) (*models.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if role == enums.RoleCustomer && order.UserID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if !order.Status.IsCancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is already %s", order.Status))
	}

	// restock first so a cancelled order can never keep stock consumed
	demands := demandsFor(order.RestaurantID, order.Items)
	if err := s.stock.Restock(ctx, demands); err != nil {
		return nil, err
	}

	ok, err := s.repo.CancelFromActive(ctx, order.ID)
	if err == nil && !ok {
		err = pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer cancellable")
	}
	if err != nil {
		// the flip lost, take the stock back out
		deductErr := func() error {
			_, e := s.stock.Deduct(ctx, demands)
			return e
		}()
		s.saga.IncCompensation("order_cancel", deductErr == nil)
		if deductErr != nil {
			s.logg.Error(ctx, "order cancel compensation failed", deductErr)
			return nil, multierr.Append(err, deductErr)
		}
		return nil, err
	}

	order.Status = enums.OrderStatusCancelled
	return order, nil
}

func (s *service) GenerateInvoice(ctx context.Context, orderID uuid.UUID) (*Invoice, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("invoice requires a delivered order, status is %s", order.Status))
	}

	ok, err := s.repo.MarkInvoiced(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order invoiced")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invoice already generated for this order")
	}

	invoice := &Invoice{
		Number:     invoiceNumber(order.ID),
		OrderID:    order.ID,
		Items:      order.Items,
		TotalCents: order.TotalCents,
	}
	s.notifier.InvoiceGenerated(ctx, order, invoice.Number)
	return invoice, nil
}

func (s *service) ListByRestaurant(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	query, err := buildListParams(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByRestaurant(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return listResult(rows, next), nil
}

func (s *service) ListByUser(ctx context.Context, params ListParams) (*ListResult, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	query, err := buildListParams(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByUser(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return listResult(rows, next), nil
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// invoiceNumber derives the one-shot invoice identifier from the order id:
// the INV- prefix plus the last eight hex characters uppercased.
func invoiceNumber(orderID uuid.UUID) string {
	hex := strings.ReplaceAll(orderID.String(), "-", "")
	return "INV-" + strings.ToUpper(hex[len(hex)-8:])
}

// demandsFor expands the frozen line snapshots into ledger demands. Per-unit
// ingredient quantities are multiplied by the line quantity, so the same
// demands reproduce exactly on cancellation.
func demandsFor(restaurantID uuid.UUID, items models.OrderItems) []inventory.Demand {
	var demands []inventory.Demand
	for _, item := range items {
		for _, ing := range item.Ingredients {
			demands = append(demands, inventory.Demand{
				RestaurantID: restaurantID,
				Name:         ing.Name,
				Quantity:     ing.Quantity.Mul(decimal.NewFromInt(int64(item.Quantity))),
			})
		}
	}
	return demands
}

func validateCreate(input CreateInput) error {
	if input.RestaurantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required on every item")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
	}
	if input.TableNumber != nil && *input.TableNumber <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "table number must be positive")
	}
	return nil
}

func buildListParams(params ListParams) (listParams, error) {
	query := listParams{
		RestaurantID: params.RestaurantID,
		UserID:       params.UserID,
		Status:       params.Status,
		Limit:        params.Limit,
	}
	if params.Status != nil && !params.Status.IsValid() {
		return listParams{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *params.Status))
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return listParams{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func listResult(rows []models.Order, next *pagination.Cursor) *ListResult {
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Orders: rows, Cursor: cursor}
}
