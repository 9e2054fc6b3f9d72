package infrastructure

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrConcurrentOrderUpdate is returned when the stored order moved past the version being saved
var ErrConcurrentOrderUpdate = errors.New("order was modified concurrently")

// PostgresOrderRepository implements OrderRepository using PostgreSQL
type PostgresOrderRepository struct {
	db *sqlx.DB
}

// NewPostgresOrderRepository creates a new PostgresOrderRepository
func NewPostgresOrderRepository(db *sqlx.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

// postgresOrder represents order in database
type postgresOrder struct {
	ID                 string     `db:"id"`
	UserID             string     `db:"user_id"`
	Items              string     `db:"items"`
	TotalAmount        int64      `db:"total_amount"`
	Currency           string     `db:"currency"`
	PaymentMethod      string     `db:"payment_method"`
	Status             string     `db:"status"`
	PaymentID          *string    `db:"payment_id"`
	CancellationReason *string    `db:"cancellation_reason"`
	ConfirmedAt        *time.Time `db:"confirmed_at"`
	CancelledAt        *time.Time `db:"cancelled_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	Version            int        `db:"version"`
}

// Save inserts the order, or updates it when the stored version is older.
// Saving the version already stored is a no-op.
func (r *PostgresOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, items, total_amount, currency, payment_method, status,
			payment_id, cancellation_reason, confirmed_at, cancelled_at,
			created_at, updated_at, version
		) VALUES (
			:id, :user_id, :items, :total_amount, :currency, :payment_method, :status,
			:payment_id, :cancellation_reason, :confirmed_at, :cancelled_at,
			:created_at, :updated_at, :version
		)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status, payment_id = EXCLUDED.payment_id,
			cancellation_reason = EXCLUDED.cancellation_reason,
			confirmed_at = EXCLUDED.confirmed_at, cancelled_at = EXCLUDED.cancelled_at,
			updated_at = EXCLUDED.updated_at, version = EXCLUDED.version
		WHERE orders.version < EXCLUDED.version`

	pgOrder, err := r.toPostgres(order)
	if err != nil {
		return err
	}

	result, err := r.db.NamedExecContext(ctx, query, pgOrder)
	if err != nil {
		return errors.Wrap(err, "failed to save order")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return r.checkUnchanged(ctx, order)
	}

	return nil
}

// checkUnchanged accepts re-saving an order at the version already stored
func (r *PostgresOrderRepository) checkUnchanged(ctx context.Context, order *domain.Order) error {
	var stored int
	err := r.db.GetContext(ctx, &stored, "SELECT version FROM orders WHERE id = $1", order.ID.String())
	if err != nil {
		return errors.Wrap(err, "failed to read order version")
	}
	if stored != order.Version.Value {
		return errors.Wrapf(ErrConcurrentOrderUpdate, "order %s: stored version %d, saving %d",
			order.ID, stored, order.Version.Value)
	}
	return nil
}

// FindByID finds an order by ID
func (r *PostgresOrderRepository) FindByID(ctx context.Context, id models.ID) (*domain.Order, error) {
	query := `
		SELECT id, user_id, items, total_amount, currency, payment_method, status,
			   payment_id, cancellation_reason, confirmed_at, cancelled_at,
			   created_at, updated_at, version
		FROM orders
		WHERE id = $1`

	var pgOrder postgresOrder
	err := r.db.GetContext(ctx, &pgOrder, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find order")
	}

	return r.toDomain(&pgOrder)
}

// toPostgres converts domain order to postgres model
func (r *PostgresOrderRepository) toPostgres(order *domain.Order) (*postgresOrder, error) {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal order items")
	}

	return &postgresOrder{
		ID:                 order.ID.String(),
		UserID:             order.UserID.String(),
		Items:              string(items),
		TotalAmount:        order.TotalAmount.Amount,
		Currency:           order.TotalAmount.Currency,
		PaymentMethod:      order.PaymentMethod,
		Status:             string(order.Status),
		PaymentID:          nullableString(order.PaymentID),
		CancellationReason: nullableString(order.CancellationReason),
		ConfirmedAt:        order.ConfirmedAt,
		CancelledAt:        order.CancelledAt,
		CreatedAt:          order.Timestamps.CreatedAt,
		UpdatedAt:          order.Timestamps.UpdatedAt,
		Version:            order.Version.Value,
	}, nil
}

// toDomain converts postgres model to domain order
func (r *PostgresOrderRepository) toDomain(pgOrder *postgresOrder) (*domain.Order, error) {
	id, err := models.NewID(pgOrder.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid order ID")
	}

	userID, err := models.NewID(pgOrder.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid user ID")
	}

	var items []domain.OrderItem
	if err := json.Unmarshal([]byte(pgOrder.Items), &items); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal order items")
	}

	order := &domain.Order{
		ID:            id,
		UserID:        userID,
		Items:         items,
		TotalAmount:   models.NewMoney(pgOrder.TotalAmount, pgOrder.Currency),
		PaymentMethod: pgOrder.PaymentMethod,
		Status:        domain.OrderStatus(pgOrder.Status),
		ConfirmedAt:   pgOrder.ConfirmedAt,
		CancelledAt:   pgOrder.CancelledAt,
		Timestamps: models.Timestamps{
			CreatedAt: pgOrder.CreatedAt,
			UpdatedAt: pgOrder.UpdatedAt,
		},
		Version: models.Version{Value: pgOrder.Version},
	}
	if pgOrder.PaymentID != nil {
		order.PaymentID = *pgOrder.PaymentID
	}
	if pgOrder.CancellationReason != nil {
		order.CancellationReason = *pgOrder.CancellationReason
	}

	return order, nil
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
