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

// PostgresSagaRepository implements SagaRepository using PostgreSQL
type PostgresSagaRepository struct {
	db *sqlx.DB
}

// NewPostgresSagaRepository creates a new PostgresSagaRepository
func NewPostgresSagaRepository(db *sqlx.DB) *PostgresSagaRepository {
	return &PostgresSagaRepository{db: db}
}

// postgresSaga represents saga in database
type postgresSaga struct {
	ID            string     `db:"id"`
	SagaType      string     `db:"saga_type"`
	AggregateID   string     `db:"aggregate_id"`
	CorrelationID string     `db:"correlation_id"`
	CurrentStep   string     `db:"current_step"`
	Status        string     `db:"status"`
	StateData     string     `db:"state_data"`
	RetryCount    int        `db:"retry_count"`
	ErrorDetails  *string    `db:"error_details"`
	CompletedAt   *time.Time `db:"completed_at"`
	FailedAt      *time.Time `db:"failed_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Create inserts a new saga
func (r *PostgresSagaRepository) Create(ctx context.Context, saga *domain.SagaRecord) error {
	query := `
		INSERT INTO sagas (
			id, saga_type, aggregate_id, correlation_id, current_step, status,
			state_data, retry_count, error_details, completed_at, failed_at,
			created_at, updated_at
		) VALUES (
			:id, :saga_type, :aggregate_id, :correlation_id, :current_step, :status,
			:state_data, :retry_count, :error_details, :completed_at, :failed_at,
			:created_at, :updated_at
		)`

	pgSaga, err := r.toPostgres(saga)
	if err != nil {
		return err
	}

	if _, err := r.db.NamedExecContext(ctx, query, pgSaga); err != nil {
		return errors.Wrap(err, "failed to insert saga")
	}

	return nil
}

// Save updates an existing saga
func (r *PostgresSagaRepository) Save(ctx context.Context, saga *domain.SagaRecord) error {
	query := `
		UPDATE sagas
		SET current_step = :current_step, status = :status, state_data = :state_data,
			retry_count = :retry_count, error_details = :error_details,
			completed_at = :completed_at, failed_at = :failed_at, updated_at = :updated_at
		WHERE id = :id`

	pgSaga, err := r.toPostgres(saga)
	if err != nil {
		return err
	}

	result, err := r.db.NamedExecContext(ctx, query, pgSaga)
	if err != nil {
		return errors.Wrap(err, "failed to update saga")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return errors.Wrapf(domain.ErrSagaNotFound, "saga %s", saga.ID)
	}

	return nil
}

// FindByID finds a saga by ID
func (r *PostgresSagaRepository) FindByID(ctx context.Context, id models.ID) (*domain.SagaRecord, error) {
	query := `
		SELECT id, saga_type, aggregate_id, correlation_id, current_step, status,
			   state_data, retry_count, error_details, completed_at, failed_at,
			   created_at, updated_at
		FROM sagas
		WHERE id = $1`

	var pgSaga postgresSaga
	err := r.db.GetContext(ctx, &pgSaga, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to find saga")
	}

	return r.toDomain(&pgSaga)
}

// toPostgres converts domain saga to postgres model
func (r *PostgresSagaRepository) toPostgres(saga *domain.SagaRecord) (*postgresSaga, error) {
	stateData, err := json.Marshal(saga.StateData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal saga state")
	}

	var errorDetails *string
	if saga.ErrorDetails != nil {
		details, err := json.Marshal(saga.ErrorDetails)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal error details")
		}
		errorDetails = nullableString(string(details))
	}

	return &postgresSaga{
		ID:            saga.ID.String(),
		SagaType:      string(saga.SagaType),
		AggregateID:   saga.AggregateID.String(),
		CorrelationID: saga.CorrelationID,
		CurrentStep:   string(saga.CurrentStep),
		Status:        string(saga.Status),
		StateData:     string(stateData),
		RetryCount:    saga.RetryCount,
		ErrorDetails:  errorDetails,
		CompletedAt:   saga.CompletedAt,
		FailedAt:      saga.FailedAt,
		CreatedAt:     saga.CreatedAt,
		UpdatedAt:     saga.UpdatedAt,
	}, nil
}

// toDomain converts postgres model to domain saga
func (r *PostgresSagaRepository) toDomain(pgSaga *postgresSaga) (*domain.SagaRecord, error) {
	id, err := models.NewID(pgSaga.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid saga ID")
	}

	aggregateID, err := models.NewID(pgSaga.AggregateID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid aggregate ID")
	}

	// a state that fails to decode is left nil and rejected by the orchestrator
	var state *domain.OrderSagaState
	if pgSaga.StateData != "" && pgSaga.StateData != "null" {
		state = &domain.OrderSagaState{}
		if err := json.Unmarshal([]byte(pgSaga.StateData), state); err != nil {
			state = nil
		}
	}

	var errorDetails *domain.ErrorDetails
	if pgSaga.ErrorDetails != nil {
		errorDetails = &domain.ErrorDetails{}
		if err := json.Unmarshal([]byte(*pgSaga.ErrorDetails), errorDetails); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal error details")
		}
	}

	return &domain.SagaRecord{
		ID:            id,
		SagaType:      domain.SagaType(pgSaga.SagaType),
		AggregateID:   aggregateID,
		CorrelationID: pgSaga.CorrelationID,
		CurrentStep:   domain.Step(pgSaga.CurrentStep),
		Status:        domain.SagaStatus(pgSaga.Status),
		StateData:     state,
		RetryCount:    pgSaga.RetryCount,
		ErrorDetails:  errorDetails,
		CompletedAt:   pgSaga.CompletedAt,
		FailedAt:      pgSaga.FailedAt,
		CreatedAt:     pgSaga.CreatedAt,
		UpdatedAt:     pgSaga.UpdatedAt,
	}, nil
}
