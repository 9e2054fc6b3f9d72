package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var _ events.Store = (*PostgresEventStore)(nil)

// PostgresEventStore implements Store on the event_stream table
type PostgresEventStore struct {
	db *sqlx.DB
}

// NewPostgresEventStore creates a new PostgresEventStore
func NewPostgresEventStore(db *sqlx.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// postgresEvent represents event in database
type postgresEvent struct {
	ID            string    `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	EventType     string    `db:"event_type"`
	Version       string    `db:"version"`
	Data          string    `db:"data"`
	Metadata      string    `db:"metadata"`
	Timestamp     time.Time `db:"timestamp"`
	CorrelationID *string   `db:"correlation_id"`
	StreamVersion int       `db:"stream_version"`
}

// Append adds the events at the end of their aggregate streams. Events already
// stored under the same id are skipped.
func (es *PostgresEventStore) Append(ctx context.Context, evts ...*events.Event) error {
	if len(evts) == 0 {
		return nil
	}

	tx, err := es.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO event_stream (
			id, aggregate_id, event_type, version, data, metadata,
			timestamp, correlation_id, stream_version
		) VALUES (
			:id, :aggregate_id, :event_type, :version, :data, :metadata,
			:timestamp, :correlation_id, :stream_version
		)
		ON CONFLICT (id) DO NOTHING`

	for _, event := range evts {
		// serializes appends to the same stream
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", event.AggregateID.String()); err != nil {
			return errors.Wrap(err, "failed to lock event stream")
		}

		var currentVersion int
		err := tx.GetContext(ctx, &currentVersion,
			"SELECT COALESCE(MAX(stream_version), 0) FROM event_stream WHERE aggregate_id = $1",
			event.AggregateID.String())
		if err != nil {
			return errors.Wrap(err, "failed to get current version")
		}

		pgEvent, err := es.toPostgres(event, currentVersion+1)
		if err != nil {
			return err
		}

		if _, err := tx.NamedExecContext(ctx, query, pgEvent); err != nil {
			return errors.Wrapf(err, "failed to insert event %s", event.EventType)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit events")
}

// GetEvents retrieves all events for an aggregate in stream order
func (es *PostgresEventStore) GetEvents(ctx context.Context, aggregateID models.ID) ([]*events.Event, error) {
	query := `
		SELECT id, aggregate_id, event_type, version, data, metadata,
			   timestamp, correlation_id, stream_version
		FROM event_stream
		WHERE aggregate_id = $1
		ORDER BY stream_version ASC`

	var pgEvents []postgresEvent
	if err := es.db.SelectContext(ctx, &pgEvents, query, aggregateID.String()); err != nil {
		return nil, errors.Wrap(err, "failed to get events")
	}

	result := make([]*events.Event, len(pgEvents))
	for i := range pgEvents {
		event, err := es.toDomain(&pgEvents[i])
		if err != nil {
			return nil, err
		}
		result[i] = event
	}

	return result, nil
}

// toPostgres converts domain event to postgres model
func (es *PostgresEventStore) toPostgres(event *events.Event, streamVersion int) (*postgresEvent, error) {
	data, err := event.MarshalPayload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event data")
	}

	metadata, err := json.Marshal(storedMetadata(event.Metadata))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal event metadata")
	}

	var correlationID *string
	if event.CorrelationID != "" {
		correlationID = &event.CorrelationID
	}

	return &postgresEvent{
		ID:            event.ID.String(),
		AggregateID:   event.AggregateID.String(),
		EventType:     event.EventType,
		Version:       event.Version,
		Data:          string(data),
		Metadata:      string(metadata),
		Timestamp:     event.Timestamp,
		CorrelationID: correlationID,
		StreamVersion: streamVersion,
	}, nil
}

// toDomain converts postgres model to domain event
func (es *PostgresEventStore) toDomain(pgEvent *postgresEvent) (*events.Event, error) {
	id, err := models.NewID(pgEvent.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event ID")
	}

	aggregateID, err := models.NewID(pgEvent.AggregateID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid aggregate ID")
	}

	metadata := make(events.Metadata)
	if err := json.Unmarshal([]byte(pgEvent.Metadata), &metadata); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal event metadata")
	}

	event := &events.Event{
		ID:          id,
		AggregateID: aggregateID,
		EventType:   pgEvent.EventType,
		Version:     pgEvent.Version,
		Data:        json.RawMessage(pgEvent.Data),
		Metadata:    metadata,
		Timestamp:   pgEvent.Timestamp,
	}
	if pgEvent.CorrelationID != nil {
		event.CorrelationID = *pgEvent.CorrelationID
	}

	return event, nil
}

// storedMetadata drops the transport keys that only make sense for one delivery
func storedMetadata(metadata events.Metadata) events.Metadata {
	clean := metadata.Clone()
	delete(clean, SQSMessageIDKey)
	delete(clean, SQSReceiptHandleKey)
	return clean
}
