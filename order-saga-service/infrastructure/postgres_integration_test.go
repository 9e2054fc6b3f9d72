//go:build integration

package infrastructure

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// getTestDB connects to DATABASE_URL and applies the migrations
func getTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, Migrate(context.Background(), db, zap.NewNop()))
	return db
}

func TestPostgresSagaRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresSagaRepository(getTestDB(t))
	saga := newStoredSaga(t)
	saga.CreatedAt = saga.CreatedAt.Truncate(time.Microsecond)
	saga.UpdatedAt = saga.CreatedAt

	assert.ErrorIs(t, repo.Save(ctx, saga), domain.ErrSagaNotFound)
	require.NoError(t, repo.Create(ctx, saga))

	now := time.Now().UTC().Truncate(time.Microsecond)
	saga.StateData.ReservationID = "res-1"
	require.NoError(t, saga.AdvanceTo(domain.StepStockReserved, now))
	require.NoError(t, saga.Fail(domain.ErrorDetails{Message: "boom", Code: "UNEXPECTED", OccurredAt: now}, now))
	require.NoError(t, repo.Save(ctx, saga))

	stored, err := repo.FindByID(ctx, saga.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.SagaStatusFailed, stored.Status)
	assert.Equal(t, domain.StepStockReserved, stored.CurrentStep)
	assert.Equal(t, "res-1", stored.StateData.ReservationID)
	require.NotNil(t, stored.ErrorDetails)
	assert.Equal(t, "UNEXPECTED", stored.ErrorDetails.Code)

	missing, err := repo.FindByID(ctx, models.GenerateUUID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostgresOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresOrderRepository(getTestDB(t))

	order, err := domain.CreateOrder(models.GenerateUUID(), []domain.OrderItem{
		{ProductID: "P1", Quantity: 2, Price: models.NewMoney(50, "USD")},
	}, "USD", "credit_card")
	require.NoError(t, err)

	require.NoError(t, repo.Save(ctx, order))

	stale := *order
	require.NoError(t, order.Confirm("pay-1"))
	require.NoError(t, repo.Save(ctx, order))

	// confirming again does not bump the version
	require.NoError(t, order.Confirm("pay-1"))
	require.NoError(t, repo.Save(ctx, order))

	assert.ErrorIs(t, repo.Save(ctx, &stale), ErrConcurrentOrderUpdate)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, "pay-1", stored.PaymentID)
	assert.Equal(t, 2, stored.Version.Value)
	assert.Equal(t, order.Items, stored.Items)
}

func TestRedisSagaRepository(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping integration test")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewRedisSagaRepository(client, time.Minute)
	saga := newStoredSaga(t)

	assert.ErrorIs(t, repo.Save(ctx, saga), domain.ErrSagaNotFound)
	require.NoError(t, repo.Create(ctx, saga))
	assert.Error(t, repo.Create(ctx, saga))

	require.NoError(t, saga.AdvanceTo(domain.StepStockVerified, time.Now().UTC()))
	require.NoError(t, repo.Save(ctx, saga))

	stored, err := repo.FindByID(ctx, saga.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StepStockVerified, stored.CurrentStep)

	missing, err := repo.FindByID(ctx, models.GenerateUUID())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
