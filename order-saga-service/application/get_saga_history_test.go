package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-fulfillment/order-saga-service/domain"
	"github.com/draftea/order-fulfillment/order-saga-service/mocks"
	"github.com/draftea/order-fulfillment/shared/events"
	"github.com/draftea/order-fulfillment/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetSagaHistory_Execute(t *testing.T) {
	validSagaID := "550e8400-e29b-41d4-a716-446655440031"

	testSaga, err := domain.NewOrderProcessingSaga(newTestOrder(t), time.Now().UTC())
	require.NoError(t, err)
	testSaga.ID = models.ID(validSagaID)

	history := []*events.Event{
		events.NewEvent(testSaga.ID, events.SagaExecutionRequestedEvent, nil),
		events.NewEvent(testSaga.ID, events.SagaCompletedEvent, nil),
	}

	tests := []struct {
		name           string
		query          *GetSagaQuery
		setupMocks     func(*mocks.MockSagaRepository, *mocks.MockStore)
		expectedError  string
		expectedResult []*events.Event
	}{
		{
			name:  "returns the saga events",
			query: &GetSagaQuery{SagaID: validSagaID},
			setupMocks: func(repo *mocks.MockSagaRepository, store *mocks.MockStore) {
				repo.EXPECT().FindByID(mock.Anything, testSaga.ID).Return(testSaga, nil).Once()
				store.EXPECT().GetEvents(mock.Anything, testSaga.ID).Return(history, nil).Once()
			},
			expectedResult: history,
		},
		{
			name:          "invalid saga ID format",
			query:         &GetSagaQuery{SagaID: "nope"},
			setupMocks:    func(*mocks.MockSagaRepository, *mocks.MockStore) {},
			expectedError: "invalid saga ID",
		},
		{
			name:  "saga not found",
			query: &GetSagaQuery{SagaID: validSagaID},
			setupMocks: func(repo *mocks.MockSagaRepository, store *mocks.MockStore) {
				repo.EXPECT().FindByID(mock.Anything, testSaga.ID).Return(nil, nil).Once()
			},
			expectedError: "saga not found",
		},
		{
			name:  "event store error",
			query: &GetSagaQuery{SagaID: validSagaID},
			setupMocks: func(repo *mocks.MockSagaRepository, store *mocks.MockStore) {
				repo.EXPECT().FindByID(mock.Anything, testSaga.ID).Return(testSaga, nil).Once()
				store.EXPECT().GetEvents(mock.Anything, testSaga.ID).Return(nil, errors.New("timeout")).Once()
			},
			expectedError: "failed to load saga events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockSagaRepository(t)
			store := mocks.NewMockStore(t)
			tt.setupMocks(repo, store)

			result, err := NewGetSagaHistory(repo, store).Execute(context.Background(), tt.query)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, result)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedResult, result)
		})
	}
}
