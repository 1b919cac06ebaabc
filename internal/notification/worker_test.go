package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dispenser-tracker-backend/internal/model"
	"dispenser-tracker-backend/internal/store"
	"dispenser-tracker-backend/internal/testsupport"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func newMockStore(t *testing.T) (store.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return store.NewGormStore(gormDB), mock
}

func TestAlertMessage(t *testing.T) {
	assert.Equal(t, "Dispenser LOBBY-1 (Lobby) is projected to run out in 1.5 days",
		Alert{UniqueCode: "LOBBY-1", Location: "Lobby", DaysUntilEmpty: 1.5}.Message())
	assert.Equal(t, "Dispenser abc is projected to be empty", Alert{DispenserID: "abc"}.Message())
}

func TestWorkerPool_Dispatch(t *testing.T) {
	s, _ := newMockStore(t)
	wp := NewWorkerPool(1, s, &webpush.Options{}, zap.NewNop())

	require.NoError(t, wp.Dispatch(context.Background(), Alert{DispenserID: "d1"}))

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "d1", job.DispenserID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}

	// queue of one is now refilled; a cancelled context gives up
	require.NoError(t, wp.Dispatch(context.Background(), Alert{DispenserID: "d2"}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, wp.Dispatch(ctx, Alert{DispenserID: "d3"}), context.Canceled)
}

func TestWorkerPool_SendsToSubscribers(t *testing.T) {
	s, mock := newMockStore(t)
	wp := NewWorkerPool(1, s, &webpush.Options{TTL: 60}, zap.NewNop())

	var wg sync.WaitGroup
	wg.Add(1)
	wp.sender = &mockSender{
		SendFunc: func(body []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			defer wg.Done()
			assert.Equal(t, "https://example.com/push", sub.Endpoint)
			assert.Equal(t, "test_p256dh", sub.Keys.P256dh)
			assert.Equal(t, 60, options.TTL)

			var p payload
			assert.NoError(t, json.Unmarshal(body, &p))
			assert.Equal(t, "d-101", p.DispenserID)
			assert.Equal(t, "Dispenser LOBBY-1 is projected to run out in 2.0 days", p.Body)
			return response(http.StatusCreated), nil
		},
	}

	mock.ExpectQuery(`SELECT .* FROM "push_subscriptions".*JOIN subscription_dispenser_mapping.*WHERE m\.machine_instance_id = \$1`).
		WithArgs("d-101").
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "created_at"}).
			AddRow("https://example.com/push", "test_p256dh", "test_auth", time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	require.NoError(t, wp.Dispatch(ctx, Alert{DispenserID: "d-101", UniqueCode: "LOBBY-1", DaysUntilEmpty: 2}))
	wg.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	db := testsupport.OpenDB(t)
	s := store.NewGormStore(db)
	ctx := context.Background()

	inst := &model.MachineInstance{ID: "d-1", UniqueCode: "C-1", RefillCapacityML: 100, Status: model.StatusInstalled}
	require.NoError(t, s.CreateInstance(ctx, inst))
	require.NoError(t, s.SaveSubscription(ctx, &model.PushSubscription{Endpoint: "https://gone", P256DH: "k", Auth: "a"}, []string{"d-1"}))
	require.NoError(t, s.SaveSubscription(ctx, &model.PushSubscription{Endpoint: "https://alive", P256DH: "k", Auth: "a"}, []string{"d-1"}))

	wp := NewWorkerPool(1, s, &webpush.Options{}, zap.NewNop())
	var mu sync.Mutex
	var sent []string
	wp.sender = &mockSender{
		SendFunc: func(_ []byte, sub *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
			mu.Lock()
			sent = append(sent, sub.Endpoint)
			mu.Unlock()
			switch sub.Endpoint {
			case "https://gone":
				return response(http.StatusGone), nil
			default:
				return nil, errors.New("network down")
			}
		},
	}

	// run synchronously so the deletion is observable without sleeping
	wp.sendAlert(ctx, Alert{DispenserID: "d-1"})

	assert.ElementsMatch(t, []string{"https://gone", "https://alive"}, sent)

	_, err := s.GetSubscription(ctx, "https://gone")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetSubscription(ctx, "https://alive")
	assert.NoError(t, err)
}
