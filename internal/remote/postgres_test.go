package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/givemewater/internal/model"
)

var ts = time.Date(2026, 10, 15, 8, 30, 0, 0, time.UTC)

func testEvent() model.HydrationEvent {
	return model.HydrationEvent{
		EventID:           "e1",
		UserID:            "u1",
		Timestamp:         ts,
		EffectiveDayKey:   "2026-10-15",
		DrinkID:           "coffee",
		RawAmountML:       250,
		HydrationAmountML: 150,
		Source:            model.SourceManual,
	}
}

func TestPostgres_UpsertEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   model.HydrationEvent
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name:  "success",
			event: testEvent(),
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO hydration_events .* ON CONFLICT \(event_id\) DO UPDATE`).
					WithArgs("e1", "u1", ts, "2026-10-15", "coffee", 250, 150, "manual").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name:  "connection failure is transient",
			event: testEvent(),
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO hydration_events`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "08006"})
			},
			wantErr: ErrTransient,
		},
		{
			name:  "rls rejection is unauthorized",
			event: testEvent(),
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO hydration_events`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: "42501"})
			},
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setup(mock)

			err := store.UpsertEvent(context.Background(), tt.event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_UpsertEventRequiresUser(t *testing.T) {
	store, mock := newMockStore(t)

	ev := testEvent()
	ev.UserID = ""
	err := store.UpsertEvent(context.Background(), ev)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement should be sent")
}

func TestPostgres_QueryEventsForUser(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows(eventColumns).
		AddRow("e2", "u1", ts.Add(time.Hour), "2026-10-15", "water", 300, 300, strPtr("push_action")).
		AddRow("e1", "u1", ts, "2026-10-15", "coffee", 250, 150, (*string)(nil))
	mock.ExpectQuery(`SELECT .* FROM hydration_events WHERE user_id = \$1 ORDER BY timestamp_utc DESC LIMIT 1500`).
		WithArgs("u1").
		WillReturnRows(rows)

	events, err := store.QueryEventsForUser(context.Background(), "u1", 1500)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "e2", events[0].EventID)
	assert.Equal(t, model.SourcePushAction, events[0].Source)
	assert.Equal(t, model.SourceSync, events[1].Source, "missing source defaults to sync")
	assert.Equal(t, 150, events[1].HydrationAmountML)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryEventsForUserError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT`).
		WithArgs("u1").
		WillReturnError(context.DeadlineExceeded)

	_, err := store.QueryEventsForUser(context.Background(), "u1", 10)
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPostgres_QuerySummariesForUser(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows(summaryColumns).
		AddRow("2026-09", 1800, 30, 20, 67, ts).
		AddRow("2026-08", 1500, 31, 10, 32, ts)
	mock.ExpectQuery(`SELECT .* FROM monthly_summaries WHERE user_id = \$1 ORDER BY month_key DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	summaries, err := store.QuerySummariesForUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, model.MonthlySummary{
		MonthKey: "2026-09", AverageIntakeML: 1800, DaysTracked: 30, DaysMetGoal: 20, CompletionRate: 67, CreatedAt: ts,
	}, summaries[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertSummary(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO monthly_summaries .* ON CONFLICT \(user_id, month_key\) DO UPDATE`).
		WithArgs("u1", "2026-09", 1800, 30, 20, 67).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertSummary(context.Background(), "u1", model.MonthlySummary{
		MonthKey: "2026-09", AverageIntakeML: 1800, DaysTracked: 30, DaysMetGoal: 20, CompletionRate: 67,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteEventsInMonth(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM hydration_events WHERE user_id = \$1 AND effective_day_key LIKE \$2`).
		WithArgs("u1", "2026-09-%").
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	require.NoError(t, store.DeleteEventsInMonth(context.Background(), "u1", "2026-09"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_QueryEventsInMonth(t *testing.T) {
	store, mock := newMockStore(t)

	rows := pgxmock.NewRows(eventColumns).
		AddRow("e1", "u1", ts, "2026-09-30", "water", 500, 500, strPtr("manual"))
	mock.ExpectQuery(`SELECT .* FROM hydration_events WHERE user_id = \$1 AND effective_day_key LIKE \$2`).
		WithArgs("u1", "2026-09-%").
		WillReturnRows(rows)

	events, err := store.QueryEventsInMonth(context.Background(), "u1", "2026-09")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2026-09-30", events[0].EffectiveDayKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_DeleteAllForUser(t *testing.T) {
	t.Run("all tables cleared", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.MatchExpectationsInOrder(false)
		for _, table := range UserTables {
			mock.ExpectExec(`DELETE FROM ` + table + ` WHERE user_id = \$1`).
				WithArgs("u1").
				WillReturnResult(pgxmock.NewResult("DELETE", 1))
		}

		require.NoError(t, store.DeleteAllForUser(context.Background(), "u1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failures are joined", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.MatchExpectationsInOrder(false)
		mock.ExpectExec(`DELETE FROM hydration_events`).
			WithArgs("u1").
			WillReturnError(errors.New("events down"))
		mock.ExpectExec(`DELETE FROM monthly_summaries`).
			WithArgs("u1").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(`DELETE FROM push_subscriptions`).
			WithArgs("u1").
			WillReturnError(errors.New("subs down"))

		err := store.DeleteAllForUser(context.Background(), "u1")
		require.Error(t, err)

		var resetErr *ResetError
		require.ErrorAs(t, err, &resetErr)
		assert.Len(t, resetErr.Errs, 2)
		assert.Contains(t, err.Error(), "events down")
		assert.Contains(t, err.Error(), " | ")
		assert.Contains(t, err.Error(), "subs down")
		assert.ErrorIs(t, err, ErrTransient)
	})
}

func TestPostgres_UpsertProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO user_profiles .* ON CONFLICT \(user_id\) DO UPDATE`).
		WithArgs("u1", 2400, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertProfile(context.Background(), ProfileRow{
		UserID:   "u1",
		Goal:     2400,
		Profile:  &model.Profile{Gender: "female", WeightKg: 60, HeightCm: 165, ActivityFactor: 1, ClimateFactor: 1},
		Settings: model.DefaultSettings(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertPushSubscription(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO push_subscriptions .* ON CONFLICT \(endpoint\) DO UPDATE`).
		WithArgs("u1", "https://push.example/abc", "key", "secret", "firefox").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertPushSubscription(context.Background(), model.PushSubscription{
		UserID: "u1", Endpoint: "https://push.example/abc", P256DH: "key", Auth: "secret", UserAgent: "firefox",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SubscribeWithoutPool(t *testing.T) {
	store, _ := newMockStore(t)

	_, err := store.SubscribeInserts(context.Background(), "u1", func(model.HydrationEvent) {})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
