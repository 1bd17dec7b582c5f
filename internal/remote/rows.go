package remote

import (
	"time"

	"github.com/roach88/givemewater/internal/model"
)

var eventColumns = []string{
	"event_id", "user_id", "timestamp_utc", "effective_day_key",
	"drink_id", "raw_amount_ml", "hydration_amount_ml", "source",
}

var summaryColumns = []string{
	"month_key", "average_intake_ml", "days_tracked", "days_met_goal",
	"completion_rate", "created_at",
}

// eventRow is a hydration_events row. Also decoded from NOTIFY payloads,
// which carry row_to_json output.
type eventRow struct {
	EventID           string    `db:"event_id"            json:"event_id"`
	UserID            string    `db:"user_id"             json:"user_id"`
	TimestampUTC      time.Time `db:"timestamp_utc"       json:"timestamp_utc"`
	EffectiveDayKey   string    `db:"effective_day_key"   json:"effective_day_key"`
	DrinkID           string    `db:"drink_id"            json:"drink_id"`
	RawAmountML       int       `db:"raw_amount_ml"       json:"raw_amount_ml"`
	HydrationAmountML int       `db:"hydration_amount_ml" json:"hydration_amount_ml"`
	Source            *string   `db:"source"              json:"source"`
}

func (r eventRow) toModel() model.HydrationEvent {
	source := model.SourceSync
	if r.Source != nil && *r.Source != "" {
		source = model.Source(*r.Source)
	}
	return model.HydrationEvent{
		EventID:           r.EventID,
		UserID:            r.UserID,
		Timestamp:         r.TimestampUTC.UTC(),
		EffectiveDayKey:   r.EffectiveDayKey,
		DrinkID:           r.DrinkID,
		RawAmountML:       r.RawAmountML,
		HydrationAmountML: r.HydrationAmountML,
		Source:            source,
	}
}

type summaryRow struct {
	MonthKey        string    `db:"month_key"`
	AverageIntakeML int       `db:"average_intake_ml"`
	DaysTracked     int       `db:"days_tracked"`
	DaysMetGoal     int       `db:"days_met_goal"`
	CompletionRate  int       `db:"completion_rate"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r summaryRow) toModel() model.MonthlySummary {
	return model.MonthlySummary{
		MonthKey:        r.MonthKey,
		AverageIntakeML: r.AverageIntakeML,
		DaysTracked:     r.DaysTracked,
		DaysMetGoal:     r.DaysMetGoal,
		CompletionRate:  r.CompletionRate,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func eventsToModel(rows []eventRow) []model.HydrationEvent {
	out := make([]model.HydrationEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}
