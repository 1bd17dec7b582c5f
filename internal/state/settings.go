package state

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/givemewater/internal/model"
)

//go:embed settings.cue
var settingsSchema string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// cue.Context is not safe for concurrent use.
	schemaMu sync.Mutex
)

func settingsDefinition() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(settingsSchema, cue.Filename("settings.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile settings schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Settings"))
		if !schemaDef.Exists() {
			schemaErr = fmt.Errorf("settings schema: #Settings not found")
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// ValidateSettings checks settings against the embedded CUE schema.
// Violations wrap model.ErrInvalidSettings.
func ValidateSettings(s model.Settings) error {
	ctx, def, err := settingsDefinition()
	if err != nil {
		return err
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	val := ctx.Encode(s)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidSettings, err)
	}
	return nil
}

// ApplyPatch returns s with the non-nil patch fields applied.
func ApplyPatch(s model.Settings, patch model.SettingsPatch) model.Settings {
	if patch.EndOfDayTime != nil {
		s.EndOfDayTime = *patch.EndOfDayTime
	}
	if patch.StartOfWeek != nil {
		s.StartOfWeek = *patch.StartOfWeek
	}
	if patch.NotificationsEnabled != nil {
		s.NotificationsEnabled = *patch.NotificationsEnabled
	}
	if patch.ReminderStartTime != nil {
		s.ReminderStartTime = *patch.ReminderStartTime
	}
	if patch.ReminderEndTime != nil {
		s.ReminderEndTime = *patch.ReminderEndTime
	}
	if patch.IntervalMinutes != nil {
		s.IntervalMinutes = *patch.IntervalMinutes
	}
	return s
}

// UpdateSettings merges patch into the state's settings after validating
// the result. Existing events keep their day keys even when the cutoff
// changes. On error st is left untouched.
func UpdateSettings(st *model.AppState, patch model.SettingsPatch) error {
	next := ApplyPatch(st.Settings, patch)
	if err := ValidateSettings(next); err != nil {
		return err
	}
	st.Settings = next
	return nil
}
