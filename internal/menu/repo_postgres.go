package menu

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresRepo reads menu definitions from Postgres.
//
// Assumed tables (see migrations/):
// - ivr_menus, with a partial unique index on phone_number WHERE active
// - ivr_options, with a partial unique index on (menu_id, digit) WHERE active
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const menuColumns = `
id, phone_number, name, active,
welcome_message, welcome_kind, voice_id,
timeout_seconds, invalid_message, max_invalid_attempts,
fallback, default_extension, fallback_message,
service_days, service_start, service_end, off_hours_message,
created_at, updated_at
`

func (r *PostgresRepo) GetByNumber(ctx context.Context, dialedNumber string) (Menu, error) {
	const q = `
SELECT ` + menuColumns + `
FROM ivr_menus
WHERE phone_number = $1 AND active
`
	return r.scanMenu(r.db.QueryRowContext(ctx, q, dialedNumber))
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Menu, error) {
	const q = `
SELECT ` + menuColumns + `
FROM ivr_menus
WHERE id = $1
`
	return r.scanMenu(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) scanMenu(row *sql.Row) (Menu, error) {
	var (
		m                Menu
		phone, voice     sql.NullString
		defaultExt       sql.NullString
		fallbackMsg      sql.NullString
		offHours         sql.NullString
		days, start, end sql.NullInt64
	)
	err := row.Scan(
		&m.ID,
		&phone,
		&m.Name,
		&m.Active,
		&m.WelcomeMessage,
		&m.WelcomeKind,
		&voice,
		&m.TimeoutSeconds,
		&m.InvalidMessage,
		&m.MaxInvalidAttempts,
		&m.Fallback,
		&defaultExt,
		&fallbackMsg,
		&days,
		&start,
		&end,
		&offHours,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Menu{}, ErrNotFound
		}
		return Menu{}, err
	}
	m.PhoneNumber = phone.String
	m.VoiceID = voice.String
	m.DefaultExtension = defaultExt.String
	m.FallbackMessage = fallbackMsg.String
	m.OffHoursMessage = offHours.String
	m.ServiceWindow = windowFromColumns(days, start, end)
	return m, nil
}

func (r *PostgresRepo) ListOptions(ctx context.Context, menuID string) ([]Option, error) {
	const q = `
SELECT id, menu_id, digit, title, active, position, action,
       target_menu_id, extension, external_number, audio_ref, pre_message,
       window_days, window_start, window_end
FROM ivr_options
WHERE menu_id = $1
ORDER BY position, digit
`
	rows, err := r.db.QueryContext(ctx, q, menuID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Option
	for rows.Next() {
		var (
			o                     Option
			target, ext, external sql.NullString
			audioRef, preMsg      sql.NullString
			days, start, end      sql.NullInt64
		)
		if err := rows.Scan(
			&o.ID,
			&o.MenuID,
			&o.Digit,
			&o.Title,
			&o.Active,
			&o.Position,
			&o.Action,
			&target,
			&ext,
			&external,
			&audioRef,
			&preMsg,
			&days,
			&start,
			&end,
		); err != nil {
			return nil, err
		}
		o.TargetMenuID = target.String
		o.Extension = ext.String
		o.ExternalNumber = external.String
		o.AudioRef = audioRef.String
		o.PreMessage = preMsg.String
		o.Window = windowFromColumns(days, start, end)
		out = append(out, o)
	}
	return out, rows.Err()
}

// windowFromColumns maps the nullable day/time columns to a Window.
// All three must be present for a window to exist.
func windowFromColumns(days, start, end sql.NullInt64) *Window {
	if !days.Valid || !start.Valid || !end.Valid {
		return nil
	}
	return &Window{
		Days:  WeekdaySet(days.Int64),
		Start: MinuteOfDay(start.Int64),
		End:   MinuteOfDay(end.Int64),
	}
}
