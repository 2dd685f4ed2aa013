package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/acaraku/acaraku/internal/domain"
	"github.com/acaraku/acaraku/internal/repository"
)

type EventRepo struct {
	db DB
}

const eventColumns = `id, organizer_id, organizer_name, name, description, location,
	category, image, start_date, end_date, price, is_free, total_seats,
	available_seats, created_at`

// Create assigns an ID and stores the event.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - e: event to store; ID is ignored and assigned by the database.
//
// Returns:
//   - int64: the assigned event ID.
//   - error: if the insert fails.
func (r *EventRepo) Create(ctx context.Context, e *domain.Event) (int64, error) {
	const op = "postgres.EventRepo.Create"

	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO events(organizer_id, organizer_name, name, description,
			location, category, image, start_date, end_date, price, is_free,
			total_seats, available_seats, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING id`,
		e.OrganizerID, e.OrganizerName, e.Name, e.Description, e.Location,
		e.Category, e.Image, e.StartDate, e.EndDate, e.Price, e.IsFree,
		e.TotalSeats, e.AvailableSeats, e.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return id, nil
}

// Get retrieves an event by its ID.
//
// Returns:
//   - *domain.Event: the event when found.
//   - error: repository.ErrNotFound if the event is not found.
func (r *EventRepo) Get(ctx context.Context, id int64) (*domain.Event, error) {
	const op = "postgres.EventRepo.Get"

	var e domain.Event
	err := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	).Scan(
		&e.ID, &e.OrganizerID, &e.OrganizerName, &e.Name, &e.Description,
		&e.Location, &e.Category, &e.Image, &e.StartDate, &e.EndDate,
		&e.Price, &e.IsFree, &e.TotalSeats, &e.AvailableSeats, &e.CreatedAt,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &e, nil
}

func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error) {
	const op = "postgres.EventRepo.ListByOrganizer"

	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE organizer_id = $1 ORDER BY id`,
		organizerID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return scanEvents(rows, op)
}

// Search filters events by a case-insensitive substring match on name or
// description, an exact category match and a substring location match.
// Empty arguments are no-ops.
func (r *EventRepo) Search(ctx context.Context, query, category, location string) ([]domain.Event, error) {
	const op = "postgres.EventRepo.Search"

	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		   AND ($2 = '' OR category = $2)
		   AND ($3 = '' OR location LIKE '%' || $3 || '%')
		 ORDER BY id`,
		query, category, location,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return scanEvents(rows, op)
}

// ReserveSeats atomically decrements the available seat counter. The
// conditional update is the compare-and-swap keeping 0 <= available_seats
// under concurrent bookings.
//
// Returns:
//   - error: repository.ErrSeatsUnavailable when fewer than qty seats remain,
//     or repository.ErrNotFound if the event does not exist.
func (r *EventRepo) ReserveSeats(ctx context.Context, eventID int64, qty int) error {
	const op = "postgres.EventRepo.ReserveSeats"

	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET available_seats = available_seats - $2
		 WHERE id = $1 AND available_seats >= $2`,
		eventID, qty,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID,
		).Scan(&exists); err != nil {
			return wrapDBErr(op, err)
		}
		if !exists {
			return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
		}
		return fmt.Errorf("%s:%w", op, repository.ErrSeatsUnavailable)
	}

	return nil
}

// ReleaseSeats returns qty seats to the pool, capped at total_seats.
func (r *EventRepo) ReleaseSeats(ctx context.Context, eventID int64, qty int) error {
	const op = "postgres.EventRepo.ReleaseSeats"

	tag, err := r.db.Exec(ctx,
		`UPDATE events
		 SET available_seats = LEAST(total_seats, available_seats + $2)
		 WHERE id = $1`,
		eventID, qty,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func scanEvents(rows pgx.Rows, op string) ([]domain.Event, error) {
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(
			&e.ID, &e.OrganizerID, &e.OrganizerName, &e.Name, &e.Description,
			&e.Location, &e.Category, &e.Image, &e.StartDate, &e.EndDate,
			&e.Price, &e.IsFree, &e.TotalSeats, &e.AvailableSeats, &e.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}
