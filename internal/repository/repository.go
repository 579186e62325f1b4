// Package repository implements all database queries for the kayak tour booking system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadySubscribed is returned when the (event, customer) pair already exists.
var ErrAlreadySubscribed = errors.New("customer already subscribed to this event")

// ErrDuplicate is returned when a unique column (e.g. email) is already taken.
var ErrDuplicate = errors.New("duplicate value")

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const eventColumns = `id, name, description, price, event_starts, event_ends, registration_open, created_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e    model.Event
		open int16
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Description, &e.Price,
		&e.EventStarts, &e.EventEnds, &open, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.RegistrationOpen = open == 1
	return &e, nil
}

func registrationFlag(open bool) int16 {
	if open {
		return 1
	}
	return 0
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event with registration open and returns it with
// its server-assigned id.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event, err := scanEvent(r.db.QueryRow(ctx,
		`INSERT INTO events (name, description, price, event_starts, event_ends, registration_open)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 RETURNING `+eventColumns,
		req.Name, req.Description, req.Price, req.EventStarts.UTC(), req.EventEnds.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns one page of events ordered by start time ascending.
func (r *EventRepository) List(ctx context.Context, q model.PageQuery) ([]model.Event, error) {
	q = q.Normalize()
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 ORDER BY event_starts ASC, id ASC
		 LIMIT $1 OFFSET $2`,
		q.PageSize, q.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Update overwrites name, description, price and dates. Registration state
// and roster are left alone.
func (r *EventRepository) Update(ctx context.Context, id int64, req model.UpdateEventRequest) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`UPDATE events
		 SET name = $2, description = $3, price = $4, event_starts = $5, event_ends = $6
		 WHERE id = $1
		 RETURNING `+eventColumns,
		id, req.Name, req.Description, req.Price, req.EventStarts.UTC(), req.EventEnds.UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

// Delete removes the event; roster entries cascade.
func (r *EventRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
