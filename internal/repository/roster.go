package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/kayak-tours/internal/model"
)

// RosterTx is the set of roster operations available inside one
// transaction. LockEvent must be called first: it takes the row lock that
// serialises every read-modify-write on the same event.
type RosterTx interface {
	LockEvent(ctx context.Context, eventID int64) (*model.Event, error)
	Customers(ctx context.Context, eventID int64) ([]string, error)
	Insert(ctx context.Context, eventID int64, customerID string) error
	Delete(ctx context.Context, eventID int64, customerID string) error
	SetRegistrationOpen(ctx context.Context, eventID int64, open bool) error
}

// RosterRepository handles persistence for event_customers rows and the
// registration flag they drive.
type RosterRepository struct {
	db *pgxpool.Pool
}

// NewRosterRepository constructs a RosterRepository.
func NewRosterRepository(db *pgxpool.Pool) *RosterRepository {
	return &RosterRepository{db: db}
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
//
// Without the row lock taken by RosterTx.LockEvent, two concurrent
// subscribers could both read a roster of 7, both pass the capacity check
// and both insert, leaving 9 customers on an 8-seat tour. SELECT … FOR
// UPDATE makes the second transaction wait until the first commits, so it
// sees the 8th entry and the closed flag.
func (r *RosterRepository) InTx(ctx context.Context, fn func(tx RosterTx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	return finishTx(ctx, tx, func() error { return fn(&rosterTx{tx: tx}) })
}

// finishTx runs fn and commits tx. tx is rolled back if fn fails or panics,
// so the event row lock never outlives the call.
func finishTx(ctx context.Context, tx pgx.Tx, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// EventWithRoster loads an event and its subscribed customer ids without locking.
func (r *RosterRepository) EventWithRoster(ctx context.Context, eventID int64) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	e.Roster, err = customerIDs(ctx, r.db, eventID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// AppliedCustomers returns summaries of every customer on the event's
// roster, or ErrNotFound when the event does not exist.
func (r *RosterRepository) AppliedCustomers(ctx context.Context, eventID int64) ([]model.CustomerSummary, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := r.db.Query(ctx,
		`SELECT c.id, c.user_name, c.email, c.phone_number
		 FROM event_customers ec
		 JOIN customers c ON c.id = ec.customer_id
		 WHERE ec.event_id = $1
		 ORDER BY ec.created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list applied customers: %w", err)
	}
	defer rows.Close()

	out := []model.CustomerSummary{}
	for rows.Next() {
		var c model.CustomerSummary
		if err := rows.Scan(&c.ID, &c.UserName, &c.Email, &c.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func customerIDs(ctx context.Context, q querier, eventID int64) ([]string, error) {
	rows, err := q.Query(ctx,
		`SELECT customer_id FROM event_customers WHERE event_id = $1 ORDER BY created_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan roster: %w", err)
	}
	return ids, nil
}

type rosterTx struct {
	tx pgx.Tx
}

func (t *rosterTx) LockEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	e, err := scanEvent(t.tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return e, nil
}

func (t *rosterTx) Customers(ctx context.Context, eventID int64) ([]string, error) {
	return customerIDs(ctx, t.tx, eventID)
}

func (t *rosterTx) Insert(ctx context.Context, eventID int64, customerID string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO event_customers (event_id, customer_id) VALUES ($1, $2)`,
		eventID, customerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("insert roster entry: %w", err)
	}
	return nil
}

func (t *rosterTx) Delete(ctx context.Context, eventID int64, customerID string) error {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM event_customers WHERE event_id = $1 AND customer_id = $2`,
		eventID, customerID,
	)
	if err != nil {
		return fmt.Errorf("delete roster entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *rosterTx) SetRegistrationOpen(ctx context.Context, eventID int64, open bool) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE events SET registration_open = $2 WHERE id = $1`,
		eventID, registrationFlag(open),
	)
	if err != nil {
		return fmt.Errorf("set registration state: %w", err)
	}
	return nil
}
