package loan

import "context"

type Repository interface {
	// GetAll never returns a nil slice.
	GetAll(ctx context.Context) ([]Loan, error)
	// GetByID returns ErrNotFound when no row matches.
	GetByID(ctx context.Context, id uint64) (*Loan, error)
	// Create assigns l.ID.
	Create(ctx context.Context, l *Loan) error
	// UpdatePayment persists balance and status, failing with ErrConcurrentUpdate
	// when the row changed since l was read.
	UpdatePayment(ctx context.Context, l *Loan) error
}
