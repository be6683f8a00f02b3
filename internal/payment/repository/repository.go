package repository

import (
	"context"
	"errors"

	"github.com/goteo/org.goteo.www-sub000/internal/domain"
)

var (
	ErrSubmissionNotFound = errors.New("no submission for idempotency key")
	ErrDuplicateKey       = errors.New("idempotency key already recorded")
)

// SubmissionLedger remembers which idempotency keys already produced a
// checkout, so a client retry after a timeout cannot create a second one.
//
// Record reserves the key before the remote checkout exists; its unique
// constraint is what makes two concurrent submissions with the same key
// mutually exclusive. Complete fills in the checkout id afterwards and
// Release frees the key when checkout creation failed.
type SubmissionLedger interface {
	Find(ctx context.Context, idempotencyKey string) (*domain.CheckoutSubmission, error)
	Record(ctx context.Context, sub *domain.CheckoutSubmission) error
	Complete(ctx context.Context, idempotencyKey, checkoutID string) error
	Release(ctx context.Context, idempotencyKey string) error
}
