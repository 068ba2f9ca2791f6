package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ParticipationRepository is the event participation ledger.
type ParticipationRepository interface {
	Join(ctx context.Context, userID int, eventID string) error
	Leave(ctx context.Context, userID int, eventID string) error
	IsParticipant(ctx context.Context, userID int, eventID string) (bool, error)
}

// ParticipationRepo is a sqlx implementation of ParticipationRepository.
type ParticipationRepo struct {
	db *sqlx.DB
}

// NewParticipationRepo constructs a ParticipationRepo.
func NewParticipationRepo(db *sqlx.DB) *ParticipationRepo {
	return &ParticipationRepo{db: db}
}

// Join records intent to attend an event. Idempotent: joining twice leaves
// the ledger unchanged.
func (r *ParticipationRepo) Join(ctx context.Context, userID int, eventID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO event_participations (user_id, event_id) VALUES ($1, $2) ON CONFLICT (user_id, event_id) DO NOTHING`, userID, eventID)
	return err
}

// Leave removes the participation pair. Removing an absent pair is a no-op.
func (r *ParticipationRepo) Leave(ctx context.Context, userID int, eventID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM event_participations WHERE user_id=$1 AND event_id=$2`, userID, eventID)
	return err
}

// IsParticipant checks the ledger for the pair.
func (r *ParticipationRepo) IsParticipant(ctx context.Context, userID int, eventID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM event_participations WHERE user_id=$1 AND event_id=$2)`, userID, eventID)
	return exists, err
}
