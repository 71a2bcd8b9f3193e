package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
)

const membershipApproved = "approved"

// MembershipRepository answers access questions owned by group management.
type MembershipRepository interface {
	IsApprovedMember(ctx context.Context, userID, groupID string) (bool, error)
	IsOwner(ctx context.Context, userID, assignmentID string) (bool, error)
}

type membershipRepository struct {
	*PostgresRepository
}

func NewMembershipRepository(db *sql.DB, logger zerolog.Logger) MembershipRepository {
	return &membershipRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *membershipRepository) IsApprovedMember(ctx context.Context, userID, groupID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM group_members
			WHERE group_id = $1 AND user_id = $2 AND status = $3
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, groupID, userID, membershipApproved).Scan(&exists)
	return exists, err
}

func (r *membershipRepository) IsOwner(ctx context.Context, userID, assignmentID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM assignments WHERE id = $1 AND owner_id = $2)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, assignmentID, userID).Scan(&exists)
	return exists, err
}
