package memory

import (
	"context"

	"github.com/RubachokBoss/attempt-service/internal/repository"
)

type membershipRepository struct {
	db *DB
}

func NewMembershipRepository(db *DB) repository.MembershipRepository {
	return &membershipRepository{db: db}
}

func (repo *membershipRepository) IsApprovedMember(_ context.Context, userID, groupID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.db.members[membershipKey{groupID: groupID, userID: userID}], nil
}

func (repo *membershipRepository) IsOwner(_ context.Context, userID, assignmentID string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	a, ok := repo.db.assignments[assignmentID]
	return ok && a.OwnerID == userID, nil
}
