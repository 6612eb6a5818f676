package memory

import (
	"context"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
)

type participantRepository struct {
	s *Store
}

func (r *participantRepository) Eligibility(ctx context.Context, participantID int64) (*models.Eligibility, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.participants[participantID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	e := p.Eligibility
	return &e, nil
}
