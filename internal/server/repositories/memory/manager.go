// Package memory is a process-local RepositoryManager used when no database
// is configured and in service tests.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/claimkeeper/internal/dbx"
	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/claimtokens"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/participants"
	"github.com/dmitrijs2005/claimkeeper/internal/server/repositories/securitylog"
)

// Participant is a seeded participant row together with its round and prize.
type Participant struct {
	View        models.ParticipantView
	Prize       models.PrizeView
	Eligibility models.Eligibility
}

// Store holds every table behind one mutex. The DBTX handed to the factory
// methods is ignored.
type Store struct {
	mu           sync.Mutex
	tokens       []*models.ClaimToken
	events       []*models.SecurityEvent
	participants map[int64]Participant
	nextTokenID  int64
	nextEventID  int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{participants: map[int64]Participant{}}
}

// RunMigrations is a no-op.
func (s *Store) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (s *Store) ClaimTokens(dbx.DBTX) claimtokens.Repository {
	return &tokenRepository{s: s}
}

func (s *Store) SecurityLog(dbx.DBTX) securitylog.Repository {
	return &eventRepository{s: s}
}

func (s *Store) Participants(dbx.DBTX) participants.Repository {
	return &participantRepository{s: s}
}

// AddParticipant seeds or replaces a participant. Eligibility.ParticipantID
// and View.ID are forced to id.
func (s *Store) AddParticipant(id int64, p Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.View.ID = id
	p.Eligibility.ParticipantID = id
	s.participants[id] = p
}

// Events returns a copy of the security log in insertion order.
func (s *Store) Events() []models.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SecurityEvent, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, *e)
	}
	return out
}

// Tokens returns a copy of the claim token table in insertion order.
func (s *Store) Tokens() []models.ClaimToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ClaimToken, 0, len(s.tokens))
	for _, t := range s.tokens {
		out = append(out, cloneToken(t))
	}
	return out
}

func cloneToken(t *models.ClaimToken) models.ClaimToken {
	c := *t
	if t.UsedAt != nil {
		at := *t.UsedAt
		c.UsedAt = &at
	}
	if t.UsedByIP != nil {
		ip := *t.UsedByIP
		c.UsedByIP = &ip
	}
	return c
}
