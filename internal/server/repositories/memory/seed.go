package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/claimkeeper/internal/server/models"
	"github.com/shopspring/decimal"
)

type seedParticipant struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	GameName       string          `json:"game_name"`
	PrizeValue     decimal.Decimal `json:"prize_value"`
	Currency       string          `json:"currency"`
	IsWinner       bool            `json:"is_winner"`
	IsPaid         bool            `json:"is_paid"`
	RoundCompleted bool            `json:"round_completed"`
}

// LoadParticipants seeds the store from a JSON array of participants and
// returns how many were added.
func (s *Store) LoadParticipants(r io.Reader) (int, error) {
	var rows []seedParticipant
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return 0, fmt.Errorf("seed decode error: %w", err)
	}
	for i, row := range rows {
		if row.ID <= 0 {
			return i, fmt.Errorf("seed entry %d: invalid participant id %d", i, row.ID)
		}
		s.AddParticipant(row.ID, Participant{
			View:  models.ParticipantView{Name: row.Name, Email: row.Email, Phone: row.Phone},
			Prize: models.PrizeView{GameName: row.GameName, PrizeValue: row.PrizeValue, Currency: row.Currency},
			Eligibility: models.Eligibility{
				IsWinner:       row.IsWinner,
				IsPaid:         row.IsPaid,
				RoundCompleted: row.RoundCompleted,
			},
		})
	}
	return len(rows), nil
}

// LoadParticipantsFile is LoadParticipants for a file on disk.
func (s *Store) LoadParticipantsFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("seed open error: %w", err)
	}
	defer f.Close()
	return s.LoadParticipants(f)
}
