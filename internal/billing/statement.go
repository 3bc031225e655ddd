package billing

import (
	"context"
	"fmt"

	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/models"
)

// Statement: начисление и его занятия по порядку номеров, для выгрузки.
func (s *Service) Statement(ctx context.Context, tuitionFeeID int64) (*models.TuitionFee, []models.Session, error) {
	fee, err := db.GetTuitionFee(ctx, s.db, tuitionFeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("tuition fee %d: %w", tuitionFeeID, err)
	}
	sessions, err := db.ListSessions(ctx, s.db, tuitionFeeID)
	if err != nil {
		return nil, nil, err
	}
	return fee, sessions, nil
}
