package cart

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
)

type guestCart interface {
	Items() []domain.LineItem
	Remove(ctx context.Context, lineItemID int64) error
}

// MergeReport lists what a guest-to-account merge did. Merged lines carry
// the quantity actually added to the account cart.
type MergeReport struct {
	Merged  []domain.LineItem `json:"merged"`
	Skipped []domain.LineItem `json:"skipped"`
}

// MergeGuest folds a guest cart into the account cart after login. Each
// guest line is added with its quantity capped at the stock left after the
// account cart's own quantity. Merged lines leave the guest cart; lines
// with no room or refused by the backend stay there. Session expiry stops
// the merge and is returned.
func (s *Service) MergeGuest(ctx context.Context, guest guestCart) (MergeReport, error) {
	report := MergeReport{Merged: []domain.LineItem{}, Skipped: []domain.LineItem{}}

	server, err := s.Fetch(ctx)
	if err != nil {
		return report, err
	}

	for _, line := range guest.Items() {
		stock := line.AvailableStock
		held := 0
		if i := server.FindByKey(line.Key()); i >= 0 {
			held = server.Items[i].Quantity
			if server.Items[i].AvailableStock > 0 {
				stock = server.Items[i].AvailableStock
			}
		}
		room := stock - held
		if room < 1 {
			report.Skipped = append(report.Skipped, line)
			continue
		}
		qty := line.Quantity
		if qty > room {
			qty = room
		}

		if err := s.api.AddItem(ctx, s.token, backend.NewAddItemRequest(line, qty)); err != nil {
			if errors.Is(err, domain.ErrSessionExpired) {
				return report, err
			}
			s.logger.Info("guest line not merged", zap.String("item", line.Key().String()), zap.Error(err))
			report.Skipped = append(report.Skipped, line)
			continue
		}

		merged := line
		merged.Quantity = qty
		report.Merged = append(report.Merged, merged)
		if err := guest.Remove(ctx, line.LineItemID); err != nil {
			s.logger.Warn("merged line left in guest cart", zap.Int64("line_item_id", line.LineItemID), zap.Error(err))
		}
	}

	if len(report.Merged) > 0 {
		if _, err := s.Fetch(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}
