package service

import (
	"context"
)

// BackfillResult summarises a geocoding backfill run.
type BackfillResult struct {
	Scanned  int
	Geocoded int
	Failed   int
}

// BackfillCoordinates geocodes properties stored without coordinates, for
// example because the provider was down when they were created.
func (s *Service) BackfillCoordinates(ctx context.Context, limit int) (BackfillResult, error) {
	items, err := s.repo.ListMissingCoordinates(ctx, limit)
	if err != nil {
		return BackfillResult{}, err
	}

	result := BackfillResult{Scanned: len(items)}
	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		point := s.geocode(ctx, item.Address)
		if point == nil {
			result.Failed++
			continue
		}
		if err := s.repo.UpdateCoordinates(ctx, item.ID, *point); err != nil {
			s.log.Warn("coordinate backfill update failed", "error", err, "propertyId", item.ID)
			result.Failed++
			continue
		}
		result.Geocoded++
	}
	return result, nil
}
