package report

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/batchpulse/pkg/models"
)

// GroupedCustomers folds customer records sharing a name and code into one
// logical customer, in name, code order.
func (s *Service) GroupedCustomers(ctx context.Context) ([]*models.CustomerGroup, error) {
	return cached(ctx, s, kindCustomers, Filter{}, func(ctx context.Context) ([]*models.CustomerGroup, error) {
		customers, err := s.repo.ListCustomers(ctx)
		if err != nil {
			return nil, fmt.Errorf("list customers: %w", err)
		}
		stats, err := s.repo.CustomerJobStats(ctx)
		if err != nil {
			return nil, fmt.Errorf("customer job stats: %w", err)
		}

		groups := []*models.CustomerGroup{}
		byKey := map[[2]string]*models.CustomerGroup{}
		for _, c := range customers {
			key := [2]string{c.Name, c.Code}
			g, ok := byKey[key]
			if !ok {
				g = &models.CustomerGroup{
					Name:         c.Name,
					Code:         c.Code,
					Descriptions: map[models.Product]string{},
					CreatedAt:    c.CreatedAt,
					UpdatedAt:    c.UpdatedAt,
				}
				byKey[key] = g
				groups = append(groups, g)
			}
			g.Products = append(g.Products, c.Product)
			g.CustomerIDs = append(g.CustomerIDs, c.ID)
			g.Descriptions[c.Product] = c.Description
			g.IsActive = g.IsActive || c.IsActive
			if c.CreatedAt.Before(g.CreatedAt) {
				g.CreatedAt = c.CreatedAt
			}
			if c.UpdatedAt.After(g.UpdatedAt) {
				g.UpdatedAt = c.UpdatedAt
			}

			st := stats[c.ID]
			g.TotalJobs += st.TotalJobs
			if st.LastActivity != nil && (g.LastActivity == nil || st.LastActivity.After(*g.LastActivity)) {
				last := *st.LastActivity
				g.LastActivity = &last
			}
		}
		return groups, nil
	})
}
