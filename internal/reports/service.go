package reports

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/orderflow/internal/warehouse"
)

// Repository runs the aggregate queries.
type Repository interface {
	SalesByStatus(ctx context.Context, from, to time.Time) ([]StatusTotal, error)
	CollectionsByPurpose(ctx context.Context, from, to time.Time) ([]PurposeTotal, error)
	StockByGroup(ctx context.Context) ([]GroupStock, error)
}

// ShipmentSource provides the warehouse daily summary.
type ShipmentSource interface {
	DailySummary(ctx context.Context, day time.Time) (warehouse.DailySummary, error)
}

// Service answers read-only reports through the cache.
type Service struct {
	repo      Repository
	shipments ShipmentSource
	cache     *Cache
	group     singleflight.Group
	logger    *slog.Logger
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, shipments ShipmentSource, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, shipments: shipments, cache: cache, logger: logger}
}

// SalesSummary counts and totals orders created between from and to inclusive.
func (s *Service) SalesSummary(ctx context.Context, r Range) (SalesSummary, error) {
	var out SalesSummary
	if err := r.Validate(); err != nil {
		return out, err
	}
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		rows, err := s.repo.SalesByStatus(ctx, r.From, r.End())
		if err != nil {
			return nil, err
		}
		return newSalesSummary(r, rows), nil
	}, "sales", r.token())
	return out, err
}

// Collections counts and totals receipts received between from and to inclusive.
func (s *Service) Collections(ctx context.Context, r Range) (Collections, error) {
	var out Collections
	if err := r.Validate(); err != nil {
		return out, err
	}
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		rows, err := s.repo.CollectionsByPurpose(ctx, r.From, r.End())
		if err != nil {
			return nil, err
		}
		return newCollections(r, rows), nil
	}, "collections", r.token())
	return out, err
}

// StockByGroup totals catalog stock per variant group.
func (s *Service) StockByGroup(ctx context.Context) ([]GroupStock, error) {
	var out []GroupStock
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.repo.StockByGroup(ctx)
	}, "stock")
	return out, err
}

// ShipmentDay returns the warehouse summary for one shipped date.
func (s *Service) ShipmentDay(ctx context.Context, day time.Time) (warehouse.DailySummary, error) {
	var out warehouse.DailySummary
	day = warehouse.DateOnly(day)
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.shipments.DailySummary(ctx, day)
	}, "shipments", day.Format(time.DateOnly))
	return out, err
}

// Bump drops every cached report.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warm precomputes the reports dashboards open most often.
func (s *Service) Warm(ctx context.Context, day time.Time) error {
	day = warehouse.DateOnly(day)
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	r := Range{From: monthStart, To: day}
	if _, err := s.SalesSummary(ctx, r); err != nil {
		return err
	}
	if _, err := s.Collections(ctx, r); err != nil {
		return err
	}
	_, err := s.StockByGroup(ctx)
	return err
}

func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return (*Cache)(nil).FetchJSON(ctx, "", dest, loader)
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var raw rawJSON
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return res.Val.(rawJSON).decode(dest)
	}
}
