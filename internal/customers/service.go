package customers

import (
	"context"
	"log/slog"
	"time"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// RepositoryPort abstracts customer persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, c Customer) (int64, error)
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, error)
}

// Service manages customers.
type Service struct {
	repo   RepositoryPort
	region string
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service; region is the default phone region such as "IN".
func NewService(repo RepositoryPort, region string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if region == "" {
		region = "IN"
	}
	return &Service{repo: repo, region: region, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and stores a customer; email, phone and GST number are unique.
func (s *Service) Create(ctx context.Context, principal shared.Principal, input CreateInput) (Customer, error) {
	c, err := input.normalize(s.region)
	if err != nil {
		return Customer{}, err
	}
	c.CreatedBy = principal.ID
	c.CreatedAt = s.now()
	if c.ID, err = s.repo.Insert(ctx, c); err != nil {
		return Customer{}, err
	}
	s.logger.Info("customer created", slog.Int64("customer_id", c.ID))
	return c, nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers by name.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	return s.repo.List(ctx, filter)
}
