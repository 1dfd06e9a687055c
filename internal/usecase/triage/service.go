package triage

import (
	"time"

	"github.com/go-playground/validator/v10"

	"faulttriage/internal/domain/fault"
	"faulttriage/internal/ports"
)

const defaultCustomerCacheTTL = 10 * time.Minute

type Service struct {
	repo      ports.FaultRepository
	uow       ports.UnitOfWork
	locker    ports.KeyLocker
	taxonomy  ports.TaxonomyProvider
	publisher ports.DecisionPublisher
	recorder  ports.ProcessingRecorder
	cache     ports.Cache

	customerTTL time.Duration
	validate    *validator.Validate
	now         func() time.Time
}

type Option func(*Service)

// WithCustomerCacheTTL sets how long customer records stay in the cache.
func WithCustomerCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.customerTTL = ttl
		}
	}
}

// WithClock overrides the processing clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the triage usecases. taxonomy, publisher, recorder and
// cache are optional: a nil taxonomy uses the built-in tables and the others
// are skipped.
func NewService(
	repo ports.FaultRepository,
	uow ports.UnitOfWork,
	locker ports.KeyLocker,
	taxonomy ports.TaxonomyProvider,
	publisher ports.DecisionPublisher,
	recorder ports.ProcessingRecorder,
	cache ports.Cache,
	opts ...Option,
) *Service {
	s := &Service{
		repo:        repo,
		uow:         uow,
		locker:      locker,
		taxonomy:    taxonomy,
		publisher:   publisher,
		recorder:    recorder,
		cache:       cache,
		customerTTL: defaultCustomerCacheTTL,
		validate:    fault.NewValidator(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) currentTaxonomy() fault.Taxonomy {
	if s.taxonomy == nil {
		return fault.DefaultTaxonomy()
	}
	return s.taxonomy.Current()
}
