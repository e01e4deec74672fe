package http

import (
	"context"

	"ejiview/internal/repository"
	"ejiview/internal/scale"
	"ejiview/internal/services"
	"ejiview/pkg/contracts/domain"
)

// DataServiceInterface is the part of services.DataService the handlers use
type DataServiceInterface interface {
	Sources(ctx context.Context) ([]services.SourceSummary, error)
	Table(ctx context.Context, source string) (*domain.NormalizedTable, error)
	Keys(ctx context.Context, source string, all bool) ([]string, error)
	Entity(ctx context.Context, source, key string, mode repository.MatchMode) (services.EntityView, error)
	Compare(ctx context.Context, req services.CompareRequest) (domain.ComparisonRecord, error)
	Catalog(ctx context.Context) services.Catalog
	Scale() []scale.Band
	Reload(ctx context.Context) (services.ReloadResult, error)
}
