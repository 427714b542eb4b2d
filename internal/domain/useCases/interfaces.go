package useCases

import (
	"context"
	"net/http"

	"irecStatApp/internal/domain/model"
)

// AnalyticsService defines the read side served to the dashboard.
type AnalyticsService interface {
	ProjectAnalytics(ctx context.Context, projectID string) (*model.AnalyticsResult, error)
	Certificates(ctx context.Context, projectID string) (*model.CertificateList, error)
	PaymentMethods(ctx context.Context, projectID string) (*model.PaymentMethodBreakdown, error)
	Tokenization(ctx context.Context, projectID string) (*model.TokenizationMetrics, error)
	RealTimeStats(ctx context.Context, projectID string) (*model.RealTimeStats, error)
	Supply(ctx context.Context) (*model.SupplyOverview, error)
	Projects(ctx context.Context) ([]model.ProjectRecord, error)
	ClearCache(ctx context.Context, kinds ...model.DatasetKind) error
	CacheStats(ctx context.Context) (model.CacheStats, error)
}

// Broadcaster pushes updates to WebSocket clients.
type Broadcaster interface {
	BroadcastRealTimeStats(stats *model.RealTimeStats)
	Handler() http.HandlerFunc
}
