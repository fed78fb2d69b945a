// audit/service.go
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Service interface {
	Record(ctx context.Context, log AuditLog) error
	QueryLogs(ctx context.Context, query Query) ([]AuditLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Record fills in the id and timestamp when missing and stores the log.
func (s *service) Record(ctx context.Context, log AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}
	return s.repo.Index(ctx, log)
}

func (s *service) QueryLogs(ctx context.Context, query Query) ([]AuditLog, error) {
	if query.To.IsZero() {
		query.To = time.Now().UTC()
	}
	if query.Limit <= 0 {
		query.Limit = 100
	}
	return s.repo.Search(ctx, query)
}
