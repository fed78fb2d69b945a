// service/services.go
package service

import (
	"github.com/dev-mohitbeniwal/echo/authz/audit"
	"github.com/dev-mohitbeniwal/echo/authz/util"
)

type Services struct {
	Policy        IPolicyService
	Authorization IAuthorizationService
}

type Dependencies struct {
	PolicyRepo      PolicyRepository
	Authorizer      Authorizer
	AuditService    audit.Service
	ValidationUtil  *util.ValidationUtil
	CacheService    PolicyCache
	NotificationSvc *util.NotificationService
	EventBus        *util.EventBus
	Broadcaster     util.InvalidationBroadcaster
	Resolver        ActorResolver
	AllowPermissive bool
}

func InitializeServices(deps Dependencies) (*Services, error) {
	services := &Services{
		Policy: NewPolicyService(
			deps.PolicyRepo,
			deps.ValidationUtil,
			deps.CacheService,
			deps.NotificationSvc,
			deps.EventBus,
			deps.Authorizer,
			deps.Broadcaster,
			deps.AuditService,
		),
	}

	authz := NewAuthorizationService(deps.Authorizer, deps.Broadcaster, deps.AuditService, deps.AllowPermissive)
	if deps.Resolver != nil {
		authz.WithResolver(deps.Resolver)
	}
	services.Authorization = authz

	return services, nil
}
