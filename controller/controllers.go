// controller/controllers.go
package controller

import "github.com/dev-mohitbeniwal/echo/authz/service"

type Controllers struct {
	Policy        *PolicyController
	Authorization *AuthorizationController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Policy:        NewPolicyController(services.Policy),
		Authorization: NewAuthorizationController(services.Authorization),
	}
}
