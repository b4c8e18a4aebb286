package notifications

import (
	"context"
	"log/slog"
)

// RoleDirectory resolves the users currently holding a role in a tenant.
type RoleDirectory interface {
	UserIDsWithRole(ctx context.Context, tenantID, roleName string) ([]string, error)
}

// Gateway adapts the notification service to the delivery interface the
// adjustment workflow expects. Role-targeted notices fan out to every user
// holding the role at dispatch time.
type Gateway struct {
	service *Service
	roles   RoleDirectory
}

func NewGateway(service *Service, roles RoleDirectory) *Gateway {
	return &Gateway{service: service, roles: roles}
}

func (g *Gateway) NotifyUser(ctx context.Context, tenantID, userID, ntype, title, body, entityID string) error {
	return g.service.Create(ctx, tenantID, userID, ntype, title, body, entityID)
}

func (g *Gateway) NotifyRole(ctx context.Context, tenantID, roleName, ntype, title, body, entityID string) error {
	userIDs, err := g.roles.UserIDsWithRole(ctx, tenantID, roleName)
	if err != nil {
		return err
	}
	for _, userID := range userIDs {
		if err := g.service.Create(ctx, tenantID, userID, ntype, title, body, entityID); err != nil {
			slog.Warn("role notification delivery failed", "role", roleName, "userId", userID, "err", err)
		}
	}
	return nil
}
