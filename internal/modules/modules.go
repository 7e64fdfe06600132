// Package modules holds the plugins the Forge host ships with: the
// dashboard, asset management, work orders and inventory management.
package modules

import (
	"context"

	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/felixgeelhaar/forge/internal/ports"
)

// Plugin ids of the built-in modules.
const (
	DashboardID  = "dashboard"
	AssetsID     = "assets"
	WorkOrdersID = "work-orders"
	InventoryID  = "inventory-management"
)

// Roles that see day-to-day maintenance screens.
var fieldRoles = []string{"admin", "manager", "technician"}

// gate returns perm followed by the roles that bypass it.
func gate(perm string, roles ...string) []string {
	return append([]string{perm}, roles...)
}

// Builtins returns fresh descriptors for every built-in module, in
// registration order.
func Builtins() []*plugin.Descriptor {
	return []*plugin.Descriptor{
		Dashboard(),
		Assets(),
		WorkOrders(),
		Inventory(),
	}
}

// lifecycleHook logs through the context logger, if any, when a module
// starts or stops.
func lifecycleHook(id, msg string) plugin.Hook {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if log := ports.LoggerFromContext(ctx); log != nil {
			log.Debug(ctx, msg, ports.F("plugin", id))
		}
		return nil
	}
}
