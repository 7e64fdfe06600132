package modules

import "github.com/felixgeelhaar/forge/internal/domain/plugin"

// WorkOrders manages maintenance work orders raised against assets.
func WorkOrders() *plugin.Descriptor {
	read := gate("workorder:read", fieldRoles...)

	return &plugin.Descriptor{
		ID:           WorkOrdersID,
		Name:         "Work Orders",
		Version:      "1.0.0",
		Description:  "Manage maintenance work orders",
		Dependencies: []plugin.Dependency{{ID: AssetsID, Version: "^1.0.0"}},
		Tabs: []plugin.Tab{{
			ID:          "work-orders-overview",
			Label:       "Work Orders",
			Icon:        "wrench",
			Target:      "work-orders/overview",
			Permissions: read,
		}},
		SidebarPanels: []plugin.Panel{{
			ID:          "work-order-stats",
			Title:       "Work Order Stats",
			Icon:        "clock",
			Target:      "work-orders/stats",
			Collapsible: true,
			Permissions: read,
		}},
		NavigationItems: []plugin.NavItem{{
			ID:          "work-orders-nav",
			Label:       "Work Orders",
			Icon:        "wrench",
			URL:         "/work-orders",
			Permissions: read,
		}},
		MainContent: []plugin.Content{{
			ID:          "work-orders-main",
			Path:        "/work-orders",
			Target:      "work-orders/overview",
			Permissions: read,
		}},
		Initialize: lifecycleHook(WorkOrdersID, "work orders initialized"),
	}
}
