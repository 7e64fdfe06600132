package modules

import "github.com/felixgeelhaar/forge/internal/domain/plugin"

// Inventory manages spare parts, supplies and consumables linked to assets.
func Inventory() *plugin.Descriptor {
	read := gate("inventory:read", fieldRoles...)

	return &plugin.Descriptor{
		ID:           InventoryID,
		Name:         "Inventory Management",
		Version:      "1.0.0",
		Description:  "Manage spare parts, supplies, and consumables",
		Dependencies: []plugin.Dependency{{ID: AssetsID, Version: "^1.0.0"}},
		Tabs: []plugin.Tab{{
			ID:          "inventory-overview",
			Label:       "Inventory",
			Icon:        "package",
			Target:      "inventory/overview",
			Permissions: read,
		}},
		SidebarPanels: []plugin.Panel{
			{
				ID:          "inventory-stats",
				Title:       "Inventory Stats",
				Icon:        "bar-chart-3",
				Target:      "inventory/stats",
				Collapsible: true,
				Permissions: gate("inventory:read", "admin", "manager"),
			},
			{
				ID:               "inventory-settings",
				Title:            "Inventory Settings",
				Icon:             "settings",
				Target:           "inventory/settings",
				Collapsible:      true,
				DefaultCollapsed: true,
				Permissions:      gate("inventory:admin", "admin"),
			},
		},
		NavigationItems: []plugin.NavItem{{
			ID:          "inventory-nav",
			Label:       "Inventory",
			Icon:        "package",
			URL:         "/inventory",
			Permissions: read,
		}},
		MainContent: []plugin.Content{{
			ID:          "inventory-management",
			Path:        "/inventory",
			Target:      "inventory/management",
			Permissions: read,
		}},
		Initialize: lifecycleHook(InventoryID, "inventory initialized"),
		Cleanup:    lifecycleHook(InventoryID, "inventory cleaned up"),
	}
}
