package modules

import "github.com/felixgeelhaar/forge/internal/domain/plugin"

// Assets manages equipment and facilities. Work orders and inventory
// depend on it.
func Assets() *plugin.Descriptor {
	read := gate("asset:read", fieldRoles...)
	admin := gate("asset:admin", "admin")

	return &plugin.Descriptor{
		ID:          AssetsID,
		Name:        "Asset Management",
		Version:     "1.0.0",
		Description: "Manage equipment and facilities",
		Tabs: []plugin.Tab{{
			ID:          "assets-overview",
			Label:       "Assets",
			Icon:        "package",
			Target:      "assets/overview",
			Permissions: read,
		}},
		SidebarPanels: []plugin.Panel{{
			ID:               "asset-settings",
			Title:            "Asset Settings",
			Icon:             "settings",
			Target:           "assets/settings",
			Collapsible:      true,
			DefaultCollapsed: true,
			Permissions:      admin,
		}},
		NavigationItems: []plugin.NavItem{{
			ID:          "assets-nav",
			Label:       "Assets",
			Icon:        "package",
			URL:         "/assets",
			Permissions: read,
			Items: []plugin.NavItem{
				{ID: "assets-locations", Label: "Asset Locations", URL: "/assets/locations", Permissions: read},
				{ID: "assets-categories", Label: "Asset Categories", URL: "/assets/categories", Permissions: admin},
				{ID: "assets-schedules", Label: "Maintenance Schedules", URL: "/assets/schedules", Permissions: gate("asset:write", "admin", "manager")},
			},
		}},
		MainContent: []plugin.Content{{
			ID:          "assets-main",
			Path:        "/assets",
			Target:      "assets/overview",
			Permissions: read,
		}},
		Initialize: lifecycleHook(AssetsID, "assets initialized"),
	}
}
