package modules

import "github.com/felixgeelhaar/forge/internal/domain/plugin"

// Dashboard is the landing overview. It has no dependencies.
func Dashboard() *plugin.Descriptor {
	perms := []string{"dashboard:read"}
	return &plugin.Descriptor{
		ID:          DashboardID,
		Name:        "Dashboard",
		Version:     "1.0.0",
		Description: "Main dashboard and overview",
		Tabs: []plugin.Tab{{
			ID:          "dashboard-overview",
			Label:       "Overview",
			Icon:        "layout-dashboard",
			Target:      "dashboard/overview",
			Permissions: perms,
		}},
		SidebarPanels: []plugin.Panel{{
			ID:          "dashboard-analytics",
			Title:       "Quick Analytics",
			Icon:        "trending-up",
			Target:      "dashboard/analytics",
			Collapsible: true,
			Permissions: perms,
		}},
		NavigationItems: []plugin.NavItem{{
			ID:          "dashboard-nav",
			Label:       "Dashboard",
			Icon:        "layout-dashboard",
			URL:         "/dashboard",
			Permissions: perms,
		}},
		MainContent: []plugin.Content{{
			ID:          "dashboard-main",
			Path:        "/dashboard",
			Target:      "dashboard/overview",
			Permissions: perms,
		}},
		Initialize: lifecycleHook(DashboardID, "dashboard initialized"),
	}
}
