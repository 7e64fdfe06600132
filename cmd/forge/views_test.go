package main

import (
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/forge/internal/domain/permission"
	"github.com/felixgeelhaar/forge/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type viewsJSON struct {
	Tabs []struct {
		ID string `json:"id"`
	} `json:"tabs"`
	Panels []struct {
		ID string `json:"id"`
	} `json:"panels"`
	Nav []struct {
		ID    string `json:"id"`
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	} `json:"nav"`
	Content []struct {
		ID   string `json:"id"`
		Path string `json:"path"`
	} `json:"content"`
}

func decodeViews(t *testing.T, stdout string) viewsJSON {
	t.Helper()
	var v viewsJSON
	require.NoError(t, json.Unmarshal([]byte(stdout), &v))
	return v
}

func TestViews_Anonymous(t *testing.T) {
	path := writeConfig(t, testutil.NewConfigBuilder())

	stdout, _, err := executeCommand(t, "views", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Visible to anonymous")
	assert.Contains(t, stdout, "Sidebar Panels")
	assert.Contains(t, stdout, "(none)")
	assert.NotContains(t, stdout, "assets-overview")
}

func TestViews_FlagCredential(t *testing.T) {
	path := writeConfig(t, testutil.NewConfigBuilder())

	stdout, _, err := executeCommand(t, "views", "tabs", "--config", path,
		"--tenant", "acme", "--permission", "asset:read")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Visible to acme")
	assert.Contains(t, stdout, "assets-overview")
	assert.NotContains(t, stdout, "dashboard-overview")
	assert.NotContains(t, stdout, "Navigation", "only the requested kind is shown")
}

func TestViews_NestedNav(t *testing.T) {
	path := writeConfig(t, testutil.NewConfigBuilder())

	stdout, _, err := executeCommand(t, "views", "nav", "--config", path,
		"--tenant", "acme", "--role", permission.RoleAdmin)
	require.NoError(t, err)

	assert.Contains(t, stdout, "assets-nav")
	assert.Contains(t, stdout, "    assets-categories", "children are indented under their parent")
}

func TestViews_ConfigCredential(t *testing.T) {
	path := writeConfig(t, testutil.NewConfigBuilder().
		WithCredential("dana", "acme", "technician").
		WithRole("acme", "technician", "asset:read", "workorder:read"))

	stdout, _, err := executeCommand(t, "views", "--config", path, "--json")
	require.NoError(t, err)

	v := decodeViews(t, stdout)
	var tabs []string
	for _, tab := range v.Tabs {
		tabs = append(tabs, tab.ID)
	}
	assert.Equal(t, []string{"assets-overview", "work-orders-overview"}, tabs)
	require.Len(t, v.Content, 2)
	assert.Equal(t, "assets-main", v.Content[0].ID)
}

func TestViews_FlagsOverrideConfig(t *testing.T) {
	path := writeConfig(t, testutil.NewConfigBuilder().
		WithCredential("dana", "acme").
		WithPermissions("dashboard:read"))

	stdout, _, err := executeCommand(t, "views", "panels", "--config", path, "--json",
		"--tenant", "acme", "--role", permission.RoleAdmin)
	require.NoError(t, err)

	v := decodeViews(t, stdout)
	assert.Len(t, v.Panels, 5)
	assert.Nil(t, v.Tabs, "only the requested kind is encoded")
}

func TestViews_EmptyKindIsArray(t *testing.T) {
	path := writeConfig(t, testutil.NewConfigBuilder())

	stdout, _, err := executeCommand(t, "views", "tabs", "--config", path, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tabs": []}`, stdout)
}

func TestViews_InvalidKind(t *testing.T) {
	_, _, err := executeCommand(t, "views", "widgets")
	assert.Error(t, err)
}
