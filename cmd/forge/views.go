package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/forge/internal/app"
	"github.com/felixgeelhaar/forge/internal/domain/permission"
	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/spf13/cobra"
)

var viewsCmd = &cobra.Command{
	Use:   "views [tabs|panels|nav|content]",
	Short: "Show the contributions a credential may see",
	Long: `Show the tabs, sidebar panels, navigation and routed content visible to
an operator. The credential comes from --tenant, --role and --permission,
or from the credential section of the configuration. Without either, only
unrestricted contributions are shown.

Examples:
  forge views
  forge views tabs --tenant acme --role technician
  forge views nav --tenant acme --permission asset:read --permission workorder:read`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"tabs", "panels", "nav", "content"},
	RunE:      runViews,
}

// Flags
var (
	viewsUser        string
	viewsTenant      string
	viewsRoles       []string
	viewsPermissions []string
)

func init() {
	viewsCmd.Flags().StringVar(&viewsUser, "user", "", "user id recorded on the credential")
	viewsCmd.Flags().StringVar(&viewsTenant, "tenant", "", "tenant the operator acts for")
	viewsCmd.Flags().StringSliceVar(&viewsRoles, "role", nil, "role held by the operator (repeatable)")
	viewsCmd.Flags().StringSliceVar(&viewsPermissions, "permission", nil, "permission held by the operator (repeatable)")

	rootCmd.AddCommand(viewsCmd)
}

var viewKinds = []struct {
	arg   string
	title string
	kind  plugin.Kind
}{
	{"tabs", "tabs", plugin.KindTab},
	{"panels", "sidebar panels", plugin.KindPanel},
	{"nav", "navigation", plugin.KindNav},
	{"content", "main content", plugin.KindContent},
}

// viewCredential prefers the command line over the configured credential.
func viewCredential(host *app.Host) *permission.Credential {
	if viewsTenant == "" && len(viewsRoles) == 0 && len(viewsPermissions) == 0 {
		return host.Credential()
	}
	cred := permission.NewCredential(viewsTenant, viewsRoles, viewsPermissions)
	if viewsUser != "" {
		cred = cred.WithUser(viewsUser)
	}
	return cred
}

func runViews(cmd *cobra.Command, args []string) error {
	host, err := startHost(cmd)
	if err != nil {
		return err
	}
	defer stopHost(cmd, host)

	reg := host.Registry()
	cred := viewCredential(host)
	out := cmd.OutOrStdout()

	if jsonOutput {
		result := map[string]any{}
		for _, k := range viewKinds {
			if len(args) == 0 || args[0] == k.arg {
				result[k.arg] = viewJSON(reg, cred, k.kind)
			}
		}
		return writeJSON(out, result)
	}

	who := "anonymous"
	if cred != nil {
		who = cred.String()
	}
	_, _ = fmt.Fprintf(out, "Visible to %s\n", who)

	for _, k := range viewKinds {
		if len(args) > 0 && args[0] != k.arg {
			continue
		}
		_, _ = fmt.Fprintln(out)
		printHeading(out, k.title)
		printContributions(out, reg.Contributions(cred, k.kind))
	}
	return nil
}

// viewJSON returns the typed slice so field names and tags survive encoding.
func viewJSON(reg *plugin.Registry, cred *permission.Credential, kind plugin.Kind) any {
	switch kind {
	case plugin.KindTab:
		return nonNil(reg.Tabs(cred))
	case plugin.KindPanel:
		return nonNil(reg.SidebarPanels(cred))
	case plugin.KindNav:
		return nonNil(reg.NavigationItems(cred))
	default:
		return nonNil(reg.MainContent(cred))
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func printContributions(w io.Writer, items []plugin.Contribution) {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, mutedStyle.Render("  (none)"))
		return
	}

	tw := newTable(w)
	for _, c := range items {
		switch v := c.(type) {
		case plugin.Tab:
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", v.ID, v.Label, v.Target)
		case plugin.Panel:
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", v.ID, v.Title, v.Target)
		case plugin.NavItem:
			printNav(tw, v, 1)
		case plugin.Content:
			_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", v.ID, v.Path, v.Target)
		}
	}
	_ = tw.Flush()
}

func printNav(w io.Writer, item plugin.NavItem, depth int) {
	_, _ = fmt.Fprintf(w, "%s%s\t%s\t%s\n", strings.Repeat("  ", depth), item.ID, item.Label, item.URL)
	for _, child := range item.Items {
		printNav(w, child, depth+1)
	}
}
