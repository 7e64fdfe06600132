package main

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/forge/internal/app"
	"github.com/felixgeelhaar/forge/internal/domain/config"
	"github.com/felixgeelhaar/forge/internal/domain/plugin"
	"github.com/spf13/cobra"
)

var pluginsCmd = &cobra.Command{
	Use:     "plugins",
	Aliases: []string{"plugin"},
	Short:   "Inspect registered plugins",
	Long: `Inspect the plugins registered with the host.

Examples:
  forge plugins list
  forge plugins info work-orders
  forge plugins plan inventory-management`,
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins with their lifecycle state",
	Args:  cobra.NoArgs,
	RunE:  runPluginsList,
}

var pluginsInfoCmd = &cobra.Command{
	Use:               "info <id>",
	Short:             "Show a plugin's descriptor and state",
	Args:              cobra.ExactArgs(1),
	RunE:              runPluginsInfo,
	ValidArgsFunction: completePluginIDs,
}

var pluginsPlanCmd = &cobra.Command{
	Use:               "plan <id>",
	Short:             "Show the order plugins would load in",
	Args:              cobra.ExactArgs(1),
	RunE:              runPluginsPlan,
	ValidArgsFunction: completePluginIDs,
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsInfoCmd)
	pluginsCmd.AddCommand(pluginsPlanCmd)

	pluginsCmd.RunE = runPluginsList

	rootCmd.AddCommand(pluginsCmd)
}

// pluginView is the JSON shape of one plugin.
type pluginView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Version      string     `json:"version"`
	Description  string     `json:"description,omitempty"`
	Phase        string     `json:"phase"`
	Enabled      bool       `json:"enabled"`
	Loaded       bool       `json:"loaded"`
	LoadedAt     *time.Time `json:"loadedAt,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Dependents   []string   `json:"dependents,omitempty"`
	Error        string     `json:"error,omitempty"`
}

func newPluginView(reg *plugin.Registry, p plugin.Plugin) pluginView {
	v := pluginView{
		ID:          p.ID(),
		Name:        p.Descriptor.Name,
		Version:     p.Descriptor.Version,
		Description: p.Descriptor.Description,
		Phase:       string(p.State.Phase),
		Enabled:     p.State.Enabled,
		Loaded:      p.State.Loaded,
		Dependents:  reg.Dependents(p.ID()),
	}
	for _, dep := range p.Descriptor.Dependencies {
		v.Dependencies = append(v.Dependencies, dep.String())
	}
	if !p.State.LoadedAt.IsZero() {
		at := p.State.LoadedAt
		v.LoadedAt = &at
	}
	if p.State.LastError != nil {
		v.Error = p.State.LastError.Error()
	}
	return v
}

func runPluginsList(cmd *cobra.Command, _ []string) error {
	host, err := startHost(cmd)
	if err != nil {
		return err
	}
	defer stopHost(cmd, host)

	reg := host.Registry()
	plugins := reg.AllPlugins()
	out := cmd.OutOrStdout()

	if jsonOutput {
		views := make([]pluginView, 0, len(plugins))
		for _, p := range plugins {
			views = append(views, newPluginView(reg, p))
		}
		return writeJSON(out, views)
	}

	if len(plugins) == 0 {
		_, _ = fmt.Fprintln(out, "No plugins registered.")
		return nil
	}

	w := newTable(out)
	_, _ = fmt.Fprintln(w, "ID\tVERSION\tENABLED\tDEPENDENCIES\tPHASE")
	for _, p := range plugins {
		v := newPluginView(reg, p)
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Version, yesNo(v.Enabled), joinOrDash(v.Dependencies), phaseLabel(p.State.Phase))
	}
	return w.Flush()
}

func runPluginsInfo(cmd *cobra.Command, args []string) error {
	host, err := startHost(cmd)
	if err != nil {
		return err
	}
	defer stopHost(cmd, host)

	p, err := findPlugin(host, args[0])
	if err != nil {
		return err
	}

	v := newPluginView(host.Registry(), p)
	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, struct {
			pluginView
			Descriptor *plugin.Descriptor `json:"descriptor"`
		}{v, p.Descriptor})
	}

	printHeading(out, v.Name)
	w := newTable(out)
	_, _ = fmt.Fprintf(w, "ID:\t%s\n", v.ID)
	_, _ = fmt.Fprintf(w, "Version:\t%s\n", v.Version)
	if v.Description != "" {
		_, _ = fmt.Fprintf(w, "Description:\t%s\n", v.Description)
	}
	_, _ = fmt.Fprintf(w, "Phase:\t%s\n", phaseLabel(p.State.Phase))
	_, _ = fmt.Fprintf(w, "Enabled:\t%s\n", yesNo(v.Enabled))
	if v.LoadedAt != nil {
		_, _ = fmt.Fprintf(w, "Loaded at:\t%s\n", v.LoadedAt.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "Dependencies:\t%s\n", joinOrDash(v.Dependencies))
	_, _ = fmt.Fprintf(w, "Dependents:\t%s\n", joinOrDash(v.Dependents))
	if v.Error != "" {
		_, _ = fmt.Fprintf(w, "Last error:\t%s\n", errorStyle.Render(v.Error))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	d := p.Descriptor
	_, _ = fmt.Fprintln(out)
	printHeading(out, "contributions")
	w = newTable(out)
	for _, c := range d.Contributions() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Kind(), c.ContributionID(), joinOrDash(c.RequiredPermissions()))
	}
	return w.Flush()
}

func runPluginsPlan(cmd *cobra.Command, args []string) error {
	host, err := startHost(cmd)
	if err != nil {
		return err
	}
	defer stopHost(cmd, host)

	if _, err := findPlugin(host, args[0]); err != nil {
		return err
	}

	order, err := host.Registry().Plan(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, order)
	}
	for i, id := range order {
		_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, id)
	}
	return nil
}

// findPlugin resolves id, turning a miss into a user error listing the
// registered ids.
func findPlugin(host *app.Host, id string) (plugin.Plugin, error) {
	reg := host.Registry()
	all := reg.AllPlugins()
	for _, p := range all {
		if p.ID() == id {
			return p, nil
		}
	}

	available := make([]string, 0, len(all))
	for _, p := range all {
		available = append(available, p.ID())
	}
	return plugin.Plugin{}, config.NewPluginNotFoundError(id, available)
}

func completePluginIDs(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	host, err := app.NewHost(cfg)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer func() { _ = host.Shutdown(commandContext(cmd)) }()

	var ids []string
	for _, p := range host.Registry().AllPlugins() {
		ids = append(ids, p.ID()+"\t"+p.Descriptor.Name)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}
