package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh a cached fact once and exit",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "weather",
			Short: "Fetch the weather and persist it",
			Args:  cobra.NoArgs,
			RunE:  runRefreshWeather,
		},
		&cobra.Command{
			Use:   "assets",
			Short: "Rebuild every agent's asset list",
			Args:  cobra.NoArgs,
			RunE:  runRefreshAssets,
		},
	)
	RootCmd.AddCommand(cmd)
}

func runRefreshWeather(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	out := a.RefreshWeather(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), out.Value)
	if !out.OK {
		return out.Err
	}
	return nil
}

func runRefreshAssets(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	agents, err := a.RefreshAssets(cmd.Context())
	if err != nil {
		return err
	}
	for _, agent := range agents {
		list, _ := a.Store().AssetList(agent)
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", agent, list)
	}
	return nil
}
