package cmd

import "github.com/spf13/cobra"

const AppName = "docworld"

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           AppName,
		Short:         "Keep an entity world in step with a replicated JSON document",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(NewLoadCmd())
	return rootCmd
}
