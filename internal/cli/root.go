package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root rose command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "rose",
		Short:        "ROS bag filter utility",
		Long:         `Rose slices ROS bag recordings offline: list the topics and time span of a bag, then re-export a topic subset or a time window into a new bag without decoding message payloads.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newInspectCmd(),
		newTopicsCmd(),
		newFilterCmd(),
	)

	return root
}
