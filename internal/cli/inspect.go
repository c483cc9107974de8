package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rosetool/bagio"
)

const stampLayout = "2006-01-02 15:04:05"

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <bag>",
		Short: "List the topics, message types, and time span of a bag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := bagio.NewSession()
			defer session.Close()

			if err := session.Load(args[0], nil); err != nil {
				return err
			}

			topics, err := session.Topics()
			if err != nil {
				return err
			}
			conns, err := session.Connections()
			if err != nil {
				return err
			}
			counts, err := session.MessageCounts()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nTopics in %s:\n", args[0])
			fmt.Fprintf(out, "%-40s %-30s %8s\n", "Topic", "Message Type", "Messages")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, topic := range topics {
				fmt.Fprintf(out, "%-40s %-30s %8d\n", topic, conns[topic], counts[topic])
			}

			start, end, err := session.TimeRange()
			if err != nil {
				return err
			}
			if start.IsZero() && end.IsZero() {
				fmt.Fprintln(out, "\nTime range: empty")
				return nil
			}
			fmt.Fprintf(out, "\nTime range: %s - %s\n",
				start.Time().Format(stampLayout), end.Time().Format(stampLayout))
			return nil
		},
	}
}

func newTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics <bag>",
		Short: "Print the topic names of a bag, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session := bagio.NewSession()
			defer session.Close()

			if err := session.Load(args[0], nil); err != nil {
				return err
			}
			topics, err := session.Topics()
			if err != nil {
				return err
			}

			for _, topic := range topics {
				fmt.Fprintln(cmd.OutOrStdout(), topic)
			}
			return nil
		},
	}
}
