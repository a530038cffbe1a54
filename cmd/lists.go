package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/octolist/octopus"
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Manage mailing lists",
}

var listsGetCmd = &cobra.Command{
	Use:   "get <list-id>",
	Short: "Show a mailing list",
	Args:  cobra.ExactArgs(1),
	RunE:  runListsGet,
}

var listsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a mailing list and print its id",
	Args:  cobra.ExactArgs(1),
	RunE:  runListsCreate,
}

var listsDeleteCmd = &cobra.Command{
	Use:   "delete <list-id>",
	Short: "Delete a mailing list and all of its contacts",
	Args:  cobra.ExactArgs(1),
	RunE:  runListsDelete,
}

var yesFlag bool

func init() {
	rootCmd.AddCommand(listsCmd)
	listsCmd.AddCommand(listsGetCmd, listsCreateCmd, listsDeleteCmd)

	addOutputFlag(listsGetCmd)
	listsDeleteCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "skip confirmation prompt")
}

func runListsGet(cmd *cobra.Command, args []string) error {
	id, err := octopus.ParseListID(args[0])
	if err != nil {
		return err
	}

	list, err := client.FindMailingListByID(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if done, err := encode(out, outputFormat, newListView(list)); done || err != nil {
		return err
	}

	fmt.Fprintf(out, "%s (%s)\n", list.Name(), list.ID())
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "Double opt-in: %s\n", boolToStatus(list.DoubleOptIn()))
	if !list.CreatedAt().IsZero() {
		fmt.Fprintf(out, "Created:       %s\n", list.CreatedAt().Format("2006-01-02"))
	}
	counts := list.Counts()
	fmt.Fprintf(out, "Subscribed:    %d\n", counts.Subscribed)
	fmt.Fprintf(out, "Pending:       %d\n", counts.Pending)
	fmt.Fprintf(out, "Unsubscribed:  %d\n", counts.Unsubscribed)

	if fields := list.Fields(); len(fields) > 0 {
		fmt.Fprintln(out, "\nFields:")
		for _, f := range fields {
			fmt.Fprintf(out, "  • %s (%s) %s\n", f.Tag, f.Type, f.Label)
		}
	}

	return nil
}

func runListsCreate(cmd *cobra.Command, args []string) error {
	id, err := client.CreateMailingList(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func runListsDelete(cmd *cobra.Command, args []string) error {
	id, err := octopus.ParseListID(args[0])
	if err != nil {
		return err
	}

	if !yesFlag && !confirm(cmd, fmt.Sprintf("Delete list %s and all of its contacts?", id)) {
		logger.Info().Msg("Deletion cancelled")
		return nil
	}

	if err := client.DeleteMailingList(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted list %s\n", id)
	return nil
}

func boolToStatus(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}

// confirm asks a yes/no question on the command's input
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	var response string
	_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}
