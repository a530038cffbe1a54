package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/octolist/octopus"
)

var (
	contactStatus string
	contactFields []string
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage contacts on a mailing list",
}

var contactsGetCmd = &cobra.Command{
	Use:   "get <email>",
	Short: "Show a contact",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsGet,
}

var contactsAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Add a contact, failing if it already exists",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsAdd,
}

var contactsSubscribeCmd = &cobra.Command{
	Use:   "subscribe <email>...",
	Short: "Subscribe addresses, reporting existing contacts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContactsSubscribe,
}

var contactsStatusCmd = &cobra.Command{
	Use:   "status <email> <status>",
	Short: "Change the subscription status of a contact",
	Long: `Change the subscription status of a contact.

Valid statuses are SUBSCRIBED, UNSUBSCRIBED, PENDING and CLEANED.`,
	Args: cobra.ExactArgs(2),
	RunE: runContactsStatus,
}

var contactsUnsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <email>...",
	Short: "Unsubscribe addresses; addresses not on the list are ignored",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContactsUnsubscribe,
}

var contactsDeleteCmd = &cobra.Command{
	Use:   "delete <email>",
	Short: "Remove a contact from a list",
	Args:  cobra.ExactArgs(1),
	RunE:  runContactsDelete,
}

var contactsCheckCmd = &cobra.Command{
	Use:   "check <email>...",
	Short: "Report whether addresses are subscribed",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runContactsCheck,
}

func init() {
	rootCmd.AddCommand(contactsCmd)
	contactsCmd.AddCommand(
		contactsGetCmd,
		contactsAddCmd,
		contactsSubscribeCmd,
		contactsStatusCmd,
		contactsUnsubscribeCmd,
		contactsDeleteCmd,
		contactsCheckCmd,
	)

	for _, c := range contactsCmd.Commands() {
		addListFlag(c)
	}

	addOutputFlag(contactsGetCmd)

	for _, c := range []*cobra.Command{contactsAddCmd, contactsSubscribeCmd} {
		c.Flags().StringVar(&contactStatus, "status", "", "initial status (default is decided by the list)")
		c.Flags().StringArrayVarP(&contactFields, "field", "F", nil, "custom field as TAG=VALUE (repeatable)")
	}
}

func runContactsGet(cmd *cobra.Command, args []string) error {
	list, email, err := listAndEmail(args[0])
	if err != nil {
		return err
	}

	contact, err := client.FindListContactByEmailAddress(cmd.Context(), email, list)
	if err != nil {
		return err
	}

	if done, err := encode(cmd.OutOrStdout(), outputFormat, newContactView(contact)); done || err != nil {
		return err
	}
	printContact(cmd, contact)
	return nil
}

func runContactsAdd(cmd *cobra.Command, args []string) error {
	list, email, err := listAndEmail(args[0])
	if err != nil {
		return err
	}

	opts, err := contactOptions()
	if err != nil {
		return err
	}

	contact, err := client.AddContactToList(cmd.Context(), email, list, opts...)
	if err != nil {
		return err
	}

	printContact(cmd, contact)
	return nil
}

func runContactsSubscribe(cmd *cobra.Command, args []string) error {
	list, err := resolveList()
	if err != nil {
		return err
	}
	emails, err := parseEmails(args)
	if err != nil {
		return err
	}
	opts, err := contactOptions()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, email := range emails {
		result, err := client.Subscribe(cmd.Context(), email, list, opts...)
		if err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", email, err)
		}
		fmt.Fprintf(out, "%s\t%s\n", email, result)
	}
	return nil
}

func runContactsStatus(cmd *cobra.Command, args []string) error {
	list, email, err := listAndEmail(args[0])
	if err != nil {
		return err
	}
	status, err := octopus.ParseSubscriptionStatus(args[1])
	if err != nil {
		return err
	}

	contact, err := client.ChangeSubscriptionStatus(cmd.Context(), email, list, status)
	if err != nil {
		return err
	}

	printContact(cmd, contact)
	return nil
}

func runContactsUnsubscribe(cmd *cobra.Command, args []string) error {
	list, err := resolveList()
	if err != nil {
		return err
	}
	emails, err := parseEmails(args)
	if err != nil {
		return err
	}

	for _, email := range emails {
		if err := client.Unsubscribe(cmd.Context(), email, list); err != nil {
			return fmt.Errorf("failed to unsubscribe %s: %w", email, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s unsubscribed\n", email)
	}
	return nil
}

func runContactsDelete(cmd *cobra.Command, args []string) error {
	list, email, err := listAndEmail(args[0])
	if err != nil {
		return err
	}

	if err := client.DeleteListContact(cmd.Context(), email, list); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s from %s\n", email, list)
	return nil
}

func runContactsCheck(cmd *cobra.Command, args []string) error {
	list, err := resolveList()
	if err != nil {
		return err
	}
	emails, err := parseEmails(args)
	if err != nil {
		return err
	}

	for _, email := range emails {
		subscribed, err := client.IsSubscribed(cmd.Context(), email, list)
		if err != nil {
			return fmt.Errorf("failed to check %s: %w", email, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%t\n", email, subscribed)
	}
	return nil
}

func listAndEmail(rawEmail string) (octopus.ListID, octopus.EmailAddress, error) {
	list, err := resolveList()
	if err != nil {
		return octopus.ListID{}, octopus.EmailAddress{}, err
	}
	email, err := octopus.ParseEmailAddress(rawEmail)
	if err != nil {
		return octopus.ListID{}, octopus.EmailAddress{}, err
	}
	return list, email, nil
}

// contactOptions converts --status and --field flags. Field values that
// parse as integers are sent as numbers.
func contactOptions() ([]octopus.ContactOption, error) {
	var opts []octopus.ContactOption

	if contactStatus != "" {
		status, err := octopus.ParseSubscriptionStatus(contactStatus)
		if err != nil {
			return nil, err
		}
		opts = append(opts, octopus.WithStatus(status))
	}

	if len(contactFields) > 0 {
		fields, err := parseFields(contactFields)
		if err != nil {
			return nil, err
		}
		opts = append(opts, octopus.WithFields(fields))
	}

	return opts, nil
}

func parseFields(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		tag, value, ok := strings.Cut(pair, "=")
		tag = strings.TrimSpace(tag)
		if !ok || tag == "" {
			return nil, fmt.Errorf("invalid field %q: expected TAG=VALUE", pair)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			fields[tag] = n
			continue
		}
		fields[tag] = value
	}
	return fields, nil
}

func printContact(cmd *cobra.Command, contact *octopus.Contact) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s]\n", contact.EmailAddress(), contact.Status())
	fmt.Fprintf(out, "  ID:      %s\n", contact.ID())
	fmt.Fprintf(out, "  Created: %s\n", contact.CreatedAt().Format("2006-01-02"))
	fields := contact.Fields()
	for _, key := range fields.Keys() {
		v, _ := fields.Get(key)
		if v == nil {
			continue
		}
		fmt.Fprintf(out, "  %s: %v\n", key, v)
	}
}
