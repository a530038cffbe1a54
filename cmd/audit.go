package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/octolist/bulk"
	"github.com/s0up4200/octolist/filter"
	"github.com/s0up4200/octolist/octopus"
)

var (
	auditFile   string
	filterExpr  string
	presetName  string
	listPresets bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Look up addresses and report the contacts matching a filter",
	Long: `Look up every address in a file and print the contacts matching a filter.

Filters are expr expressions evaluated per contact. Available names:
  email, domain, id, status, createdAt, fields
  subscribed, pending, unsubscribed, cleaned
  hasField(tag), field(tag)
  daysSince(t), daysAgo(n), monthsAgo(n), parseDate("2006-01-02"), now()
  containsFold(s, sub), hasPrefixFold(s, p), hasSuffixFold(s, p), lower(s), upper(s)
  and the operators contains, startsWith, endsWith, matches, in

Example:
  octolist audit -f addresses.txt --filter 'pending and daysSince(createdAt) > 30'`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVarP(&auditFile, "file", "f", "", "address file (- for stdin)")
	auditCmd.Flags().StringVar(&filterExpr, "filter", "", "filter expression")
	auditCmd.Flags().StringVarP(&presetName, "preset", "p", "", "use a preset filter from config")
	auditCmd.Flags().BoolVar(&listPresets, "list-presets", false, "print configured presets and exit")
	addListFlag(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if listPresets {
		for _, name := range filters.ListFilters() {
			f, _ := filters.GetFilter(name)
			fmt.Fprintf(out, "%s\t%s\n", name, f.Expression())
		}
		return nil
	}

	if auditFile == "" {
		return fmt.Errorf("--file is required")
	}
	list, err := resolveList()
	if err != nil {
		return err
	}

	compiled, err := getFilter()
	if err != nil {
		return err
	}

	emails, err := readAddressFile(cmd, auditFile)
	if err != nil {
		return err
	}

	logger.Info().
		Str("filter", compiled.Expression()).
		Int("addresses", len(emails)).
		Msg("Auditing contacts")

	found, err := bulk.NewProcessor(client, cfg.Bulk.Concurrency, logger).Find(cmd.Context(), list, emails)
	if err != nil {
		return err
	}
	for _, o := range found.Failed() {
		fmt.Fprintf(cmd.ErrOrStderr(), "lookup failed for %s: %v\n", o.Email, o.Err)
	}

	sel, err := selectContacts(cmd, found.Contacts())
	if err != nil {
		return err
	}
	for _, evalErr := range sel.Errors {
		logger.Warn().Err(evalErr.Err).Str("email", evalErr.Email).Msg("Filter could not be evaluated")
	}

	if len(sel.Matches) == 0 {
		fmt.Fprintln(out, "No contacts found matching the filter criteria.")
	} else {
		fmt.Fprintf(out, "\nFound %d contacts:\n", len(sel.Matches))
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, c := range sel.Matches {
			fmt.Fprintf(out, "• %s [%s] created %s\n", c.EmailAddress(), c.Status(), c.CreatedAt().Format("2006-01-02"))
		}
	}

	fmt.Fprintf(out, "\n%d looked up, %d found, %d not on list, %d failed\n",
		found.Requested, found.Found, found.Missing, len(found.Failed()))

	return nil
}

// selectContacts applies the chosen filter through the manager
func selectContacts(cmd *cobra.Command, contacts []*octopus.Contact) (filter.Selection, error) {
	if filterExpr != "" {
		return filters.SelectExpression(cmd.Context(), filterExpr, contacts)
	}
	return filters.Select(cmd.Context(), strings.ToLower(presetName), contacts)
}

// getFilter determines the filter to use. An explicit expression wins over
// a preset.
func getFilter() (filter.CompiledFilter, error) {
	if filterExpr != "" {
		f, err := filters.Compile(filterExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression: %w", err)
		}
		return f, nil
	}

	if presetName != "" {
		if f, ok := filters.GetFilter(strings.ToLower(presetName)); ok {
			return f, nil
		}
		return nil, fmt.Errorf("preset '%s' not found in config", presetName)
	}

	return nil, fmt.Errorf("no filter expression specified: use --filter or --preset")
}
