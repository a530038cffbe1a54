package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/s0up4200/octolist/bulk"
	"github.com/s0up4200/octolist/octopus"
)

var (
	importFile        string
	importConcurrency int
	importDryRun      bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Subscribe every address in a file to a list",
	Long: `Subscribe every address in a file to a list.

The file holds one address per line. Blank lines and lines starting with #
are ignored. Invalid addresses are reported and skipped. Use - to read from
standard input.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "address file (- for stdin)")
	importCmd.Flags().IntVarP(&importConcurrency, "concurrency", "c", 0, "parallel requests (default is bulk.concurrency)")
	importCmd.Flags().BoolVarP(&importDryRun, "dry-run", "d", false, "validate the file without subscribing anyone")
	importCmd.Flags().StringVar(&contactStatus, "status", "", "initial status (default is decided by the list)")
	importCmd.Flags().StringArrayVarP(&contactFields, "field", "F", nil, "custom field as TAG=VALUE applied to every contact")
	addListFlag(importCmd)
	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, args []string) error {
	list, err := resolveList()
	if err != nil {
		return err
	}
	opts, err := contactOptions()
	if err != nil {
		return err
	}

	emails, err := readAddressFile(cmd, importFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if importDryRun {
		fmt.Fprintf(out, "Dry run: %d addresses would be subscribed to %s\n", len(emails), list)
		return nil
	}
	if len(emails) == 0 {
		fmt.Fprintln(out, "No valid addresses found.")
		return nil
	}

	concurrency := importConcurrency
	if concurrency == 0 {
		concurrency = cfg.Bulk.Concurrency
	}

	logger.Info().
		Int("addresses", len(emails)).
		Str("list", list.String()).
		Int("concurrency", concurrency).
		Msg("Starting import")

	processor := bulk.NewProcessor(client, concurrency, logger)
	result, err := processor.Subscribe(cmd.Context(), list, emails, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nImported %d addresses:\n", result.Requested)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "Subscribed:          %d\n", result.Subscribed)
	fmt.Fprintf(out, "Pending:             %d\n", result.Pending)
	fmt.Fprintf(out, "Already subscribed:  %d\n", result.AlreadySubscribed)

	failed := result.Failed()
	if len(failed) > 0 {
		fmt.Fprintf(out, "Failed:              %d\n", len(failed))
		for _, o := range failed {
			fmt.Fprintf(out, "  • %s: %v\n", o.Email, o.Err)
		}
		return fmt.Errorf("%d of %d addresses could not be subscribed", len(failed), result.Requested)
	}

	return nil
}

// readAddressFile reads and validates an address file, logging the lines
// that were skipped
func readAddressFile(cmd *cobra.Command, path string) ([]octopus.EmailAddress, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open address file: %w", err)
		}
		defer f.Close()
		r = f
	}

	emails, invalid, err := bulk.ReadAddresses(r)
	if err != nil {
		return nil, err
	}

	for _, lineErr := range invalid {
		logger.Warn().
			Int("line", lineErr.Line).
			Str("value", lineErr.Value).
			Msg("Skipping invalid address")
	}
	if len(invalid) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d invalid lines\n", len(invalid))
	}

	return emails, nil
}
