package cmd

import (
	"github.com/spf13/cobra"

	"github.com/doclens/doclens/internal/api"
	"github.com/doclens/doclens/internal/ui"
)

// repairOptions holds CLI flags for repair.
type repairOptions struct {
	format string // "text", "json"
}

func newRepairCmd() *cobra.Command {
	var opts repairOptions

	cmd := &cobra.Command{
		Use:   "repair [root]",
		Short: "Check and repair index stores",
		Long: `Scan a directory tree for index stores and repair corrupt ones.

Healthy stores are skipped without any writes. A corrupt store is
backed up, dumped, and rebuilt into a new file; if the dump or rebuild
fails, the original is quarantined and replaced with an empty
placeholder so lookups degrade instead of erroring.

With no argument the configured upload root is scanned.

Examples:
  doclens repair
  doclens repair ./uploads --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := ""
			if len(args) == 1 {
				root = args[0]
			}
			return runRepair(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runRepair(cmd *cobra.Command, root string, opts repairOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if root == "" {
		root = cfg.Paths.UploadRoot
	}

	svc := buildService(cfg)
	resp, err := svc.Repair(cmd.Context(), api.RepairRequest{ScanRoot: root})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return writeJSON(cmd, resp)
	}
	ui.NewRenderer(cmd.OutOrStdout(), noColor).RepairReport(resp)
	return nil
}
