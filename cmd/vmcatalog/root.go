package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/vmcatalog/auth"
	"github.com/jonwraymond/vmcatalog/store"
)

type rootOptions struct {
	configFile string
	stateFile  string
	output     string
	search     string
	page       int
	perPage    int
	timeout    time.Duration

	// account is set by login only.
	account string
}

// deps replaces external collaborators in tests.
type deps struct {
	identity auth.IdentityClient
}

func newRootCommand(d *deps) *cobra.Command {
	if d == nil {
		d = &deps{}
	}
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "vmcatalog",
		Short:         "Browse the Azure VM image catalog",
		Long:          "Browse Azure Marketplace virtual machine images by publisher, offer, SKU and version, and export image references as ARM, Terraform, Bicep or Ansible.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/vmcatalog/config.yaml)")
	flags.StringVar(&opts.stateFile, "state-file", "", "Path to state file (default: $XDG_STATE_HOME/vmcatalog/state.json)")
	flags.StringVarP(&opts.output, "output", "o", "table", "Output format (table|json|yaml)")
	flags.StringVar(&opts.search, "search", "", "Filter results by name or display name")
	flags.IntVar(&opts.page, "page", 1, "Page of results to show")
	flags.IntVar(&opts.perPage, "per-page", store.DefaultItemsPerPage, "Results per page")
	flags.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Overall command timeout")
	_ = flags.MarkHidden("state-file")

	rootCmd.AddCommand(
		newLoginCommand(opts, d),
		newLogoutCommand(opts, d),
		newSubscriptionsCommand(opts, d),
		newLocationsCommand(opts, d),
		newPublishersCommand(opts, d),
		newOffersCommand(opts, d),
		newSKUsCommand(opts, d),
		newVersionsCommand(opts, d),
		newExportCommand(opts),
		newHealthCommand(opts, d),
	)
	return rootCmd
}
