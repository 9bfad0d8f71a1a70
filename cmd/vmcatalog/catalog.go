package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/vmcatalog/arm"
	"github.com/jonwraymond/vmcatalog/iac"
	"github.com/jonwraymond/vmcatalog/store"
)

func newPublishersCommand(opts *rootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "publishers",
		Short: "List image publishers in the selected location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return signedIn(cmd, opts, d, func(ctx context.Context, a *app) error {
				if err := a.coord.LoadPublishers(ctx); err != nil {
					return err
				}
				return showLevel(a, opts, levelView[arm.Publisher]{
					level:    store.LevelPublishers,
					visible:  a.store.VisiblePublishers,
					filtered: a.store.FilteredPublishers,
					header:   []string{"Name", "Display Name"},
					cells: func(p arm.Publisher) []string {
						return []string{p.Name, p.DisplayName}
					},
					empty: "No publishers found in " + a.store.Snapshot().SelectedLocation,
				})
			})
		},
	}
}

func newOffersCommand(opts *rootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "offers PUBLISHER",
		Short: "List the offers of a publisher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, opts, d, func(ctx context.Context, a *app) error {
				if err := a.coord.LoadOffers(ctx, args[0]); err != nil {
					return err
				}
				return showLevel(a, opts, levelView[arm.Offer]{
					level:    store.LevelOffers,
					visible:  a.store.VisibleOffers,
					filtered: a.store.FilteredOffers,
					header:   []string{"Name", "Display Name"},
					cells: func(o arm.Offer) []string {
						return []string{o.Name, o.DisplayName}
					},
					empty: "No offers found for " + args[0],
				})
			})
		},
	}
}

func newSKUsCommand(opts *rootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "skus PUBLISHER OFFER",
		Short: "List the SKUs of an offer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, opts, d, func(ctx context.Context, a *app) error {
				if err := a.coord.LoadSKUs(ctx, args[0], args[1]); err != nil {
					return err
				}
				return showLevel(a, opts, levelView[arm.SKU]{
					level:    store.LevelSKUs,
					visible:  a.store.VisibleSKUs,
					filtered: a.store.FilteredSKUs,
					header:   []string{"Name", "Display Name"},
					cells: func(s arm.SKU) []string {
						return []string{s.Name, s.DisplayName}
					},
					empty: fmt.Sprintf("No SKUs found for %s/%s", args[0], args[1]),
				})
			})
		},
	}
}

func newVersionsCommand(opts *rootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "versions PUBLISHER OFFER SKU",
		Short: "List the image versions of a SKU, latest first",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return signedIn(cmd, opts, d, func(ctx context.Context, a *app) error {
				versions, err := a.coord.LoadVersions(ctx, args[0], args[1], args[2])
				if err != nil {
					return err
				}
				if a.printer.structured() {
					return a.printer.value(versions)
				}
				if len(versions) == 0 {
					a.printer.line("No versions found for %s", strings.Join(args, "/"))
					return nil
				}
				rows := make([]row, 0, len(versions))
				for i, v := range versions {
					rows = append(rows, row{cells: []string{v, marker(i == 0)}, highlighted: i == 0})
				}
				a.printer.table([]string{"Version", "Latest"}, rows)
				return nil
			})
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export PUBLISHER OFFER SKU [VERSION]",
		Short: "Print an image reference as infrastructure code",
		Long:  "Print an image reference as an ARM template, Terraform, Bicep or Ansible snippet. VERSION defaults to \"latest\".",
		Example: `  vmcatalog export Canonical 0001-com-ubuntu-server-jammy 22_04-lts-gen2
  vmcatalog export Canonical 0001-com-ubuntu-server-jammy 22_04-lts-gen2 22.04.202401010 --format bicep`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPrinter(cmd.OutOrStdout(), opts.output)
			if err != nil {
				return err
			}
			ref := iac.ImageReference{Publisher: args[0], Offer: args[1], SKU: args[2], Version: "latest"}
			if len(args) == 4 {
				ref.Version = args[3]
			}
			if err := ref.Validate(); err != nil {
				return err
			}

			snippets, err := renderSnippets(ref, format)
			if err != nil {
				return err
			}
			if p.structured() {
				out := make([]snippetView, 0, len(snippets))
				for _, s := range snippets {
					out = append(out, snippetView{Format: s.Format.String(), Text: s.Text})
				}
				return p.value(out)
			}
			if len(snippets) == 1 {
				p.line("%s", snippets[0].Text)
				return nil
			}
			for i, s := range snippets {
				if i > 0 {
					p.line("")
				}
				p.line("== %s ==", s.Format.Title())
				p.line("%s", s.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "terraform", "Snippet format (arm|terraform|bicep|ansible|all)")
	return cmd
}

type snippetView struct {
	Format string `json:"format"`
	Text   string `json:"text"`
}

func renderSnippets(ref iac.ImageReference, format string) ([]iac.Snippet, error) {
	if strings.EqualFold(format, "all") {
		return iac.RenderAll(ref)
	}
	f, err := iac.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	text, err := iac.Render(ref, f)
	if err != nil {
		return nil, err
	}
	return []iac.Snippet{{Format: f, Text: text}}, nil
}

// levelView describes how to print one catalog level.
type levelView[T any] struct {
	level    store.Level
	visible  func() []T
	filtered func() []T
	header   []string
	cells    func(T) []string
	empty    string
}

// showLevel applies the search and paging flags to the loaded level and
// prints the resulting page.
func showLevel[T any](a *app, opts *rootOptions, v levelView[T]) error {
	st := a.store
	st.SetSearchQuery(opts.search)
	st.SetItemsPerPage(v.level, opts.perPage)
	st.SetPage(v.level, opts.page)

	total := st.TotalPagesFor(v.level)
	if page := st.Page(v.level).CurrentPage; page != opts.page {
		return fmt.Errorf("page %d is out of range, %s has %d page(s)", opts.page, v.level, total)
	}

	items := v.visible()
	if items == nil {
		items = []T{}
	}
	matched := len(v.filtered())
	if a.printer.structured() {
		return a.printer.value(pageView[T]{
			Items:      items,
			Page:       opts.page,
			TotalPages: total,
			Matched:    matched,
		})
	}

	if len(items) == 0 {
		msg := v.empty
		if opts.search != "" {
			msg = fmt.Sprintf("No %s match %q", v.level, opts.search)
		}
		a.printer.line("%s", msg)
		return nil
	}
	rows := make([]row, 0, len(items))
	for _, item := range items {
		rows = append(rows, row{cells: v.cells(item)})
	}
	a.printer.table(v.header, rows)
	a.printer.pageFooter(opts.page, total, len(items), matched)
	return nil
}
