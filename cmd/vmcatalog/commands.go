package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/vmcatalog/health"
	"github.com/jonwraymond/vmcatalog/observe"
	"github.com/jonwraymond/vmcatalog/session"
)

func newLoginCommand(opts *rootOptions, d *deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Azure",
		Long:  "Sign in with a cached account, or interactively in the browser, then load subscriptions and locations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, d, func(ctx context.Context, a *app) error {
				if err := a.coord.Login(ctx); err != nil {
					return explain(err)
				}
				st := a.store.Snapshot()
				if a.printer.structured() {
					return a.printer.value(struct {
						User          any `json:"user"`
						Subscriptions int `json:"subscriptions"`
					}{st.User, len(st.Subscriptions)})
				}
				a.printer.line("Signed in as %s (tenant %s)", orDash(st.User.Name), orDash(st.User.TenantID))
				a.printer.line("%d subscription(s) available", len(st.Subscriptions))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.account, "account", "", "Sign in as this user name, prompting when it is not cached")
	return cmd
}

func newLogoutCommand(opts *rootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget cached accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, d, func(ctx context.Context, a *app) error {
				if err := a.coord.Logout(ctx); err != nil {
					return err
				}
				a.printer.line("Signed out")
				return nil
			})
		},
	}
}

func newSubscriptionsCommand(opts *rootOptions, d *deps) *cobra.Command {
	list := func(cmd *cobra.Command, _ []string) error {
		return signedIn(cmd, opts, d, func(_ context.Context, a *app) error {
			st := a.store.Snapshot()
			if a.printer.structured() {
				return a.printer.value(st.Subscriptions)
			}
			if len(st.Subscriptions) == 0 {
				a.printer.line("No subscriptions found")
				return nil
			}
			rows := make([]row, 0, len(st.Subscriptions))
			for _, sub := range st.Subscriptions {
				selected := sub.SubscriptionID == st.SelectedSubscription
				rows = append(rows, row{
					cells:       []string{marker(selected), sub.SubscriptionID, sub.DisplayName, sub.State, orDash(sub.TenantID)},
					highlighted: selected,
				})
			}
			a.printer.table([]string{"", "ID", "Name", "State", "Tenant"}, rows)
			return nil
		})
	}

	cmd := &cobra.Command{
		Use:     "subscriptions",
		Aliases: []string{"subs"},
		Short:   "List or select subscriptions",
		Args:    cobra.NoArgs,
		RunE:    list,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List subscriptions",
			Args:  cobra.NoArgs,
			RunE:  list,
		},
		&cobra.Command{
			Use:   "use ID",
			Short: "Select the subscription to browse",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return signedIn(cmd, opts, d, func(ctx context.Context, a *app) error {
					if err := a.coord.SelectSubscription(ctx, args[0]); err != nil {
						return explain(err)
					}
					st := a.store.Snapshot()
					a.printer.line("Using subscription %s in %s", st.SelectedSubscription, st.SelectedLocation)
					return nil
				})
			},
		},
	)
	return cmd
}

func newLocationsCommand(opts *rootOptions, d *deps) *cobra.Command {
	list := func(cmd *cobra.Command, _ []string) error {
		return signedIn(cmd, opts, d, func(_ context.Context, a *app) error {
			st := a.store.Snapshot()
			if a.printer.structured() {
				return a.printer.value(st.Locations)
			}
			if len(st.Locations) == 0 {
				a.printer.line("No locations loaded, current location is %s", st.SelectedLocation)
				return nil
			}
			rows := make([]row, 0, len(st.Locations))
			for _, loc := range st.Locations {
				selected := loc.Name == st.SelectedLocation
				rows = append(rows, row{
					cells:       []string{marker(selected), loc.Name, loc.DisplayName, orDash(loc.RegionalDisplayName)},
					highlighted: selected,
				})
			}
			a.printer.table([]string{"", "Name", "Display Name", "Region"}, rows)
			return nil
		})
	}

	cmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"loc"},
		Short:   "List or select locations",
		Args:    cobra.NoArgs,
		RunE:    list,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List locations of the selected subscription",
			Args:  cobra.NoArgs,
			RunE:  list,
		},
		&cobra.Command{
			Use:   "use NAME",
			Short: "Select the location to browse",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return signedIn(cmd, opts, d, func(ctx context.Context, a *app) error {
					if err := a.coord.SelectLocation(ctx, args[0]); err != nil {
						return explain(err)
					}
					a.printer.line("Using location %s", a.store.Snapshot().SelectedLocation)
					return nil
				})
			},
		},
	)
	return cmd
}

func newHealthCommand(opts *rootOptions, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check sign-in and service health",
		Long:  "Check the access token and the circuit breakers of the catalog clients. Exits non-zero when a check is unhealthy.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, d, func(ctx context.Context, a *app) error {
				if err := a.coord.Resume(ctx); err != nil && !errors.Is(err, session.ErrNotSignedIn) {
					a.logger.Warn(ctx, "sign-in restore failed", observe.Field{Key: "error", Value: err})
				}

				report := a.coord.Health(ctx)
				if a.printer.structured() {
					if err := a.printer.value(report); err != nil {
						return err
					}
				} else {
					printReport(a.printer, report)
				}
				if !report.Healthy() {
					return errors.Newf("health check %s", report.Status)
				}
				return nil
			})
		},
	}
}

func printReport(p *printer, report health.Report) {
	p.line("Status: %s", report.Status)
	rows := make([]row, 0, len(report.Checks))
	for _, c := range report.Checks {
		msg := c.Message
		if c.Error != "" && c.Error != msg {
			msg = msg + ": " + c.Error
		}
		rows = append(rows, row{
			cells:       []string{c.Name, c.Status.String(), orDash(c.Duration), orDash(msg)},
			highlighted: c.Status == health.StatusHealthy,
		})
	}
	p.table([]string{"Check", "Status", "Duration", "Message"}, rows)
}

// explain turns session sentinels into actionable messages.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotSignedIn):
		return errors.New("not signed in, run \"vmcatalog login\" first")
	case errors.Is(err, session.ErrNotReady):
		return errors.New("no subscription selected, run \"vmcatalog subscriptions use ID\" first")
	case errors.Is(err, session.ErrStale):
		return errors.New("the selection changed while loading, try again")
	default:
		return err
	}
}
