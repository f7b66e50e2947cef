package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/medlens-dev/medlens/internal/cli/api"
)

const dateLayout = "2006-01-02"

// NewAdminCmd creates the admin command group
func NewAdminCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users and view statistics (requires 'medlens login --admin')",
	}

	cmd.AddCommand(newAdminUsersCmd(g))
	cmd.AddCommand(newAdminStatsCmd(g))

	return cmd
}

func newAdminUsersCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	page := &pageOptions{}
	var username string

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			envl, err := env.admin(env.API.Admin.QueryUsers(cmd.Context(), api.UserQuery{
				PageQuery: page.query(),
				Username:  username,
			}))
			if err != nil {
				return err
			}
			return env.print(envl, "No users found.")
		},
	}
	page.bind(list)
	list.Flags().StringVar(&username, "username", "", "Filter by username")

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				if !g.interactive() {
					return fmt.Errorf("refusing to delete user %s without --yes in non-interactive mode", args[0])
				}
				if err := promptConfirm(fmt.Sprintf("Delete user %s", args[0])); err != nil {
					return err
				}
			}

			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			if _, err := env.admin(env.API.Admin.DeleteUser(cmd.Context(), args[0])); err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}
			fmt.Fprintf(env.Out, "✓ Deleted user %s\n", args[0])
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	cmd.AddCommand(list, del)
	return cmd
}

type statsOptions struct {
	from string
	to   string
}

func newAdminStatsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Usage statistics for a date range",
	}

	reports := []struct {
		use   string
		short string
		kind  api.StatisticsKind
	}{
		{"diagnosis", "Diagnosis requests per day", api.DiagnosisStatistics},
		{"classify", "Classification requests per day", api.ClassifyStatistics},
		{"chat", "Assistant conversations per day", api.ChatStatistics},
	}

	for _, report := range reports {
		opts := &statsOptions{}
		kind := report.kind

		sub := &cobra.Command{
			Use:   report.use,
			Short: report.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := opts.dateRange(time.Now())
				if err != nil {
					return err
				}

				env, err := g.newEnv(cmd)
				if err != nil {
					return err
				}
				envl, err := env.admin(env.API.Admin.Statistics(cmd.Context(), kind, r))
				if err != nil {
					return err
				}
				return env.print(envl, "No data for this range.")
			},
		}
		sub.Flags().StringVar(&opts.from, "from", "", "Start date, YYYY-MM-DD (default 7 days ago)")
		sub.Flags().StringVar(&opts.to, "to", "", "End date, YYYY-MM-DD (default today)")
		cmd.AddCommand(sub)
	}

	return cmd
}

// dateRange fills in the last seven days for missing bounds
func (o *statsOptions) dateRange(now time.Time) (api.DateRange, error) {
	r := api.DateRange{StartTime: o.from, EndTime: o.to}
	if r.EndTime == "" {
		r.EndTime = now.Format(dateLayout)
	}
	if r.StartTime == "" {
		end, err := time.Parse(dateLayout, r.EndTime)
		if err != nil {
			return r, fmt.Errorf("invalid --to '%s', expected YYYY-MM-DD", r.EndTime)
		}
		r.StartTime = end.AddDate(0, 0, -7).Format(dateLayout)
	}
	// malformed dates are reported by request validation
	start, startErr := time.Parse(dateLayout, r.StartTime)
	end, endErr := time.Parse(dateLayout, r.EndTime)
	if startErr == nil && endErr == nil && start.After(end) {
		return r, fmt.Errorf("--from %s is after --to %s", r.StartTime, r.EndTime)
	}
	return r, nil
}
