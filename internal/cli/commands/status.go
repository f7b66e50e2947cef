package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/output"
)

// roleStatus is what status reports for one session
type roleStatus struct {
	Role      string          `json:"role" yaml:"role"`
	State     string          `json:"state" yaml:"state"`
	Subject   string          `json:"subject,omitempty" yaml:"subject,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	Expired   bool            `json:"expired,omitempty" yaml:"expired,omitempty"`
	Profile   json.RawMessage `json:"profile,omitempty" yaml:"-"`
}

type statusReport struct {
	Server   string       `json:"server" yaml:"server"`
	URL      string       `json:"url" yaml:"url"`
	Sessions []roleStatus `json:"sessions" yaml:"sessions"`
}

// NewStatusCmd creates the status command
func NewStatusCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the selected server and both login sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}

			report := statusReport{Server: env.Target.Alias, URL: env.Target.URL}
			now := time.Now()

			for _, role := range auth.Roles {
				s := env.resolve(cmd.Context(), role)

				st := roleStatus{Role: role.String(), State: s.State().String()}
				if s.IsLoggedIn() {
					info := auth.InspectToken(s.Token())
					st.Subject = info.Subject
					st.ExpiresAt = info.ExpiresAt
					st.Expired = info.Expired(now)
					st.Profile = s.Profile()
				}
				report.Sessions = append(report.Sessions, st)
			}

			if env.Format != output.FormatText {
				return env.printValue(report)
			}
			printStatus(env, report)
			return nil
		},
	}
}

func printStatus(env *Env, report statusReport) {
	fmt.Fprintf(env.Out, "Server: %s (%s)\n", report.Server, report.URL)
	for _, st := range report.Sessions {
		if st.State != "logged_in" {
			fmt.Fprintf(env.Out, "  %-6s logged out\n", st.Role+":")
			continue
		}

		line := fmt.Sprintf("  %-6s logged in", st.Role+":")
		if st.Subject != "" {
			line += " as " + st.Subject
		}
		switch {
		case st.Expired:
			line += fmt.Sprintf(" (token expired %s)", st.ExpiresAt.Local().Format(time.RFC3339))
		case st.ExpiresAt != nil:
			line += fmt.Sprintf(" (expires %s)", st.ExpiresAt.Local().Format(time.RFC3339))
		}
		fmt.Fprintln(env.Out, line)
	}
}
