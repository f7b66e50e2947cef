package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medlens-dev/medlens/internal/cli/api"
	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the logged-in user's profile",
	}

	cmd.AddCommand(newProfileShowCmd(g))
	cmd.AddCommand(newProfileUpdateCmd(g))
	cmd.AddCommand(newAvatarCmd(g))

	return cmd
}

func newProfileShowCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Fetch and print the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}

			s := env.resolve(cmd.Context(), auth.RoleUser)
			if !s.IsLoggedIn() {
				return fmt.Errorf("not logged in, run '%s' first", loginHint(auth.RoleUser))
			}

			if profile := s.Profile(); profile != nil {
				return env.printRaw(profile)
			}

			// startup refresh failed; ask again through the API so an auth
			// failure expires the session
			envl, err := env.user(env.API.User.GetUserInfo(cmd.Context()))
			if err != nil {
				return err
			}
			return env.print(envl, "No profile returned")
		},
	}
}

type profileUpdateOptions struct {
	fields []string
	json   string
}

func newProfileUpdateCmd(g *Globals) *cobra.Command {
	opts := &profileUpdateOptions{}

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields",
		Long: `Change profile fields.

Examples:
  $ medlens profile update --field nickname=Ann --field email=ann@example.org
  $ medlens profile update --json '{"age": 34}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			update, err := parseProfileUpdate(opts)
			if err != nil {
				return err
			}

			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}

			s := env.resolve(cmd.Context(), auth.RoleUser)
			res := s.UpdateProfile(cmd.Context(), update)
			if err := env.sessionErr(s, res); err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			if profile := s.Profile(); profile != nil {
				return env.printRaw(profile)
			}
			fmt.Fprintln(env.Out, "✓ Profile updated")
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "Field to set as key=value (repeatable)")
	cmd.Flags().StringVar(&opts.json, "json", "", "Fields to set as a JSON object")

	return cmd
}

func parseProfileUpdate(opts *profileUpdateOptions) (api.ProfileUpdate, error) {
	update := api.ProfileUpdate{}

	if opts.json != "" {
		if err := json.Unmarshal([]byte(opts.json), &update); err != nil {
			return nil, fmt.Errorf("--json must be a JSON object: %w", err)
		}
	}

	for _, field := range opts.fields {
		key, value, ok := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field '%s', expected key=value", field)
		}
		update[key] = value
	}

	if len(update) == 0 {
		return nil, fmt.Errorf("nothing to update, pass --field key=value or --json")
	}
	return update, nil
}

func newAvatarCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload an image and set it as the avatar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}

			file, err := client.OpenFile(args[0])
			if err != nil {
				return err
			}

			uploaded, err := env.user(env.API.User.UploadImage(cmd.Context(), file))
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}
			imageURL, err := uploaded.DataString()
			if err != nil || imageURL == "" {
				return fmt.Errorf("upload failed: server returned no image URL")
			}

			s := env.resolve(cmd.Context(), auth.RoleUser)
			res := s.UpdateProfile(cmd.Context(), api.ProfileUpdate{"avatar": imageURL})
			if err := env.sessionErr(s, res); err != nil {
				return fmt.Errorf("update failed: %w", err)
			}

			fmt.Fprintf(env.Out, "✓ Avatar set to %s\n", imageURL)
			return nil
		},
	}
}
