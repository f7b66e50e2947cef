package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/medlens-dev/medlens/internal/cli/api"
)

type loginOptions struct {
	admin    bool
	username string
	password string
}

// NewLoginCmd creates the login command
func NewLoginCmd(g *Globals) *cobra.Command {
	opts := &loginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a MedLens server",
		Long: `Authenticate with a MedLens server.

The user and admin sessions are independent; --admin logs into the admin
console without touching the user session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, g, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.admin, "admin", false, "Log in as an administrator")
	cmd.Flags().StringVar(&opts.username, "username", "", "Username (or set MEDLENS_USERNAME)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password (or set MEDLENS_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, g *Globals, opts *loginOptions) error {
	// Check for environment variables (useful for CI/CD)
	username := firstNonEmpty(opts.username, os.Getenv("MEDLENS_USERNAME"))
	password := firstNonEmpty(opts.password, os.Getenv("MEDLENS_PASSWORD"))

	env, err := g.newEnv(cmd)
	if err != nil {
		return err
	}

	if username == "" {
		if !g.interactive() {
			return fmt.Errorf("username is required (use --username flag or MEDLENS_USERNAME env var)")
		}
		username, err = promptText("Username", false, required("username"))
		if err != nil {
			return err
		}
	}

	if password == "" {
		password, err = readPassword()
		if err != nil {
			return err
		}
	}

	role := roleFromFlag(opts.admin)
	s, _ := env.Sessions.For(role)

	fmt.Fprintf(env.Out, "Logging in to %s (%s) as %s...\n", env.Target.Alias, env.Target.URL, role)

	res := s.Login(cmd.Context(), api.Credentials{Username: username, Password: password})
	if err := resultErr(res); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Login successful!")

	var profile struct {
		Username string `json:"username"`
		Nickname string `json:"nickname"`
	}
	if err := s.DecodeProfile(&profile); err == nil {
		name := firstNonEmpty(profile.Nickname, profile.Username)
		if name != "" {
			fmt.Fprintf(env.Out, "  User: %s\n", name)
		}
	}

	return nil
}

type logoutOptions struct {
	admin bool
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(g *Globals) *cobra.Command {
	opts := &logoutOptions{}

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}

			role := roleFromFlag(opts.admin)
			s, _ := env.Sessions.For(role)
			s.Logout(cmd.Context())

			fmt.Fprintf(env.Out, "✓ Logged out of %s (%s)\n", env.Target.Alias, role)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.admin, "admin", false, "Log out of the admin session")

	return cmd
}

type registerOptions struct {
	admin bool
	reg   api.Registration
}

// NewRegisterCmd creates the register command
func NewRegisterCmd(g *Globals) *cobra.Command {
	opts := &registerOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Long: `Create a new account. Registering never logs you in; run 'medlens login'
afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd, g, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.admin, "admin", false, "Register an administrator account")
	cmd.Flags().StringVar(&opts.reg.Username, "username", "", "Username")
	cmd.Flags().StringVar(&opts.reg.Password, "password", "", "Password (or set MEDLENS_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&opts.reg.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&opts.reg.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&opts.reg.Nickname, "nickname", "", "Display name")

	return cmd
}

func runRegister(cmd *cobra.Command, g *Globals, opts *registerOptions) error {
	reg := opts.reg
	reg.Password = firstNonEmpty(reg.Password, os.Getenv("MEDLENS_PASSWORD"))

	env, err := g.newEnv(cmd)
	if err != nil {
		return err
	}

	if g.interactive() {
		if reg.Username == "" {
			if reg.Username, err = promptText("Username", false, required("username")); err != nil {
				return err
			}
		}
		if reg.Password == "" {
			if reg.Password, err = promptText("Password", true, required("password")); err != nil {
				return err
			}
		}
		if reg.Email == "" && !cmd.Flags().Changed("email") {
			if reg.Email, err = promptText("Email (optional)", false, nil); err != nil {
				return err
			}
		}
	}

	role := roleFromFlag(opts.admin)
	s, _ := env.Sessions.For(role)

	res := s.Register(cmd.Context(), reg)
	if err := resultErr(res); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintf(env.Out, "✓ Registered %s account '%s'\n", role, reg.Username)
	fmt.Fprintf(env.Out, "Run '%s' to sign in\n", loginHint(role))
	return nil
}

// readPassword prompts for a password without echo
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or MEDLENS_PASSWORD env var)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func promptText(label string, mask bool, validate promptui.ValidateFunc) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: validate,
	}
	if mask {
		prompt.Mask = '*'
	}

	value, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return "", fmt.Errorf("cancelled")
		}
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(value), nil
}

// promptConfirm asks a yes/no question; anything but yes is an error
func promptConfirm(label string) error {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	if _, err := prompt.Run(); err != nil {
		return fmt.Errorf("cancelled")
	}
	return nil
}

func required(field string) promptui.ValidateFunc {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
