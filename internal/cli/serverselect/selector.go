package serverselect

import (
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/medlens-dev/medlens/internal/cli/config"
	"github.com/medlens-dev/medlens/internal/cli/userconfig"
	"github.com/medlens-dev/medlens/internal/logger"
)

// Target is the backend a command talks to. Alias namespaces stored credentials.
type Target struct {
	Alias string
	URL   string
}

// Options are the inputs to Resolve
type Options struct {
	// Flag is the --server value, either an alias from medlens.json or a URL
	Flag string
	// EnvURL is MEDLENS_SERVER
	EnvURL string
	// Project is the loaded medlens.json, nil when there is none
	Project *config.Config
	// Interactive allows prompting when several servers are configured
	Interactive bool
	// DefaultURL is used when nothing else names a server
	DefaultURL string
	// Prompt overrides the interactive selector
	Prompt func(*config.Config) (*config.Server, error)
}

// Resolve determines which server to use based on the following priority:
// 1. The --server flag, as an alias or a URL
// 2. MEDLENS_SERVER
// 3. The selected server in the user config, if it is still in medlens.json
// 4. The only server in medlens.json
// 5. An interactive prompt, or the first server when not interactive
// 6. The default URL
func Resolve(opts Options) (*Target, error) {
	log := logger.Component("serverselect")

	// Priority 1: explicit flag
	if opts.Flag != "" {
		if config.ValidateURL(opts.Flag) == nil {
			return targetForURL(opts.Project, opts.Flag), nil
		}
		if opts.Project == nil {
			return nil, fmt.Errorf("server '%s' is not a URL and no %s was found", opts.Flag, config.ConfigFileName)
		}
		server, err := opts.Project.GetServerByAlias(opts.Flag)
		if err != nil {
			return nil, err
		}
		return targetFor(server), nil
	}

	// Priority 2: environment
	if opts.EnvURL != "" {
		if err := config.ValidateURL(opts.EnvURL); err != nil {
			return nil, fmt.Errorf("MEDLENS_SERVER: %w", err)
		}
		return targetForURL(opts.Project, opts.EnvURL), nil
	}

	if opts.Project != nil && len(opts.Project.Servers) > 0 {
		// Priority 3: selected server from user config
		selected, err := userconfig.Selected(opts.Project.Path)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load user config, ignoring selected server")
		}
		if selected != "" {
			server, err := opts.Project.GetServerByAlias(selected)
			if err == nil {
				return targetFor(server), nil
			}
			// Selected server no longer exists in project config
			_ = userconfig.Select(opts.Project.Path, "")
		}

		// Priority 4: only one server
		if len(opts.Project.Servers) == 1 {
			server := &opts.Project.Servers[0]
			remember(opts.Project, server)
			return targetFor(server), nil
		}

		// Priority 5: prompt, or the first server in scripts
		if !opts.Interactive {
			server, _ := opts.Project.GetDefaultServer()
			log.Debug().Str("alias", server.Alias).Msg("Not interactive, using first configured server")
			return targetFor(server), nil
		}

		prompt := opts.Prompt
		if prompt == nil {
			prompt = PromptServerSelection
		}
		server, err := prompt(opts.Project)
		if err != nil {
			return nil, err
		}
		remember(opts.Project, server)
		return targetFor(server), nil
	}

	// Priority 6: built-in default
	defaultURL := opts.DefaultURL
	if defaultURL == "" {
		defaultURL = "http://127.0.0.1:8080"
	}
	return targetForURL(opts.Project, defaultURL), nil
}

// PromptServerSelection shows an interactive prompt for the user to select a server
func PromptServerSelection(projectConfig *config.Config) (*config.Server, error) {
	if len(projectConfig.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in %s", config.ConfigFileName)
	}

	type serverOption struct {
		Label  string
		Server *config.Server
	}

	options := make([]serverOption, len(projectConfig.Servers))
	for i := range projectConfig.Servers {
		server := &projectConfig.Servers[i]
		options[i] = serverOption{
			Label:  fmt.Sprintf("%s (%s)", server.Alias, server.URL),
			Server: server,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a server",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server selection cancelled: %w", err)
	}

	return options[index].Server, nil
}

func remember(project *config.Config, server *config.Server) {
	if err := userconfig.Select(project.Path, server.Alias); err != nil {
		// Don't fail if we can't save, just continue
		log := logger.Component("serverselect")
		log.Warn().Err(err).Msg("Failed to save selected server")
	}
}

func targetFor(server *config.Server) *Target {
	return &Target{Alias: server.Alias, URL: server.URL}
}

// targetForURL reuses the project alias for a known URL so credentials stay
// under the same namespace however the server was named
func targetForURL(project *config.Config, raw string) *Target {
	if project != nil {
		if server, err := project.GetServerByURL(raw); err == nil {
			return targetFor(server)
		}
	}
	return &Target{Alias: config.AliasFromURL(raw), URL: raw}
}
