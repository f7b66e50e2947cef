package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medlens-dev/medlens/internal/cli/api"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// uploadCall is one of the image endpoints
type uploadCall func(ctx context.Context, file client.File) (*client.Envelope, error)

// newImageCmd builds a command that posts one image file and prints the result
func newImageCmd(g *Globals, use, short string, call func(*api.API) uploadCall) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <image>",
		Short: short,
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

			envl, err := env.user(call(env.API)(cmd.Context(), file))
			if err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return env.print(envl, "✓ Done")
		},
	}
}

// NewUploadCmd creates the upload command
func NewUploadCmd(g *Globals) *cobra.Command {
	return newImageCmd(g, "upload", "Upload an image and print its URL",
		func(a *api.API) uploadCall { return a.User.UploadImage })
}

// NewClassifyCmd creates the classify command
func NewClassifyCmd(g *Globals) *cobra.Command {
	return newImageCmd(g, "classify", "Classify a medical image",
		func(a *api.API) uploadCall { return a.AI.Classify })
}

// NewSegmentCmd creates the segment command
func NewSegmentCmd(g *Globals) *cobra.Command {
	return newImageCmd(g, "segment", "Segment a medical image",
		func(a *api.API) uploadCall { return a.AI.Segment })
}

// NewDiagnoseCmd creates the diagnose command
func NewDiagnoseCmd(g *Globals) *cobra.Command {
	return newImageCmd(g, "diagnose", "Run the diagnosis model on a medical image",
		func(a *api.API) uploadCall { return a.AI.Diagnose })
}

// NewEnhanceCmd creates the enhance command group
func NewEnhanceCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enhance",
		Short: "Run image enhancement",
	}

	cmd.AddCommand(newImageCmd(g, "pca", "PCA enhancement",
		func(a *api.API) uploadCall { return a.Enhance.PCA }))
	cmd.AddCommand(newImageCmd(g, "basic", "Basic enhancement",
		func(a *api.API) uploadCall { return a.Enhance.Basic }))
	cmd.AddCommand(newImageCmd(g, "all", "Apply every enhancement",
		func(a *api.API) uploadCall { return a.Enhance.ApplyAll }))

	return cmd
}

type pageOptions struct {
	page     int
	pageSize int
}

func (o *pageOptions) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 10, "Records per page")
}

func (o *pageOptions) query() api.PageQuery {
	return api.PageQuery{Page: o.page, PageSize: o.pageSize}
}

// NewRecordsCmd creates the records command group for past detections
func NewRecordsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "Browse past detection records",
	}

	page := &pageOptions{}
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List detection records",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			envl, err := env.user(env.API.AI.DetectionRecords(cmd.Context(), page.query()))
			if err != nil {
				return err
			}
			return env.print(envl, "No records found.")
		},
	}
	page.bind(list)

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one detection record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			envl, err := env.user(env.API.AI.DetectionRecordDetail(cmd.Context(), args[0]))
			if err != nil {
				return err
			}
			return env.print(envl, "Record not found.")
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

type chatOptions struct {
	memoryID string
}

// NewChatCmd creates the chat command
func NewChatCmd(g *Globals) *cobra.Command {
	opts := &chatOptions{}

	cmd := &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask the medical assistant a question",
		Long: `Ask the medical assistant a question.

Each call starts a new conversation unless --memory names an existing one.
The conversation id is printed so follow-up questions can reuse it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}

			memoryID := opts.memoryID
			if memoryID == "" {
				memoryID = api.NewMemoryID()
			}

			envl, err := env.user(env.API.AI.Chat(cmd.Context(), api.ChatRequest{
				MemoryID: memoryID,
				Question: args[0],
			}))
			if err != nil {
				return fmt.Errorf("chat failed: %w", err)
			}

			if err := env.print(envl, "(no answer)"); err != nil {
				return err
			}
			env.logger.Info().Str("memory_id", memoryID).Msg("Conversation")
			fmt.Fprintf(cmd.ErrOrStderr(), "\nConversation: %s (continue with --memory %s)\n", memoryID, memoryID)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.memoryID, "memory", "", "Conversation id to continue")

	return cmd
}

// NewChatsCmd creates the chats command group for past conversations
func NewChatsCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "Browse past assistant conversations",
	}

	page := &pageOptions{}
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			envl, err := env.user(env.API.AI.ChatRecords(cmd.Context(), page.query()))
			if err != nil {
				return err
			}
			return env.print(envl, "No conversations found.")
		},
	}
	page.bind(list)

	show := &cobra.Command{
		Use:   "show <memory-id>",
		Short: "Show one conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := g.newEnv(cmd)
			if err != nil {
				return err
			}
			envl, err := env.user(env.API.AI.ChatRecordDetail(cmd.Context(), args[0]))
			if err != nil {
				return err
			}
			return env.print(envl, "Conversation not found.")
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}
