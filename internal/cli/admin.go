package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"guild-quiz-bot/internal/app"
	"guild-quiz-bot/internal/config"
	"guild-quiz-bot/internal/infra/objectstore"
)

// NewImportCmd loads a question CSV into a guild's bank.
func NewImportCmd(configPath *string) *cobra.Command {
	var guildID, file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace a guild's question bank from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := buildBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := b.importer().Import(ctx, guildID, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions into %s\n", n, guildID)
			return nil
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "guild id")
	cmd.Flags().StringVar(&file, "file", "", "path to question CSV")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// NewExportCmd writes the guild's result table as CSV.
func NewExportCmd(configPath *string) *cobra.Command {
	var guildID, out string
	var upload bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export finished quiz results as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := buildBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			outcome, err := b.service(cfg).ExportCSV(ctx, guildID)
			if err != nil {
				return err
			}
			if outcome.NoData() {
				fmt.Fprintln(cmd.OutOrStdout(), "no data")
				return nil
			}

			var buf bytes.Buffer
			if err := app.WriteCSV(&buf, outcome.Rows); err != nil {
				return err
			}
			if upload {
				link, err := uploadExport(ctx, cfg, guildID, buf.Bytes())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			}
			return writeOutput(cmd.OutOrStdout(), out, buf.Bytes())
		},
	}
	cmd.Flags().StringVar(&guildID, "guild", "", "guild id")
	cmd.Flags().StringVar(&out, "out", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&upload, "upload", false, "upload to object storage and print a download link")
	_ = cmd.MarkFlagRequired("guild")
	return cmd
}

// NewGuildCmd manages guild onboarding.
func NewGuildCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guild",
		Short: "Manage guild settings",
	}

	var guildID, name string
	register := &cobra.Command{
		Use:   "register",
		Short: "Write default quiz settings for a guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			b, err := buildBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			gc, err := b.service(cfg).RegisterGuild(ctx, guildID, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "guild %s: cooldown %ds, %d questions\n", gc.GuildID, gc.CooldownSeconds, gc.QuestionCount)
			return nil
		},
	}
	register.Flags().StringVar(&guildID, "guild", "", "guild id")
	register.Flags().StringVar(&name, "name", "", "guild display name")
	_ = register.MarkFlagRequired("guild")
	cmd.AddCommand(register)
	return cmd
}

func uploadExport(ctx context.Context, cfg config.Config, guildID string, data []byte) (string, error) {
	if cfg.Storage.Endpoint == "" || cfg.Storage.Bucket == "" {
		return "", fmt.Errorf("object storage not configured")
	}
	store, err := objectstore.NewExportStore(objectstore.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
		LinkTTL:   config.TTLDuration(cfg.Storage.LinkTTL, 0),
	})
	if err != nil {
		return "", err
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return "", err
	}
	link, err := store.Upload(ctx, guildID, data)
	if err != nil {
		return "", err
	}
	log.Info().Str("guildId", guildID).Int("bytes", len(data)).Msg("export uploaded")
	return link, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
