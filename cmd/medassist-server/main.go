package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/medassist/medassist/internal/config"
	"github.com/medassist/medassist/internal/domain/analysis"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medassist-server",
		Short: "MedAssist clinical record vault and diet recommendation API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(vaultCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			fmt.Printf("Running %s migrations\n", cfg.StoreBackend)
			count, err := st.migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			statuses, err := st.migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

func vaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the record encryption key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "keygen",
		Short: "Print a new random ENCRYPTION_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hipaa.GenerateHexKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	})

	reencrypt := &cobra.Command{
		Use:   "reencrypt",
		Short: "Re-encrypt every stored analysis under a new key (server must be stopped)",
		RunE: func(cmd *cobra.Command, args []string) error {
			oldKey, _ := cmd.Flags().GetString("old-key")
			newKey, _ := cmd.Flags().GetString("new-key")
			if oldKey == "" || newKey == "" {
				return fmt.Errorf("--old-key and --new-key are required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Env)

			from, err := vaultFromHex(oldKey)
			if err != nil {
				return fmt.Errorf("old key: %w", err)
			}
			to, err := vaultFromHex(newKey)
			if err != nil {
				return fmt.Errorf("new key: %w", err)
			}

			ctx := context.Background()
			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.close()

			archive, err := openArchive(ctx, cfg, from, logger)
			if err != nil {
				return fmt.Errorf("open upload archive: %w", err)
			}

			report, err := analysis.Reencrypt(ctx, st.analysis, archive, from, to, logger)
			if err != nil {
				return err
			}
			printRekeyReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	reencrypt.Flags().String("old-key", "", "Current ENCRYPTION_KEY (64 hex chars)")
	reencrypt.Flags().String("new-key", "", "Replacement ENCRYPTION_KEY (64 hex chars)")
	cmd.AddCommand(reencrypt)

	return cmd
}

func printRekeyReport(w io.Writer, report hipaa.RekeyReport) {
	fmt.Fprintf(w, "Re-encrypted %d record(s) and %d archived upload(s).\n", report.Rekeyed, report.UploadsRekeyed)
	for _, id := range report.Failed {
		fmt.Fprintf(w, "Not readable under old key, left unchanged: %s\n", id)
	}
	for _, id := range report.UploadsFailed {
		fmt.Fprintf(w, "Upload not readable under old key, left unchanged: %s\n", id)
	}
}

func vaultFromHex(hexKey string) (*hipaa.Vault, error) {
	key, err := hipaa.ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	return hipaa.NewVault(key)
}
