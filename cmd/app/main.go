// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/configvault/cmd/app/commands"
	"github.com/allisson/configvault/internal/app"
	"github.com/allisson/configvault/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:    "configvault",
		Usage:   "Encrypted configuration store with master key rotation",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "generate-key",
				Usage: "Generate a new master encryption key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "kms-key-uri",
						Aliases: []string{"k"},
						Value:   "",
						Usage:   "KMS key URI to wrap the generated key with (e.g., base64key://..., gcpkms://...)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container := app.NewContainer(config.Load())
					kmsKeyURI := cmd.String("kms-key-uri")
					if kmsKeyURI == "" {
						kmsKeyURI = container.Config().KMSKeyURI
					}
					return commands.RunGenerateKey(ctx, container.KMSService(), os.Stdout, kmsKeyURI)
				},
			},
			{
				Name:  "encrypt",
				Usage: "Encrypt the plaintext configuration artifact",
				Flags: []cli.Flag{
					artifactFlag(),
					outputFlag("Encrypted artifact destination (defaults to '<artifact>.encrypted')"),
					overwriteFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container := app.NewContainer(config.Load())
					algorithm, err := container.EncryptionAlgorithm()
					if err != nil {
						return err
					}
					return commands.RunEncrypt(
						container.BlobCipher(),
						os.Stdout,
						algorithm,
						commands.EncryptInput{
							ArtifactPath: artifactPath(cmd, container.Config()),
							OutputPath:   cmd.String("output"),
							Overwrite:    cmd.Bool("yes"),
						},
					)
				},
			},
			{
				Name:  "decrypt",
				Usage: "Decrypt the encrypted configuration artifact",
				Flags: []cli.Flag{
					artifactFlag(),
					outputFlag("Plaintext destination file (defaults to stdout)"),
					&cli.BoolFlag{
						Name:    "write",
						Aliases: []string{"w"},
						Value:   false,
						Usage:   "Restore the plaintext file at the conventional location instead of printing",
					},
					overwriteFlag(),
					&cli.BoolFlag{
						Name:    "mask",
						Aliases: []string{"m"},
						Value:   false,
						Usage:   "Redact values under sensitive keys before printing",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container := app.NewContainer(config.Load())
					return commands.RunDecrypt(
						container.BlobCipher(),
						os.Stdout,
						commands.DecryptInput{
							ArtifactPath: artifactPath(cmd, container.Config()),
							OutputPath:   cmd.String("output"),
							WriteFile:    cmd.Bool("write"),
							Overwrite:    cmd.Bool("yes"),
							Masked:       cmd.Bool("mask"),
						},
					)
				},
			},
			{
				Name:  "rotate-key",
				Usage: "Rotate the master encryption key and re-encrypt the artifact",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "reason",
						Aliases: []string{"r"},
						Value:   "quarterly rotation",
						Usage:   "Reason recorded on the rotation audit record",
					},
					&cli.BoolFlag{
						Name:  "no-backup",
						Value: false,
						Usage: "Skip the pre-rotation backup (disables automatic rollback)",
					},
					formatFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container := app.NewContainer(config.Load())
					logger := container.Logger()
					defer commands.CloseContainer(container, logger)

					useCase, err := container.KeyRotationUseCase()
					if err != nil {
						return fmt.Errorf("failed to initialize key rotation use case: %w", err)
					}

					return commands.RunRotateKey(
						ctx,
						useCase,
						logger,
						os.Stdout,
						cmd.String("reason"),
						cmd.Bool("no-backup"),
						container.Config().RotationBackupEnabled,
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "rotation-status",
				Usage: "Report the latest rotation and whether the quarterly deadline passed",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "history",
						Aliases: []string{"H"},
						Value:   0,
						Usage:   "Also list this many recent rotation attempts",
					},
					formatFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container := app.NewContainer(config.Load())
					logger := container.Logger()
					defer commands.CloseContainer(container, logger)

					useCase, err := container.KeyRotationUseCase()
					if err != nil {
						return fmt.Errorf("failed to initialize key rotation use case: %w", err)
					}

					return commands.RunRotationStatus(
						ctx,
						useCase,
						os.Stdout,
						cmd.String("format"),
						int(cmd.Int("history")),
					)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}

// artifactFlag is shared by the commands that operate on the artifact.
func artifactFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "artifact",
		Aliases: []string{"a"},
		Value:   "",
		Usage:   "Plaintext artifact path (defaults to ARTIFACT_PATH)",
	}
}

// artifactPath resolves the artifact path from the flag or configuration.
func artifactPath(cmd *cli.Command, cfg *config.Config) string {
	if path := cmd.String("artifact"); path != "" {
		return path
	}
	return cfg.ArtifactPath
}

// formatFlag selects between human-readable and JSON output.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// outputFlag names an explicit destination file.
func outputFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   "",
		Usage:   usage,
	}
}

// overwriteFlag confirms replacing an existing destination file.
func overwriteFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Value:   false,
		Usage:   "Overwrite the destination file if it already exists",
	}
}
