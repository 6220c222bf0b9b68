// Package cli implements the command-line entrypoint.
package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"

	awsadapter "github.com/diillson/sandbox-cost-collector/internal/adapter/driven/aws"
	configadapter "github.com/diillson/sandbox-cost-collector/internal/adapter/driven/config"
	"github.com/diillson/sandbox-cost-collector/internal/adapter/driven/export"
	"github.com/diillson/sandbox-cost-collector/internal/adapter/driven/leases"
	"github.com/diillson/sandbox-cost-collector/internal/adapter/driving/httpapi"
	"github.com/diillson/sandbox-cost-collector/internal/application/usecase"
	"github.com/diillson/sandbox-cost-collector/internal/shared/types"
	"github.com/diillson/sandbox-cost-collector/pkg/console"
	"github.com/diillson/sandbox-cost-collector/pkg/version"
)

const shutdownTimeout = 30 * time.Second

// CLIApp represents the command-line interface application.
type CLIApp struct {
	rootCmd *cobra.Command
	console types.ConsoleInterface
	log     log15.Logger
}

// NewCLIApp cria uma nova aplicação CLI.
func NewCLIApp() *CLIApp {
	app := &CLIApp{
		console: console.NewConsole(),
		log:     log15.New("app", "sandbox-cost-collector"),
	}

	rootCmd := &cobra.Command{
		Use:     "sandbox-cost-collector",
		Short:   "Sandbox lease cost collection service",
		Version: version.FormatVersion(),
	}
	rootCmd.SetVersionTemplate(`{{printf "Sandbox Cost Collector version: %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringP("config-file", "C", "", "Path to a TOML, YAML, or JSON configuration file")

	rootCmd.AddCommand(app.serveCommand())
	rootCmd.AddCommand(app.previewCommand())

	app.rootCmd = rootCmd
	return app
}

// Execute runs the CLI application.
func (app *CLIApp) Execute() error {
	return app.rootCmd.Execute()
}

func (app *CLIApp) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the collection HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, _ := cmd.Flags().GetString("config-file")
			listenAddr, _ := cmd.Flags().GetString("listen-addr")
			return app.runServe(cmd.Context(), configFile, listenAddr)
		},
	}
	cmd.Flags().StringP("listen-addr", "l", "", "Address to listen on (overrides config)")
	return cmd
}

func (app *CLIApp) previewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Collect and display one lease's cost report locally, without uploading",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliArgs, err := parsePreviewArgs(cmd)
			if err != nil {
				return err
			}
			return app.runPreview(cmd.Context(), cliArgs)
		},
	}
	cmd.Flags().StringP("lease-id", "i", "", "Lease UUID to collect for")
	cmd.Flags().StringP("user-email", "u", "", "Email of the lease's user")
	cmd.Flags().StringP("report-name", "n", "", "Base name for the report file (without extension)")
	cmd.Flags().StringSliceP("report-type", "y", nil, "Report types to export: csv, json, pdf")
	cmd.Flags().StringP("dir", "d", "", "Directory to save the report files (default: current directory)")
	cmd.MarkFlagRequired("lease-id")
	cmd.MarkFlagRequired("user-email")
	return cmd
}

func parsePreviewArgs(cmd *cobra.Command) (types.CLIArgs, error) {
	configFile, _ := cmd.Flags().GetString("config-file")
	leaseID, _ := cmd.Flags().GetString("lease-id")
	userEmail, _ := cmd.Flags().GetString("user-email")
	reportName, _ := cmd.Flags().GetString("report-name")
	reportType, _ := cmd.Flags().GetStringSlice("report-type")
	dir, _ := cmd.Flags().GetString("dir")

	if dir != "" {
		absDir, err := filepath.Abs(dir)
		if err != nil {
			return types.CLIArgs{}, err
		}
		dir = absDir
	}

	return types.CLIArgs{
		ConfigFile: configFile,
		LeaseID:    leaseID,
		UserEmail:  userEmail,
		ReportName: reportName,
		ReportType: reportType,
		Dir:        dir,
	}, nil
}

func (app *CLIApp) runServe(ctx context.Context, configFile, listenAddr string) error {
	displayWelcomeBanner()

	cfg, err := configadapter.NewConfigRepository().Load(configFile)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return err
	}

	leaseRepo := leases.NewLeaseRepository(cfg.LeaseServiceURL, app.log)
	costRepo := awsadapter.NewCostRepository(awsCfg, cfg.CostAccessRoleName, app.log)
	exportRepo := export.NewExportRepository()
	storageRepo := awsadapter.NewStorageRepository(awsCfg, cfg.ReportBucket,
		time.Duration(cfg.URLExpiryMinutes)*time.Minute, app.log)
	notificationRepo := awsadapter.NewNotificationRepository(awsCfg, cfg.EventBusName, cfg.EventSource, app.log)
	scheduleRepo := awsadapter.NewScheduleRepository(awsCfg, cfg.ScheduleGroup,
		cfg.ScheduleTargetArn, cfg.ScheduleRoleArn, app.log)
	metricsRepo := awsadapter.NewMetricsRepository(awsCfg, app.log)

	collectionUC := usecase.NewCollectionUseCase(
		leaseRepo, costRepo, exportRepo, storageRepo, notificationRepo, scheduleRepo, metricsRepo,
		time.Duration(cfg.BillingPaddingHours)*time.Hour, app.log)
	scheduleUC, err := usecase.NewScheduleUseCase(scheduleRepo,
		time.Duration(cfg.CollectionDelayHours)*time.Hour, app.log)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(collectionUC, scheduleUC, app.log)

	errCh := make(chan error, 1)
	go func() {
		app.log.Info("listening", "addr", cfg.ListenAddr)
		errCh <- server.Start(cfg.ListenAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		app.log.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (app *CLIApp) runPreview(ctx context.Context, args types.CLIArgs) error {
	cfg, err := configadapter.NewConfigRepository().Load(args.ConfigFile)
	if err != nil {
		return err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return err
	}

	previewUC := usecase.NewPreviewUseCase(
		leases.NewLeaseRepository(cfg.LeaseServiceURL, app.log),
		awsadapter.NewCostRepository(awsCfg, cfg.CostAccessRoleName, app.log),
		export.NewExportRepository(),
		time.Duration(cfg.BillingPaddingHours)*time.Hour,
		app.console,
		app.log,
	)
	return previewUC.RunPreview(ctx, args)
}
