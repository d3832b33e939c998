package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vbonduro/toolkeepr/internal/scheduler"
	"github.com/vbonduro/toolkeepr/internal/seed"
	"github.com/vbonduro/toolkeepr/internal/service"
	"github.com/vbonduro/toolkeepr/internal/web"
	"github.com/vbonduro/toolkeepr/internal/web/templates"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toolkeepr",
		Short:         "Workshop tool inventory and circulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the web server and scheduled jobs",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Load the sample inventory into an empty database",
			RunE:  runSeed,
		},
		newBackupCmd(),
		&cobra.Command{
			Use:   "restore FILE",
			Short: "Import profile and settings from a JSON export or backup",
			Args:  cobra.ExactArgs(1),
			RunE:  runRestore,
		},
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := web.NewServer(a.services, templates.FS, a.metrics, a.logger)

	if a.cfg.SchedulerEnabled && !a.cfg.TestMode {
		sched := scheduler.New(a.services.Reports, a.services.Circulation, a.services.Settings, a.metrics, a.logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
		server.SetScheduler(sched)
	}

	return server.ListenAndServe(ctx, a.cfg.ListenAddr)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sum, loaded, err := seed.Load(cmd.Context(), a.seedServices(), a.logger)
	if err != nil {
		return err
	}
	if !loaded {
		fmt.Fprintln(cmd.OutOrStdout(), "inventory already has tools; nothing seeded")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories, %d locations, %d tool types, %d tools, %d reports\n",
		sum.Categories, sum.Locations, sum.ToolTypes, sum.Tools, sum.Reports)
	return nil
}

func newBackupCmd() *cobra.Command {
	var (
		output string
		opts   service.ExportOptions
	)
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON snapshot of the inventory and settings",
		Long: `Write a JSON snapshot to a file or stdout.

Select parts with --tools, --reports, --settings and --profile. With none
selected every part is written.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts == (service.ExportOptions{}) {
				opts = service.ExportOptions{Tools: true, Reports: true, Settings: true, Profile: true}
			}
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			name, err := writeSnapshot(cmd.Context(), a.services.Settings, opts, output, cmd.OutOrStdout(), createFile)
			if err != nil {
				return err
			}
			a.logger.Info("snapshot written", "name", name, "output", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout)")
	cmd.Flags().BoolVar(&opts.Tools, "tools", false, "include tools")
	cmd.Flags().BoolVar(&opts.Reports, "reports", false, "include report definitions")
	cmd.Flags().BoolVar(&opts.Settings, "settings", false, "include settings")
	cmd.Flags().BoolVar(&opts.Profile, "profile", false, "include the user profile")
	return cmd
}

// snapshotExporter is the part of service.SettingsService the backup command uses.
type snapshotExporter interface {
	Export(ctx context.Context, opts service.ExportOptions, w io.Writer) (string, error)
}

func createFile(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeSnapshot exports to stdout, or to output when it names a file. A
// failed close of the file fails the backup.
func writeSnapshot(ctx context.Context, exp snapshotExporter, opts service.ExportOptions, output string, stdout io.Writer,
	create func(string) (io.WriteCloser, error)) (name string, err error) {
	if output == "" || output == "-" {
		return exp.Export(ctx, opts, stdout)
	}
	f, err := create(output)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to write %s: %w", output, cerr)
		}
	}()
	return exp.Export(ctx, opts, f)
}

func runRestore(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.services.Settings.Import(cmd.Context(), f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "restored settings for %s %s\n", st.Profile.FirstName, st.Profile.LastName)
	return nil
}
