package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/christopherklint97/togglbird/internal/billing"
	"github.com/christopherklint97/togglbird/internal/config"
	"github.com/christopherklint97/togglbird/internal/integrate"
	"github.com/christopherklint97/togglbird/internal/moneybird"
	"github.com/christopherklint97/togglbird/internal/prompt"
	"github.com/christopherklint97/togglbird/internal/toggl"
	"github.com/gen2brain/beeep"
	"github.com/spf13/cobra"
)

const projectCacheTTL = 1 * time.Hour

var rootCmd = &cobra.Command{
	Use:           "togglbird",
	Short:         "Invoice Toggl time entries in Moneybird",
	Long:          "togglbird turns tracked Toggl time into Moneybird sales invoices and tags the invoiced entries as billed.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var integrateCmd = &cobra.Command{
	Use:   "integrate",
	Short: "Create or extend an invoice from time entries",
	Args:  cobra.NoArgs,
	RunE:  runIntegrate,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List Toggl workspaces and their projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Open config file in your editor",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(integrateCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, prompt.Error(err.Error()))
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	if os.Getenv("TOGGLBIRD_DEBUG") == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// loadConfig reads the config file, asking for every setting first when
// there is none yet.
func loadConfig() (*config.Config, error) {
	path := config.Path()
	ok, err := config.Exists(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		fmt.Println(prompt.Comment("No config file found at " + path + ", let's create one."))
		cfg, err := config.Create(path, prompt.NewTerminal())
		if err != nil {
			return nil, fmt.Errorf("creating config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newTogglClient(cfg *config.Config, logger *slog.Logger) *toggl.Client {
	return toggl.NewClient(cfg.TogglToken, cfg.TogglBaseURL, projectCacheTTL, logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runIntegrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger := newLogger()
	tracker := newTogglClient(cfg, logger)

	invoicing := moneybird.NewClient(ctx, cfg.MoneybirdAccessToken, cfg.MoneybirdAdministrationID, cfg.MoneybirdBaseURL, logger)
	if err := invoicing.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to Moneybird: %w", err)
	}

	settings := integrate.Settings{
		HourlyRate: cfg.HourlyRate,
		RoundTo:    cfg.RoundTo,
		TaxRates: billing.TaxRates{
			InsideEU:  cfg.VATInsideEU,
			OutsideEU: cfg.VATOutsideEU,
		},
	}

	it := integrate.New(tracker, invoicing, prompt.NewTerminal(), settings, os.Stdout, logger)
	result, err := it.Run(ctx)
	if errors.Is(err, prompt.ErrCanceled) {
		fmt.Println(prompt.Comment("Canceled, nothing was invoiced."))
		return nil
	}
	if result != nil && cfg.Notify {
		notifySaved(result, logger)
	}
	return err
}

func notifySaved(result *integrate.Result, logger *slog.Logger) {
	msg := fmt.Sprintf("Invoice with %d lines saved", result.Lines)
	if err := beeep.Notify("togglbird", msg, ""); err != nil {
		logger.Warn("sending notification", "error", err)
	}
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	client := newTogglClient(cfg, newLogger())

	workspaces, err := client.GetWorkspaces(ctx)
	if err != nil {
		return fmt.Errorf("fetching workspaces: %w", err)
	}
	if len(workspaces) == 0 {
		return integrate.ErrNoWorkspaces
	}

	for _, ws := range workspaces {
		projects, err := client.GetProjects(ctx, ws.ID)
		if err != nil {
			return fmt.Errorf("fetching projects for %s: %w", ws.Name, err)
		}

		fmt.Printf("%s (%d) - %d projects:\n\n", ws.Name, ws.ID, len(projects))
		for _, p := range projects {
			line := fmt.Sprintf("  %d  %s", p.ID, p.Name)
			if !p.Active {
				line = prompt.Comment(line + " (archived)")
			}
			fmt.Println(line)
		}
		fmt.Println()
	}

	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	path := config.Path()

	ok, err := config.Exists(path)
	if err != nil {
		return err
	}
	if !ok {
		if _, err := config.Create(path, prompt.NewTerminal()); err != nil {
			return fmt.Errorf("creating config: %w", err)
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fmt.Printf("Opening %s with %s...\n", path, editor)

	c := exec.Command(editor, path)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		fmt.Printf("Could not open editor. Config file is at: %s\n", path)
		return nil
	}
	return nil
}
