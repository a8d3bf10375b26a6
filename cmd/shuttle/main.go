package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lumenworks/shuttle/engine"
	"github.com/lumenworks/shuttle/history"
	"github.com/lumenworks/shuttle/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shuttle",
		Short:         "Asynchronous file transfer jobs: backups, deliveries, archives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.Int("concurrency", engine.DefaultConcurrency, "Maximum simultaneous file copies across all jobs")
	flags.Int("chunk-size", engine.DefaultChunkSize, "Streaming chunk size in bytes")
	flags.String("state-dir", defaultStateDir(), "Directory for the history database")
	flags.Bool("no-tui", false, "Disable the TUI and log progress instead")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newTransferCmd(engine.KindBackup, "backup SOURCE... DEST", "Back up files or directories to a destination"),
		newTransferCmd(engine.KindDelivery, "deliver SOURCE... DEST", "Deliver files to a destination with an optional naming template"),
		newTransferCmd(engine.KindArchive, "archive SOURCE... DEST", "Move a source tree to a destination, removing the source on success"),
		newTransferCmd(engine.KindCopy, "copy SOURCE... DEST", "Copy files to a destination with parallel fan-out"),
		newHistoryCmd(),
	)
	return root
}

func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("SHUTTLE")
	viper.AutomaticEnv()

	viper.SetConfigName("shuttle")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "shuttle"))
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return viper.BindPFlags(cmd.Root().PersistentFlags())
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shuttle"
	}
	return filepath.Join(home, ".local", "share", "shuttle")
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(viper.GetString("log-level")); err == nil {
		log.SetLevel(level)
	}
	return log
}

func openHistory() (*history.Log, error) {
	stateDir := viper.GetString("state-dir")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return history.Open(filepath.Join(stateDir, "history.db"), viper.GetInt("history_cap"))
}

func newTransferCmd(kind engine.Kind, use, short string) *cobra.Command {
	var (
		project  string
		template string
		compress bool
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := engine.JobSpec{
				Kind:         kind,
				Project:      project,
				Sources:      args[:len(args)-1],
				Destination:  args[len(args)-1],
				NameTemplate: template,
				Compress:     compress,
			}
			return runTransfer(cmd.Context(), spec)
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project name recorded in manifests and history")
	if kind == engine.KindDelivery {
		cmd.Flags().StringVar(&template, "template", "", "Naming template with {index}, {name}, {ext} placeholders")
	}
	if kind == engine.KindArchive {
		cmd.Flags().BoolVar(&compress, "compress", false, "Compress the archive (not supported)")
	}
	return cmd
}

func runTransfer(parent context.Context, spec engine.JobSpec) error {
	log := newLogger()

	hist, err := openHistory()
	if err != nil {
		return err
	}
	defer hist.Close()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	tuiEnabled := !viper.GetBool("no-tui")

	var program *tea.Program
	var reporter engine.Reporter
	if tuiEnabled {
		program = tea.NewProgram(ui.NewModel())
		reporter = ui.NewReporter(program)
	} else {
		reporter = &engine.LogReporter{Log: log}
	}

	runner := engine.NewRunner(engine.Config{
		Limiter:   engine.NewLimiter(viper.GetInt("concurrency")),
		Reporter:  reporter,
		History:   hist,
		ChunkSize: viper.GetInt("chunk-size"),
		Log:       log,
	})

	job, err := runner.Submit(ctx, spec)
	if err != nil {
		return err
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- runner.Run(ctx, job.ID)
		if program != nil {
			program.Send(ui.DoneMsg{})
			// leave the final frame on screen briefly, then release the terminal
			time.Sleep(200 * time.Millisecond)
			program.Quit()
		}
	}()

	if program != nil {
		_, uiErr := program.Run()
		// The UI exiting early (q, ctrl+c) cancels the run; after a normal
		// finish this is a no-op.
		cancel()
		if uiErr != nil {
			return uiErr
		}
	}

	if err := <-runDone; err != nil {
		return err
	}

	final, err := runner.Get(job.ID)
	if err != nil {
		return err
	}

	switch final.Status {
	case engine.StatusCompleted:
		if final.FilesSkipped > 0 {
			fmt.Printf("Completed with %d of %d files skipped.\n", final.FilesSkipped, final.FilesTotal)
		} else {
			fmt.Printf("Completed: %d files, %d bytes.\n", final.FilesDone, final.BytesDone)
		}
		return nil
	default:
		return fmt.Errorf("job %s: %s", final.Status, final.Error)
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show the completed-job history log, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer hist.Close()

			records, err := hist.List()
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No history.")
				return nil
			}

			for _, rec := range records {
				line := fmt.Sprintf("%s  %-8s  %-9s  %d/%d files  %d bytes  -> %s",
					rec.CompletedAt.Format("2006-01-02 15:04:05"),
					rec.Kind, rec.Status, rec.FilesDone, rec.FilesTotal, rec.BytesDone, rec.Destination)
				if rec.Error != "" {
					line += "  (" + rec.Error + ")"
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
