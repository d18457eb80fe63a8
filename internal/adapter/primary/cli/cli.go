package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"adhan-alarm/internal/adapter/primary/web"
	"adhan-alarm/internal/bootstrap"
	"adhan-alarm/internal/config"
	"adhan-alarm/internal/logging"
)

var (
	cfgPath   string
	addrFlag  string
	verbosity int
)

// NewRootCmd creates the root CLI command.
// This is the primary adapter that translates CLI inputs to use case calls.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "adhan-alarm",
		Short:         "アザーン・アラームのスケジューラ兼プレイヤー",
		Long:          "トリガーを登録して時刻になったらアザーン/アラームを再生するデーモンとCLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "設定ファイルのパス")
	cmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "デーモンのアドレス (未指定なら設定ファイルの web.addr)")
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "ロギングを詳細化 (-v, -vv, ... 最大4回)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logging.SetVerbosity(verbosity)
	}

	cmd.AddCommand(
		newDaemonCmd(),
		newScheduleCmd(),
		newCancelCmd(),
		newListCmd(),
		newShowCmd(),
		newFireCmd(),
		newStopCmd(),
		newStatusCmd(),
		newSoundsCmd(),
		newPrefsCmd(),
		newConfigCmd(),
		newShellCmd(),
	)

	return cmd
}

// Execute runs the root command and prints the error, if any, to stderr.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func loadConfig() (config.Config, error) {
	store, err := config.NewStore(cfgPath)
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := store.Load()
	if err != nil {
		return config.Config{}, err
	}
	if addrFlag != "" {
		cfg.Web.Addr = addrFlag
	}
	return cfg, nil
}

func newClient() (*web.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return web.NewClient(cfg.Web.Addr), nil
}

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "スケジューラ・プレイヤー・HTTP APIを起動",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			services, err := bootstrap.Build(ctx, cfg, bootstrap.Overrides{})
			if err != nil {
				return err
			}
			defer func() {
				if err := services.Close(); err != nil {
					logging.Errorf("shutdown: %v", err)
				}
			}()

			report, err := services.Scheduler.RecoverAfterRestart(ctx)
			if err != nil {
				logging.Warnf("recover: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "復元: %d件登録, %d件期限切れ\n", len(report.Registered), len(report.PastDue))

			srv := web.NewServer(web.Backend{
				Scheduler:   services.Scheduler,
				Playback:    services.Playback,
				Preferences: services.Preferences,
				Wakeups:     services.Wakeups,
			}, cfg.Web.Addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Adhan Alarm daemon running at http://%s\n", cfg.Web.Addr)
			logging.Infof("daemon started: http://%s", cfg.Web.Addr)

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon shutting down...")
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "設定ファイルの表示・初期化",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "有効な設定(YAML)を表示",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				out, err := yaml.Marshal(cfg)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), string(out))
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "既定値で設定ファイルを書き出す",
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := config.NewStore(cfgPath)
				if err != nil {
					return err
				}
				if _, err := os.Stat(store.Path()); err == nil {
					return fmt.Errorf("%s は既に存在します", store.Path())
				}
				if err := store.Save(config.DefaultConfig()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "書き出しました: %s\n", store.Path())
				return nil
			},
		},
	)
	return cmd
}
