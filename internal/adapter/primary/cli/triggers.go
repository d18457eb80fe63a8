package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"adhan-alarm/internal/adapter/secondary/player"
	"adhan-alarm/internal/domain"
)

func newScheduleCmd() *cobra.Command {
	var (
		at    string
		in    time.Duration
		sound string
		kind  string
	)
	cmd := &cobra.Command{
		Use:   "schedule NAME",
		Short: "トリガーを登録 (同名は置き換え)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseKind(kind)
			if err != nil {
				return err
			}

			now := time.Now()
			var fireAt time.Time
			switch {
			case at != "" && in > 0:
				return fmt.Errorf("--at と --in は同時に指定できません")
			case in > 0:
				fireAt = now.Add(in)
			case at != "":
				if fireAt, err = parseFireAt(at, now); err != nil {
					return err
				}
			default:
				return fmt.Errorf("--at か --in を指定してください")
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			t := domain.Trigger{Name: args[0], FireAt: fireAt, Sound: sound, Kind: k}
			if err := client.Schedule(cmd.Context(), t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "登録しました: %s (%s) %s\n", t.Name, t.Kind, fireAt.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "発火時刻 (RFC3339, \"2006-01-02 15:04\", \"15:04\")")
	cmd.Flags().DurationVar(&in, "in", 0, "今からの相対時間 例:90s,10m")
	cmd.Flags().StringVar(&sound, "sound", player.SelectorDefault, "サウンド (makkah|madinah|egypt|default|custom|絶対パス)")
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindAdhan), "ADHAN または ALARM")
	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel NAME",
		Short: "トリガーを取り消す",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			if err := client.Cancel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "取り消しました: %s\n", args[0])
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "未来のトリガー一覧",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			pending, err := client.ListPending(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "登録なし")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tFIRE AT\tSOUND")
			for _, t := range pending {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, t.Kind, t.FireAt.Local().Format("2006-01-02 15:04:05"), t.Sound)
			}
			return tw.Flush()
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "登録済みトリガーを表示 (発火済みも含む)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			t, err := client.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "name: %s\nkind: %s\nfire at: %s\nsound: %s\n",
				t.Name, t.Kind, t.FireAt.Local().Format("2006-01-02 15:04:05"), t.Sound)
			return nil
		},
	}
}

func newFireCmd() *cobra.Command {
	var (
		name  string
		sound string
		kind  string
	)
	cmd := &cobra.Command{
		Use:   "fire",
		Short: "今すぐ再生 (動作確認用)",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseKind(kind)
			if err != nil {
				return err
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			outcome, err := client.Fire(cmd.Context(), name, sound, k)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, outcome)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "manual", "トリガー名 (表示用)")
	cmd.Flags().StringVar(&sound, "sound", player.SelectorDefault, "サウンド")
	cmd.Flags().StringVar(&kind, "kind", string(domain.KindAdhan), "ADHAN または ALARM")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "再生中のセッションを停止",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			st, err := client.Stop(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "state: %s\n", st.State)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "再生状態を表示",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			st, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatStatus(st))
			return nil
		},
	}
}

func newSoundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sounds",
		Short: "利用可能な内蔵サウンドを表示",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			r := player.NewFileResolver(nil, cfg.Sounds.Dir, cfg.Sounds.Default)
			builtins := r.Builtins()
			if len(builtins) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s に内蔵サウンドがありません\n", cfg.Sounds.Dir)
				return nil
			}
			for _, name := range builtins {
				src, err := r.Resolve(name, "")
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", name, src.Path)
			}
			return nil
		},
	}
}

func formatStatus(st domain.PlaybackStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", st.State)
	if st.State == domain.StateIdle {
		return b.String()
	}
	fmt.Fprintf(&b, "trigger: %s (%s)\n", st.Trigger, st.Kind)
	fmt.Fprintf(&b, "session: %s\n", st.SessionID)
	if !st.Since.IsZero() {
		fmt.Fprintf(&b, "since: %s\n", st.Since.Local().Format("15:04:05"))
	}
	fmt.Fprintf(&b, "gain: %d%%", st.GainPct)
	if st.Fading {
		b.WriteString(" (fading)")
	}
	b.WriteString("\n")
	return b.String()
}

// parseFireAt accepts RFC3339, a local "2006-01-02 15:04[:05]" or a bare
// "15:04", which means the next occurrence after now.
func parseFireAt(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		clock, err := time.ParseInLocation(layout, s, now.Location())
		if err != nil {
			continue
		}
		t := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, now.Location())
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("時刻を解釈できません: %q", s)
}
