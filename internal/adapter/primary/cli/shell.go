package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"adhan-alarm/internal/logging"
)

func newShellCmd() *cobra.Command {
	var prompt string
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Cobraサブコマンドを対話的に叩けるシェルを起動",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveShell(prompt, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "adhan> ", "シェルのプロンプト文字列")
	return cmd
}

func runInteractiveShell(prompt string, out io.Writer) error {
	historyFile := filepath.Join(os.TempDir(), "adhan-alarm-shell.history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	sessionVerbosity := verbosity
	sessionConfig := cfgPath
	sessionAddr := addrFlag
	fmt.Fprintln(out, "対話型シェルを開始します。'help' で使い方、'exit' で終了。")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Fprintln(out)
			continue
		}
		if err == io.EOF {
			fmt.Fprintln(out)
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "help":
			printShellHelp(out)
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(out, "Parse error: %v\n", err)
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "log":
			if err := handleShellLog(tokens[1:], &sessionVerbosity, out); err != nil {
				fmt.Fprintf(out, "log: %v\n", err)
			}
			continue
		case "shell":
			fmt.Fprintln(out, "すでにシェル内です。他のコマンドを入力するか 'exit' で終了してください。")
			continue
		case "daemon":
			fmt.Fprintln(out, "daemon はシェルの外で起動してください。")
			continue
		}

		if err := executeArgs(withSessionFlags(tokens, sessionConfig, sessionAddr), sessionVerbosity); err != nil {
			fmt.Fprintf(out, "command error: %v\n", err)
		}
	}
}

// withSessionFlags carries the shell's --config and --addr into each command.
func withSessionFlags(tokens []string, cfg, addr string) []string {
	args := append([]string(nil), tokens...)
	if cfg != "" && !hasFlag(tokens, "--config") {
		args = append(args, "--config", cfg)
	}
	if addr != "" && !hasFlag(tokens, "--addr") {
		args = append(args, "--addr", addr)
	}
	return args
}

func hasFlag(tokens []string, name string) bool {
	for _, t := range tokens {
		if t == name || strings.HasPrefix(t, name+"=") {
			return true
		}
	}
	return false
}

func executeArgs(args []string, sessionVerbosity int) error {
	if len(args) == 0 {
		return nil
	}
	root := NewRootCmd()
	// Without -v on the line, the shell's level applies.
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if !cmd.Flags().Changed("verbose") {
			verbosity = sessionVerbosity
		}
		logging.SetVerbosity(verbosity)
	}
	root.SetArgs(args)
	return root.Execute()
}

func handleShellLog(args []string, sessionVerbosity *int, out io.Writer) error {
	fs := pflag.NewFlagSet("log", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var vcount int
	var level string
	var show bool
	fs.CountVarP(&vcount, "verbose", "v", "Increase verbosity (-v... up to 4)")
	fs.StringVar(&level, "level", "", "指定レベル(error|warn|info|debug|trace)")
	fs.BoolVarP(&show, "show", "s", false, "現在のレベルを表示")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case show && vcount == 0 && level == "":
		fmt.Fprintf(out, "log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	case level != "":
		_, count, err := logging.ParseLevel(level)
		if err != nil {
			return err
		}
		*sessionVerbosity = count
	case vcount > 0:
		*sessionVerbosity = vcount
	default:
		fmt.Fprintf(out, "log level: %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
		return nil
	}

	verbosity = *sessionVerbosity
	logging.SetVerbosity(*sessionVerbosity)
	fmt.Fprintf(out, "log level set to %s (-v x%d)\n", logging.LevelName(), logging.Verbosity())
	return nil
}

func printShellHelp(out io.Writer) {
	fmt.Fprintln(out, `利用可能な入力例:
  schedule fajr --at 04:45          # アザーンを登録
  schedule wake --in 10m --kind ALARM --sound default
  list                              # 未来のトリガー一覧
  show fajr                         # 登録内容を表示
  cancel fajr                       # 取り消し
  fire --kind ALARM                 # 今すぐ再生
  stop                              # 再生停止
  status                            # 再生状態
  prefs set --volume 60 --fade-in   # 再生設定を更新
  log -vv                           # ログ出力を詳細化
  log --show                        # 現在のログレベルを確認
  exit / quit                       # シェル終了`)
}
