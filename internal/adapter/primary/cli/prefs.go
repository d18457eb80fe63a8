package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"adhan-alarm/internal/bootstrap"
	"adhan-alarm/internal/domain"
	"adhan-alarm/internal/usecase"
)

func newPrefsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "再生設定の取得・更新 (ストアを直接読み書き)",
	}
	cmd.AddCommand(newPrefsGetCmd(), newPrefsSetCmd())
	return cmd
}

// withPreferences opens the store directly so prefs work without a running daemon.
func withPreferences(fn func(usecase.PreferencesUseCase) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, closer, err := bootstrap.OpenStore(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}
	uc, err := usecase.NewPreferencesUseCase(store)
	if err != nil {
		return err
	}
	return fn(uc)
}

func newPrefsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "現在の再生設定(JSON)を表示",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPreferences(func(uc usecase.PreferencesUseCase) error {
				p, err := uc.Get(cmd.Context())
				if err != nil {
					return err
				}
				return printPreferences(cmd, p)
			})
		},
	}
}

func newPrefsSetCmd() *cobra.Command {
	var (
		volumeFlag  int
		smartDND    bool
		fadeIn      bool
		customSound string
		customTitle string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "再生設定を書き換え",
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch usecase.PreferencesPatch
			if cmd.Flags().Changed("volume") {
				patch.AdhanVolumePercent = &volumeFlag
			}
			if cmd.Flags().Changed("smart-dnd") {
				patch.SmartDND = &smartDND
			}
			if cmd.Flags().Changed("fade-in") {
				patch.FadeIn = &fadeIn
			}
			if cmd.Flags().Changed("custom-sound") {
				patch.CustomSound = &customSound
			}
			if cmd.Flags().Changed("custom-title") {
				patch.CustomSoundTitle = &customTitle
			}

			return withPreferences(func(uc usecase.PreferencesUseCase) error {
				p, err := uc.Update(cmd.Context(), patch)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "保存しました")
				return printPreferences(cmd, p)
			})
		},
	}
	cmd.Flags().IntVar(&volumeFlag, "volume", 100, "アザーンの音量(0-100)")
	cmd.Flags().BoolVar(&smartDND, "smart-dnd", false, "サイレント/バイブ時はアザーンを鳴らさない")
	cmd.Flags().BoolVar(&fadeIn, "fade-in", false, "アザーンをフェードインで再生")
	cmd.Flags().StringVar(&customSound, "custom-sound", "", "カスタムサウンドのファイルパス")
	cmd.Flags().StringVar(&customTitle, "custom-title", "", "カスタムサウンドの表示名")
	return cmd
}

func printPreferences(cmd *cobra.Command, p domain.Preferences) error {
	display := map[string]any{
		"adhanVolumePercent": p.AdhanVolumePercent,
		"smartDnd":           p.SmartDND,
		"fadeIn":             p.FadeIn,
	}
	if p.CustomSound != "" {
		display["customSound"] = p.CustomSound
		display["customSoundTitle"] = p.CustomSoundTitle
	}
	out, err := json.MarshalIndent(display, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
