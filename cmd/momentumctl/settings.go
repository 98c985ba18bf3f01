package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danmermels/momentum-spark-app/internal/model"
)

func settingsCmd(a *app) *cobra.Command {
	var (
		name          string
		notifications bool
		bluetooth     bool
		volume        int
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change local preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch model.AppSettingsPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.UserName = &name
			}
			if flags.Changed("notifications") {
				patch.EnableNotifications = &notifications
			}
			if flags.Changed("bluetooth") {
				patch.EnableBluetoothAudio = &bluetooth
			}
			if flags.Changed("volume") {
				if volume < 0 || volume > 100 {
					return fmt.Errorf("volume must be between 0 and 100, got %d", volume)
				}
				patch.SoundVolume = &volume
			}

			var (
				current model.AppSettings
				err     error
			)
			if patch == (model.AppSettingsPatch{}) {
				current, err = a.settings.Load()
			} else {
				current, err = a.settings.Update(patch)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Name:           %s\n", current.UserName)
			fmt.Fprintf(a.out, "Notifications:  %s\n", onOff(current.EnableNotifications))
			fmt.Fprintf(a.out, "Bluetooth:      %s\n", onOff(current.EnableBluetoothAudio))
			fmt.Fprintf(a.out, "Volume:         %d\n", current.SoundVolume)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name used in messages")
	cmd.Flags().BoolVar(&notifications, "notifications", true, "Show completion messages")
	cmd.Flags().BoolVar(&bluetooth, "bluetooth", false, "Prefer a bluetooth audio device")
	cmd.Flags().IntVar(&volume, "volume", 75, "Sound volume from 0 to 100")
	return cmd
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
