package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"omoide/internal/camera"
)

func newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "接続されているカメラデバイスを表示する",
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := camera.NewDiscovery().ScanDevices(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "カメラデバイスが見つかりません")
				return nil
			}

			rows := make([][]string, 0, len(devices))
			for _, d := range devices {
				rows = append(rows, []string{strconv.Itoa(d.Index), d.Device, d.Name})
			}
			fmt.Fprintln(out, renderTable([]string{"Index", "Device", "Name"}, rows, 0))
			return nil
		},
	}
}
