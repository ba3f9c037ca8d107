package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newLayoutsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "layouts",
		Short: "選択できるレイアウトを表示する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(cfg.Layouts))
			for _, l := range cfg.Layouts {
				rows = append(rows, []string{
					l.ID,
					l.Name,
					strconv.Itoa(l.PhotoCount),
					fmt.Sprintf("%dx%d", l.Grid.Cols, l.Grid.Rows),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Photos", "Grid"}, rows, 2))
			return nil
		},
	}
}
