package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TOKYOFLOWER/BeDelivery/internal/batch"
	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
)

// errNotConfirmed --yes なしで実行しようとした
var errNotConfirmed = errors.New("--yes を付けると反映します")

func newImportCmd(root *rootOptions) *cobra.Command {
	var (
		yes        bool
		skipDelete bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "お花リストの差分を注文一覧に反映する",
		Long: `差分を表示したうえで、既定で選択される追加・変更・削除をまとめて反映します。
--yes がなければ差分の表示だけを行います。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.loadConfig()
			if err != nil {
				return err
			}
			c, cleanup, err := root.open(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			res, err := runPreview(ctx, c.Coordinator, args[0])
			if err != nil {
				return err
			}
			s := res.Session
			defer c.Coordinator.Cancel(s.ID)

			if skipDelete {
				for i, e := range s.Entries() {
					if e.Type == model.DiffDelete {
						if err := s.Toggle(i, false); err != nil {
							return err
						}
					}
				}
			}

			if err := printPreview(out, res, previewOptions{}); err != nil {
				return err
			}
			if s.ActionableCount() == 0 {
				return batch.ErrNothingSelected
			}
			if !yes {
				return errNotConfirmed
			}

			result, err := c.Coordinator.Execute(ctx, s.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, result.Message)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "確認なしで反映する")
	cmd.Flags().BoolVar(&skipDelete, "skip-delete", false, "削除を反映しない")
	return cmd
}
