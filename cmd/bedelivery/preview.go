package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/TOKYOFLOWER/BeDelivery/internal/batch"
	"github.com/TOKYOFLOWER/BeDelivery/internal/importer"
	"github.com/TOKYOFLOWER/BeDelivery/internal/model"
	"github.com/TOKYOFLOWER/BeDelivery/internal/session"
)

type previewOptions struct {
	jsonOutput bool
	showAll    bool
}

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var opts previewOptions

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "お花リストと注文一覧の差分を表示する（反映はしない）",
		Args:  cobra.ExactArgs(1),
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

			res, err := runPreview(cmd.Context(), c.Coordinator, args[0])
			if err != nil {
				return err
			}
			defer c.Coordinator.Cancel(res.Session.ID)

			return printPreview(cmd.OutOrStdout(), res, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "JSON で出力する")
	cmd.Flags().BoolVar(&opts.showAll, "all", false, "変更なしも表示する")
	return cmd
}

func runPreview(ctx context.Context, coord *importer.Coordinator, path string) (*importer.PreviewResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ファイルを読み込めませんでした: %w", err)
	}
	return coord.Preview(ctx, filepath.Base(path), data)
}

type previewEntry struct {
	Index    int                 `json:"index"`
	Type     model.DiffType      `json:"type"`
	Name     string              `json:"name"`
	OrderKey string              `json:"orderKey,omitempty"`
	Included bool                `json:"included"`
	Changes  []model.FieldChange `json:"changes,omitempty"`
	Detail   []string            `json:"detail,omitempty"`
}

type previewOutput struct {
	FileName  string           `json:"fileName"`
	SheetName string           `json:"sheetName"`
	Counts    model.DiffCounts `json:"counts"`
	Summary   string           `json:"summary"`
	Warning   string           `json:"warning,omitempty"`
	Entries   []previewEntry   `json:"entries"`
}

func buildPreviewOutput(res *importer.PreviewResult, showAll bool) previewOutput {
	s := res.Session
	entries := s.Entries()
	out := previewOutput{
		FileName:  s.FileName,
		SheetName: s.SheetName,
		Counts:    model.CountDiff(entries),
		Summary:   batch.Summary(entries),
		Entries:   []previewEntry{},
	}
	if res.FetchError != nil {
		out.Warning = res.FetchError.Error()
	}
	for i, e := range entries {
		if e.Type == model.DiffUnchanged && !showAll {
			continue
		}
		pe := previewEntry{
			Index:    i,
			Type:     e.Type,
			Name:     e.Name,
			Included: e.Included,
			Changes:  e.Changes,
			Detail:   session.Detail(e),
		}
		if e.OrderKey != nil {
			pe.OrderKey = *e.OrderKey
		}
		out.Entries = append(out.Entries, pe)
	}
	return out
}

func printPreview(w io.Writer, res *importer.PreviewResult, opts previewOptions) error {
	out := buildPreviewOutput(res, opts.showAll)

	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "ファイル: %s（シート: %s）\n", out.FileName, out.SheetName)
	if out.Warning != "" {
		fmt.Fprintf(w, "警告: %s\n", out.Warning)
	}
	fmt.Fprintf(w, "追加 %d / 変更 %d / 削除 %d / 変更なし %d\n\n",
		out.Counts.Add, out.Counts.Update, out.Counts.Delete, out.Counts.Unchanged)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "No\t取込\t種別\t宛名\t内容")
	for _, e := range out.Entries {
		mark := ""
		if e.Included {
			mark = "✓"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Index+1, mark, e.Type, e.Name, strings.Join(e.Detail, " / "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if out.Summary != "" {
		fmt.Fprintf(w, "\n取込対象: %s\n", out.Summary)
	}
	return nil
}
