package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"omoide/internal/app"
	"omoide/internal/booth"
)

// frameWait はカメラ開始後に最初のフレームを待つ時間
const frameWait = 5 * time.Second

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var layoutID, output, sheet string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "画面なしで1セッション撮影してストリップを生成する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			layout, ok := booth.FindLayout(cfg.Layouts, layoutID)
			if !ok {
				return fmt.Errorf("レイアウトが見つかりません: %s", layoutID)
			}

			out := cmd.OutOrStdout()
			a, err := app.New(cfg, logger, app.WithNotifier(printNotifier(out)))
			if err != nil {
				return err
			}
			defer a.Close()

			return runCapture(cmd.Context(), a, layout, captureOutput{strip: output, sheet: sheet}, out)
		},
	}

	cmd.Flags().StringVarP(&layoutID, "layout", "l", "layout-a", "使用するレイアウトのID")
	cmd.Flags().StringVarP(&output, "output", "o", "", "ストリップの保存先 (省略時は保存しない)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "撮影した写真を並べたプレビューの保存先")
	return cmd
}

// captureOutput は撮影結果の保存先
type captureOutput struct {
	strip string
	sheet string
}

func runCapture(ctx context.Context, a *app.App, layout booth.Layout, dst captureOutput, out io.Writer) error {
	if err := a.Booth.SelectLayout(ctx, layout); err != nil {
		return err
	}
	if err := waitFrame(ctx, a); err != nil {
		return err
	}

	for i := 0; i < layout.PhotoCount; i++ {
		fmt.Fprintf(out, "Photo %d of %d\n", i+1, layout.PhotoCount)
		if err := shoot(ctx, a.Booth, out); err != nil {
			return err
		}
	}

	snap := a.Booth.Snapshot()
	if snap.Session == nil || !snap.Session.Completed {
		return booth.ErrNotComplete
	}

	rows := make([][]string, 0, len(snap.Session.Photos))
	for _, p := range snap.Session.Photos {
		rows = append(rows, []string{strconv.Itoa(p.Index), p.ID, p.Timestamp.Local().Format(time.DateTime)})
	}
	fmt.Fprintln(out, renderTable([]string{"Index", "Photo", "Taken"}, rows, 0))
	fmt.Fprintf(out, "Session: %s\nStrip:   %s\n", snap.Session.ID, snap.Session.DownloadURL)

	if dst.sheet != "" {
		data, err := snap.Session.ContactSheet()
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst.sheet, data, 0o644); err != nil {
			return fmt.Errorf("プレビューの保存に失敗: %w", err)
		}
		fmt.Fprintf(out, "Saved %s (%d bytes)\n", dst.sheet, len(data))
	}

	if dst.strip == "" {
		return nil
	}
	return saveStrip(ctx, a, snap.Session.ID, dst.strip, out)
}

// waitFrame は最初のフレームが届くまで待つ
func waitFrame(ctx context.Context, a *app.App) error {
	ctx, cancel := context.WithTimeout(ctx, frameWait)
	defer cancel()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, ok := a.Camera.Surface().Latest(); ok {
			return nil
		}
		select {
		case <-ctx.Done():
			if st := a.Camera.State(); st.ErrorMessage != "" {
				return errors.New(st.ErrorMessage)
			}
			return fmt.Errorf("カメラからフレームを受信できません: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// shoot は1枚撮影し、カウントダウンを表示しながら完了を待つ
func shoot(ctx context.Context, b *booth.Orchestrator, out io.Writer) error {
	result, err := b.StartPhoto(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	last := -1
	for {
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p := b.Snapshot().Protocol
			if p.Phase == booth.PhaseCountingDown && p.Remaining != last {
				last = p.Remaining
				fmt.Fprintf(out, "  %d...\n", last)
			}
		}
	}
}

func saveStrip(ctx context.Context, a *app.App, sessionID, path string, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("保存先の作成に失敗: %w", err)
	}

	n, err := a.Remote.DownloadStrip(ctx, sessionID, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("ストリップの保存に失敗: %w", err)
	}

	fmt.Fprintf(out, "Saved %s (%d bytes)\n", path, n)
	return nil
}

// printNotifier は通知を端末に表示する
func printNotifier(out io.Writer) booth.Notifier {
	return booth.NotifierFunc(func(n booth.Notification) {
		if n.Message != "" {
			fmt.Fprintf(out, "[%s] %s: %s\n", n.Level, n.Title, n.Message)
			return
		}
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Title)
	})
}
