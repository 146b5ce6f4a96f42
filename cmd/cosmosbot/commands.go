package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/cosmosbot/internal/news"
	"github.com/deusflow/cosmosbot/internal/pipeline"
	"github.com/deusflow/cosmosbot/internal/storage"
)

var (
	flagRenderTitle    string
	flagRenderSubtitle string
	flagRenderImage    string
	flagRenderOut      string
	flagTranslateTo    string
	flagHistoryLimit   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Post on a schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Run(ctx)
	},
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single posting cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.RunOnce(ctx)
		printResult(cmd.OutOrStdout(), res)
		switch res.Stage {
		case pipeline.StageNone, pipeline.StageNoNews:
			return nil
		default:
			return fmt.Errorf("cycle failed at %s: %s", res.Stage, res.Reason)
		}
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a post image for a title without publishing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(flagRenderTitle) == "" {
			return errors.New("--title is required")
		}
		a, err := loadApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		item := news.Item{Title: flagRenderTitle, SourceName: flagRenderSubtitle, ImageHint: flagRenderImage}
		img, err := a.Render(cmd.Context(), item, flagRenderOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (background: %s)\n", flagRenderOut, img.Background)
		return nil
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Translate text through the configured provider chain",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintln(cmd.OutOrStdout(), a.TranslateText(cmd.Context(), strings.Join(args, " "), flagTranslateTo))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently posted titles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.RecentPosts(cmd.Context(), flagHistoryLimit)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		printHistory(cmd.OutOrStdout(), a.Config.HistoryBackend, recs)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and publisher credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := loadApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		info, err := a.Check(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Configuration OK")
		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %v\n", k, info[k])
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&flagRenderTitle, "title", "", "headline to draw")
	renderCmd.Flags().StringVar(&flagRenderSubtitle, "subtitle", "", "attribution line under the headline")
	renderCmd.Flags().StringVar(&flagRenderImage, "image", "", "background image URL to try first")
	renderCmd.Flags().StringVarP(&flagRenderOut, "out", "o", "post.jpg", "output JPEG path")

	translateCmd.Flags().StringVar(&flagTranslateTo, "to", "", "target locale (default TARGET_LOCALE)")

	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 10, "number of records to show")
}

func printResult(w io.Writer, res pipeline.CycleResult) {
	fmt.Fprintf(w, "Cycle %s finished in %s\n", res.ID, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  candidates: %d, already posted: %d, source failures: %d\n",
		res.Candidates, res.AlreadyPosted, res.SourceFailures)
	if res.Item != nil {
		fmt.Fprintf(w, "  title: %s\n", res.Item.Title)
		fmt.Fprintf(w, "  theme: %s, background: %s\n", res.Theme, res.Background)
	}
	if res.Published {
		fmt.Fprintln(w, "  published")
		return
	}
	fmt.Fprintf(w, "  not published (%s): %s\n", res.Stage, res.Reason)
}

func printHistory(w io.Writer, backend string, recs []storage.Record) {
	fmt.Fprintf(w, "History (%s backend), last %d:\n", backend, len(recs))
	if len(recs) == 0 {
		fmt.Fprintln(w, "  (nothing posted yet)")
		return
	}
	for i, r := range recs {
		fmt.Fprintf(w, "  %d. %s\n", i+1, r.Title)
		fmt.Fprintf(w, "     Source: %s | Posted: %s\n", r.SourceID, r.PostedAt.Format("2006-01-02 15:04:05"))
	}
}
