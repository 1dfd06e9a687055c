/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"faulttriage/internal/bootstrap"
	"faulttriage/internal/bootstrap/logging"
	"faulttriage/internal/domain/fault"
	"faulttriage/internal/errs"
	"faulttriage/internal/usecase/triage"
)

type eventProcessor interface {
	Process(ctx context.Context, raw fault.RawEvent) (triage.Result, error)
}

type replaySummary struct {
	Total   int            `json:"total"`
	Created int            `json:"created"`
	Updated int            `json:"updated"`
	Failed  map[string]int `json:"failed"`
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Triage a batch of fault events (JSON array or NDJSON)",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *triage.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		path, _ := cmd.Flags().GetString("file")
		parallelism, _ := cmd.Flags().GetInt("parallelism")
		asJSON, _ := cmd.Flags().GetBool("json")
		if parallelism <= 0 {
			parallelism = app.Config.Replay.Parallelism
		}

		in, closeIn, err := openInput(cmd, path)
		if err != nil {
			return err
		}
		defer closeIn()

		items, err := readReplayItems(in)
		if err != nil {
			return err
		}
		logging.Info(ctx, "replay started", slog.Int("events", len(items)), slog.Int("parallelism", parallelism))

		results, err := replayEvents(ctx, svc, items, parallelism)
		if err != nil {
			return err
		}
		summary := summarizeReplay(results)
		logging.Info(
			ctx,
			"replay finished",
			slog.Int("created", summary.Created),
			slog.Int("updated", summary.Updated),
			slog.Any("failed", summary.Failed),
		)

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"summary": summary, "results": results})
		}
		return writeReplaySummary(cmd, summary)
	}),
}

// replayEvents processes items with at most parallelism in flight. Items
// sharing a dedup key run one after another in input order so later reports
// of a fault are applied after earlier ones. Per-event failures land in the
// results; only context cancellation aborts the batch.
func replayEvents(ctx context.Context, svc eventProcessor, items []replayItem, parallelism int) ([]triage.Result, error) {
	if parallelism <= 0 {
		parallelism = 1
	}
	results := make([]triage.Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, group := range partitionReplayItems(items) {
		g.Go(func() error {
			for _, item := range group {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[item.Index] = replayOne(gctx, svc, item)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, errs.Wrap(err, "replay events")
	}
	return results, nil
}

func replayOne(ctx context.Context, svc eventProcessor, item replayItem) triage.Result {
	if item.Err != nil {
		return triage.FailureResult(item.Err)
	}
	itemCtx := logging.WithAttrs(ctx, slog.Int("replay_index", item.Index))
	result, err := svc.Process(itemCtx, item.Raw)
	if err != nil && !result.Success && result.ErrorKind == "" {
		result = triage.FailureResult(err)
	}
	return result
}

// partitionReplayItems groups items by dedup key, keeping input order inside
// each group and ordering groups by their first item. Items without a key
// form groups of one.
func partitionReplayItems(items []replayItem) [][]replayItem {
	groups := make([][]replayItem, 0, len(items))
	byKey := make(map[fault.DedupKey]int)
	for _, item := range items {
		key, ok := item.Raw.DedupKey()
		if item.Err != nil || !ok {
			groups = append(groups, []replayItem{item})
			continue
		}
		if idx, seen := byKey[key]; seen {
			groups[idx] = append(groups[idx], item)
			continue
		}
		byKey[key] = len(groups)
		groups = append(groups, []replayItem{item})
	}
	return groups
}

func summarizeReplay(results []triage.Result) replaySummary {
	s := replaySummary{Total: len(results), Failed: map[string]int{}}
	for _, r := range results {
		switch {
		case !r.Success:
			s.Failed[r.ErrorKind]++
		case r.TicketAction == fault.TicketActionUpdateExisting:
			s.Updated++
		default:
			s.Created++
		}
	}
	return s
}

func writeReplaySummary(cmd *cobra.Command, s replaySummary) error {
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, titleStyle.Render("replay")); err != nil {
		return errs.Wrap(err, "write replay summary")
	}
	lines := []string{
		labelStyle.Render("total") + fmt.Sprintf("%d", s.Total),
		labelStyle.Render("created") + fmt.Sprintf("%d", s.Created),
		labelStyle.Render("updated") + fmt.Sprintf("%d", s.Updated),
	}
	kinds := make([]string, 0, len(s.Failed))
	for kind := range s.Failed {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("%-18s", kind))+fmt.Sprintf("%d", s.Failed[kind]))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return errs.Wrap(err, "write replay summary")
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringP("file", "f", "-", "Events file, JSON array or one JSON object per line (- for stdin)")
	replayCmd.Flags().Int("parallelism", 0, "Events processed concurrently (defaults to replay.parallelism)")
	replayCmd.Flags().Bool("json", false, "Print summary and results as JSON")
}
