package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lg/stride-api/engine"
	"lg/stride-api/internal/planservice"
	"lg/stride-api/internal/store"
)

/* ─── generate ───────────────────────────────────────────────────────── */

func newGenerateCmd(opts *options) *cobra.Command {
	var profilePath string
	var withContent bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a new plan from a profile and store it as the next version",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw engine.RawProfile
			if err := readInput(profilePath, &raw); err != nil {
				return err
			}
			svc, plans, err := opts.openService(withContent)
			if err != nil {
				return err
			}
			defer plans.Close()

			res, err := svc.Generate(cmd.Context(), opts.userID, raw)
			if errors.Is(err, planservice.ErrNotSaved) {
				return printUnsaved(cmd, opts.format, res, err)
			}
			if err != nil {
				return err
			}
			if res.ContentErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: content generation failed, using fallback: %v\n", res.ContentErr)
			}
			return printOut(cmd.OutOrStdout(), opts.format, res)
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file (YAML or JSON)")
	cmd.Flags().BoolVar(&withContent, "content", false, "Generate meal ideas and workout notes via OPENAI_API_KEY")
	cmd.MarkFlagRequired("profile")
	return cmd
}

/* ─── revise ─────────────────────────────────────────────────────────── */

func newReviseCmd(opts *options) *cobra.Command {
	var profilePath, logsPath string
	var withContent bool

	cmd := &cobra.Command{
		Use:   "revise",
		Short: "Revise the latest plan from the trailing week of logs, if due",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw engine.RawProfile
			if err := readInput(profilePath, &raw); err != nil {
				return err
			}
			var logs engine.LogWindow
			if logsPath != "" {
				if err := readInput(logsPath, &logs); err != nil {
					return err
				}
			}
			svc, plans, err := opts.openService(withContent)
			if err != nil {
				return err
			}
			defer plans.Close()
			svc.Logs = fileLogs(logs)

			res, err := svc.MaybeRevise(cmd.Context(), opts.userID, raw)
			if errors.Is(err, engine.ErrNoCurrentPlan) {
				return fmt.Errorf("user %d has no plan: run generate first", opts.userID)
			}
			if errors.Is(err, planservice.ErrNotSaved) {
				return printUnsaved(cmd, opts.format, res, err)
			}
			if err != nil {
				return err
			}
			if res.ContentErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: content generation failed, using fallback: %v\n", res.ContentErr)
			}
			return printOut(cmd.OutOrStdout(), opts.format, res)
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file (YAML or JSON)")
	cmd.Flags().StringVarP(&logsPath, "logs", "l", "", "Log window file (YAML or JSON); empty means nothing logged")
	cmd.Flags().BoolVar(&withContent, "content", false, "Generate meal ideas and workout notes via OPENAI_API_KEY")
	cmd.MarkFlagRequired("profile")
	return cmd
}

// printUnsaved prints a plan that was computed but not stored, then fails
// the command with err.
func printUnsaved(cmd *cobra.Command, format string, res any, err error) error {
	if perr := printOut(cmd.OutOrStdout(), format, res); perr != nil {
		return perr
	}
	return err
}

/* ─── show / history / due ───────────────────────────────────────────── */

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the latest stored plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, plans, err := opts.openService(false)
			if err != nil {
				return err
			}
			defer plans.Close()

			latest, err := svc.Plans.LatestPlan(cmd.Context(), opts.userID)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("user %d has no plan", opts.userID)
			}
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), opts.format, latest)
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print past adherence records, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, plans, err := opts.openService(false)
			if err != nil {
				return err
			}
			defer plans.Close()

			records, err := svc.Plans.AdherenceHistory(cmd.Context(), opts.userID, limit)
			if err != nil {
				return err
			}
			if records == nil {
				records = []engine.AdherenceRecord{}
			}
			return printOut(cmd.OutOrStdout(), opts.format, records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 12, "Most recent records to show (0 for all)")
	return cmd
}

// dueStatus is the output of the due command.
type dueStatus struct {
	UserID         int     `json:"user_id"`
	Due            bool    `json:"due"`
	LastRevisionAt *string `json:"last_revision_at"`
	NextRevisionAt *string `json:"next_revision_at"`
}

func newDueCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Report whether a revision is due",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, plans, err := opts.openService(false)
			if err != nil {
				return err
			}
			defer plans.Close()

			last, err := svc.Plans.LastRevisionAt(cmd.Context(), opts.userID)
			if err != nil {
				return err
			}
			out := dueStatus{UserID: opts.userID, Due: engine.IsRevisionDue(last, svc.Now())}
			if !last.IsZero() {
				l := last.Format(time.RFC3339)
				n := last.Add(engine.RevisionInterval).Format(time.RFC3339)
				out.LastRevisionAt, out.NextRevisionAt = &l, &n
			}
			return printOut(cmd.OutOrStdout(), opts.format, out)
		},
	}
}

/* ─── sweep ──────────────────────────────────────────────────────────── */

func newSweepCmd(opts *options) *cobra.Command {
	var profilePath, logsPath string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run due revisions for every user in the store",
		Long: "sweep applies one profile and one log file to every stored user. It is " +
			"meant for replaying a scheduled run against test data.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw engine.RawProfile
			if err := readInput(profilePath, &raw); err != nil {
				return err
			}
			var logs engine.LogWindow
			if logsPath != "" {
				if err := readInput(logsPath, &logs); err != nil {
					return err
				}
			}
			svc, plans, err := opts.openService(false)
			if err != nil {
				return err
			}
			defer plans.Close()
			svc.Logs = fileLogs(logs)
			svc.Profiles = staticProfile(raw)
			svc.SweepConcurrency = concurrency

			ids, err := svc.Plans.UserIDs(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := svc.Sweep(cmd.Context(), ids)
			if err != nil {
				return err
			}
			return printOut(cmd.OutOrStdout(), opts.format, stats)
		},
	}
	cmd.Flags().StringVarP(&profilePath, "profile", "p", "", "Profile file applied to every user")
	cmd.Flags().StringVarP(&logsPath, "logs", "l", "", "Log window file applied to every user")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Users revised in parallel")
	cmd.MarkFlagRequired("profile")
	return cmd
}
