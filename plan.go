package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidewatch/tidewatch/internal/connectivity"
	"github.com/tidewatch/tidewatch/internal/queue"
	"github.com/tidewatch/tidewatch/internal/store"
)

// Plan command flags.
var (
	flagPlanBoat   string
	flagPlanFrom   string
	flagPlanTo     string
	flagPlanETA    string
	flagPlanNotes  string
	flagPlanActive bool
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage float plans",
	}

	cmd.AddCommand(newPlanListCmd())
	cmd.AddCommand(newPlanCreateCmd())
	cmd.AddCommand(newPlanActivateCmd())
	cmd.AddCommand(newPlanCheckinCmd())
	cmd.AddCommand(newPlanDeleteCmd())

	return cmd
}

func newPlanListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List float plans",
		RunE:  runPlanList,
	}
}

func newPlanCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a float plan",
		Long: `Create a float plan in draft status.

The plan is written locally first; the remote write is queued for delivery
if the backend is unreachable.`,
		Args: cobra.ExactArgs(1),
		RunE: runPlanCreate,
	}

	cmd.Flags().StringVar(&flagPlanBoat, "boat", "", "boat ID")
	cmd.Flags().StringVar(&flagPlanFrom, "from", "", "departure point")
	cmd.Flags().StringVar(&flagPlanTo, "to", "", "destination")
	cmd.Flags().StringVar(&flagPlanETA, "eta", "", "check-in deadline (RFC 3339)")
	cmd.Flags().StringVar(&flagPlanNotes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&flagPlanActive, "activate", false, "activate immediately")

	return cmd
}

func newPlanActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Mark a plan as underway",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPlanStatusChange(args[0], "activate")
		},
	}
}

func newPlanCheckinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkin ID",
		Short: "Check in: mark a plan as safely completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runPlanStatusChange(args[0], "checkin")
		},
	}
}

func newPlanDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a float plan",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlanDelete,
	}
}

// newSubmitter wires the optimistic remote-write path for plan commands.
// One-shot commands use the HTTP probe as their online predicate.
func newSubmitter(a *app) *queue.Submitter {
	probe := connectivity.NewProbe(resolvedCfg.APIBaseURL+"/v1/health", a.logger)

	return queue.NewSubmitter(a.store, a.client, probe, a.logger)
}

func runPlanList(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap := a.store.Read()
	now := store.NowNano()

	plans := make([]store.Plan, 0, len(snap.Plans))
	for _, p := range snap.Plans {
		plans = append(plans, p)
	}

	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt < plans[j].CreatedAt
	})

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(plans)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tETA")

	for _, p := range plans {
		eta := "-"
		if p.ETA != 0 {
			eta = time.Unix(0, p.ETA).Format(time.RFC3339)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, store.EffectiveStatus(p, now), eta)
	}

	return w.Flush()
}

func runPlanCreate(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	plan := store.Plan{
		BoatID:     flagPlanBoat,
		Name:       args[0],
		DepartFrom: flagPlanFrom,
		ArriveAt:   flagPlanTo,
		Notes:      flagPlanNotes,
	}

	if flagPlanETA != "" {
		eta, parseErr := time.Parse(time.RFC3339, flagPlanETA)
		if parseErr != nil {
			return fmt.Errorf("parsing --eta: %w", parseErr)
		}

		plan.ETA = eta.UnixNano()
	}

	created := a.store.CreatePlan(plan)

	if flagPlanActive {
		created, _ = a.store.ActivatePlan(created.ID)
	}

	body, err := json.Marshal(created)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}

	newSubmitter(a).Submit(cmd.Context(), store.MutationCreate,
		http.MethodPost, "/v1/plans", body)

	fmt.Println(created.ID)

	return nil
}

func runPlanStatusChange(id, action string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	var (
		updated store.Plan
		found   bool
	)

	if action == "activate" {
		updated, found = a.store.ActivatePlan(id)
	} else {
		updated, found = a.store.CheckInPlan(id)
	}

	if !found {
		return fmt.Errorf("plan %s not found", id)
	}

	body, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}

	newSubmitter(a).Submit(cmdContext(), store.MutationUpdate,
		http.MethodPut, "/v1/plans/"+id, body)

	fmt.Printf("%s: %s\n", updated.Name, updated.Status)

	return nil
}

func runPlanDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	id := args[0]

	if !a.store.DeletePlan(id) {
		return fmt.Errorf("plan %s not found", id)
	}

	newSubmitter(a).Submit(cmd.Context(), store.MutationDelete,
		http.MethodDelete, "/v1/plans/"+id, nil)

	return nil
}
