package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tidewatch/tidewatch/internal/store"
)

// Boat command flags.
var (
	flagBoatRegistration string
	flagBoatLength       float64
	flagBoatColor        string
)

func newBoatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boat",
		Short: "Manage boats",
	}

	cmd.AddCommand(newBoatListCmd())
	cmd.AddCommand(newBoatAddCmd())
	cmd.AddCommand(newBoatRemoveCmd())

	return cmd
}

func newBoatListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List boats",
		RunE:  runBoatList,
	}
}

func newBoatAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a boat",
		Args:  cobra.ExactArgs(1),
		RunE:  runBoatAdd,
	}

	cmd.Flags().StringVar(&flagBoatRegistration, "registration", "", "registration number")
	cmd.Flags().Float64Var(&flagBoatLength, "length", 0, "length in meters")
	cmd.Flags().StringVar(&flagBoatColor, "color", "", "hull color")

	return cmd
}

func newBoatRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a boat",
		Args:  cobra.ExactArgs(1),
		RunE:  runBoatRemove,
	}
}

func runBoatList(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	snap := a.store.Read()

	boats := make([]store.Boat, 0, len(snap.Boats))
	for _, b := range snap.Boats {
		boats = append(boats, b)
	}

	sort.Slice(boats, func(i, j int) bool {
		return boats[i].CreatedAt < boats[j].CreatedAt
	})

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(boats)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tREGISTRATION\tLENGTH")

	for _, b := range boats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fm\n", b.ID, b.Name, b.Registration, b.LengthMeters)
	}

	return w.Flush()
}

func runBoatAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	created := a.store.CreateBoat(store.Boat{
		Name:         args[0],
		Registration: flagBoatRegistration,
		LengthMeters: flagBoatLength,
		HullColor:    flagBoatColor,
	})

	body, err := json.Marshal(created)
	if err != nil {
		return fmt.Errorf("encoding boat: %w", err)
	}

	newSubmitter(a).Submit(cmd.Context(), store.MutationCreate,
		http.MethodPost, "/v1/boats", body)

	fmt.Println(created.ID)

	return nil
}

func runBoatRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	id := args[0]

	if !a.store.DeleteBoat(id) {
		return fmt.Errorf("boat %s not found", id)
	}

	newSubmitter(a).Submit(cmd.Context(), store.MutationDelete,
		http.MethodDelete, "/v1/boats/"+id, nil)

	return nil
}
