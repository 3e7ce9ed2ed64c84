package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/erdispatch/app"
	"github.com/kilianp07/erdispatch/core/assessment"
	"github.com/kilianp07/erdispatch/core/model"
)

var incidentFlags struct {
	category    string
	description string
	lat, lon    float64
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch a vehicle to a single incident",
	RunE:  dispatchIncident,
}

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Classify an incident description without dispatching",
	RunE:  assessIncident,
}

func init() {
	for _, c := range []*cobra.Command{dispatchCmd, assessCmd} {
		c.Flags().StringVar(&incidentFlags.category, "category", "", "incident category (Medical, Fire, Police)")
		c.Flags().StringVarP(&incidentFlags.description, "description", "d", "", "free-text description")
		_ = c.MarkFlagRequired("category")
		rootCmd.AddCommand(c)
	}
	dispatchCmd.Flags().Float64Var(&incidentFlags.lat, "lat", 0, "incident latitude")
	dispatchCmd.Flags().Float64Var(&incidentFlags.lon, "lon", 0, "incident longitude")
	_ = dispatchCmd.MarkFlagRequired("lat")
	_ = dispatchCmd.MarkFlagRequired("lon")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dispatchIncident(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	res, err := svc.HandleEmergency(ctx, model.Incident{
		Category:    model.Category(incidentFlags.category),
		Location:    model.Location{Lat: incidentFlags.lat, Lon: incidentFlags.lon},
		Description: incidentFlags.description,
	})
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return printJSON(cmd, struct {
		model.DispatchResult
		ETAMinutes int `json:"eta_minutes"`
	}{res, res.ETAMinutes()})
}

func assessIncident(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	a := assessment.New()
	if cfg.Assessment.Active() {
		svc, err := app.New(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = svc.Close() }()
		a = svc.Assessor
	}
	res, err := a.Assess(ctx, model.Category(incidentFlags.category), incidentFlags.description)
	if err != nil {
		return err
	}
	return printJSON(cmd, res)
}
