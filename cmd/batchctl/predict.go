package main

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/spf13/cobra"
)

func newPredictCmd(a *app) *cobra.Command {
	var (
		customer string
		days     int
		types    []string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Forecast failures, long runners, SLA misses and volume spikes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseCustomerFlag(customer)
			if err != nil {
				return err
			}

			var run *predict.Run
			err = a.with(cmd, func(ctx context.Context, b *backend) error {
				run, err = b.predictor.Predict(ctx, predict.Request{CustomerID: id, DaysAhead: days, Types: types})
				return err
			})
			if err != nil {
				return err
			}

			if err := a.render(run, []string{"type", "job", "date", "probability", "risk", "source"}, predictionRows(run)); err != nil {
				return err
			}
			if a.output == "table" {
				fmt.Fprintf(a.out, "\n%d alerts raised, %d expired\n", len(run.Alerts), run.Expired)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "Customer UUID")
	cmd.Flags().IntVar(&days, "days", 7, "Days ahead to forecast")
	cmd.Flags().StringSliceVar(&types, "types", nil, "Prediction groups: all, failures, long_runners, sla_misses, volume_spikes")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func predictionRows(run *predict.Run) [][]string {
	var all []*models.PredictionResult
	for _, group := range run.Predictions {
		all = append(all, group...)
	}
	slices.SortFunc(all, func(x, y *models.PredictionResult) int {
		return cmp.Or(
			cmp.Compare(x.PredictionType, y.PredictionType),
			x.PredictedDate.Compare(y.PredictedDate),
			cmp.Compare(y.Probability, x.Probability),
			cmp.Compare(x.JobName, y.JobName),
		)
	})

	rows := make([][]string, 0, len(all))
	for _, p := range all {
		rows = append(rows, []string{
			string(p.PredictionType),
			truncate(p.JobName, 40),
			p.PredictedDate.Format("2006-01-02"),
			strconv.FormatFloat(p.Probability, 'f', 1, 64) + "%",
			string(p.RiskLevel),
			string(p.Source),
		})
	}
	return rows
}
