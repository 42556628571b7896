package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run analyses over stored data",
	}
	cmd.AddCommand(newAnalyzeSLACmd(a))
	return cmd
}

func newAnalyzeSLACmd(a *app) *cobra.Command {
	var customer, product, from, to string

	cmd := &cobra.Command{
		Use:   "sla",
		Short: "Recompute SLA compliance for completed runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := slaFilter(customer, product, from, to)
			if err != nil {
				return err
			}

			var res *sla.Result
			err = a.with(cmd, func(ctx context.Context, b *backend) error {
				if res, err = b.analyzer.Analyze(ctx, f); err != nil {
					return err
				}
				if b.cache != nil {
					if f.CustomerID != nil {
						b.cache.Invalidate(ctx, *f.CustomerID)
					} else {
						b.cache.InvalidateAll(ctx)
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			return a.render(res, []string{"analyzed", "created", "updated", "message"}, [][]string{{
				strconv.Itoa(res.Analyzed), strconv.Itoa(res.Created), strconv.Itoa(res.Updated), res.Message,
			}})
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "Limit to one customer UUID")
	cmd.Flags().StringVar(&product, "product", "", "Limit to one product")
	cmd.Flags().StringVar(&from, "from", "", "Earliest run date")
	cmd.Flags().StringVar(&to, "to", "", "Latest run date")
	return cmd
}

func slaFilter(customer, product, from, to string) (sla.Filter, error) {
	var f sla.Filter
	if customer != "" {
		id, err := parseCustomerFlag(customer)
		if err != nil {
			return f, err
		}
		f.CustomerID = &id
	}
	if product != "" {
		f.Product = models.Product(strings.ToUpper(product))
		if !f.Product.Valid() {
			return f, fmt.Errorf("unknown product %q", product)
		}
	}

	var err error
	if f.DateRange.From, err = parseDateFlag("from", from); err != nil {
		return f, err
	}
	if f.DateRange.To, err = parseDateFlag("to", to); err != nil {
		return f, err
	}
	if !f.DateRange.From.IsZero() && !f.DateRange.To.IsZero() && f.DateRange.To.Before(f.DateRange.From) {
		return f, fmt.Errorf("--to must not be before --from")
	}
	return f, nil
}

func parseDateFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseIn(v, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return t.UTC(), nil
}
