package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/internal/sla"
	"github.com/kiranshivaraju/batchpulse/internal/upload"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/spf13/cobra"
)

var outputFormats = []string{"table", "json", "yaml"}

type uploader interface {
	Upload(ctx context.Context, req upload.Request) (*upload.Result, error)
}

type analyzer interface {
	Analyze(ctx context.Context, f sla.Filter) (*sla.Result, error)
}

type invalidator interface {
	Invalidate(ctx context.Context, customerID uuid.UUID)
	InvalidateAll(ctx context.Context)
}

type predictor interface {
	Predict(ctx context.Context, req predict.Request) (*predict.Run, error)
}

type definitionStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	ListCustomers(ctx context.Context) ([]*models.Customer, error)
	UpsertSLADefinition(ctx context.Context, def *models.SLADefinition) (bool, error)
}

type keyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
}

// backend is everything the commands operate on. cache is nil when no Redis
// is configured.
type backend struct {
	uploads     uploader
	analyzer    analyzer
	cache       invalidator
	predictor   predictor
	definitions definitionStore
	keys        keyStore
	close       func()
}

type connectFunc func(ctx context.Context) (*backend, error)

// app holds state shared by every subcommand.
type app struct {
	connect connectFunc
	output  string
	timeout time.Duration
	out     io.Writer
}

func newRootCmd(connect connectFunc) *cobra.Command {
	a := &app{connect: connect, out: os.Stdout}

	root := &cobra.Command{
		Use:           "batchctl",
		Short:         "Operate a batchpulse database from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !slices.Contains(outputFormats, a.output) {
				return fmt.Errorf("unsupported output format %q (use table, json or yaml)", a.output)
			}
			a.out = cmd.OutOrStdout()
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: slog.LevelWarn,
			})))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format: table, json, yaml")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Minute, "Overall command timeout")

	root.AddCommand(
		newIngestCmd(a),
		newAnalyzeCmd(a),
		newPredictCmd(a),
		newSLACmd(a),
		newKeysCmd(a),
	)
	return root
}

// with connects, runs fn and releases the backend.
func (a *app) with(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	b, err := a.connect(ctx)
	if err != nil {
		return err
	}
	if b.close != nil {
		defer b.close()
	}
	return fn(ctx, b)
}

func parseCustomerFlag(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--customer must be a UUID: %w", err)
	}
	return id, nil
}
