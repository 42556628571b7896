package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/pkg/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// definitionFile is the YAML layout read by "sla import":
//
//	customer: ACME            # code or UUID
//	definitions:
//	  - product: FACETS
//	    job_name: CLAIMS_DAILY
//	    target_time: "06:30"
//	    description: Claims must land before the morning extract
//	    active: true
type definitionFile struct {
	Customer    string            `yaml:"customer"`
	Definitions []definitionEntry `yaml:"definitions"`
}

type definitionEntry struct {
	Customer    string            `yaml:"customer"`
	Product     string            `yaml:"product"`
	JobName     string            `yaml:"job_name"`
	TargetTime  *models.TimeOfDay `yaml:"target_time"`
	Description string            `yaml:"description"`
	Active      *bool             `yaml:"active"`
}

type importedDefinition struct {
	*models.SLADefinition
	Created bool `json:"created"`
}

func newSLACmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sla",
		Short: "Manage SLA definitions",
	}
	cmd.AddCommand(newSLAImportCmd(a))
	return cmd
}

func newSLAImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <definitions.yaml>",
		Short: "Create or update SLA definitions from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := readDefinitions(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			var imported []importedDefinition
			err = a.with(cmd, func(ctx context.Context, b *backend) error {
				imported, err = importDefinitions(ctx, b.definitions, doc)
				return err
			})
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(imported))
			for _, d := range imported {
				action := "updated"
				if d.Created {
					action = "created"
				}
				rows = append(rows, []string{
					string(d.Product), d.JobName, d.TargetTime.String(), fmt.Sprint(d.IsActive), action,
				})
			}
			return a.render(imported, []string{"product", "job", "target", "active", "action"}, rows)
		},
	}
}

func readDefinitions(r io.Reader) (*definitionFile, error) {
	var doc definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("file is empty")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Definitions) == 0 {
		return nil, fmt.Errorf("no definitions")
	}

	for i, d := range doc.Definitions {
		switch {
		case d.Customer == "" && doc.Customer == "":
			return nil, fmt.Errorf("definition %d: customer is required", i+1)
		case !models.Product(strings.ToUpper(d.Product)).Valid():
			return nil, fmt.Errorf("definition %d: unknown product %q", i+1, d.Product)
		case strings.TrimSpace(d.JobName) == "":
			return nil, fmt.Errorf("definition %d: job_name is required", i+1)
		case d.TargetTime == nil:
			return nil, fmt.Errorf("definition %d: target_time is required", i+1)
		}
	}
	return &doc, nil
}

// importDefinitions upserts every entry. Customers are resolved by UUID or
// by code.
func importDefinitions(ctx context.Context, s definitionStore, doc *definitionFile) ([]importedDefinition, error) {
	customers, err := s.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	byCode := make(map[string]uuid.UUID, len(customers))
	for _, c := range customers {
		byCode[strings.ToUpper(c.Code)] = c.ID
	}

	resolve := func(ref string) (uuid.UUID, error) {
		if id, err := uuid.Parse(ref); err == nil {
			if _, err := s.GetCustomer(ctx, id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return uuid.Nil, fmt.Errorf("customer %s not found", ref)
				}
				return uuid.Nil, err
			}
			return id, nil
		}
		if id, ok := byCode[strings.ToUpper(ref)]; ok {
			return id, nil
		}
		return uuid.Nil, fmt.Errorf("customer %q not found", ref)
	}

	out := make([]importedDefinition, 0, len(doc.Definitions))
	for i, d := range doc.Definitions {
		ref := d.Customer
		if ref == "" {
			ref = doc.Customer
		}
		customerID, err := resolve(ref)
		if err != nil {
			return out, fmt.Errorf("definition %d: %w", i+1, err)
		}

		def := &models.SLADefinition{
			CustomerID:  customerID,
			Product:     models.Product(strings.ToUpper(d.Product)),
			JobName:     strings.TrimSpace(d.JobName),
			TargetTime:  *d.TargetTime,
			Description: d.Description,
			IsActive:    d.Active == nil || *d.Active,
		}
		created, err := s.UpsertSLADefinition(ctx, def)
		if err != nil {
			return out, fmt.Errorf("definition %d: %w", i+1, err)
		}
		out = append(out, importedDefinition{SLADefinition: def, Created: created})
	}
	return out, nil
}
