package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kiranshivaraju/batchpulse/internal/upload"
	"github.com/spf13/cobra"
)

func newIngestCmd(a *app) *cobra.Command {
	var customer, product, fileType string

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a CSV or XLSX file for a customer",
		Long: `Ingest stores the file alongside API uploads, records it and parses it
into job executions, volumetrics, SLA records or schedules depending on --type.
BATCH_PERFORMANCE files are followed by an SLA analysis of the customer's runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var res *upload.Result
			err = a.with(cmd, func(ctx context.Context, b *backend) error {
				res, err = b.uploads.Upload(ctx, upload.Request{
					CustomerID: customer,
					Product:    product,
					FileType:   fileType,
					FileName:   filepath.Base(args[0]),
					Body:       f,
				})
				return err
			})
			if err != nil {
				return err
			}

			if err := a.render(res, []string{"file_upload_id", "file", "size", "success", "message"}, [][]string{{
				res.FileUploadID.String(), res.FileName, strconv.FormatInt(res.FileSize, 10),
				strconv.FormatBool(res.Success), res.Message,
			}}); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("ingest failed: %s", res.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "Customer UUID")
	cmd.Flags().StringVar(&product, "product", "", "Product code, e.g. FACETS")
	cmd.Flags().StringVar(&fileType, "type", "", "BATCH_PERFORMANCE, VOLUMETRICS, SLA_TRACKING or BATCH_SCHEDULE")
	for _, name := range []string{"customer", "product", "type"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
