package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/registralia/borme-engine/internal/extract"
	"github.com/registralia/borme-engine/internal/normalize"
	"github.com/registralia/borme-engine/internal/storage"
)

// parseOutput is the JSON document printed by parse-pdf.
type parseOutput struct {
	File    string         `json:"file"`
	Date    string         `json:"gazette_date"`
	Region  string         `json:"region"`
	Records []parsedRecord `json:"records"`
}

type parsedRecord struct {
	Company storage.Company `json:"company"`
	Acts    []extract.Act   `json:"acts"`
}

// newParsePDFCmd creates the parse-pdf subcommand.
func newParsePDFCmd() *cobra.Command {
	var (
		region string
		date   string
	)

	cmd := &cobra.Command{
		Use:   "parse-pdf FILE",
		Short: "Extract and normalize company records from a local PDF",
		Long: `parse-pdf runs the extraction and normalization stages against a local
gazette PDF and prints the resulting records as JSON. Nothing is stored;
this is a debugging aid for extractor changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			if date == "" {
				date = time.Now().Format("2006-01-02")
			}

			extractor := extract.NewExtractor(extract.Config{}, logger)
			records, err := extractor.ParseFile(ctx, args[0])
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}

			out := parseOutput{
				File:    args[0],
				Date:    date,
				Region:  region,
				Records: make([]parsedRecord, 0, len(records)),
			}
			for i := range records {
				company := normalize.Company(&records[i], region, date)
				out.Records = append(out.Records, parsedRecord{
					Company: company,
					Acts:    records[i].Acts,
				})
			}
			return printJSON(out)
		},
	}

	cmd.Flags().StringVar(&region, "region", "Desconocida", "regional section label for normalization")
	cmd.Flags().StringVar(&date, "date", "", "gazette date for first/last-seen fields (default: today)")
	return cmd
}
