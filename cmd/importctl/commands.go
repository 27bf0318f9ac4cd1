package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/FACorreiaa/smart-import/internal/domain/import/dedupe"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/parser"
	"github.com/FACorreiaa/smart-import/internal/domain/import/service"
	"github.com/FACorreiaa/smart-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/smart-import/internal/domain/import/transform"
)

type options struct {
	entity      string
	mappingFile string
	output      string
	existing    string
	threshold   int
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "importctl",
		Short:        "Inspect and transform CSV exports offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.entity, "entity", "e", string(mapping.EntityTransaction),
		"record type: transaction, lead, contact, opportunity or task")
	root.PersistentFlags().StringVarP(&opts.mappingFile, "mapping", "m", "",
		"YAML file of field: header overrides applied on top of detection")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline steps to stderr")

	root.AddCommand(newAnalyzeCmd(opts), newTransformCmd(opts), newDedupeCmd(opts))
	return root
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Detect the column mapping of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, grid, m, err := opts.load(args[0])
			if err != nil {
				return err
			}
			detection, err := mapping.Detect(entity, grid.Headers)
			if err != nil {
				return err
			}

			report := struct {
				Entity       mapping.EntityType    `json:"entity" yaml:"entity"`
				Headers      []string              `json:"headers" yaml:"headers"`
				RowCount     int                   `json:"rowCount" yaml:"row_count"`
				Fingerprint  string                `json:"fingerprint" yaml:"fingerprint"`
				Mapping      mapping.ColumnMapping `json:"mapping" yaml:"mapping"`
				Confidence   mapping.Confidence    `json:"confidence" yaml:"confidence"`
				Validation   mapping.Validation    `json:"validation" yaml:"validation"`
				ContactSlots []mapping.ContactSlot `json:"contactSlots,omitempty" yaml:"contact_slots,omitempty"`
				SampleRows   [][]string            `json:"sampleRows" yaml:"sample_rows"`
			}{
				Entity:      entity,
				Headers:     grid.Headers,
				RowCount:    len(grid.Rows),
				Fingerprint: sniffer.Fingerprint(grid.Headers),
				Mapping:     m,
				Confidence:  detection.Confidence,
				Validation:  mapping.Validate(entity, m),
				SampleRows:  sniffer.SampleRows(grid, 5),
			}
			if entity == mapping.EntityLead {
				report.ContactSlots = mapping.DetectContactSlots(grid.Headers)
			}
			return write(cmd.OutOrStdout(), opts.output, report)
		},
	}
}

func newTransformCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "transform <file.csv>",
		Short: "Apply the mapping and print typed records with row errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, _, m, err := opts.load(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			svc := service.NewImportService(nil, opts.logger(cmd), service.Options{})
			res, err := svc.Preview(cmd.Context(), entity, data, m)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), opts.output, res)
		},
	}
}

func newDedupeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dedupe <file.csv>",
		Short: "Check records of a file against an export of existing records",
		Long: `Check records of a file against an export of existing records.

The --existing file is read with the same entity and detected mapping. For
transactions it needs date, amount and description columns; for leads a
name and, optionally, a website column.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.existing == "" {
				return fmt.Errorf("--existing is required")
			}
			entity, err := mapping.ParseEntityType(opts.entity)
			if err != nil {
				return err
			}

			incoming, err := opts.batch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			existing, err := opts.batch(cmd.Context(), opts.existing)
			if err != nil {
				return fmt.Errorf("existing records: %w", err)
			}

			var results any
			switch entity {
			case mapping.EntityTransaction:
				results = dedupe.CheckBatch[dedupe.TransactionCandidate, dedupe.ExistingTransaction](
					dedupe.NewTransactionStrategy(opts.threshold),
					transactionCandidates(incoming.Transactions),
					existingTransactions(existing.Transactions),
				)
			case mapping.EntityLead:
				results = dedupe.CheckBatch[dedupe.LeadCandidate, dedupe.ExistingLead](
					dedupe.LeadStrategy{},
					leadCandidates(incoming.Leads),
					existingLeads(existing.Leads),
				)
			default:
				return fmt.Errorf("no duplicate rule for %s records", entity)
			}
			return write(cmd.OutOrStdout(), opts.output, results)
		},
	}
	cmd.Flags().StringVar(&opts.existing, "existing", "", "CSV export of records already stored")
	cmd.Flags().IntVar(&opts.threshold, "threshold", dedupe.DefaultThreshold, "transaction description similarity threshold (0-100)")
	return cmd
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	if !o.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// load reads a file and resolves the entity and its effective mapping.
func (o *options) load(path string) (mapping.EntityType, *parser.Grid, mapping.ColumnMapping, error) {
	entity, err := mapping.ParseEntityType(o.entity)
	if err != nil {
		return "", nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, nil, err
	}
	text, err := sniffer.NormalizeEncoding(data)
	if err != nil {
		return "", nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	grid := parser.Parse(text)

	detection, err := mapping.Detect(entity, grid.Headers)
	if err != nil {
		return "", nil, nil, err
	}
	m := detection.Mapping

	if o.mappingFile != "" {
		override, err := readMappingFile(o.mappingFile)
		if err != nil {
			return "", nil, nil, err
		}
		if m, err = mapping.Apply(entity, m, override); err != nil {
			return "", nil, nil, err
		}
	}
	return entity, grid, m, nil
}

func (o *options) batch(ctx context.Context, path string) (*transform.Batch, error) {
	entity, grid, m, err := o.load(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var slots []mapping.ContactSlot
	if entity == mapping.EntityLead {
		slots = mapping.DetectContactSlots(grid.Headers)
	}
	return transform.Run(entity, grid, m, slots)
}

// readMappingFile parses a YAML document of field: header pairs. A null or
// empty header unmaps the field.
func readMappingFile(path string) (mapping.ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]*string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m := make(mapping.ColumnMapping, len(raw))
	for field, header := range raw {
		if header == nil {
			m[field] = ""
		} else {
			m[field] = *header
		}
	}
	return m, nil
}

func transactionCandidates(txs []transform.Transaction) []dedupe.TransactionCandidate {
	out := make([]dedupe.TransactionCandidate, len(txs))
	for i, tx := range txs {
		out[i] = dedupe.TransactionCandidate{Date: tx.Date, Description: tx.Description}
		if tx.IsValid {
			amount := tx.Amount
			out[i].Amount = &amount
		}
	}
	return out
}

func existingTransactions(txs []transform.Transaction) []dedupe.ExistingTransaction {
	var out []dedupe.ExistingTransaction
	for _, tx := range transform.Valid(txs) {
		out = append(out, dedupe.ExistingTransaction{Date: tx.Date, Amount: tx.Amount, Description: tx.Description})
	}
	return out
}

func leadCandidates(leads []transform.Lead) []dedupe.LeadCandidate {
	out := make([]dedupe.LeadCandidate, len(leads))
	for i, l := range leads {
		out[i] = dedupe.LeadCandidate{Name: l.Name, Website: l.Website}
	}
	return out
}

func existingLeads(leads []transform.Lead) []dedupe.ExistingLead {
	var out []dedupe.ExistingLead
	for _, l := range transform.Valid(leads) {
		out = append(out, dedupe.ExistingLead{Name: l.Name, Website: l.Website})
	}
	return out
}
