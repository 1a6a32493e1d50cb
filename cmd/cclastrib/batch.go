package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/openfiscal/cclastrib/internal/config"
	"github.com/openfiscal/cclastrib/internal/model"
)

func batchCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
		regime     string
		ufOrigin   string
		ufDest     string
		year       int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify items from a CSV file",
		Long: `Reads a semicolon-separated CSV with columns cfop;cst_icms;ncm and
optionally produzido_zfm;valor_item, classifies every row under the shared
fiscal context given by flags, and writes a JSON report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			a, cleanup, err := buildAgent(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			items, err := readBatchCSV(inputPath)
			if err != nil {
				return err
			}

			emission := time.Now()
			if year > 0 {
				emission = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
			}
			shared := model.ClassificationRequest{
				EmissionDate: emission,
				Regime:       regime,
				UFOrigin:     ufOrigin,
				UFDest:       ufDest,
			}

			bar := progressbar.NewOptions(len(items),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Classifying items..."),
			)

			type reportRow struct {
				NCM    string                      `json:"ncm"`
				Result *model.ClassificationResult `json:"resultado"`
			}
			report := make([]reportRow, 0, len(items))
			for _, item := range items {
				req := shared
				req.CFOP = item.cfop
				req.CSTICMS = item.cstICMS
				req.NCM = item.ncm
				req.ZFMProduced = item.zfmProduced
				req.ItemValue = item.itemValue

				resp, err := a.Handle(cmd.Context(), &req)
				if err != nil {
					return err
				}
				report = append(report, reportRow{NCM: item.ncm, Result: resp.Result})
				_ = bar.Add(1)
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal report: %w", err)
			}
			if outputPath == "" || outputPath == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			if err := os.WriteFile(outputPath, out, 0600); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d results to %s\n", len(report), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input CSV path")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "output JSON path (- for stdout)")
	cmd.Flags().StringVar(&regime, "regime", "", "issuer fiscal regime")
	cmd.Flags().StringVar(&ufOrigin, "uf-origem", "", "issuer state")
	cmd.Flags().StringVar(&ufDest, "uf-destino", "", "recipient state")
	cmd.Flags().IntVar(&year, "ano", 0, "emission year (default: current year)")
	for _, required := range []string{"input", "regime", "uf-origem", "uf-destino"} {
		_ = cmd.MarkFlagRequired(required)
	}

	return cmd
}

type batchCSVItem struct {
	cfop        string
	cstICMS     string
	ncm         string
	zfmProduced bool
	itemValue   *float64
}

// readBatchCSV parses the item file: semicolon separated, header row with
// at least cfop, cst_icms and ncm columns.
func readBatchCSV(path string) ([]batchCSVItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer func() { _ = f.Close() }()
	return parseBatchCSV(f)
}

func parseBatchCSV(r io.Reader) ([]batchCSVItem, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse input CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("input CSV has no data rows")
	}

	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))] = i
	}
	for _, required := range []string{"cfop", "cst_icms", "ncm"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("input CSV missing column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	items := make([]batchCSVItem, 0, len(rows)-1)
	for _, row := range rows[1:] {
		item := batchCSVItem{
			cfop:        cell(row, "cfop"),
			cstICMS:     cell(row, "cst_icms"),
			ncm:         cell(row, "ncm"),
			zfmProduced: strings.EqualFold(cell(row, "produzido_zfm"), "S"),
		}
		if raw := cell(row, "valor_item"); raw != "" {
			v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid valor_item %q: %w", raw, err)
			}
			item.itemValue = &v
		}
		items = append(items, item)
	}
	return items, nil
}
