package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/metals/market"
	"github.com/rustyeddy/metals/pipeline"
	"github.com/rustyeddy/metals/store"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query stored prices and indicators",
	Long: `Run one or more reads against the store. Reads given together run
concurrently, each on its own connection, and are printed in the order
they were given.

Filters build a single query; --spec-file runs a JSON array of specs;
--demo runs the example read set.

Examples:
  metals query --metal GOLD --from 2021-01-01 --to 2021-03-31
  metals query --min-rsi 70 --format csv
  metals query --spec-file specs.json --isolated
  metals query --demo`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

var (
	queryDemo     bool
	queryIsolated bool
	querySpecFile string
	queryFormat   string

	queryID       int64
	queryMetal    string
	queryDate     string
	queryFrom     string
	queryTo       string
	queryMinRSI   string
	queryMaxRSI   string
	queryMinMACD  string
	queryMaxMACD  string
	queryMinPrice string
	queryMaxPrice string
)

func init() {
	rootCmd.AddCommand(queryCmd)

	f := queryCmd.Flags()
	f.BoolVar(&queryDemo, "demo", false, "run the example read set")
	f.BoolVar(&queryIsolated, "isolated", false, "report each read's error separately instead of failing all")
	f.StringVar(&querySpecFile, "spec-file", "", "JSON file with an array of query specs")
	f.StringVarP(&queryFormat, "format", "o", "org", "output format: org, csv or json")

	f.Int64Var(&queryID, "id", 0, "record id")
	f.StringVar(&queryMetal, "metal", "", "metal name")
	f.StringVar(&queryDate, "date", "", "exact date (YYYY-MM-DD)")
	f.StringVar(&queryFrom, "from", "", "first date, inclusive")
	f.StringVar(&queryTo, "to", "", "last date, inclusive")
	f.StringVar(&queryMinRSI, "min-rsi", "", "minimum RSI")
	f.StringVar(&queryMaxRSI, "max-rsi", "", "maximum RSI")
	f.StringVar(&queryMinMACD, "min-macd", "", "minimum MACD")
	f.StringVar(&queryMaxMACD, "max-macd", "", "maximum MACD")
	f.StringVar(&queryMinPrice, "min-price", "", "minimum price")
	f.StringVar(&queryMaxPrice, "max-price", "", "maximum price")

	queryCmd.MarkFlagsMutuallyExclusive("demo", "spec-file")
}

func specFromFlags() store.Spec {
	spec := store.Spec{Name: "query"}
	add := func(field, op, v string) {
		if v != "" {
			spec.Conditions = append(spec.Conditions, store.Condition{Field: field, Op: op, Value: v})
		}
	}

	if queryID != 0 {
		add(store.FieldID, "=", strconv.FormatInt(queryID, 10))
	}
	add(store.FieldMetal, "=", queryMetal)
	add(store.FieldDate, "=", queryDate)
	add(store.FieldDate, ">=", queryFrom)
	add(store.FieldDate, "<=", queryTo)
	add(store.FieldRSI, ">=", queryMinRSI)
	add(store.FieldRSI, "<=", queryMaxRSI)
	add(store.FieldMACD, ">=", queryMinMACD)
	add(store.FieldMACD, "<=", queryMaxMACD)
	add(store.FieldPrice, ">=", queryMinPrice)
	add(store.FieldPrice, "<=", queryMaxPrice)
	return spec
}

func readSpecFile(path string) ([]store.Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var specs []store.Spec
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&specs); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return specs, nil
}

func querySpecs() ([]store.Spec, error) {
	switch {
	case queryDemo:
		return pipeline.DemoSpecs(), nil
	case querySpecFile != "":
		return readSpecFile(querySpecFile)
	}
	return []store.Spec{specFromFlags()}, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	switch queryFormat {
	case "org", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q (want org, csv or json)", queryFormat)
	}

	specs, err := querySpecs()
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if queryIsolated {
		for i, o := range a.svc.QueryIsolated(cmd.Context(), specs) {
			if o.Err != nil {
				fmt.Fprintf(out, "# %s: error: %v\n", specs[i].Name, o.Err)
				continue
			}
			if err := printRecords(out, specs[i].Name, o.Records); err != nil {
				return err
			}
		}
		return nil
	}

	results, err := a.svc.Query(cmd.Context(), specs)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	for i, recs := range results {
		if err := printRecords(out, specs[i].Name, recs); err != nil {
			return err
		}
	}
	return nil
}

func printRecords(w io.Writer, name string, recs []market.Record) error {
	switch queryFormat {
	case "csv":
		return market.WriteCSV(w, recs)
	case "json":
		enc := json.NewEncoder(w)
		return enc.Encode(struct {
			Name    string          `json:"name"`
			Records []market.Record `json:"records"`
		}{name, recs})
	}
	_, err := fmt.Fprintln(w, market.FormatOrg(name, recs))
	return err
}
