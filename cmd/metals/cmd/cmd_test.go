package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/metals/market"
)

func resetFlags() {
	cfgFile, envFile, logLevel = "", "", ""
	queryDemo, queryIsolated, querySpecFile, queryFormat = false, false, "", "org"
	queryID = 0
	queryMetal, queryDate, queryFrom, queryTo = "", "", "", ""
	queryMinRSI, queryMaxRSI, queryMinMACD, queryMaxMACD, queryMinPrice, queryMaxPrice = "", "", "", "", "", ""
	runsLimit = 10
	configInitOutput, configValidatePath = "metals.yaml", ""
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// setup writes a config pointing at a temp store and a 40 day price table.
func setup(t *testing.T) (cfgPath, csvPath, timingPath string) {
	t.Helper()
	dir := t.TempDir()

	var b strings.Builder
	b.WriteString("Dates,GOLD,SILVER\n")
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%s,%.2f,%.2f\n", start.AddDate(0, 0, i).Format("2006-01-02"), 1900+float64(i), 25+float64(i%4))
	}
	csvPath = filepath.Join(dir, "prices.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(b.String()), 0o644))

	timingPath = filepath.Join(dir, "timing.log")
	cfgPath = filepath.Join(dir, "metals.yaml")
	cfg := fmt.Sprintf("store:\n  dsn: %s\ningest:\n  csv_path: %s\nlog:\n  level: warn\n  timing_file: %s\n",
		filepath.Join(dir, "metals.db"), csvPath, timingPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, csvPath, timingPath
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "metals version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metals.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "MACD 12/26/9, RSI 14")
}

func TestIngestQueryRuns(t *testing.T) {
	cfgPath, csvPath, timingPath := setup(t)
	noEnv := filepath.Join(t.TempDir(), "none.env")

	out, err := execute(t, "--config", cfgPath, "--env-file", noEnv, "ingest")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested "+csvPath)
	assert.Contains(t, out, "Records: 80")

	out, err = execute(t, "--config", cfgPath, "--env-file", noEnv, "query", "--demo", "--format", "json")
	require.NoError(t, err)

	var lengths []int
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var res struct {
			Name    string          `json:"name"`
			Records []market.Record `json:"records"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &res))
		lengths = append(lengths, len(res.Records))
	}
	assert.Equal(t, []int{2, 1, 0, 1, 1}, lengths)

	out, err = execute(t, "--config", cfgPath, "--env-file", noEnv, "query", "--metal", "SILVER", "--from", "2021-01-01", "--to", "2021-01-03", "--format", "csv")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "\n"), out)

	out, err = execute(t, "--config", cfgPath, "--env-file", noEnv, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "80 records")

	data, err := os.ReadFile(timingPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "operation=populate_sql_table")
	assert.Contains(t, string(data), "operation=concurrent_reads")
}

func TestQueryBadFormat(t *testing.T) {
	_, err := execute(t, "query", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestQueryBadFilter(t *testing.T) {
	cfgPath, _, _ := setup(t)

	_, err := execute(t, "--config", cfgPath, "--env-file", filepath.Join(t.TempDir(), "none.env"), "query", "--min-rsi", "high")
	assert.ErrorContains(t, err, "invalid query spec")
}
