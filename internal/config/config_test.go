package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/model"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	if yaml != "" {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	d := Default()
	assert.Equal(t, d.Columns, cfg.Columns)
	assert.Equal(t, d.Filter, cfg.Filter)
	assert.Equal(t, d.Normalize, cfg.Normalize)
	assert.Equal(t, d.Sanity, cfg.Sanity)
	assert.Equal(t, d.Detector, cfg.Detector)
	assert.Equal(t, model.DefaultFeatures, cfg.Features)
	assert.NotContains(t, cfg.Database.Path, "$HOME")
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := Load(newViper(t, `
columns:
  claim_id: Claim Ref
filter:
  excluded_templates: []
detector:
  contamination: 0.1
  seed: 42
features: [commute_miles, total_miles, paid_miles, element_count]
database:
  path: ""
`))
	require.NoError(t, err)

	assert.Equal(t, "Claim Ref", cfg.Columns.Column(model.FieldClaimID))
	assert.Equal(t, "Personal Reference:Timesheet", cfg.Columns.Column(model.FieldEmployeeID))
	assert.Empty(t, cfg.Filter.ExcludedTemplates)
	assert.InDelta(t, 0.1, cfg.Detector.Contamination, 1e-12)
	assert.Equal(t, int64(42), cfg.Detector.Seed)
	assert.Equal(t, 100, cfg.Detector.Trees, "unset keys keep defaults")
	assert.Equal(t, model.FeatureCommuteMiles, cfg.Features[0])
	assert.Empty(t, cfg.Database.Path)

	p := cfg.Pipeline()
	assert.Equal(t, cfg.Columns, p.Mapping)
	assert.Equal(t, cfg.Detector, p.Detector)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "contamination too high",
			yaml: "detector:\n  contamination: 0.7\n",
			want: "detector.contamination",
		},
		{
			name: "bad log level",
			yaml: "logging:\n  level: loud\n",
			want: "logging.level",
		},
		{
			name: "missing feature",
			yaml: "features: [paid_miles, total_miles, commute_miles]\n",
			want: "features",
		},
		{
			name: "retain drops required field",
			yaml: "normalize:\n  retain: [claim_id, employee_id, submitted_date, miles_claimed, total_mileage]\n  dates: [submitted_date]\n",
			want: "commute_mileage",
		},
		{
			name: "retain non-retainable",
			yaml: "normalize:\n  retain: [claim_id, employee_id, submitted_date, miles_claimed, total_mileage, commute_mileage, template]\n  dates: [submitted_date]\n",
			want: "cannot be retained",
		},
		{
			name: "date not retained",
			yaml: "normalize:\n  retain: [claim_id, employee_id, submitted_date, miles_claimed, total_mileage, commute_mileage]\n  dates: [submitted_date, start_date]\n",
			want: "not retained",
		},
		{
			name: "retained date not parsed",
			yaml: "normalize:\n  dates: [submitted_date]\n",
			want: "retained date field",
		},
		{
			name: "duplicate column",
			yaml: "columns:\n  claim_id: V_AllMileage_A\n",
			want: "mapped to both",
		},
		{
			name: "bad input format",
			yaml: "input:\n  format: parquet\n",
			want: "input.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLogOptions(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "/tmp/mileage.log"

	opts, err := cfg.LogOptions()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mileage.log", opts.File)
	assert.Equal(t, "console", opts.Format)
	assert.Equal(t, 50, opts.MaxSizeMB)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("MILEAGE_TEST_DIR", "/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "runs.db"), ExpandPath("~/runs.db"))
	assert.Equal(t, "/data/runs.db", ExpandPath("$MILEAGE_TEST_DIR/runs.db"))
}

func TestLabelledPath(t *testing.T) {
	assert.Equal(t, filepath.Join("exports", "claims Labelled.csv"), LabelledPath(filepath.Join("exports", "claims.xlsx"), ".csv"))
	assert.Equal(t, "claims Labelled.svg", LabelledPath("claims.csv", ".svg"))
}
