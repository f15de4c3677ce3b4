package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type exportFixture struct {
	clients *fakeClientRepo
	prompts *fakePromptRepo
	results *fakeResultRepo
	store   *memoryStore
	flow    ExportFlow
}

func newExportFixture() *exportFixture {
	f := &exportFixture{
		clients: newFakeClientRepo(),
		prompts: newFakePromptRepo(),
		results: newFakeResultRepo(),
	}
	f.store = newMemoryStore(f.results)
	f.flow = NewExportFlow(f.clients, f.prompts, f.store, nil)
	return f
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("one row per in-scope result", func(t *testing.T) {
		f := newExportFixture()
		client := seedClient(f.clients, "Acme Corp")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")
		seedResult(f.results, client.ID, prompt.ID, 80)

		filename, data, err := f.flow.ExportCSV(ctx, client.ID)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(filename, "visibility_audit_acme_corp_"))
		assert.True(t, strings.HasSuffix(filename, ".csv"))

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, exportHeader, records[0])
		assert.Equal(t, "best crm software", records[1][0])
		assert.Equal(t, "80", records[1][3])
	})

	t.Run("header only without results", func(t *testing.T) {
		f := newExportFixture()
		client := seedClient(f.clients, "Acme")
		seedPrompt(f.prompts, client.ID, "best crm software")

		_, data, err := f.flow.ExportCSV(ctx, client.ID)
		require.NoError(t, err)

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("unknown client", func(t *testing.T) {
		f := newExportFixture()
		_, _, err := f.flow.ExportCSV(ctx, 999)
		assert.ErrorIs(t, err, ErrClientNotFound)
	})
}

func TestExportJSON(t *testing.T) {
	ctx := context.Background()

	f := newExportFixture()
	client := seedClient(f.clients, "Acme")
	prompt := seedPrompt(f.prompts, client.ID, "best crm software")
	seedResult(f.results, client.ID, prompt.ID, 80)

	filename, data, err := f.flow.ExportJSON(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".json"))

	var payload struct {
		BrandName string `json:"brand_name"`
		Summary   *struct {
			OverallSOV int `json:"overall_sov"`
		} `json:"summary"`
		Rows        []exportRow           `json:"rows"`
		FullResults []*models.AuditResult `json:"full_results"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))

	assert.Equal(t, "Acme", payload.BrandName)
	require.NotNil(t, payload.Summary)
	assert.Equal(t, 80, payload.Summary.OverallSOV)
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, "best crm software", payload.Rows[0].PromptText)
	assert.Len(t, payload.FullResults, 1)
}

func TestExportXLSX(t *testing.T) {
	ctx := context.Background()

	f := newExportFixture()
	client := seedClient(f.clients, "Acme")
	prompt := seedPrompt(f.prompts, client.ID, "best crm software")
	result := seedResult(f.results, client.ID, prompt.ID, 80)
	result.ModelResults[0].Citations = []models.Citation{
		{URL: "https://reddit.com/r/crm", Domain: "reddit.com"},
	}

	filename, data, err := f.flow.ExportXLSX(ctx, client.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(filename, ".xlsx"))

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	assert.ElementsMatch(t, []string{"Results", "Sources"}, xl.GetSheetList())

	promptCell, err := xl.GetCellValue("Results", "A2")
	require.NoError(t, err)
	assert.Equal(t, "best crm software", promptCell)

	domainCell, err := xl.GetCellValue("Sources", "A2")
	require.NoError(t, err)
	assert.Equal(t, "reddit.com", domainCell)
}

func TestExportReport(t *testing.T) {
	ctx := context.Background()

	t.Run("renders every section", func(t *testing.T) {
		f := newExportFixture()
		client := seedClient(f.clients, "Acme", "CompetitorX")
		prompt := seedPrompt(f.prompts, client.ID, "best crm software")
		seedResult(f.results, client.ID, prompt.ID, 80)

		filename, data, err := f.flow.ExportReport(ctx, client.ID)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".txt"))

		report := string(data)
		assert.Contains(t, report, "Brand:     Acme")
		assert.Contains(t, report, "SUMMARY")
		assert.Contains(t, report, "PROVIDER VISIBILITY")
		assert.Contains(t, report, "COMPETITOR GAP")
		assert.Contains(t, report, "TOP SOURCES")
		assert.Contains(t, report, "STATUS: HIGH")
	})

	t.Run("points at the audit when empty", func(t *testing.T) {
		f := newExportFixture()
		client := seedClient(f.clients, "Acme")

		_, data, err := f.flow.ExportReport(ctx, client.ID)
		require.NoError(t, err)
		assert.Contains(t, string(data), "Run an audit first")
	})
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases and joins", "Acme Corp", "acme_corp"},
		{"strips punctuation", "Acme, Inc.", "acme_inc"},
		{"keeps digits", "Agency 42", "agency_42"},
		{"falls back when nothing survives", "!!!", "client"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slugify(tt.input))
		})
	}
}
