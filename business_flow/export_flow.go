package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/kagemusha-ai/kagemusha/models"
	"github.com/kagemusha-ai/kagemusha/repository"
	"github.com/kagemusha-ai/kagemusha/utils"
	"github.com/xuri/excelize/v2"
)

// ExportFlow renders the in-scope result set into downloadable artifacts.
// Every format is computed from the same snapshot the metrics views use, so
// an export never disagrees with the dashboard it was taken from.
type ExportFlow interface {
	ExportCSV(ctx context.Context, clientID uint) (string, []byte, error)
	ExportJSON(ctx context.Context, clientID uint) (string, []byte, error)
	ExportXLSX(ctx context.Context, clientID uint) (string, []byte, error)
	ExportReport(ctx context.Context, clientID uint) (string, []byte, error)
}

// ExportFlowImpl implements ExportFlow
type ExportFlowImpl struct {
	clientRepo repository.ClientRepository
	promptRepo repository.PromptRepository
	store      repository.ResultStore
	logger     *log.Logger
}

// NewExportFlow creates a new export flow
func NewExportFlow(clientRepo repository.ClientRepository, promptRepo repository.PromptRepository, store repository.ResultStore, logger *log.Logger) ExportFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &ExportFlowImpl{
		clientRepo: clientRepo,
		promptRepo: promptRepo,
		store:      store,
		logger:     logger,
	}
}

// exportRow is one prompt's line in the tabular formats
type exportRow struct {
	PromptText     string   `json:"prompt"`
	Category       string   `json:"category"`
	NicheLevel     string   `json:"niche_level"`
	ShareOfVoice   int      `json:"share_of_voice"`
	AverageRank    *float64 `json:"average_rank,omitempty"`
	TotalCitations int      `json:"total_citations"`
	TotalCost      float64  `json:"total_cost"`
	AuditedAt      string   `json:"audited_at"`
}

// snapshot loads the client, its prompts, and the in-scope rows joined on
// prompt id
func (f *ExportFlowImpl) snapshot(ctx context.Context, clientID uint) (*models.Client, []exportRow, []*models.AuditResult, error) {
	client, err := f.clientRepo.ByID(ctx, clientID)
	if err != nil {
		return nil, nil, nil, NewBusinessError("CLIENT_LOOKUP_FAILED", "Failed to look up client", err)
	}
	if client == nil {
		return nil, nil, nil, NewBusinessError("CLIENT_NOT_FOUND", "Client not found", ErrClientNotFound)
	}

	prompts, err := f.promptRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, nil, nil, NewBusinessError("PROMPT_LIST_FAILED", "Failed to list prompts", err)
	}

	promptByID := make(map[uint]*models.Prompt, len(prompts))
	for _, p := range prompts {
		promptByID[p.ID] = p
	}

	inScope := InScopeResults(prompts, f.store.LoadResults(ctx, clientID))

	rows := make([]exportRow, 0, len(inScope))
	for _, r := range inScope {
		prompt := promptByID[r.PromptID]
		if prompt == nil {
			continue
		}
		row := exportRow{
			PromptText: prompt.Text,
			Category:   prompt.Category,
			NicheLevel: prompt.NicheLevel.String(),
			AuditedAt:  r.CreatedAt.Format(time.RFC3339),
		}
		if r.Summary != nil {
			row.ShareOfVoice = r.Summary.ShareOfVoice
			row.AverageRank = r.Summary.AverageRank
			row.TotalCitations = r.Summary.TotalCitations
			row.TotalCost = r.Summary.TotalCost
		}
		rows = append(rows, row)
	}

	return client, rows, inScope, nil
}

var exportHeader = []string{"prompt", "category", "niche_level", "share_of_voice", "average_rank", "total_citations", "total_cost", "audited_at"}

func (row exportRow) strings() []string {
	rank := ""
	if row.AverageRank != nil {
		rank = strconv.FormatFloat(*row.AverageRank, 'f', 1, 64)
	}
	return []string{
		row.PromptText,
		row.Category,
		row.NicheLevel,
		strconv.Itoa(row.ShareOfVoice),
		rank,
		strconv.Itoa(row.TotalCitations),
		strconv.FormatFloat(row.TotalCost, 'f', 4, 64),
		row.AuditedAt,
	}
}

// ExportCSV renders one row per in-scope prompt result
func (f *ExportFlowImpl) ExportCSV(ctx context.Context, clientID uint) (string, []byte, error) {
	client, rows, _, err := f.snapshot(ctx, clientID)
	if err != nil {
		return "", nil, err
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)

	if err := w.Write(exportHeader); err != nil {
		return "", nil, NewBusinessError("EXPORT_CSV_FAILED", "Failed to write CSV header", err)
	}
	for _, row := range rows {
		if err := w.Write(row.strings()); err != nil {
			return "", nil, NewBusinessError("EXPORT_CSV_FAILED", "Failed to write CSV row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, NewBusinessError("EXPORT_CSV_FAILED", "Failed to flush CSV", err)
	}

	filename := fmt.Sprintf("visibility_audit_%s_%s.csv", slugify(client.BrandName), utils.UTCNow().Format("20060102"))
	return filename, buf.Bytes(), nil
}

// ExportJSON renders the full snapshot including raw per-provider results
func (f *ExportFlowImpl) ExportJSON(ctx context.Context, clientID uint) (string, []byte, error) {
	client, rows, inScope, err := f.snapshot(ctx, clientID)
	if err != nil {
		return "", nil, err
	}

	payload := struct {
		BrandName   string                `json:"brand_name"`
		ExportedAt  string                `json:"exported_at"`
		Summary     any                   `json:"summary"`
		Rows        []exportRow           `json:"rows"`
		FullResults []*models.AuditResult `json:"full_results"`
	}{
		BrandName:   client.BrandName,
		ExportedAt:  utils.UTCNow().Format(time.RFC3339),
		Summary:     ComputeSummary(inScope),
		Rows:        rows,
		FullResults: inScope,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_JSON_FAILED", "Failed to marshal export", err)
	}

	filename := fmt.Sprintf("visibility_audit_%s_%s.json", slugify(client.BrandName), utils.UTCNow().Format("20060102"))
	return filename, data, nil
}

// ExportXLSX renders a workbook with a results sheet and a sources sheet
func (f *ExportFlowImpl) ExportXLSX(ctx context.Context, clientID uint) (string, []byte, error) {
	client, rows, inScope, err := f.snapshot(ctx, clientID)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	resultsSheet := "Results"
	xl.SetSheetName(xl.GetSheetName(0), resultsSheet)

	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := xl.SetSheetRow(resultsSheet, "A1", &header); err != nil {
		return "", nil, NewBusinessError("EXPORT_XLSX_FAILED", "Failed to write results header", err)
	}
	for ri, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, ri+2)
		values := row.strings()
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		if err := xl.SetSheetRow(resultsSheet, cell, &out); err != nil {
			return "", nil, NewBusinessError("EXPORT_XLSX_FAILED", "Failed to write results row", err)
		}
	}

	sourcesSheet := "Sources"
	if _, err := xl.NewSheet(sourcesSheet); err != nil {
		return "", nil, NewBusinessError("EXPORT_XLSX_FAILED", "Failed to create sources sheet", err)
	}
	sourcesHeader := []any{"domain", "category", "total_citations", "prompt_coverage", "citations_per_prompt"}
	if err := xl.SetSheetRow(sourcesSheet, "A1", &sourcesHeader); err != nil {
		return "", nil, NewBusinessError("EXPORT_XLSX_FAILED", "Failed to write sources header", err)
	}
	for ri, src := range ComputeTopSources(inScope, 0) {
		cell, _ := excelize.CoordinatesToCellName(1, ri+2)
		out := []any{src.Domain, src.Category, src.TotalCitations, src.PromptCoverage, src.CitationsPerPrompt}
		if err := xl.SetSheetRow(sourcesSheet, cell, &out); err != nil {
			return "", nil, NewBusinessError("EXPORT_XLSX_FAILED", "Failed to write sources row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_XLSX_FAILED", "Failed to serialize workbook", err)
	}

	filename := fmt.Sprintf("visibility_audit_%s_%s.xlsx", slugify(client.BrandName), utils.UTCNow().Format("20060102"))
	return filename, buf.Bytes(), nil
}

// ExportReport renders a plain-text visibility report combining the summary,
// per-provider visibility, the competitor gap, and the top cited sources
func (f *ExportFlowImpl) ExportReport(ctx context.Context, clientID uint) (string, []byte, error) {
	client, _, inScope, err := f.snapshot(ctx, clientID)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	now := utils.UTCNow()

	fmt.Fprintf(&b, "BRAND VISIBILITY REPORT\n")
	fmt.Fprintf(&b, "Brand:     %s\n", client.BrandName)
	fmt.Fprintf(&b, "Generated: %s\n\n", now.Format(time.RFC3339))

	summary := ComputeSummary(inScope)
	if summary == nil {
		b.WriteString("No audit results available. Run an audit first.\n")
	} else {
		fmt.Fprintf(&b, "SUMMARY\n")
		fmt.Fprintf(&b, "  Prompts audited:   %d\n", summary.TotalPrompts)
		fmt.Fprintf(&b, "  Overall SOV:       %d%%\n", summary.OverallSOV)
		if summary.AverageRank != nil {
			fmt.Fprintf(&b, "  Average rank:      %.1f\n", *summary.AverageRank)
		}
		fmt.Fprintf(&b, "  Total citations:   %d\n", summary.TotalCitations)
		fmt.Fprintf(&b, "  Total cost:        $%.4f\n\n", summary.TotalCost)

		fmt.Fprintf(&b, "PROVIDER VISIBILITY\n")
		for _, stat := range ComputeModelStats(inScope) {
			fmt.Fprintf(&b, "  %-12s %d/%d visible (%d%%)\n", stat.Provider, stat.Visible, stat.Total, stat.VisibilityPercent)
		}
		b.WriteString("\n")

		fmt.Fprintf(&b, "COMPETITOR GAP\n")
		for _, entry := range ComputeCompetitorGap(client, inScope) {
			fmt.Fprintf(&b, "  %-24s %d mentions (%d%%)\n", entry.Name, entry.Mentions, entry.SharePercent)
		}
		b.WriteString("\n")

		fmt.Fprintf(&b, "TOP SOURCES\n")
		for _, src := range ComputeTopSources(inScope, 10) {
			fmt.Fprintf(&b, "  %-32s %-14s %d citations across %d prompts\n", src.Domain, src.Category, src.TotalCitations, src.PromptCoverage)
		}

		if insights := ComputeInsights(client, inScope); insights != nil {
			fmt.Fprintf(&b, "\nSTATUS: %s\n", strings.ToUpper(insights.Status))
			for _, rec := range insights.Recommendations {
				fmt.Fprintf(&b, "  - %s\n", rec)
			}
		}
	}

	filename := fmt.Sprintf("visibility_report_%s_%s.txt", slugify(client.BrandName), now.Format("20060102"))
	return filename, []byte(b.String()), nil
}

func slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "client"
	}
	return b.String()
}
