package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-messaging/internal/model"
)

// Recognized input header aliases, compared case-insensitively with spaces
// and underscores folded.
var (
	companyHeaders  = map[string]bool{"companyname": true, "company": true, "name": true}
	websiteHeaders  = map[string]bool{"companywebsite": true, "website": true, "websiteurl": true, "domain": true, "url": true}
	linkedinHeaders = map[string]bool{"companylinkedinurl": true, "linkedinurl": true, "linkedin": true}
)

func foldHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	return h
}

// ReadProspects loads the input batch from a CSV or XLSX file, keyed by file
// extension. Every data row becomes a Prospect with its original position in
// Row and all unrecognized columns preserved in Extra.
func ReadProspects(path string) ([]model.Prospect, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("input: %s has no header row", path)
	}

	header := rows[0]
	companyIdx, websiteIdx, linkedinIdx := -1, -1, -1
	for i, h := range header {
		switch folded := foldHeader(h); {
		case companyIdx < 0 && companyHeaders[folded]:
			companyIdx = i
		case websiteIdx < 0 && websiteHeaders[folded]:
			websiteIdx = i
		case linkedinIdx < 0 && linkedinHeaders[folded]:
			linkedinIdx = i
		}
	}
	if websiteIdx < 0 {
		return nil, eris.Errorf("input: %s has no website column (headers: %s)", path, strings.Join(header, ", "))
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var prospects []model.Prospect
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		p := model.Prospect{
			CompanyName: cell(row, companyIdx),
			Website:     cell(row, websiteIdx),
			LinkedInURL: cell(row, linkedinIdx),
			Extra:       map[string]string{},
			Row:         len(prospects),
		}
		for i, h := range header {
			if i == companyIdx || i == websiteIdx || i == linkedinIdx {
				continue
			}
			p.Extra[h] = cell(row, i)
		}
		prospects = append(prospects, p)
	}

	zap.L().Info("input: loaded prospects",
		zap.String("file", path),
		zap.Int("count", len(prospects)),
	)
	return prospects, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "input: read csv")
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "input: open xlsx")
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.Errorf("input: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range wb.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// Output columns appended after the pass-through input columns.
var outputColumns = []string{
	"prospect_brief",
	"custom_messaging",
	"custom_message_output_1",
	"custom_message_output_2",
	"custom_message_output_3",
}

// WriteOutput writes successful outcomes to a CSV: the original input columns
// first, then the synthesized columns. Outcomes are written in the order
// given, which the orchestrator guarantees is input order.
func WriteOutput(path string, outcomes []model.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "output: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	extraCols := collectExtraColumns(outcomes)
	header := []string{"company_name", "company_website", "company_linkedin_url"}
	header = append(header, extraCols...)
	header = append(header, outputColumns...)
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "output: write header")
	}

	for _, o := range outcomes {
		briefJSON := ""
		if o.Brief != nil {
			b, err := json.Marshal(o.Brief)
			if err != nil {
				return eris.Wrap(err, "output: marshal brief")
			}
			briefJSON = string(b)
		}

		row := []string{o.Prospect.CompanyName, o.Prospect.Website, o.Prospect.LinkedInURL}
		for _, col := range extraCols {
			row = append(row, o.Prospect.Extra[col])
		}

		var raw, out1, out2, out3 string
		if o.Messaging != nil {
			raw = o.Messaging.Raw
			out1 = o.Messaging.SelectedService
			out2 = o.Messaging.ProblemSolved
			out3 = o.Messaging.IntentSignals
		}
		row = append(row, briefJSON, raw, out1, out2, out3)

		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "output: write row")
		}
	}

	w.Flush()
	return eris.Wrap(w.Error(), "output: flush")
}

// collectExtraColumns returns the union of Extra column names across
// outcomes, in sorted order so the output header is stable.
func collectExtraColumns(outcomes []model.Outcome) []string {
	seen := map[string]bool{}
	var cols []string
	for _, o := range outcomes {
		for col := range o.Prospect.Extra {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

// WriteErrors writes the failed outcomes to the companion errors file next to
// the output path ("out.csv" -> "out_errors.csv"). No file is written when
// there are no failures.
func WriteErrors(outputPath string, failures []model.Outcome) (string, error) {
	if len(failures) == 0 {
		return "", nil
	}

	ext := filepath.Ext(outputPath)
	path := strings.TrimSuffix(outputPath, ext) + "_errors" + ext

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "output: create errors file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"company_name", "company_website", "failed_stage", "error"}); err != nil {
		return "", eris.Wrap(err, "output: write errors header")
	}
	for _, o := range failures {
		row := []string{o.Prospect.CompanyName, o.Prospect.Website, string(o.Failure.Stage), o.Failure.Message}
		if err := w.Write(row); err != nil {
			return "", eris.Wrap(err, "output: write errors row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", eris.Wrap(err, "output: flush errors")
	}
	return path, nil
}
