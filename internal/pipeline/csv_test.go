package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/prospect-messaging/internal/model"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prospects.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadProspects_CSV(t *testing.T) {
	path := writeTempCSV(t, `Company Name,Website,LinkedIn URL,Region
Acme,acme.com,https://linkedin.com/company/acme,Midwest
Globex,globex.com,nan,South
`)

	prospects, err := ReadProspects(path)
	require.NoError(t, err)
	require.Len(t, prospects, 2)

	assert.Equal(t, "Acme", prospects[0].CompanyName)
	assert.Equal(t, "acme.com", prospects[0].Website)
	assert.True(t, prospects[0].HasLinkedIn())
	assert.Equal(t, "Midwest", prospects[0].Extra["Region"])
	assert.Equal(t, 0, prospects[0].Row)

	assert.False(t, prospects[1].HasLinkedIn())
	assert.Equal(t, 1, prospects[1].Row)
}

func TestReadProspects_HeaderAliases(t *testing.T) {
	path := writeTempCSV(t, `company,domain,company_linkedin_url
Acme,acme.com,https://linkedin.com/company/acme
`)

	prospects, err := ReadProspects(path)
	require.NoError(t, err)
	require.Len(t, prospects, 1)
	assert.Equal(t, "Acme", prospects[0].CompanyName)
	assert.Equal(t, "acme.com", prospects[0].Website)
	assert.NotEmpty(t, prospects[0].LinkedInURL)
}

func TestReadProspects_SkipsBlankRows(t *testing.T) {
	path := writeTempCSV(t, `company,website
Acme,acme.com

Globex,globex.com
`)

	prospects, err := ReadProspects(path)
	require.NoError(t, err)
	assert.Len(t, prospects, 2)
}

func TestReadProspects_MissingWebsiteColumn(t *testing.T) {
	path := writeTempCSV(t, "company,city\nAcme,Springfield\n")
	_, err := ReadProspects(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no website column")
}

func TestReadProspects_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prospects.xlsx")

	wb := xlsx.NewFile()
	sheet, err := wb.AddSheet("Prospects")
	require.NoError(t, err)
	for _, row := range [][]string{
		{"Company Name", "Website", "LinkedIn URL"},
		{"Acme", "acme.com", "https://linkedin.com/company/acme"},
	} {
		r := sheet.AddRow()
		for _, v := range row {
			r.AddCell().SetString(v)
		}
	}
	require.NoError(t, wb.Save(path))

	prospects, err := ReadProspects(path)
	require.NoError(t, err)
	require.Len(t, prospects, 1)
	assert.Equal(t, "Acme", prospects[0].CompanyName)
	assert.Equal(t, "acme.com", prospects[0].Website)
}

func successOutcome(row int, name string) model.Outcome {
	return model.Outcome{
		Prospect: model.Prospect{
			CompanyName: name,
			Website:     name + ".com",
			Extra:       map[string]string{"Region": "Midwest"},
			Row:         row,
		},
		Brief: &model.ProspectBrief{
			CompanyName:      name,
			ServicesProducts: []string{"anvils"},
		},
		Messaging: &model.MessagingResult{
			Raw:             "raw output",
			SelectedService: "anvils",
			ProblemSolved:   "downtime",
			IntentSignals:   "- signal",
		},
	}
}

func TestWriteOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteOutput(path, []model.Outcome{successOutcome(0, "acme")}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Equal(t, []string{
		"company_name", "company_website", "company_linkedin_url", "Region",
		"prospect_brief", "custom_messaging",
		"custom_message_output_1", "custom_message_output_2", "custom_message_output_3",
	}, header)

	row := rows[1]
	assert.Equal(t, "acme", row[0])
	assert.Equal(t, "Midwest", row[3])
	assert.Contains(t, row[4], `"services_products":["anvils"]`)
	assert.Equal(t, "raw output", row[5])
	assert.Equal(t, "anvils", row[6])
	assert.Equal(t, "downtime", row[7])
	assert.Equal(t, "- signal", row[8])
}

func TestWriteErrors(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	failures := []model.Outcome{{
		Prospect: model.Prospect{CompanyName: "hollow", Website: "hollow.com"},
		Failure:  &model.Failure{Stage: model.StageGathering, Message: "no context"},
	}}

	path, err := WriteErrors(out, failures)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(out), "out_errors.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"company_name", "company_website", "failed_stage", "error"}, rows[0])
	assert.Equal(t, []string{"hollow", "hollow.com", "gathering", "no context"}, rows[1])
}

func TestWriteErrors_NoFailuresWritesNothing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	path, err := WriteErrors(out, nil)
	require.NoError(t, err)
	assert.Empty(t, path)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(out), "out_errors.csv"))
	assert.True(t, os.IsNotExist(statErr))
}
