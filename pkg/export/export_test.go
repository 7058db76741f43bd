package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "PTS payouts 2024-01",
		Headers: []string{"citizen_id", "amount"},
		Rows: [][]string{
			{"1100000000001", "3000.00"},
			{"1100000000002", "1500.00"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	body := strings.TrimPrefix(string(out), "\uFEFF")
	require.Equal(t, "citizen_id,amount\n1100000000001,3000.00\n1100000000002,1500.00\n", body)

	_, err = NewCSVExporter().Render(Dataset{Headers: []string{"a"}, Rows: [][]string{{"1", "2"}}})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	value, err := f.GetCellValue(sheetName, "A4")
	require.NoError(t, err)
	require.Equal(t, "1100000000001", value)
}
