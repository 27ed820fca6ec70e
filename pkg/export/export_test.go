package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Title:   "Attendees: Jazz Night",
		Headers: []string{"Name", "Email", "Joined"},
		Rows: [][]string{
			{"Ada", "ada@example.com", "2024-06-01 18:00"},
			{"Grace, H.", "grace@example.com", "2024-06-01 19:00"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)

	assert.Equal(t, "Name,Email,Joined\nAda,ada@example.com,2024-06-01 18:00\n\"Grace, H.\",grace@example.com,2024-06-01 19:00\n", string(out))
}

func TestCSVExporterRejectsRaggedRows(t *testing.T) {
	data := rosterDataset()
	data.Rows = append(data.Rows, []string{"only-one"})

	_, err := NewCSVExporter().Render(data)
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(rosterDataset())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
