package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/pkg/export"
	"github.com/ndalu/portaria-api/pkg/storage"
)

func newExportService(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportService(store, signer, "/api/v1", zap.NewNop())
}

func statementDataset() export.Dataset {
	return export.Dataset{
		Headers: []string{"Mês", "Pago", "Valor"},
		Rows: []map[string]string{
			{"Mês": "Setembro", "Pago": "sim", "Valor": "15000.00"},
			{"Mês": "Outubro", "Pago": "não", "Valor": ""},
		},
	}
}

func TestExportServiceSaveCSVIssuesSignedURL(t *testing.T) {
	svc := newExportService(t)

	resp, err := svc.SaveCSV("propinas_2024-0001_2024-2025.csv", statementDataset())
	require.NoError(t, err)
	assert.Equal(t, "propinas_2024-0001_2024-2025.csv", resp.FileName)
	assert.True(t, strings.HasPrefix(resp.URL, "/api/v1/downloads/"))
	assert.NotEmpty(t, resp.ExpiresAt)

	token := strings.TrimPrefix(resp.URL, "/api/v1/downloads/")
	path, err := svc.Open(token)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Setembro")
	assert.Contains(t, string(raw), "Mês,Pago,Valor")
}

func TestExportServiceSavePDF(t *testing.T) {
	svc := newExportService(t)

	resp, err := svc.SavePDF("entradas_2024-05-10.pdf", "Entradas de 10/05/2024", statementDataset())
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(resp.FileName))

	token := strings.TrimPrefix(resp.URL, "/api/v1/downloads/")
	path, err := svc.Open(token)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF"))
}

func TestExportServiceOpenRejectsBadToken(t *testing.T) {
	svc := newExportService(t)

	_, err := svc.Open("not-a-token")
	require.Error(t, err)
}

func TestExportServiceCSVRequiresHeaders(t *testing.T) {
	svc := newExportService(t)

	_, err := svc.SaveCSV("vazio.csv", export.Dataset{})
	require.Error(t, err)
}
