package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/dto"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
	"github.com/ndalu/portaria-api/pkg/export"
	"github.com/ndalu/portaria-api/pkg/storage"
)

// ExportService renders datasets into files on local storage and hands
// back signed download URLs. Files are addressed by name only; a later
// export for the same day overwrites the earlier file.
type ExportService struct {
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	baseURL string
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(store *storage.LocalStorage, signer *storage.SignedURLSigner, baseURL string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		store:   store,
		signer:  signer,
		baseURL: baseURL,
		logger:  logger,
	}
}

// SaveCSV renders and stores a CSV export.
func (s *ExportService) SaveCSV(name string, data export.Dataset) (*dto.ExportResponse, error) {
	raw, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return s.save(name, raw)
}

// SavePDF renders and stores a PDF export.
func (s *ExportService) SavePDF(name, title string, data export.Dataset) (*dto.ExportResponse, error) {
	raw, err := s.pdf.Render(data, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return s.save(name, raw)
}

func (s *ExportService) save(name string, raw []byte) (*dto.ExportResponse, error) {
	relPath, err := s.store.Save(name, raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export file")
	}
	token, expiresAt, err := s.signer.Generate(name, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}
	s.logger.Info("export file generated", zap.String("file", name))
	return &dto.ExportResponse{
		FileName:  name,
		URL:       s.baseURL + "/downloads/" + token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Open resolves a signed download token to the stored file path.
func (s *ExportService) Open(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	return s.store.Path(relPath), nil
}
