package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/academic"
	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Deactivate(ctx context.Context, id string) error
}

type photoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	ListByStudent(ctx context.Context, studentID string) ([]models.Photo, error)
	Delete(ctx context.Context, id string) error
}

type photoStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
}

// CreateStudentRequest registers a new student.
type CreateStudentRequest struct {
	FullName  string `json:"full_name" validate:"required,min=3"`
	StudentNo string `json:"student_no" validate:"required"`
	Grade     string `json:"grade" validate:"required"`
	Section   string `json:"section" validate:"required"`
	Shift     string `json:"shift" validate:"required"`
	Program   string `json:"program" validate:"required"`
}

// UpdateStudentRequest modifies an existing student. Nil fields keep the
// stored value.
type UpdateStudentRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=3"`
	Grade    *string `json:"grade,omitempty"`
	Section  *string `json:"section,omitempty"`
	Shift    *string `json:"shift,omitempty"`
	Program  *string `json:"program,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// StudentService owns student registration and photo management.
type StudentService struct {
	repo      studentRepository
	photos    photoRepository
	store     photoStore
	calendar  academic.Calendar
	location  *time.Location
	baseURL   string
	minPhotos int
	maxPhotos int
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, photos photoRepository, store photoStore, calendar academic.Calendar, location *time.Location, baseURL string, minPhotos, maxPhotos int, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if location == nil {
		location = time.UTC
	}
	if minPhotos <= 0 {
		minPhotos = 1
	}
	if maxPhotos < minPhotos {
		maxPhotos = minPhotos
	}
	return &StudentService{
		repo:      repo,
		photos:    photos,
		store:     store,
		calendar:  calendar,
		location:  location,
		baseURL:   baseURL,
		minPhotos: minPhotos,
		maxPhotos: maxPhotos,
		validator: validate,
		logger:    logger,
	}
}

// List returns students matching the filter plus pagination metadata.
// Sort field and order are allow-listed; unknown values are rejected
// rather than coerced.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.SortBy != "" {
		if _, ok := models.StudentSortColumns[filter.SortBy]; !ok {
			return nil, nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unsupported sort field %q", filter.SortBy))
		}
	}
	switch strings.ToUpper(filter.SortOrder) {
	case "", "ASC", "DESC":
	default:
		return nil, nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unsupported sort order %q", filter.SortOrder))
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.Student{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get fetches a single student.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student in the school year covering today. The
// per-year sequence number is assigned by the repository.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student := &models.Student{
		FullName:   strings.TrimSpace(req.FullName),
		StudentNo:  strings.TrimSpace(req.StudentNo),
		Grade:      req.Grade,
		Section:    req.Section,
		Shift:      req.Shift,
		Program:    req.Program,
		SchoolYear: s.calendar.Year(time.Now().In(s.location)),
		Active:     true,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student registered",
		zap.String("student_id", student.ID),
		zap.Int("sequence_no", student.SequenceNo),
		zap.String("school_year", student.SchoolYear))
	return student, nil
}

// Update applies the non-nil fields to the student.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		student.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Grade != nil {
		student.Grade = *req.Grade
	}
	if req.Section != nil {
		student.Section = *req.Section
	}
	if req.Shift != nil {
		student.Shift = *req.Shift
	}
	if req.Program != nil {
		student.Program = *req.Program
	}
	if req.Active != nil {
		student.Active = *req.Active
	}

	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Deactivate marks the student inactive. Ledger and decision history are
// retained.
func (s *StudentService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate student")
	}
	return nil
}

// ListPhotos returns the student's photos, oldest (primary) first.
func (s *StudentService) ListPhotos(ctx context.Context, studentID string) ([]models.Photo, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	photos, err := s.photos.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list photos")
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	return photos, nil
}

// AddPhoto stores the uploaded image and records it against the student.
// The photo count per student is capped.
func (s *StudentService) AddPhoto(ctx context.Context, studentID, originalName string, r io.Reader, caption *string) (*models.Photo, error) {
	student, err := s.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.photos.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list photos")
	}
	if len(existing) >= s.maxPhotos {
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("student already has the maximum of %d photos", s.maxPhotos))
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		return nil, appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("unsupported image type %q", ext))
	}

	filename := fmt.Sprintf("%s_%s%s", student.ID, uuid.NewString(), ext)
	relPath, err := s.store.SaveStream(filename, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store photo")
	}

	photo := &models.Photo{
		StudentID: student.ID,
		URL:       s.baseURL + "/" + relPath,
		Caption:   caption,
	}
	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record photo")
	}
	return photo, nil
}

// RemovePhoto deletes a photo record. Removing below the minimum photo
// count is rejected so the gate always has a face to match against.
func (s *StudentService) RemovePhoto(ctx context.Context, studentID, photoID string) error {
	photos, err := s.ListPhotos(ctx, studentID)
	if err != nil {
		return err
	}
	found := false
	for _, p := range photos {
		if p.ID == photoID {
			found = true
			break
		}
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "photo not found")
	}
	if len(photos) <= s.minPhotos {
		return appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("student must keep at least %d photo(s)", s.minPhotos))
	}
	if err := s.photos.Delete(ctx, photoID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete photo")
	}
	return nil
}
