package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/dto"
	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
)

type recognitionStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type recognitionPhotoRepository interface {
	FirstByStudent(ctx context.Context, studentID string) (*models.Photo, error)
}

// RecognitionService assembles the gate checkpoint payload: identity,
// primary photo, cohort rank and the tuition verdict in one lookup.
// Results are cached briefly since the same student is often looked up
// several times in a row at the gate.
type RecognitionService struct {
	students recognitionStudentRepository
	photos   recognitionPhotoRepository
	roster   *RosterService
	payments *PaymentService
	cache    *CacheService
	logger   *zap.Logger
}

// NewRecognitionService constructs a RecognitionService.
func NewRecognitionService(students recognitionStudentRepository, photos recognitionPhotoRepository, roster *RosterService, payments *PaymentService, cache *CacheService, logger *zap.Logger) *RecognitionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecognitionService{
		students: students,
		photos:   photos,
		roster:   roster,
		payments: payments,
		cache:    cache,
		logger:   logger,
	}
}

// Lookup resolves the full checkpoint payload for the student.
func (s *RecognitionService) Lookup(ctx context.Context, studentID string) (*dto.RecognitionResult, error) {
	cacheKey := "recognition:" + studentID
	if s.cache != nil {
		var cached dto.RecognitionResult
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.Active {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled")
	}

	rank, err := s.roster.Rank(ctx, student)
	if err != nil {
		return nil, err
	}

	statement, err := s.payments.Statement(ctx, studentID, student.SchoolYear)
	if err != nil {
		return nil, err
	}
	current, err := s.payments.CurrentStatus(ctx, studentID, time.Now())
	if err != nil {
		return nil, err
	}

	var photoURL *string
	photo, err := s.photos.FirstByStudent(ctx, studentID)
	if err != nil {
		s.logger.Warn("failed to load primary photo", zap.String("student_id", studentID), zap.Error(err))
	} else if photo != nil {
		photoURL = &photo.URL
	}

	result := &dto.RecognitionResult{
		StudentID:     student.ID,
		FullName:      student.FullName,
		PhotoURL:      photoURL,
		StudentNo:     student.StudentNo,
		SequenceNo:    student.SequenceNo,
		Rank:          rank,
		Grade:         student.Grade,
		Section:       student.Section,
		Shift:         student.Shift,
		Program:       student.Program,
		SchoolYear:    student.SchoolYear,
		TuitionPaid:   current,
		MonthlyStatus: statement.Months,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, 0); err != nil {
			s.logger.Warn("failed to cache recognition result", zap.String("student_id", studentID), zap.Error(err))
		}
	}
	return result, nil
}
