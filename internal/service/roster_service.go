package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/ndalu/portaria-api/internal/models"
	appErrors "github.com/ndalu/portaria-api/pkg/errors"
)

type rosterStudentRepository interface {
	ListCohort(ctx context.Context, grade, section, program, schoolYear string) ([]models.CohortMember, error)
}

// RosterService computes a student's alphabetical position within their
// cohort. The cohort is every active student sharing grade, section,
// program and school year; names compare byte-wise and case-sensitive,
// so "Ana" ranks before "ana".
type RosterService struct {
	repo   rosterStudentRepository
	logger *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(repo rosterStudentRepository, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{repo: repo, logger: logger}
}

// Rank returns the 1-based alphabetical position of the student within
// their cohort. A student absent from their own cohort (deactivated
// between lookup and ranking) yields rank 0.
func (s *RosterService) Rank(ctx context.Context, student *models.Student) (int, error) {
	members, err := s.repo.ListCohort(ctx, student.Grade, student.Section, student.Program, student.SchoolYear)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cohort")
	}

	sort.SliceStable(members, func(a, b int) bool {
		if members[a].FullName != members[b].FullName {
			return members[a].FullName < members[b].FullName
		}
		return members[a].ID < members[b].ID
	})

	for i, m := range members {
		if m.ID == student.ID {
			return i + 1, nil
		}
	}
	s.logger.Debug("student missing from own cohort",
		zap.String("student_id", student.ID),
		zap.String("school_year", student.SchoolYear))
	return 0, nil
}
