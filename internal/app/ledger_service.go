package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/roster"
	"school_admin/internal/domain/storage"
)

// DailyNotifier is the part of the dispatcher the ledger triggers after bulk entry.
type DailyNotifier interface {
	SendDailyNotes(ctx context.Context, classID int64, subject string, date time.Time) (int, error)
}

type LedgerService struct {
	store    storage.Store
	notifier DailyNotifier
	scale    float64
	logger   *logrus.Entry
}

// NewLedgerService creates the ledger. notifier may be nil, in which case bulk
// entry never dispatches. A non-positive scale falls back to assessment.DefaultScale.
func NewLedgerService(store storage.Store, notifier DailyNotifier, scale float64, logger *logrus.Entry) *LedgerService {
	if scale <= 0 {
		scale = assessment.DefaultScale
	}
	return &LedgerService{store: store, notifier: notifier, scale: scale, logger: logger}
}

// Create records one assessment. The student must exist and the dedup tuple
// (student, subject, kind, date, term) must be free.
func (s *LedgerService) Create(ctx context.Context, na NewAssessment) (*assessment.Assessment, error) {
	na.Subject = cleanString(na.Subject)
	if err := validateInput(na); err != nil {
		return nil, err
	}
	if _, err := s.store.Roster().GetStudent(ctx, na.StudentID); err != nil {
		return nil, err
	}

	a := &assessment.Assessment{
		StudentID: na.StudentID,
		Subject:   na.Subject,
		Score:     na.Score,
		MaxScore:  na.MaxScore,
		Kind:      na.Kind,
		Date:      truncateDay(na.Date),
		Term:      na.Term,
	}
	if err := s.create(ctx, s.store.Assessments(), a); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"assessment_id": a.ID,
		"student_id":    a.StudentID,
		"subject":       a.Subject,
		"kind":          a.Kind,
	}).Info("Assessment recorded")
	return a, nil
}

func (s *LedgerService) create(ctx context.Context, repo assessment.Repository, a *assessment.Assessment) error {
	exists, err := repo.Exists(ctx, a.DedupKey())
	if err != nil {
		return fmt.Errorf("failed to check duplicate assessment: %w", err)
	}
	if exists {
		return assessment.ErrDuplicateAssessment
	}
	if err := repo.Create(ctx, a); err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

func (s *LedgerService) Get(ctx context.Context, id int64) (*assessment.Assessment, error) {
	return s.store.Assessments().GetByID(ctx, id)
}

// Update is the explicit edit path. Moving onto an occupied dedup tuple fails
// with ErrDuplicateAssessment.
func (s *LedgerService) Update(ctx context.Context, id int64, ua UpdateAssessment) (*assessment.Assessment, error) {
	ua.Subject = cleanString(ua.Subject)
	if err := validateInput(ua); err != nil {
		return nil, err
	}
	repo := s.store.Assessments()
	a, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := a.DedupKey()
	a.Subject = ua.Subject
	a.Kind = ua.Kind
	a.Score = ua.Score
	a.MaxScore = ua.MaxScore
	a.Date = truncateDay(ua.Date)
	a.Term = ua.Term

	if key := a.DedupKey(); key != before {
		exists, err := repo.Exists(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to check duplicate assessment: %w", err)
		}
		if exists {
			return nil, assessment.ErrDuplicateAssessment
		}
	}
	if err := repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update assessment %d: %w", id, err)
	}
	return a, nil
}

func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Assessments().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assessment %d: %w", id, err)
	}
	s.logger.WithField("assessment_id", id).Info("Assessment deleted")
	return nil
}

func (s *LedgerService) List(ctx context.Context, f assessment.Filter) ([]*assessment.Assessment, error) {
	return s.store.Assessments().List(ctx, f)
}

// Aggregate returns per-subject statistics over raw scores of matching records.
func (s *LedgerService) Aggregate(ctx context.Context, f assessment.Filter) ([]assessment.SubjectStats, error) {
	items, err := s.store.Assessments().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessment.Aggregate(items), nil
}

// TermReport builds the bulletin of one student for one term.
func (s *LedgerService) TermReport(ctx context.Context, studentID int64, term int) (assessment.TermReport, error) {
	if _, err := s.store.Roster().GetStudent(ctx, studentID); err != nil {
		return assessment.TermReport{}, err
	}
	items, err := s.store.Assessments().List(ctx, assessment.Filter{StudentID: studentID, Term: term})
	if err != nil {
		return assessment.TermReport{}, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessment.BuildTermReport(studentID, term, items), nil
}

// KindSummary counts matching records per kind with their mean normalized score.
func (s *LedgerService) KindSummary(ctx context.Context, f assessment.Filter) ([]assessment.KindSummary, error) {
	items, err := s.store.Assessments().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessment.SummarizeKinds(items, s.scale), nil
}

// RecordClassScores stores one score per listed student of the class. Scores of
// zero or less, students outside the class and duplicates are skipped. The
// created records commit together; daily notes go out afterwards when asked.
func (s *LedgerService) RecordClassScores(ctx context.Context, cs ClassScores) (int, error) {
	cs.Subject = cleanString(cs.Subject)
	if err := validateInput(cs); err != nil {
		return 0, err
	}
	if _, err := s.store.Roster().GetClass(ctx, cs.ClassID); err != nil {
		return 0, err
	}
	date := truncateDay(cs.Date)

	created := 0
	err := s.store.WithinTx(ctx, func(tx storage.Store) error {
		created = 0
		students, err := tx.Roster().ListStudentsByClass(ctx, cs.ClassID)
		if err != nil {
			return fmt.Errorf("failed to list students: %w", err)
		}
		for _, st := range students {
			score, ok := cs.Scores[st.ID]
			if !ok || score <= 0 {
				continue
			}
			a := &assessment.Assessment{
				StudentID: st.ID,
				Subject:   cs.Subject,
				Score:     score,
				MaxScore:  cs.MaxScore,
				Kind:      cs.Kind,
				Date:      date,
				Term:      cs.Term,
			}
			err := s.create(ctx, tx.Assessments(), a)
			if errors.Is(err, assessment.ErrDuplicateAssessment) {
				continue
			}
			if err != nil {
				return fmt.Errorf("student %d: %w", st.ID, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"class_id": cs.ClassID,
		"subject":  cs.Subject,
		"created":  created,
	})
	log.Info("Class scores recorded")

	if created > 0 && cs.Notify && s.notifier != nil {
		// dispatch failures are already in the delivery log
		if _, err := s.notifier.SendDailyNotes(ctx, cs.ClassID, cs.Subject, date); err != nil {
			log.WithError(err).Warn("Daily notes dispatch stopped early")
		}
	}
	return created, nil
}

// studentClassName returns the class name or "" when the student is unassigned.
func studentClassName(ctx context.Context, repo roster.Repository, st *roster.Student) (string, error) {
	if !st.ClassID.Valid {
		return "", nil
	}
	c, err := repo.GetClass(ctx, st.ClassID.Int64)
	if errors.Is(err, roster.ErrClassNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return c.Name, nil
}
