package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"school_admin/internal/domain/assessment"
	"school_admin/internal/domain/delivery"
	"school_admin/internal/domain/errs"
	"school_admin/internal/domain/roster"
	"school_admin/internal/domain/storage"
	domainTelegram "school_admin/internal/domain/telegram"
)

// NotificationConfig holds the dispatcher settings that come from configuration.
type NotificationConfig struct {
	School      string
	Scale       float64
	AdminChatID int64 // receives an alert when an entry fails for good; 0 disables
}

// NotificationService renders messages for parents and pushes them through the
// configured channels, recording every attempt in the delivery log.
//
// Each parent's entries are written outside any transaction, so a failure on
// one parent never undoes what was recorded for the others.
type NotificationService struct {
	store   storage.Store
	senders delivery.Senders
	alerts  domainTelegram.Client
	cfg     NotificationConfig
	now     func() time.Time
	logger  *logrus.Entry
}

// NewNotificationService creates the dispatcher. alerts may be nil.
func NewNotificationService(
	store storage.Store,
	senders delivery.Senders,
	alerts domainTelegram.Client,
	cfg NotificationConfig,
	logger *logrus.Entry,
) *NotificationService {
	cfg.Scale = scaleOrDefault(cfg.Scale)
	return &NotificationService{
		store:   store,
		senders: senders,
		alerts:  alerts,
		cfg:     cfg,
		now:     time.Now,
		logger:  logger,
	}
}

// recipient is one parent and what should be sent to them.
type recipient struct {
	parent    *roster.Parent
	studentID sql.NullInt64
	content   string
}

// SendDailyNotes sends each parent one digest of the day's records in subject
// for their children in the class. It returns the number of parents reached
// on at least one channel.
func (s *NotificationService) SendDailyNotes(ctx context.Context, classID int64, subject string, date time.Time) (int, error) {
	repo := s.store.Roster()
	if _, err := repo.GetClass(ctx, classID); err != nil {
		return 0, err
	}
	items, err := s.store.Assessments().List(ctx, assessment.Filter{ClassID: classID, Subject: subject, Date: date})
	if err != nil {
		return 0, fmt.Errorf("failed to list assessments: %w", err)
	}
	if len(items) == 0 {
		s.logger.WithFields(logrus.Fields{"class_id": classID, "subject": subject}).Info("No notes to send")
		return 0, nil
	}

	byStudent := make(map[int64][]*assessment.Assessment)
	var studentIDs []int64
	for _, a := range items {
		if _, ok := byStudent[a.StudentID]; !ok {
			studentIDs = append(studentIDs, a.StudentID)
		}
		byStudent[a.StudentID] = append(byStudent[a.StudentID], a)
	}
	sort.Slice(studentIDs, func(i, j int) bool { return studentIDs[i] < studentIDs[j] })

	// parents in first-seen order, each with the students they are linked to
	parents := make(map[int64]*roster.Parent)
	children := make(map[int64][]StudentNotes)
	single := make(map[int64]int64)
	var parentOrder []int64
	for _, sid := range studentIDs {
		st, err := repo.GetStudent(ctx, sid)
		if err != nil {
			return 0, fmt.Errorf("failed to load student %d: %w", sid, err)
		}
		linked, err := repo.ListParentsOfStudent(ctx, sid)
		if err != nil {
			return 0, fmt.Errorf("failed to list parents of student %d: %w", sid, err)
		}
		for _, p := range linked {
			if _, ok := parents[p.ID]; !ok {
				parents[p.ID] = p
				parentOrder = append(parentOrder, p.ID)
			}
			children[p.ID] = append(children[p.ID], StudentNotes{Name: st.FullName(), Assessments: byStudent[sid]})
			single[p.ID] = sid
		}
	}

	targets := make([]recipient, 0, len(parentOrder))
	for _, pid := range parentOrder {
		r := recipient{
			parent: parents[pid],
			content: RenderDailyNotes(DailyDigest{
				School:   s.cfg.School,
				Subject:  subject,
				Date:     date,
				Scale:    s.cfg.Scale,
				Students: children[pid],
			}),
		}
		if len(children[pid]) == 1 {
			r.studentID = sql.NullInt64{Int64: single[pid], Valid: true}
		}
		targets = append(targets, r)
	}
	return s.dispatch(ctx, delivery.TemplateDailyNotes, targets)
}

// SendIndividualNote sends one assessment to every parent of its student. It
// returns the number of parents reached on at least one channel.
func (s *NotificationService) SendIndividualNote(ctx context.Context, studentID, assessmentID int64) (int, error) {
	repo := s.store.Roster()
	st, err := repo.GetStudent(ctx, studentID)
	if err != nil {
		return 0, err
	}
	a, err := s.store.Assessments().GetByID(ctx, assessmentID)
	if err != nil {
		return 0, err
	}
	if a.StudentID != studentID {
		return 0, fmt.Errorf("assessment %d of student %d: %w", assessmentID, studentID, assessment.ErrAssessmentNotFound)
	}
	className, err := studentClassName(ctx, repo, st)
	if err != nil {
		return 0, fmt.Errorf("failed to load class of student %d: %w", studentID, err)
	}
	linked, err := repo.ListParentsOfStudent(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list parents of student %d: %w", studentID, err)
	}

	content := RenderIndividualNote(IndividualNote{
		School:      s.cfg.School,
		StudentName: st.FullName(),
		ClassName:   className,
		Assessment:  a,
		Scale:       s.cfg.Scale,
	})
	targets := make([]recipient, 0, len(linked))
	for _, p := range linked {
		targets = append(targets, recipient{
			parent:    p,
			studentID: sql.NullInt64{Int64: studentID, Valid: true},
			content:   content,
		})
	}
	return s.dispatch(ctx, delivery.TemplateIndividualNote, targets)
}

// SendPersonalMessage sends a free-text message. Targets are the listed
// parents, else the parents of the listed students, else every parent of the
// class. A parent reached through several routes gets one message.
func (s *NotificationService) SendPersonalMessage(ctx context.Context, pm PersonalMessage) (int, error) {
	pm.Body = strings.TrimSpace(pm.Body)
	if err := validateInput(pm); err != nil {
		return 0, err
	}
	parents, err := s.personalTargets(ctx, pm)
	if err != nil {
		return 0, err
	}
	if len(parents) == 0 {
		return 0, errs.NewValidationError(errs.FieldError{Field: "recipients", Error: "no parent matches the selection"})
	}

	content := RenderPersonalMessage(s.cfg.School, pm.Body)
	targets := make([]recipient, 0, len(parents))
	for _, p := range parents {
		targets = append(targets, recipient{parent: p, content: content})
	}
	return s.dispatch(ctx, delivery.TemplatePersonal, targets)
}

func (s *NotificationService) personalTargets(ctx context.Context, pm PersonalMessage) ([]*roster.Parent, error) {
	repo := s.store.Roster()
	seen := make(map[int64]bool)
	var out []*roster.Parent
	add := func(ps ...*roster.Parent) {
		for _, p := range ps {
			if !seen[p.ID] {
				seen[p.ID] = true
				out = append(out, p)
			}
		}
	}
	addStudents := func(ids []int64) error {
		for _, sid := range ids {
			ps, err := repo.ListParentsOfStudent(ctx, sid)
			if err != nil {
				return fmt.Errorf("failed to list parents of student %d: %w", sid, err)
			}
			add(ps...)
		}
		return nil
	}

	switch {
	case len(pm.ParentIDs) > 0:
		for _, id := range pm.ParentIDs {
			p, err := repo.GetParent(ctx, id)
			if err != nil {
				return nil, err
			}
			add(p)
		}
	case len(pm.StudentIDs) > 0:
		if err := addStudents(pm.StudentIDs); err != nil {
			return nil, err
		}
	case pm.ClassID != 0:
		students, err := repo.ListStudentsByClass(ctx, pm.ClassID)
		if err != nil {
			return nil, fmt.Errorf("failed to list students of class %d: %w", pm.ClassID, err)
		}
		ids := make([]int64, 0, len(students))
		for _, st := range students {
			ids = append(ids, st.ID)
		}
		if err := addStudents(ids); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// dispatch appends and attempts one entry per reachable channel per parent and
// returns how many parents got at least one channel through.
// Cancellation is honored between parents only.
func (s *NotificationService) dispatch(ctx context.Context, template delivery.Template, targets []recipient) (int, error) {
	batch := uuid.New()
	log := s.logger.WithFields(logrus.Fields{"batch_id": batch, "template": template})

	reached := 0
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Dispatch interrupted")
			return reached, err
		}
		channels := channelsFor(t.parent)
		if len(channels) == 0 {
			log.WithField("parent_id", t.parent.ID).Warn("Parent has no reachable channel, skipping")
			continue
		}
		parentOK := false
		for _, ch := range channels {
			e := &delivery.Entry{
				BatchID:   batch,
				ParentID:  sql.NullInt64{Int64: t.parent.ID, Valid: true},
				StudentID: t.studentID,
				Template:  template,
				Channel:   ch,
				Content:   t.content,
				Status:    delivery.StatusQueued,
			}
			if err := s.store.Deliveries().Append(ctx, e); err != nil {
				log.WithError(err).WithField("parent_id", t.parent.ID).Error("Failed to append delivery entry")
				continue
			}
			if s.attempt(ctx, e, t.parent) == outcomeSent {
				parentOK = true
			}
		}
		if parentOK {
			reached++
		}
	}

	log.WithFields(logrus.Fields{"parents": len(targets), "reached": reached}).Info("Dispatch finished")
	return reached, nil
}

// RetryPending is the retry sweep: every entry still claimable is attempted
// once more, oldest first. It returns how many entries were sent.
func (s *NotificationService) RetryPending(ctx context.Context) (int, error) {
	candidates, err := s.store.Deliveries().ListRetryCandidates(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list retry candidates: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	sent := 0
	for _, e := range candidates {
		if err := ctx.Err(); err != nil {
			s.logger.WithError(err).Warn("Retry sweep interrupted")
			return sent, err
		}
		res, err := s.retry(ctx, e)
		if err != nil {
			s.logger.WithError(err).WithField("entry_id", e.ID).Error("Failed to retry delivery entry")
			continue
		}
		if res == outcomeSent {
			sent++
		}
	}
	s.logger.WithFields(logrus.Fields{"candidates": len(candidates), "sent": sent}).Info("Retry sweep finished")
	return sent, nil
}

// RetryEntry attempts a single entry right away, regardless of the sweep. An
// entry another runner is attempting at the same moment is not retryable.
func (s *NotificationService) RetryEntry(ctx context.Context, id int64) (*delivery.Entry, error) {
	e, err := s.store.Deliveries().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.Retryable() {
		return e, fmt.Errorf("entry %d (%s, %d attempts): %w", e.ID, e.Status, e.Attempts, delivery.ErrNotRetryable)
	}
	res, err := s.retry(ctx, e)
	if err != nil {
		return e, err
	}
	if res == outcomeSkipped {
		return e, fmt.Errorf("entry %d is being attempted elsewhere: %w", e.ID, delivery.ErrNotRetryable)
	}
	return e, nil
}

// RecentDeliveries lists the latest entries, newest first.
func (s *NotificationService) RecentDeliveries(ctx context.Context, limit int) ([]*delivery.Entry, error) {
	return s.store.Deliveries().ListRecent(ctx, limit)
}

type outcome int

const (
	outcomeSkipped outcome = iota // another runner holds the entry
	outcomeFailed
	outcomeSent
)

func (s *NotificationService) retry(ctx context.Context, e *delivery.Entry) (outcome, error) {
	var p *roster.Parent
	if e.ParentID.Valid {
		var err error
		p, err = s.store.Roster().GetParent(ctx, e.ParentID.Int64)
		if err != nil && !errors.Is(err, roster.ErrParentNotFound) {
			return outcomeSkipped, fmt.Errorf("failed to load parent for entry %d: %w", e.ID, err)
		}
	}
	return s.attempt(ctx, e, p), nil
}

// attempt claims the entry, sends it once and records the outcome. Only the
// runner whose claim lands may send, so concurrent sweeps and manual retries
// never push an entry past MaxAttempts. A nil parent (deleted since the entry
// was written) counts as a failed attempt.
func (s *NotificationService) attempt(ctx context.Context, e *delivery.Entry, p *roster.Parent) outcome {
	log := s.logger.WithFields(logrus.Fields{
		"entry_id": e.ID,
		"batch_id": e.BatchID,
		"channel":  e.Channel,
		"attempt":  e.Attempts + 1,
	})
	if e.ParentID.Valid {
		log = log.WithField("parent_id", e.ParentID.Int64)
	}

	claimed, err := s.store.Deliveries().Claim(ctx, e, s.now().UTC())
	if err != nil {
		log.WithError(err).Error("Failed to claim delivery entry")
		return outcomeSkipped
	}
	if !claimed {
		log.Debug("Entry claimed by another runner, skipping")
		return outcomeSkipped
	}

	providerID, err := s.send(ctx, e, p)
	if err != nil {
		e.MarkFailed(err)
	} else {
		e.MarkSent(providerID, s.now().UTC())
	}

	// the outcome is recorded even when the caller's context is done
	if uerr := s.store.Deliveries().Update(context.WithoutCancel(ctx), e); uerr != nil {
		log.WithError(uerr).Error("Failed to record delivery attempt")
	}

	switch {
	case err == nil:
		log.Info("Message sent")
		return outcomeSent
	case e.Exhausted():
		log.WithError(err).Error("Delivery permanently failed")
		s.alertAdmin(e, err)
	default:
		log.WithError(err).Warn("Delivery attempt failed")
	}
	return outcomeFailed
}

func (s *NotificationService) send(ctx context.Context, e *delivery.Entry, p *roster.Parent) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: parent no longer exists", errs.ErrDeliveryFailure)
	}
	sender, ok := s.senders[e.Channel]
	if !ok || sender == nil {
		return "", fmt.Errorf("%w: no sender configured for channel %s", errs.ErrDeliveryFailure, e.Channel)
	}
	to, ok := addressFor(p, e.Channel)
	if !ok {
		return "", fmt.Errorf("%w: parent %d is not reachable on %s", errs.ErrDeliveryFailure, p.ID, e.Channel)
	}
	providerID, err := sender.Send(ctx, to, e.Content)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrDeliveryFailure, err)
	}
	return providerID, nil
}

func (s *NotificationService) alertAdmin(e *delivery.Entry, cause error) {
	if s.alerts == nil || s.cfg.AdminChatID == 0 {
		return
	}
	text := fmt.Sprintf("⚠️ Delivery #%d (%s, %s) failed after %d attempts: %v", e.ID, e.Template, e.Channel, e.Attempts, cause)
	if err := s.alerts.SendMessage(s.cfg.AdminChatID, text, nil); err != nil {
		s.logger.WithError(err).WithField("entry_id", e.ID).Warn("Failed to alert admin")
	}
}

// channelsFor lists the channels a parent can be reached on, email first.
func channelsFor(p *roster.Parent) []delivery.Channel {
	var out []delivery.Channel
	if p.EmailReachable() {
		out = append(out, delivery.ChannelEmail)
	}
	if p.WhatsAppReachable() {
		out = append(out, delivery.ChannelWhatsApp)
	}
	return out
}

func addressFor(p *roster.Parent, ch delivery.Channel) (string, bool) {
	switch ch {
	case delivery.ChannelEmail:
		return p.Email.String, p.EmailReachable()
	case delivery.ChannelWhatsApp:
		return p.Phone.String, p.WhatsAppReachable()
	}
	return "", false
}
