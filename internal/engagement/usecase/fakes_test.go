package usecase

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	decisiondomain "decisionlog-backend/internal/decision/domain"
	decisionrepo "decisionlog-backend/internal/decision/repository"
	"decisionlog-backend/internal/engagement/domain"
	"decisionlog-backend/pkg/mailer"

	"github.com/google/uuid"
)

// fixedNow is a Wednesday; the week started on Sunday 2026-10-11.
var fixedNow = time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

func testCalendar() *Calendar {
	return NewCalendar(time.UTC, func() time.Time { return fixedNow })
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }

// fakeReader is an in-memory DecisionReader.
type fakeReader struct {
	decisions []decisiondomain.Decision
	outcomes  []decisiondomain.Outcome
	checkIns  []decisiondomain.CheckIn
	profiles  []decisiondomain.Profile

	err error
}

func (f *fakeReader) hasOutcome(decisionID string) bool {
	for _, o := range f.outcomes {
		if o.DecisionID == decisionID {
			return true
		}
	}
	return false
}

func inUsers(userIDs []string, userID string) bool {
	if len(userIDs) == 0 {
		return true
	}
	for _, id := range userIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (f *fakeReader) DecisionsByUser(ctx context.Context, userID string) ([]decisiondomain.Decision, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []decisiondomain.Decision
	for _, d := range f.decisions {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeReader) OutcomesByUser(ctx context.Context, userID string) ([]decisiondomain.Outcome, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []decisiondomain.Outcome
	for _, o := range f.outcomes {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeReader) DecidedWithoutOutcome(ctx context.Context, after, before time.Time) ([]decisiondomain.Decision, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []decisiondomain.Decision
	for _, d := range f.decisions {
		if d.DecidedAt == nil || d.ChosenOptionID == nil {
			continue
		}
		if !d.DecidedAt.After(after) || d.DecidedAt.After(before) {
			continue
		}
		if f.hasOutcome(d.ID) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeReader) DecisionCountsSince(ctx context.Context, since time.Time) (map[string]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	counts := make(map[string]int)
	for _, d := range f.decisions {
		if !d.CreatedAt.Before(since) {
			counts[d.UserID]++
		}
	}
	return counts, nil
}

func (f *fakeReader) DecisionCreationTimes(ctx context.Context, userIDs []string, since time.Time) ([]decisionrepo.UserTimestamp, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []decisionrepo.UserTimestamp
	for _, d := range f.decisions {
		if inUsers(userIDs, d.UserID) && !d.CreatedAt.Before(since) {
			out = append(out, decisionrepo.UserTimestamp{UserID: d.UserID, At: d.CreatedAt})
		}
	}
	return out, nil
}

func (f *fakeReader) OutcomeCompletionTimes(ctx context.Context, userIDs []string, since time.Time) ([]decisionrepo.UserTimestamp, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []decisionrepo.UserTimestamp
	for _, o := range f.outcomes {
		if inUsers(userIDs, o.UserID) && !o.CompletedAt.Before(since) {
			out = append(out, decisionrepo.UserTimestamp{UserID: o.UserID, At: o.CompletedAt})
		}
	}
	return out, nil
}

func (f *fakeReader) CheckInDates(ctx context.Context, userIDs []string, sinceDate string) ([]decisionrepo.UserDate, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []decisionrepo.UserDate
	for _, c := range f.checkIns {
		if inUsers(userIDs, c.UserID) && c.Date >= sinceDate {
			out = append(out, decisionrepo.UserDate{UserID: c.UserID, Date: c.Date})
		}
	}
	return out, nil
}

func (f *fakeReader) ProfilesCreatedSince(ctx context.Context, since time.Time) ([]decisiondomain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []decisiondomain.Profile
	for _, p := range f.profiles {
		if !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeReader) ProfilesByIDs(ctx context.Context, userIDs []string) (map[string]*decisiondomain.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*decisiondomain.Profile)
	for i := range f.profiles {
		p := f.profiles[i]
		if inUsers(userIDs, p.ID) {
			out[p.ID] = &p
		}
	}
	return out, nil
}

// fakeSendLogs mirrors the unique-index semantics of the send_logs table.
type fakeSendLogs struct {
	mu   sync.Mutex
	rows map[string]*domain.SendLog

	recentErr  error
	confirmErr error
}

func newFakeSendLogs() *fakeSendLogs {
	return &fakeSendLogs{rows: make(map[string]*domain.SendLog)}
}

func slotKey(e *domain.SendLog) string {
	return e.UserID + "|" + string(e.EmailType) + "|" + e.TargetKey + "|" + strconv.FormatInt(e.WindowBucket, 10)
}

func (f *fakeSendLogs) RecentSends(ctx context.Context, category domain.Category, userIDs []string, since time.Time) ([]domain.SendLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	var out []domain.SendLog
	for _, row := range f.rows {
		if row.EmailType == category && row.Status == domain.SendStatusSent &&
			inUsers(userIDs, row.UserID) && !row.SentAt.Before(since) {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeSendLogs) Claim(ctx context.Context, entry *domain.SendLog, staleBefore time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	entry.Status = domain.SendStatusPending

	key := slotKey(entry)
	if existing, ok := f.rows[key]; ok {
		if existing.Status != domain.SendStatusPending || !existing.SentAt.Before(staleBefore) {
			return false, nil
		}
	}
	row := *entry
	f.rows[key] = &row
	return true, nil
}

func (f *fakeSendLogs) Confirm(ctx context.Context, id string, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmErr != nil {
		return f.confirmErr
	}
	for _, row := range f.rows {
		if row.ID == id {
			row.Status = domain.SendStatusSent
			row.SentAt = sentAt
			return nil
		}
	}
	return errors.New("send log not found")
}

func (f *fakeSendLogs) Release(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, row := range f.rows {
		if row.ID == id && row.Status == domain.SendStatusPending {
			delete(f.rows, key)
		}
	}
	return nil
}

func (f *fakeSendLogs) count(status domain.SendStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.Status == status {
			n++
		}
	}
	return n
}

// fakeTransport records accepted messages and can be told to fail.
type fakeTransport struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (f *fakeTransport) Send(ctx context.Context, msg *mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeTransport) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.To)
	}
	sort.Strings(out)
	return out
}

// fakeSnapshots is an in-memory HealthSnapshotRepository keyed by user and date.
type fakeSnapshots struct {
	mu   sync.Mutex
	rows map[string]*domain.HealthSnapshot
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{rows: make(map[string]*domain.HealthSnapshot)}
}

func (f *fakeSnapshots) Upsert(ctx context.Context, s *domain.HealthSnapshot) (*domain.HealthSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := s.UserID + "|" + s.SnapshotDate
	row := *s
	if existing, ok := f.rows[key]; ok {
		row.ID = existing.ID
	} else if row.ID == "" {
		row.ID = uuid.New().String()
	}
	f.rows[key] = &row
	out := row
	return &out, nil
}

func (f *fakeSnapshots) FindByUserAndDate(ctx context.Context, userID, date string) (*domain.HealthSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if row, ok := f.rows[userID+"|"+date]; ok {
		out := *row
		return &out, nil
	}
	return nil, nil
}

// fakeLocker grants or refuses every lock.
type fakeLocker struct {
	acquired bool
	err      error
	unlocked int
}

func (f *fakeLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if !f.acquired {
		return nil, false, nil
	}
	return func() { f.unlocked++ }, true, nil
}
