package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"school_admin/internal/domain/roster"
	"school_admin/internal/domain/storage"
	"school_admin/internal/infra/database/memory"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

var testDate = time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

type sentMessage struct {
	recipient string
	text      string
}

// fakeSender records messages. It fails every call while failing is set.
type fakeSender struct {
	mutex   sync.Mutex
	failing bool
	calls   int
	sent    []sentMessage
}

func (f *fakeSender) Send(_ context.Context, recipient, text string) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.calls++
	if f.failing {
		return "", errors.New("provider unavailable")
	}
	f.sent = append(f.sent, sentMessage{recipient: recipient, text: text})
	return fmt.Sprintf("MSG%d", f.calls), nil
}

type fakeAlerts struct {
	mutex    sync.Mutex
	messages []string
}

func (f *fakeAlerts) SendMessage(_ int64, text string, _ *telebot.SendOptions) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.messages = append(f.messages, text)
	return nil
}

// gatedSender fails every call, holding each one until release is closed.
type gatedSender struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func newGatedSender() *gatedSender {
	return &gatedSender{entered: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gatedSender) Send(_ context.Context, _, _ string) (string, error) {
	g.calls.Add(1)
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return "", errors.New("provider unavailable")
}

// faultyStore fails the failOn-th CreateStudent call, counted across transactions.
type faultyStore struct {
	storage.Store
	failOn int
	calls  *int
}

func (f faultyStore) Roster() roster.Repository {
	return faultyRoster{Repository: f.Store.Roster(), store: f}
}

func (f faultyStore) WithinTx(ctx context.Context, fn func(tx storage.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx storage.Store) error {
		return fn(faultyStore{Store: tx, failOn: f.failOn, calls: f.calls})
	})
}

type faultyRoster struct {
	roster.Repository
	store faultyStore
}

func (r faultyRoster) CreateStudent(ctx context.Context, s *roster.Student) error {
	*r.store.calls++
	if *r.store.calls == r.store.failOn {
		return errors.New("disk full")
	}
	return r.Repository.CreateStudent(ctx, s)
}

func mustClass(t *testing.T, store storage.Store, name string) *roster.Class {
	t.Helper()
	c := &roster.Class{Name: name}
	require.NoError(t, store.Roster().CreateClass(context.Background(), c))
	return c
}

func mustStudent(t *testing.T, store storage.Store, first, last string, classID int64) *roster.Student {
	t.Helper()
	s := &roster.Student{FirstName: first, LastName: last}
	if classID != 0 {
		s.ClassID = sql.NullInt64{Int64: classID, Valid: true}
	}
	require.NoError(t, store.Roster().CreateStudent(context.Background(), s))
	return s
}

// mustParent creates a parent reachable by email and, when phone is set, by WhatsApp.
func mustParent(t *testing.T, store storage.Store, email, phone string, studentIDs ...int64) *roster.Parent {
	t.Helper()
	ctx := context.Background()
	p := &roster.Parent{
		FirstName:     nullString("Marie"),
		LastName:      nullString("Dupont"),
		Email:         nullString(email),
		Phone:         nullString(phone),
		WhatsAppOptIn: phone != "",
	}
	require.NoError(t, store.Roster().CreateParent(ctx, p))
	for _, id := range studentIDs {
		require.NoError(t, store.Roster().LinkParent(ctx, p.ID, id))
	}
	return p
}

func newTestStore() *memory.Store {
	return memory.NewStore()
}
