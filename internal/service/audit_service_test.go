package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dormfix-api/internal/models"
)

type fakeAuditSink struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	failN   int
}

func (f *fakeAuditSink) Create(_ context.Context, log *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failN > 0 {
		f.failN--
		return errors.New("db down")
	}
	f.entries = append(f.entries, log)
	return nil
}

func (f *fakeAuditSink) snapshot() []*models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.AuditLog(nil), f.entries...)
}

func (f *fakeAuditSink) actions() []string {
	out := make([]string, 0)
	for _, e := range f.snapshot() {
		out = append(out, e.Action)
	}
	return out
}

func newTestAudit(t *testing.T, sink *fakeAuditSink) *AuditService {
	t.Helper()
	svc, err := NewAuditService(sink, AuditConfig{Enabled: true, Workers: 1, Retries: 2, NodeID: 1, RetryDelay: time.Millisecond}, nil)
	require.NoError(t, err)
	svc.Start(context.Background())
	return svc
}

func TestAuditServicePersistsEvent(t *testing.T) {
	sink := &fakeAuditSink{}
	svc := newTestAudit(t, sink)

	svc.Record(models.AuditEvent{
		Actor:      "warden.podhigai@dormfix.com",
		Action:     models.AuditActionStatusChange,
		Resource:   "maintenance_request",
		ResourceID: "REQ-001",
		Old:        map[string]string{"status": "Submitted"},
		New:        map[string]string{"status": "Assigned"},
		Client:     models.ClientInfo{IP: "10.0.0.1"},
	})
	svc.Stop()

	entries := sink.snapshot()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotZero(t, e.ID)
	require.NotNil(t, e.Actor)
	assert.Equal(t, "warden.podhigai@dormfix.com", *e.Actor)
	require.NotNil(t, e.ResourceID)
	assert.Equal(t, "REQ-001", *e.ResourceID)

	var newValues map[string]string
	require.NoError(t, json.Unmarshal(e.NewValues, &newValues))
	assert.Equal(t, "Assigned", newValues["status"])
}

func TestAuditServiceRetriesSinkFailures(t *testing.T) {
	sink := &fakeAuditSink{failN: 1}
	svc := newTestAudit(t, sink)

	svc.Record(models.AuditEvent{Action: models.AuditActionLogin, Resource: "session"})
	svc.Stop()

	assert.Len(t, sink.snapshot(), 1)
}

func TestAuditServiceDisabledAndNilAreNoops(t *testing.T) {
	sink := &fakeAuditSink{}
	svc, err := NewAuditService(sink, AuditConfig{Enabled: false, NodeID: 1}, nil)
	require.NoError(t, err)
	svc.Start(context.Background())
	svc.Record(models.AuditEvent{Action: models.AuditActionLogin})
	svc.Stop()
	assert.Empty(t, sink.snapshot())

	var none *AuditService
	assert.NotPanics(t, func() { none.Record(models.AuditEvent{Action: models.AuditActionLogout}) })
}
