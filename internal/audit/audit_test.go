package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/sususave/internal/models"
)

type fakeLog struct {
	entries []*models.AuditEntry
	err     error
}

func (f *fakeLog) AppendAudit(_ context.Context, e *models.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeLog) ListAudit(context.Context, string, string, int) ([]*models.AuditEntry, error) {
	return f.entries, nil
}

func TestStoreRecorder(t *testing.T) {
	log := &fakeLog{}
	r := NewStoreRecorder(log)

	r.Record(context.Background(), &models.AuditEntry{EntityType: EntityPayment, EntityID: "p1", Action: ActionSuccess})
	assert.Len(t, log.entries, 1)

	// Write failures are swallowed.
	log.err = errors.New("disk full")
	assert.NotPanics(t, func() {
		r.Record(context.Background(), &models.AuditEntry{EntityType: EntityPayout, EntityID: "x", Action: ActionExecute})
	})
	assert.Len(t, log.entries, 1)
}
