package db_test

import (
	"errors"
	"testing"

	"github.com/devhb1/FrappeLms-sub002/pkg/db"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, db.IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, db.IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_enrollment_events_event_id" (SQLSTATE 23505)`)))
	assert.True(t, db.IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: enrollment_events.event_id")))
	assert.False(t, db.IsDuplicateKeyErr(errors.New("connection refused")))
	assert.False(t, db.IsDuplicateKeyErr(nil))
}
