package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"vetpos/internal/core/id"
)

type mockRow struct {
	ID        id.ID     `db:"id" json:"id"`
	ClinicID  string    `db:"clinic_id" json:"clinicId"`
	Name      string    `db:"name" json:"name"`
	Lines     []string  `db:"-" json:"lines"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[mockRow]()

	assert.Equal(t, []string{"id", "clinic_id", "name", "created_at"}, cols)
	assert.NotContains(t, cols, "-")
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	row := mockRow{
		ID:        id.New(),
		ClinicID:  "clinic-1",
		Name:      "Test Name",
		Lines:     []string{"skipped"},
		CreatedAt: now,
	}

	m := StructToMap(&row)

	assert.Equal(t, row.ID, m["id"])
	assert.Equal(t, "clinic-1", m["clinic_id"])
	assert.Equal(t, "Test Name", m["name"])
	assert.Equal(t, now, m["created_at"])
	assert.NotContains(t, m, "lines")
	assert.Len(t, m, 4)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
