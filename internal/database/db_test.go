package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSNCarriesDriverFlags(t *testing.T) {
	got := dsn("gym", "s3cret", "localhost", "3306", "gym_booking")
	assert.Contains(t, got, "gym:s3cret@tcp(localhost:3306)/gym_booking?")
	// Matched-rows reporting: guarded UPDATEs treat RowsAffected == 0
	// as "no row matched", which breaks on the driver's changed-rows
	// default when a re-submit writes identical values.
	assert.Contains(t, got, "clientFoundRows=true")
	assert.Contains(t, got, "parseTime=true")
	assert.Contains(t, got, "loc=UTC")
}

func TestDSNOmitsEmptyPassword(t *testing.T) {
	got := dsn("gym", "", "db", "3307", "gym_booking")
	assert.Contains(t, got, "gym@tcp(db:3307)/gym_booking?")
}
