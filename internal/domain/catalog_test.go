package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() Catalog {
	return NewCatalog(
		map[string]string{
			"Tallinn": "Tallinn-Harku",
			"Tartu":   "Tartu-Tõravere",
			"Pärnu":   "Pärnu",
			"Narva":   "Narva", // no base fees configured
		},
		map[string]map[string]decimal.Decimal{
			"Tallinn":  {"car": dec("4"), "scooter": dec("3.5"), "bike": dec("3")},
			"Tartu":    {"car": dec("3.5"), "scooter": dec("3"), "bike": dec("2.5")},
			"Pärnu":    {"car": dec("3"), "scooter": dec("2.5"), "bike": dec("2")},
			"Viljandi": {"car": dec("3")}, // no station configured
		},
		[]string{"car", "scooter", "bike"},
	)
}

func TestCatalog_Validate(t *testing.T) {
	c := testCatalog()

	tests := []struct {
		name    string
		city    string
		vehicle string
		wantErr error
	}{
		{name: "valid", city: "Tallinn", vehicle: "car"},
		{name: "valid non-ascii", city: "Pärnu", vehicle: "bike"},
		{name: "unknown city", city: "Riga", vehicle: "car", wantErr: ErrUnknownCity},
		{name: "city only in station map", city: "Narva", vehicle: "car", wantErr: ErrUnknownCity},
		{name: "city only in fee map", city: "Viljandi", vehicle: "car", wantErr: ErrUnknownCity},
		{name: "unknown vehicle", city: "Tartu", vehicle: "truck", wantErr: ErrUnknownVehicleType},
		{name: "case sensitive city", city: "tallinn", vehicle: "car", wantErr: ErrUnknownCity},
		{name: "unknown city wins over unknown vehicle", city: "Riga", vehicle: "truck", wantErr: ErrUnknownCity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Validate(tt.city, tt.vehicle)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCatalog_Lookups(t *testing.T) {
	c := testCatalog()

	station, ok := c.StationFor("Tartu")
	require.True(t, ok)
	assert.Equal(t, "Tartu-Tõravere", station)

	fee, ok := c.BaseFee("Tallinn", "scooter")
	require.True(t, ok)
	assertFee(t, "3.5", fee)

	_, ok = c.BaseFee("Tallinn", "truck")
	assert.False(t, ok)

	assert.True(t, c.HasStation("Pärnu"))
	assert.False(t, c.HasStation("Kuressaare"))
	assert.Equal(t, []string{"Narva", "Pärnu", "Tallinn-Harku", "Tartu-Tõravere"}, c.Stations())
	assert.Equal(t, []string{"Pärnu", "Tallinn", "Tartu"}, c.Cities())
	assert.Equal(t, []string{"car", "scooter", "bike"}, c.VehicleTypes())
}

func TestCatalog_Mismatches(t *testing.T) {
	assert.Equal(t, []string{"Narva", "Viljandi"}, testCatalog().Mismatches())
}

func TestCatalog_IsolatedFromInputMaps(t *testing.T) {
	stations := map[string]string{"Tallinn": "Tallinn-Harku"}
	fees := map[string]map[string]decimal.Decimal{"Tallinn": {"car": dec("4")}}
	c := NewCatalog(stations, fees, []string{"car"})

	delete(stations, "Tallinn")
	fees["Tallinn"]["bike"] = dec("1")

	require.NoError(t, c.Validate("Tallinn", "car"))
	require.ErrorIs(t, c.Validate("Tallinn", "bike"), ErrUnknownVehicleType)
}
