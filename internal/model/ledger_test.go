package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotLedgerReserveRelease(t *testing.T) {
	l := SlotLedger{}

	assert.True(t, l.IsSlotFree("10_1_2024", "10:00 AM"))
	assert.True(t, l.Reserve("10_1_2024", "10:00 AM"))
	assert.False(t, l.IsSlotFree("10_1_2024", "10:00 AM"))
	assert.False(t, l.Reserve("10_1_2024", "10:00 AM"))
	assert.Equal(t, SlotLedger{"10_1_2024": {"10:00 AM"}}, l)

	assert.True(t, l.Reserve("10_1_2024", "11:00 AM"))
	l.Release("10_1_2024", "10:00 AM")
	assert.Equal(t, SlotLedger{"10_1_2024": {"11:00 AM"}}, l)

	l.Release("10_1_2024", "11:00 AM")
	l.Release("10_1_2024", "11:00 AM")
	l.Release("11_1_2024", "09:00 AM")
	assert.Empty(t, l)
}

func TestSlotLedgerCloneIsIndependent(t *testing.T) {
	l := SlotLedger{"10_1_2024": {"10:00 AM"}}
	c := l.Clone()
	c.Reserve("10_1_2024", "11:00 AM")

	assert.Equal(t, []string{"10:00 AM"}, l["10_1_2024"])
	assert.Equal(t, []string{"10:00 AM", "11:00 AM"}, c["10_1_2024"])
}

func TestValidateSlot(t *testing.T) {
	tests := []struct {
		name    string
		date    string
		time    string
		wantErr bool
	}{
		{"valid", "10_1_2024", "10:00 AM", false},
		{"year first", "2024_01_10", "10:00 AM", false},
		{"slashes", "10/1/2024", "10:00 AM", true},
		{"empty time", "10_1_2024", "  ", true},
		{"long time", "10_1_2024", "10:00 AM in the morning", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlot(tt.date, tt.time)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
