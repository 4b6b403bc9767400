package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// MaxSlotTimeLen bounds the free-form time label ("10:00 AM").
const MaxSlotTimeLen = 16

var slotDatePattern = regexp.MustCompile(`^\d{1,4}_\d{1,2}_\d{1,4}$`)

// SlotLedger maps a date key ("10_1_2024") to the time labels already booked
// on that date, in booking order. A label appears at most once per date.
type SlotLedger map[string][]string

// IsSlotFree reports whether time is not yet booked on date.
func (l SlotLedger) IsSlotFree(date, time string) bool {
	for _, t := range l[date] {
		if t == time {
			return false
		}
	}
	return true
}

// Reserve appends time to date. It returns false and leaves the ledger
// unchanged when the slot is already taken.
func (l SlotLedger) Reserve(date, time string) bool {
	if !l.IsSlotFree(date, time) {
		return false
	}
	l[date] = append(l[date], time)
	return true
}

// Release removes the first occurrence of time from date. Releasing a free
// slot is a no-op. A date left with no bookings is removed.
func (l SlotLedger) Release(date, time string) {
	times, ok := l[date]
	if !ok {
		return
	}
	for i, t := range times {
		if t == time {
			times = append(times[:i:i], times[i+1:]...)
			break
		}
	}
	if len(times) == 0 {
		delete(l, date)
		return
	}
	l[date] = times
}

// Clone returns a deep copy.
func (l SlotLedger) Clone() SlotLedger {
	out := make(SlotLedger, len(l))
	for date, times := range l {
		out[date] = append([]string(nil), times...)
	}
	return out
}

// SlotKey addresses one bookable slot.
type SlotKey struct {
	DoctorID uuid.UUID
	Date     string
	Time     string
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.DoctorID, k.Date, k.Time)
}

// ValidateSlot checks the shape of a date key and time label.
func ValidateSlot(date, time string) error {
	if !slotDatePattern.MatchString(date) {
		return fmt.Errorf("invalid slot date %q", date)
	}
	time = strings.TrimSpace(time)
	if time == "" {
		return fmt.Errorf("slot time is required")
	}
	if len(time) > MaxSlotTimeLen {
		return fmt.Errorf("slot time %q is too long", time)
	}
	return nil
}
