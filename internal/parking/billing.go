package parking

import (
	"fmt"
	"time"
)

const hoursPerDay = 24

// RateSchedule holds the tariff. Charges are whole currency units.
type RateSchedule struct {
	FlatCharge int64
	FlatHours  int64
	DayCharge  int64
	HourRates  map[Size]int64
}

func DefaultRateSchedule() RateSchedule {
	return RateSchedule{
		FlatCharge: 40,
		FlatHours:  3,
		DayCharge:  5000,
		HourRates: map[Size]int64{
			Small:  20,
			Medium: 60,
			Large:  100,
		},
	}
}

// SlotSizer resolves the size of the slot a session was spent in.
type SlotSizer interface {
	SlotSize(location Location) (Size, bool)
}

type Calculator struct {
	rates RateSchedule
	slots SlotSizer
}

func NewCalculator(rates RateSchedule, slots SlotSizer) *Calculator {
	return &Calculator{rates: rates, slots: slots}
}

// Charge prices the last session of a continuous run. Every session must be
// closed and every session but the last must carry the charge recorded for
// it; the result is what the whole run costs minus what was already paid.
//
// Hours are rounded up per session, and the unused part of the last rounded
// hour carries over to the next session so that the run is billed as one stay.
func (c *Calculator) Charge(sessions []*ParkingSession) (int64, error) {
	if len(sessions) == 0 {
		return 0, fmt.Errorf("%w: empty session history", ErrBilling)
	}

	var (
		totalHours  int64
		totalCharge int64
		paidCharge  int64
		start       = sessions[0].TimeParkedAt
	)

	for i, session := range sessions {
		if !session.Closed() {
			return 0, fmt.Errorf("%w: session %d is still open", ErrBilling, i)
		}

		prevTotalHours := totalHours
		consumed := session.TimeUnparkedAt.Sub(start)
		hours := ceilHours(consumed)
		totalHours += hours

		hourRate, err := c.hourRate(session.SlotLocation)
		if err != nil {
			return 0, err
		}

		switch {
		case totalHours <= c.rates.FlatHours:
			totalCharge = c.rates.FlatCharge
		case totalHours < hoursPerDay && prevTotalHours < c.rates.FlatHours:
			totalCharge = c.rates.FlatCharge + (totalHours-c.rates.FlatHours)*hourRate
		case (totalHours >= hoursPerDay && prevTotalHours < hoursPerDay) ||
			consumed > time.Duration(hoursPerDay-prevTotalHours%hoursPerDay)*time.Hour:
			totalCharge = c.rates.DayCharge*(totalHours/hoursPerDay) + hourRate*(totalHours%hoursPerDay)
		default:
			totalCharge += hours * hourRate
		}

		remaining := time.Duration(hours)*time.Hour - consumed
		start = session.TimeUnparkedAt.Add(remaining)

		if i < len(sessions)-1 {
			if session.Charge == nil {
				return 0, fmt.Errorf("%w: session %d has no recorded charge", ErrBilling, i)
			}
			paidCharge += *session.Charge
		}
	}

	return totalCharge - paidCharge, nil
}

func (c *Calculator) hourRate(location Location) (int64, error) {
	size, ok := c.slots.SlotSize(location)
	if !ok {
		return 0, fmt.Errorf("%w: unknown slot %s", ErrBilling, location)
	}
	rate, ok := c.rates.HourRates[size]
	if !ok {
		return 0, fmt.Errorf("%w: no hour rate for %s", ErrBilling, size)
	}
	return rate, nil
}

// ceilHours rounds a span up to whole hours. Negative spans round toward
// zero, which is the ceiling for them.
func ceilHours(d time.Duration) int64 {
	if d <= 0 {
		return int64(d / time.Hour)
	}
	return int64((d + time.Hour - 1) / time.Hour)
}
