package cashcount

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Edmonton is the reference zone for every "is this today" comparison.
var Edmonton = mustLoad("America/Edmonton")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load %s: %v", name, err))
	}
	return loc
}

const dayLayout = "2006-01-02"

// Today is the reference-zone calendar date of now.
func Today(now time.Time) string {
	return DayOf(now)
}

func DayOf(t time.Time) string {
	return t.In(Edmonton).Format(dayLayout)
}

const (
	MessageMissingCount = "You have not counted this resident's cash today. Please complete a count."
	messageOK           = "Count matches ledger"
	messageNeverCounted = "No cash count on record"
	lastCountNever      = "Never"
)

// BuildFinanceRows derives the finance view for staffID at now. For every
// resident the acting staff member has not counted today, one missing-count
// row precedes that resident's first regular row. Every entry yields one
// regular row, in input order.
func BuildFinanceRows(entries []Entry, staffID int64, now time.Time) []FinanceRow {
	today := Today(now)

	countedToday := make(map[int64]bool)
	for _, e := range entries {
		if e.Counted && e.StaffID == staffID && DayOf(e.CountedAt) == today {
			countedToday[e.ResidentID] = true
		}
	}

	flagged := make(map[int64]bool)
	rows := make([]FinanceRow, 0, len(entries))
	for i, e := range entries {
		if !flagged[e.ResidentID] && !countedToday[e.ResidentID] {
			rows = append(rows, missingRow(e))
			flagged[e.ResidentID] = true
		}
		rows = append(rows, regularRow(e, i))
	}
	return rows
}

func missingRow(e Entry) FinanceRow {
	r := baseRow(e)
	r.ID = "missing-" + strconv.FormatInt(e.ResidentID, 10)
	r.Status = StatusMissingCount
	r.Message = MessageMissingCount
	return r
}

func regularRow(e Entry, idx int) FinanceRow {
	r := baseRow(e)
	r.ID = strconv.FormatInt(e.ResidentID, 10) + "-" + strconv.Itoa(idx)
	switch {
	case !e.Counted:
		r.Status = StatusOK
		r.Message = messageNeverCounted
	case e.IsMismatch:
		r.Status = StatusMismatch
		r.Message = "Count differs from ledger by " + FormatCAD(e.DiffCents)
	default:
		r.Status = StatusOK
		r.Message = messageOK
	}
	return r
}

func baseRow(e Entry) FinanceRow {
	r := FinanceRow{
		ResidentID:    e.ResidentID,
		ClientName:    clientName(e),
		Balance:       placeholder,
		StaffInitials: placeholder,
		LastCount:     lastCountNever,
	}
	if e.Counted {
		bal := e.BalanceCents
		r.BalanceCents = &bal
		r.Balance = FormatCAD(bal)
		r.StaffInitials = Initials(e.StaffFirstName, e.StaffLastName)
		r.LastCount = e.CountedAt.In(Edmonton).Format("2006-01-02 15:04")
	}
	return r
}

func clientName(e Entry) string {
	name := strings.TrimSpace(strings.TrimSpace(e.FirstName) + " " + strings.TrimSpace(e.LastName))
	if name == "" {
		return "Resident #" + strconv.FormatInt(e.ResidentID, 10)
	}
	return name
}
