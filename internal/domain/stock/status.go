package stock

import "fmt"

type Status string

const (
	StatusIncoming Status = "incoming"
	StatusPurchase Status = "purchase"
	StatusPackage  Status = "package"
	StatusDivide   Status = "divide"
	StatusMoving   Status = "moving"
	StatusError    Status = "error"
	StatusCancel   Status = "cancel"
)

// statuses is the closed set of known statuses.
var statuses = []Status{
	StatusIncoming,
	StatusPurchase,
	StatusPackage,
	StatusDivide,
	StatusMoving,
	StatusError,
	StatusCancel,
}

// transitions lists the statuses reachable from each status. The empty
// status stands for a stock that has no event yet.
var transitions = map[Status][]Status{
	"":             {StatusIncoming, StatusPurchase, StatusPackage, StatusMoving, StatusDivide},
	StatusPurchase: {StatusPurchase, StatusIncoming, StatusCancel, StatusError},
	StatusMoving:   {StatusIncoming, StatusCancel},
	StatusDivide:   {StatusIncoming, StatusCancel},
	StatusPackage:  {StatusCancel},
	StatusIncoming: {StatusCancel},
	StatusCancel:   nil,
	StatusError:    nil,
}

func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func ParseStatus(s string) (Status, error) {
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsTerminal() bool {
	return s == StatusCancel || s == StatusError
}

// IsTransfer reports whether the status moves goods between warehouses.
func (s Status) IsTransfer() bool {
	return s == StatusMoving || s == StatusDivide
}

// Reserving statuses hold reservations on the ledger for their lines.
func (s Status) Reserving() bool {
	return s == StatusPackage || s.IsTransfer()
}

// Unique reports whether at most one event per stock may hold the status.
// Purchase drafts can be edited, so every edit is another purchase event.
func (s Status) Unique() bool {
	return s != StatusPurchase
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
