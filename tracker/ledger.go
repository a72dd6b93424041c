/*
ledger.go - Balance ledger arithmetic

PURPOSE:
  The ledger is the financial core of an employee record: three counters per
  leave type. Reservations move days from remaining to used; releases move
  them back. The ledger never checks sufficiency - the validation gate runs
  strictly before any commit.

RESERVE / RELEASE:
  Adjust(+5): used += 5, remaining -= 5   (request became approved/active)
  Adjust(-5): used -= 5, remaining += 5   (request left approved/active)

DRIFT:
  VerifyLedger compares every balance against the requests that should
  back it. RebuildLedger recomputes used/remaining from those requests.
  Hand-edited or legacy data is the only way drift can appear.

SEE ALSO:
  - engine.go: the only caller of Adjust
*/
package tracker

import "fmt"

// RemainingDays returns the days still available for t.
func RemainingDays(e *Employee, t LeaveType) int {
	b := e.TimeOff.Get(t)
	if b == nil {
		return 0
	}
	return b.Remaining
}

// Adjust reserves (delta > 0) or releases (delta < 0) days for t.
func Adjust(e *Employee, t LeaveType, delta int) error {
	b := e.TimeOff.Get(t)
	if b == nil {
		return fmt.Errorf("%w: %q", ErrInvalidLeaveType, t)
	}
	b.Used += delta
	b.Remaining -= delta
	return nil
}

// reserved sums the days of balance-affecting requests per leave type.
func reserved(e *Employee) map[LeaveType]int {
	sums := make(map[LeaveType]int, len(LeaveTypes))
	for _, r := range e.Requests {
		if r.Status.AffectsBalance() {
			sums[r.Type] += r.Days
		}
	}
	return sums
}

// =============================================================================
// DRIFT DETECTION
// =============================================================================

// Drift is a balance that disagrees with its requests.
type Drift struct {
	EmployeeID   int64
	Type         LeaveType
	Balance      Balance
	ExpectedUsed int
}

func (d Drift) String() string {
	return fmt.Sprintf("employee %d %s: used=%d remaining=%d total=%d, expected used=%d",
		d.EmployeeID, d.Type, d.Balance.Used, d.Balance.Remaining, d.Balance.Total, d.ExpectedUsed)
}

// VerifyLedger returns every balance in ds that breaks the ledger invariant.
func VerifyLedger(ds *DataSet) []Drift {
	var drifts []Drift
	for i := range ds.Employees {
		e := &ds.Employees[i]
		sums := reserved(e)
		for _, t := range LeaveTypes {
			b := *e.TimeOff.Get(t)
			if b.Used != sums[t] || b.Remaining != b.Total-b.Used {
				drifts = append(drifts, Drift{EmployeeID: e.ID, Type: t, Balance: b, ExpectedUsed: sums[t]})
			}
		}
	}
	return drifts
}

// RebuildLedger recomputes used and remaining from the employee's requests.
// Totals are left untouched.
func RebuildLedger(e *Employee) {
	sums := reserved(e)
	for _, t := range LeaveTypes {
		b := e.TimeOff.Get(t)
		b.Used = sums[t]
		b.Remaining = b.Total - b.Used
	}
}
