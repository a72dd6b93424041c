package tracker

// DefaultDataSet is served when the store holds nothing yet.
// Ledgers are rebuilt from the requests so the sample starts consistent.
func DefaultDataSet() *DataSet {
	d := MustParseDate
	ds := &DataSet{
		Employees: []Employee{
			{
				ID: 1, FirstName: "Alex", LastName: "Johnson", Email: "alex.j@company.com",
				District: "engineering", Position: "Senior Developer", StartDate: d("2020-03-15"),
				Status:  EmployeeActive,
				TimeOff: NewLedger(Allocation{Vacation: 20, Personal: 5, Sick: 10}),
				Requests: []Request{
					{ID: 101, Type: LeaveVacation, StartDate: d("2025-06-10"), EndDate: d("2025-06-16"), Days: 5,
						Status: StatusApproved, RequestDate: d("2025-04-15"), Notes: "Summer vacation"},
					{ID: 105, Type: LeaveVacation, StartDate: d("2025-08-05"), EndDate: d("2025-08-09"), Days: 5,
						Status: StatusPending, RequestDate: d("2025-05-01"), Notes: "Family reunion"},
				},
			},
			{
				ID: 2, FirstName: "Sarah", LastName: "Miller", Email: "sarah.m@company.com",
				District: "marketing", Position: "Marketing Manager", StartDate: d("2019-08-01"),
				Status:  EmployeeActive,
				TimeOff: NewLedger(Allocation{Vacation: 25, Personal: 5, Sick: 10}),
				Requests: []Request{
					{ID: 102, Type: LeavePersonal, StartDate: d("2025-05-20"), EndDate: d("2025-05-20"), Days: 1,
						Status: StatusApproved, RequestDate: d("2025-05-01"), Notes: "Family appointment"},
					{ID: 106, Type: LeaveSick, StartDate: d("2025-05-10"), EndDate: d("2025-05-10"), Days: 1,
						Status: StatusCompleted, RequestDate: d("2025-05-10"), Notes: "Doctor appointment"},
				},
			},
			{
				ID: 3, FirstName: "Michael", LastName: "Chen", Email: "michael.c@company.com",
				District: "sales", Position: "Sales Representative", StartDate: d("2021-02-10"),
				Status:  EmployeeOnLeave,
				TimeOff: NewLedger(Allocation{Vacation: 15, Personal: 5, Sick: 10}),
				Requests: []Request{
					{ID: 103, Type: LeaveVacation, StartDate: d("2025-05-01"), EndDate: d("2025-05-15"), Days: 11,
						Status: StatusActive, RequestDate: d("2025-03-20"), Notes: "Family vacation"},
					{ID: 107, Type: LeavePersonal, StartDate: d("2025-06-01"), EndDate: d("2025-06-01"), Days: 1,
						Status: StatusPending, RequestDate: d("2025-05-02"), Notes: "Personal matter"},
				},
			},
			{
				ID: 4, FirstName: "Jessica", LastName: "Taylor", Email: "jessica.t@company.com",
				District: "hr", Position: "HR Specialist", StartDate: d("2018-11-05"),
				Status:  EmployeeActive,
				TimeOff: NewLedger(Allocation{Vacation: 25, Personal: 5, Sick: 10}),
				Requests: []Request{
					{ID: 108, Type: LeaveVacation, StartDate: d("2025-07-15"), EndDate: d("2025-07-26"), Days: 10,
						Status: StatusPending, RequestDate: d("2025-05-03"), Notes: "Summer holiday"},
				},
			},
			{
				ID: 5, FirstName: "David", LastName: "Wilson", Email: "david.w@company.com",
				District: "engineering", Position: "QA Engineer", StartDate: d("2022-01-15"),
				Status:  EmployeeActive,
				TimeOff: NewLedger(Allocation{Vacation: 15, Personal: 5, Sick: 10}),
				Requests: []Request{
					{ID: 104, Type: LeaveSick, StartDate: d("2025-04-10"), EndDate: d("2025-04-12"), Days: 3,
						Status: StatusCompleted, RequestDate: d("2025-04-10"), Notes: "Flu"},
					{ID: 109, Type: LeaveSick, StartDate: d("2025-05-05"), EndDate: d("2025-05-07"), Days: 3,
						Status: StatusCompleted, RequestDate: d("2025-05-05"), Notes: "Cold"},
				},
			},
			{
				ID: 6, FirstName: "Emily", LastName: "Garcia", Email: "emily.g@company.com",
				District: "finance", Position: "Financial Analyst", StartDate: d("2021-06-15"),
				Status:  EmployeeActive,
				TimeOff: NewLedger(Allocation{Vacation: 18, Personal: 5, Sick: 10}),
				Requests: []Request{
					{ID: 110, Type: LeaveVacation, StartDate: d("2025-09-01"), EndDate: d("2025-09-05"), Days: 5,
						Status: StatusApproved, RequestDate: d("2025-04-20"), Notes: "Labor Day week"},
					{ID: 111, Type: LeaveVacation, StartDate: d("2025-12-22"), EndDate: d("2025-12-26"), Days: 3,
						Status: StatusPending, RequestDate: d("2025-05-04"), Notes: "Christmas holiday"},
				},
			},
		},
	}
	for i := range ds.Employees {
		e := &ds.Employees[i]
		for j := range e.Requests {
			e.Requests[j].EmployeeID = e.ID
		}
		RebuildLedger(e)
	}
	ds.NextID = ds.maxID() + 1
	return ds
}

// Normalize repairs a freshly decoded dataset: nil request slices become
// empty, request owner ids are filled in and NextID is moved past every
// existing id. Ledgers are not touched; see VerifyLedger.
func (ds *DataSet) Normalize() {
	if ds.Employees == nil {
		ds.Employees = []Employee{}
	}
	for i := range ds.Employees {
		e := &ds.Employees[i]
		if e.Requests == nil {
			e.Requests = []Request{}
		}
		for j := range e.Requests {
			e.Requests[j].EmployeeID = e.ID
		}
	}
	if m := ds.maxID(); ds.NextID <= m {
		ds.NextID = m + 1
	}
}
