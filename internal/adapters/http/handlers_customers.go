package web

import (
	"net/http"

	customerStore "surfshop/internal/adapters/storage/customer"
	"surfshop/internal/application/listutil"
	"surfshop/internal/application/orchestrators"
	"surfshop/internal/application/projections"
	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/customer"
	"surfshop/internal/domain/instructor"
)

// maxTransactions caps GET /api/customers/{id}/transactions.
const maxTransactions = 500

// handleSaveInstructor handles POST /api/instructors (create, or update when id is set).
func (s *server) handleSaveInstructor(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.SaveInstructorInput
	if err := strictDecode(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	i, err := orchestrators.ExecuteSaveInstructor(r.Context(), input, orchestrators.SaveInstructorDeps{
		Instructors: s.stores.InstructorStore,
		Now:         timeNow,
		GenerateID:  generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, i)
}

// handleListInstructors handles GET /api/instructors?active=true.
func (s *server) handleListInstructors(w http.ResponseWriter, r *http.Request) {
	activeOnly, err := listutil.ParseBool(r.URL.Query(), "active")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.stores.InstructorStore.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []instructor.Instructor{}
	}
	writeJSON(w, http.StatusOK, list)
}

// handleSaveCustomer handles POST /api/customers (create, or update when id is set).
func (s *server) handleSaveCustomer(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.SaveCustomerInput
	if err := strictDecode(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := orchestrators.ExecuteSaveCustomer(r.Context(), input, orchestrators.SaveCustomerDeps{
		Customers:  s.stores.CustomerStore,
		Now:        timeNow,
		GenerateID: generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleListCustomers handles GET /api/customers.
// Query: q, status, waiver_status, campground, page, per_page.
func (s *server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fp := listutil.ParseFilterParams(q, []string{"status", "waiver_status"})
	page := listutil.ParsePageParams(q)

	status := customer.Status(fp.Filters["status"])
	switch status {
	case "", customer.StatusActive, customer.StatusInactive, customer.StatusBanned:
	default:
		writeError(w, r, apperr.Validation("unknown status %q", status))
		return
	}
	waiver := customer.WaiverValidity(fp.Filters["waiver_status"])
	switch waiver {
	case "", customer.WaiverNone, customer.WaiverExpired, customer.WaiverExpiringSoon, customer.WaiverValid:
	default:
		writeError(w, r, apperr.Validation("unknown waiver status %q", waiver))
		return
	}
	campground, err := listutil.ParseBool(q, "campground")
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := projections.QueryGetCustomerList(r.Context(), projections.GetCustomerListQuery{
		Filter: customerStore.ListFilter{
			Status:         status,
			Search:         fp.Search,
			CampgroundOnly: campground,
			Limit:          page.Limit(),
			Offset:         page.Offset(),
		},
		WaiverStatus: waiver,
	}, projections.GetCustomerListDeps{CustomerStore: s.stores.CustomerStore, Now: timeNow})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleGetCustomer handles GET /api/customers/{id}.
func (s *server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	profile, err := projections.QueryGetCustomerProfile(r.Context(), r.PathValue("id"), projections.GetCustomerProfileDeps{
		CustomerStore: s.stores.CustomerStore,
		VisitStore:    s.stores.VisitStore,
		Now:           timeNow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleSignWaiver handles POST /api/customers/{id}/waiver.
func (s *server) handleSignWaiver(w http.ResponseWriter, r *http.Request) {
	c, err := orchestrators.ExecuteSignWaiver(r.Context(), r.PathValue("id"), orchestrators.SignWaiverDeps{
		Customers: s.stores.CustomerStore,
		Now:       timeNow,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customer":      c,
		"waiver_status": c.WaiverStatus(timeNow()),
	})
}

// handleRecordVisit handles POST /api/customers/{id}/visits.
func (s *server) handleRecordVisit(w http.ResponseWriter, r *http.Request) {
	var input orchestrators.RecordVisitInput
	if err := strictDecode(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	input.CustomerID = r.PathValue("id")
	result, err := orchestrators.ExecuteRecordVisit(r.Context(), input, orchestrators.RecordVisitDeps{
		Ledger:     s.stores.VisitStore,
		Now:        timeNow,
		GenerateID: generateID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleTransactions handles GET /api/customers/{id}/transactions?limit=.
func (s *server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := listutil.ParseLimit(r.URL.Query(), "limit", maxTransactions, maxTransactions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	if _, err := s.stores.CustomerStore.GetByID(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	txns, err := projections.QueryGetTransactionHistory(r.Context(), id, limit, projections.GetTransactionHistoryDeps{
		VisitStore: s.stores.VisitStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// handleRecomputeCustomer handles POST /api/customers/{id}/recompute.
func (s *server) handleRecomputeCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := orchestrators.ExecuteRecomputeCustomerAggregates(r.Context(), r.PathValue("id"), orchestrators.RecomputeCustomerAggregatesDeps{
		Customers: s.stores.CustomerStore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
