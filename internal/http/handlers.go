package http

import (
	"net/http"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// handleImport accepts a Chase CSV statement for one account. The body is
// either raw CSV or a multipart form with a "statement" file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	accountID := strings.TrimSpace(r.URL.Query().Get("accountId"))
	if accountID == "" {
		writeError(w, r, core.NewError(core.CodeMissingField, "accountId is required"))
		return
	}

	body, err := statementBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	result, err := s.svc.Imports.ImportTransactionsFromCSV(r.Context(), accountID, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// New transactions change every report.
	if result.NewTransactions > 0 {
		s.reportCache.Clear()
	}

	s.structured.LogImportCompleted(r.Context(), accountID,
		result.Parsed, result.NewTransactions, result.Duplicates)
	writeJSON(w, http.StatusOK, result)
}

// handleSpending serves the combined spending report, cached per query.
func (s *Server) handleSpending(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := dateParam(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}

	req := services.ReportRequest{
		UserID:               userIDFrom(r),
		AccountID:            strings.TrimSpace(r.URL.Query().Get("accountId")),
		From:                 from,
		To:                   to,
		IncludeSubcategories: boolParam(r, "includeSubcategories"),
	}

	key := reportCacheKey(req)
	if report, found := s.reportCache.Get(key); found {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Report cache hit",
			applog.FieldUserID, req.UserID,
			applog.FieldAccountID, req.AccountID)
		writeJSON(w, http.StatusOK, report)
		return
	}

	report, err := s.svc.Spendings.Report(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Set(key, report)
	writeJSON(w, http.StatusOK, report)
}

func reportCacheKey(req services.ReportRequest) string {
	var b strings.Builder
	b.WriteString(req.UserID)
	b.WriteByte('|')
	b.WriteString(req.AccountID)
	b.WriteByte('|')
	if !req.From.IsEmpty() {
		b.WriteString(req.From.DayKey())
	}
	b.WriteByte('|')
	if !req.To.IsEmpty() {
		b.WriteString(req.To.DayKey())
	}
	if req.IncludeSubcategories {
		b.WriteString("|subs")
	}
	return b.String()
}

type createBusinessRequest struct {
	Name              string   `json:"name"`
	DefaultCategoryID string   `json:"defaultCategoryId"`
	Regexps           []string `json:"regexps"`
}

func (s *Server) handleCreateBusiness(w http.ResponseWriter, r *http.Request) {
	var req createBusinessRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	business, err := s.svc.Businesses.Create(r.Context(), req.Name, req.DefaultCategoryID, req.Regexps)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, business)
}

type addRuleRequest struct {
	BusinessID string `json:"businessId"`
	Pattern    string `json:"pattern"`
}

func (s *Server) handleAddBusinessRule(w http.ResponseWriter, r *http.Request) {
	var req addRuleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.svc.Businesses.AddRule(r.Context(), req.BusinessID, req.Pattern); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"businessId": req.BusinessID})
}

type recognizeResponse struct {
	Recognized   int                `json:"recognized"`
	Transactions []core.Transaction `json:"transactions"`
}

// handleRecognize runs the bulk first-match pass over unrecognized
// transactions.
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	updated, err := s.svc.Businesses.Recognize(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if len(updated) > 0 {
		s.reportCache.Clear()
	}
	writeJSON(w, http.StatusOK, recognizeResponse{
		Recognized:   len(updated),
		Transactions: updated,
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Categories.List(r.Context(), userIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type categoryRequest struct {
	ParentID string `json:"parentId"`
	Caption  string `json:"caption"`
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category, err := s.svc.Categories.Create(r.Context(), userIDFrom(r), req.ParentID, req.Caption)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	category := core.Category{
		ID:       r.PathValue("id"),
		UserID:   userIDFrom(r),
		ParentID: req.ParentID,
		Caption:  req.Caption,
		Type:     core.CategoryTypeUser,
	}
	if err := s.svc.Categories.Update(r.Context(), category); err != nil {
		writeError(w, r, err)
		return
	}

	// Reparenting moves totals between roots.
	s.reportCache.Clear()
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.reportCache.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts.List(r.Context(), userIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

type createAccountRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	account, err := s.svc.Accounts.Create(r.Context(), userIDFrom(r), req.Name, core.AccountType(req.Type))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}
