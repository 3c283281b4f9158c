package http

import (
	"net/http"
	"strings"

	"orcamento/internal/core"
	"orcamento/internal/log"
)

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	res, err := s.api.Load(r.Context())
	if err != nil {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	NewJSONResponse().Header("ETag", `"`+res.Version+`"`).Body(res.Filter(f)).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	sum, err := s.api.Summary(r.Context(), f)
	if err != nil {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	NewJSONResponse().Body(sum).Write(w)
}

func (s *Server) handleCreateEntries(w http.ResponseWriter, r *http.Request) {
	var p entryPayload
	if err := decodeJSON(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	req, err := p.toRequest()
	if err != nil {
		ErrorFor(err).Write(w)
		return
	}
	ids, err := s.api.AddEntries(r.Context(), req)
	if err != nil {
		s.fail(w, r, log.OpAppend, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string][]string{"ids": ids}).Write(w)
}

func (s *Server) handleDeletionPlan(w http.ResponseWriter, r *http.Request) {
	var p idsPayload
	if err := decodeJSON(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	ids := p.cleanIDs()
	if len(ids) == 0 {
		BadRequestError("ids are required").Write(w)
		return
	}
	preview, err := s.api.PlanDeletion(r.Context(), ids)
	if err != nil {
		s.fail(w, r, log.OpPlan, err)
		return
	}
	NewJSONResponse().Body(preview).Write(w)
}

func (s *Server) handleDeleteEntries(w http.ResponseWriter, r *http.Request) {
	var p idsPayload
	if err := decodeJSON(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	res, err := s.api.DeleteEntries(r.Context(), p.cleanIDs(), strings.TrimSpace(p.Version))
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(r.PathValue("id"))
	if groupID == "" {
		BadRequestError("group id is required").Write(w)
		return
	}
	version := strings.TrimSpace(r.URL.Query().Get("version"))
	res, err := s.api.DeleteGroup(r.Context(), groupID, version)
	if err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleListRegistry(w http.ResponseWriter, r *http.Request) {
	entries, err := s.api.Registry(r.Context())
	if err != nil {
		s.fail(w, r, log.OpLoad, err)
		return
	}
	if entries == nil {
		entries = []core.RegistryEntry{}
	}
	NewJSONResponse().Body(entries).Write(w)
}

func (s *Server) handleAddRegistry(w http.ResponseWriter, r *http.Request) {
	var p registryPayload
	if err := decodeJSON(w, r, &p); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	entry := p.toEntry()
	if err := s.api.AddRegistry(r.Context(), entry); err != nil {
		s.fail(w, r, log.OpRegister, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(entry).Write(w)
}

// fail logs server-side errors and writes the mapped response. Client
// errors are logged at debug level only.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	resp := ErrorFor(err)
	if statusFor(err) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	} else {
		logger.DebugContext(ctx, "Request rejected", log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	}
	resp.Write(w)
}
