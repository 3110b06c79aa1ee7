package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/pgcatalog/internal/database"
	"github.com/koustreak/pgcatalog/internal/errs"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// primaryKeyBody carries the lookup status so clients can tell a table
// without a primary key from one whose key has no sequence.
type primaryKeyBody struct {
	Status   string  `json:"status"`
	Column   string  `json:"column,omitempty"`
	Sequence *string `json:"sequence"`
}

type serverBody struct {
	Version                   int  `json:"version"`
	InsertReturning           bool `json:"insert_returning"`
	StandardConformingStrings bool `json:"standard_conforming_strings"`
	TableAliasLength          int  `json:"table_alias_length"`
	IndexKeyLimit             int  `json:"index_key_limit"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.adapter.Session().(database.Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) serverInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	version, err := s.adapter.ServerVersion(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	aliasLength, err := s.adapter.TableAliasLength(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, serverBody{
		Version:                   version,
		InsertReturning:           s.adapter.SupportsInsertWithReturning(ctx),
		StandardConformingStrings: s.adapter.SupportsStandardConformingStrings(ctx),
		TableAliasLength:          aliasLength,
		IndexKeyLimit:             s.adapter.IndexKeyLimit(ctx),
	})
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.inspector.ListTables(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) describeTable(w http.ResponseWriter, r *http.Request) {
	table, ok := s.tableParam(w, r)
	if !ok {
		return
	}
	t, err := s.inspector.InspectTable(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) columns(w http.ResponseWriter, r *http.Request) {
	table, ok := s.tableParam(w, r)
	if !ok {
		return
	}
	cols, err := s.adapter.Columns(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) indexes(w http.ResponseWriter, r *http.Request) {
	table, ok := s.tableParam(w, r)
	if !ok {
		return
	}
	idx, err := s.adapter.Indexes(r.Context(), table)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idx)
}

func (s *Server) primaryKey(w http.ResponseWriter, r *http.Request) {
	table, ok := s.tableParam(w, r)
	if !ok {
		return
	}
	res := s.adapter.ResolvePrimaryKeyAndSequence(r.Context(), table)
	if res.Err != nil {
		s.writeError(w, r, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, primaryKeyBody{
		Status:   res.Status.String(),
		Column:   res.PrimaryKey.Column,
		Sequence: res.PrimaryKey.Sequence,
	})
}

func (s *Server) tableParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	table, err := url.PathUnescape(chi.URLParam(r, "table"))
	if err != nil || table == "" {
		s.writeError(w, r, errs.New(errs.ErrKindMalformedIdentifier, "invalid table name in path"))
		return "", false
	}
	return table, true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{"path": r.URL.Path})
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindMalformedIdentifier, errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindUnsupportedType:
		return http.StatusUnprocessableEntity
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConnectionFailed:
		return http.StatusServiceUnavailable
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
