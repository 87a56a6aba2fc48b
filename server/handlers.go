package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	vcschema "github.com/credkit/vcschema"
	"github.com/credkit/vcschema/editor"
	"github.com/credkit/vcschema/example"
	"github.com/credkit/vcschema/jsonschema"
	"github.com/credkit/vcschema/normalize"
)

const maxBodySize = 1 << 20

type issueResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

type sessionResponse struct {
	ID         string               `json:"id"`
	View       editor.View          `json:"view"`
	Form       vcschema.FormData    `json:"form"`
	Contexts   vcschema.Contexts    `json:"contexts"`
	Schema     *jsonschema.Document `json:"schema"`
	Example    *example.Credential  `json:"example"`
	Status     normalize.Status     `json:"status"`
	Normalized string               `json:"normalized,omitempty"`
	JSONInput  string               `json:"jsonInput,omitempty"`
	JSONError  string               `json:"jsonError,omitempty"`
	Warnings   []issueResponse      `json:"warnings,omitempty"`
}

func toSessionResponse(snap editor.Snapshot) sessionResponse {
	resp := sessionResponse{
		ID:         snap.ID,
		View:       snap.View,
		Form:       snap.Form,
		Contexts:   snap.Contexts,
		Schema:     snap.Schema,
		Example:    snap.Example,
		Status:     snap.Status,
		Normalized: snap.Normalized,
		JSONInput:  snap.JSONInput,
	}
	if snap.JSONError != nil {
		resp.JSONError = snap.JSONError.Error()
	}
	for _, is := range snap.Warnings {
		resp.Warnings = append(resp.Warnings, issueResponse{Code: is.Code, Message: is.Message, Field: is.Path, Details: is.Hint})
	}
	return resp
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := readBody(r)
	if err == nil && len(bytes.TrimSpace(body)) > 0 {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidBody, err.Error())
		return false
	}
	return true
}

// session resolves the {session} URL parameter, writing a 404 when unknown.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	id := chi.URLParam(r, "session")
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, ErrNotFound, fmt.Sprintf("session %s not found", id))
	}
	return sess, ok
}

func (s *Server) respond(w http.ResponseWriter, status int, sess *editor.Session) {
	writeJSON(w, status, toSessionResponse(sess.Snapshot()))
}

// mutate runs fn against the session and answers with the new state.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*editor.Session) error) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := fn(sess); err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, sess)
}

// createSession starts a session. The optional body is a schema document,
// JSON or YAML by Content-Type.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidBody, err.Error())
		return
	}
	opts := []editor.Option{editor.WithLogger(s.logger), editor.WithMetrics(s.metrics)}
	if s.checker != nil {
		opts = append(opts, editor.WithChecker(s.checker))
	}
	if len(bytes.TrimSpace(body)) > 0 {
		parse := vcschema.ParseSchema
		if ct := r.Header.Get("Content-Type"); ct == "application/yaml" || ct == "application/x-yaml" {
			parse = vcschema.ParseSchemaYAML
		}
		doc, err := parse(body)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		opts = append(opts, editor.WithSchema(doc))
	}
	opts = append(opts, s.opts...)

	sess, err := editor.New(opts...)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.mu.Lock()
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
	w.Header().Set("Location", "/sessions/"+sess.ID())
	s.respond(w, http.StatusCreated, sess)
}

// getSession returns the session state. With ?wait=true it first waits for
// the pending normalization check.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), s.wait)
		defer cancel()
		if err := sess.Wait(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, ErrUnavailable, "normalization did not settle: "+err.Error())
			return
		}
	}
	s.respond(w, http.StatusOK, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sess.ID())
	s.mu.Unlock()
	sess.Close()
	w.WriteHeader(http.StatusNoContent)
}

type addFieldRequest struct {
	Parent string                 `json:"parent"`
	Key    string                 `json:"key"`
	Field  *vcschema.FormProperty `json:"field"`
}

func (s *Server) addField(w http.ResponseWriter, r *http.Request) {
	var req addFieldRequest
	if !decode(w, r, &req) {
		return
	}
	var parent vcschema.Path
	if req.Parent != "" {
		p, err := vcschema.ParsePath(req.Parent)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		parent = p
	}
	s.mutate(w, r, func(sess *editor.Session) error {
		return sess.AddChild(parent, req.Key, req.Field)
	})
}

func (s *Server) updateField(w http.ResponseWriter, r *http.Request) {
	path, err := vcschema.ParsePath(chi.URLParam(r, "*"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidBody, err.Error())
		return
	}
	patch, err := decodePatch(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidBody, err.Error())
		return
	}
	s.mutate(w, r, func(sess *editor.Session) error { return sess.UpdateProperty(path, patch) })
}

func (s *Server) removeField(w http.ResponseWriter, r *http.Request) {
	path, err := vcschema.ParsePath(chi.URLParam(r, "*"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	s.mutate(w, r, func(sess *editor.Session) error { return sess.RemoveProperty(path) })
}

type metaRequest struct {
	Title   *string `json:"title"`
	Comment *string `json:"$comment"`
	AllowID *bool   `json:"allowId"`
}

func (s *Server) updateMeta(w http.ResponseWriter, r *http.Request) {
	var req metaRequest
	if !decode(w, r, &req) {
		return
	}
	s.mutate(w, r, func(sess *editor.Session) error {
		if req.Title != nil {
			sess.SetTitle(*req.Title)
		}
		if req.Comment != nil {
			sess.SetComment(*req.Comment)
		}
		if req.AllowID != nil {
			sess.SetAllowID(*req.AllowID)
		}
		return nil
	})
}

func (s *Server) addContext(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URI string `json:"uri"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mutate(w, r, func(sess *editor.Session) error { return sess.AddContext(req.URI) })
}

func (s *Server) addDevContext(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(sess *editor.Session) error {
		sess.AddDevContext()
		return nil
	})
}

func (s *Server) removeContext(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidBody, "context index must be an integer")
		return
	}
	s.mutate(w, r, func(sess *editor.Session) error {
		sess.RemoveContext(i)
		return nil
	})
}

// setJSON takes the raw JSON view text as the request body.
func (s *Server) setJSON(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrInvalidBody, err.Error())
		return
	}
	s.mutate(w, r, func(sess *editor.Session) error { return sess.SetJSONInput(string(body)) })
}

func (s *Server) toggleView(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(sess *editor.Session) error { return sess.ToggleView() })
}

type templateResponse struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	CreatedAt time.Time            `json:"createdAt"`
	Schema    *jsonschema.Document `json:"schema,omitempty"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	doc, err := sess.Submit()
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, templateResponse{Title: doc.Title, Schema: doc})
		return
	}
	t, err := s.store.Save(r.Context(), doc)
	if err != nil {
		s.logger.Error("save template", "session", sess.ID(), "error", err)
		writeError(w, http.StatusInternalServerError, ErrStorage, "failed to save template")
		return
	}
	w.Header().Set("Location", "/templates/"+t.ID)
	writeJSON(w, http.StatusCreated, templateResponse{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, Schema: t.Schema})
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, ErrUnavailable, "template store is not configured")
		return false
	}
	return true
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}
	list, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	items := make([]templateResponse, 0, len(list))
	for _, t := range list {
		items = append(items, templateResponse{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": items})
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	t, err := s.store.Get(r.Context(), chi.URLParam(r, "template"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, Schema: t.Schema})
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "template")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
