package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/electwix/db-catalogue/internal/catalogue"
	"github.com/electwix/db-catalogue/internal/compiler"
	"github.com/electwix/db-catalogue/internal/data"
	"github.com/electwix/db-catalogue/internal/logging"
	"github.com/electwix/db-catalogue/internal/schema/diagnostic"
	"github.com/electwix/db-catalogue/internal/schema/model"
)

// MaxBodyBytes caps the size of a request body.
const MaxBodyBytes = 1 << 20

const (
	statusOK    = "OK"
	statusError = "ERROR"
)

// Handlers serves the API endpoints.
type Handlers struct {
	compiler  *compiler.Compiler
	catalogue *catalogue.Catalogue
	data      *data.Engine
	logger    logging.Logger
}

// NewHandlers creates handlers over comp, cat and the row engine eng.
func NewHandlers(comp *compiler.Compiler, cat *catalogue.Catalogue, eng *data.Engine, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handlers{compiler: comp, catalogue: cat, data: eng, logger: logger}
}

type schemaRequest struct {
	Schema *string `json:"schema"`
}

type queryRequest struct {
	Query *string `json:"query"`
}

type errorResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Stage   string   `json:"stage,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

type schemaResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Models  []modelView `json:"models"`
}

type createdResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Tables  []string `json:"tables"`
}

type insertedResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Rows    int      `json:"rows"`
	Tables  []string `json:"tables"`
}

type rowsResponse struct {
	Table string     `json:"table"`
	Rows  []data.Row `json:"rows"`
}

type tablesResponse struct {
	Tables []tableView `json:"tables"`
}

type referenceView struct {
	Model string `json:"model"`
	Field string `json:"field"`
}

type fieldView struct {
	Name       string          `json:"name"`
	Type       model.BasicType `json:"type"`
	Nullable   bool            `json:"nullable"`
	Primary    bool            `json:"primary"`
	References *referenceView  `json:"references,omitempty"`
}

type modelView struct {
	Name   string      `json:"name"`
	Fields []fieldView `json:"fields"`
}

type columnView struct {
	Name     string          `json:"name"`
	Type     model.BasicType `json:"type"`
	Nullable bool            `json:"nullable"`
	Primary  bool            `json:"primary"`
}

type tableView struct {
	Name    string       `json:"name"`
	Columns []columnView `json:"columns"`
}

// PostSchema compiles the posted schema without touching the catalogue.
func (h *Handlers) PostSchema(w http.ResponseWriter, r *http.Request) {
	models, ok := h.compile(w, r)
	if !ok {
		return
	}
	views := make([]modelView, 0, len(models))
	for _, m := range models {
		views = append(views, newModelView(m))
	}
	writeJSON(w, http.StatusOK, schemaResponse{Status: statusOK, Message: "No errors found", Models: views})
}

// PostCatalogue compiles the posted schema and adds its models as tables.
func (h *Handlers) PostCatalogue(w http.ResponseWriter, r *http.Request) {
	models, ok := h.compile(w, r)
	if !ok {
		return
	}
	logger := logging.FromContext(r.Context())

	tables := catalogue.FromModels(models)
	if err := h.catalogue.AddTables(r.Context(), tables); err != nil {
		var exists *catalogue.TableExistsError
		if errors.As(err, &exists) {
			logger.Info("tables rejected", "table", exists.Name)
			writeJSON(w, http.StatusConflict, errorResponse{
				Status:  statusError,
				Message: fmt.Sprintf("Aborted. Table %s already exists", exists.Name),
			})
			return
		}
		logger.Error("add tables failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: statusError, Message: "Internal error"})
		return
	}

	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	logger.Info("tables created", "tables", names)
	writeJSON(w, http.StatusCreated, createdResponse{Status: statusOK, Message: "Tables created", Tables: names})
}

// ListTables returns every catalogue table in insertion order.
func (h *Handlers) ListTables(w http.ResponseWriter, _ *http.Request) {
	tables := h.catalogue.Tables()
	views := make([]tableView, 0, len(tables))
	for _, t := range tables {
		views = append(views, newTableView(t))
	}
	writeJSON(w, http.StatusOK, tablesResponse{Tables: views})
}

// GetTable returns the table named by the path.
func (h *Handlers) GetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	t, err := h.catalogue.Table(name)
	if err != nil {
		if errors.Is(err, catalogue.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Status:  statusError,
				Message: fmt.Sprintf("Table %s not found", name),
			})
			return
		}
		logging.FromContext(r.Context()).Error("lookup table failed", "table", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: statusError, Message: "Internal error"})
		return
	}
	writeJSON(w, http.StatusOK, newTableView(t))
}

// PostData executes the posted insert query.
func (h *Handlers) PostData(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}
	if req.Query == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "Body requires a 'query' field"})
		return
	}

	res, err := h.data.Exec(r.Context(), *req.Query)
	if err != nil {
		var (
			syntaxErr *data.SyntaxError
			unknown   *data.UnknownTableError
			rowErr    *data.RowError
			dupErr    *data.DuplicateKeyError
		)
		switch {
		case errors.As(err, &syntaxErr):
			logger.Info("query rejected", "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "Invalid query", Errors: []string{syntaxErr.Error()}})
		case errors.As(err, &unknown):
			writeJSON(w, http.StatusNotFound, errorResponse{
				Status:  statusError,
				Message: fmt.Sprintf("Table %s not found", unknown.Name),
			})
		case errors.As(err, &rowErr):
			logger.Info("row rejected", "error", err)
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "Invalid row", Errors: []string{rowErr.Error()}})
		case errors.As(err, &dupErr):
			logger.Info("row rejected", "error", err)
			writeJSON(w, http.StatusConflict, errorResponse{
				Status:  statusError,
				Message: fmt.Sprintf("Aborted. Duplicate primary key %s.%s = %s", dupErr.Table, dupErr.Column, dupErr.Key),
			})
		default:
			logger.Error("insert failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Status: statusError, Message: "Internal error"})
		}
		return
	}
	writeJSON(w, http.StatusCreated, insertedResponse{Status: statusOK, Message: "Rows inserted", Rows: res.Inserted, Tables: res.Tables})
}

// GetRows returns the rows of the table named by the path.
func (h *Handlers) GetRows(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rows, err := h.data.Rows(name)
	if err != nil {
		if errors.Is(err, catalogue.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{
				Status:  statusError,
				Message: fmt.Sprintf("Table %s not found", name),
			})
			return
		}
		logging.FromContext(r.Context()).Error("read rows failed", "table", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: statusError, Message: "Internal error"})
		return
	}
	writeJSON(w, http.StatusOK, rowsResponse{Table: name, Rows: rows})
}

// compile decodes the request and runs the compiler. When it returns false
// the response has been written.
func (h *Handlers) compile(w http.ResponseWriter, r *http.Request) ([]model.Model, bool) {
	logger := logging.FromContext(r.Context())

	var req schemaRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: fmt.Sprintf("Invalid request body: %v", err),
		})
		return nil, false
	}
	if req.Schema == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: statusError, Message: "Body requires a 'schema' field"})
		return nil, false
	}

	models, err := h.compiler.Compile(*req.Schema)
	if err != nil {
		var compileErr *compiler.Error
		if !errors.As(err, &compileErr) {
			logger.Error("compile failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Status: statusError, Message: "Internal error"})
			return nil, false
		}
		logger.Info("schema rejected", "stage", compileErr.Stage.String(), "diagnostics", len(compileErr.Diagnostics))
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: stageMessage(compileErr.Stage),
			Stage:   compileErr.Stage.String(),
			Errors:  compileErr.Messages(),
		})
		return nil, false
	}
	logger.Debug("schema accepted", "models", len(models))
	return models, true
}

func stageMessage(stage diagnostic.Stage) string {
	switch stage {
	case diagnostic.StageLexical:
		return "Lexer error"
	case diagnostic.StageSyntactic:
		return "Parser error"
	default:
		return "Semantic error"
	}
}

func newModelView(m model.Model) modelView {
	v := modelView{Name: m.Name, Fields: make([]fieldView, 0, len(m.Fields))}
	for _, f := range m.Fields {
		fv := fieldView{Name: f.Name, Type: f.Type, Nullable: f.Nullable, Primary: f.Primary}
		if f.References != nil {
			fv.References = &referenceView{Model: f.References.Model, Field: f.References.Field}
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}

func newTableView(t catalogue.Table) tableView {
	v := tableView{Name: t.Name, Columns: make([]columnView, 0, len(t.Columns))}
	for i, c := range t.Columns {
		v.Columns = append(v.Columns, columnView{
			Name:     c.Name,
			Type:     c.Type,
			Nullable: c.Nullable,
			Primary:  t.PrimaryKey != nil && *t.PrimaryKey == i,
		})
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
