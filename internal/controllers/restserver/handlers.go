package restserver

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/chrissnell/haldane/internal/deco"
	"github.com/chrissnell/haldane/internal/storage/sqlite"
	"github.com/chrissnell/haldane/pkg/responseformat"
	"github.com/gorilla/mux"
)

// maxQueryDepth bounds /ndl queries to the sensor's rated range.
const maxQueryDepth = 140.0

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		h.controller.logger.Errorf("error writing response to %s: %v", req.URL.Path, err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, err error) {
	if err := h.formatter.WriteStatus(w, req, status, ErrorResponse{Error: err.Error()}, nil); err != nil {
		h.controller.logger.Errorf("error writing response to %s: %v", req.URL.Path, err)
	}
}

// GetLatest returns the most recent reading of the running session.
func (h *Handlers) GetLatest(w http.ResponseWriter, req *http.Request) {
	r, ok := h.controller.deps.Status.Latest()
	if !ok {
		h.fail(w, req, http.StatusNotFound, errors.New("no samples yet"))
		return
	}
	h.write(w, req, r)
}

// GetTissues returns the compartment snapshot of the running session.
func (h *Handlers) GetTissues(w http.ResponseWriter, req *http.Request) {
	r, ok := h.controller.deps.Status.Latest()
	if !ok {
		h.fail(w, req, http.StatusNotFound, errors.New("no samples yet"))
		return
	}
	h.write(w, req, TissuesResponse{
		SessionID: r.SessionID,
		Elapsed:   r.Elapsed,
		Tissues:   h.controller.deps.Status.Tissues(),
	})
}

// GetNDL computes the NDL of a square profile at depth for minutes, starting
// from surface-saturated tissues.
func (h *Handlers) GetNDL(w http.ResponseWriter, req *http.Request) {
	depth, err := queryFloat(req, "depth")
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, err)
		return
	}
	minutes, err := queryFloat(req, "minutes")
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, err)
		return
	}
	if depth < 0 || depth > maxQueryDepth {
		h.fail(w, req, http.StatusBadRequest, fmt.Errorf("depth must be between 0 and %.0f m", maxQueryDepth))
		return
	}
	if minutes <= 0 {
		h.fail(w, req, http.StatusBadRequest, errors.New("minutes must be positive"))
		return
	}

	model, err := deco.New(h.controller.deps.ModelKind, h.controller.logger)
	if err != nil {
		h.fail(w, req, http.StatusInternalServerError, err)
		return
	}
	model.Reset(deco.AtmosphericPressure, 0)
	if err := model.Update(deco.AtmosphericPressure+depth/deco.MetresPerBar, minutes); err != nil {
		h.fail(w, req, http.StatusInternalServerError, err)
		return
	}
	ndl, err := model.NDL()
	if err != nil {
		h.fail(w, req, http.StatusInternalServerError, err)
		return
	}

	resp := NDLResponse{
		Depth:     depth,
		Minutes:   minutes,
		NDL:       ndl,
		NDLText:   strconv.Itoa(ndl),
		Unlimited: deco.Unlimited(ndl),
		Ceiling:   model.Ceiling(),
	}
	if resp.Unlimited {
		resp.NDLText = "N/A"
	}
	h.write(w, req, resp)
}

// GetDives lists the logbook.
func (h *Handlers) GetDives(w http.ResponseWriter, req *http.Request) {
	dives, err := h.controller.deps.Logbook.ListDives(req.Context())
	if err != nil {
		h.fail(w, req, http.StatusInternalServerError, err)
		return
	}
	if dives == nil {
		dives = []sqlite.Dive{}
	}
	h.write(w, req, dives)
}

// GetDiveSamples returns every sample of one logged dive.
func (h *Handlers) GetDiveSamples(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	samples, err := h.controller.deps.Logbook.Samples(req.Context(), id)
	switch {
	case errors.Is(err, sqlite.ErrDiveNotFound):
		h.fail(w, req, http.StatusNotFound, err)
		return
	case err != nil:
		h.fail(w, req, http.StatusInternalServerError, err)
		return
	}
	h.write(w, req, samples)
}

func queryFloat(req *http.Request, name string) (float64, error) {
	s := req.URL.Query().Get(name)
	if s == "" {
		return 0, fmt.Errorf("missing %s parameter", name)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s parameter %q", name, s)
	}
	return v, nil
}
