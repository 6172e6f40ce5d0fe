package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/page"
	"github.com/matzehuels/sseqchart/pkg/render"
)

// maxBody bounds message payloads.
const maxBody = 8 << 20

type result struct {
	UUID    string      `json:"uuid,omitempty"`
	Cmd     string      `json:"cmd"`
	OK      bool        `json:"ok"`
	Code    errors.Code `json:"code,omitempty"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"error,omitempty"`
}

func (r *result) setError(err error) {
	r.Code = errors.GetCode(err)
	r.Field = errors.GetField(err)
	r.Message = errors.UserMessage(err)
}

type errorBody struct {
	Code    errors.Code `json:"code,omitempty"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{
		Code:    errors.GetCode(err),
		Field:   errors.GetField(err),
		Message: errors.UserMessage(err),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.count()})
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	var data []byte
	err := s.disp.View(func(c *chart.Chart) error {
		var err error
		data, err = json.Marshal(c)
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// handleMessages applies one message or a JSON array of messages. The
// response lists the outcome of each; the status is 200 when all were
// accepted and 422 otherwise.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	results, err := s.apply(r.Context(), data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status := http.StatusOK
	for _, res := range results {
		if !res.OK {
			status = http.StatusUnprocessableEntity
			break
		}
	}
	writeJSON(w, status, map[string]any{"results": results})
}

type drawResponse struct {
	Page    string   `json:"page"`
	Classes []string `json:"classes"`
	Edges   []string `json:"edges"`
}

// handleDraw lists the uuids drawn for ?page= inside the box given by
// xmin, xmax, ymin and ymax. Missing bounds fall back to the chart ranges.
func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	q, err := parseView(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := drawResponse{Page: q.page.String(), Classes: []string{}, Edges: []string{}}
	_ = s.disp.View(func(c *chart.Chart) error {
		box := q.box(c)
		classes, edges := c.ElementsToDraw(q.page, box[0], box[1], box[2], box[3])
		for _, cl := range classes {
			resp.Classes = append(resp.Classes, cl.UUID())
		}
		for _, e := range edges {
			resp.Edges = append(resp.Edges, e.UUID())
		}
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

// handleRender renders the chart for ?page= in ?format= (dot, svg, pdf, png).
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q, err := parseView(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "svg"
	}
	if err := errors.ValidateFormat(format, render.Formats...); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var dot string
	err = s.disp.View(func(c *chart.Chart) error {
		var err error
		dot, err = render.ToDOT(c, render.Options{Page: q.page, Box: q.box(c), Detailed: q.detailed})
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	ctx := r.Context()
	start := time.Now()
	out, err := render.Render(ctx, dot, format, 1)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errors.ErrCodeUnsupported) {
			status = http.StatusNotImplemented
		}
		writeError(w, status, err)
		return
	}
	s.logger.Debug("rendered", "format", format, "page", q.page, "bytes", len(out), "took", time.Since(start))
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write(out)
}

var contentTypes = map[string]string{
	"dot": "text/vnd.graphviz",
	"svg": "image/svg+xml",
	"pdf": "application/pdf",
	"png": "image/png",
}

type viewQuery struct {
	page     page.Range
	bounds   [4]*float64
	detailed bool
}

func parseView(r *http.Request) (viewQuery, error) {
	v := r.URL.Query()
	q := viewQuery{page: page.Range{2, 2}}
	if p := v.Get("page"); p != "" {
		rng, err := page.ParseRange(p)
		if err != nil {
			return q, err
		}
		q.page = rng
	}
	for i, name := range []string{"xmin", "xmax", "ymin", "ymax"} {
		raw := v.Get(name)
		if raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, errors.Wrap(errors.ErrCodeInvalidInput, err, "not a number").WithField(name)
		}
		q.bounds[i] = &f
	}
	q.detailed, _ = strconv.ParseBool(v.Get("detailed"))
	return q, nil
}

// box returns [xmin, xmax, ymin, ymax], filling missing bounds from the
// chart's current ranges.
func (q viewQuery) box(c *chart.Chart) [4]float64 {
	out := [4]float64{c.XRange[0], c.XRange[1], c.YRange[0], c.YRange[1]}
	for i, b := range q.bounds {
		if b != nil {
			out[i] = *b
		}
	}
	return out
}
