package httpapi

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/roniherschmann/linkgate/internal/core"
)

// gate serves the redirect gate under one route prefix.
type gate struct {
	*Router
	prefix string
}

func (g *gate) visitor(r *http.Request) core.Visitor {
	return core.Visitor{
		SessionID: sessionID(r),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referrer:  r.Referer(),
	}
}

func (g *gate) entryURL(code string) string { return g.prefix + "/" + code }

func (g *gate) stepURL(code string, step int) string {
	return g.entryURL(code) + "/step/" + strconv.Itoa(step)
}

func (g *gate) handleEnter(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	view, err := g.svc.Enter(r.Context(), code, g.visitor(r))
	switch {
	case core.IsNotFound(err):
		http.Error(w, "link not found", http.StatusNotFound)
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Str("code", code).Msg("gate enter")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	g.renderStep(w, r, view)
}

func (g *gate) handleStep(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		http.Error(w, "invalid step", http.StatusBadRequest)
		return
	}

	res, err := g.svc.Advance(r.Context(), code, step, g.visitor(r))
	var tooFast *core.TooFastError
	switch {
	case err == nil:
	case errors.Is(err, core.ErrInvalidStep):
		http.Error(w, "invalid step", http.StatusBadRequest)
		return
	case core.IsNotFound(err):
		http.Error(w, "link not found", http.StatusNotFound)
		return
	case core.IsRestart(err):
		http.Redirect(w, r, g.entryURL(code), http.StatusFound)
		return
	case errors.As(err, &tooFast):
		render(w, r, http.StatusBadRequest, "toofast", tooFastPage{
			Step:        tooFast.Step,
			WaitSeconds: int(math.Ceil(tooFast.Wait.Seconds())),
			RetryURL:    g.stepURL(code, tooFast.Step),
		})
		return
	default:
		hlog.FromRequest(r).Error().Err(err).Str("code", code).Int("step", step).Msg("gate advance")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if res.View == nil {
		http.Redirect(w, r, res.Destination, http.StatusFound)
		return
	}
	g.renderStep(w, r, res.View)
}

func (g *gate) renderStep(w http.ResponseWriter, r *http.Request, v *core.StepView) {
	page := stepPage{
		Step:        v.Step,
		Steps:       []int{1, 2, 3},
		WaitSeconds: int(g.cfg.GateStepDwell.Seconds()),
		NextURL:     g.stepURL(v.Code, v.Step+1),
	}
	if v.Ad != nil {
		page.Ad = &adView{AdType: v.Ad.AdType, Content: template.HTML(v.Ad.AdContent)}
	}
	w.Header().Set("Cache-Control", "no-store")
	render(w, r, http.StatusOK, "step", page)
}
