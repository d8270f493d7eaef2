package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/roniherschmann/linkgate/internal/core"
)

func (rt *Router) mountAdmin(r chi.Router) {
	r.Get("/login", rt.handleLoginPage)
	r.Post("/login", rt.handleLogin)
	r.Get("/logout", rt.handleLogout)

	r.Route("/api", func(r chi.Router) {
		r.Use(rt.requireAdmin)
		r.Get("/stats", rt.handleAdminStats)
		r.Get("/links", rt.handleListLinks)
		r.Get("/links/{code}/visits", rt.handleLinkVisits)
		r.Delete("/links/{code}", rt.handleDeleteLink)
		r.Post("/links/{code}/toggle", rt.handleToggleLink)
		r.Get("/ads", rt.handleListAds)
		r.Post("/ads", rt.handleCreateAd)
		r.Put("/ads/{id}", rt.handleUpdateAd)
		r.Delete("/ads/{id}", rt.handleDeleteAd)
	})
}

// requireAdmin accepts either a logged-in admin session or the static bearer token.
func (rt *Router) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rt.bearerOK(r) {
			next.ServeHTTP(w, r)
			return
		}
		_, ok, err := rt.admins.Username(r.Context(), sessionID(r))
		if err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("admin session lookup")
		}
		if !ok {
			writeError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rt *Router) bearerOK(r *http.Request) bool {
	if rt.cfg.AdminToken == "" {
		return false
	}
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return found && subtle.ConstantTimeCompare([]byte(token), []byte(rt.cfg.AdminToken)) == 1
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (rt *Router) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "login", loginPage{})
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	isJSON := strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")

	var req loginReq
	if isJSON {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, "invalid json", http.StatusBadRequest)
			return
		}
	} else {
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	}

	if err := rt.validate.Struct(req); err != nil {
		rt.loginFailed(w, r, isJSON, req.Username)
		return
	}
	if err := rt.svc.Authenticate(r.Context(), req.Username, req.Password); err != nil {
		if !errors.Is(err, core.ErrUnauthorized) {
			hlog.FromRequest(r).Error().Err(err).Msg("admin login")
		}
		rt.loginFailed(w, r, isJSON, req.Username)
		return
	}
	if err := rt.admins.Login(r.Context(), sessionID(r), req.Username); err != nil {
		rt.internalError(w, r, err, "admin login")
		return
	}

	hlog.FromRequest(r).Info().Str("username", req.Username).Msg("admin logged in")
	if isJSON {
		writeJSON(w, map[string]any{"success": true}, http.StatusOK)
		return
	}
	http.Redirect(w, r, "/admin/api/stats", http.StatusSeeOther)
}

func (rt *Router) loginFailed(w http.ResponseWriter, r *http.Request, isJSON bool, username string) {
	hlog.FromRequest(r).Info().Str("username", username).Msg("admin login rejected")
	if isJSON {
		writeJSON(w, map[string]any{"success": false, "error": "invalid username or password"}, http.StatusUnauthorized)
		return
	}
	render(w, r, http.StatusUnauthorized, "login", loginPage{Error: "invalid username or password"})
}

func (rt *Router) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := rt.admins.Logout(r.Context(), sessionID(r)); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("admin logout")
	}
	http.Redirect(w, r, "/admin/login", http.StatusFound)
}

func (rt *Router) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, rt.svc.Stats(r.Context()), http.StatusOK)
}

func (rt *Router) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := rt.svc.Links(r.Context())
	if err != nil {
		rt.internalError(w, r, err, "list links")
		return
	}
	writeJSON(w, links, http.StatusOK)
}

func (rt *Router) handleLinkVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := rt.svc.Visits(r.Context(), chi.URLParam(r, "code"))
	if core.IsNotFound(err) {
		writeError(w, "link not found", http.StatusNotFound)
		return
	}
	if err != nil {
		rt.internalError(w, r, err, "list visits")
		return
	}
	writeJSON(w, visits, http.StatusOK)
}

func (rt *Router) handleDeleteLink(w http.ResponseWriter, r *http.Request) {
	err := rt.svc.Delete(r.Context(), chi.URLParam(r, "code"))
	if core.IsNotFound(err) {
		writeError(w, "link not found", http.StatusNotFound)
		return
	}
	if err != nil {
		rt.internalError(w, r, err, "delete link")
		return
	}
	writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

func (rt *Router) handleToggleLink(w http.ResponseWriter, r *http.Request) {
	link, err := rt.svc.ToggleActive(r.Context(), chi.URLParam(r, "code"))
	if core.IsNotFound(err) {
		writeError(w, "link not found", http.StatusNotFound)
		return
	}
	if err != nil {
		rt.internalError(w, r, err, "toggle link")
		return
	}
	writeJSON(w, link, http.StatusOK)
}

type adReq struct {
	AdType    string `json:"ad_type" validate:"required,max=32"`
	AdContent string `json:"ad_content" validate:"max=20000"`
	Position  int    `json:"position" validate:"min=1,max=3"`
	IsActive  *bool  `json:"is_active"`
}

type adPatchReq struct {
	AdType    *string `json:"ad_type" validate:"omitempty,min=1,max=32"`
	AdContent *string `json:"ad_content" validate:"omitempty,max=20000"`
	Position  *int    `json:"position" validate:"omitempty,min=1,max=3"`
	IsActive  *bool   `json:"is_active"`
}

func (rt *Router) handleListAds(w http.ResponseWriter, r *http.Request) {
	ads, err := rt.svc.Ads(r.Context())
	if err != nil {
		rt.internalError(w, r, err, "list ads")
		return
	}
	writeJSON(w, ads, http.StatusOK)
}

func (rt *Router) handleCreateAd(w http.ResponseWriter, r *http.Request) {
	req := adReq{Position: 1}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ad := core.Ad{AdType: req.AdType, AdContent: req.AdContent, Position: req.Position, IsActive: true}
	if req.IsActive != nil {
		ad.IsActive = *req.IsActive
	}
	created, err := rt.svc.CreateAd(r.Context(), ad)
	if err != nil {
		rt.internalError(w, r, err, "create ad")
		return
	}
	writeJSON(w, created, http.StatusCreated)
}

func (rt *Router) handleUpdateAd(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "ad not found", http.StatusNotFound)
		return
	}
	var req adPatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := rt.validate.Struct(req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ad, err := rt.svc.UpdateAd(r.Context(), id, core.AdPatch(req))
	if core.IsNotFound(err) {
		writeError(w, "ad not found", http.StatusNotFound)
		return
	}
	if err != nil {
		rt.internalError(w, r, err, "update ad")
		return
	}
	writeJSON(w, ad, http.StatusOK)
}

func (rt *Router) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, "ad not found", http.StatusNotFound)
		return
	}
	if err := rt.svc.DeleteAd(r.Context(), id); err != nil {
		rt.internalError(w, r, err, "delete ad")
		return
	}
	writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
}

func (rt *Router) internalError(w http.ResponseWriter, r *http.Request, err error, op string) {
	hlog.FromRequest(r).Error().Err(err).Str("op", op).Msg("admin api")
	writeError(w, "internal error", http.StatusInternalServerError)
}
