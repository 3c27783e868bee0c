package http

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/shanekizito/Thinkly/internal/app"
	"github.com/shanekizito/Thinkly/internal/auth"
	"github.com/shanekizito/Thinkly/internal/domain"
	"github.com/shanekizito/Thinkly/internal/gamification"
)

const defaultActivityLimit = 20

// APIHandler serves the authenticated REST endpoints.
type APIHandler struct {
	users      app.UserRepository
	game       *app.GamificationService
	challenges *app.ChallengeService
	courses    *app.CourseService
	settings   *app.SettingsService
}

func NewAPIHandler(users app.UserRepository, game *app.GamificationService, challenges *app.ChallengeService, courses *app.CourseService, settings *app.SettingsService) *APIHandler {
	return &APIHandler{users: users, game: game, challenges: challenges, courses: courses, settings: settings}
}

func (h *APIHandler) Register(r *mux.Router) {
	r.HandleFunc("/me", h.me).Methods(http.MethodGet)
	r.HandleFunc("/me/settings", h.updateSettings).Methods(http.MethodPatch)
	r.HandleFunc("/me/activity", h.activity).Methods(http.MethodGet)
	r.HandleFunc("/badges", h.badges).Methods(http.MethodGet)
	r.HandleFunc("/badges/sync", h.syncBadges).Methods(http.MethodPost)
	r.HandleFunc("/challenge/today", h.todayChallenge).Methods(http.MethodGet)
	r.HandleFunc("/challenge/today/answer", h.answerChallenge).Methods(http.MethodPost)
	r.HandleFunc("/courses", h.listCourses).Methods(http.MethodGet)
	r.HandleFunc("/courses", h.openCourse).Methods(http.MethodPost)
	r.HandleFunc("/courses/{id}", h.getCourse).Methods(http.MethodGet)
	r.HandleFunc("/courses/{id}", h.deleteCourse).Methods(http.MethodDelete)
	r.HandleFunc("/courses/{id}/lessons/{lessonId}/advance", h.advanceLesson).Methods(http.MethodPost)
}

type profile struct {
	domain.User
	LevelFromXP   int `json:"levelFromXp"`
	XPToNextLevel int `json:"xpToNextLevel"`
}

func (h *APIHandler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func profileOf(u domain.User) profile {
	return profile{
		User:          u,
		LevelFromXP:   gamification.LevelOf(u.XP),
		XPToNextLevel: gamification.XPToNextLevel(u.XP),
	}
}

func (h *APIHandler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in app.Settings
	if !decode(w, r, &in) {
		return
	}
	user, err := h.settings.Update(r.Context(), auth.UserID(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileOf(user))
}

func (h *APIHandler) activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be between 1 and 100"})
			return
		}
		limit = n
	}
	entries, err := h.game.Activity(r.Context(), auth.UserID(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.Activity{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type badgeView struct {
	gamification.BadgeDef
	Earned bool `json:"earned"`
}

func (h *APIHandler) badges(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	catalog := gamification.Catalog()
	out := make([]badgeView, 0, len(catalog))
	for _, def := range catalog {
		out = append(out, badgeView{BadgeDef: def, Earned: user.HasBadge(def.Slug)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) syncBadges(w http.ResponseWriter, r *http.Request) {
	added, err := h.game.SyncBadges(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if added == nil {
		added = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"added": added})
}

// challengeView hides the answer until the challenge is answered.
type challengeView struct {
	ID        string   `json:"id"`
	Date      string   `json:"date"`
	Question  string   `json:"question"`
	Options   []string `json:"options"`
	Reward    int      `json:"reward"`
	Topic     string   `json:"topic"`
	Completed bool     `json:"completed"`
	Answer    string   `json:"answer,omitempty"`
}

func viewOf(c domain.DailyChallenge) challengeView {
	v := challengeView{
		ID:        c.ID,
		Date:      c.Date,
		Question:  c.Question,
		Options:   c.Options,
		Reward:    c.Reward,
		Topic:     c.Topic,
		Completed: c.Completed,
	}
	if c.Completed {
		v.Answer = c.Answer
	}
	return v
}

func (h *APIHandler) todayChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := h.challenges.Today(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(c))
}

type answerRequest struct {
	Option string `json:"option"`
}

func (h *APIHandler) answerChallenge(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if !decode(w, r, &body) {
		return
	}
	if body.Option == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "option is required"})
		return
	}
	res, err := h.challenges.Submit(r.Context(), auth.UserID(r.Context()), body.Option)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *APIHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *APIHandler) openCourse(w http.ResponseWriter, r *http.Request) {
	var req domain.CourseRequest
	if !decode(w, r, &req) {
		return
	}
	course, created, err := h.courses.Open(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, course)
}

func (h *APIHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.Get(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *APIHandler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	if err := h.courses.Remove(r.Context(), auth.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type advanceRequest struct {
	Page    int      `json:"page"`
	Answers []string `json:"answers"`
}

func (h *APIHandler) advanceLesson(w http.ResponseWriter, r *http.Request) {
	var body advanceRequest
	if !decode(w, r, &body) {
		return
	}
	vars := mux.Vars(r)
	res, err := h.game.AdvanceLesson(r.Context(), auth.UserID(r.Context()), vars["id"], vars["lessonId"], body.Page, body.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
