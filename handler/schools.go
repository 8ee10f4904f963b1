package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"eduplatform-backend/entity"
	"eduplatform-backend/service"
)

func (h *Handler) schoolRoutes(r *mux.Router) {
	admins := []entity.Role{entity.RoleSuperAdmin, entity.RoleSchoolAdmin}

	handle(r, http.MethodGet, "/schools", h.listSchools, entity.RoleSuperAdmin)
	handle(r, http.MethodGet, "/schools/"+idPattern, h.getSchool, admins...)
	handle(r, http.MethodPatch, "/schools/"+idPattern, h.updateSchool, admins...)
	handle(r, http.MethodPost, "/schools/"+idPattern+"/students", h.onboardStudent, admins...)
	handle(r, http.MethodGet, "/schools/"+idPattern+"/students", h.listStudents, admins...)
	handle(r, http.MethodDelete, "/schools/"+idPattern+"/students/{studentID}", h.removeStudent, admins...)
}

func (h *Handler) onboardSchool(w http.ResponseWriter, r *http.Request) {
	var in service.OnboardSchoolInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.svc.Onboarding.OnboardSchool(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) listSchools(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := page(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	schools, err := h.svc.Schools.List(r.Context(), a, service.SchoolQuery{
		PaymentStatus: q.Get("payment_status"),
		Search:        q.Get("search"),
		Page:          p,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schools)
}

func (h *Handler) getSchool(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	school, err := h.svc.Schools.Get(r.Context(), a, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, school)
}

func (h *Handler) updateSchool(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.UpdateSchoolInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	school, err := h.svc.Schools.Update(r.Context(), a, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, school)
}

func (h *Handler) onboardStudent(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.OnboardStudentInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	in.SchoolID = id.Hex()

	res, err := h.svc.Schools.OnboardStudent(r.Context(), a, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := userQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	students, err := h.svc.Schools.ListStudents(r.Context(), a, id, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (h *Handler) removeStudent(w http.ResponseWriter, r *http.Request) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	studentID, err := pathID(r, "studentID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.svc.Schools.RemoveStudent(r.Context(), a, id, studentID); err != nil {
		writeError(w, r, err)
		return
	}
	writeNoContent(w)
}
