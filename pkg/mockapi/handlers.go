package mockapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/cyberedpro/cybered/pkg/api"
)

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// currentUserLocked returns the user the request authenticated as.
func (s *Server) currentUserLocked(r *http.Request) *api.User {
	token, _ := r.Context().Value(tokenKey{}).(string)
	return s.users[s.tokens[token]]
}

// =============================================================================
// Users
// =============================================================================

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in api.Registration
	if !decode(w, r, &in) {
		return
	}
	if in.Email == "" || in.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "Email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, in.Email) {
			writeError(w, http.StatusBadRequest, "Email already registered")
			return
		}
	}
	role := in.Role
	if role == "" {
		role = "student"
	}
	s.nextID++
	u := &api.User{ID: s.nextID, Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, Role: role, IsActive: true}
	s.users[u.ID] = u
	s.passwords[in.Email] = in.Password
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.Username == "" || in.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "Username and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.passwords[in.Username]; !ok || pw != in.Password {
		writeError(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	for _, u := range s.users {
		if u.Email == in.Username {
			writeJSON(w, http.StatusOK, api.Token{AccessToken: s.issueLocked(u.ID), TokenType: "bearer"})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Incorrect email or password")
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.currentUserLocked(r))
}

func (s *Server) updateMe(w http.ResponseWriter, r *http.Request) {
	var in api.UserUpdate
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.currentUserLocked(r)
	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	writeJSON(w, http.StatusOK, u)
}

// =============================================================================
// Courses
// =============================================================================

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, sortedValues(s.courses))
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	var in api.CourseInput
	if !decode(w, r, &in) {
		return
	}
	if in.Title == "" || in.DifficultyLevel == "" {
		writeError(w, http.StatusUnprocessableEntity, "Title and difficulty_level are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c := &api.Course{
		ID:                s.nextID,
		InstructorID:      s.currentUserLocked(r).ID,
		CreatedAt:         now(),
		Title:             in.Title,
		Description:       in.Description,
		CertificationType: in.CertificationType,
		DifficultyLevel:   in.DifficultyLevel,
		EstimatedDuration: in.EstimatedDuration,
	}
	if in.IsPublished != nil {
		c.IsPublished = *in.IsPublished
	}
	s.courses[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

// courseLocked resolves the {id} course, writing a 404 if it does not exist.
func (s *Server) courseLocked(w http.ResponseWriter, r *http.Request) *api.Course {
	id, ok := pathID(w, r)
	if !ok {
		return nil
	}
	c, ok := s.courses[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return nil
	}
	return c
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.courseLocked(w, r); c != nil {
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request) {
	var in api.CourseInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.courseLocked(w, r)
	if c == nil {
		return
	}
	if in.Title != "" {
		c.Title = in.Title
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if in.DifficultyLevel != "" {
		c.DifficultyLevel = in.DifficultyLevel
	}
	if in.EstimatedDuration != 0 {
		c.EstimatedDuration = in.EstimatedDuration
	}
	if in.IsPublished != nil {
		c.IsPublished = *in.IsPublished
	}
	c.UpdatedAt = now()
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.courseLocked(w, r)
	if c == nil {
		return
	}
	delete(s.courses, c.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.courseLocked(w, r)
	if c == nil {
		return
	}
	modules := c.Modules
	if modules == nil {
		modules = []api.Module{}
	}
	writeJSON(w, http.StatusOK, modules)
}

func (s *Server) addModule(w http.ResponseWriter, r *http.Request) {
	var in api.ModuleInput
	if !decode(w, r, &in) {
		return
	}
	if in.Title == "" {
		writeError(w, http.StatusUnprocessableEntity, "Title is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.courseLocked(w, r)
	if c == nil {
		return
	}
	s.nextID++
	m := api.Module{ID: s.nextID, CourseID: c.ID, Title: in.Title, Description: in.Description, Order: in.Order, CreatedAt: now()}
	c.Modules = append(c.Modules, m)
	writeJSON(w, http.StatusCreated, m)
}

// =============================================================================
// Enrollments
// =============================================================================

func (s *Server) listEnrollments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.currentUserLocked(r)
	out := []api.Enrollment{}
	for _, e := range sortedValues(s.enrollments) {
		if e.UserID == user.ID {
			out = append(out, e)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createEnrollment(w http.ResponseWriter, r *http.Request) {
	var in api.EnrollmentInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[in.CourseID]; !ok {
		writeError(w, http.StatusNotFound, "Course not found")
		return
	}
	userID := in.UserID
	if userID == 0 {
		userID = s.currentUserLocked(r).ID
	}
	for _, e := range s.enrollments {
		if e.UserID == userID && e.CourseID == in.CourseID {
			writeError(w, http.StatusBadRequest, "User already enrolled in this course")
			return
		}
	}
	s.nextID++
	e := &api.Enrollment{ID: s.nextID, UserID: userID, CourseID: in.CourseID, Status: "active", EnrolledAt: now()}
	s.enrollments[e.ID] = e
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) enrollmentLocked(w http.ResponseWriter, r *http.Request) *api.Enrollment {
	id, ok := pathID(w, r)
	if !ok {
		return nil
	}
	e, ok := s.enrollments[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Enrollment not found")
		return nil
	}
	return e
}

func (s *Server) getEnrollment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.enrollmentLocked(w, r); e != nil {
		writeJSON(w, http.StatusOK, e)
	}
}

func (s *Server) updateEnrollment(w http.ResponseWriter, r *http.Request) {
	var in api.EnrollmentInput
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.enrollmentLocked(w, r)
	if e == nil {
		return
	}
	if in.Status != "" {
		e.Status = in.Status
	}
	if in.Progress != nil {
		e.Progress = *in.Progress
	}
	if e.Status == "completed" && e.CompletedAt == "" {
		e.CompletedAt = now()
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEnrollment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.enrollmentLocked(w, r)
	if e == nil {
		return
	}
	delete(s.enrollments, e.ID)
	w.WriteHeader(http.StatusNoContent)
}
