// Package api exposes the LMS resources as typed methods over a
// [gateway.Gateway].
//
// Reads go through the gateway's response cache, so repeated lookups of the
// profile, the course list, a course or the enrollment list are served
// locally while fresh. Writes invalidate what they affect.
//
//	client := api.New(gw)
//	courses, err := client.Courses(ctx)
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cyberedpro/cybered/pkg/gateway"
)

// Client is a typed view over the gateway.
type Client struct {
	gw *gateway.Gateway
}

// New returns a Client issuing calls through gw.
func New(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

// Gateway returns the underlying gateway.
func (c *Client) Gateway() *gateway.Gateway { return c.gw }

func get[T any](ctx context.Context, gw *gateway.Gateway, endpoint string) (*T, error) {
	var v T
	if err := gw.Get(ctx, endpoint, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func list[T any](ctx context.Context, gw *gateway.Gateway, endpoint string) ([]T, error) {
	var v []T
	if err := gw.Get(ctx, endpoint, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func send[T any](ctx context.Context, gw *gateway.Gateway, method, endpoint string, body any) (*T, error) {
	data, err := gw.Call(ctx, endpoint, method, body, false)
	if err != nil {
		return nil, err
	}
	var v T
	if err := gateway.Decode(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func remove(ctx context.Context, gw *gateway.Gateway, endpoint string) error {
	_, err := gw.Call(ctx, endpoint, http.MethodDelete, nil, false)
	return err
}

// =============================================================================
// Users
// =============================================================================

// Register creates an account.
func (c *Client) Register(ctx context.Context, r Registration) (*User, error) {
	return send[User](ctx, c.gw, http.MethodPost, "/users/register", r)
}

// Login exchanges credentials for an access token. The token is returned,
// not stored; callers persist it in their session store.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	body := map[string]string{"username": email, "password": password}
	return send[Token](ctx, c.gw, http.MethodPost, "/users/login", body)
}

// Logout drops every cached response so nothing from the previous user
// survives.
func (c *Client) Logout(ctx context.Context) error {
	return c.gw.InvalidateAll(ctx)
}

// CurrentUser returns the authenticated user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	return get[User](ctx, c.gw, "/users/me")
}

// UpdateCurrentUser changes the authenticated user's profile.
func (c *Client) UpdateCurrentUser(ctx context.Context, u UserUpdate) (*User, error) {
	return send[User](ctx, c.gw, http.MethodPut, "/users/me", u)
}

// Users lists all users. Admin only.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	return list[User](ctx, c.gw, "/users/")
}

// User returns one user.
func (c *Client) User(ctx context.Context, id int) (*User, error) {
	return get[User](ctx, c.gw, fmt.Sprintf("/users/%d", id))
}

// UpdateUser changes a user. Admin only.
func (c *Client) UpdateUser(ctx context.Context, id int, u UserUpdate) (*User, error) {
	return send[User](ctx, c.gw, http.MethodPut, fmt.Sprintf("/users/%d", id), u)
}

// DeleteUser removes a user. Admin only.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return remove(ctx, c.gw, fmt.Sprintf("/users/%d", id))
}

// =============================================================================
// Courses
// =============================================================================

// Courses lists the published courses.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	return list[Course](ctx, c.gw, "/courses/")
}

// CreateCourse creates a course.
func (c *Client) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	return send[Course](ctx, c.gw, http.MethodPost, "/courses/", in)
}

// Course returns one course with its modules.
func (c *Client) Course(ctx context.Context, id int) (*Course, error) {
	return get[Course](ctx, c.gw, fmt.Sprintf("/courses/%d", id))
}

// UpdateCourse changes a course.
func (c *Client) UpdateCourse(ctx context.Context, id int, in CourseInput) (*Course, error) {
	return send[Course](ctx, c.gw, http.MethodPut, fmt.Sprintf("/courses/%d", id), in)
}

// DeleteCourse removes a course.
func (c *Client) DeleteCourse(ctx context.Context, id int) error {
	return remove(ctx, c.gw, fmt.Sprintf("/courses/%d", id))
}

// CourseModules lists a course's modules.
func (c *Client) CourseModules(ctx context.Context, courseID int) ([]Module, error) {
	return list[Module](ctx, c.gw, fmt.Sprintf("/courses/%d/modules", courseID))
}

// AddCourseModule adds a module to a course.
func (c *Client) AddCourseModule(ctx context.Context, courseID int, in ModuleInput) (*Module, error) {
	return send[Module](ctx, c.gw, http.MethodPost, fmt.Sprintf("/courses/%d/modules", courseID), in)
}

// ModuleLessons lists a module's lessons.
func (c *Client) ModuleLessons(ctx context.Context, moduleID int) ([]Lesson, error) {
	return list[Lesson](ctx, c.gw, fmt.Sprintf("/modules/%d/lessons", moduleID))
}

// AddModuleLesson adds a lesson to a module.
func (c *Client) AddModuleLesson(ctx context.Context, moduleID int, in LessonInput) (*Lesson, error) {
	return send[Lesson](ctx, c.gw, http.MethodPost, fmt.Sprintf("/modules/%d/lessons", moduleID), in)
}

// =============================================================================
// Enrollments
// =============================================================================

// Enrollments lists the authenticated user's enrollments.
func (c *Client) Enrollments(ctx context.Context) ([]Enrollment, error) {
	return list[Enrollment](ctx, c.gw, "/enrollments/")
}

// CreateEnrollment enrolls a user in a course.
func (c *Client) CreateEnrollment(ctx context.Context, in EnrollmentInput) (*Enrollment, error) {
	return send[Enrollment](ctx, c.gw, http.MethodPost, "/enrollments/", in)
}

// Enrollment returns one enrollment.
func (c *Client) Enrollment(ctx context.Context, id int) (*Enrollment, error) {
	return get[Enrollment](ctx, c.gw, fmt.Sprintf("/enrollments/%d", id))
}

// UpdateEnrollment changes an enrollment's status or progress.
func (c *Client) UpdateEnrollment(ctx context.Context, id int, in EnrollmentInput) (*Enrollment, error) {
	return send[Enrollment](ctx, c.gw, http.MethodPut, fmt.Sprintf("/enrollments/%d", id), in)
}

// DeleteEnrollment removes an enrollment.
func (c *Client) DeleteEnrollment(ctx context.Context, id int) error {
	return remove(ctx, c.gw, fmt.Sprintf("/enrollments/%d", id))
}

// =============================================================================
// Assessments
// =============================================================================

// Assessments lists the assessments.
func (c *Client) Assessments(ctx context.Context) ([]Assessment, error) {
	return list[Assessment](ctx, c.gw, "/assessments/")
}

// CreateAssessment creates an assessment.
func (c *Client) CreateAssessment(ctx context.Context, in AssessmentInput) (*Assessment, error) {
	return send[Assessment](ctx, c.gw, http.MethodPost, "/assessments/", in)
}

// Assessment returns one assessment with its questions.
func (c *Client) Assessment(ctx context.Context, id int) (*Assessment, error) {
	return get[Assessment](ctx, c.gw, fmt.Sprintf("/assessments/%d", id))
}

// UpdateAssessment changes an assessment.
func (c *Client) UpdateAssessment(ctx context.Context, id int, in AssessmentInput) (*Assessment, error) {
	return send[Assessment](ctx, c.gw, http.MethodPut, fmt.Sprintf("/assessments/%d", id), in)
}

// DeleteAssessment removes an assessment.
func (c *Client) DeleteAssessment(ctx context.Context, id int) error {
	return remove(ctx, c.gw, fmt.Sprintf("/assessments/%d", id))
}

// StartAssessment begins an attempt.
func (c *Client) StartAssessment(ctx context.Context, id int) (*Attempt, error) {
	return send[Attempt](ctx, c.gw, http.MethodPost, fmt.Sprintf("/assessments/%d/take", id), nil)
}

// SubmitAssessment submits answers for grading.
func (c *Client) SubmitAssessment(ctx context.Context, id int, answers []UserAnswer) (*Attempt, error) {
	body := struct {
		Answers []UserAnswer `json:"answers"`
	}{answers}
	return send[Attempt](ctx, c.gw, http.MethodPost, fmt.Sprintf("/assessments/%d/submit", id), body)
}

// =============================================================================
// Forums
// =============================================================================

// ForumTopics lists the discussion topics.
func (c *Client) ForumTopics(ctx context.Context) ([]ForumTopic, error) {
	return list[ForumTopic](ctx, c.gw, "/forums/topics")
}

// CreateForumTopic opens a topic.
func (c *Client) CreateForumTopic(ctx context.Context, in TopicInput) (*ForumTopic, error) {
	return send[ForumTopic](ctx, c.gw, http.MethodPost, "/forums/topics", in)
}

// ForumTopic returns one topic with its replies.
func (c *Client) ForumTopic(ctx context.Context, id int) (*ForumTopic, error) {
	return get[ForumTopic](ctx, c.gw, fmt.Sprintf("/forums/topics/%d", id))
}

// AddForumReply replies to a topic.
func (c *Client) AddForumReply(ctx context.Context, topicID int, content string) (*ForumReply, error) {
	body := map[string]string{"content": content}
	return send[ForumReply](ctx, c.gw, http.MethodPost, fmt.Sprintf("/forums/topics/%d/replies", topicID), body)
}

// =============================================================================
// Progress
// =============================================================================

// CourseProgress returns the user's progress through a course.
func (c *Client) CourseProgress(ctx context.Context, courseID int) (*CourseProgress, error) {
	return get[CourseProgress](ctx, c.gw, fmt.Sprintf("/progress/courses/%d", courseID))
}

// CompleteLesson marks a lesson complete.
func (c *Client) CompleteLesson(ctx context.Context, lessonID int) (*LessonCompletion, error) {
	return send[LessonCompletion](ctx, c.gw, http.MethodPost, fmt.Sprintf("/progress/lessons/%d", lessonID), nil)
}

// AssessmentResults lists the user's assessment history.
func (c *Client) AssessmentResults(ctx context.Context) ([]AssessmentResult, error) {
	return list[AssessmentResult](ctx, c.gw, "/progress/assessments")
}
