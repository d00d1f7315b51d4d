package api

// Timestamps are kept as the ISO 8601 strings the API sends; the backend
// omits the zone offset, which time.Time cannot decode.

// User is an account as returned by the /users endpoints.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	IsActive  bool   `json:"is_active"`
}

// Registration is the payload for creating an account.
type Registration struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

// UserUpdate changes profile fields; empty fields are left unchanged.
type UserUpdate struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	Password  string `json:"password,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

// Token is the login response.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Course is a course with its modules.
type Course struct {
	ID                int      `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	CertificationType string   `json:"certification_type,omitempty"`
	DifficultyLevel   string   `json:"difficulty_level,omitempty"`
	EstimatedDuration int      `json:"estimated_duration,omitempty"`
	IsPublished       bool     `json:"is_published"`
	InstructorID      int      `json:"instructor_id,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
	Modules           []Module `json:"modules,omitempty"`
}

// CourseInput creates or updates a course; empty fields are omitted.
type CourseInput struct {
	Title             string `json:"title,omitempty"`
	Description       string `json:"description,omitempty"`
	CertificationType string `json:"certification_type,omitempty"`
	DifficultyLevel   string `json:"difficulty_level,omitempty"`
	EstimatedDuration int    `json:"estimated_duration,omitempty"`
	IsPublished       *bool  `json:"is_published,omitempty"`
}

// Module is a section of a course.
type Module struct {
	ID          int      `json:"id"`
	CourseID    int      `json:"course_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Order       int      `json:"order,omitempty"`
	IsPublished bool     `json:"is_published,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Lessons     []Lesson `json:"lessons,omitempty"`
}

// ModuleInput creates a module.
type ModuleInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order,omitempty"`
}

// Lesson is a unit of content within a module.
type Lesson struct {
	ID                   int    `json:"id"`
	ModuleID             int    `json:"module_id,omitempty"`
	Title                string `json:"title"`
	Content              string `json:"content,omitempty"`
	Order                int    `json:"order,omitempty"`
	EstimatedTimeMinutes int    `json:"estimated_time_minutes,omitempty"`
	IsPublished          bool   `json:"is_published,omitempty"`
}

// LessonInput creates a lesson.
type LessonInput struct {
	Title                string `json:"title"`
	Content              string `json:"content"`
	Order                int    `json:"order,omitempty"`
	EstimatedTimeMinutes int    `json:"estimated_time_minutes,omitempty"`
}

// Enrollment links a user to a course.
type Enrollment struct {
	ID          int     `json:"id"`
	UserID      int     `json:"user_id"`
	CourseID    int     `json:"course_id"`
	Status      string  `json:"status"`
	Progress    float64 `json:"progress"`
	EnrolledAt  string  `json:"enrolled_at,omitempty"`
	CompletedAt string  `json:"completed_at,omitempty"`
}

// EnrollmentInput creates or updates an enrollment.
type EnrollmentInput struct {
	UserID   int      `json:"user_id,omitempty"`
	CourseID int      `json:"course_id,omitempty"`
	Status   string   `json:"status,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

// Assessment is a quiz or exam attached to a course.
type Assessment struct {
	ID               int        `json:"id"`
	CourseID         int        `json:"course_id"`
	ModuleID         int        `json:"module_id,omitempty"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	TimeLimitMinutes int        `json:"time_limit_minutes,omitempty"`
	PassingScore     float64    `json:"passing_score"`
	IsPublished      bool       `json:"is_published"`
	CreatedAt        string     `json:"created_at,omitempty"`
	Questions        []Question `json:"questions,omitempty"`
}

// Question is one assessment question.
type Question struct {
	ID           int      `json:"id"`
	QuestionText string   `json:"question_text"`
	QuestionType string   `json:"question_type"`
	Points       float64  `json:"points"`
	Answers      []Answer `json:"answers,omitempty"`
}

// Answer is a candidate answer to a question.
type Answer struct {
	ID          int    `json:"id"`
	AnswerText  string `json:"answer_text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// AssessmentInput creates or updates an assessment.
type AssessmentInput struct {
	CourseID         int      `json:"course_id,omitempty"`
	ModuleID         int      `json:"module_id,omitempty"`
	Title            string   `json:"title,omitempty"`
	Description      string   `json:"description,omitempty"`
	TimeLimitMinutes int      `json:"time_limit_minutes,omitempty"`
	PassingScore     *float64 `json:"passing_score,omitempty"`
	IsPublished      *bool    `json:"is_published,omitempty"`
}

// UserAnswer is a submitted answer.
type UserAnswer struct {
	QuestionID int    `json:"question_id"`
	AnswerID   int    `json:"answer_id,omitempty"`
	TextAnswer string `json:"text_answer,omitempty"`
}

// Attempt is a user's attempt at an assessment.
type Attempt struct {
	ID           int          `json:"id"`
	AssessmentID int          `json:"assessment_id"`
	UserID       int          `json:"user_id"`
	Score        *float64     `json:"score,omitempty"`
	StartTime    string       `json:"start_time,omitempty"`
	EndTime      string       `json:"end_time,omitempty"`
	Status       string       `json:"status"`
	Answers      []UserAnswer `json:"answers,omitempty"`
}

// ForumTopic is a discussion thread.
type ForumTopic struct {
	ID         int          `json:"id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	CourseID   int          `json:"course_id,omitempty"`
	UserID     int          `json:"user_id"`
	Username   string       `json:"username,omitempty"`
	ReplyCount int          `json:"reply_count,omitempty"`
	CreatedAt  string       `json:"created_at,omitempty"`
	Replies    []ForumReply `json:"replies,omitempty"`
}

// ForumReply is a reply within a topic.
type ForumReply struct {
	ID        int    `json:"id"`
	TopicID   int    `json:"topic_id"`
	UserID    int    `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TopicInput creates a forum topic.
type TopicInput struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	CourseID int    `json:"course_id,omitempty"`
}

// CourseProgress summarizes a user's progress through a course.
type CourseProgress struct {
	CourseID                    int              `json:"course_id"`
	CourseTitle                 string           `json:"course_title"`
	TotalModules                int              `json:"total_modules"`
	TotalLessons                int              `json:"total_lessons"`
	CompletedLessons            int              `json:"completed_lessons"`
	OverallCompletionPercentage float64          `json:"overall_completion_percentage"`
	ModuleProgress              []ModuleProgress `json:"module_progress"`
}

// ModuleProgress is the per-module part of CourseProgress.
type ModuleProgress struct {
	ModuleID             int     `json:"module_id"`
	ModuleTitle          string  `json:"module_title"`
	TotalLessons         int     `json:"total_lessons"`
	CompletedLessons     int     `json:"completed_lessons"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// LessonCompletion records a completed lesson.
type LessonCompletion struct {
	ID                   int    `json:"id"`
	UserID               int    `json:"user_id"`
	LessonID             int    `json:"lesson_id"`
	Notes                string `json:"notes,omitempty"`
	CompletionPercentage int    `json:"completion_percentage"`
	CompletedAt          string `json:"completed_at,omitempty"`
}

// AssessmentResult is one row of the user's assessment history.
type AssessmentResult struct {
	ID              int    `json:"id"`
	AssessmentID    int    `json:"assessment_id"`
	AssessmentTitle string `json:"assessment_title"`
	CourseTitle     string `json:"course_title"`
	AllAttempts     int    `json:"all_attempts"`
	LatestResult    struct {
		Score         float64 `json:"score"`
		MaxScore      float64 `json:"max_score"`
		Passed        bool    `json:"passed"`
		AttemptNumber int     `json:"attempt_number"`
		CompletedAt   string  `json:"completed_at"`
	} `json:"latest_result"`
}
