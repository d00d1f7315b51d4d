package mockapi

import "github.com/cyberedpro/cybered/pkg/api"

// Demo credentials accepted by the mock login.
const (
	DemoEmail    = "student@example.com"
	DemoPassword = "password"
)

const seedTimestamp = "2023-06-01T00:00:00"

func seedUsers() map[int]*api.User {
	return map[int]*api.User{
		1: {ID: 1, Email: DemoEmail, FirstName: "Demo", LastName: "Student", Role: "student", IsActive: true},
		2: {ID: 2, Email: "instructor@example.com", FirstName: "Demo", LastName: "Instructor", Role: "instructor", IsActive: true},
	}
}

func seedCourses() map[int]*api.Course {
	return map[int]*api.Course{
		1: {
			ID:                1,
			Title:             "CompTIA Security+ Certification",
			Description:       "Complete preparation for the Security+ exam with hands-on labs and practice tests.",
			CertificationType: "Security+",
			DifficultyLevel:   "intermediate",
			EstimatedDuration: 120,
			IsPublished:       true,
			InstructorID:      2,
			CreatedAt:         seedTimestamp,
			Modules: []api.Module{
				{ID: 1, CourseID: 1, Title: "Security Fundamentals", Order: 1, IsPublished: true},
				{ID: 2, CourseID: 1, Title: "Network Security", Order: 2, IsPublished: true},
				{ID: 3, CourseID: 1, Title: "Identity Management", Order: 3, IsPublished: true},
			},
		},
		2: {
			ID:                2,
			Title:             "Certified Ethical Hacker",
			Description:       "Offensive security techniques and tooling for the CEH exam.",
			CertificationType: "CEH",
			DifficultyLevel:   "advanced",
			EstimatedDuration: 160,
			IsPublished:       true,
			InstructorID:      2,
			CreatedAt:         seedTimestamp,
		},
	}
}

func seedEnrollments() map[int]*api.Enrollment {
	return map[int]*api.Enrollment{
		1: {ID: 1, UserID: 1, CourseID: 1, Status: "active", Progress: 35, EnrolledAt: "2023-06-01T00:00:00"},
		2: {ID: 2, UserID: 1, CourseID: 2, Status: "completed", Progress: 100, EnrolledAt: "2023-04-15T00:00:00"},
	}
}
