package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cyberedpro/cybered/pkg/api"
)

// coursesCommand creates the courses command with subcommands.
func (c *CLI) coursesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse courses",
	}

	cmd.AddCommand(c.coursesListCommand())
	cmd.AddCommand(c.coursesShowCommand())

	return cmd
}

func (c *CLI) coursesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			prog := newProgress(loggerFromContext(ctx))
			courses, err := e.client.Courses(ctx)
			if err != nil {
				return describe(err)
			}
			prog.done(fmt.Sprintf("Fetched %d courses", len(courses)))

			if len(courses) == 0 {
				printInfo("No courses")
				return nil
			}
			for _, co := range courses {
				printRow(co.ID, co.Title, co.CertificationType, co.DifficultyLevel, moduleCount(co))
			}
			printNewline()
			printNextStep("Details", "cybered courses show ID")
			return nil
		},
	}
}

func (c *CLI) coursesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a course and its modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			co, err := e.client.Course(ctx, id)
			if err != nil {
				return describe(err)
			}

			fmt.Println(StyleTitle.Render(co.Title))
			if co.Description != "" {
				printDetail("%s", co.Description)
			}
			printNewline()
			printKeyValue("ID", strconv.Itoa(co.ID))
			if co.CertificationType != "" {
				printKeyValue("Cert", co.CertificationType)
			}
			if co.DifficultyLevel != "" {
				printKeyValue("Level", co.DifficultyLevel)
			}
			if co.EstimatedDuration > 0 {
				printKeyValue("Duration", fmt.Sprintf("%d hours", co.EstimatedDuration))
			}
			printKeyValue("Published", strconv.FormatBool(co.IsPublished))

			if len(co.Modules) > 0 {
				printNewline()
				for _, m := range co.Modules {
					printRow(m.ID, m.Title, lessonCount(m))
				}
			}
			return nil
		},
	}
}

// enrollmentsCommand creates the enrollments command with subcommands.
func (c *CLI) enrollmentsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrollments",
		Short: "Browse your enrollments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your enrollments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := c.newEnv(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			enrollments, err := e.client.Enrollments(ctx)
			if err != nil {
				return describe(err)
			}
			if len(enrollments) == 0 {
				printInfo("Not enrolled in any course")
				printNextStep("Enroll", `cybered call POST /enrollments/ --data '{"course_id": ID}'`)
				return nil
			}
			for _, en := range enrollments {
				printRow(en.ID, fmt.Sprintf("course %d", en.CourseID), en.Status, fmt.Sprintf("%.0f%%", en.Progress))
			}
			return nil
		},
	})

	return cmd
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be a positive integer", s)
	}
	return id, nil
}

func moduleCount(co api.Course) string {
	if len(co.Modules) == 0 {
		return ""
	}
	return plural(len(co.Modules), "module")
}

func lessonCount(m api.Module) string {
	if len(m.Lessons) == 0 {
		return ""
	}
	return plural(len(m.Lessons), "lesson")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
