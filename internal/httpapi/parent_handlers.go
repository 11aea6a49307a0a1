package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"family-tasks/internal/model"
	"family-tasks/internal/schedule"
	"family-tasks/internal/service"
)

const parentKey = "parent"

// requireParent resolves the :code path parameter to a parent.
func (s *Server) requireParent(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		parent, err := s.svc.Family.ParentByCode(c.Request().Context(), c.Param("code"))
		if err != nil {
			return fail(err)
		}
		c.Set(parentKey, parent)
		return next(c)
	}
}

func parentFrom(c echo.Context) *model.Parent {
	return c.Get(parentKey).(*model.Parent)
}

func (s *Server) handleRegisterParent(c echo.Context) error {
	parent, err := s.svc.Family.RegisterParent(c.Request().Context())
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"parent_id":   parent.ID,
		"access_code": parent.AccessCode,
	})
}

func (s *Server) handleDashboard(c echo.Context) error {
	d, err := s.svc.Family.Dashboard(c.Request().Context(), parentFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newDashboard(d, s.now()))
}

func (s *Server) handleAddChild(c echo.Context) error {
	var req AddChildRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	child, err := s.svc.Family.AddChild(c.Request().Context(), parentFrom(c), req.Name)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, newChild(*child, true))
}

func (s *Server) handleDeleteChild(c echo.Context) error {
	if err := s.svc.Family.DeleteChild(c.Request().Context(), parentFrom(c), c.Param("id")); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCreateTask(c echo.Context) error {
	var req CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}

	input := service.TaskInput{
		ChildID:     req.ChildID,
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
		Pattern:     strings.TrimSpace(req.Pattern),
	}
	if req.Date != "" {
		date, err := s.parseDate(req.Date)
		if err != nil {
			return badRequest("date must be YYYY-MM-DD")
		}
		input.Date = &date
	}
	if req.StartTime != "" {
		tod, err := schedule.ParseTimeOfDay(req.StartTime)
		if err != nil {
			return badRequest("start_time must be HH:MM")
		}
		input.StartTime = &tod
	}

	created, err := s.svc.Tasks.CreateTask(c.Request().Context(), parentFrom(c), input)
	if err != nil {
		return fail(err)
	}
	loc := s.now().Location()
	out := CreatedDTO{Task: newTask(created.Task, loc)}
	if created.FirstInstance != nil {
		first := newTask(*created.FirstInstance, loc)
		out.FirstInstance = &first
	}
	return c.JSON(http.StatusCreated, out)
}

func (s *Server) handleUpdatePattern(c echo.Context) error {
	var req PatternRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	pattern := strings.TrimSpace(req.Pattern)
	if pattern == "" {
		return badRequest("recurrence_pattern is required")
	}
	task, err := s.svc.Tasks.UpdateTemplatePattern(c.Request().Context(), parentFrom(c), c.Param("id"), pattern)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newTask(*task, s.now().Location()))
}

func (s *Server) handleDeleteTask(c echo.Context) error {
	if err := s.svc.Tasks.DeleteTask(c.Request().Context(), parentFrom(c), c.Param("id")); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCreateSprint(c echo.Context) error {
	var req SprintRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	sprint, err := s.svc.Sprints.Create(c.Request().Context(), parentFrom(c), c.Param("id"), req.Name, req.Goal)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, newSprint(*sprint, s.now()))
}

func (s *Server) handleCompleteSprint(c echo.Context) error {
	sprint, err := s.svc.Sprints.Complete(c.Request().Context(), parentFrom(c), c.Param("id"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newSprint(*sprint, s.now()))
}

func (s *Server) handleUpdateSprint(c echo.Context) error {
	var req SprintRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	sprint, err := s.svc.Sprints.Update(c.Request().Context(), parentFrom(c), c.Param("id"), req.Name, req.Goal)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newSprint(*sprint, s.now()))
}

func (s *Server) handleUnlinkTelegram(c echo.Context) error {
	removed, err := s.svc.Telegram.Unlink(c.Request().Context(), parentFrom(c))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, strings.TrimSpace(raw), s.now().Location())
}
