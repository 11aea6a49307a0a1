package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"family-tasks/internal/schedule"
)

func (s *Server) handleChildView(c echo.Context) error {
	st, err := s.svc.Tasks.Load(c.Request().Context(), c.Param("code"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newChildView(st, s.now()))
}

func (s *Server) handleCalendar(c echo.Context) error {
	day, err := s.parseDate(c.Param("date"))
	if err != nil {
		return badRequest("date must be YYYY-MM-DD")
	}
	st, err := s.svc.Tasks.Load(c.Request().Context(), c.Param("code"))
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newCalendar(st, day))
}

func (s *Server) handleToggle(c echo.Context) error {
	ctx := c.Request().Context()
	st, err := s.svc.Tasks.Load(ctx, c.Param("code"))
	if err != nil {
		return fail(err)
	}
	out, err := s.svc.Tasks.ToggleCompletion(ctx, st, c.Param("id"))
	if err != nil {
		return fail(err)
	}

	loc := s.now().Location()
	resp := ToggleDTO{
		Task:        newTask(out.Task, loc),
		Completed:   out.Completed,
		PointsDelta: out.PointsDelta,
		TotalPoints: st.Child.TotalPoints,
	}
	if out.Spawned != nil {
		spawned := newTask(*out.Spawned, loc)
		resp.Spawned = &spawned
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReschedule(c echo.Context) error {
	var req RescheduleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	date, err := s.parseDate(req.Date)
	if err != nil {
		return badRequest("date must be YYYY-MM-DD")
	}
	var startTime *schedule.TimeOfDay
	if req.StartTime != "" {
		tod, err := schedule.ParseTimeOfDay(req.StartTime)
		if err != nil {
			return badRequest("start_time must be HH:MM")
		}
		startTime = &tod
	}

	ctx := c.Request().Context()
	st, err := s.svc.Tasks.Load(ctx, c.Param("code"))
	if err != nil {
		return fail(err)
	}
	task, err := s.svc.Tasks.Reschedule(ctx, st, c.Param("id"), date, startTime)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newTask(*task, s.now().Location()))
}

func (s *Server) handleAvatar(c echo.Context) error {
	var req AvatarRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	ctx := c.Request().Context()
	child, err := s.svc.Family.ChildByCode(ctx, c.Param("code"))
	if err != nil {
		return fail(err)
	}
	if err := s.svc.Family.UpdateAvatar(ctx, child, req.Emoji); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, newChild(*child, false))
}
