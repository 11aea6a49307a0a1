package httpapi

import (
	"time"

	"family-tasks/internal/achievement"
	"family-tasks/internal/model"
	"family-tasks/internal/recurrence"
	"family-tasks/internal/schedule"
	"family-tasks/internal/service"
	"family-tasks/internal/session"
)

const dateLayout = "2006-01-02"

type TaskDTO struct {
	ID                string     `json:"id"`
	ChildID           string     `json:"child_id"`
	SprintID          *string    `json:"sprint_id,omitempty"`
	Kind              string     `json:"kind"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Points            int        `json:"points"`
	Date              string     `json:"date"`
	StartTime         *string    `json:"start_time,omitempty"`
	IsCompleted       bool       `json:"is_completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	Recurrence        string     `json:"recurrence,omitempty"`
	ParentTaskID      *string    `json:"parent_task_id,omitempty"`
	OriginalDate      *string    `json:"original_date,omitempty"`
	Rescheduled       bool       `json:"rescheduled"`
}

func newTask(t model.Task, loc *time.Location) TaskDTO {
	dto := TaskDTO{
		ID:                t.ID,
		ChildID:           t.ChildID,
		SprintID:          t.SprintID,
		Kind:              t.Kind().String(),
		Title:             t.Title,
		Description:       t.Description,
		Points:            t.Points,
		Date:              t.CreatedAt.In(loc).Format(dateLayout),
		IsCompleted:       t.IsCompleted,
		CompletedAt:       t.CompletedAt,
		RecurrencePattern: t.RecurrencePattern,
		ParentTaskID:      t.ParentTaskID,
		Rescheduled:       schedule.IsRescheduled(t),
	}
	if t.StartTime != nil {
		if tod, err := schedule.ParseTimeOfDay(*t.StartTime); err == nil {
			short := tod.Short()
			dto.StartTime = &short
		}
	}
	if t.RecurrencePattern != nil {
		dto.Recurrence = recurrence.Parse(*t.RecurrencePattern).Describe()
	}
	if t.OriginalDate != nil {
		d := t.OriginalDate.In(loc).Format(dateLayout)
		dto.OriginalDate = &d
	}
	return dto
}

func newTasks(tasks []model.Task, loc *time.Location) []TaskDTO {
	out := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, newTask(t, loc))
	}
	return out
}

type ChildDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	AccessCode  string  `json:"access_code,omitempty"`
	AvatarColor string  `json:"avatar_color"`
	AvatarEmoji *string `json:"avatar_emoji,omitempty"`
	TotalPoints int     `json:"total_points"`
}

// newChild includes the access code only for the parent's views.
func newChild(c model.Child, withCode bool) ChildDTO {
	dto := ChildDTO{
		ID:          c.ID,
		Name:        c.Name,
		AvatarColor: c.AvatarColor,
		AvatarEmoji: c.AvatarEmoji,
		TotalPoints: c.TotalPoints,
	}
	if withCode {
		dto.AccessCode = c.AccessCode
	}
	return dto
}

type SprintDTO struct {
	ID            string    `json:"id"`
	ChildID       string    `json:"child_id"`
	Name          string    `json:"name"`
	Goal          *string   `json:"goal,omitempty"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	IsActive      bool      `json:"is_active"`
	DaysRemaining int       `json:"days_remaining"`
}

func newSprint(sp model.Sprint, now time.Time) SprintDTO {
	days := service.DaysRemaining(sp, now)
	if days < 0 || !sp.IsActive {
		days = 0
	}
	return SprintDTO{
		ID:            sp.ID,
		ChildID:       sp.ChildID,
		Name:          sp.Name,
		Goal:          sp.Goal,
		StartDate:     sp.StartDate,
		EndDate:       sp.EndDate,
		IsActive:      sp.IsActive,
		DaysRemaining: days,
	}
}

type TelegramDTO struct {
	Linked    bool   `json:"linked"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type DashboardDTO struct {
	ParentID   string      `json:"parent_id"`
	AccessCode string      `json:"access_code"`
	Children   []ChildDTO  `json:"children"`
	Tasks      []TaskDTO   `json:"tasks"`
	Sprints    []SprintDTO `json:"sprints"`
	Telegram   TelegramDTO `json:"telegram"`
}

func newDashboard(d *service.Dashboard, now time.Time) DashboardDTO {
	dto := DashboardDTO{
		ParentID:   d.Parent.ID,
		AccessCode: d.Parent.AccessCode,
		Children:   make([]ChildDTO, 0, len(d.Children)),
		Tasks:      newTasks(d.Tasks, now.Location()),
		Sprints:    make([]SprintDTO, 0, len(d.Sprints)),
	}
	for _, c := range d.Children {
		dto.Children = append(dto.Children, newChild(c, true))
	}
	for _, sp := range d.Sprints {
		dto.Sprints = append(dto.Sprints, newSprint(sp, now))
	}
	if d.Telegram != nil {
		dto.Telegram = TelegramDTO{Linked: true, Username: d.Telegram.Username, FirstName: d.Telegram.FirstName}
	}
	return dto
}

type AchievementDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Sprint      bool   `json:"sprint"`
	Current     int    `json:"current"`
	Threshold   int    `json:"threshold"`
	Percent     int    `json:"percent"`
	Unlocked    bool   `json:"unlocked"`
}

func newAchievements(progress []achievement.Progress) []AchievementDTO {
	out := make([]AchievementDTO, 0, len(progress))
	for _, p := range progress {
		out = append(out, AchievementDTO{
			ID:          p.ID,
			Title:       p.Title,
			Description: p.Description,
			Sprint:      p.Scope == achievement.ScopeSprint,
			Current:     p.Current,
			Threshold:   p.Threshold,
			Percent:     p.Percent,
			Unlocked:    p.Unlocked,
		})
	}
	return out
}

// ChildViewDTO is what a child sees on their own page.
type ChildViewDTO struct {
	Child        ChildDTO         `json:"child"`
	Today        string           `json:"today"`
	Sprint       *SprintDTO       `json:"sprint,omitempty"`
	SprintTasks  []TaskDTO        `json:"sprint_tasks"`
	OtherTasks   []TaskDTO        `json:"other_tasks"`
	Achievements []AchievementDTO `json:"achievements"`
}

func newChildView(st *session.State, now time.Time) ChildViewDTO {
	loc := now.Location()
	dto := ChildViewDTO{
		Child:        newChild(st.Child, false),
		Today:        now.Format(dateLayout),
		SprintTasks:  newTasks(st.SprintTasks(now), loc),
		OtherTasks:   newTasks(st.OtherTasks(now), loc),
		Achievements: newAchievements(st.Achievements()),
	}
	if st.ActiveSprint != nil {
		sp := newSprint(*st.ActiveSprint, now)
		dto.Sprint = &sp
	}
	return dto
}

type DayDTO struct {
	Date  string    `json:"date"`
	Tasks []TaskDTO `json:"tasks"`
}

type CalendarDTO struct {
	Date string    `json:"date"`
	Day  []TaskDTO `json:"day"`
	Week []DayDTO  `json:"week"`
}

func newCalendar(st *session.State, day time.Time) CalendarDTO {
	loc := day.Location()
	dto := CalendarDTO{
		Date: day.Format(dateLayout),
		Day:  newTasks(st.ForDate(day), loc),
	}
	for _, d := range st.WeekOf(day) {
		dto.Week = append(dto.Week, DayDTO{Date: d.Date.Format(dateLayout), Tasks: newTasks(d.Tasks, loc)})
	}
	return dto
}

type ToggleDTO struct {
	Task        TaskDTO  `json:"task"`
	Completed   bool     `json:"completed"`
	PointsDelta int      `json:"points_delta"`
	TotalPoints int      `json:"total_points"`
	Spawned     *TaskDTO `json:"spawned,omitempty"`
}

type CreatedDTO struct {
	Task          TaskDTO  `json:"task"`
	FirstInstance *TaskDTO `json:"first_instance,omitempty"`
}

// Request bodies.

type AddChildRequest struct {
	Name string `json:"name"`
}

type CreateTaskRequest struct {
	ChildID     string `json:"child_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	Pattern     string `json:"recurrence_pattern"`
}

type PatternRequest struct {
	Pattern string `json:"recurrence_pattern"`
}

type SprintRequest struct {
	Name string `json:"name"`
	Goal string `json:"goal"`
}

type RescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

type AvatarRequest struct {
	Emoji string `json:"emoji"`
}
