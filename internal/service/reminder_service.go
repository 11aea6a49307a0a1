package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"family-tasks/internal/achievement"
	"family-tasks/internal/model"
	"family-tasks/internal/recurrence"
	"family-tasks/internal/repository"
	"family-tasks/internal/schedule"
	"family-tasks/internal/session"
)

// ReminderService builds the HTML messages sent to parents in Telegram.
type ReminderService struct {
	children *repository.ChildRepository
	tasks    *TaskService
	sprints  *SprintService
}

func NewReminderService(children *repository.ChildRepository, tasks *TaskService, sprints *SprintService) *ReminderService {
	return &ReminderService{children: children, tasks: tasks, sprints: sprints}
}

// MorningSummary lists each child's tasks for today.
func (s *ReminderService) MorningSummary(ctx context.Context, parentID string, now time.Time) (string, error) {
	states, err := s.states(ctx, parentID)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("☀️ <b>Доброе утро!</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02.01.2006")))

	if len(states) == 0 {
		builder.WriteString("\n— детей пока нет\n")
	}
	for _, st := range states {
		builder.WriteString("\n")
		builder.WriteString(ChildHeader(st.Child))
		pending := pendingOn(st, now)
		if len(pending) == 0 {
			builder.WriteString("— задач на сегодня нет\n")
		}
		for _, task := range pending {
			builder.WriteString(formatTask(task, now))
		}
		if overdue := overdueCount(st, now); overdue > 0 {
			builder.WriteString(fmt.Sprintf("⚠️ Не выполнено раньше: %d\n", overdue))
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

// EveningSummary reports what each child got done today.
func (s *ReminderService) EveningSummary(ctx context.Context, parentID string, now time.Time) (string, error) {
	states, err := s.states(ctx, parentID)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	builder.WriteString("🌙 <b>Итоги дня</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n", now.Format("02.01.2006")))

	if len(states) == 0 {
		builder.WriteString("\n— детей пока нет\n")
	}
	for _, st := range states {
		builder.WriteString("\n")
		builder.WriteString(ChildHeader(st.Child))

		today := st.ForDate(now)
		done, earned := 0, 0
		var left []model.Task
		for _, t := range today {
			if t.IsCompleted {
				done++
				earned += t.Points
			} else {
				left = append(left, t)
			}
		}
		builder.WriteString(fmt.Sprintf("✅ Выполнено: %d из %d\n", done, len(today)))
		builder.WriteString(fmt.Sprintf("⭐ Баллы за день: +%d · всего %d\n", earned, st.Child.TotalPoints))

		if st.ActiveSprint != nil {
			builder.WriteString(formatSprintProgress(st, now))
		}
		if len(left) > 0 {
			builder.WriteString("⏳ Осталось:\n")
			for _, t := range left {
				builder.WriteString(fmt.Sprintf("   • %s\n", html.EscapeString(DisplayTitle(t.Title))))
			}
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

// SprintEndingNotices returns one message per child of the parent whose
// active sprint ends today.
func (s *ReminderService) SprintEndingNotices(ctx context.Context, parentID string, now time.Time) ([]string, error) {
	ending, err := s.sprints.EndingToday(ctx, now)
	if err != nil || len(ending) == 0 {
		return nil, err
	}
	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	owned := make(map[string]bool, len(children))
	for _, c := range children {
		owned[c.ID] = true
	}

	var out []string
	for _, sprint := range ending {
		if !owned[sprint.ChildID] {
			continue
		}
		st, err := s.tasks.LoadChild(ctx, sprint.ChildID)
		if err != nil {
			return nil, err
		}
		if st.ActiveSprint == nil || st.ActiveSprint.ID != sprint.ID {
			continue
		}
		out = append(out, SprintEndingNotice(st, now))
	}
	return out, nil
}

// SprintEndingNotice summarises the child's active sprint.
func SprintEndingNotice(st *session.State, now time.Time) string {
	sprint := st.ActiveSprint
	var sb strings.Builder
	sb.WriteString("🏁 <b>Спринт завершается сегодня</b>\n")
	sb.WriteString(fmt.Sprintf("%s <b>%s</b> · «%s»\n",
		Avatar(st.Child), html.EscapeString(st.Child.Name), html.EscapeString(sprint.Name)))
	if sprint.Goal != nil && strings.TrimSpace(*sprint.Goal) != "" {
		sb.WriteString(fmt.Sprintf("🎯 Цель: %s\n", html.EscapeString(strings.TrimSpace(*sprint.Goal))))
	}

	stats := achievement.Collect(st.Child, st.Tasks, sprint.ID)
	sprintTasks := st.SprintTasks(now)
	sb.WriteString(fmt.Sprintf("✅ Выполнено задач спринта: %d из %d\n", stats.SprintCompletedTasks, len(sprintTasks)))
	sb.WriteString(fmt.Sprintf("⭐ Баллы спринта: %d\n", stats.SprintPoints))

	progress := achievement.EvaluateAll(stats)
	sb.WriteString(fmt.Sprintf("🏆 Достижения: %d / %d", achievement.Unlocked(progress), len(progress)))
	return sb.String()
}

func (s *ReminderService) states(ctx context.Context, parentID string) ([]*session.State, error) {
	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	states := make([]*session.State, 0, len(children))
	for _, c := range children {
		st, err := s.tasks.LoadChild(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, nil
}

func pendingOn(st *session.State, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range st.ForDate(now) {
		if !t.IsCompleted {
			out = append(out, t)
		}
	}
	return out
}

func overdueCount(st *session.State, now time.Time) int {
	today := recurrence.StartOfDay(now)
	n := 0
	for _, t := range st.Visible(now) {
		if !t.IsCompleted && t.CreatedAt.Before(today) {
			n++
		}
	}
	return n
}

// ChildHeader opens a child's block in chat messages.
func ChildHeader(c model.Child) string {
	return fmt.Sprintf("%s <b>%s</b> · ⭐ %d\n", Avatar(c), html.EscapeString(c.Name), c.TotalPoints)
}

// Avatar returns the child's emoji, or a placeholder when none is set.
func Avatar(c model.Child) string {
	if c.AvatarEmoji != nil && *c.AvatarEmoji != "" {
		return *c.AvatarEmoji
	}
	return "👤"
}

// DisplayTitle trims a task title and capitalizes its first letter.
func DisplayTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return title
	}
	runes := []rune(title)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// TaskLine renders "icon [HH:MM] Title · +points" as HTML, without a
// trailing newline.
func TaskLine(icon string, task model.Task) string {
	var sb strings.Builder
	sb.WriteString(icon)
	if task.StartTime != nil {
		if tod, err := schedule.ParseTimeOfDay(*task.StartTime); err == nil {
			sb.WriteString(" " + tod.Short())
		}
	}
	sb.WriteString(fmt.Sprintf(" %s · +%d", html.EscapeString(DisplayTitle(task.Title)), task.Points))
	return sb.String()
}

func formatTask(task model.Task, now time.Time) string {
	icon := "🟢"
	if schedule.IsRescheduled(task) {
		icon = "🔁"
	}
	var sb strings.Builder
	sb.WriteString(TaskLine(icon, task))

	if task.OriginalDate != nil && schedule.IsRescheduled(task) {
		sb.WriteString(fmt.Sprintf("\n   📆 перенесено с %s", task.OriginalDate.In(now.Location()).Format("02.01")))
	}
	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatSprintProgress(st *session.State, now time.Time) string {
	sprintTasks := st.SprintTasks(now)
	done := 0
	for _, t := range sprintTasks {
		if t.IsCompleted {
			done++
		}
	}
	days := DaysRemaining(*st.ActiveSprint, now)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("🏃 Спринт «%s»: %d/%d задач · осталось %d дн.\n",
		html.EscapeString(st.ActiveSprint.Name), done, len(sprintTasks), days)
}
