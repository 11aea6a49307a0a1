package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"family-tasks/internal/model"
	"family-tasks/internal/repository"
)

const (
	accessCodeLength   = 8
	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	accessCodeAttempts = 5
)

// StarterEmojis are assigned at random to new children.
var StarterEmojis = []string{
	"😀", "😃", "😄", "😁", "😆", "😊", "😇", "🥰", "😍", "🤩",
	"😘", "😋", "😛", "🤗", "🤔", "🤪", "😎", "🤓", "🥳", "😺",
	"🐶", "🐱", "🐭", "🐹", "🐰", "🦊", "🐻", "🐼", "🐨", "🐯",
	"🦁", "🐮", "🐷", "🐸", "🐵", "🦄", "🌟", "⭐", "✨", "🎉",
	"🎈", "🎁", "🏆", "🥇", "🎯", "🚀", "🌈", "🌸", "🌺", "🌻",
}

// Dashboard is everything a parent sees at once.
type Dashboard struct {
	Parent   model.Parent
	Children []model.Child
	Tasks    []model.Task
	Sprints  []model.Sprint
	Telegram *model.TelegramLink
}

// FamilyService manages parents and child profiles.
type FamilyService struct {
	parents  *repository.ParentRepository
	children *repository.ChildRepository
	tasks    *repository.TaskRepository
	sprints  *repository.SprintRepository
	telegram *TelegramService
	log      *zap.Logger
}

func NewFamilyService(
	parents *repository.ParentRepository,
	children *repository.ChildRepository,
	tasks *repository.TaskRepository,
	sprints *repository.SprintRepository,
	telegram *TelegramService,
	log *zap.Logger,
) *FamilyService {
	return &FamilyService{
		parents:  parents,
		children: children,
		tasks:    tasks,
		sprints:  sprints,
		telegram: telegram,
		log:      log.Named("family"),
	}
}

// RegisterParent creates a parent with a fresh access code.
func (s *FamilyService) RegisterParent(ctx context.Context) (*model.Parent, error) {
	code, err := s.newAccessCode(ctx)
	if err != nil {
		return nil, err
	}
	parent := model.Parent{AccessCode: code}
	if err := s.parents.Create(ctx, &parent); err != nil {
		return nil, err
	}
	s.log.Info("parent registered", zap.String("parent_id", parent.ID))
	return &parent, nil
}

func (s *FamilyService) ParentByCode(ctx context.Context, code string) (*model.Parent, error) {
	parent, err := s.parents.FindByAccessCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, lookup(err, "parent")
	}
	return parent, nil
}

func (s *FamilyService) ChildByCode(ctx context.Context, code string) (*model.Child, error) {
	child, err := s.children.FindByAccessCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, lookup(err, "child")
	}
	return child, nil
}

func (s *FamilyService) Children(ctx context.Context, parent *model.Parent) ([]model.Child, error) {
	return s.children.ListByParent(ctx, parent.ID)
}

// Dashboard loads the parent's children with their tasks and sprints.
func (s *FamilyService) Dashboard(ctx context.Context, parent *model.Parent) (*Dashboard, error) {
	children, err := s.children.ListByParent(ctx, parent.ID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	tasks, err := s.tasks.ListByChildren(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	sprints, err := s.sprints.ListByChildren(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list sprints: %w", err)
	}
	link, err := s.telegram.Status(ctx, parent)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Parent: *parent, Children: children, Tasks: tasks, Sprints: sprints, Telegram: link}, nil
}

// AddChild creates a child profile with a random starter emoji and its own
// access code.
func (s *FamilyService) AddChild(ctx context.Context, parent *model.Parent, name string) (*model.Child, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name is required")
	}
	code, err := s.newAccessCode(ctx)
	if err != nil {
		return nil, err
	}
	emoji, err := pick(StarterEmojis)
	if err != nil {
		return nil, err
	}
	child := model.Child{
		ParentID:    parent.ID,
		Name:        name,
		AccessCode:  code,
		AvatarEmoji: &emoji,
		TotalPoints: 0,
	}
	if err := s.children.Create(ctx, &child); err != nil {
		return nil, err
	}
	s.log.Info("child added", zap.String("parent_id", parent.ID), zap.String("child_id", child.ID))
	return &child, nil
}

// UpdateAvatar sets the child's emoji. It is called with the child's own
// access code, so no parent check applies.
func (s *FamilyService) UpdateAvatar(ctx context.Context, child *model.Child, emoji string) error {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return invalid("emoji is required")
	}
	if err := s.children.UpdateAvatar(ctx, child.ID, emoji); err != nil {
		return err
	}
	child.AvatarEmoji = &emoji
	return nil
}

// DeleteChild removes the child with its tasks and sprints. The deletes are
// independent; a failure part way leaves the remaining rows in place.
func (s *FamilyService) DeleteChild(ctx context.Context, parent *model.Parent, childID string) error {
	child, err := s.OwnedChild(ctx, parent, childID)
	if err != nil {
		return err
	}
	if err := s.tasks.DeleteByChild(ctx, child.ID); err != nil {
		return err
	}
	if err := s.sprints.DeleteByChild(ctx, child.ID); err != nil {
		return err
	}
	if err := s.children.Delete(ctx, child.ID); err != nil {
		return err
	}
	s.log.Info("child deleted", zap.String("parent_id", parent.ID), zap.String("child_id", child.ID))
	return nil
}

// OwnedChild loads a child and checks it belongs to parent.
func (s *FamilyService) OwnedChild(ctx context.Context, parent *model.Parent, childID string) (*model.Child, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, lookup(err, "child")
	}
	if child.ParentID != parent.ID {
		return nil, ErrForbidden
	}
	return child, nil
}

// newAccessCode draws codes until one is unused by both parents and children.
func (s *FamilyService) newAccessCode(ctx context.Context) (string, error) {
	for i := 0; i < accessCodeAttempts; i++ {
		code, err := generateAccessCode()
		if err != nil {
			return "", err
		}
		taken, err := s.parents.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			taken, err = s.children.CodeExists(ctx, code)
			if err != nil {
				return "", err
			}
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("generate access code: no free code after %d attempts", accessCodeAttempts)
}

func generateAccessCode() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := 0; i < accessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate access code: %w", err)
		}
		sb.WriteByte(accessCodeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}

func pick(items []string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(items))))
	if err != nil {
		return "", fmt.Errorf("pick emoji: %w", err)
	}
	return items[n.Int64()], nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
