package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/carebridge/community-api/internal/access"
	"github.com/carebridge/community-api/internal/models"
	appErrors "github.com/carebridge/community-api/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, assignment *models.ContentAssignment) error
	FindByID(ctx context.Context, id string) (*models.ContentAssignment, error)
	UpdateStatus(ctx context.Context, assignment *models.ContentAssignment) error
	ListByAssignee(ctx context.Context, userID string, statuses []models.AssignmentStatus) ([]models.AssignmentDetail, error)
}

type assignmentContentStore interface {
	FindByID(ctx context.Context, id string) (*models.Content, error)
	SetHasAssignments(ctx context.Context, id string) error
}

type assignmentShareReader interface {
	FindShare(ctx context.Context, contentID, userID string) (*models.ContentShare, error)
}

type assignmentUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type familyReader interface {
	ListCreatedIDs(ctx context.Context, userID string) ([]string, error)
}

// CreateAssignmentRequest holds the payload for assigning a note as a task.
type CreateAssignmentRequest struct {
	ContentID  string                    `json:"content_id" validate:"required"`
	AssignedTo string                    `json:"assigned_to" validate:"required"`
	Priority   models.AssignmentPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate    *time.Time                `json:"due_date"`
}

// UpdateAssignmentStatusRequest holds a status transition.
type UpdateAssignmentStatusRequest struct {
	Status          models.AssignmentStatus `json:"status" validate:"required,oneof=ASSIGNED IN_PROGRESS COMPLETED CANCELLED"`
	CompletionNotes *string                 `json:"completion_notes"`
}

// AssignmentService handles the note task workflow.
type AssignmentService struct {
	repo      assignmentRepository
	content   assignmentContentStore
	shares    assignmentShareReader
	users     assignmentUserReader
	families  familyReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, content assignmentContentStore, shares assignmentShareReader, users assignmentUserReader, families familyReader, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, content: content, shares: shares, users: users, families: families, validator: validate, logger: logger}
}

// Create assigns a note to a user as a task. Only notes carry assignments;
// volunteers may only target users in families they created.
func (s *AssignmentService) Create(ctx context.Context, actor access.Actor, req CreateAssignmentRequest) (*models.ContentAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	content, err := s.content.FindByID(ctx, req.ContentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load content")
	}
	hasShare := false
	if actor.Role != models.RoleAdmin && content.CreatedBy != actor.ID {
		share, err := s.shares.FindShare(ctx, content.ID, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve share")
		}
		hasShare = share != nil
	}
	if !access.CanRead(content, actor, hasShare) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "content not found")
	}
	if !content.IsNote() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only notes can be assigned")
	}

	assignee, err := s.users.FindByID(ctx, req.AssignedTo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignee")
	}

	var createdFamilies []string
	if actor.Role == models.RoleVolunteer {
		createdFamilies, err = s.families.ListCreatedIDs(ctx, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load volunteer families")
		}
	}
	if !access.CanAssign(actor, assignee.FamilyID, createdFamilies) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to assign tasks to this user")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	assignment := &models.ContentAssignment{
		ContentID:  req.ContentID,
		AssignedTo: req.AssignedTo,
		AssignedBy: actor.ID,
		Status:     models.AssignmentStatusAssigned,
		Priority:   priority,
		DueDate:    req.DueDate,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	if !content.HasAssignments {
		if err := s.content.SetHasAssignments(ctx, content.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag content assignments")
		}
	}
	s.logger.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("content_id", req.ContentID),
		zap.String("assigned_to", req.AssignedTo))
	return assignment, nil
}

// UpdateStatus applies a lifecycle transition. Only the assignee or the
// assigner may move an assignment, transitions must follow the lifecycle,
// and terminal assignments are immutable for everyone.
func (s *AssignmentService) UpdateStatus(ctx context.Context, actor access.Actor, id string, req UpdateAssignmentStatusRequest) (*models.ContentAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}

	if actor.ID != assignment.AssignedTo && actor.ID != assignment.AssignedBy {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify this assignment")
	}
	if !assignment.Status.CanTransitionTo(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status transition")
	}

	assignment.Status = req.Status
	if req.Status == models.AssignmentStatusCompleted {
		now := time.Now().UTC()
		assignment.CompletedAt = &now
		assignment.CompletedBy = &actor.ID
		assignment.CompletionNotes = req.CompletionNotes
	}
	if err := s.repo.UpdateStatus(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}
	return assignment, nil
}

// GetAssignedTasks returns the actor's task inbox, ordered by priority and
// due date.
func (s *AssignmentService) GetAssignedTasks(ctx context.Context, actor access.Actor, statuses []models.AssignmentStatus) ([]models.AssignmentDetail, error) {
	for _, status := range statuses {
		switch status {
		case models.AssignmentStatusAssigned, models.AssignmentStatusInProgress, models.AssignmentStatusCompleted, models.AssignmentStatusCancelled:
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid assignment status filter")
		}
	}
	assignments, err := s.repo.ListByAssignee(ctx, actor.ID, statuses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}
