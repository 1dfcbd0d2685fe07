package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck-api/internal/domain"
	"github.com/taskdeck/taskdeck-api/internal/service/sharing"
	"github.com/taskdeck/taskdeck-api/internal/store"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email       string `json:"email"        validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Password    string `json:"password"     validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// RefreshTokenRequest defines the payload for the token refresh and logout
// endpoints.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UserResponse is the public representation of a user account.
type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
}

// AuthResponse defines the successful response for register and login.
type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// TokenPairResponse defines the successful response for the refresh endpoint.
type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Priority    string     `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	Status      string     `json:"status"      validate:"omitempty,oneof=pending in_progress completed cancelled"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"        validate:"omitempty,max=20,dive,max=50"`
}

// UpdateTaskRequest defines the payload for updating a task. Absent fields
// are left unchanged (PATCH); PUT requests are expected to carry every field.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"       validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Priority    *string    `json:"priority"    validate:"omitempty,oneof=low medium high urgent"`
	Status      *string    `json:"status"      validate:"omitempty,oneof=pending in_progress completed cancelled"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	Tags        []string   `json:"tags"        validate:"omitempty,max=20,dive,max=50"`
}

// ShareRequest defines the payload for sharing a task by email.
type ShareRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RemoveUserRequest defines the payload for revoking a user's access.
type RemoveUserRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// TaskResponse is the wire representation of a task, including the derived
// schedule fields.
type TaskResponse struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"due_date"`
	Tags         []string   `json:"tags"`
	IsCompleted  bool       `json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at"`
	IsOverdue    bool       `json:"is_overdue"`
	DaysUntilDue *int       `json:"days_until_due"`
	IsOwner      bool       `json:"is_owner"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PaginatedResponse is the envelope for list endpoints. Next and Previous
// hold ready-to-follow page URLs, or null at the edges.
type PaginatedResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []TaskResponse `json:"results"`
}

// StatsResponse aggregates the caller's owned tasks.
type StatsResponse struct {
	Total             int            `json:"total"`
	Completed         int            `json:"completed"`
	Pending           int            `json:"pending"`
	InProgress        int            `json:"in_progress"`
	Overdue           int            `json:"overdue"`
	CompletionRate    float64        `json:"completion_rate"`
	PriorityBreakdown PriorityCounts `json:"priority_breakdown"`
}

// PriorityCounts is the per-priority slice of StatsResponse.
type PriorityCounts struct {
	Urgent int `json:"urgent"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// SharedUsersResponse is the share list of a task.
type SharedUsersResponse struct {
	Owner         UserResponse   `json:"owner"`
	SharedUsers   []UserResponse `json:"shared_users"`
	CallerIsOwner bool           `json:"caller_is_owner"`
}

// newUserResponse converts a profile to its wire form.
func newUserResponse(p domain.Profile) UserResponse {
	return UserResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
	}
}

// newTaskResponse converts a task to its wire form as seen by the caller.
func newTaskResponse(task *domain.Task, relation store.Relation) TaskResponse {
	now := time.Now().UTC()

	var daysUntilDue *int
	if days, ok := task.DaysUntilDue(now); ok {
		daysUntilDue = &days
	}

	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}

	return TaskResponse{
		ID:           task.ID,
		OwnerID:      task.OwnerID,
		Title:        task.Title,
		Description:  task.Description,
		Priority:     string(task.Priority),
		Status:       string(task.Status),
		DueDate:      task.DueDate,
		Tags:         tags,
		IsCompleted:  task.IsCompleted,
		CompletedAt:  task.CompletedAt,
		IsOverdue:    task.IsOverdue(now),
		DaysUntilDue: daysUntilDue,
		IsOwner:      relation == store.RelationOwner,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

// newSharedUsersResponse converts a share list to its wire form.
func newSharedUsersResponse(list *sharing.SharedUsers) SharedUsersResponse {
	members := make([]UserResponse, 0, len(list.Members))
	for _, m := range list.Members {
		members = append(members, newUserResponse(m))
	}
	return SharedUsersResponse{
		Owner:         newUserResponse(list.Owner),
		SharedUsers:   members,
		CallerIsOwner: list.CallerIsOwner,
	}
}

// newStatsResponse converts store aggregates to their wire form.
func newStatsResponse(stats *store.TaskStats) StatsResponse {
	return StatsResponse{
		Total:          stats.Total,
		Completed:      stats.Completed,
		Pending:        stats.Pending,
		InProgress:     stats.InProgress,
		Overdue:        stats.Overdue,
		CompletionRate: stats.CompletionRate,
		PriorityBreakdown: PriorityCounts{
			Urgent: stats.ByPriority.Urgent,
			High:   stats.ByPriority.High,
			Medium: stats.ByPriority.Medium,
			Low:    stats.ByPriority.Low,
		},
	}
}
