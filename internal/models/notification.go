package models

import "time"

// NotificationType identifies the template used for a notification.
type NotificationType string

const (
	NotificationBudgetAlert   NotificationType = "budget_alert"
	NotificationBudgetLimit   NotificationType = "budget_limit"
	NotificationGoalMilestone NotificationType = "goal_milestone"
	NotificationGoalCompleted NotificationType = "goal_completed"
	NotificationRecurring     NotificationType = "recurring_executed"
)

// NotificationPriority orders delivery urgency.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Notification is an in-app notification rendered from a template.
type Notification struct {
	Base
	UserID   string               `gorm:"type:uuid;not null;index" json:"user_id"`
	Type     NotificationType     `gorm:"not null" json:"type"`
	Title    string               `gorm:"not null" json:"title"`
	Body     string               `gorm:"not null" json:"body"`
	Priority NotificationPriority `gorm:"default:'normal'" json:"priority"`
	IsRead   bool                 `gorm:"default:false" json:"is_read"`
	ReadAt   *time.Time           `json:"read_at,omitempty"`
}

// NotificationTemplate holds the title/body templates for one
// notification type. Placeholders use {{name}} syntax.
type NotificationTemplate struct {
	Base
	Type          NotificationType     `gorm:"uniqueIndex;not null" json:"type"`
	TitleTemplate string               `gorm:"not null" json:"title_template"`
	BodyTemplate  string               `gorm:"not null" json:"body_template"`
	Priority      NotificationPriority `gorm:"default:'normal'" json:"priority"`
}

// NotificationSettings holds a user's channel and per-type toggles.
type NotificationSettings struct {
	Base
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`

	PushEnabled  bool `gorm:"default:true" json:"push_enabled"`
	EmailEnabled bool `gorm:"default:true" json:"email_enabled"`
	InAppEnabled bool `gorm:"default:true" json:"in_app_enabled"`

	BudgetAlerts       bool `gorm:"default:true" json:"budget_alerts"`
	GoalUpdates        bool `gorm:"default:true" json:"goal_updates"`
	RecurringReminders bool `gorm:"default:true" json:"recurring_reminders"`
}

// DeviceToken registers a push target for a user.
type DeviceToken struct {
	Base
	UserID   string `gorm:"type:uuid;not null;index" json:"user_id"`
	Token    string `gorm:"uniqueIndex;not null" json:"token"`
	Platform string `json:"platform"`
}
