package models

import "time"

// PointsPerTask is awarded once per task on its first completion.
const PointsPerTask = 50

// DefaultDeadlineTime is used when the user skips the time step.
const DefaultDeadlineTime = "23:59"

// User represents a user in the system.
type User struct {
	ID             int64     // Telegram ID of the user
	Username       string    // @nickname or first name
	TotalPoints    int       // Points earned for completed tasks
	CompletedTasks int       // Number of tasks that earned points
	CreatedAt      time.Time // When the user was added to the system
	Timezone       string    // IANA zone id from the fixed zone list
}

// Task represents a deadline created by a user.
type Task struct {
	ID               int64      // Task ID
	UserID           int64      // Owner (foreign key to users.user_id)
	Name             string     // Free text name
	DeadlineDate     string     // YYYY-MM-DD, owner's local calendar
	DeadlineTime     string     // HH:MM, owner's local clock
	Completed        bool       // Set by the completion action
	PointsAwarded    bool       // Guards the one-time point award
	CreatedAt        time.Time  // When the task was created
	LastNotification *time.Time // Last overdue notification, nil if never sent
}

// OverdueCandidate is an active task joined with its owner's settings.
type OverdueCandidate struct {
	Task
	Username string
	Timezone string
}

// Stats is the summary shown on the status screen.
type Stats struct {
	TotalPoints    int
	CompletedTasks int
	ActiveTasks    int
}

// CompletionResult reports what a completion call changed.
type CompletionResult struct {
	TaskID  int64
	Awarded bool // points were credited by this call
}
