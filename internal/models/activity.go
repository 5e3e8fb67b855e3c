package models

type ActivityKind string

const (
	KindQuiz   ActivityKind = "quiz"
	KindLesson ActivityKind = "lesson"
)

// Component returns the component name used to key session locks and caches.
func (k ActivityKind) Component() string {
	return "mod_" + string(k)
}

type NavigationMode string

const (
	NavigationFree       NavigationMode = "free"
	NavigationSequential NavigationMode = "sequential"
)

// ActivityConfig is the static definition of an activity. It is fetched once
// per session and never mutated afterwards.
type ActivityConfig struct {
	ID             int64          `json:"id" validate:"required,gt=0"`
	CourseID       int64          `json:"course_id" validate:"required,gt=0"`
	Kind           ActivityKind   `json:"kind" validate:"required,activity_kind"`
	Name           string         `json:"name" validate:"max=255"`
	TimeLimit      int64          `json:"time_limit" validate:"min=0"` // seconds, 0 = unlimited
	TimeClose      int64          `json:"time_close" validate:"min=0"` // unix seconds, 0 = never
	GracePeriod    int64          `json:"grace_period" validate:"min=0"`
	NavigationMode NavigationMode `json:"navigation_mode" validate:"required,navigation_mode"`
	AutosavePeriod int64          `json:"autosave_period" validate:"min=0"` // seconds, 0 = disabled
	OfflineCapable bool           `json:"offline_capable"`
	Review         bool           `json:"review"`
	HasQuestions   bool           `json:"has_questions"`

	// Behaviour policy flags as reported by the server.
	PreferredBehaviour string `json:"preferred_behaviour,omitempty"`
	ShowBlocks         bool   `json:"show_blocks"`
}

func (c *ActivityConfig) IsSequential() bool {
	return c.NavigationMode == NavigationSequential
}

// AccessInfo describes what the current user may do with an activity.
type AccessInfo struct {
	CanAttempt           bool     `json:"can_attempt"`
	PreventAccessReasons []string `json:"prevent_access_reasons,omitempty"`
	PreflightRequired    bool     `json:"preflight_required"`
	PreflightFields      []string `json:"preflight_fields,omitempty"`
	ActiveRules          []string `json:"active_rules,omitempty"`
	IsFinished           bool     `json:"is_finished"`
}

// JumpTable maps a page id to the page ids reachable from it.
type JumpTable map[int][]int

// CanJump reports whether target is reachable from page.
func (j JumpTable) CanJump(page, target int) bool {
	for _, p := range j[page] {
		if p == target {
			return true
		}
	}
	return false
}
