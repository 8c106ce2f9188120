package models

import "fmt"

// RetentionPolicy is how one content class is treated when its channel is deleted.
type RetentionPolicy string

const (
	RetentionDeleted    RetentionPolicy = "deleted"
	RetentionArchived   RetentionPolicy = "archived"
	RetentionAnonymized RetentionPolicy = "anonymized"
)

func (p RetentionPolicy) Valid() bool {
	switch p {
	case RetentionDeleted, RetentionArchived, RetentionAnonymized:
		return true
	}
	return false
}

// InvalidValueError reports an enum field that received an unsupported value.
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// DataRetention is the per-class policy map stored on a deleted channel.
type DataRetention struct {
	Videos       RetentionPolicy `gorm:"type:varchar(12);not null" json:"videos"`
	Comments     RetentionPolicy `gorm:"type:varchar(12);not null" json:"comments"`
	Analytics    RetentionPolicy `gorm:"type:varchar(12);not null" json:"analytics"`
	WatchHistory RetentionPolicy `gorm:"type:varchar(12);not null" json:"watch_history"`
}

func DefaultDataRetention() DataRetention {
	return DataRetention{
		Videos:       RetentionArchived,
		Comments:     RetentionAnonymized,
		Analytics:    RetentionArchived,
		WatchHistory: RetentionAnonymized,
	}
}

// RetentionOverrides carries caller-supplied policy values. Empty fields keep
// the default for that class.
type RetentionOverrides struct {
	Videos       string `json:"videos,omitempty"`
	Comments     string `json:"comments,omitempty"`
	Analytics    string `json:"analytics,omitempty"`
	WatchHistory string `json:"watch_history,omitempty"`
}

// ResolveDataRetention validates the overrides and merges them over the
// defaults. watchHistory, when set, wins over overrides.WatchHistory.
func ResolveDataRetention(overrides RetentionOverrides, watchHistory string) (DataRetention, error) {
	resolved := DefaultDataRetention()

	fields := []struct {
		name  string
		value string
		dst   *RetentionPolicy
	}{
		{"dataRetention.videos", overrides.Videos, &resolved.Videos},
		{"dataRetention.comments", overrides.Comments, &resolved.Comments},
		{"dataRetention.analytics", overrides.Analytics, &resolved.Analytics},
		{"dataRetention.watchHistory", overrides.WatchHistory, &resolved.WatchHistory},
		{"watchHistoryRetention", watchHistory, &resolved.WatchHistory},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		policy := RetentionPolicy(f.value)
		if !policy.Valid() {
			return DataRetention{}, &InvalidValueError{Field: f.name, Value: f.value}
		}
		*f.dst = policy
	}
	return resolved, nil
}

type DeletionReason string

const (
	DeletionUserRequest     DeletionReason = "user_request"
	DeletionPolicyViolation DeletionReason = "policy_violation"
	DeletionCopyright       DeletionReason = "copyright"
	DeletionSpam            DeletionReason = "spam"
	DeletionOther           DeletionReason = "other"
)

var DeletionReasons = []DeletionReason{
	DeletionUserRequest,
	DeletionPolicyViolation,
	DeletionCopyright,
	DeletionSpam,
	DeletionOther,
}

// ParseDeletionReason maps "" to user_request and rejects anything outside the enum.
func ParseDeletionReason(value string) (DeletionReason, error) {
	if value == "" {
		return DeletionUserRequest, nil
	}
	for _, r := range DeletionReasons {
		if string(r) == value {
			return r, nil
		}
	}
	return "", &InvalidValueError{Field: "reason", Value: value}
}
