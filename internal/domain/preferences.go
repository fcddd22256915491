package domain

import (
	"strings"
	"time"
)

const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type Preferences struct {
	Region               string    `json:"region"`
	Language             string    `json:"language"`
	PreferredFormats     []string  `json:"preferredFormats"`
	Visibility           string    `json:"visibility"`
	NotificationsEnabled bool      `json:"notificationsEnabled"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Language:             "en",
		PreferredFormats:     []string{},
		Visibility:           VisibilityPublic,
		NotificationsEnabled: true,
	}
}

// PreferencesPatch is a partial update; nil fields are left untouched.
type PreferencesPatch struct {
	Region               *string   `json:"region,omitempty"`
	Language             *string   `json:"language,omitempty"`
	PreferredFormats     *[]string `json:"preferredFormats,omitempty"`
	Visibility           *string   `json:"visibility,omitempty"`
	NotificationsEnabled *bool     `json:"notificationsEnabled,omitempty"`
}

func (p PreferencesPatch) Validate() error {
	if p.Visibility != nil {
		switch *p.Visibility {
		case VisibilityPublic, VisibilityPrivate:
		default:
			return NewValidationError("visibility", "must be public or private")
		}
	}
	if p.PreferredFormats != nil {
		for _, f := range *p.PreferredFormats {
			if strings.TrimSpace(f) == "" {
				return NewValidationError("preferredFormats", "format names cannot be empty")
			}
		}
	}
	return nil
}

// Merge applies the patch on top of prefs and returns the result.
func (p PreferencesPatch) Merge(prefs Preferences) Preferences {
	if p.Region != nil {
		prefs.Region = strings.TrimSpace(*p.Region)
	}
	if p.Language != nil {
		prefs.Language = strings.TrimSpace(*p.Language)
	}
	if p.PreferredFormats != nil {
		prefs.PreferredFormats = append([]string{}, (*p.PreferredFormats)...)
	}
	if p.Visibility != nil {
		prefs.Visibility = *p.Visibility
	}
	if p.NotificationsEnabled != nil {
		prefs.NotificationsEnabled = *p.NotificationsEnabled
	}
	return prefs
}

type QualificationStatus string

const (
	QualificationProvisional QualificationStatus = "provisional"
	QualificationQualified   QualificationStatus = "qualified"
	QualificationUnqualified QualificationStatus = "unqualified"
)

type Profile struct {
	UserID               string              `json:"userId"`
	CurrentPoints        int                 `json:"currentPoints"`
	Tier                 string              `json:"tier"`
	Division             int                 `json:"division"`
	Band                 ConfidenceBand      `json:"band"`
	RegionalPoints       int                 `json:"regionalPoints"`
	GlobalPoints         int                 `json:"globalPoints"`
	FormatSpecificPoints map[string]int      `json:"formatSpecificPoints"`
	QualificationStatus  QualificationStatus `json:"qualificationStatus"`
	LastPointUpdate      *time.Time          `json:"lastPointUpdate"`
	Preferences          Preferences         `json:"preferences"`
}
