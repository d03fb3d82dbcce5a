package usecase

import (
	decisiondomain "decisionlog-backend/internal/decision/domain"
	"decisionlog-backend/internal/engagement/domain"
)

// PreferenceEnabled implements the opt-out model: a missing map, a missing
// key or a non-boolean value all count as enabled.
func PreferenceEnabled(prefs map[string]interface{}, key string) bool {
	if prefs == nil {
		return true
	}
	value, ok := prefs[key]
	if !ok {
		return true
	}
	enabled, ok := value.(bool)
	if !ok {
		return true
	}
	return enabled
}

// PreferenceGate drops candidates whose owner opted out of the category.
type PreferenceGate struct{}

// Allows reports whether the profile accepts mail of this category.
func (PreferenceGate) Allows(profile *decisiondomain.Profile, category domain.Category) bool {
	if profile == nil {
		return true
	}
	return PreferenceEnabled(profile.EmailPreferences, category.PreferenceKey())
}
