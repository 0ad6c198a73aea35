package domain

// Merge folds a re-discovered contact into the existing record and
// returns the result. The merge precedence is:
//
//   - latest discovery wins on mutable fields (Name, Role, Source,
//     Organization, Category) when the update carries a value
//   - FirstSeenAt never regresses (earliest wins)
//   - TimesContacted never regresses (max wins)
//   - LastContactedAt keeps the most recent timestamp
//
// Organization is treated as updatable metadata: a contact re-discovered
// under a different organization moves to it (last writer wins).
func Merge(existing, update Contact) Contact {
	merged := existing

	if update.Name != "" {
		merged.Name = update.Name
	}
	if update.Role != "" {
		merged.Role = update.Role
	}
	if update.Source != "" {
		merged.Source = update.Source
	}
	if update.Organization != "" {
		merged.Organization = update.Organization
	}
	if update.Category != "" {
		merged.Category = update.Category
	}

	if !update.FirstSeenAt.IsZero() &&
		(merged.FirstSeenAt.IsZero() || update.FirstSeenAt.Before(merged.FirstSeenAt)) {
		merged.FirstSeenAt = update.FirstSeenAt
	}
	if update.TimesContacted > merged.TimesContacted {
		merged.TimesContacted = update.TimesContacted
	}
	if update.LastContactedAt.After(merged.LastContactedAt) {
		merged.LastContactedAt = update.LastContactedAt
	}

	return merged
}
