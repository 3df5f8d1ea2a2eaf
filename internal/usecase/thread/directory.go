package thread

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"thread-summary-bot/internal/domain"
)

type userLookup func(ctx context.Context, userID string) (domain.UserProfile, error)

type directoryEntry struct {
	name  string
	found bool
}

// userDirectory кэширует имена пользователей в пределах одного вызова Collect.
// Отрицательные результаты тоже кэшируются, чтобы не повторять неудачные запросы.
type userDirectory struct {
	lookup  userLookup
	entries map[string]directoryEntry
	log     zerolog.Logger
}

func newUserDirectory(lookup userLookup, log zerolog.Logger) *userDirectory {
	return &userDirectory{lookup: lookup, entries: make(map[string]directoryEntry), log: log}
}

// Resolve возвращает отображаемое имя или сам идентификатор, если имя не найдено.
func (d *userDirectory) Resolve(ctx context.Context, userID string) string {
	if entry, ok := d.entries[userID]; ok {
		if entry.found {
			return entry.name
		}
		return userID
	}
	profile, err := d.lookup(ctx, userID)
	if err != nil {
		d.log.Warn().Err(err).Str("user", userID).Msg("collector: не удалось получить пользователя")
		d.entries[userID] = directoryEntry{}
		return userID
	}
	name := preferredName(profile)
	if name == "" {
		d.entries[userID] = directoryEntry{}
		return userID
	}
	d.entries[userID] = directoryEntry{name: name, found: true}
	return name
}

func preferredName(p domain.UserProfile) string {
	if name := strings.TrimSpace(p.RealName); name != "" {
		return name
	}
	return strings.TrimSpace(p.DisplayName)
}
