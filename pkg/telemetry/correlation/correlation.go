// Package correlation carries the id that ties together every log line and
// audit entry produced for one client interaction.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Header is the HTTP header clients may use to pass their own id.
const Header = "X-Correlation-Id"

const maxLength = 64

type key struct{}

func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// Ensure keeps a usable incoming id and otherwise mints a ULID. Incoming ids
// longer than 64 characters or containing anything other than letters,
// digits, '-', '_' or '.' are replaced.
func Ensure(ctx context.Context, incoming string) (context.Context, string) {
	id := strings.TrimSpace(incoming)
	if !valid(id) {
		id = FromContext(ctx)
	}
	if !valid(id) {
		id = ulid.Make().String()
	}
	return WithID(ctx, id), id
}

func valid(id string) bool {
	if id == "" || len(id) > maxLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
