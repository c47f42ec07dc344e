// internal/runner/utterance.go
package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/lector/internal/types"
)

// utteranceText builds the spoken text for an item: the title, followed by
// the body when the session asks for it.
func utteranceText(item *types.ArticleItem, includeBody bool) string {
	title := strings.TrimSpace(item.Title)
	if !includeBody {
		return title
	}
	body := strings.TrimSpace(item.Body)
	if body == "" {
		return title
	}
	if title == "" {
		return body
	}
	return title + ". " + body
}

// agePhrase renders a relative age announcement for an item.
func agePhrase(age time.Duration) string {
	switch {
	case age < time.Minute:
		return "Published just now."
	case age < time.Hour:
		return fmt.Sprintf("Published %s ago.", plural(int(age.Minutes()), "minute"))
	case age < 24*time.Hour:
		return fmt.Sprintf("Published %s ago.", plural(int(age.Hours()), "hour"))
	default:
		return fmt.Sprintf("Published %s ago.", plural(int(age.Hours()/24), "day"))
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
