package export

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{(.*?)\}\}`)

// ResolvePlaceholders replaces every {{name}} in a template with the
// stringified context value. Unknown names resolve to the empty string;
// a misspelled placeholder silently disappears rather than erroring.
func ResolvePlaceholders(template string, ctx RowContext) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if name == "" {
			return ""
		}
		v, ok := ctx.Lookup(name)
		if !ok {
			return ""
		}
		return Stringify(v)
	})
}
