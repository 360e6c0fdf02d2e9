package dot

import (
	"fmt"
	"sort"
	"strings"
)

// Attributes of a DOT graph, node or edge. Values wrapped in `<...>` are HTML-like labels and
// are written without quotes.
type Attributes map[string]string

func (a Attributes) String() string {
	if len(a) == 0 {
		return ""
	}
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	list := make([]string, 0, len(keys))
	for _, k := range keys {
		list = append(list, fmt.Sprintf(`%s=%s`, k, Quote(a[k])))
	}
	return " [" + strings.Join(list, ", ") + "]"
}

func AttributesToString(attribs map[string]string) string {
	return Attributes(attribs).String()
}

// Quote returns v as a DOT string: HTML-like labels as is, everything else double quoted with
// backslashes and quotes escaped and line breaks turned into `\n`.
func Quote(v string) string {
	if len(v) > 1 && v[0] == '<' && v[len(v)-1] == '>' {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	v = strings.ReplaceAll(v, "\n", `\n`)
	return `"` + v + `"`
}
