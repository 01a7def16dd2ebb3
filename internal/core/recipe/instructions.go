package recipe

import (
	"fmt"
	"strings"
)

// NumberInstructions renders steps as "1. step\n\n2. step\n\n". Blank steps are skipped.
func NumberInstructions(steps []string) string {
	var b strings.Builder
	n := 0
	for _, step := range steps {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n\n", n, step)
	}
	return b.String()
}
