package sync

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var frontmatterBlock = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n`)

// rewritePermalinkFrontmatter is the one case where sync mutates a
// source file: it records the allocated permalink in the frontmatter
// block, adding the block if none existed. Re-running it with the same
// permalink produces no change.
func rewritePermalinkFrontmatter(path, permalink string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	text := string(data)

	match := frontmatterBlock.FindStringSubmatchIndex(text)
	if match == nil {
		newText := fmt.Sprintf("---\npermalink: %s\n---\n%s", permalink, text)
		return os.WriteFile(path, []byte(newText), 0o644)
	}

	body := text[match[2]:match[3]]
	rest := text[match[1]:]

	lines := strings.Split(body, "\n")
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "permalink:") {
			lines[i] = "permalink: " + permalink
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, "permalink: "+permalink)
	}

	newText := "---\n" + strings.Join(lines, "\n") + "\n---\n" + rest
	if newText == text {
		return nil
	}
	return os.WriteFile(path, []byte(newText), 0o644)
}
