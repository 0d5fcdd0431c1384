package shell

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// DefaultOwnedRoots are the working directories whose ownership is handed
// back to the server user after a privileged mkdir.
var DefaultOwnedRoots = []string{"/data/coolify", "/tmp/coolify"}

// DefaultReservedDirs are system directories that are never chowned.
var DefaultReservedDirs = []string{
	"/var", "/etc", "/usr", "/opt", "/sys", "/proc", "/dev", "/bin", "/sbin",
	"/lib", "/lib64", "/boot", "/root", "/home", "/media", "/mnt", "/srv", "/run",
}

// scriptExempt lists first words that are never prefixed in multi-line
// scripts: harmless builtins and shell structure keywords.
var scriptExempt = map[string]struct{}{
	"cd":       {},
	"command":  {},
	"echo":     {},
	"true":     {},
	"fi":       {},
	"then":     {},
	"else":     {},
	"do":       {},
	"done":     {},
	"for":      {},
	"break":    {},
	"continue": {},
}

// conditionWords take sudo after the keyword rather than before it.
var conditionWords = map[string]struct{}{
	"if":    {},
	"elif":  {},
	"while": {},
	"until": {},
}

var lineExempt = map[string]struct{}{
	"cd":      {},
	"command": {},
}

var safePath = regexp.MustCompile(`^/[A-Za-z0-9._@+/-]*$`)

// Hardener rewrites shell commands so they run with elevated privileges
// for a non-root server user. It never fails: input it does not understand
// is only sudo-prefixed.
type Hardener struct {
	OwnedRoots   []string
	ReservedDirs []string
}

func NewHardener(ownedRoots []string) *Hardener {
	if len(ownedRoots) == 0 {
		ownedRoots = DefaultOwnedRoots
	}
	return &Hardener{
		OwnedRoots:   ownedRoots,
		ReservedDirs: DefaultReservedDirs,
	}
}

// HardenForSudo rewrites a multi-line script, line by line.
func (h *Hardener) HardenForSudo(commands []string, user string) []string {
	out := make([]string, 0, len(commands))
	for _, line := range commands {
		out = append(out, h.hardenScriptLine(line, user))
	}
	return out
}

func (h *Hardener) hardenScriptLine(line, user string) string {
	body := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(body)]
	if body == "" {
		return line
	}

	// Step 1: prefix.
	body = prefixScriptLine(body)

	// Step 2: hand created working directories back to the user.
	body = h.appendOwnership(body, user)

	// Step 3: run whole pipelines that feed a shell, or mix pipes with
	// && / ||, inside one elevated shell.
	tokens := lex(body)
	if isComplexPipe(tokens) {
		if rest, ok := strings.CutPrefix(body, "sudo "); ok {
			return indent + wrapInShell(strings.TrimLeft(rest, " "))
		}
		return indent + body
	}

	// Step 4: elevate every segment of compound commands.
	return indent + elevate(tokens, func(k tokenKind) bool {
		return k == tokSubst || k == tokAnd || k == tokOr || k == tokPipe
	})
}

// HardenLineForSudo rewrites a single ad-hoc command.
func (h *Hardener) HardenLineForSudo(command, user string) string {
	body := strings.TrimSpace(command)
	if body == "" {
		return command
	}
	word := firstWord(body)
	if _, ok := lineExempt[word]; !ok && word != "sudo" {
		body = "sudo " + body
	}
	body = h.appendOwnership(body, user)
	return elevate(lex(body), func(k tokenKind) bool {
		return k == tokSubst || k == tokBacktick || k == tokAnd || k == tokOr
	})
}

func prefixScriptLine(body string) string {
	if strings.HasPrefix(body, "#") {
		return body
	}
	word := firstWord(body)
	if word == "sudo" {
		return body
	}
	if _, ok := scriptExempt[word]; ok {
		return body
	}
	if _, ok := conditionWords[word]; ok {
		cond := strings.TrimLeft(body[len(word):], " \t")
		if strings.HasPrefix(cond, "! ") {
			return word + " ! " + prefixSudo(strings.TrimLeft(cond[1:], " \t"))
		}
		return word + " " + prefixSudo(cond)
	}
	return "sudo " + body
}

// appendOwnership appends chown/chmod after a `sudo mkdir -p <path>`
// segment when the path is eligible. Anything following the mkdir segment
// is kept after the ownership fix.
func (h *Hardener) appendOwnership(body, user string) string {
	if user == "" || !strings.HasPrefix(body, "sudo mkdir -p ") {
		return body
	}
	tokens := lex(body)
	segment := tokens[0].text
	remainder := render(tokens[1:])

	dir := strings.TrimSpace(strings.TrimPrefix(segment, "sudo mkdir -p "))
	if !h.ShouldChangeOwnership(dir) {
		return body
	}
	chown := fmt.Sprintf("&& sudo chown -R %s:%s %s ", user, user, dir)
	if strings.HasPrefix(remainder+" ", chown) {
		return body
	}

	fixed := fmt.Sprintf("%s %s&& sudo chmod -R o-rwx %s", strings.TrimRight(segment, " \t"), chown, dir)
	if remainder != "" {
		fixed += " " + remainder
	}
	return fixed
}

// ShouldChangeOwnership reports whether dir is a single absolute path that
// is outside every reserved system directory and inside an owned root.
func (h *Hardener) ShouldChangeOwnership(dir string) bool {
	dir = strings.TrimSpace(dir)
	if !safePath.MatchString(dir) {
		return false
	}
	clean := path.Clean(dir)
	for _, reserved := range h.ReservedDirs {
		if isWithin(clean, reserved) {
			return false
		}
	}
	for _, root := range h.OwnedRoots {
		if isWithin(clean, path.Clean(root)) {
			return true
		}
	}
	return false
}

func isWithin(p, dir string) bool {
	return p == dir || strings.HasPrefix(p, dir+"/")
}

// isComplexPipe reports whether a line pipes into sh/bash, or combines a
// pipe with && or ||.
func isComplexPipe(tokens []token) bool {
	var hasPipe, hasLogic, feedsShell bool
	for i, t := range tokens {
		switch t.kind {
		case tokPipe:
			hasPipe = true
			if i+1 < len(tokens) && tokens[i+1].kind == tokText && isShellCommand(tokens[i+1].text) {
				feedsShell = true
			}
		case tokAnd, tokOr:
			hasLogic = true
		}
	}
	return feedsShell || (hasPipe && hasLogic)
}

func isShellCommand(fragment string) bool {
	fields := strings.Fields(fragment)
	if len(fields) > 0 && fields[0] == "sudo" {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return false
	}
	return fields[0] == "sh" || fields[0] == "bash"
}

func wrapInShell(command string) string {
	return "sudo bash -c '" + strings.ReplaceAll(command, "'", `'\''`) + "'"
}

// Quote single-quotes s for safe use as one shell word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if safeWord.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

var safeWord = regexp.MustCompile(`^[A-Za-z0-9._/@%+=:,-]+$`)
