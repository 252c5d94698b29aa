package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Rule rewrites a transcript. changed is false when the rule did not match.
type Rule interface {
	Apply(input string) (output string, changed bool)
}

// RuleParser turns one line of a rules file into a Rule.
type RuleParser interface {
	CanParse(line string) bool
	Parse(line string) (Rule, error)
}

// DefaultParsers understands sed-style substitutions and "from => to" phrases.
func DefaultParsers() []RuleParser {
	return []RuleParser{substitutionParser{}, phraseParser{}}
}

// Parse compiles rules file contents. Blank lines and # comments are skipped.
func Parse(contents string, parsers []RuleParser) ([]Rule, error) {
	if len(parsers) == 0 {
		parsers = DefaultParsers()
	}

	var out []Rule
	for number, raw := range strings.Split(contents, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule, err := parseLine(line, parsers)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", number+1, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func parseLine(line string, parsers []RuleParser) (Rule, error) {
	for _, parser := range parsers {
		if parser.CanParse(line) {
			return parser.Parse(line)
		}
	}
	return nil, errors.New("unsupported rule format")
}

// phraseParser handles "hay sense => hey sense". Phrases match whole words,
// case-insensitively.
type phraseParser struct{}

func (phraseParser) CanParse(line string) bool {
	return strings.Contains(line, "=>")
}

func (phraseParser) Parse(line string) (Rule, error) {
	from, to, _ := strings.Cut(line, "=>")
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" {
		return nil, errors.New("phrase rule needs a source phrase")
	}

	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(from) + `\b`)
	if err != nil {
		return nil, fmt.Errorf("invalid phrase %q: %w", from, err)
	}
	return phraseRule{re: re, to: to}, nil
}

type phraseRule struct {
	re *regexp.Regexp
	to string
}

func (r phraseRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllLiteralString(input, r.to)
	return output, output != input
}

// substitutionParser handles s/pattern/replacement/flags with any
// punctuation delimiter. Matching is case-insensitive; g replaces every match.
type substitutionParser struct{}

func (substitutionParser) CanParse(line string) bool {
	return len(line) > 2 && line[0] == 's' && isDelimiter(line[1])
}

func (substitutionParser) Parse(line string) (Rule, error) {
	fields, rest, err := splitDelimited(line[2:], line[1], 2)
	if err != nil {
		return nil, err
	}

	global := false
	inline := "i"
	for _, flag := range strings.TrimSpace(rest) {
		switch flag {
		case 'g':
			global = true
		case 'i':
		case 'm', 's':
			if !strings.ContainsRune(inline, flag) {
				inline += string(flag)
			}
		default:
			return nil, fmt.Errorf("unsupported substitution flag %q", flag)
		}
	}

	re, err := regexp.Compile("(?" + inline + ")" + fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return substitutionRule{re: re, replacement: fields[1], global: global}, nil
}

type substitutionRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func (r substitutionRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	match := r.re.FindStringSubmatchIndex(input)
	if match == nil {
		return input, false
	}
	expanded := r.re.ExpandString(nil, r.replacement, input, match)
	output := input[:match[0]] + string(expanded) + input[match[1]:]
	return output, output != input
}

// splitDelimited reads n delim-terminated fields. A backslash keeps the
// following delimiter literal; other escapes pass through to the regexp.
func splitDelimited(body string, delim byte, n int) ([]string, string, error) {
	fields := make([]string, 0, n)
	var current strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body) && body[i+1] == delim:
			current.WriteByte(delim)
			i++
		case c == '\\' && i+1 < len(body):
			current.WriteByte(c)
			current.WriteByte(body[i+1])
			i++
		case c == delim:
			fields = append(fields, current.String())
			current.Reset()
			if len(fields) == n {
				return fields, body[i+1:], nil
			}
		default:
			current.WriteByte(c)
		}
	}
	return nil, "", errors.New("unterminated substitution")
}

func isDelimiter(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return false
	case c == ' ', c == '\t', c == '\\':
		return false
	default:
		return true
	}
}
