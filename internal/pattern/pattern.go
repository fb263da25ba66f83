// Package pattern compiles route patterns such as "/users/:id" or
// "/files/:path*" into matchers.
//
// A compiled Pattern can test a path, extract named parameters and, when built
// without Options.End, strip the matched prefix off the front of a path.
//
// Supported syntax:
//
//	:name          one path segment
//	:name(\d+)     one segment matching a custom expression
//	(\d+)          unnamed segment, keyed by position ("0", "1", ...)
//	*              anything, keyed by position
//	:name?         optional
//	:name+         one or more segments
//	:name*         zero or more segments
//	\:             literal character
//
// Parameters may be introduced by "/" or ".", e.g. "/file.:ext".
package pattern

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrDecodeParam is returned when a captured parameter is not valid
// percent-encoding.
var ErrDecodeParam = errors.New("failed to decode param")

// tokenRegexp splits a pattern into literals and parameters. Groups:
// 1 escaped char, 2 prefix, 3 name, 4 custom expr, 5 unnamed group,
// 6 modifier, 7 bare asterisk.
var tokenRegexp = regexp.MustCompile(`(\\.)|([/.])?(?:(?::(\w+)(?:\(((?:\\.|[^\\()])+)\))?|\(((?:\\.|[^\\()])+)\))([+*?])?|(\*))`)

// groupEscaper escapes characters that would otherwise open capture groups
// or anchors inside a custom parameter expression.
var groupEscaper = regexp.MustCompile(`([=!:$/()])`)

// Options controls how a pattern is compiled.
type Options struct {
	// Sensitive makes matching case-sensitive.
	Sensitive bool
	// Strict disallows the optional trailing slash.
	Strict bool
	// End anchors the match at the end of the path. Without it the pattern
	// matches any path it is a prefix of, on a segment boundary.
	End bool
}

// token is a parameter in a parsed pattern.
type token struct {
	name      string
	prefix    string
	delimiter string
	optional  bool
	repeat    bool
	partial   bool
	pattern   string
}

// part is either a literal run of text or a parameter.
type part struct {
	literal string
	param   *token
}

// Pattern is a compiled route pattern. It is safe for concurrent use.
type Pattern struct {
	source string
	keys   []string
	re     *regexp.Regexp
}

// Compile parses path and builds its matcher.
func Compile(path string, opts Options) (*Pattern, error) {
	parts := parse(path)

	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.param != nil {
			keys = append(keys, p.param.name)
		}
	}

	re, err := regexp.Compile(buildExpr(parts, opts))
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", path, err)
	}

	return &Pattern{source: path, keys: keys, re: re}, nil
}

// MustCompile is like Compile but panics if the pattern cannot be compiled.
func MustCompile(path string, opts Options) *Pattern {
	p, err := Compile(path, opts)
	if err != nil {
		panic(err)
	}
	return p
}

func parse(str string) []part {
	var (
		parts []part
		key   int
		index int
		path  string
	)

	for _, m := range tokenRegexp.FindAllStringSubmatchIndex(str, -1) {
		group := func(n int) string {
			if m[2*n] < 0 {
				return ""
			}
			return str[m[2*n]:m[2*n+1]]
		}

		path += str[index:m[0]]
		index = m[1]

		if escaped := group(1); escaped != "" {
			path += escaped[1:]
			continue
		}

		next := ""
		if index < len(str) {
			next = str[index : index+1]
		}
		prefix := group(2)
		name := group(3)
		expr := group(4)
		if expr == "" {
			expr = group(5)
		}
		modifier := group(6)
		asterisk := group(7) != ""

		if path != "" {
			parts = append(parts, part{literal: path})
			path = ""
		}

		delimiter := prefix
		if delimiter == "" {
			delimiter = "/"
		}
		if name == "" {
			name = strconv.Itoa(key)
			key++
		}

		switch {
		case expr != "":
			expr = groupEscaper.ReplaceAllString(expr, `\$1`)
		case asterisk:
			expr = ".*"
		default:
			expr = "[^" + regexp.QuoteMeta(delimiter) + "]+?"
		}

		parts = append(parts, part{param: &token{
			name:      name,
			prefix:    prefix,
			delimiter: delimiter,
			optional:  modifier == "?" || modifier == "*",
			repeat:    modifier == "+" || modifier == "*",
			partial:   prefix != "" && next != "" && next != prefix,
			pattern:   expr,
		}})
	}

	if index < len(str) {
		path += str[index:]
	}
	if path != "" {
		parts = append(parts, part{literal: path})
	}

	return parts
}

// buildExpr renders the parts as a regular expression. The whole matched
// prefix is always capture group 1; parameters follow in order.
func buildExpr(parts []part, opts Options) string {
	var route strings.Builder
	for _, p := range parts {
		if p.param == nil {
			route.WriteString(regexp.QuoteMeta(p.literal))
			continue
		}

		t := p.param
		prefix := regexp.QuoteMeta(t.prefix)
		capture := "(?:" + t.pattern + ")"
		if t.repeat {
			capture += "(?:" + prefix + capture + ")*"
		}

		switch {
		case t.optional && !t.partial:
			capture = "(?:" + prefix + "(" + capture + "))?"
		case t.optional:
			capture = prefix + "(" + capture + ")?"
		default:
			capture = prefix + "(" + capture + ")"
		}
		route.WriteString(capture)
	}

	body := route.String()
	endsWithDelimiter := strings.HasSuffix(body, "/")
	if !opts.Strict {
		body = strings.TrimSuffix(body, "/") + "(?:/$)?"
	}

	expr := "^(" + body + ")"
	switch {
	case opts.End:
		expr += "$"
	case opts.Strict && endsWithDelimiter:
	default:
		// segment boundary: the match must stop at "/" or at the end
		expr += "(?:/|$)"
	}

	if !opts.Sensitive {
		expr = "(?i)" + expr
	}
	return expr
}

// Match tests path against the pattern. On success it returns a new map
// holding every entry of params plus the decoded captures; captures override
// existing keys of the same name. Parameters that did not take part in the
// match, or matched nothing, are left out.
func (p *Pattern) Match(path string, params map[string]string) (map[string]string, bool, error) {
	_, out, ok, err := p.Split(path, params)
	return out, ok, err
}

// Split is Match plus Strip in a single scan: rest is path with the matched
// prefix removed.
func (p *Pattern) Split(path string, params map[string]string) (rest string, out map[string]string, ok bool, err error) {
	m := p.re.FindStringSubmatchIndex(path)
	if m == nil {
		return path, nil, false, nil
	}

	out = make(map[string]string, len(params)+len(p.keys))
	for k, v := range params {
		out[k] = v
	}

	for i, key := range p.keys {
		start, end := m[2*(i+2)], m[2*(i+2)+1]
		if start < 0 || start == end {
			continue
		}
		v, err := url.PathUnescape(path[start:end])
		if err != nil {
			return path, nil, false, fmt.Errorf("%w %q: %v", ErrDecodeParam, key, err)
		}
		out[key] = v
	}

	return path[m[3]:], out, true, nil
}

// Strip removes the matched prefix from the start of path. A path the pattern
// does not match is returned unchanged.
func (p *Pattern) Strip(path string) string {
	m := p.re.FindStringSubmatchIndex(path)
	if m == nil {
		return path
	}
	return path[m[3]:]
}

// Keys returns the parameter names in the order they appear.
func (p *Pattern) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Regexp returns the expression the pattern was compiled to.
func (p *Pattern) Regexp() string {
	return p.re.String()
}

func (p *Pattern) String() string {
	return p.source
}
