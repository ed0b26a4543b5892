// Copyright (c) 2023 Stephan Lukits. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tapsh

import (
	"fmt"
	"regexp"
	"strings"
)

// compileGlob compiles an extended shell glob into a full-string
// matcher.  Supported are the usual glob elements '*', '?', bracket
// classes and backslash escapes plus the extended grouping operators
//
//	?(p|q)  zero or one occurrence of p or q
//	*(p|q)  zero or more occurrences
//	+(p|q)  one or more occurrences
//	@(p|q)  exactly one occurrence
//	!(p|q)  anything but p or q
//
// Groups nest.  The negation operator is only supported if it spans
// the whole pattern; an embedded '!(...)' has no clean translation to
// RE2 and is rejected as a pattern error.  A pattern always matches
// the actual value as a single string, never line by line.
func compileGlob(pattern string) (func(string) bool, error) {
	if inner, ok := wholeNegation(pattern); ok {
		re, err := compileAlternatives(inner, pattern)
		if err != nil {
			return nil, err
		}
		return func(s string) bool { return !re.MatchString(s) }, nil
	}
	t, err := translate(pattern, pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(`\A(?s:` + t + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrUsage, pattern, err)
	}
	return re.MatchString, nil
}

// wholeNegation reports if given pattern is exactly one negated group
// and provides its content in that case.
func wholeNegation(pattern string) (string, bool) {
	if !strings.HasPrefix(pattern, "!(") {
		return "", false
	}
	end, err := matchingParen(pattern, 1)
	if err != nil || end != len(pattern)-1 {
		return "", false
	}
	return pattern[2:end], true
}

func compileAlternatives(inner, pattern string) (*regexp.Regexp, error) {
	t, err := translateGroup(inner, pattern)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(`\A(?s:` + t + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %v", ErrUsage, pattern, err)
	}
	return re, nil
}

// translate converts given (sub-)pattern p to a RE2 expression; whole
// names the complete pattern for error reporting.
func translate(p, whole string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(p); i++ {
		c := p[i]
		if isGroupOp(c) && i+1 < len(p) && p[i+1] == '(' {
			if c == '!' {
				return "", fmt.Errorf(
					"%w: pattern %q: '!(...)' is only supported as "+
						"the whole pattern", ErrUsage, whole)
			}
			end, err := matchingParen(p, i+1)
			if err != nil {
				return "", fmt.Errorf(
					"%w: pattern %q: %v", ErrUsage, whole, err)
			}
			group, err := translateGroup(p[i+2:end], whole)
			if err != nil {
				return "", err
			}
			b.WriteString("(?:" + group + ")")
			if c != '@' {
				b.WriteByte(c)
			}
			i = end
			continue
		}
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '\\':
			if i+1 < len(p) {
				b.WriteString(regexp.QuoteMeta(string(p[i+1])))
				i++
				continue
			}
			b.WriteString(`\\`)
		case '[':
			class, end, ok := bracketClass(p, i)
			if !ok {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(class)
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String(), nil
}

// translateGroup translates the '|'-separated alternatives of a group
// body into an alternation expression.
func translateGroup(body, whole string) (string, error) {
	var alts []string
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '|':
			if depth == 0 {
				alts = append(alts, body[start:i])
				start = i + 1
			}
		case '\\':
			i++
		}
	}
	alts = append(alts, body[start:])
	tt := make([]string, 0, len(alts))
	for _, a := range alts {
		t, err := translate(a, whole)
		if err != nil {
			return "", err
		}
		tt = append(tt, t)
	}
	return strings.Join(tt, "|"), nil
}

func isGroupOp(c byte) bool {
	switch c {
	case '?', '*', '+', '@', '!':
		return true
	}
	return false
}

// matchingParen returns the index of the parenthesis closing the one
// at given open-index.
func matchingParen(p string, open int) (int, error) {
	depth := 0
	for i := open; i < len(p); i++ {
		switch p[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '\\':
			i++
		}
	}
	return 0, fmt.Errorf("unbalanced parenthesis at offset %d", open)
}

// bracketClass converts a glob bracket class starting at given index
// into a RE2 character class; ok is false for an unterminated class
// which is then taken literally.
func bracketClass(p string, start int) (class string, end int, ok bool) {
	i := start + 1
	var b strings.Builder
	b.WriteByte('[')
	if i < len(p) && (p[i] == '!' || p[i] == '^') {
		b.WriteByte('^')
		i++
	}
	if i < len(p) && p[i] == ']' { // leading ']' is a member
		b.WriteString(`\]`)
		i++
	}
	for ; i < len(p); i++ {
		if p[i] == ']' {
			b.WriteByte(']')
			return b.String(), i, true
		}
		if p[i] == '\\' && i+1 < len(p) {
			b.WriteString(regexp.QuoteMeta(string(p[i+1])))
			i++
			continue
		}
		b.WriteByte(p[i])
	}
	return "", 0, false
}
