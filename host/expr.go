// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var errExprParse = errors.New("expression syntax error")

// Maximum number of starlark steps a single expression may take.
const maxExprSteps = 100000

// An identifierResolver supplies the names an expression may refer to.
type identifierResolver interface {
	identifiers() starlark.StringDict
}

// The exprParser evaluates host command arguments. Expressions use
// starlark syntax, extended with $FF and 0FFh hexadecimal literals. In
// hex mode bare words made of hex digits are hexadecimal numbers.
type exprParser struct {
	hexMode bool
}

func newExprParser() *exprParser {
	return &exprParser{}
}

var (
	wordRegexp   = regexp.MustCompile(`\$?[0-9a-z_]+`)
	suffixRegexp = regexp.MustCompile(`^[0-9][0-9a-f]*h$`)
	hexRegexp    = regexp.MustCompile(`^[0-9a-f]+$`)
)

// Parse evaluates the expression and returns its integer value.
func (p *exprParser) Parse(expr string, r identifierResolver) (int64, error) {
	expr = strings.TrimSpace(strings.ToLower(expr))
	if expr == "" {
		return 0, errExprParse
	}

	pred := r.identifiers()
	expr = wordRegexp.ReplaceAllStringFunc(expr, func(word string) string {
		return p.rewriteLiteral(word, pred)
	})

	thread := starlark.Thread{Name: "expr"}
	thread.SetMaxExecutionSteps(maxExprSteps)
	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errExprParse, err)
	}

	switch v := dict["rc"].(type) {
	case starlark.Int:
		n, ok := v.Int64()
		if !ok {
			return 0, fmt.Errorf("value %s out of range", v.String())
		}
		return n, nil
	case starlark.Bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errExprParse
	}
}

// Convert assembler-style hexadecimal literals into starlark ones.
func (p *exprParser) rewriteLiteral(word string, pred starlark.StringDict) string {
	switch {
	case strings.HasPrefix(word, "$"):
		return "0x" + word[1:]
	case strings.HasPrefix(word, "0x"), strings.HasPrefix(word, "0b"), strings.HasPrefix(word, "0o"):
		return word
	case suffixRegexp.MatchString(word):
		return "0x" + word[:len(word)-1]
	case p.hexMode && hexRegexp.MatchString(word):
		if _, ok := pred[word]; !ok {
			return "0x" + word
		}
	}
	return word
}
