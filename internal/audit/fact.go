package audit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"
)

// Name is a Mangle name constant such as /critical.
type Name string

// Fact is one extensional atom generated from a preview.
type Fact struct {
	Predicate string
	Args      []interface{}
}

// String renders the fact in Mangle source syntax.
func (f Fact) String() string {
	args := make([]string, 0, len(f.Args))
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case Name:
			if isName(string(v)) {
				args = append(args, string(v))
			} else {
				args = append(args, strconv.Quote(string(v)))
			}
		case string:
			args = append(args, strconv.Quote(v))
		case int:
			args = append(args, strconv.Itoa(v))
		case int64:
			args = append(args, strconv.FormatInt(v, 10))
		case float64:
			if n, ok := integral(v); ok {
				args = append(args, strconv.FormatInt(n, 10))
			} else {
				args = append(args, strconv.FormatFloat(v, 'g', -1, 64))
			}
		case bool:
			if v {
				args = append(args, "/true")
			} else {
				args = append(args, "/false")
			}
		default:
			args = append(args, strconv.Quote(fmt.Sprintf("%v", v)))
		}
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

// ToAtom converts the fact for direct store insertion.
func (f Fact) ToAtom() (ast.Atom, error) {
	terms := make([]ast.BaseTerm, 0, len(f.Args))
	for _, arg := range f.Args {
		switch v := arg.(type) {
		case Name:
			if !isName(string(v)) {
				terms = append(terms, ast.String(string(v)))
				continue
			}
			c, err := ast.Name(string(v))
			if err != nil {
				return ast.Atom{}, err
			}
			terms = append(terms, c)
		case string:
			terms = append(terms, ast.String(v))
		case int:
			terms = append(terms, ast.Number(int64(v)))
		case int64:
			terms = append(terms, ast.Number(v))
		case float64:
			if n, ok := integral(v); ok {
				terms = append(terms, ast.Number(n))
			} else {
				terms = append(terms, ast.Float64(v))
			}
		case bool:
			if v {
				terms = append(terms, ast.TrueConstant)
			} else {
				terms = append(terms, ast.FalseConstant)
			}
		default:
			return ast.Atom{}, fmt.Errorf("unsupported argument type %T in %s", arg, f.Predicate)
		}
	}
	return ast.NewAtom(f.Predicate, terms...), nil
}

// nameSegment is what a single-segment name constant may contain.
var nameSegment = regexp.MustCompile(`^/[A-Za-z0-9_]+$`)

// isName reports whether v is a single-segment name constant that renders
// as valid Mangle source.
func isName(v string) bool {
	if !nameSegment.MatchString(v) {
		return false
	}
	_, err := ast.Name(v)
	return err == nil
}

// integral returns v as an int64 when it has no fractional part.
func integral(v float64) (int64, bool) {
	if v != math.Trunc(v) || math.Abs(v) > 1<<53 {
		return 0, false
	}
	return int64(v), true
}

// termToValue converts a Mangle term to a plain Go value.
func termToValue(term ast.BaseTerm) interface{} {
	c, ok := term.(ast.Constant)
	if !ok {
		return fmt.Sprintf("%v", term)
	}
	switch c.Type {
	case ast.NameType:
		switch c.Symbol {
		case "/true":
			return true
		case "/false":
			return false
		}
		return c.Symbol
	case ast.StringType:
		return c.Symbol
	case ast.NumberType:
		return c.NumValue
	case ast.Float64Type:
		return c.Float64Value
	default:
		return c.String()
	}
}
