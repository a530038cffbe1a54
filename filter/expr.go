package filter

import (
	"maps"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/octolist/octopus"
)

// DefaultCacheSize is the number of compiled expressions kept by default
const DefaultCacheSize = 100

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression string
	program    *vm.Program
	helpers    map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size > 0 {
			c.cache = newLRUCache[CompiledFilter](size)
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.helperFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) CachingCompiler {
	c := &exprCompiler{
		helperFuncs: createHelperFunctions(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	helperFuncs map[string]any
	cache       *lruCache[CompiledFilter]
}

// Compile compiles an expression into an executable filter. Names that are
// neither contact properties nor helpers are rejected here rather than at
// evaluation time.
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnvironment(c.helperFuncs, nil)),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression: expression,
		program:    program,
		helpers:    c.helperFuncs,
	}

	if c.cache != nil {
		c.cache.Put(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Size()
	}
	return 0
}

// Evaluate runs the program against a single contact
func (f *exprFilter) Evaluate(contact *octopus.Contact) (bool, error) {
	result, err := expr.Run(f.program, newEnvironment(f.helpers, contact))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Email:      contact.EmailAddress().String(),
			Err:        err,
		}
	}
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

func createHelperFunctions() map[string]any {
	funcs := make(map[string]any, 16)

	// Date helpers
	funcs["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	funcs["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	funcs["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	funcs["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse(time.DateOnly, dateStr)
		return t
	}
	funcs["now"] = time.Now

	// Case-insensitive string helpers. The plain names are expr operators.
	funcs["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	funcs["hasPrefixFold"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	funcs["hasSuffixFold"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
	funcs["lower"] = strings.ToLower
	funcs["upper"] = strings.ToUpper

	return funcs
}

// newEnvironment builds the variables visible to an expression. A nil
// contact yields zero values of the right types, used for type checking.
func newEnvironment(helpers map[string]any, contact *octopus.Contact) map[string]any {
	env := make(map[string]any, len(helpers)+16)
	maps.Copy(env, helpers)

	var (
		id, email, domain string
		status            octopus.SubscriptionStatus
		createdAt         time.Time
		fields            = map[string]any{}
	)
	if contact != nil {
		id = contact.ID()
		email = contact.EmailAddress().String()
		if at := strings.LastIndexByte(email, '@'); at >= 0 {
			domain = strings.ToLower(email[at+1:])
		}
		status = contact.Status()
		createdAt = contact.CreatedAt()
		fields = contact.Fields().Map()
	}

	env["id"] = id
	env["email"] = email
	env["domain"] = domain
	env["status"] = status.String()
	env["createdAt"] = createdAt
	env["fields"] = fields

	env["subscribed"] = status == octopus.StatusSubscribed
	env["pending"] = status == octopus.StatusPending
	env["unsubscribed"] = status == octopus.StatusUnsubscribed
	env["cleaned"] = status == octopus.StatusCleaned

	env["hasField"] = func(name string) bool {
		v, ok := fields[name]
		return ok && v != nil
	}
	env["field"] = func(name string) any {
		return fields[name]
	}

	return env
}
