package filter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/octolist/octopus"
)

func newContact(t testing.TB, email string, status octopus.SubscriptionStatus, created time.Time, fields map[string]any) *octopus.Contact {
	t.Helper()
	c, err := octopus.NewContact("id-"+email, octopus.MustParseEmailAddress(email), status, created, fields)
	require.NoError(t, err)
	return c
}

// generateTestContacts creates count contacts cycling through statuses
func generateTestContacts(t testing.TB, count int) []*octopus.Contact {
	t.Helper()
	contacts := make([]*octopus.Contact, count)
	for i := range count {
		contacts[i] = newContact(t,
			fmt.Sprintf("user%d@example%d.com", i, i%3),
			octopus.SubscriptionStatuses[i%len(octopus.SubscriptionStatuses)],
			time.Now().AddDate(0, 0, -i),
			map[string]any{"Score": i % 10},
		)
	}
	return contacts
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name        string
		expression  string
		wantErr     bool
		errContains string
	}{
		{
			name:       "valid expression",
			expression: `subscribed`,
		},
		{
			name:        "empty expression",
			expression:  "   ",
			wantErr:     true,
			errContains: "empty expression",
		},
		{
			name:       "invalid syntax",
			expression: `containsFold(email, "unclosed`,
			wantErr:    true,
		},
		{
			name:       "unknown name",
			expression: `Watched == true`,
			wantErr:    true,
		},
		{
			name:       "non boolean result",
			expression: `email`,
			wantErr:    true,
		},
		{
			name:       "complex expression",
			expression: `subscribed and hasSuffixFold(email, "@example.com") and daysSince(createdAt) > 30 and hasField("FirstName")`,
		},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			if tt.wantErr {
				require.Error(t, err)
				var compErr *CompilationError
				assert.ErrorAs(t, err, &compErr)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expression, filter.Expression())
		})
	}
}

func TestFilterEvaluation(t *testing.T) {
	contact := newContact(t, "Ada@Example.com", octopus.StatusSubscribed, time.Now().AddDate(0, -3, 0), map[string]any{
		"FirstName": "Ada",
		"Age":       36,
		"Nick":      nil,
	})

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{"subscribed flag", `subscribed`, true},
		{"pending flag", `pending`, false},
		{"status code", `status == "SUBSCRIBED"`, true},
		{"email contains", `containsFold(email, "ada@")`, true},
		{"prefix ignores case", `hasPrefixFold(email, "ADA")`, true},
		{"suffix ignores case", `hasSuffixFold(email, "@EXAMPLE.COM")`, true},
		{"infix contains is case-sensitive", `email contains "ada@"`, false},
		{"infix endsWith", `email endsWith "@Example.com"`, true},
		{"infix startsWith", `email startsWith "Ada"`, true},
		{"domain", `domain == "example.com"`, true},
		{"field access", `fields.FirstName == "Ada"`, true},
		{"field helper comparison", `field("Age") >= 30`, true},
		{"has field", `hasField("FirstName")`, true},
		{"null field is absent", `hasField("Nick")`, false},
		{"missing field", `hasField("LastName")`, false},
		{"date comparison", `createdAt < daysAgo(30)`, true},
		{"days since", `daysSince(createdAt) > 100`, false},
		{"complex expression", `subscribed and hasPrefixFold(email, "ada") and not hasField("LastName")`, true},
	}

	compiler := NewExprCompiler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := compiler.Compile(tt.expression)
			require.NoError(t, err)

			got, err := filter.Evaluate(contact)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got, tt.expression)
		})
	}
}

func TestFilterEvaluation_RuntimeError(t *testing.T) {
	contact := newContact(t, "ada@example.com", octopus.StatusSubscribed, time.Now(), map[string]any{"Nick": nil})

	filter, err := NewExprCompiler().Compile(`field("Nick") > 3`)
	require.NoError(t, err)

	_, err = filter.Evaluate(contact)
	require.Error(t, err)

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "ada@example.com", evalErr.Email)
	assert.Equal(t, `field("Nick") > 3`, evalErr.Expression)
}

func TestConcurrentEvaluation(t *testing.T) {
	contacts := generateTestContacts(t, 1000)

	filter, err := NewExprCompiler().Compile(`subscribed and field("Score") > 4`)
	require.NoError(t, err)

	evaluator := NewConcurrentEvaluator(WithWorkers(4), WithBatchSize(50))
	sel, err := evaluator.Select(context.Background(), filter, contacts)
	require.NoError(t, err)
	assert.Empty(t, sel.Errors)

	var expected []*octopus.Contact
	for _, c := range contacts {
		ok, err := filter.Evaluate(c)
		require.NoError(t, err)
		if ok {
			expected = append(expected, c)
		}
	}
	require.NotEmpty(t, expected)
	assert.Equal(t, expected, sel.Matches)
}

func TestConcurrentEvaluation_CollectsErrors(t *testing.T) {
	contacts := []*octopus.Contact{
		newContact(t, "a@example.com", octopus.StatusSubscribed, time.Now(), map[string]any{"Score": 5}),
		newContact(t, "b@example.com", octopus.StatusSubscribed, time.Now(), map[string]any{"Score": nil}),
		newContact(t, "c@example.com", octopus.StatusSubscribed, time.Now(), map[string]any{"Score": 1}),
	}

	filter, err := NewExprCompiler().Compile(`field("Score") > 2`)
	require.NoError(t, err)

	sel, err := NewConcurrentEvaluator().Select(context.Background(), filter, contacts)
	require.NoError(t, err)
	require.Len(t, sel.Matches, 1)
	assert.Equal(t, "a@example.com", sel.Matches[0].EmailAddress().String())
	require.Len(t, sel.Errors, 1)
	assert.Equal(t, "b@example.com", sel.Errors[0].Email)
}

func TestConcurrentEvaluation_Cancelled(t *testing.T) {
	contacts := generateTestContacts(t, 500)
	filter, err := NewExprCompiler().Compile(`subscribed`)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewConcurrentEvaluator(WithBatchSize(10)).Select(ctx, filter, contacts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilterManager(t *testing.T) {
	manager := NewManager()
	ctx := context.Background()

	err := manager.RegisterFilters(map[string]string{
		"pending":  `pending`,
		"example0": `hasSuffixFold(email, "@example0.com")`,
		"stale":    `daysSince(createdAt) > 30`,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"example0", "pending", "stale"}, manager.ListFilters())

	filter, exists := manager.GetFilter("pending")
	require.True(t, exists)
	assert.Equal(t, "pending", filter.Expression())

	contacts := generateTestContacts(t, 100)
	sel, err := manager.Select(ctx, "pending", contacts)
	require.NoError(t, err)
	assert.Len(t, sel.Matches, 25)

	sel, err = manager.SelectExpression(ctx, `unsubscribed or cleaned`, contacts)
	require.NoError(t, err)
	assert.Len(t, sel.Matches, 50)

	_, err = manager.Select(ctx, "missing", contacts)
	assert.ErrorIs(t, err, ErrFilterNotFound)

	manager.UnregisterFilter("pending")
	_, exists = manager.GetFilter("pending")
	assert.False(t, exists)
}

func TestFilterManager_RegisterFiltersIsAtomic(t *testing.T) {
	manager := NewManager()

	err := manager.RegisterFilters(map[string]string{
		"good": `subscribed`,
		"bad":  `subscribed and`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'bad'")
	assert.Empty(t, manager.ListFilters())
}

func TestCacheEffectiveness(t *testing.T) {
	compiler := NewExprCompiler(WithCache(10))
	expression := `subscribed and hasField("FirstName")`

	first, err := compiler.Compile(expression)
	require.NoError(t, err)

	second, err := compiler.Compile(expression)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, compiler.Size())

	compiler.Clear()
	assert.Zero(t, compiler.Size())
}

func TestCustomFunctions(t *testing.T) {
	compiler := NewExprCompiler(WithCustomFunctions(map[string]any{
		"isCorporate": func(domain string) bool { return domain != "gmail.com" },
	}))

	filter, err := compiler.Compile(`isCorporate(domain)`)
	require.NoError(t, err)

	got, err := filter.Evaluate(newContact(t, "a@gmail.com", octopus.StatusSubscribed, time.Now(), nil))
	require.NoError(t, err)
	assert.False(t, got)
}
