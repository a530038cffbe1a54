package bulk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/octolist/octopus"
)

// fakeAPI answers per address from fixed tables. Only the operations the
// processor uses are meaningful.
type fakeAPI struct {
	octopus.API

	results  map[string]octopus.SubscriptionResult
	contacts map[string]*octopus.Contact
	errs     map[string]error
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	mu          sync.Mutex
	calls       []string
}

func (f *fakeAPI) enter(email octopus.EmailAddress) func() {
	n := f.inFlight.Add(1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, email.String())
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeAPI) Subscribe(_ context.Context, email octopus.EmailAddress, _ octopus.ListID, _ ...octopus.ContactOption) (octopus.SubscriptionResult, error) {
	defer f.enter(email)()
	if err := f.errs[email.String()]; err != nil {
		return 0, err
	}
	if r, ok := f.results[email.String()]; ok {
		return r, nil
	}
	return octopus.SubscriptionSubscribed, nil
}

func (f *fakeAPI) FindListContactByEmailAddress(_ context.Context, email octopus.EmailAddress, _ octopus.ListID) (*octopus.Contact, error) {
	defer f.enter(email)()
	if err := f.errs[email.String()]; err != nil {
		return nil, err
	}
	if c, ok := f.contacts[email.String()]; ok {
		return c, nil
	}
	return nil, &octopus.Error{Kind: octopus.KindMemberNotFound, Message: "not found"}
}

func emails(t *testing.T, raw ...string) []octopus.EmailAddress {
	t.Helper()
	out := make([]octopus.EmailAddress, 0, len(raw))
	for _, r := range raw {
		e, err := octopus.ParseEmailAddress(r)
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

var testList = octopus.MustParseListID("list")

func TestNewProcessor_Concurrency(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultConcurrency},
		{-3, DefaultConcurrency},
		{7, 7},
		{100, MaxConcurrency},
	}
	for _, tt := range tests {
		p := NewProcessor(&fakeAPI{}, tt.in, zerolog.Nop())
		assert.Equal(t, tt.want, p.concurrency)
	}
}

func TestProcessor_Subscribe(t *testing.T) {
	boom := errors.New("boom")
	api := &fakeAPI{
		results: map[string]octopus.SubscriptionResult{
			"pending@example.com":  octopus.SubscriptionPending,
			"existing@example.com": octopus.SubscriptionAlreadySubscribed,
		},
		errs: map[string]error{"broken@example.com": boom},
	}
	p := NewProcessor(api, 3, zerolog.Nop())

	input := emails(t, "new@example.com", "pending@example.com", "broken@example.com", "existing@example.com")
	result, err := p.Subscribe(context.Background(), testList, input)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Requested)
	assert.Equal(t, 1, result.Subscribed)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, 1, result.AlreadySubscribed)

	require.Len(t, result.Outcomes, 4)
	for i, o := range result.Outcomes {
		assert.Equal(t, input[i], o.Email)
	}

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "broken@example.com", failed[0].Email.String())
	assert.ErrorIs(t, failed[0].Err, boom)
}

func TestProcessor_SubscribeEmpty(t *testing.T) {
	api := &fakeAPI{}
	result, err := NewProcessor(api, 2, zerolog.Nop()).Subscribe(context.Background(), testList, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Requested)
	assert.Empty(t, api.calls)
}

func TestProcessor_RespectsConcurrencyLimit(t *testing.T) {
	api := &fakeAPI{delay: 10 * time.Millisecond}
	p := NewProcessor(api, 2, zerolog.Nop())

	raw := make([]string, 10)
	for i := range raw {
		raw[i] = "user" + string(rune('a'+i)) + "@example.com"
	}
	_, err := p.Subscribe(context.Background(), testList, emails(t, raw...))
	require.NoError(t, err)

	assert.LessOrEqual(t, api.maxInFlight.Load(), int32(2))
	assert.Len(t, api.calls, 10)
}

func TestProcessor_CancelledContext(t *testing.T) {
	api := &fakeAPI{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProcessor(api, 2, zerolog.Nop()).Subscribe(ctx, testList, emails(t, "a@example.com", "b@example.com"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.calls)
}

func TestProcessor_Find(t *testing.T) {
	boom := errors.New("boom")
	contact := &octopus.Contact{}
	api := &fakeAPI{
		contacts: map[string]*octopus.Contact{"found@example.com": contact},
		errs:     map[string]error{"broken@example.com": boom},
	}
	p := NewProcessor(api, 4, zerolog.Nop())

	result, err := p.Find(context.Background(), testList, emails(t, "found@example.com", "missing@example.com", "broken@example.com"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Found)
	assert.Equal(t, 1, result.Missing)
	assert.Equal(t, []*octopus.Contact{contact}, result.Contacts())

	require.Len(t, result.Failed(), 1)
	assert.ErrorIs(t, result.Failed()[0].Err, boom)
	assert.NoError(t, result.Outcomes[1].Err)
	assert.Nil(t, result.Outcomes[1].Contact)
}

func TestReadAddresses(t *testing.T) {
	input := strings.Join([]string{
		"# exported 2024-01-01",
		"first@example.com",
		"",
		"  second@example.com  ",
		"not-an-address",
		"FIRST@example.com",
		"third@example.org",
	}, "\n")

	got, invalid, err := ReadAddresses(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, "first@example.com", got[0].String())
	assert.Equal(t, "second@example.com", got[1].String())
	assert.Equal(t, "third@example.org", got[2].String())

	require.Len(t, invalid, 1)
	assert.Equal(t, 5, invalid[0].Line)
	assert.Equal(t, "not-an-address", invalid[0].Value)
	assert.True(t, octopus.IsAssertionFailed(invalid[0]))
	assert.Contains(t, invalid[0].Error(), "line 5")
}
