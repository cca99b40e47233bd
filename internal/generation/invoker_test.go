package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/escalateai/api/internal/complaint"
	"github.com/escalateai/api/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose view worker starts in init
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

const draftsJSON = `{
  "whatsapp_message": "Hi, my refund is still pending.",
  "email_subject": "Refund pending",
  "email_body": "Dear team, my refund is pending.",
  "escalation_subject": "Escalation: refund pending",
  "escalation_body": "I am escalating my complaint.",
  "followup_message": "Following up on my refund.",
  "tips": ["Keep the receipt"]
}`

const missingFieldJSON = `{
  "whatsapp_message": "Hi, my refund is still pending.",
  "email_subject": "Refund pending",
  "email_body": "Dear team, my refund is pending.",
  "escalation_subject": "Escalation: refund pending",
  "escalation_body": "I am escalating my complaint."
}`

var errFlaky = errors.New("connection reset by peer")

// step is one scripted backend reply. A nil fn means "return text, err".
type step struct {
	text string
	err  error
	fn   func(ctx context.Context) (string, error)
}

func ok(text string) step { return step{text: text} }

func fail(err error) step { return step{err: err} }

func transient(n int) []step {
	steps := make([]step, n)
	for i := range steps {
		steps[i] = fail(llm.Transient("m", 0, errFlaky))
	}
	return steps
}

type fakeBackend struct {
	mu    sync.Mutex
	model string
	steps []step
	calls int
}

func newFakeBackend(model string, steps ...step) *fakeBackend {
	return &fakeBackend{model: model, steps: steps}
}

func (f *fakeBackend) Model() string { return f.model }

func (f *fakeBackend) Generate(ctx context.Context, _ complaint.Prompt) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()

	if i >= len(f.steps) {
		return "", llm.Transient(f.model, 503, fmt.Errorf("unscripted call %d", i+1))
	}
	s := f.steps[i]
	if s.fn != nil {
		return s.fn(ctx)
	}
	return s.text, s.err
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

type memRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
}

func (r *memRecorder) RecordAttempt(a Attempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *memRecorder) outcomes() []AttemptOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AttemptOutcome, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, a.Outcome)
	}
	return out
}

func testConfig(attempts int) InvokerConfig {
	return InvokerConfig{
		MaxAttempts:    attempts,
		AttemptTimeout: time.Second,
		Backoff: BackoffConfig{
			Initial:    10 * time.Millisecond,
			Max:        time.Second,
			Multiplier: 2,
		},
	}
}

func newTestInvoker(t *testing.T, cfg InvokerConfig, primary, fallback llm.Backend) (*Invoker, *fakeSleeper, *memRecorder) {
	t.Helper()
	sleeper := &fakeSleeper{}
	rec := &memRecorder{}
	inv := NewInvoker(cfg, primary, fallback,
		WithSleeper(sleeper),
		WithRecorder(rec),
		WithLogger(zaptest.NewLogger(t)),
	)
	return inv, sleeper, rec
}

var testPrompt = complaint.Prompt{System: "system", User: "user"}

func TestInvoke_RecoversFromTransientFailures(t *testing.T) {
	for _, budget := range []int{2, 3, 5} {
		for k := 0; k < budget; k++ {
			t.Run(fmt.Sprintf("budget=%d/failures=%d", budget, k), func(t *testing.T) {
				primary := newFakeBackend("primary-model", append(transient(k), ok(draftsJSON))...)
				fallback := newFakeBackend("fallback-model", ok(draftsJSON))
				inv, sleeper, _ := newTestInvoker(t, testConfig(budget), primary, fallback)

				out, err := inv.Invoke(context.Background(), testPrompt)
				require.NoError(t, err)
				assert.Equal(t, RolePrimary, out.Role)
				assert.Equal(t, "primary-model", out.Model)
				assert.Equal(t, k+1, out.Attempts)
				assert.Equal(t, "Refund pending", out.Drafts.EmailSubject)

				assert.Equal(t, k+1, primary.Calls())
				assert.Zero(t, fallback.Calls())
				assert.Len(t, sleeper.delays, k)
			})
		}
	}
}

func TestInvoke_FallsBackAfterPrimaryExhausted(t *testing.T) {
	for _, budget := range []int{2, 4} {
		t.Run(fmt.Sprintf("budget=%d", budget), func(t *testing.T) {
			primary := newFakeBackend("primary-model", transient(budget)...)
			fallback := newFakeBackend("fallback-model", ok(draftsJSON))
			inv, _, rec := newTestInvoker(t, testConfig(budget), primary, fallback)

			out, err := inv.Invoke(context.Background(), testPrompt)
			require.NoError(t, err)
			assert.Equal(t, RoleFallback, out.Role)
			assert.Equal(t, "fallback-model", out.Model)
			assert.Equal(t, budget+1, out.Attempts)
			assert.Equal(t, budget, primary.Calls())
			assert.Equal(t, 1, fallback.Calls())

			outcomes := rec.outcomes()
			require.Len(t, outcomes, budget+1)
			assert.Equal(t, OutcomeSuccess, outcomes[budget])
		})
	}
}

func TestInvoke_SchemaViolationConsumesAttempt(t *testing.T) {
	primary := newFakeBackend("primary-model", ok(missingFieldJSON), ok(draftsJSON))
	fallback := newFakeBackend("fallback-model")
	inv, sleeper, rec := newTestInvoker(t, testConfig(2), primary, fallback)

	out, err := inv.Invoke(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, RolePrimary, out.Role)
	assert.Equal(t, 2, out.Attempts)
	assert.Zero(t, fallback.Calls())
	assert.Len(t, sleeper.delays, 1)
	assert.Equal(t, []AttemptOutcome{OutcomeSchema, OutcomeSuccess}, rec.outcomes())

	var sv *complaint.SchemaViolation
	require.True(t, errors.As(rec.attempts[0].Err, &sv))
	assert.Equal(t, complaint.FieldFollowup, sv.Fields[0].Field)
}

func TestInvoke_SchemaViolationsExhaustPrimary(t *testing.T) {
	primary := newFakeBackend("primary-model", ok(missingFieldJSON), ok("I cannot answer in JSON."))
	fallback := newFakeBackend("fallback-model", ok("```json\n"+draftsJSON+"\n```"))
	inv, _, _ := newTestInvoker(t, testConfig(2), primary, fallback)

	out, err := inv.Invoke(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, RoleFallback, out.Role)
	assert.Equal(t, 2, primary.Calls())
}

func TestInvoke_BothBackendsExhausted(t *testing.T) {
	primary := newFakeBackend("primary-model", transient(3)...)
	fallback := newFakeBackend("fallback-model", transient(3)...)
	inv, _, rec := newTestInvoker(t, testConfig(3), primary, fallback)

	out, err := inv.Invoke(context.Background(), testPrompt)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, errFlaky)

	var uerr *UnavailableError
	require.True(t, errors.As(err, &uerr))
	assert.Error(t, uerr.PrimaryErr)
	assert.Error(t, uerr.FallbackErr)

	assert.Equal(t, 3, primary.Calls())
	assert.Equal(t, 3, fallback.Calls())
	assert.Len(t, rec.outcomes(), 6)
	for _, o := range rec.outcomes() {
		assert.Equal(t, OutcomeTransient, o)
	}
}

func TestInvoke_PermanentErrorSkipsRemainingAttempts(t *testing.T) {
	primary := newFakeBackend("primary-model", fail(llm.Permanent("primary-model", 401, errors.New("invalid key"))))
	fallback := newFakeBackend("fallback-model", ok(draftsJSON))
	inv, sleeper, rec := newTestInvoker(t, testConfig(3), primary, fallback)

	out, err := inv.Invoke(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, RoleFallback, out.Role)
	assert.Equal(t, 1, primary.Calls())
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, []AttemptOutcome{OutcomePermanent, OutcomeSuccess}, rec.outcomes())
}

func TestInvoke_NoFallbackConfigured(t *testing.T) {
	primary := newFakeBackend("primary-model", transient(2)...)
	inv, _, _ := newTestInvoker(t, testConfig(2), primary, nil)

	_, err := inv.Invoke(context.Background(), testPrompt)
	var uerr *UnavailableError
	require.True(t, errors.As(err, &uerr))
	assert.ErrorIs(t, uerr.FallbackErr, errNoFallback)
	assert.Equal(t, 2, primary.Calls())
}

func TestInvoke_BackoffFollowsConfiguredSchedule(t *testing.T) {
	cases := []struct {
		name    string
		backoff BackoffConfig
		budget  int
		want    []time.Duration
	}{
		{
			name:    "doubling capped",
			backoff: BackoffConfig{Initial: 100 * time.Millisecond, Max: 300 * time.Millisecond, Multiplier: 2},
			budget:  4,
			want:    []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond},
		},
		{
			name:    "fixed",
			backoff: BackoffConfig{Initial: 50 * time.Millisecond, Max: 50 * time.Millisecond, Multiplier: 1},
			budget:  3,
			want:    []time.Duration{50 * time.Millisecond, 50 * time.Millisecond},
		},
		{
			name:    "no delay",
			backoff: BackoffConfig{Initial: 0, Max: 0, Multiplier: 2},
			budget:  3,
			want:    []time.Duration{0, 0},
		},
		{
			name:    "tripling",
			backoff: BackoffConfig{Initial: 10 * time.Millisecond, Max: time.Second, Multiplier: 3},
			budget:  3,
			want:    []time.Duration{10 * time.Millisecond, 30 * time.Millisecond},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(tc.budget)
			cfg.Backoff = tc.backoff
			primary := newFakeBackend("primary-model", transient(tc.budget)...)
			fallback := newFakeBackend("fallback-model", transient(tc.budget)...)
			inv, sleeper, _ := newTestInvoker(t, cfg, primary, fallback)

			_, err := inv.Invoke(context.Background(), testPrompt)
			require.ErrorIs(t, err, ErrGenerationUnavailable)

			// the schedule restarts for the fallback backend
			want := append(append([]time.Duration{}, tc.want...), tc.want...)
			assert.Equal(t, want, sleeper.delays)
		})
	}
}

func TestInvoke_JitterStaysWithinFactor(t *testing.T) {
	cfg := testConfig(2)
	cfg.Backoff = BackoffConfig{Initial: 100 * time.Millisecond, Max: time.Second, Multiplier: 2, RandomizationFactor: 0.5}
	primary := newFakeBackend("primary-model", transient(2)...)
	fallback := newFakeBackend("fallback-model", transient(2)...)
	inv, sleeper, _ := newTestInvoker(t, cfg, primary, fallback)

	_, err := inv.Invoke(context.Background(), testPrompt)
	require.Error(t, err)
	require.Len(t, sleeper.delays, 2)
	for _, d := range sleeper.delays {
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestInvoke_AttemptTimeoutIsRetried(t *testing.T) {
	hang := step{fn: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	primary := newFakeBackend("primary-model", hang, ok(draftsJSON))
	fallback := newFakeBackend("fallback-model")
	cfg := testConfig(2)
	cfg.AttemptTimeout = 20 * time.Millisecond
	inv, _, rec := newTestInvoker(t, cfg, primary, fallback)

	out, err := inv.Invoke(context.Background(), testPrompt)
	require.NoError(t, err)
	assert.Equal(t, RolePrimary, out.Role)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, []AttemptOutcome{OutcomeTransient, OutcomeSuccess}, rec.outcomes())
	assert.ErrorIs(t, rec.attempts[0].Err, context.DeadlineExceeded)
	assert.False(t, llm.IsPermanent(rec.attempts[0].Err))
}

func TestInvoke_CancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	primary := newFakeBackend("primary-model", step{fn: func(ctx context.Context) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}})
	fallback := newFakeBackend("fallback-model", ok(draftsJSON))
	inv, sleeper, rec := newTestInvoker(t, testConfig(3), primary, fallback)

	out, err := inv.Invoke(ctx, testPrompt)
	require.Error(t, err)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrGenerationUnavailable)

	assert.Equal(t, 1, primary.Calls())
	assert.Zero(t, fallback.Calls())
	assert.Empty(t, sleeper.delays)
	assert.Equal(t, []AttemptOutcome{OutcomeCancelled}, rec.outcomes())
}

func TestInvoke_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := newFakeBackend("primary-model", ok(draftsJSON))
	inv, _, _ := newTestInvoker(t, testConfig(2), primary, nil)

	_, err := inv.Invoke(ctx, testPrompt)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, primary.Calls())
}

func TestTimerSleeper(t *testing.T) {
	var s timerSleeper
	assert.NoError(t, s.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, s.Sleep(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
