package command

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"camelot/database"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*database.Store)(nil)

var defaultChannels = []string{"Server Team", "Client Team", "Software Eng. Group"}

type fixture struct {
	t          *testing.T
	store      *database.Store
	dispatcher *Dispatcher
	metrics    *Metrics
	logs       *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, filepath.Join(t.TempDir(), "camelot.db"), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	metrics := NewMetrics(prometheus.NewRegistry())
	store := database.NewStore(db)

	return &fixture{
		t:          t,
		store:      store,
		dispatcher: New(store, WithLogger(log), WithMetrics(metrics)),
		metrics:    metrics,
		logs:       hook,
	}
}

func (f *fixture) seedDefaults() {
	f.t.Helper()
	for _, name := range defaultChannels {
		require.NoError(f.t, f.store.CreateChannel(context.Background(), name, nil))
	}
}

func (f *fixture) send(s *Session, envelope string) Response {
	f.t.Helper()
	return f.dispatcher.Dispatch(context.Background(), s, []byte(envelope))
}

// expect asserts the exact serialized response.
func (f *fixture) expect(s *Session, envelope, want string) Response {
	f.t.Helper()
	resp := f.send(s, envelope)
	assert.Equal(f.t, want, string(resp.Body), "envelope %s", envelope)
	return resp
}

func (f *fixture) expectError(s *Session, envelope string, want *Error) {
	f.t.Helper()
	resp := f.expect(s, envelope, errorBody(want.Message))
	assert.ErrorIs(f.t, resp.Err, want)
}

func (f *fixture) signup(user, pass string) {
	f.t.Helper()
	require.NoError(f.t, f.store.CreateAccount(context.Background(), user, pass))
}

// loggedIn creates the account and logs a new session into it.
func (f *fixture) loggedIn(user string) *Session {
	f.t.Helper()
	f.signup(user, "secret")
	s := &Session{}
	resp := f.send(s, `{"login": {"username": "`+user+`", "password": "secret"}}`)
	require.NoError(f.t, resp.Err)
	require.Equal(f.t, user, s.User())
	return s
}

func errorBody(message string) string {
	return "{\n    \"error\": \"" + message + "\"\n}"
}

func successBody(message string) string {
	return "{\n    \"success\": \"" + message + "\"\n}"
}

// list renders items the way the encoder nests a string array at depth.
func list(depth int, items ...string) string {
	if len(items) == 0 {
		return "[]"
	}
	pad := strings.Repeat("    ", depth+1)
	var b strings.Builder
	b.WriteString("[\n")
	for i, item := range items {
		b.WriteString(pad + `"` + item + `"`)
		if i < len(items)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("    ", depth) + "]")
	return b.String()
}

func channelsBody(channels ...string) string {
	return "{\n    \"channels\": " + list(1, channels...) + "\n}"
}

func TestDispatchRejectsMalformedEnvelopes(t *testing.T) {
	f := newFixture(t)

	for _, envelope := range []string{
		``,
		`not json`,
		`[]`,
		`"login"`,
		`{}`,
		`{"login": {"username": "a", "password": "b"}, "logout": ""}`,
		`{"login": {"username": "a", "password": "b"}`,
	} {
		resp := f.send(&Session{}, envelope)
		assert.Equal(t, errorBody(ErrInvalidPayload.Message), string(resp.Body), "envelope %q", envelope)
		assert.Equal(t, KindSchema, KindOf(resp.Err))
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	f := newFixture(t)
	resp := f.send(&Session{}, `{"shutdown": ""}`)
	assert.Equal(t, errorBody(ErrUnknownCommand.Message), string(resp.Body))
	assert.Equal(t, KindUnknownCommand, KindOf(resp.Err))
	assert.Equal(t, "shutdown", resp.Command)
}

func TestDispatchRegistersEveryCommand(t *testing.T) {
	f := newFixture(t)
	assert.ElementsMatch(t, []string{
		"create_account", "login", "logout", "change_password", "delete_account",
		"create_channel", "delete_channel", "join_channel", "leave_channel",
		"get_users_in_channel", "get_channels_for_user", "new_message",
	}, f.dispatcher.Commands())
}

func TestGatedCommandsRequireSession(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()

	// The gate runs before the schema, so even malformed payloads report it.
	for _, envelope := range []string{
		`{"logout": ""}`,
		`{"new_message": 42}`,
		`{"join_channel": ["Server Team"]}`,
		`{"create_channel": {"bad": "shape"}}`,
		`{"delete_channel": "Server Team"}`,
		`{"get_users_in_channel": "Server Team"}`,
		`{"leave_channel": "Server Team"}`,
		`{"get_channels_for_user": ""}`,
	} {
		f.expectError(&Session{}, envelope, ErrSignedOut)
		f.expectError(nil, envelope, ErrSignedOut)
	}
}

func TestSchemaShapes(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()
	s := f.loggedIn("alice")

	for _, envelope := range []string{
		`{"create_account": {"username": "a"}}`,
		`{"create_account": {"username": "a", "password": "b", "extra": "c"}}`,
		`{"create_account": {"username": "a", "password": 7}}`,
		`{"create_account": {"username": null, "password": "b"}}`,
		`{"create_account": ["a", "b"]}`,
		`{"login": "alice"}`,
		`{"change_password": {"username": "a", "password": "b"}}`,
		`{"delete_account": {"username_invalid": "a", "password": "b"}}`,
		`{"create_channel": ["X"]}`,
		`{"create_channel": 12}`,
		`{"create_channel": null}`,
		`{"delete_channel": {"channel": "X"}}`,
		`{"join_channel": "X"}`,
		`{"join_channel": ["X", 1]}`,
		`{"leave_channel": true}`,
		`{"get_users_in_channel": []}`,
		`{"get_channels_for_user": {}}`,
		`{"logout": []}`,
		`{"new_message": {"channel_receiving_message": "X", "user": "alice", "message": "hi"}}`,
	} {
		f.expectError(s, envelope, ErrInvalidPayload)
	}
	assert.Equal(t, "alice", s.User())
}

func TestFailedCommandLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()
	s := f.loggedIn("alice")
	f.signup("bob", "secret")

	f.expectError(s, `{"login": {"username": "bob", "password": "wrong"}}`, ErrBadCredentials)
	assert.Equal(t, "alice", s.User())

	f.expectError(s, `{"delete_channel": "Server Team"}`, ErrNotAdmin)
	assert.Equal(t, "alice", s.User())
}

func TestLoginReplacesIdentity(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()
	s := f.loggedIn("alice")
	f.signup("bob", "secret")

	resp := f.send(s, `{"login": {"username": "bob", "password": "secret"}}`)
	require.NoError(t, resp.Err)
	assert.Equal(t, "bob", s.User())
}

func TestSessionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()
	alice := f.loggedIn("alice")
	anonymous := &Session{}

	f.expectError(anonymous, `{"get_channels_for_user": ""}`, ErrSignedOut)
	f.expect(alice, `{"logout": ""}`, successBody("alice has successfully logged out."))
	assert.False(t, alice.LoggedIn())
	assert.False(t, anonymous.LoggedIn())
}

func TestStoreFailureIsReturnedNotFatal(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()
	s := f.loggedIn("alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := f.dispatcher.Dispatch(ctx, s, []byte(`{"get_channels_for_user": ""}`))
	assert.Equal(t, errorBody("The database could not complete the request."), string(resp.Body))
	assert.Equal(t, KindStoreFailure, KindOf(resp.Err))
	assert.Error(t, errors.Unwrap(resp.Err))

	f.expect(s, `{"get_channels_for_user": ""}`, channelsBody(defaultChannels...))
}

func TestDispatchRecordsMetrics(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()
	s := f.loggedIn("alice")

	f.send(s, `{"get_channels_for_user": ""}`)
	f.send(&Session{}, `{"get_channels_for_user": ""}`)
	f.send(s, `{"nope": ""}`)
	f.send(s, `{`)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("get_channels_for_user", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("get_channels_for_user", "session")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("unknown", "unknown_command")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Commands.WithLabelValues("invalid", "schema")))
	assert.Equal(t, 4, testutil.CollectAndCount(f.metrics.Duration, "camelot_command_duration_seconds"))
}

func TestDispatchLogsOutcome(t *testing.T) {
	f := newFixture(t)
	f.seedDefaults()
	s := f.loggedIn("alice")
	f.logs.Reset()

	f.send(s, `{"delete_channel": "Server Team"}`)

	entry := f.logs.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "delete_channel", entry.Data["command"])
	assert.Equal(t, "alice", entry.Data["user"])
	assert.Equal(t, "authz", entry.Data["outcome"])
	assert.Equal(t, KindAuthz, entry.Data["kind"])
}

func TestNewWithoutOptions(t *testing.T) {
	f := newFixture(t)
	d := New(f.store)
	resp := d.Dispatch(context.Background(), &Session{}, []byte(`{"logout": ""}`))
	assert.True(t, bytes.Contains(resp.Body, []byte(ErrSignedOut.Message)))
}
