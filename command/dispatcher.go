package command

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"camelot/models"

	"github.com/sirupsen/logrus"
)

// Store is the persistence the commands run against. *database.Store
// implements it.
type Store interface {
	AccountExists(ctx context.Context, userID string) (bool, error)
	CheckCredentials(ctx context.Context, userID, password string) (bool, error)
	CreateAccount(ctx context.Context, userID, password string) error
	UpdatePassword(ctx context.Context, userID, password string) error
	DeleteAccount(ctx context.Context, userID string) ([]string, error)

	FindChannel(ctx context.Context, channelID string) (*models.Channel, error)
	ListChannels(ctx context.Context) ([]string, error)
	CreateChannel(ctx context.Context, channelID string, admin *string) error
	DeleteChannel(ctx context.Context, channelID string) error

	JoinChannels(ctx context.Context, userID string, channelIDs []string) error
	LeaveChannel(ctx context.Context, userID, channelID string) error
	IsMember(ctx context.Context, userID, channelID string) (bool, error)
	HasAnyMembership(ctx context.Context, userID string, channelIDs []string) (bool, error)
	UsersInChannel(ctx context.Context, channelID string) ([]string, error)
	ChannelsForUser(ctx context.Context, userID string) ([]string, error)
}

// Response is the outcome of one envelope. Body is always set; Err is nil on
// success.
type Response struct {
	Command string
	Body    []byte
	Err     error
}

// call carries one command invocation through its checks.
type call struct {
	ctx     context.Context
	store   Store
	session *Session
	body    payload

	// channel is set by the channelExists check.
	channel *models.Channel
}

type check func(c *call) error

type handler func(c *call) (any, error)

// command describes one entry of the command table. Checks run in order
// after the session gate and the schema, and the first failure wins.
type command struct {
	name   string
	gated  bool
	schema schema
	checks []check
	run    handler
}

// Dispatcher routes envelopes to commands.
type Dispatcher struct {
	store    Store
	log      *logrus.Logger
	metrics  *Metrics
	commands map[string]*command
}

type Option func(*Dispatcher)

func WithLogger(log *logrus.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func New(store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		commands: make(map[string]*command),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logrus.New()
		d.log.SetOutput(io.Discard)
	}

	for _, group := range [][]*command{accountCommands(), channelCommands(), messageCommands()} {
		for _, cmd := range group {
			d.commands[cmd.name] = cmd
		}
	}
	return d
}

// Commands lists the registered command names.
func (d *Dispatcher) Commands() []string {
	names := make([]string, 0, len(d.commands))
	for name := range d.commands {
		names = append(names, name)
	}
	return names
}

// Dispatch runs one envelope for session. A nil session is treated as
// logged out, and a login through it is not retained.
func (d *Dispatcher) Dispatch(ctx context.Context, session *Session, envelope []byte) Response {
	start := time.Now()
	if session == nil {
		session = &Session{}
	}
	user := session.User()

	name, raw, err := splitEnvelope(envelope)
	label := name
	var result any
	switch {
	case err != nil:
		label = labelInvalid
	default:
		cmd, ok := d.commands[name]
		if !ok {
			label = labelUnknown
			err = ErrUnknownCommand
			break
		}
		result, err = d.run(ctx, cmd, session, raw)
	}

	resp := d.respond(name, result, err)
	if user == "" {
		user = session.User()
	}
	d.record(label, user, resp.Err, time.Since(start))
	return resp
}

func (d *Dispatcher) run(ctx context.Context, cmd *command, session *Session, raw json.RawMessage) (any, error) {
	if cmd.gated {
		if err := d.gate(ctx, session); err != nil {
			return nil, err
		}
	}
	c := &call{ctx: ctx, store: d.store, session: session}
	if !cmd.schema(raw, &c.body) {
		return nil, ErrInvalidPayload
	}
	for _, chk := range cmd.checks {
		if err := chk(c); err != nil {
			return nil, err
		}
	}
	return cmd.run(c)
}

// gate admits a session only while its account exists. A session left
// naming a deleted account is logged out.
func (d *Dispatcher) gate(ctx context.Context, session *Session) error {
	if !session.LoggedIn() {
		return ErrSignedOut
	}
	exists, err := d.store.AccountExists(ctx, session.User())
	if err != nil {
		return err
	}
	if !exists {
		session.logout()
		return ErrSignedOut
	}
	return nil
}

func (d *Dispatcher) respond(name string, result any, err error) Response {
	if err != nil {
		var cmdErr *Error
		if !errors.As(err, &cmdErr) {
			err = storeFailure(err)
		}
		result = errorResponse{Error: err.Error()}
	}

	body, encErr := Encode(result)
	if encErr != nil {
		d.log.WithError(encErr).WithField("command", name).Error("encode response")
		err = storeFailure(encErr)
		body, _ = Encode(errorResponse{Error: err.Error()})
	}
	return Response{Command: name, Body: body, Err: err}
}

func (d *Dispatcher) record(label, user string, err error, elapsed time.Duration) {
	outcome := outcomeSuccess
	if err != nil {
		outcome = strings.ToLower(string(KindOf(err)))
	}
	d.metrics.observe(label, outcome, elapsed)

	entry := d.log.WithFields(logrus.Fields{
		"command": label,
		"user":    user,
		"outcome": outcome,
		"elapsed": elapsed,
	})
	switch {
	case err == nil:
		entry.Debug("command dispatched")
	case KindOf(err) == KindStoreFailure:
		entry.WithError(err).WithField("cause", causeOf(err)).Error("command failed")
	default:
		entry.WithField("kind", KindOf(err)).Info("command rejected")
	}
}

func causeOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Cause != nil {
		return e.Cause.Error()
	}
	return ""
}
