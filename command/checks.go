package command

import (
	"camelot/database"

	"github.com/pkg/errors"
)

// selector picks an identifier out of an accepted payload.
type selector func(c *call) string

func field(key string) selector {
	return func(c *call) string {
		return c.body.fields[key]
	}
}

func bodyText(c *call) string {
	return c.body.text
}

func sessionUser(c *call) string {
	return c.session.User()
}

func validLength(sel selector, limit int, fail *Error) check {
	return func(c *call) error {
		if !ValidLength(sel(c), limit) {
			return fail
		}
		return nil
	}
}

func credentials(user, password selector) check {
	return func(c *call) error {
		ok, err := c.store.CheckCredentials(c.ctx, user(c), password(c))
		if err != nil {
			return err
		}
		if !ok {
			return ErrBadCredentials
		}
		return nil
	}
}

func usernameFree(user selector) check {
	return func(c *call) error {
		taken, err := c.store.AccountExists(c.ctx, user(c))
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}
		return nil
	}
}

func anyChannel(c *call) error {
	channels, err := c.store.ListChannels(c.ctx)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return ErrNoChannels
	}
	return nil
}

// channelExists loads the channel into c.channel for later checks.
func channelExists(name selector) check {
	return func(c *call) error {
		channel, err := c.store.FindChannel(c.ctx, name(c))
		if errors.Is(err, database.ErrNotFound) {
			return ErrChannelNotFound
		}
		if err != nil {
			return err
		}
		c.channel = channel
		return nil
	}
}

func channelAbsent(name selector) check {
	return func(c *call) error {
		_, err := c.store.FindChannel(c.ctx, name(c))
		switch {
		case err == nil:
			return ErrChannelExists
		case errors.Is(err, database.ErrNotFound):
			return nil
		default:
			return err
		}
	}
}

// Default channels have no admin, so nobody passes this for them.
func isAdmin(c *call) error {
	if !c.channel.AdministeredBy(c.session.User()) {
		return ErrNotAdmin
	}
	return nil
}

func isMember(c *call) error {
	member, err := c.store.IsMember(c.ctx, c.session.User(), c.channel.ChannelID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	return nil
}

func listNotEmpty(c *call) error {
	if len(c.body.list) == 0 {
		return ErrNoChannelsGiven
	}
	return nil
}

// distinctList drops repeated names, keeping the first of each, so a batch
// never conflicts with itself.
func distinctList(c *call) error {
	seen := make(map[string]struct{}, len(c.body.list))
	unique := c.body.list[:0]
	for _, name := range c.body.list {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	c.body.list = unique
	return nil
}

// allChannelsExist compares the requested names against every stored
// channel as a set.
func allChannelsExist(c *call) error {
	channels, err := c.store.ListChannels(c.ctx)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return ErrNoChannels
	}
	known := make(map[string]struct{}, len(channels))
	for _, channel := range channels {
		known[channel] = struct{}{}
	}
	for _, requested := range c.body.list {
		if _, ok := known[requested]; !ok {
			return ErrJoinUnknown
		}
	}
	return nil
}

func noneJoined(c *call) error {
	joined, err := c.store.HasAnyMembership(c.ctx, c.session.User(), c.body.list)
	if err != nil {
		return err
	}
	if joined {
		return ErrAlreadyJoined
	}
	return nil
}
