package command

import (
	"fmt"

	"camelot/database"

	"github.com/pkg/errors"
)

type channelEvent struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

type channelCreatedResponse struct {
	ChannelCreated channelEvent `json:"channel_created"`
}

type channelDeletedResponse struct {
	ChannelDeleted channelEvent `json:"channel_deleted"`
}

type channelsJoinedResponse struct {
	ChannelsJoined []string `json:"channels_joined"`
	User           string   `json:"user"`
}

type leftChannel struct {
	Channel string `json:"channel"`
	User    string `json:"user"`
	Message string `json:"message"`
}

type leaveChannelResponse struct {
	LeaveChannel leftChannel `json:"leave_channel"`
}

type channelUsers struct {
	Channel string   `json:"channel"`
	Users   []string `json:"users"`
}

type usersInChannelResponse struct {
	UsersInChannel channelUsers `json:"users_in_channel"`
}

func channelCommands() []*command {
	return []*command{
		{
			name:   "create_channel",
			gated:  true,
			schema: jsonString(),
			checks: []check{
				channelAbsent(bodyText),
				validLength(bodyText, ChannelNameLimit, ErrChannelNameLength),
			},
			run: createChannel,
		},
		{
			name:   "delete_channel",
			gated:  true,
			schema: jsonString(),
			checks: []check{
				channelExists(bodyText),
				isAdmin,
			},
			run: deleteChannel,
		},
		{
			name:   "join_channel",
			gated:  true,
			schema: jsonStringList(),
			checks: []check{
				listNotEmpty,
				distinctList,
				allChannelsExist,
				noneJoined,
			},
			run: joinChannel,
		},
		{
			name:   "leave_channel",
			gated:  true,
			schema: jsonString(),
			checks: []check{
				channelExists(bodyText),
			},
			run: leaveChannel,
		},
		{
			name:   "get_users_in_channel",
			gated:  true,
			schema: jsonString(),
			checks: []check{
				channelExists(bodyText),
			},
			run: usersInChannel,
		},
		{
			name:   "get_channels_for_user",
			gated:  true,
			schema: jsonScalar(),
			run:    channelsForUser,
		},
	}
}

func createChannel(c *call) (any, error) {
	name := bodyText(c)
	admin := sessionUser(c)
	err := c.store.CreateChannel(c.ctx, name, &admin)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrChannelExists
	}
	if err != nil {
		return nil, err
	}
	return channelCreatedResponse{ChannelCreated: channelEvent{
		Channel: name,
		Message: fmt.Sprintf("A new channel has been created: '%s'.", name),
	}}, nil
}

func deleteChannel(c *call) (any, error) {
	name := c.channel.ChannelID
	if err := c.store.DeleteChannel(c.ctx, name); err != nil {
		return nil, err
	}
	return channelDeletedResponse{ChannelDeleted: channelEvent{
		Channel: name,
		Message: fmt.Sprintf("The channel `%s` has been deleted.", name),
	}}, nil
}

// joinChannel inserts the whole batch or nothing. A membership created
// concurrently after noneJoined ran rolls the batch back.
func joinChannel(c *call) (any, error) {
	user := sessionUser(c)
	err := c.store.JoinChannels(c.ctx, user, c.body.list)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrAlreadyJoined
	}
	if err != nil {
		return nil, err
	}
	return channelsJoinedResponse{ChannelsJoined: c.body.list, User: user}, nil
}

func leaveChannel(c *call) (any, error) {
	user := sessionUser(c)
	name := c.channel.ChannelID
	if err := c.store.LeaveChannel(c.ctx, user, name); err != nil {
		return nil, err
	}
	return leaveChannelResponse{LeaveChannel: leftChannel{
		Channel: name,
		User:    user,
		Message: fmt.Sprintf("%s has left the channel.", user),
	}}, nil
}

func usersInChannel(c *call) (any, error) {
	name := c.channel.ChannelID
	users, err := c.store.UsersInChannel(c.ctx, name)
	if err != nil {
		return nil, err
	}
	return usersInChannelResponse{UsersInChannel: channelUsers{Channel: name, Users: users}}, nil
}

func channelsForUser(c *call) (any, error) {
	channels, err := c.store.ChannelsForUser(c.ctx, sessionUser(c))
	if err != nil {
		return nil, err
	}
	return channelsResponse{Channels: channels}, nil
}
