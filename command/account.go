package command

import (
	"fmt"

	"camelot/database"

	"github.com/pkg/errors"
)

// Passwords are stored and compared as plaintext. Moving them to bcrypt
// needs a column wide enough for the hash and a migration of existing rows.

type successResponse struct {
	Success string `json:"success"`
}

type channelsResponse struct {
	Channels []string `json:"channels"`
}

type accountDeleted struct {
	Username             string   `json:"username"`
	ChannelsBeingDeleted []string `json:"channels_being_deleted"`
}

type accountDeletedResponse struct {
	AccountDeleted accountDeleted `json:"account_deleted"`
}

var (
	username        = field("username")
	password        = field("password")
	currentPassword = field("current_password")
	newPassword     = field("new_password")
)

func accountCommands() []*command {
	return []*command{
		{
			name:   "create_account",
			schema: jsonObject("username", "password"),
			checks: []check{
				usernameFree(username),
				validLength(username, UsernameLimit, ErrUsernameLength),
				validLength(password, PasswordLimit, ErrPasswordLength),
			},
			run: createAccount,
		},
		{
			name:   "login",
			schema: jsonObject("username", "password"),
			checks: []check{
				credentials(username, password),
				anyChannel,
			},
			run: login,
		},
		{
			name:   "logout",
			gated:  true,
			schema: jsonScalar(),
			run:    logout,
		},
		{
			name:   "change_password",
			schema: jsonObject("username", "current_password", "new_password"),
			checks: []check{
				credentials(username, currentPassword),
				validLength(username, UsernameLimit, ErrUsernameLength),
				validLength(newPassword, PasswordLimit, ErrPasswordLength),
			},
			run: changePassword,
		},
		{
			name:   "delete_account",
			schema: jsonObject("username", "password"),
			checks: []check{
				credentials(username, password),
			},
			run: deleteAccount,
		},
	}
}

func createAccount(c *call) (any, error) {
	user := username(c)
	err := c.store.CreateAccount(c.ctx, user, password(c))
	if errors.Is(err, database.ErrDuplicate) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return successResponse{Success: fmt.Sprintf("Successfully created %s's account.", user)}, nil
}

func login(c *call) (any, error) {
	user := username(c)
	channels, err := c.store.ChannelsForUser(c.ctx, user)
	if err != nil {
		return nil, err
	}
	c.session.login(user)
	return channelsResponse{Channels: channels}, nil
}

func logout(c *call) (any, error) {
	user := c.session.User()
	c.session.logout()
	return successResponse{Success: fmt.Sprintf("%s has successfully logged out.", user)}, nil
}

func changePassword(c *call) (any, error) {
	user := username(c)
	if err := c.store.UpdatePassword(c.ctx, user, newPassword(c)); err != nil {
		return nil, err
	}
	return successResponse{Success: fmt.Sprintf("Successfully changed %s's password.", user)}, nil
}

// deleteAccount also removes the channels the account administers, along
// with their memberships. A session logged in as the deleted account is
// logged out.
func deleteAccount(c *call) (any, error) {
	user := username(c)
	owned, err := c.store.DeleteAccount(c.ctx, user)
	if err != nil {
		return nil, err
	}
	if c.session.User() == user {
		c.session.logout()
	}
	return accountDeletedResponse{
		AccountDeleted: accountDeleted{Username: user, ChannelsBeingDeleted: owned},
	}, nil
}
