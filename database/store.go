package database

import (
	"context"

	"camelot/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound reports that the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the gorm-backed Domain Store over accounts, channels and
// memberships. Every query is parameterized.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrap(ErrDuplicate, op)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(ErrNotFound, op)
	default:
		return errors.Wrap(err, op)
	}
}

func (s *Store) AccountExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "store.AccountExists")
	}
	return count > 0, nil
}

// CheckCredentials reports whether userID exists with exactly this password.
// Both values are compared here rather than in SQL, where a case-insensitive
// column collation would accept "SECRET" for "secret".
func (s *Store) CheckCredentials(ctx context.Context, userID, password string) (bool, error) {
	account := models.Account{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translate(err, "store.CheckCredentials")
	}
	return account.UserID == userID && account.Password == password, nil
}

// CreateAccount inserts the account and a membership for every default
// channel in one transaction. Only a clash on the account itself is reported
// as ErrDuplicate. Memberships left behind under the same name by an
// account that no longer exists are dropped first.
func (s *Store) CreateAccount(ctx context.Context, userID, password string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account := models.Account{UserID: userID, Password: password}
		if err := tx.Create(&account).Error; err != nil {
			return translate(err, "insertAccount")
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Membership{}).Error; err != nil {
			return errors.Wrap(err, "deleteStaleMemberships")
		}

		var defaults []string
		err := tx.Model(&models.Channel{}).
			Where("admin IS NULL").
			Order("id").
			Pluck("channel_id", &defaults).Error
		if err != nil {
			return errors.Wrap(err, "listDefaultChannels")
		}
		if len(defaults) == 0 {
			return nil
		}

		memberships := make([]models.Membership, 0, len(defaults))
		for _, channelID := range defaults {
			memberships = append(memberships, models.Membership{UserID: userID, ChannelID: channelID})
		}
		if err := tx.Create(&memberships).Error; err != nil {
			return errors.Wrap(err, "insertMemberships")
		}
		return nil
	})
	return errors.Wrap(err, "store.CreateAccount")
}

func (s *Store) UpdatePassword(ctx context.Context, userID, password string) error {
	err := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("user_id = ?", userID).
		Update("password", password).Error
	return translate(err, "store.UpdatePassword")
}

// DeleteAccount removes the account, its memberships and the channels it
// administers (with their memberships) in one transaction. It returns the
// administered channels that were removed, in enumeration order.
func (s *Store) DeleteAccount(ctx context.Context, userID string) ([]string, error) {
	owned := []string{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Channel{}).
			Where("admin = ?", userID).
			Order("id").
			Pluck("channel_id", &owned).Error
		if err != nil {
			return errors.Wrap(err, "listAdministeredChannels")
		}

		if len(owned) > 0 {
			if err := tx.Where("channel_id IN ?", owned).Delete(&models.Membership{}).Error; err != nil {
				return errors.Wrap(err, "deleteChannelMemberships")
			}
			if err := tx.Where("channel_id IN ?", owned).Delete(&models.Channel{}).Error; err != nil {
				return errors.Wrap(err, "deleteChannels")
			}
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Membership{}).Error; err != nil {
			return errors.Wrap(err, "deleteMemberships")
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Account{}).Error; err != nil {
			return errors.Wrap(err, "deleteAccount")
		}
		return nil
	})
	if err != nil {
		return nil, translate(err, "store.DeleteAccount")
	}
	return owned, nil
}

// FindChannel returns ErrNotFound when the channel does not exist.
func (s *Store) FindChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	channel := models.Channel{}
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		First(&channel).Error
	if err != nil {
		return nil, translate(err, "store.FindChannel")
	}
	return &channel, nil
}

// ListChannels returns every channel name in enumeration order.
func (s *Store) ListChannels(ctx context.Context) ([]string, error) {
	channels := []string{}
	err := s.db.WithContext(ctx).Model(&models.Channel{}).
		Order("id").
		Pluck("channel_id", &channels).Error
	if err != nil {
		return nil, translate(err, "store.ListChannels")
	}
	return channels, nil
}

// CreateChannel inserts a channel. A nil admin creates a default channel.
func (s *Store) CreateChannel(ctx context.Context, channelID string, admin *string) error {
	channel := models.Channel{ChannelID: channelID, Admin: admin}
	err := s.db.WithContext(ctx).Create(&channel).Error
	return translate(err, "store.CreateChannel")
}

// DeleteChannel removes the channel and every membership in it.
func (s *Store) DeleteChannel(ctx context.Context, channelID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", channelID).Delete(&models.Membership{}).Error; err != nil {
			return errors.Wrap(err, "deleteMemberships")
		}
		if err := tx.Where("channel_id = ?", channelID).Delete(&models.Channel{}).Error; err != nil {
			return errors.Wrap(err, "deleteChannel")
		}
		return nil
	})
	return translate(err, "store.DeleteChannel")
}

// JoinChannels inserts all memberships or none of them.
func (s *Store) JoinChannels(ctx context.Context, userID string, channelIDs []string) error {
	if len(channelIDs) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		memberships := make([]models.Membership, 0, len(channelIDs))
		for _, channelID := range channelIDs {
			memberships = append(memberships, models.Membership{UserID: userID, ChannelID: channelID})
		}
		return tx.Create(&memberships).Error
	})
	return translate(err, "store.JoinChannels")
}

// LeaveChannel deletes the membership; a missing membership is not an error.
func (s *Store) LeaveChannel(ctx context.Context, userID, channelID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND channel_id = ?", userID, channelID).
		Delete(&models.Membership{}).Error
	return translate(err, "store.LeaveChannel")
}

func (s *Store) IsMember(ctx context.Context, userID, channelID string) (bool, error) {
	return s.HasAnyMembership(ctx, userID, []string{channelID})
}

// HasAnyMembership reports whether userID already belongs to at least one of
// channelIDs.
func (s *Store) HasAnyMembership(ctx context.Context, userID string, channelIDs []string) (bool, error) {
	if len(channelIDs) == 0 {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ? AND channel_id IN ?", userID, channelIDs).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "store.HasAnyMembership")
	}
	return count > 0, nil
}

// UsersInChannel lists members of channelID in the order they joined.
func (s *Store) UsersInChannel(ctx context.Context, channelID string) ([]string, error) {
	users := []string{}
	err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("channel_id = ?", channelID).
		Order("id").
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, translate(err, "store.UsersInChannel")
	}
	return users, nil
}

// ChannelsForUser lists the channels userID belongs to in the order joined.
func (s *Store) ChannelsForUser(ctx context.Context, userID string) ([]string, error) {
	channels := []string{}
	err := s.db.WithContext(ctx).Model(&models.Membership{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("channel_id", &channels).Error
	if err != nil {
		return nil, translate(err, "store.ChannelsForUser")
	}
	return channels, nil
}

// Reset empties all three relations.
func (s *Store) Reset(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Membership{}, &models.Channel{}, &models.Account{}} {
			if err := global.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err, "store.Reset")
}
