package roster

import (
	"context"
	"strings"

	"LabelDesk/core/auth"
	"LabelDesk/core/integrity"
	"LabelDesk/errs"
	"LabelDesk/logger"
	"LabelDesk/model"
	"LabelDesk/repository"
)

// ArtistInput describes a new artist.
type ArtistInput struct {
	Name        string           `json:"name"`
	LabelID     string           `json:"labelId"`
	Type        model.ArtistType `json:"type"`
	ExternalIDs model.StringMap  `json:"externalIds,omitempty"`
	Email       *string          `json:"email,omitempty"`
}

// ArtistPatch lists artist fields to change; nil fields are left alone.
// LabelID moves the artist to another label.
type ArtistPatch struct {
	Name        *string           `json:"name,omitempty"`
	Type        *model.ArtistType `json:"type,omitempty"`
	ExternalIDs model.StringMap   `json:"externalIds,omitempty"`
	Email       *string           `json:"email,omitempty"`
	LabelID     *string           `json:"labelId,omitempty"`
}

// ArtistView pairs an artist with its integrity lock.
type ArtistView struct {
	*model.Artist
	Lock integrity.LockState `json:"lock"`
}

func (s *Service) authorizeArtists(ctx context.Context, tx *repository.Store, actor model.Actor, labelID, action string) error {
	if !actor.IsStaff() {
		if err := auth.RequirePermission(actor, model.PermManageArtists, action); err != nil {
			return err
		}
	}
	return s.resolver.WithStore(tx).Authorize(ctx, actor, labelID, action)
}

// checkCapacity fails when label cannot take another artist.
func checkCapacity(ctx context.Context, tx *repository.Store, label *model.Label) error {
	if label.Status == model.LabelSuspended {
		return errs.Validation("labelId", "label %s is suspended", label.Name)
	}
	if label.ArtistCap == nil {
		return nil
	}
	n, err := tx.Artists().CountByLabel(ctx, label.ID)
	if err != nil {
		return err
	}
	if n >= int64(*label.ArtistCap) {
		return errs.Validation("labelId", "label %s has reached its cap of %d artists", label.Name, *label.ArtistCap)
	}
	return nil
}

// CreateArtist adds an artist to a label within the actor's authority,
// respecting the label's artist cap.
func (s *Service) CreateArtist(ctx context.Context, actor model.Actor, in ArtistInput) (*model.Artist, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.Validation("name", "an artist needs a name")
	}
	if in.Type == "" {
		in.Type = model.ArtistSolo
	}
	if !in.Type.Valid() {
		return nil, errs.Validation("type", "unknown artist type %q", in.Type)
	}
	var out *model.Artist
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		label, err := tx.Labels().GetByID(ctx, in.LabelID)
		if err != nil {
			return err
		}
		if err := s.authorizeArtists(ctx, tx, actor, label.ID, "create artist"); err != nil {
			return err
		}
		if err := checkCapacity(ctx, tx, label); err != nil {
			return err
		}
		now := s.now()
		out = &model.Artist{
			ID:          s.newID(),
			Name:        strings.TrimSpace(in.Name),
			LabelID:     label.ID,
			Type:        in.Type,
			ExternalIDs: in.ExternalIDs,
			Email:       in.Email,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.Artists().Create(ctx, out)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("艺人已创建",
		logger.String("artistId", out.ID),
		logger.String("labelId", out.LabelID),
		logger.String("actor", actor.UserID))
	return out, nil
}

// UpdateArtist edits an artist that no protected release references.
func (s *Service) UpdateArtist(ctx context.Context, actor model.Actor, artistID string, patch ArtistPatch) (*model.Artist, error) {
	var out *model.Artist
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		artist, err := tx.Artists().GetByID(ctx, artistID)
		if err != nil {
			return err
		}
		if err := s.authorizeArtists(ctx, tx, actor, artist.LabelID, "update artist"); err != nil {
			return err
		}
		if err := s.guard.WithStore(tx).CheckArtist(ctx, artistID); err != nil {
			return err
		}

		if patch.Name != nil {
			if strings.TrimSpace(*patch.Name) == "" {
				return errs.Validation("name", "an artist needs a name")
			}
			artist.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Type != nil {
			if !patch.Type.Valid() {
				return errs.Validation("type", "unknown artist type %q", *patch.Type)
			}
			artist.Type = *patch.Type
		}
		if patch.ExternalIDs != nil {
			artist.ExternalIDs = patch.ExternalIDs
		}
		if patch.Email != nil {
			email := strings.TrimSpace(*patch.Email)
			if email == "" {
				artist.Email = nil
			} else {
				artist.Email = &email
			}
		}
		if patch.LabelID != nil && *patch.LabelID != artist.LabelID {
			target, err := tx.Labels().GetByID(ctx, *patch.LabelID)
			if err != nil {
				return err
			}
			if err := s.authorizeArtists(ctx, tx, actor, target.ID, "move artist"); err != nil {
				return err
			}
			if err := checkCapacity(ctx, tx, target); err != nil {
				return err
			}
			artist.LabelID = target.ID
		}
		artist.UpdatedAt = s.now()
		if err := tx.Artists().Update(ctx, artist); err != nil {
			return err
		}
		out = artist
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("艺人已更新", logger.String("artistId", artistID), logger.String("actor", actor.UserID))
	return out, nil
}

// DeleteArtist removes an artist that no protected release references.
func (s *Service) DeleteArtist(ctx context.Context, actor model.Actor, artistID string) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		artist, err := tx.Artists().GetByID(ctx, artistID)
		if err != nil {
			return err
		}
		if err := s.authorizeArtists(ctx, tx, actor, artist.LabelID, "delete artist"); err != nil {
			return err
		}
		if err := s.guard.WithStore(tx).CheckArtist(ctx, artistID); err != nil {
			return err
		}
		return tx.Artists().Delete(ctx, artistID)
	})
	if err != nil {
		logger.Debug("删除艺人被拒绝", logger.String("artistId", artistID), logger.ErrorField(err))
		return err
	}
	logger.Info("艺人已删除", logger.String("artistId", artistID), logger.String("actor", actor.UserID))
	return nil
}

// Artists lists every artist visible from labelID together with its lock state.
func (s *Service) Artists(ctx context.Context, actor model.Actor, labelID string) ([]ArtistView, error) {
	var views []ArtistView
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		res := s.resolver.WithStore(tx)
		if err := res.Authorize(ctx, actor, labelID, "list artists"); err != nil {
			return err
		}
		artists, err := res.VisibleArtists(ctx, labelID)
		if err != nil {
			return err
		}
		states, err := s.guard.WithStore(tx).LockStates(ctx, artists)
		if err != nil {
			return err
		}
		views = make([]ArtistView, 0, len(artists))
		for _, a := range artists {
			views = append(views, ArtistView{Artist: a, Lock: states[a.ID]})
		}
		return nil
	})
	return views, err
}

// ArtistLock reports the lock state of one artist.
func (s *Service) ArtistLock(ctx context.Context, actor model.Actor, artistID string) (integrity.LockState, error) {
	var state integrity.LockState
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		artist, err := tx.Artists().GetByID(ctx, artistID)
		if err != nil {
			return err
		}
		if err := s.resolver.WithStore(tx).Authorize(ctx, actor, artist.LabelID, "view artist"); err != nil {
			return err
		}
		state, err = s.guard.WithStore(tx).LockState(ctx, artistID)
		return err
	})
	return state, err
}
