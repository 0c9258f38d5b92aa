package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"forumshop/internal/db"
	"forumshop/internal/logger"
	"forumshop/internal/metrics"
	"forumshop/internal/models"
	"forumshop/internal/money"
	"forumshop/internal/mutation"
	"forumshop/internal/store"
	"forumshop/internal/validator"
	"forumshop/internal/websocket"

	"github.com/shopspring/decimal"
)

type UserService struct {
	txRunner        db.TxRunner
	users           UserStore
	inventory       InventoryStore
	engine          *mutation.Engine[models.User]
	hub             InventoryHub
	startingCredits decimal.Decimal
}

func NewUserService(txRunner db.TxRunner, users UserStore, inventory InventoryStore, audit AuditStore, hub InventoryHub, startingCredits decimal.Decimal) *UserService {
	return &UserService{
		txRunner:        txRunner,
		users:           users,
		inventory:       inventory,
		engine:          mutation.New(userSpec, audit),
		hub:             hub,
		startingCredits: startingCredits,
	}
}

// UserInventory is the read view of one user: every owned item and the
// subset currently in the bag.
type UserInventory struct {
	UserID    int64                   `json:"user_id"`
	Credits   string                  `json:"credits"`
	Inventory []models.InventoryEntry `json:"inventory"`
	Bag       []BagEntry              `json:"bag"`
}

type BagEntry struct {
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Quantity int64  `json:"quantity"`
}

// UserBag is the bag-only view returned by batch bag reads.
type UserBag struct {
	UserID int64      `json:"user_id"`
	Bag    []BagEntry `json:"bag"`
}

type UpdateCreditsRequest struct {
	UserID  int64           `json:"user_id" validate:"gt=0"`
	Credits decimal.Decimal `json:"credits"`
}

// EnsureUser returns the user with the given forum id, registering it with
// the starting balance on first reference. Concurrent calls create one row.
func (s *UserService) EnsureUser(ctx context.Context, tx store.Tx, externalID int64) (models.User, bool, error) {
	id, inserted, err := s.users.Register(ctx, tx, externalID, s.startingCredits)
	if err != nil {
		return models.User{}, false, err
	}
	if !inserted {
		user, err := s.users.GetByExternalID(ctx, tx, externalID)
		return user, false, err
	}
	user, err := s.engine.Created(ctx, tx, id, externalID)
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}

// ensureUsers registers every unknown id and returns all users keyed by
// forum id.
func (s *UserService) ensureUsers(ctx context.Context, tx store.Tx, externalIDs []int64) (map[int64]models.User, int, error) {
	existing, err := s.users.ListByExternalIDs(ctx, tx, externalIDs)
	if err != nil {
		return nil, 0, err
	}
	byExternal := make(map[int64]models.User, len(externalIDs))
	known := make([]int64, 0, len(existing))
	for _, user := range existing {
		byExternal[user.UserID] = user
		known = append(known, user.UserID)
	}
	registered := 0
	for _, externalID := range missingIDs(externalIDs, known) {
		user, inserted, err := s.EnsureUser(ctx, tx, externalID)
		if err != nil {
			return nil, 0, err
		}
		if inserted {
			registered++
		}
		byExternal[externalID] = user
	}
	return byExternal, registered, nil
}

func (s *UserService) GetInventory(ctx context.Context, externalID int64) (UserInventory, error) {
	views, err := s.GetInventories(ctx, []int64{externalID})
	if err != nil {
		return UserInventory{}, err
	}
	return views[0], nil
}

// readAttempts bounds retries of read-path registration when concurrent
// first reads of one user collide.
const readAttempts = 3

// GetInventories reads several users at once, registering unknown ids
// first. The number of queries does not grow with the number of users.
func (s *UserService) GetInventories(ctx context.Context, externalIDs []int64) ([]UserInventory, error) {
	if err := validator.NonEmpty("user_ids", len(externalIDs)); err != nil {
		return nil, err
	}
	externalIDs = uniqueIDs(externalIDs)
	var (
		users      map[int64]models.User
		entries    []models.InventoryEntry
		registered int
	)
	err := db.Retry(ctx, readAttempts, func() error {
		return s.txRunner.WithTx(ctx, func(tx store.Tx) error {
			var err error
			users, registered, err = s.ensureUsers(ctx, tx, externalIDs)
			if err != nil {
				return err
			}
			internalIDs := make([]int64, 0, len(users))
			for _, externalID := range externalIDs {
				internalIDs = append(internalIDs, users[externalID].ID)
			}
			entries, err = s.inventory.ListByUsers(ctx, tx, internalIDs)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	if registered > 0 {
		metrics.UsersRegisteredTotal.Add(float64(registered))
		logger.FromContext(ctx).Info("registered users on read", slog.Int("count", registered))
	}

	byOwner := make(map[int64][]models.InventoryEntry, len(users))
	for _, entry := range entries {
		byOwner[entry.OwnerID] = append(byOwner[entry.OwnerID], entry)
	}
	views := make([]UserInventory, 0, len(externalIDs))
	for _, externalID := range externalIDs {
		user := users[externalID]
		owned := byOwner[user.ID]
		if owned == nil {
			owned = []models.InventoryEntry{}
		}
		views = append(views, UserInventory{
			UserID:    externalID,
			Credits:   money.Format(user.Credits),
			Inventory: owned,
			Bag:       bagOf(owned),
		})
	}
	return views, nil
}

func (s *UserService) GetBags(ctx context.Context, externalIDs []int64) ([]UserBag, error) {
	views, err := s.GetInventories(ctx, externalIDs)
	if err != nil {
		return nil, err
	}
	bags := make([]UserBag, len(views))
	for i, view := range views {
		bags[i] = UserBag{UserID: view.UserID, Bag: view.Bag}
	}
	return bags, nil
}

// UpdateCredits sets an existing user's balance. Unknown users are not
// registered here.
func (s *UserService) UpdateCredits(ctx context.Context, req UpdateCreditsRequest) (models.User, error) {
	if err := validator.Struct(req); err != nil {
		return models.User{}, err
	}
	if req.Credits.IsNegative() {
		return models.User{}, validator.InvalidRange("credits", "must not be negative")
	}
	var updated models.User
	err := s.txRunner.WithTx(ctx, func(tx store.Tx) error {
		user, err := s.users.GetByExternalID(ctx, tx, req.UserID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound.WithMessage("User %d not found", req.UserID)
		}
		if err != nil {
			return err
		}
		_, updated, err = s.engine.Update(ctx, tx, user.ID, req.UserID, func(tx store.Tx, _ models.User) error {
			return s.users.UpdateCredits(ctx, tx, user.ID, req.Credits)
		})
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	metrics.MutationsTotal.WithLabelValues(userSpec.Entity).Inc()
	s.hub.BroadcastInventory(websocket.InventoryUpdate{
		UserID:  req.UserID,
		Event:   websocket.EventCredits,
		Credits: money.Format(updated.Credits),
	})
	return updated, nil
}

func bagOf(entries []models.InventoryEntry) []BagEntry {
	bag := []BagEntry{}
	for _, entry := range entries {
		if entry.QuantityInBag > 0 {
			bag = append(bag, BagEntry{
				ItemID:   entry.ItemID,
				Name:     entry.Name,
				Image:    entry.Image,
				Quantity: entry.QuantityInBag,
			})
		}
	}
	return bag
}
