package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"idlezoo/pkg/config"
	"idlezoo/pkg/db/option"
	"idlezoo/pkg/errutil"
	"idlezoo/pkg/featureflags"
	"idlezoo/pkg/repository"
	"idlezoo/pkg/task"
	"idlezoo/services/idle"
	"idlezoo/services/reward"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxPlayerIDLen = 64

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	catalogue idle.Catalogue
	rewards   []reward.Definition
	flags     featureflags.FeatureFlag
	enqueuer  task.Enqueuer

	now  func() time.Time
	draw reward.DrawFunc

	player     repository.Repository[Player]
	attraction repository.Repository[Attraction]
	definition repository.Repository[RewardDefinition]
	cooldown   repository.Repository[RewardCooldown]
	save       repository.Repository[SaveSlot]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config

	Flags    featureflags.FeatureFlag `optional:"true"`
	Enqueuer task.Enqueuer            `optional:"true"`
}

func NewService(p ServiceParams) (*Service, error) {
	catalogue, err := idle.CatalogueFromConfig(p.Config.Game)
	if err != nil {
		return nil, fmt.Errorf("game catalogue: %w", err)
	}
	rewards, err := reward.DefinitionsFromConfig(p.Config.Game.Rewards)
	if err != nil {
		return nil, fmt.Errorf("game rewards: %w", err)
	}

	flags := p.Flags
	if flags == nil {
		flags = featureflags.Static{}
	}

	return &Service{
		db:        p.DB,
		node:      p.Node,
		catalogue: catalogue,
		rewards:   rewards,
		flags:     flags,
		enqueuer:  p.Enqueuer,

		now:  time.Now,
		draw: reward.UniformDraw,

		player:     repository.ProvideStore[Player](p.DB),
		attraction: repository.ProvideStore[Attraction](p.DB),
		definition: repository.ProvideStore[RewardDefinition](p.DB),
		cooldown:   repository.ProvideStore[RewardCooldown](p.DB),
		save:       repository.ProvideStore[SaveSlot](p.DB),
	}, nil
}

// GameState is the get_game_state payload. Counts are flattened as
// "<kind>s" keys, e.g. {"cages": 3}.
type GameState struct {
	Currency            int64
	CurrencyMultiplier  float64
	Counts              map[string]int64
	Visitors            int64
	HappinessMultiplier float64
	Happiness           map[string]float64
}

func (g GameState) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(g.Counts)+5)
	for kind, count := range g.Counts {
		out[kind+"s"] = count
	}
	out["currency"] = g.Currency
	out["currency_multiplier"] = g.CurrencyMultiplier
	out["visitors"] = g.Visitors
	out["happiness_multiplier"] = g.HappinessMultiplier
	out["happiness"] = g.Happiness
	return json.Marshal(out)
}

type RewardStatus struct {
	ID              string     `json:"id"`
	Kind            string     `json:"kind"`
	CooldownMinutes int64      `json:"cooldown_minutes"`
	RewardMin       int64      `json:"reward_min"`
	RewardMax       int64      `json:"reward_max"`
	Available       bool       `json:"available"`
	LastClaimedAt   *time.Time `json:"last_claimed_at"`
	NextAvailable   time.Time  `json:"next_available"`
}

type SlotSummary struct {
	SlotNumber int          `json:"slot_number"`
	SaveName   string       `json:"save_name"`
	Slug       string       `json:"slug"`
	Preview    idle.Preview `json:"preview_stats"`
	SavedAt    time.Time    `json:"saved_at"`
}

// View is the full game screen returned by GET /.
type View struct {
	PlayerID        string         `json:"player_id"`
	OfflineEarnings int64          `json:"offline_earnings"`
	State           GameState      `json:"state"`
	Rewards         []RewardStatus `json:"rewards"`
	SaveSlots       []SlotSummary  `json:"save_slots"`
}

type ClaimResult struct {
	Success            bool       `json:"success"`
	RewardAmount       int64      `json:"reward_amount,omitempty"`
	CurrencyMultiplier float64    `json:"currency_multiplier,omitempty"`
	NextAvailable      *time.Time `json:"next_available,omitempty"`
	Message            string     `json:"message,omitempty"`
}

type SaveRequest struct {
	SlotNumber *int
	SaveName   string
}

// record is the locked player row with its attractions, keyed by kind.
type record struct {
	player      *Player
	attractions map[string]*Attraction
}

func logFields(ctx context.Context, playerID string) []zap.Field {
	sc := trace.SpanFromContext(ctx).SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
		zap.String("player_id", playerID),
	}
}

func validatePlayerID(playerID string) error {
	if playerID == "" {
		return errutil.Unauthorized("player id is required", nil)
	}
	if len(playerID) > maxPlayerIDLen {
		return errutil.BadRequest(fmt.Sprintf("player id exceeds %d characters", maxPlayerIDLen), nil)
	}
	return nil
}

// catalogueFor resolves the currency multiplier flag for one player.
func (s *Service) catalogueFor(ctx context.Context, playerID string) idle.Catalogue {
	c := s.catalogue
	c.ApplyCurrencyMultiplier = s.flags.Enabled(ctx, playerID, featureflags.ApplyCurrencyMultiplier, s.catalogue.ApplyCurrencyMultiplier)
	return c
}

// withPlayer runs fn in a transaction holding the player row lock, creating
// the player with defaults on first access.
func (s *Service) withPlayer(ctx context.Context, playerID string, fn func(tx *gorm.DB, rec *record) error) error {
	if err := validatePlayerID(playerID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := s.lockPlayer(ctx, tx, playerID)
		if err != nil {
			return err
		}
		return fn(tx, rec)
	})
}

func (s *Service) lockPlayer(ctx context.Context, tx *gorm.DB, playerID string) (*record, error) {
	p, err := s.player.WithTrx(tx).FindOne(ctx, &Player{ID: playerID}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}

	if p == nil {
		if err := s.createPlayer(ctx, tx, playerID); err != nil {
			return nil, err
		}
		p, err = s.player.WithTrx(tx).FindOne(ctx, &Player{ID: playerID}, option.WithLockingUpdate())
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, errutil.Internal("player row missing after create", nil)
		}
	}

	attractions, err := s.attraction.WithTrx(tx).Find(ctx, &Attraction{PlayerID: playerID})
	if err != nil {
		return nil, err
	}

	rec := &record{player: p, attractions: make(map[string]*Attraction, len(attractions))}
	for _, a := range attractions {
		rec.attractions[a.Kind] = a
	}
	return rec, nil
}

func (s *Service) createPlayer(ctx context.Context, tx *gorm.DB, playerID string) error {
	now := s.now()
	state := s.catalogue.NewState(now)

	ignoreDup := tx.Clauses(clause.OnConflict{DoNothing: true})
	if err := s.player.WithTrx(ignoreDup).Create(ctx, &Player{
		ID:                 playerID,
		Currency:           state.Currency,
		CurrencyMultiplier: state.CurrencyMultiplier,
		LastLoginAt:        now,
	}); err != nil {
		return err
	}

	attractions := make([]*Attraction, 0, len(s.catalogue.Kinds))
	for _, k := range s.catalogue.Kinds {
		attractions = append(attractions, &Attraction{
			ID:        s.node.Generate().String(),
			PlayerID:  playerID,
			Kind:      k.Name,
			Happiness: state.Holdings[k.Name].Happiness,
		})
	}
	if err := s.attraction.WithTrx(ignoreDup).BatchCreate(ctx, attractions); err != nil {
		return err
	}

	definitions, err := s.definition.WithTrx(tx).Find(ctx, nil)
	if err != nil {
		return err
	}
	_, err = s.ensureCooldowns(ctx, tx, playerID, definitions, now)
	if err != nil {
		return err
	}

	zap.L().With(logFields(ctx, playerID)...).Info("player created")
	return nil
}

// ensureCooldowns returns the player's cooldowns keyed by reward ID, creating
// a claimable one for every definition the player has not seen yet.
func (s *Service) ensureCooldowns(ctx context.Context, tx *gorm.DB, playerID string, definitions []*RewardDefinition, now time.Time) (map[string]*RewardCooldown, error) {
	existing, err := s.cooldown.WithTrx(tx).Find(ctx, &RewardCooldown{PlayerID: playerID})
	if err != nil {
		return nil, err
	}

	out := make(map[string]*RewardCooldown, len(definitions))
	for _, c := range existing {
		out[c.RewardID] = c
	}

	var missing []*RewardCooldown
	for _, d := range definitions {
		if _, ok := out[d.ID]; ok {
			continue
		}
		c := reward.NewCooldown(now)
		row := &RewardCooldown{
			ID:              s.node.Generate().String(),
			PlayerID:        playerID,
			RewardID:        d.ID,
			NextAvailableAt: c.NextAvailableAt,
		}
		missing = append(missing, row)
		out[d.ID] = row
	}
	if err := s.cooldown.WithTrx(tx.Clauses(clause.OnConflict{DoNothing: true})).BatchCreate(ctx, missing); err != nil {
		return nil, err
	}
	return out, nil
}

func toState(rec *record) idle.State {
	s := idle.State{
		Currency:           rec.player.Currency,
		LastLoginAt:        rec.player.LastLoginAt,
		CurrencyMultiplier: rec.player.CurrencyMultiplier,
		Holdings:           make(map[string]idle.Holding, len(rec.attractions)),
	}
	for kind, a := range rec.attractions {
		s.Holdings[kind] = idle.Holding{Count: a.Count, Happiness: a.Happiness}
	}
	return s
}

// persist writes state back over the locked record.
func (s *Service) persist(ctx context.Context, tx *gorm.DB, rec *record, state idle.State) error {
	if err := s.player.WithTrx(tx).Update(ctx, rec.player.ID, map[string]any{
		"currency":            state.Currency,
		"currency_multiplier": state.CurrencyMultiplier,
		"last_login_at":       state.LastLoginAt,
	}); err != nil {
		return err
	}
	rec.player.Currency = state.Currency
	rec.player.CurrencyMultiplier = state.CurrencyMultiplier
	rec.player.LastLoginAt = state.LastLoginAt

	kinds := make([]string, 0, len(state.Holdings))
	for kind := range state.Holdings {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		h := state.Holdings[kind]
		a, ok := rec.attractions[kind]
		if !ok {
			a = &Attraction{
				ID:        s.node.Generate().String(),
				PlayerID:  rec.player.ID,
				Kind:      kind,
				Count:     h.Count,
				Happiness: h.Happiness,
			}
			if err := s.attraction.WithTrx(tx).Create(ctx, a); err != nil {
				return err
			}
			rec.attractions[kind] = a
			continue
		}
		if a.Count == h.Count && a.Happiness == h.Happiness {
			continue
		}
		if err := s.attraction.WithTrx(tx).Update(ctx, a.ID, map[string]any{
			"count":     h.Count,
			"happiness": h.Happiness,
		}); err != nil {
			return err
		}
		a.Count = h.Count
		a.Happiness = h.Happiness
	}
	return nil
}

func (s *Service) gameState(c idle.Catalogue, state idle.State) GameState {
	out := GameState{
		Currency:            state.Currency,
		CurrencyMultiplier:  state.CurrencyMultiplier,
		Counts:              make(map[string]int64, len(c.Kinds)),
		Visitors:            state.Visitors,
		HappinessMultiplier: state.HappinessMultiplier,
		Happiness:           make(map[string]float64, len(c.Kinds)),
	}
	for _, k := range c.Kinds {
		h := state.Holdings[k.Name]
		out.Counts[k.Name] = h.Count
		out.Happiness[k.Name] = h.Happiness
	}
	return out
}

// View credits offline earnings, refreshes derived stats and returns the
// whole game screen.
func (s *Service) View(ctx context.Context, playerID string) (*View, error) {
	opts := logFields(ctx, playerID)
	c := s.catalogueFor(ctx, playerID)

	var view View
	if err := s.withPlayer(ctx, playerID, func(tx *gorm.DB, rec *record) error {
		now := s.now()
		earned, state := c.ComputeOfflineEarnings(toState(rec), now)
		state = c.RecomputeDerivedStats(state)
		if err := s.persist(ctx, tx, rec, state); err != nil {
			return err
		}

		rewards, err := s.rewardStatuses(ctx, tx, playerID, now)
		if err != nil {
			return err
		}
		slots, err := s.listSaves(ctx, tx, playerID)
		if err != nil {
			return err
		}

		view = View{
			PlayerID:        playerID,
			OfflineEarnings: earned,
			State:           s.gameState(c, state),
			Rewards:         rewards,
			SaveSlots:       slots,
		}
		return nil
	}); err != nil {
		zap.L().With(opts...).Error("failed to build game view", zap.Error(err))
		return nil, err
	}

	if view.OfflineEarnings > 0 {
		zap.L().With(opts...).Info("offline earnings credited", zap.Int64("earned", view.OfflineEarnings))
	}
	return &view, nil
}

func (s *Service) rewardStatuses(ctx context.Context, tx *gorm.DB, playerID string, now time.Time) ([]RewardStatus, error) {
	definitions, err := s.definition.WithTrx(tx).Find(ctx, nil, option.WithSortBy(option.QuerySortBy{
		SortBy:  "cooldown_minutes",
		OrderBy: "desc",
		Allow:   map[string]bool{"cooldown_minutes": true},
	}))
	if err != nil {
		return nil, err
	}
	cooldowns, err := s.ensureCooldowns(ctx, tx, playerID, definitions, now)
	if err != nil {
		return nil, err
	}

	out := make([]RewardStatus, 0, len(definitions))
	for _, d := range definitions {
		c := cooldowns[d.ID]
		out = append(out, RewardStatus{
			ID:              d.ID,
			Kind:            d.Kind,
			CooldownMinutes: d.CooldownMinutes,
			RewardMin:       d.RewardMin,
			RewardMax:       d.RewardMax,
			Available:       reward.IsClaimable(toCooldown(c), now),
			LastClaimedAt:   c.LastClaimedAt,
			NextAvailable:   c.NextAvailableAt,
		})
	}
	return out, nil
}

// GameState recomputes derived stats and persists the clamped happiness.
// Currency is returned as stored; pending earnings are credited by View.
func (s *Service) GameState(ctx context.Context, playerID string) (*GameState, error) {
	c := s.catalogueFor(ctx, playerID)

	var out GameState
	if err := s.withPlayer(ctx, playerID, func(tx *gorm.DB, rec *record) error {
		state := c.RecomputeDerivedStats(toState(rec))
		if err := s.persist(ctx, tx, rec, state); err != nil {
			return err
		}
		out = s.gameState(c, state)
		return nil
	}); err != nil {
		zap.L().With(logFields(ctx, playerID)...).Error("failed to get game state", zap.Error(err))
		return nil, err
	}
	return &out, nil
}

// UpdateProgress merges a client delta. Unknown kinds are dropped silently.
// A currency sync restarts offline accrual from now.
func (s *Service) UpdateProgress(ctx context.Context, playerID string, delta idle.Delta) error {
	opts := logFields(ctx, playerID)

	if err := s.withPlayer(ctx, playerID, func(tx *gorm.DB, rec *record) error {
		state := s.catalogue.ApplyProgressUpdate(toState(rec), delta, s.now())
		return s.persist(ctx, tx, rec, state)
	}); err != nil {
		zap.L().With(opts...).Error("failed to update progress", zap.Error(err))
		return err
	}

	if delta.Kind != nil {
		if _, ok := s.catalogue.Kind(*delta.Kind); !ok {
			zap.L().With(opts...).Debug("ignored unknown attraction kind", zap.String("kind", *delta.Kind))
		}
	}
	return nil
}

// Purchase pays for one attraction of kind after crediting pending earnings.
func (s *Service) Purchase(ctx context.Context, playerID, kind string) (*GameState, error) {
	c := s.catalogueFor(ctx, playerID)

	var out GameState
	err := s.withPlayer(ctx, playerID, func(tx *gorm.DB, rec *record) error {
		_, state := c.ComputeOfflineEarnings(toState(rec), s.now())
		state, err := c.Purchase(state, kind)
		switch {
		case errors.Is(err, idle.ErrUnknownKind):
			return errutil.BadRequest(fmt.Sprintf("unknown attraction type %q", kind), err)
		case errors.Is(err, idle.ErrInsufficientCurrency):
			return errutil.UnprocessableEntity("not enough currency", err)
		case err != nil:
			return err
		}

		state = c.RecomputeDerivedStats(state)
		if err := s.persist(ctx, tx, rec, state); err != nil {
			return err
		}
		out = s.gameState(c, state)
		return nil
	})
	if err != nil {
		zap.L().With(logFields(ctx, playerID)...).Warn("purchase rejected", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

func toCooldown(c *RewardCooldown) reward.Cooldown {
	return reward.Cooldown{LastClaimedAt: c.LastClaimedAt, NextAvailableAt: c.NextAvailableAt}
}

func toDefinition(d *RewardDefinition) reward.Definition {
	return reward.Definition{
		Kind:                    d.Kind,
		CooldownMinutes:         d.CooldownMinutes,
		RewardMin:               d.RewardMin,
		RewardMax:               d.RewardMax,
		CurrencyMultiplierGrant: d.CurrencyMultiplierGrant,
	}
}

// findDefinition resolves a reward by ID, then by kind.
func (s *Service) findDefinition(ctx context.Context, tx *gorm.DB, rewardID string) (*RewardDefinition, error) {
	d, err := s.definition.WithTrx(tx).FindOne(ctx, &RewardDefinition{ID: rewardID})
	if err != nil || d != nil {
		return d, err
	}
	d, err = s.definition.WithTrx(tx).FindOne(ctx, &RewardDefinition{Kind: rewardID})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errutil.NotFound(fmt.Sprintf("reward %q not found", rewardID), nil)
	}
	return d, nil
}

// ClaimReward grants a reward when its cooldown has elapsed. A claim during
// the cooldown is not an error: it returns Success=false with a message.
func (s *Service) ClaimReward(ctx context.Context, playerID, rewardID string) (*ClaimResult, error) {
	opts := append(logFields(ctx, playerID), zap.String("reward_id", rewardID))
	if rewardID == "" {
		return nil, errutil.BadRequest("reward id is required", nil)
	}

	var (
		result  ClaimResult
		payload *RewardClaimedPayload
	)
	err := s.withPlayer(ctx, playerID, func(tx *gorm.DB, rec *record) error {
		d, err := s.findDefinition(ctx, tx, rewardID)
		if err != nil {
			return err
		}

		now := s.now()
		cooldowns, err := s.ensureCooldowns(ctx, tx, playerID, []*RewardDefinition{d}, now)
		if err != nil {
			return err
		}
		row := cooldowns[d.ID]

		grant, err := reward.Claim(toCooldown(row), toDefinition(d), rec.player.CurrencyMultiplier, now, s.draw)
		if errors.Is(err, reward.ErrNotYetAvailable) {
			next := row.NextAvailableAt
			result = ClaimResult{
				Success:       false,
				NextAvailable: &next,
				Message:       fmt.Sprintf("%s is not available yet", d.Kind),
			}
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.cooldown.WithTrx(tx).Update(ctx, row.ID, map[string]any{
			"last_claimed_at":   grant.Cooldown.LastClaimedAt,
			"next_available_at": grant.Cooldown.NextAvailableAt,
		}); err != nil {
			return err
		}

		state := s.catalogue.CreditReward(toState(rec), grant.Amount)
		state.CurrencyMultiplier = grant.Multiplier
		if err := s.persist(ctx, tx, rec, state); err != nil {
			return err
		}

		next := grant.Cooldown.NextAvailableAt
		result = ClaimResult{
			Success:            true,
			RewardAmount:       grant.Amount,
			CurrencyMultiplier: grant.Multiplier,
			NextAvailable:      &next,
		}
		payload = &RewardClaimedPayload{
			ClaimID:    s.node.Generate().String(),
			PlayerID:   playerID,
			RewardID:   d.ID,
			Kind:       d.Kind,
			Amount:     grant.Amount,
			Multiplier: grant.Multiplier,
			ClaimedAt:  now,
			TraceID:    trace.SpanFromContext(ctx).SpanContext().TraceID().String(),
		}
		return nil
	})
	if err != nil {
		zap.L().With(opts...).Error("failed to claim reward", zap.Error(err))
		return nil, err
	}

	if payload != nil {
		zap.L().With(opts...).Info("reward claimed", zap.Int64("amount", result.RewardAmount), zap.Float64("multiplier", result.CurrencyMultiplier))
		s.enqueueRewardClaimed(ctx, payload)
	}
	return &result, nil
}

func (s *Service) enqueueRewardClaimed(ctx context.Context, payload *RewardClaimedPayload) {
	if s.enqueuer == nil {
		return
	}
	opts := append(logFields(ctx, payload.PlayerID), zap.String("claim_id", payload.ClaimID))

	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().With(opts...).Error("failed to marshal reward claimed payload", zap.Error(err))
		return
	}

	if _, err := s.enqueuer.Enqueue(ctx, asynq.NewTask(TaskRewardClaimed, body),
		asynq.Queue(task.QueueLow),
		asynq.TaskID(payload.ClaimID),
		asynq.MaxRetry(5),
	); err != nil {
		zap.L().With(opts...).Warn("failed to enqueue reward claimed task", zap.Error(err))
	}
}

// SaveGame snapshots the live state into a slot, overwriting any save
// already in that slot.
func (s *Service) SaveGame(ctx context.Context, playerID string, req SaveRequest) (*SlotSummary, error) {
	slotNumber := DefaultSlotNumber
	if req.SlotNumber != nil {
		slotNumber = *req.SlotNumber
	}
	if slotNumber < 1 {
		return nil, errutil.BadRequest("slot_number must be at least 1", nil)
	}

	c := s.catalogueFor(ctx, playerID)

	var out SlotSummary
	if err := s.withPlayer(ctx, playerID, func(tx *gorm.DB, rec *record) error {
		now := s.now()
		slot, err := SaveSnapshot(c, playerID, slotNumber, req.SaveName, toState(rec), now)
		if err != nil {
			return err
		}
		slot.ID = s.node.Generate().String()

		upsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "player_id"}, {Name: "slot_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"save_name", "slug", "save_data", "preview_stats", "updated_at"}),
		})
		if err := s.save.WithTrx(upsert).Create(ctx, slot); err != nil {
			return err
		}

		out = SlotSummary{
			SlotNumber: slot.SlotNumber,
			SaveName:   slot.SaveName,
			Slug:       slot.Slug,
			Preview:    decodePreview(slot),
			SavedAt:    now,
		}
		return nil
	}); err != nil {
		zap.L().With(logFields(ctx, playerID)...).Error("failed to save game", zap.Int("slot_number", slotNumber), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

// LoadGame replaces the live state with a saved slot.
func (s *Service) LoadGame(ctx context.Context, playerID string, slotNumber int) (*GameState, error) {
	if slotNumber < 1 {
		return nil, errutil.BadRequest("slot_number must be at least 1", nil)
	}
	c := s.catalogueFor(ctx, playerID)

	var out GameState
	if err := s.withPlayer(ctx, playerID, func(tx *gorm.DB, rec *record) error {
		slot, err := s.save.WithTrx(tx).FindOne(ctx, &SaveSlot{PlayerID: playerID, SlotNumber: slotNumber})
		if err != nil {
			return err
		}
		if slot == nil {
			return errutil.NotFound(fmt.Sprintf("save slot %d not found", slotNumber), nil)
		}

		state, err := RestoreState(slot, s.now())
		if err != nil {
			return errutil.Internal("corrupt save slot", err)
		}
		// kinds absent from the save are reset
		for kind, a := range rec.attractions {
			if _, ok := state.Holdings[kind]; !ok {
				state.Holdings[kind] = idle.Holding{Count: 0, Happiness: a.Happiness}
			}
		}

		state = c.RecomputeDerivedStats(state)
		if err := s.persist(ctx, tx, rec, state); err != nil {
			return err
		}
		out = s.gameState(c, state)
		return nil
	}); err != nil {
		zap.L().With(logFields(ctx, playerID)...).Error("failed to load game", zap.Int("slot_number", slotNumber), zap.Error(err))
		return nil, err
	}
	return &out, nil
}

func (s *Service) ListSaves(ctx context.Context, playerID string) ([]SlotSummary, error) {
	if err := validatePlayerID(playerID); err != nil {
		return nil, err
	}
	return s.listSaves(ctx, s.db, playerID)
}

func (s *Service) listSaves(ctx context.Context, tx *gorm.DB, playerID string) ([]SlotSummary, error) {
	slots, err := s.save.WithTrx(tx).Find(ctx, &SaveSlot{PlayerID: playerID}, option.WithSortBy(option.QuerySortBy{
		SortBy: "slot_number",
		Allow:  map[string]bool{"slot_number": true},
	}))
	if err != nil {
		return nil, err
	}

	out := make([]SlotSummary, 0, len(slots))
	for _, slot := range slots {
		out = append(out, SlotSummary{
			SlotNumber: slot.SlotNumber,
			SaveName:   slot.SaveName,
			Slug:       slot.Slug,
			Preview:    decodePreview(slot),
			SavedAt:    slot.UpdatedAt,
		})
	}
	return out, nil
}

// OfflineProgress reports pending earnings without crediting them. Unknown
// players have nothing pending.
func (s *Service) OfflineProgress(ctx context.Context, playerID string) (int64, error) {
	if err := validatePlayerID(playerID); err != nil {
		return 0, err
	}
	c := s.catalogueFor(ctx, playerID)

	p, err := s.player.FindOne(ctx, &Player{ID: playerID})
	if err != nil {
		zap.L().With(logFields(ctx, playerID)...).Error("failed to query player", zap.Error(err))
		return 0, err
	}
	if p == nil {
		return 0, nil
	}

	attractions, err := s.attraction.Find(ctx, &Attraction{PlayerID: playerID})
	if err != nil {
		return 0, err
	}
	rec := &record{player: p, attractions: make(map[string]*Attraction, len(attractions))}
	for _, a := range attractions {
		rec.attractions[a.Kind] = a
	}

	return c.PreviewOfflineEarnings(toState(rec), s.now()), nil
}

// SeedRewards upserts the configured reward definitions by kind.
func (s *Service) SeedRewards(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range s.rewards {
			fields := map[string]any{
				"cooldown_minutes":          d.CooldownMinutes,
				"reward_min":                d.RewardMin,
				"reward_max":                d.RewardMax,
				"currency_multiplier_grant": d.CurrencyMultiplierGrant,
			}

			existing, err := s.definition.WithTrx(tx).FindOne(ctx, &RewardDefinition{Kind: d.Kind})
			if err != nil {
				return err
			}
			if existing != nil {
				if err := s.definition.WithTrx(tx).Update(ctx, existing.ID, fields); err != nil {
					return err
				}
				continue
			}

			if err := s.definition.WithTrx(tx).Create(ctx, &RewardDefinition{
				ID:                      s.node.Generate().String(),
				Kind:                    d.Kind,
				CooldownMinutes:         d.CooldownMinutes,
				RewardMin:               d.RewardMin,
				RewardMax:               d.RewardMax,
				CurrencyMultiplierGrant: d.CurrencyMultiplierGrant,
			}); err != nil {
				return err
			}
		}
		zap.L().Info("reward definitions seeded", zap.Int("count", len(s.rewards)))
		return nil
	})
}

func (s *Service) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(Models()...)
}
