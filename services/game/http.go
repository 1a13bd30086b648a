package game

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	"idlezoo/pkg/errutil"
	"idlezoo/pkg/middleware"
	"idlezoo/services/idle"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/", middleware.Player())
	g.GET("/", h.view)
	g.GET("/get_game_state", h.gameState)
	g.POST("/update_progress", h.updateProgress)
	g.POST("/purchase", h.purchase)
	g.POST("/claim_reward/:id", h.claimReward)
	g.POST("/save_game", h.saveGame)
	g.POST("/load_game", h.loadGame)
	g.GET("/save_slots", h.saveSlots)
	g.GET("/get_offline_progress", h.offlineProgress)
}

// updateProgressRequest accepts both the zoo and the city spelling of the
// kind field. Currency may arrive as a float from the client ticker.
type updateProgressRequest struct {
	AttractionType *string  `json:"attraction_type"`
	BuildingType   *string  `json:"building_type"`
	Currency       *float64 `json:"currency"`
}

func (r updateProgressRequest) delta() idle.Delta {
	var d idle.Delta
	switch {
	case r.AttractionType != nil:
		d.Kind = r.AttractionType
	case r.BuildingType != nil:
		d.Kind = r.BuildingType
	}
	if r.Currency != nil && !math.IsNaN(*r.Currency) {
		v := max(*r.Currency, 0)
		c := int64(math.MaxInt64)
		if v < math.MaxInt64 {
			c = int64(v)
		}
		d.Currency = &c
	}
	return d
}

type purchaseRequest struct {
	AttractionType string `json:"attraction_type"`
	BuildingType   string `json:"building_type"`
}

type saveGameRequest struct {
	SlotNumber *int   `json:"slot_number"`
	SaveName   string `json:"save_name"`
}

type loadGameRequest struct {
	SlotNumber *int `json:"slot_number"`
}

// bindJSON decodes an optional body; an empty body is treated as {}.
func bindJSON(c *gin.Context, out any) error {
	if err := c.ShouldBindJSON(out); err != nil && !errors.Is(err, io.EOF) {
		return errutil.BadRequest("malformed JSON body", err)
	}
	return nil
}

func playerID(c *gin.Context) string {
	return middleware.PlayerID(c.Request.Context())
}

func (h *Handler) view(c *gin.Context) {
	view, err := h.service.View(c.Request.Context(), playerID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) gameState(c *gin.Context) {
	state, err := h.service.GameState(c.Request.Context(), playerID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) updateProgress(c *gin.Context) {
	var req updateProgressRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	if err := h.service.UpdateProgress(c.Request.Context(), playerID(c), req.delta()); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) purchase(c *gin.Context) {
	var req purchaseRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	kind := req.AttractionType
	if kind == "" {
		kind = req.BuildingType
	}
	if kind == "" {
		_ = c.Error(errutil.BadRequest("attraction_type is required", nil))
		return
	}

	state, err := h.service.Purchase(c.Request.Context(), playerID(c), kind)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

func (h *Handler) claimReward(c *gin.Context) {
	result, err := h.service.ClaimReward(c.Request.Context(), playerID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) saveGame(c *gin.Context) {
	var req saveGameRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	slot, err := h.service.SaveGame(c.Request.Context(), playerID(c), SaveRequest{
		SlotNumber: req.SlotNumber,
		SaveName:   req.SaveName,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "slot": slot})
}

func (h *Handler) loadGame(c *gin.Context) {
	var req loadGameRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	slotNumber := DefaultSlotNumber
	if req.SlotNumber != nil {
		slotNumber = *req.SlotNumber
	} else if q := c.Query("slot_number"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			_ = c.Error(errutil.BadRequest("slot_number must be an integer", err))
			return
		}
		slotNumber = n
	}

	state, err := h.service.LoadGame(c.Request.Context(), playerID(c), slotNumber)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "state": state})
}

func (h *Handler) saveSlots(c *gin.Context) {
	slots, err := h.service.ListSaves(c.Request.Context(), playerID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"save_slots": slots})
}

func (h *Handler) offlineProgress(c *gin.Context) {
	earned, err := h.service.OfflineProgress(c.Request.Context(), playerID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offline_earnings": earned})
}
