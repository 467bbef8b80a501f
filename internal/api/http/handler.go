package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"coppit-server/internal/archive"
	"coppit-server/internal/board"
	"coppit-server/internal/game"
	"coppit-server/internal/room"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrRoomFull),
		errors.Is(err, game.ErrDuplicateColor),
		errors.Is(err, game.ErrNotEnoughPlayers),
		errors.Is(err, game.ErrIllegalAction),
		errors.Is(err, game.ErrInvalidTarget):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// @Summary Create a room
// @Description Opens a room with the caller seated as host and returns the generated room and player ids
// @Tags Room
// @Accept json
// @Produce json
// @Param request body http.CreateRoomRequest true "Host info and optional rules"
// @Success 200 {object} map[string]interface{}
// @Router /rooms [post]
func CreateRoomHandler(rm *room.Manager, defaults game.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateRoomRequest
		if err := c.BindJSON(&req); err != nil || req.PlayerName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_name required"})
			return
		}
		rules := defaults
		if req.Rules != nil {
			rules = *req.Rules
		}
		playerID := uuid.NewString()
		s, err := rm.CreateRoom(c.Request.Context(), playerID, req.PlayerName, board.Color(req.Color), rules, req.Seed)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"room_id":   s.RoomID,
			"player_id": playerID,
			"state":     s,
		})
	}
}

// @Summary Join a room
// @Description Seats a player in a waiting room
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param request body http.JoinRoomRequest true "Player info"
// @Success 200 {object} map[string]interface{}
// @Router /rooms/{id}/join [post]
func JoinRoomHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req JoinRoomRequest
		if err := c.BindJSON(&req); err != nil || req.PlayerName == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_name required"})
			return
		}
		playerID := uuid.NewString()
		s, err := rm.JoinRoom(c.Request.Context(), c.Param("id"), playerID, req.PlayerName, board.Color(req.Color))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"room_id":   s.RoomID,
			"player_id": playerID,
			"state":     s,
		})
	}
}

// @Summary Start the game
// @Description Starts a waiting room, optionally filling empty seats with bots
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param request body http.StartGameRequest true "Starter info"
// @Success 200 {object} map[string]interface{}
// @Router /rooms/{id}/start [post]
func StartGameHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req StartGameRequest
		if err := c.BindJSON(&req); err != nil || req.PlayerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id required"})
			return
		}
		act := room.ClientAction{Type: room.ActionStartGame, FillBots: req.FillBots}
		if err := rm.HandleAction(c.Request.Context(), c.Param("id"), req.PlayerID, act); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		s, err := rm.State(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": s})
	}
}

// @Summary Get room state
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} map[string]interface{}
// @Router /rooms/{id} [get]
func RoomStateHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := rm.State(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": s})
	}
}

// @Summary Get legal moves
// @Description Lists the selectable stacks of the current die, with directions and destinations per stack
// @Tags Game
// @Produce json
// @Param id path string true "Room ID"
// @Param player_id query string true "Player ID"
// @Success 200 {object} map[string]interface{}
// @Router /rooms/{id}/legal [get]
func LegalMovesHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.Query("player_id")
		if playerID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id required"})
			return
		}
		s, err := rm.State(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		type option struct {
			StackID      string            `json:"stack_id"`
			NodeID       string            `json:"node_id"`
			Directions   []board.Direction `json:"directions"`
			Destinations []string          `json:"destinations"`
		}
		out := []option{}
		for _, st := range game.LegalStacks(s, playerID) {
			out = append(out, option{
				StackID:      st.ID,
				NodeID:       st.NodeID,
				Directions:   game.LegalDirections(s, st),
				Destinations: game.LegalDestinations(s, st),
			})
		}
		c.JSON(http.StatusOK, gin.H{"stacks": out})
	}
}

// @Summary Get the board layout
// @Description Returns every node with coordinates, tags and adjacency for rendering
// @Tags Game
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /board [get]
func BoardHandler(b *board.Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"meta": b.Meta, "nodes": b.Nodes()})
	}
}

// @Summary Recent finished matches
// @Tags Archive
// @Produce json
// @Param limit query int false "Max results (default 20)"
// @Success 200 {object} map[string]interface{}
// @Router /matches [get]
func RecentMatchesHandler(arch *archive.Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		if arch == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "archive disabled"})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		matches, err := arch.Recent(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// @Summary Get bot weights
// @Tags Config
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /config/weights [get]
func GetWeightsHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"weights": rm.Weights()})
	}
}

// @Summary Update bot weights
// @Description Adjusts the heuristic weights for bots created from now on
// @Tags Config
// @Accept json
// @Produce json
// @Param request body http.WeightsRequest true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Router /config/weights [post]
func UpdateWeightsHandler(rm *room.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WeightsRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		w := rm.Weights()
		if req.Capture != nil {
			w.Capture = *req.Capture
		}
		if req.Bank != nil {
			w.Bank = *req.Bank
		}
		if req.Return != nil {
			w.Return = *req.Return
		}
		if req.Safe != nil {
			w.Safe = *req.Safe
		}
		if req.Deploy != nil {
			w.Deploy = *req.Deploy
		}
		if req.Danger != nil {
			w.Danger = *req.Danger
		}
		rm.SetWeights(w)
		c.JSON(http.StatusOK, gin.H{"weights": w})
	}
}
