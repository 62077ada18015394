package game

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/middleware"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/pubsub"
	"github.com/kollektive-hackathon/roulette-backend/internal/pkg/reject"
)

type gameHandler struct {
	gameService *GameService
}

func RegisterRoutes(rg *gin.RouterGroup, gameService *GameService, operatorKey string) {
	handler := gameHandler{
		gameService: gameService,
	}

	routes := rg.Group("/game")
	routes.POST("", handler.createGame)
	routes.GET("/:id", handler.getGame)
	routes.POST("/:id/join", handler.joinGame)
	routes.POST("/:id/resolve", middleware.RequireOperatorKey(operatorKey), handler.resolveGame)
}

// RegisterSubscriptions starts consuming resolve requests until ctx is done.
func RegisterSubscriptions(ctx context.Context, client *pubsub.Client, gameService *GameService) {
	go client.Subscribe(ctx, pubsub.SubscriptionHandler{
		SubscriptionId: resolveRequestsSubId,
		Handler:        pubsub.Acking(gameService.HandleResolveRequest),
	})
}

func (gh *gameHandler) createGame(c *gin.Context) {
	body := CreateGameRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	game, err := gh.gameService.CreateGame(c.Request.Context(), body)
	if err != nil {
		abortWithProblem(c, err)
		return
	}

	c.JSON(http.StatusCreated, game)
}

func (gh *gameHandler) joinGame(c *gin.Context) {
	body := JoinGameRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, reject.BodyParseProblem())
		return
	}

	settlement, err := gh.gameService.JoinGame(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		abortWithProblem(c, err)
		return
	}

	c.JSON(http.StatusOK, settlement)
}

func (gh *gameHandler) resolveGame(c *gin.Context) {
	settlement, err := gh.gameService.ResolveGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithProblem(c, err)
		return
	}

	c.JSON(http.StatusOK, settlement)
}

func (gh *gameHandler) getGame(c *gin.Context) {
	view, err := gh.gameService.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithProblem(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func abortWithProblem(c *gin.Context, err error) {
	problem := reject.ProblemFor(err)
	problem.Path = c.Request.URL.Path
	c.AbortWithStatusJSON(problem.Status, problem)
}
