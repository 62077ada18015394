package model

type GameStatus string

const (
	GameOpen    GameStatus = "OPEN"
	GameFull    GameStatus = "FULL"
	GameSettled GameStatus = "SETTLED"
)

type GameResult string

const (
	ResultPlayer1 GameResult = "PLAYER1"
	ResultPlayer2 GameResult = "PLAYER2"
	ResultPush    GameResult = "PUSH"
	ResultHouse   GameResult = "HOUSE"
)
