// Package api provides the HTTP/JSON and WebSocket API for the trained
// backgammon model.
//
// Positions are GNU Backgammon position IDs read from the perspective of
// the side named in the request.
package api

// ============================================================================
// Request Types
// ============================================================================

// MovesRequest is the request body for listing legal plays.
type MovesRequest struct {
	Position string `json:"position"` // Position ID (gnubg format)
	Side     string `json:"side"`     // Side on roll: "white" or "black"
	Dice     [2]int `json:"dice"`     // Dice roll [die1, die2]
}

// EvaluateRequest is the request body for position evaluation.
type EvaluateRequest struct {
	Position string `json:"position"` // Position ID (gnubg format)
	Side     string `json:"side"`     // Side on roll
}

// ============================================================================
// Response Types
// ============================================================================

// HealthResponse is the response for the health check endpoint.
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Ready   bool       `json:"ready"` // a model is loaded
	Pool    *PoolStats `json:"pool,omitempty"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// PlayResponse describes one legal play and the position it leaves.
type PlayResponse struct {
	Play     string   `json:"play"`               // e.g. "8,5 6,5"
	Position string   `json:"position"`           // Position ID after the play, opponent on roll
	WhiteWin *float64 `json:"white_win,omitempty"` // Model estimate after the play
}

// MovesResponse lists the legal plays for a roll, best first for the side
// on roll when a model is loaded.
type MovesResponse struct {
	Position string         `json:"position"`
	Side     string         `json:"side"`
	Dice     [2]int         `json:"dice"`
	Plays    []PlayResponse `json:"plays"`
}

// EvaluateResponse is the model's view of a position.
type EvaluateResponse struct {
	Position string  `json:"position"`
	Side     string  `json:"side"`
	WhiteWin float64 `json:"white_win"` // probability that White wins
	SideWin  float64 `json:"side_win"`  // probability that the side on roll wins
	PipCount [2]int  `json:"pip_count"` // [white, black]
	Finished bool    `json:"finished"`
}

// ============================================================================
// WebSocket play session messages
// ============================================================================

// Message types sent and received on /api/play.
const (
	MsgState = "state" // server: the position after a roll or a move
	MsgTurn  = "turn"  // server: the client's turn, with its legal plays
	MsgMove  = "move"  // client: the chosen play
	MsgOver  = "over"  // server: game finished
	MsgError = "error" // server: request rejected
	MsgPing  = "ping"  // client
	MsgPong  = "pong"  // server
)

// MovePayload is the payload of a client "move" message.
type MovePayload struct {
	Play string `json:"play"` // space separated "<start>,<end>" moves, "pass" or ""
}

// StatePayload describes the game after an event.
type StatePayload struct {
	Position string   `json:"position"` // Position ID, Turn on roll
	Board    string   `json:"board"`    // ASCII drawing
	Turn     string   `json:"turn"`
	Dice     []int    `json:"dice,omitempty"`
	Legal    []string `json:"legal,omitempty"`
	LastPlay string   `json:"last_play,omitempty"`
	Winner   string   `json:"winner,omitempty"`
}
